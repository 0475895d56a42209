package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
)

const pullRequestRelationName = "Pull Request"

// PullRequestRef identifies one pull request linked to a work item.
type PullRequestRef struct {
	RepoID        string
	PullRequestID string
}

// CommentThread is one discussion thread on a pull request, in the order the
// API returned it.
type CommentThread struct {
	Comments []Comment `json:"comments"`
}

type Comment struct {
	Author      CommentAuthor `json:"author"`
	Content     string        `json:"content"`
	CreatedDate string        `json:"createdDate"`
}

type CommentAuthor struct {
	UniqueName string `json:"uniqueName"`
}

type workItemResponse struct {
	Relations []workItemRelation `json:"relations"`
}

type workItemRelation struct {
	Attributes relationAttributes `json:"attributes"`
	URL        string             `json:"url"`
}

type relationAttributes struct {
	Name string `json:"name"`
}

type threadsResponse struct {
	Value []CommentThread `json:"value"`
}

// AuthHeader builds the Basic auth header Azure DevOps expects for personal
// access tokens: an empty username with the token as password.
func AuthHeader(pat string) http.Header {
	token := base64.StdEncoding.EncodeToString([]byte(":" + pat))
	header := http.Header{}
	header.Set("Authorization", "Basic "+token)
	header.Set("Content-Type", "application/json")
	return header
}

// AzureDevOpsClient reads work items and pull request threads from one
// organization/project.
type AzureDevOpsClient struct {
	api        *APIClient
	header     http.Header
	baseURL    string
	org        string
	project    string
	apiVersion string
}

func NewAzureDevOpsClient(cfg Config, api *APIClient) *AzureDevOpsClient {
	return &AzureDevOpsClient{
		api:        api,
		header:     AuthHeader(cfg.PAT),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		org:        cfg.Organization,
		project:    cfg.Project,
		apiVersion: cfg.APIVersion,
	}
}

// LinkedPullRequests returns the pull requests linked to a work item through
// its "Pull Request" relations. Relations of other types are ignored, and
// relations whose artifact URL does not decode into repository and pull
// request components are logged and skipped. A ticket with no qualifying
// relations yields an empty slice.
func (c *AzureDevOpsClient) LinkedPullRequests(ticketID int) ([]PullRequestRef, error) {
	apiURL := fmt.Sprintf("%s/%s/%s/_apis/wit/workitems/%d",
		c.baseURL, url.PathEscape(c.org), url.PathEscape(c.project), ticketID)
	params := url.Values{}
	params.Set("$expand", "relations")
	params.Set("api-version", c.apiVersion)

	body, err := c.api.Request(http.MethodGet, apiURL, c.header, params, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching work item %d: %w", ticketID, err)
	}

	var workItem workItemResponse
	if err := json.Unmarshal(body, &workItem); err != nil {
		return nil, fmt.Errorf("parsing work item %d: %w", ticketID, err)
	}

	var refs []PullRequestRef
	for _, rel := range workItem.Relations {
		if rel.Attributes.Name != pullRequestRelationName {
			continue
		}
		ref, ok := parsePullRequestURL(rel.URL)
		if !ok {
			log.Printf("Skipping malformed pull request relation on ticket %d: %q", ticketID, rel.URL)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// FetchThreads returns every discussion thread on a pull request.
func (c *AzureDevOpsClient) FetchThreads(repoID, pullRequestID string) ([]CommentThread, error) {
	apiURL := fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s/pullRequests/%s/threads",
		c.baseURL, url.PathEscape(c.org), url.PathEscape(c.project),
		url.PathEscape(repoID), url.PathEscape(pullRequestID))
	params := url.Values{}
	params.Set("api-version", c.apiVersion)

	body, err := c.api.Request(http.MethodGet, apiURL, c.header, params, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching threads for pull request %s/%s: %w", repoID, pullRequestID, err)
	}

	var threads threadsResponse
	if err := json.Unmarshal(body, &threads); err != nil {
		return nil, fmt.Errorf("parsing threads for pull request %s/%s: %w", repoID, pullRequestID, err)
	}
	return threads.Value, nil
}

// parsePullRequestURL decomposes a "Pull Request" relation artifact URL. The
// final path segment percent-encodes a "project/repository/pullrequest"
// triple, so after decoding, the last two components are the repository and
// pull request ids.
func parsePullRequestURL(rawURL string) (PullRequestRef, bool) {
	segments := strings.Split(rawURL, "/")
	decoded, err := url.PathUnescape(segments[len(segments)-1])
	if err != nil {
		return PullRequestRef{}, false
	}
	parts := strings.Split(decoded, "/")
	if len(parts) < 2 {
		return PullRequestRef{}, false
	}
	return PullRequestRef{
		RepoID:        parts[len(parts)-2],
		PullRequestID: parts[len(parts)-1],
	}, true
}
