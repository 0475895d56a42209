package main

import (
	"log"
	"strings"
)

// commentSource is the upstream surface the pipeline drives: resolving a
// ticket's linked pull requests and fetching their discussion threads.
type commentSource interface {
	LinkedPullRequests(ticketID int) ([]PullRequestRef, error)
	FetchThreads(repoID, pullRequestID string) ([]CommentThread, error)
}

// Pipeline walks tickets to linked pull requests to threads to comments,
// applying the noise filter and team classification to each comment.
type Pipeline struct {
	source commentSource
	filter *NoiseFilter
	teams  *TeamRoster
}

func NewPipeline(source commentSource, filter *NoiseFilter, teams *TeamRoster) *Pipeline {
	return &Pipeline{source: source, filter: filter, teams: teams}
}

// Run processes every ticket sequentially. A fetch failure inside one ticket
// is recorded in Failures and the remaining tickets still run; rows and
// counters already accumulated for the failed ticket are kept as partial
// results. Only tickets that completed cleanly count as processed.
func (p *Pipeline) Run(ticketIDs []int) RunResult {
	result := RunResult{Stats: NewRunStats()}

	for _, ticketID := range ticketIDs {
		if err := p.processTicket(ticketID, &result); err != nil {
			log.Printf("Ticket %d failed: %v", ticketID, err)
			result.Failures = append(result.Failures, TicketFailure{TicketID: ticketID, Err: err})
			continue
		}
		result.Stats.Increment(statTicketsProcessed)
	}
	return result
}

func (p *Pipeline) processTicket(ticketID int, result *RunResult) error {
	refs, err := p.source.LinkedPullRequests(ticketID)
	if err != nil {
		return err
	}
	log.Printf("Ticket %d: %d linked pull request(s)", ticketID, len(refs))

	for _, ref := range refs {
		threads, err := p.source.FetchThreads(ref.RepoID, ref.PullRequestID)
		if err != nil {
			return err
		}

		for _, thread := range threads {
			for _, comment := range thread.Comments {
				result.Stats.Increment(statCommentsSeen)

				author := strings.ToLower(comment.Author.UniqueName)
				if p.filter.IsNoise(comment.Content, author) {
					result.Stats.Increment(statCommentsFiltered)
					continue
				}

				result.Stats.Increment(statCommentsKept)
				result.Rows = append(result.Rows, ClassifiedComment{
					TicketID:      ticketID,
					RepoID:        ref.RepoID,
					PullRequestID: ref.PullRequestID,
					Author:        author,
					Team:          p.teams.Classify(author),
					Comment:       comment.Content,
					CreatedDate:   comment.CreatedDate,
				})
			}
		}
	}
	return nil
}
