package main

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultExternalHTTPTimeout = 30 * time.Second

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 2.0
	defaultRetryAfter  = 5 * time.Second
)

// Shared client for all outbound calls so every request observes the same
// timeout.
var externalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

func configureExternalHTTPClient(timeoutSeconds int) {
	if timeoutSeconds > 0 {
		externalHTTPClient.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
}

// TransportError is returned when a request cannot be completed within the
// retry budget. StatusCode is the last status observed, 0 when the failure
// never produced a response.
type TransportError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIClient issues HTTP requests with bounded retries. Network errors and
// 5xx responses consume one attempt each and back off backoffBase^attempt
// seconds before the next try. A 429 response waits out Retry-After without
// advancing the backoff exponent; other 4xx responses fail immediately.
type APIClient struct {
	httpClient  *http.Client
	maxAttempts int
	backoffBase float64

	// sleep is swapped out in tests to observe waits without serving them.
	sleep func(time.Duration)
}

func NewAPIClient(cfg Config) *APIClient {
	configureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	return &APIClient{
		httpClient:  externalHTTPClient,
		maxAttempts: cfg.HTTPMaxAttempts,
		backoffBase: cfg.HTTPBackoffBaseSeconds,
		sleep:       time.Sleep,
	}
}

// Request performs one logical HTTP call and returns the response body.
// params are appended to rawURL as the query string; a nil body sends no
// request body.
func (c *APIClient) Request(method, rawURL string, header http.Header, params url.Values, body []byte) ([]byte, error) {
	fullURL := rawURL
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		fullURL = rawURL + sep + params.Encode()
	}

	attempt := 1
	rateLimitWaits := 0
	for {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequest(method, fullURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("creating request for %s: %w", fullURL, err)
		}
		if header != nil {
			req.Header = header.Clone()
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt >= c.maxAttempts {
				return nil, &TransportError{URL: fullURL, Attempts: attempt, Err: err}
			}
			c.sleep(c.backoff(attempt))
			attempt++
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if rateLimitWaits >= c.maxAttempts {
				return nil, &TransportError{
					URL:        fullURL,
					StatusCode: resp.StatusCode,
					Attempts:   attempt,
					Err:        fmt.Errorf("still rate limited after %d waits", rateLimitWaits),
				}
			}
			rateLimitWaits++
			c.sleep(retryAfterDelay(resp.Header))
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			if attempt >= c.maxAttempts {
				return nil, &TransportError{
					URL:      fullURL,
					Attempts: attempt,
					Err:      fmt.Errorf("reading response: %w", readErr),
				}
			}
			c.sleep(c.backoff(attempt))
			attempt++
			continue
		}

		if resp.StatusCode < 400 {
			return respBody, nil
		}

		statusErr := fmt.Errorf("azure devops api returned %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode < 500 {
			// Client errors other than 429 will not heal on retry.
			return nil, &TransportError{URL: fullURL, StatusCode: resp.StatusCode, Attempts: attempt, Err: statusErr}
		}
		if attempt >= c.maxAttempts {
			return nil, &TransportError{URL: fullURL, StatusCode: resp.StatusCode, Attempts: attempt, Err: statusErr}
		}
		c.sleep(c.backoff(attempt))
		attempt++
	}
}

func (c *APIClient) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(c.backoffBase, float64(attempt)) * float64(time.Second))
}

// retryAfterDelay reads an integer-seconds Retry-After header. Missing,
// malformed, or negative values fall back to a fixed delay.
func retryAfterDelay(header http.Header) time.Duration {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
