package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func newRetryClient(t *testing.T, maxAttempts int) (*APIClient, *[]time.Duration) {
	t.Helper()
	var sleeps []time.Duration
	client := &APIClient{
		httpClient:  http.DefaultClient,
		maxAttempts: maxAttempts,
		backoffBase: 2,
		sleep: func(d time.Duration) {
			sleeps = append(sleeps, d)
		},
	}
	return client, &sleeps
}

func TestRequestSuccessFirstTry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.Header.Get("Authorization"); got != "Basic abc" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if got := r.URL.Query().Get("api-version"); got != "7.1" {
			t.Errorf("unexpected api-version param: %q", got)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client, sleeps := newRetryClient(t, 3)
	header := http.Header{}
	header.Set("Authorization", "Basic abc")
	params := url.Values{}
	params.Set("api-version", "7.1")

	body, err := client.Request(http.MethodGet, server.URL, header, params, nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", body)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no sleeps, got %v", *sleeps)
	}
}

func TestRequestRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, sleeps := newRetryClient(t, 3)
	body, err := client.Request(http.MethodGet, server.URL, nil, nil, nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("unexpected body: %s", body)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	// Backoff grows as base^attempt: 2s after the first failure, 4s after the second.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*sleeps) != len(want) || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Errorf("unexpected backoff sleeps: %v, want %v", *sleeps, want)
	}
}

func TestRequestExhaustsAttempts(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, sleeps := newRetryClient(t, 3)
	_, err := client.Request(http.MethodGet, server.URL, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error after exhausted attempts")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if transportErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", transportErr.StatusCode, http.StatusBadGateway)
	}
	if transportErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", transportErr.Attempts)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(*sleeps) != 2 {
		t.Errorf("expected 2 sleeps, got %v", *sleeps)
	}
}

func TestRequestClientErrorFailsFast(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client, sleeps := newRetryClient(t, 3)
	_, err := client.Request(http.MethodGet, server.URL, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for 404")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if transportErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", transportErr.StatusCode)
	}
	if transportErr.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", transportErr.Attempts)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no sleeps for client error, got %v", *sleeps)
	}
}

func TestRequestRateLimitDoesNotAdvanceBackoff(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte("ok"))
		}
	}))
	defer server.Close()

	client, sleeps := newRetryClient(t, 3)
	body, err := client.Request(http.MethodGet, server.URL, nil, nil, nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("unexpected body: %s", body)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	// The 429 wait honors Retry-After; the 500 after it still backs off from
	// the first exponent because the rate-limit wait consumed no attempt.
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*sleeps) != len(want) || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Errorf("unexpected sleeps: %v, want %v", *sleeps, want)
	}
}

func TestRequestRateLimitDefaultDelay(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, sleeps := newRetryClient(t, 3)
	if _, err := client.Request(http.MethodGet, server.URL, nil, nil, nil); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != defaultRetryAfter {
		t.Errorf("expected one default rate-limit sleep, got %v", *sleeps)
	}
}

func TestRequestPersistentRateLimitTerminates(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, sleeps := newRetryClient(t, 3)
	_, err := client.Request(http.MethodGet, server.URL, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for persistent rate limiting")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if transportErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", transportErr.StatusCode)
	}
	if len(*sleeps) != 3 {
		t.Errorf("expected rate-limit waits capped at 3, got %d", len(*sleeps))
	}
}

func TestRequestNetworkErrorRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	// Closing up front turns every request into a connection error.
	deadURL := server.URL
	server.Close()

	client, sleeps := newRetryClient(t, 3)
	_, err := client.Request(http.MethodGet, deadURL, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if transportErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for network failure", transportErr.StatusCode)
	}
	if transportErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", transportErr.Attempts)
	}
	if len(*sleeps) != 2 {
		t.Errorf("expected 2 backoff sleeps, got %v", *sleeps)
	}
}

func TestRetryAfterDelay(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"integer seconds", "7", 7 * time.Second},
		{"zero", "0", 0},
		{"missing", "", defaultRetryAfter},
		{"http date unsupported", "Wed, 21 Oct 2026 07:28:00 GMT", defaultRetryAfter},
		{"negative", "-3", defaultRetryAfter},
		{"garbage", "soon", defaultRetryAfter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.value != "" {
				header.Set("Retry-After", tt.value)
			}
			if got := retryAfterDelay(header); got != tt.want {
				t.Errorf("retryAfterDelay(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestConfigureExternalHTTPClient(t *testing.T) {
	orig := externalHTTPClient.Timeout
	t.Cleanup(func() { externalHTTPClient.Timeout = orig })

	configureExternalHTTPClient(45)
	if externalHTTPClient.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", externalHTTPClient.Timeout)
	}

	// Zero keeps the current timeout rather than disabling it.
	configureExternalHTTPClient(0)
	if externalHTTPClient.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want unchanged 45s", externalHTTPClient.Timeout)
	}
}
