package emailharvest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchCrawlSkipsPriorityPagesWhenHomepageYieldsEmail(t *testing.T) {
	var priorityHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="mailto:owner@example.test">Email us</a></body></html>`))
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&priorityHits, 1)
		w.Write([]byte(`<html><body>unreached</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	opts := FetchCrawlOptions{Budget: 5 * time.Second, MaxPriorityPages: 5}
	result := FetchCrawl(context.Background(), srv.URL, opts)

	if len(result.Emails) != 1 || result.Emails[0] != "owner@example.test" {
		t.Fatalf("expected [owner@example.test], got %v", result.Emails)
	}
	if len(result.Visited) != 1 || result.PagesVisited != 1 {
		t.Fatalf("expected homepage as the only visited page, got %+v", result)
	}
	if atomic.LoadInt32(&priorityHits) != 0 {
		t.Fatalf("expected priority-page fetch to be skipped, but it was hit")
	}
}

func TestFetchPageDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fetchWithRetry(context.Background(), fetchClient, srv.URL, 2)
	if err == nil {
		t.Fatalf("expected an error for a 404 response")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 request for a non-retryable 4xx, got %d", got)
	}
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := fetchWithRetry(context.Background(), fetchClient, srv.URL, 2)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 requests (1 failure + 1 retry), got %d", got)
	}
}
