package emailharvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	fetchHTTPTimeout      = 10 * time.Second
	fetchMaxResponseBytes = 5 * 1024 * 1024
	fetchUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	fetchAcceptHeader     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	fetchMaxPriorityPages = 5
	fetchPriorityPoolSize = 3
	fetchMaxIdlePerHost   = 50
	fetchIdleConnTimeout  = 60 * time.Second
)

var fetchBackoffs = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// FetchCrawlOptions configures the fetch-driven crawler.
type FetchCrawlOptions struct {
	Budget           time.Duration
	MaxPriorityPages int

	// APITimeout overrides the per-request timeout of the HTTP client that
	// GETs the site's pages directly (EMAIL_API_TIMEOUT). The crawler does
	// not go through a separate content-fetch service. Zero keeps
	// fetchClient's default.
	APITimeout time.Duration
}

// DefaultFetchOptions matches the render crawler's overall budget so the
// two crawlers are interchangeable (spec.md §4.5).
func DefaultFetchOptions() FetchCrawlOptions {
	return FetchCrawlOptions{Budget: 60 * time.Second, MaxPriorityPages: fetchMaxPriorityPages}
}

// FetchCrawlResult mirrors RenderCrawlResult so callers can select either
// crawler behind the same contract.
type FetchCrawlResult struct {
	Emails       []string
	PagesVisited int
	Visited      []string
	Errors       []string
}

var fetchClient = &http.Client{
	Timeout: fetchHTTPTimeout,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	},
	Transport: func() *http.Transport {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.MaxIdleConnsPerHost = fetchMaxIdlePerHost
		t.IdleConnTimeout = fetchIdleConnTimeout
		return t
	}(),
}

// FetchCrawl is the HTTP-only crawler: it fetches the homepage, discovers
// priority pages from its links, and fetches up to MaxPriorityPages of them
// with a concurrency of fetchPriorityPoolSize. Grounded closely on the
// Polliog EmailPipeline's fetchWithRetry/fetchPage/extractEmails cascade,
// generalized from its sequential Level 1/Level 2 walk to a bounded worker
// pool over the scored priority pages from priority.go.
func FetchCrawl(ctx context.Context, websiteURL string, opts FetchCrawlOptions) FetchCrawlResult {
	budgetCtx, cancel := context.WithTimeout(ctx, opts.Budget)
	defer cancel()

	client := fetchClient
	if opts.APITimeout > 0 {
		cloned := *fetchClient
		cloned.Timeout = opts.APITimeout
		client = &cloned
	}

	result := FetchCrawlResult{}

	homeBody, err := fetchWithRetry(budgetCtx, client, websiteURL, len(fetchBackoffs))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("homepage fetch: %v", err))
		return result
	}
	result.PagesVisited++
	result.Visited = append(result.Visited, websiteURL)

	doc, _ := goquery.NewDocumentFromReader(bytes.NewReader(homeBody))
	var allEmails []string
	allEmails = append(allEmails, ExtractAll(homeBody, doc)...)

	if doc == nil || len(allEmails) > 0 {
		result.Emails = OrderForOutput(allEmails, hostOf(websiteURL))
		return result
	}

	pages := DiscoverPriorityPages(doc, websiteURL)
	if len(pages) > opts.MaxPriorityPages {
		pages = pages[:opts.MaxPriorityPages]
	}

	type pageOutcome struct {
		url    string
		emails []string
		err    error
	}

	jobs := make(chan PriorityPage)
	outcomes := make(chan pageOutcome, len(pages))
	var wg sync.WaitGroup

	for i := 0; i < fetchPriorityPoolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range jobs {
				body, err := fetchWithRetry(budgetCtx, client, page.URL, 1)
				if err != nil {
					outcomes <- pageOutcome{url: page.URL, err: err}
					continue
				}
				pageDoc, _ := goquery.NewDocumentFromReader(bytes.NewReader(body))
				outcomes <- pageOutcome{url: page.URL, emails: ExtractAll(body, pageDoc)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, page := range pages {
			select {
			case <-budgetCtx.Done():
				return
			case jobs <- page:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for outcome := range outcomes {
		if outcome.err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", outcome.url, outcome.err))
			continue
		}
		result.PagesVisited++
		result.Visited = append(result.Visited, outcome.url)
		allEmails = append(allEmails, outcome.emails...)
	}

	result.Emails = OrderForOutput(allEmails, hostOf(websiteURL))
	return result
}

// fetchWithRetry retries a GET with the Polliog pipeline's exponential
// backoff schedule (2s/4s/8s), making at most maxRetries extra attempts
// (FetchCrawl passes len(fetchBackoffs) for the homepage, 1 for priority pages).
func fetchWithRetry(ctx context.Context, client *http.Client, url string, maxRetries int) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := fetchBackoffs[0]
			if attempt-1 < len(fetchBackoffs) {
				backoff = fetchBackoffs[attempt-1]
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, err := fetchPage(ctx, client, url)
		if err == nil {
			return body, nil
		}
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && statusErr.status < 500 {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// httpStatusError carries a non-2xx response status so fetchWithRetry can
// tell a 4xx client error (not retried) from a 5xx/network failure.
type httpStatusError struct {
	status int
	url    string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.status, e.url)
}

func fetchPage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", fetchAcceptHeader)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &httpStatusError{status: resp.StatusCode, url: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}
	return body, nil
}
