package emailharvest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/leadgrid/leadgrid/browserpool"
	"github.com/rs/zerolog"
)

// RenderCrawlOptions configures the render-driven crawler (spec.md §4.5).
type RenderCrawlOptions struct {
	Budget           time.Duration
	PerPageTimeout   time.Duration
	SettleDelay      time.Duration
	MaxPriorityPages int
}

// DefaultRenderOptions mirrors spec.md §4.5's stated defaults.
func DefaultRenderOptions() RenderCrawlOptions {
	return RenderCrawlOptions{
		Budget:           60 * time.Second,
		PerPageTimeout:   35 * time.Second,
		SettleDelay:      1 * time.Second,
		MaxPriorityPages: 5,
	}
}

// RenderCrawlResult is the render-driven crawler's output contract.
type RenderCrawlResult struct {
	Emails       []string
	PagesVisited int
	Visited      []string
	Errors       []string
}

// RenderCrawl drives a dedicated browser page through the homepage and up
// to MaxPriorityPages discovered priority pages of websiteURL, extracting
// and sanitizing email candidates from each. Grounded on the navigate-then-
// extract control flow of the teacher's gmaps.PlaceJob.BrowserActions,
// applied here to a multi-page crawl instead of a single detail page; the
// pool-readiness retry after browser closure follows browserpool's own
// FixedBackoff reconnect contract (spec.md §4.1).
func RenderCrawl(ctx context.Context, pool *browserpool.Pool, websiteURL string, log zerolog.Logger, opts RenderCrawlOptions) RenderCrawlResult {
	budgetCtx, cancel := context.WithTimeout(ctx, opts.Budget)
	defer cancel()

	result := RenderCrawlResult{}

	visitOnce := func(pageURL string) ([]string, *goquery.Document, error) {
		page, err := pool.AcquirePage(budgetCtx, browserpool.EmailHarvestPolicy())
		if err != nil {
			return nil, nil, fmt.Errorf("acquire page: %w", err)
		}
		defer pool.ReleasePage(page)

		pageCtx, pageCancel := context.WithTimeout(budgetCtx, opts.PerPageTimeout)
		defer pageCancel()

		if _, err := page.Goto(pageURL, playwright.PageGotoOptions{
			Timeout: playwright.Float(float64(opts.PerPageTimeout.Milliseconds())),
		}); err != nil {
			page.MarkFaulty()
			return nil, nil, fmt.Errorf("goto %s: %w", pageURL, err)
		}

		select {
		case <-time.After(opts.SettleDelay):
		case <-pageCtx.Done():
			return nil, nil, pageCtx.Err()
		}

		body, err := page.Content()
		if err != nil {
			return nil, nil, fmt.Errorf("content %s: %w", pageURL, err)
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", pageURL, err)
		}

		if containsBlockSignals(doc.Text()) {
			return nil, doc, fmt.Errorf("blocked content detected on %s", pageURL)
		}

		return ExtractAll([]byte(body), doc), doc, nil
	}

	run := func(pageURL string) ([]string, *goquery.Document, error) {
		emails, doc, err := visitOnce(pageURL)
		if err != nil && isFaultyBrowserError(err) {
			log.Warn().Err(err).Str("url", pageURL).Msg("render crawl retrying after pool readiness wait")
			select {
			case <-time.After(15 * time.Second):
			case <-budgetCtx.Done():
				return nil, nil, budgetCtx.Err()
			}
			emails, doc, err = visitOnce(pageURL)
		}
		return emails, doc, err
	}

	var allEmails []string
	homeEmails, homeDoc, err := run(websiteURL)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.PagesVisited++
		result.Visited = append(result.Visited, websiteURL)
		allEmails = append(allEmails, homeEmails...)
	}

	if len(homeEmails) > 0 {
		result.Emails = OrderForOutput(allEmails, hostOf(websiteURL))
		return result
	}

	if homeDoc != nil {
		pages := DiscoverPriorityPages(homeDoc, websiteURL)
		if len(pages) > opts.MaxPriorityPages {
			pages = pages[:opts.MaxPriorityPages]
		}
		for _, candidate := range pages {
			if budgetCtx.Err() != nil {
				result.Errors = append(result.Errors, "budget exhausted before visiting all priority pages")
				break
			}

			emails, _, err := run(candidate.URL)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			result.PagesVisited++
			result.Visited = append(result.Visited, candidate.URL)
			allEmails = append(allEmails, emails...)
		}
	}

	result.Emails = OrderForOutput(allEmails, hostOf(websiteURL))
	return result
}

func isFaultyBrowserError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "session not found") ||
		strings.Contains(msg, "disconnected")
}

func hostOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
