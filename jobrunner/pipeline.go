package jobrunner

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/leadgrid/leadgrid/emailharvest"
	"github.com/leadgrid/leadgrid/emailverify"
	"github.com/leadgrid/leadgrid/reviewfilter"
)

// EmailHarvestMode selects between the Email Harvester's two crawl paths
// (spec.md §4.5).
type EmailHarvestMode int

const (
	EmailHarvestRender EmailHarvestMode = iota // direct headless-browser crawl
	EmailHarvestFetch                          // plain HTTP GET crawl, no rendering
)

// runEmailPipeline harvests and, if requested, verifies emails for biz's
// website, applying the Email Harvester's own concurrency limiter so email
// pages don't starve detail-extraction pages under high worker counts
// (spec.md §5).
func (r *Runner) runEmailPipeline(ctx context.Context, p Params, rec *Record, log zerolog.Logger) {
	if !p.IsExtractEmail || rec.Website == "" {
		return
	}

	if r.EmailSem != nil {
		if err := r.EmailSem.Acquire(ctx, 1); err != nil {
			return
		}
		defer r.EmailSem.Release(1)
	}

	var harvested []string
	switch r.EmailMode {
	case EmailHarvestFetch:
		opts := emailharvest.DefaultFetchOptions()
		if r.EmailTimeoutMS > 0 {
			opts.Budget = time.Duration(r.EmailTimeoutMS) * time.Millisecond
		}
		if r.EmailPagesMax > 0 {
			opts.MaxPriorityPages = r.EmailPagesMax
		}
		if r.EmailAPITimeout > 0 {
			opts.APITimeout = r.EmailAPITimeout
		}
		res := emailharvest.FetchCrawl(ctx, rec.Website, opts)
		harvested = res.Emails
	default:
		opts := emailharvest.DefaultRenderOptions()
		if r.EmailTimeoutMS > 0 {
			opts.Budget = time.Duration(r.EmailTimeoutMS) * time.Millisecond
		}
		if r.EmailPagesMax > 0 {
			opts.MaxPriorityPages = r.EmailPagesMax
		}
		res := emailharvest.RenderCrawl(ctx, r.Pool, rec.Website, log, opts)
		harvested = res.Emails
	}

	sanitized := emailharvest.Sanitize(harvested)
	ordered := emailharvest.OrderForOutput(sanitized, siteDomain(rec.Website))
	rec.Emails = ordered

	if !p.IsValidateEmail || len(ordered) == 0 {
		rec.EmailStatus = placeholderStatuses(len(ordered), EmailUnverified)
		rec.EmailVerification = EmailVerification{Mode: VerificationUnverified}
		return
	}

	r.runEmailVerification(ctx, rec)
}

func (r *Runner) runEmailVerification(ctx context.Context, rec *Record) {
	statuses := make([]EmailStatus, len(rec.Emails))
	details := make([]emailverify.Result, 0, len(rec.Emails))
	mode := VerificationVerified

	for i, addr := range rec.Emails {
		result := emailverify.Verify(ctx, r.Resolver, addr, r.VerifyConfig)
		details = append(details, result)

		switch result.Status {
		case emailverify.StatusDeliverable:
			statuses[i] = EmailDeliverable
		case emailverify.StatusRisky:
			statuses[i] = EmailRisky
		case emailverify.StatusUndeliverable:
			statuses[i] = EmailUndeliverable
		default:
			statuses[i] = EmailUnknown
		}
		if result.Mode == emailverify.ModeFallback {
			mode = VerificationFallback
		}
	}

	// Fallback mode strips emails per spec.md §4.9: "if the fallback flag is
	// on, strip emails and mark mode=fallback".
	if mode == VerificationFallback {
		rec.Emails = nil
		statuses = nil
	}

	rec.EmailStatus = statuses
	rec.EmailVerification = EmailVerification{Mode: mode, Details: details}
}

func placeholderStatuses(n int, status EmailStatus) []EmailStatus {
	if n == 0 {
		return nil
	}
	out := make([]EmailStatus, n)
	for i := range out {
		out[i] = status
	}
	return out
}

func siteDomain(website string) string {
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// runReviewPipeline extracts and time-filters reviews from the detail
// page's already-rendered content when the job requested a review time
// range (spec.md §4.8 Review Filter, an optional component).
func runReviewPipeline(content string, rec *Record, since, until time.Time) {
	if since.IsZero() && until.IsZero() {
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return
	}

	reviews := reviewfilter.ExtractReviews(doc)
	filtered := reviewfilter.Apply(reviews, reviewfilter.TimeRange{Since: since, Until: until})

	rec.FilteredReviews = filtered
	rec.FilteredReviewCount = len(filtered)
	rec.HasFilteredReviews = true
}
