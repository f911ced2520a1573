package jobrunner

import (
	"context"
	"math/rand"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/leadgrid/leadgrid/browserpool"
	"github.com/leadgrid/leadgrid/deduper"
	"github.com/leadgrid/leadgrid/emailverify"
	"github.com/leadgrid/leadgrid/geocatalog"
	"github.com/leadgrid/leadgrid/pkg/errs"
	"github.com/leadgrid/leadgrid/scrape"
)

const (
	detailURLTimeout    = 25 * time.Second
	detailRetryMax      = 2
	detailRetryBaseWait = 500 * time.Millisecond
)

// ProgressFunc receives every progress update the runner emits (spec.md
// §4.7 "Progress reporting"). Implementations must not block meaningfully;
// the progressbus package adapts this into the outbound progress-bus RPC.
type ProgressFunc func(Progress)

// CancelFunc reports whether the job's cancellation flag has been set by a
// user-initiated delete. Polled at every suspension point (spec.md §4.7
// "Cancellation").
type CancelFunc func() bool

// Runner is the Job Runner orchestrator. One Runner instance is shared
// across jobs; it holds no per-job state itself.
type Runner struct {
	Catalog *geocatalog.Catalog
	Pool    *browserpool.Pool
	Log     zerolog.Logger
	Workers int // SCRAPER_CONCURRENCY

	// MinPopulationFloor is the population cutoff ExpandScope's phased
	// traversal uses to bucket a city as Unknown instead of Small.
	MinPopulationFloor int

	// Email Harvester / Verifier wiring (spec.md §4.5, §4.6, §5).
	EmailMode       EmailHarvestMode
	EmailSem        *semaphore.Weighted // EMAIL_API_CONCURRENCY: concurrent email harvests
	EmailPagesMax   int                 // EMAIL_PAGES_MAX: priority pages per crawl
	EmailTimeoutMS  int                 // EMAIL_TIMEOUT_MS: overall crawl budget
	EmailAPITimeout time.Duration       // EMAIL_API_TIMEOUT: fetch-driven crawler's HTTP client timeout
	Resolver        *net.Resolver
	VerifyConfig    emailverify.Config

	// NewDedup builds the Deduper a single Run call uses to skip a detail
	// URL already extracted earlier in the same run (phased traversal can
	// resurface a listing from a neighboring city). Defaults to a fresh
	// in-memory Deduper per run when nil; set to return a
	// deduper.NewPersistentSQLite-backed instance for cross-job dedup.
	NewDedup func() deduper.Deduper
}

func (r *Runner) newDedup() deduper.Deduper {
	if r.NewDedup == nil {
		return deduper.New()
	}
	return r.NewDedup()
}

// Run executes p end to end: scope expansion, per-city search/scroll/
// harvest, the detail worker pool, progress reporting, and cancellation.
func (r *Runner) Run(ctx context.Context, p Params, progress ProgressFunc, cancelled CancelFunc) Result {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	locations, err := ExpandScope(r.Catalog, p, rng, r.MinPopulationFloor)
	if err != nil {
		return Result{Status: StatusFailed, Err: &JobError{Message: err.Error(), Timestamp: time.Now()}}
	}
	locations = dedupeLocations(locations)

	dd := r.newDedup()
	defer func() { _ = dd.Close() }()

	state := &runState{
		recordsRemaining: p.MaxRecords,
		maxRecords:       p.MaxRecords,
		progress:         progress,
		dedup:            dd,
	}

	for _, loc := range locations {
		if state.recordsRemaining <= 0 {
			break
		}
		if cancelled != nil && cancelled() {
			return r.cancel(state)
		}

		if err := r.runCity(ctx, p, loc, state, cancelled); err != nil {
			if je, ok := err.(*errs.Error); ok && je.Category == errs.CategoryJobFatal {
				return Result{
					Status:   StatusFailed,
					Records:  state.records,
					Progress: state.lastProgress(loc.searchLocation()),
					Err:      &JobError{Message: je.Error(), Timestamp: time.Now()},
				}
			}
			// city_fatal and below: log and continue with the next city
			// (spec.md §4.9 "Per-city failure").
			r.Log.Warn().Err(err).Str("location", loc.searchLocation()).Msg("city_failed")
			continue
		}
	}

	if cancelled != nil && cancelled() {
		return r.cancel(state)
	}

	if len(state.records) > p.MaxRecords {
		state.records = state.records[:p.MaxRecords]
	}

	return Result{
		Status:   StatusCompleted,
		Records:  state.records,
		Progress: state.lastProgress(""),
	}
}

func (r *Runner) cancel(state *runState) Result {
	return Result{
		Status:   StatusCancelled,
		Records:  state.records,
		Progress: state.lastProgress(""),
		Err: &JobError{
			Message:   "Job cancelled by user deletion",
			Timestamp: time.Now(),
		},
	}
}

// runState accumulates records/progress across cities under a single mutex;
// the owning worker is the only writer (spec.md §5 "Shared-resource policy").
type runState struct {
	mu               sync.Mutex
	recordsRemaining int
	maxRecords       int
	recordsCollected int
	progress         ProgressFunc
	records          []Record
	dedup            deduper.Deduper
}

func (s *runState) lastProgress(currentLocation string) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{
		Percentage:       percentOf(s.recordsCollected, s.maxRecords),
		RecordsCollected: s.recordsCollected,
		MaxRecords:       s.maxRecords,
		CurrentLocation:  currentLocation,
	}
}

func percentOf(collected, max int) int {
	if max <= 0 {
		return 0
	}
	pct := int((100*float64(collected))/float64(max) + 0.5)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// runCity drives one location: navigate the search page, scroll, harvest
// listings, then run the detail worker pool over listingsToProcess URLs
// (spec.md §4.7 "Per-city execution").
func (r *Runner) runCity(ctx context.Context, p Params, loc Location, state *runState, cancelled CancelFunc) error {
	state.mu.Lock()
	remaining := state.recordsRemaining
	state.mu.Unlock()
	if remaining <= 0 {
		return nil
	}

	log := r.Log.With().Str("location", loc.searchLocation()).Logger()

	page, err := r.Pool.AcquirePage(ctx, browserpool.DefaultPolicy())
	if err != nil {
		return err
	}
	defer r.Pool.ReleasePage(page)

	searchURL := buildSearchURL(p.Keyword, loc)
	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return errs.CityFatal("search_navigation_failed", "could not navigate to search page", err)
	}

	scrape.AutoScroll(ctx, page)

	content, err := page.Content()
	if err != nil {
		return errs.CityFatal("search_content_failed", "could not read rendered search page", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return errs.CityFatal("search_parse_failed", "could not parse rendered search page", err)
	}

	harvest := scrape.Harvest(doc, p.RatingFilter.toScrapeFilter(), p.ReviewFilter.toScrapeFilter())

	listingsToProcess := len(harvest.Listings)
	if listingsToProcess > remaining {
		listingsToProcess = remaining
	}
	if listingsToProcess == 0 {
		return nil
	}
	urls := harvest.Listings[:listingsToProcess]

	collected := r.runDetailPool(ctx, p, loc, urls, state, cancelled, log)

	state.mu.Lock()
	state.recordsRemaining -= collected
	state.mu.Unlock()

	return nil
}

// runDetailPool spawns r.Workers goroutines pulling from a shared monotonic
// index over urls, each owning one persistent acquired page. Returns the
// count of records appended to state.records from this city.
func (r *Runner) runDetailPool(ctx context.Context, p Params, loc Location, listings []scrape.Listing, state *runState, cancelled CancelFunc, log zerolog.Logger) int {
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(listings) {
		workers = len(listings)
	}

	var index int64 = -1
	var collected int64
	total := len(listings)

	group, gctx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		group.Go(func() error {
			page, err := r.Pool.AcquirePage(gctx, browserpool.DefaultPolicy())
			if err != nil {
				return nil // worker can't start; others may still make progress
			}
			defer func() { r.Pool.ReleasePage(page) }()

			for {
				if cancelled != nil && cancelled() {
					return nil
				}
				i := atomic.AddInt64(&index, 1)
				if i >= int64(total) {
					return nil
				}
				listing := listings[i]
				if !state.dedup.AddIfNotExists(gctx, listing.DetailURL) {
					continue
				}

				biz, _ := r.extractWithRetry(gctx, &page, listing.DetailURL)
				if biz == nil {
					continue
				}
				if !scrape.ApplyPostExtractionPolicy(biz, p.OnlyWithoutWebsite, p.IsExtractEmail) {
					continue
				}

				rec := newRecord(*biz, p.Keyword, loc.searchLocation())

				if content, err := page.Content(); err == nil {
					runReviewPipeline(content, &rec, p.ReviewSince, p.ReviewUntil)
				}
				r.runEmailPipeline(gctx, p, &rec, log)

				state.mu.Lock()
				state.records = append(state.records, rec)
				state.recordsCollected++
				n := state.recordsCollected
				state.mu.Unlock()
				atomic.AddInt64(&collected, 1)

				r.reportProgress(state, int(i)+1, total, loc.searchLocation(), n)
			}
		})
	}

	_ = group.Wait()
	return int(atomic.LoadInt64(&collected))
}

// reportProgress emits one progress update; runDetailPool calls it after
// every collected record. A listing that is dropped produces no update, so
// there is no separate report at each tenth of total.
func (r *Runner) reportProgress(state *runState, processed, total int, currentLocation string, recordsCollected int) {
	if state.progress == nil {
		return
	}
	state.mu.Lock()
	maxRecords := state.maxRecords
	state.mu.Unlock()

	state.progress(Progress{
		Percentage:        percentOf(recordsCollected, maxRecords),
		ProcessedListings: processed,
		TotalListings:     total,
		RecordsCollected:  recordsCollected,
		MaxRecords:        maxRecords,
		CurrentLocation:   currentLocation,
	})
}

// extractWithRetry races the Detail Extractor against a 25s timeout; on
// connection-class errors it recreates the worker's page and retries up to
// twice with linear backoff (500ms × attempt); on any other error the URL
// is dropped (spec.md §4.7, §4.9 "Detail-page extraction failure").
func (r *Runner) extractWithRetry(ctx context.Context, page **browserpool.Page, detailURL string) (biz *scrape.Business, recreated bool) {
	for attempt := 0; attempt <= detailRetryMax; attempt++ {
		detailCtx, cancel := context.WithTimeout(ctx, detailURLTimeout)
		b, err := scrape.ExtractDetail(detailCtx, *page, detailURL)
		cancel()

		if err == nil {
			return b, recreated
		}
		if !isConnectionClassError(err) {
			return nil, recreated
		}

		(*page).MarkFaulty()
		r.Pool.ReleasePage(*page)
		newPage, acquireErr := r.Pool.AcquirePage(ctx, browserpool.DefaultPolicy())
		if acquireErr != nil {
			return nil, true
		}
		*page = newPage
		recreated = true

		select {
		case <-time.After(detailRetryBaseWait * time.Duration(attempt+1)):
		case <-ctx.Done():
			return nil, recreated
		}
	}
	return nil, recreated
}

func isConnectionClassError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"target closed", "session not found", "websocket closed"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
