// Package browserpool owns the single long-lived headless browser session
// that every scrape worker shares. It is grounded on the navigation/cookie
// handling in the teacher's gmaps.GmapJob.BrowserActions, reimplemented
// directly against playwright-community/playwright-go (the teacher reaches
// it through the scrapemate framework, which is not vendored here).
package browserpool

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/semaphore"

	"github.com/leadgrid/leadgrid/pkg/errs"
	"github.com/leadgrid/leadgrid/pkg/resilience"
	"github.com/leadgrid/leadgrid/pkg/telemetry"
	"github.com/rs/zerolog/log"
)

// State is the browser pool's health state machine (spec.md §4.8):
// disconnected → connecting → connected → degraded → connected|disconnected.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "disconnected"
	}
}

// InterceptPolicy controls which resource types acquirePage blocks.
// The default Listing/Detail policy blocks image|stylesheet|font|media;
// the Email Harvester's render-driven crawler admits stylesheet (spec.md §4.1).
type InterceptPolicy struct {
	BlockImages       bool
	BlockStylesheets  bool
	BlockFonts        bool
	BlockMedia        bool
	BlockThirdParty   bool
	NavigationTimeout time.Duration
}

// DefaultPolicy is the Listing/Detail Extractor policy. Third-party blocking
// stays off here: the mapping service itself serves tiles/scripts from
// several of its own subdomains that would otherwise be misclassified.
func DefaultPolicy() InterceptPolicy {
	return InterceptPolicy{
		BlockImages:       true,
		BlockStylesheets:  true,
		BlockFonts:        true,
		BlockMedia:        true,
		NavigationTimeout: 10 * time.Second,
	}
}

// EmailHarvestPolicy admits stylesheets (some sites hide contact info behind
// CSS-driven reveal-on-hover) but still blocks images/fonts/media. It also
// blocks third-party scripts/XHR/fetch (spec.md §4.1): harvested pages are
// arbitrary business websites, so trimming their ad/tracker calls speeds up
// the crawl without risking the page's own content.
func EmailHarvestPolicy() InterceptPolicy {
	p := DefaultPolicy()
	p.BlockStylesheets = false
	p.BlockThirdParty = true
	return p
}

// Page is an acquired render page with its liveness flag. Owned exclusively
// by one worker until Release is called.
type Page struct {
	playwright.Page
	faulty bool
}

// MarkFaulty flags the page as known-bad. Workers call this after seeing a
// protocol-level error; ReleasePage closes every page, marked or not.
func (p *Page) MarkFaulty() { p.faulty = true }

// Pool owns at most one active browser session and gates page acquisition
// behind a single process-wide semaphore (spec.md §9 Open Question, resolved
// as a single global ceiling sized by LEADGRID_RENDERER_CAPACITY).
type Pool struct {
	wsEndpoint string
	capacity   int64

	mu        sync.Mutex
	pw        *playwright.Playwright
	browser   playwright.Browser
	state     State
	pagesOpen int

	globalSem *semaphore.Weighted
	breaker   *resilience.CircuitBreaker
	metrics   *telemetry.Metrics
}

// New constructs a Pool. Connect must be called before AcquirePage.
func New(wsEndpoint string, capacity int, metrics *telemetry.Metrics) *Pool {
	return &Pool{
		wsEndpoint: wsEndpoint,
		capacity:   int64(capacity),
		state:      StateDisconnected,
		globalSem:  semaphore.NewWeighted(int64(capacity)),
		breaker: resilience.NewCircuitBreaker(resilience.Config{
			Name:         "browserpool.connect",
			MaxFailures:  3,
			ResetTimeout: 30 * time.Second,
		}),
		metrics: metrics,
	}
}

// Connect establishes the shared browser session, either via a remote
// rendering endpoint (when wsEndpoint is set) or a local Chromium launch.
func (p *Pool) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.connectLocked()
}

func (p *Pool) connectLocked() error {
	p.setStateLocked(StateConnecting)

	err := p.breaker.Execute(context.Background(), func() error {
		pw, err := playwright.Run()
		if err != nil {
			return errs.Infrastructure("playwright_start_failed", "could not start playwright driver", err)
		}

		var browser playwright.Browser
		if p.wsEndpoint != "" {
			browser, err = pw.Chromium.ConnectOverCDP(p.wsEndpoint)
		} else {
			browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
				Headless: playwright.Bool(true),
			})
		}
		if err != nil {
			_ = pw.Stop()
			return errs.Transient("browser_connect_failed", "could not connect to browser session", err)
		}

		p.pw = pw
		p.browser = browser
		return nil
	})

	if err != nil {
		p.setStateLocked(StateDisconnected)
		return err
	}

	p.setStateLocked(StateConnected)
	return nil
}

func (p *Pool) setStateLocked(s State) {
	p.state = s
	if p.metrics != nil {
		p.metrics.BrowserPoolState.Set(telemetry.BrowserPoolStateValue(
			s == StateDisconnected, s == StateConnecting, s == StateConnected, s == StateDegraded,
		))
	}
}

// Health returns the current pool state.
func (p *Pool) Health() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// AcquirePage acquires the global page-count semaphore then hands back a
// page configured per policy. On protocol-level errors (dropped socket,
// "target closed", "session not found", "frame detached", "navigation
// timeout") it reconstructs the session up to three times with a fixed 2s
// backoff before returning ErrBrowserUnavailable (spec.md §4.1).
func (p *Pool) AcquirePage(ctx context.Context, policy InterceptPolicy) (*Page, error) {
	if err := p.globalSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("browserpool: acquiring global semaphore: %w", err)
	}

	page, err := p.newPageWithRetry(ctx, policy)
	if err != nil {
		p.globalSem.Release(1)
		return nil, err
	}

	p.mu.Lock()
	p.pagesOpen++
	if p.metrics != nil {
		p.metrics.BrowserPagesInUse.Set(float64(p.pagesOpen))
	}
	p.mu.Unlock()

	return page, nil
}

func (p *Pool) newPageWithRetry(ctx context.Context, policy InterceptPolicy) (*Page, error) {
	retryer := resilience.FixedBackoff(3, 2*time.Second)

	var out *Page
	err := retryer.Execute(ctx, func() error {
		p.mu.Lock()
		browser := p.browser
		p.mu.Unlock()

		if browser == nil {
			if rerr := p.reconnect(ctx); rerr != nil {
				return rerr
			}
			p.mu.Lock()
			browser = p.browser
			p.mu.Unlock()
		}

		raw, err := browser.NewPage()
		if err != nil {
			if !isProtocolError(err) {
				return fmt.Errorf("browserpool: new page: %w", err)
			}
			if p.metrics != nil {
				p.metrics.BrowserReconnects.Inc()
			}
			if rerr := p.reconnect(ctx); rerr != nil {
				return rerr
			}
			return fmt.Errorf("browserpool: new page before reconnect: %w", err)
		}

		raw.SetDefaultNavigationTimeout(float64(policy.NavigationTimeout.Milliseconds()))
		if err := applyInterception(raw, policy); err != nil {
			_ = raw.Close()
			return fmt.Errorf("browserpool: apply interception: %w", err)
		}

		out = &Page{Page: raw}
		return nil
	})

	if err != nil {
		p.mu.Lock()
		p.setStateLocked(StateDegraded)
		p.mu.Unlock()
		return nil, errs.JobFatal("browser_unavailable", "browser pool could not reconnect", errs.ErrBrowserUnavailable)
	}

	return out, nil
}

func (p *Pool) reconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		_ = p.browser.Close()
		p.browser = nil
	}

	log.Warn().Msg("browser pool reconnecting after protocol-level error")
	return p.connectLocked()
}

// ReleasePage returns a page's resources. Pages are never recycled between
// jobs (spec.md §4.1) — a released page is always closed.
func (p *Pool) ReleasePage(page *Page) {
	if page != nil {
		_ = page.Close()
	}

	p.mu.Lock()
	if p.pagesOpen > 0 {
		p.pagesOpen--
	}
	if p.metrics != nil {
		p.metrics.BrowserPagesInUse.Set(float64(p.pagesOpen))
	}
	p.mu.Unlock()

	p.globalSem.Release(1)
}

// Shutdown closes the browser and is idempotent.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			firstErr = err
		}
		p.browser = nil
	}
	if p.pw != nil {
		if err := p.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.pw = nil
	}
	p.setStateLocked(StateDisconnected)
	return firstErr
}

func applyInterception(page playwright.Page, policy InterceptPolicy) error {
	return page.Route("**/*", func(route playwright.Route) {
		req := route.Request()
		rt := req.ResourceType()
		switch {
		case policy.BlockImages && rt == "image":
			_ = route.Abort("")
			return
		case policy.BlockStylesheets && rt == "stylesheet":
			_ = route.Abort("")
			return
		case policy.BlockFonts && rt == "font":
			_ = route.Abort("")
			return
		case policy.BlockMedia && rt == "media":
			_ = route.Abort("")
			return
		case policy.BlockThirdParty && isSubResource(rt) && isThirdPartyRequest(req):
			_ = route.Abort("")
			return
		}
		_ = route.Continue()
	})
}

// isSubResource restricts third-party blocking to the resource types spec.md
// §4.1 names: scripts, XHR, and fetch calls. Documents/frames navigate
// normally even when cross-origin.
func isSubResource(resourceType string) bool {
	switch resourceType {
	case "script", "xhr", "fetch":
		return true
	default:
		return false
	}
}

// isThirdPartyRequest reports whether req's host differs from the host of
// the frame that issued it.
func isThirdPartyRequest(req playwright.Request) bool {
	frame := req.Frame()
	if frame == nil {
		return false
	}
	reqHost, frameHost := registrableHost(req.URL()), registrableHost(frame.URL())
	if reqHost == "" || frameHost == "" {
		return false
	}
	return reqHost != frameHost
}

func registrableHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func isProtocolError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"target closed", "session not found", "frame detached",
		"navigation timeout", "socket", "disconnected", "websocket closed",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
