// Package scrape implements the DOM-driven stages of the pipeline: the
// Auto-Scroller, Listing Harvester, and Detail Extractor (spec.md
// §4.2-§4.4). All three are grounded on the navigation/evaluation patterns
// of the teacher's gmaps.GmapJob and gmaps.PlaceJob, rewritten against
// playwright-community/playwright-go directly and against accessible-label
// DOM extraction rather than the teacher's Google-internal JSON-array reads.
package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"
)

// ScrollReason names why the Auto-Scroller stopped.
type ScrollReason string

const (
	ScrollContentLoaded  ScrollReason = "content_loaded"
	ScrollMaxAttempts    ScrollReason = "max_attempts"
	ScrollTimeout        ScrollReason = "timeout"
	ScrollWrapperNotFound ScrollReason = "wrapper_not_found"
	ScrollError          ScrollReason = "error"
)

// ScrollResult is the Auto-Scroller's contract (spec.md §4.2). Never
// constructed with an error — the scroller never throws, callers proceed
// with whatever listings are already visible.
type ScrollResult struct {
	Success        bool
	Reason         ScrollReason
	ScrollAttempts int
}

var scrollSelectorCandidates = []string{
	"div[role='feed']",
	"div[role='region']",
	"div[aria-label='Results']",
	"div[jscontroller][role='feed']",
}

const (
	scrollBaseDelay   = 300 * time.Millisecond
	scrollMaxDelay    = 2 * time.Second
	scrollMaxNoChange = 3
	scrollMaxAttempts = 40
	scrollBudget      = 30 * time.Second
)

// AutoScroll repeatedly advances the result feed until its height stops
// growing across three consecutive probes, a maximum attempt count is
// reached, or the 30s wall-clock budget fires.
func AutoScroll(ctx context.Context, page playwright.Page) ScrollResult {
	deadline := time.Now().Add(scrollBudget)
	ctx, cancel := context.WithTimeout(ctx, scrollBudget)
	defer cancel()

	var currentHeight int64
	consecutiveNoChange := 0

	for attempt := 1; attempt <= scrollMaxAttempts; attempt++ {
		if time.Now().After(deadline) {
			return ScrollResult{Success: true, Reason: ScrollTimeout, ScrollAttempts: attempt - 1}
		}
		select {
		case <-ctx.Done():
			return ScrollResult{Success: true, Reason: ScrollTimeout, ScrollAttempts: attempt - 1}
		default:
		}

		delay := scrollBaseDelay * time.Duration(attempt)
		if delay > scrollMaxDelay {
			delay = scrollMaxDelay
		}

		height, used, viewportFallback, err := evaluateScrollStep(page, delay)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("scroll_evaluate_error")
			if attempt >= 2 {
				return ScrollResult{Success: false, Reason: ScrollError, ScrollAttempts: attempt}
			}
			continue
		}

		if used == "" && !viewportFallback {
			return ScrollResult{Success: false, Reason: ScrollWrapperNotFound, ScrollAttempts: attempt}
		}

		switch {
		case height <= 0, height == currentHeight:
			consecutiveNoChange++
		default:
			consecutiveNoChange = 0
			currentHeight = height
		}

		if consecutiveNoChange >= scrollMaxNoChange {
			return ScrollResult{Success: true, Reason: ScrollContentLoaded, ScrollAttempts: attempt}
		}
	}

	return ScrollResult{Success: true, Reason: ScrollMaxAttempts, ScrollAttempts: scrollMaxAttempts}
}

func evaluateScrollStep(page playwright.Page, delay time.Duration) (height int64, usedSelector string, viewport bool, err error) {
	var sb strings.Builder
	sb.WriteString("[")
	for i, s := range scrollSelectorCandidates {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "%q", s)
	}
	sb.WriteString("]")

	js := fmt.Sprintf(`async () => {
		const selectors = %s;
		let el = null, used = null;
		for (const s of selectors) {
			el = document.querySelector(s);
			if (el) { used = s; break; }
		}
		if (!el) {
			window.scrollBy(0, window.innerHeight);
			await new Promise(r => setTimeout(r, %d));
			return { used: null, height: document.documentElement.scrollHeight, viewport: true };
		}
		el.scrollTop = el.scrollHeight;
		await new Promise(r => setTimeout(r, %d));
		return { used: used, height: el.scrollHeight, viewport: false };
	}`, sb.String(), delay.Milliseconds(), delay.Milliseconds())

	res, evalErr := page.Evaluate(js)
	if evalErr != nil {
		return 0, "", false, evalErr
	}

	m, ok := res.(map[string]interface{})
	if !ok {
		return 0, "", false, nil
	}
	if u, ok := m["used"].(string); ok {
		usedSelector = u
	}
	if vp, ok := m["viewport"].(bool); ok {
		viewport = vp
	}
	switch h := m["height"].(type) {
	case float64:
		height = int64(h)
	case int64:
		height = h
	case string:
		if hv, convErr := strconv.ParseInt(h, 10, 64); convErr == nil {
			height = hv
		}
	}
	return height, usedSelector, viewport, nil
}
