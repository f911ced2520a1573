package jobrunner

import (
	"testing"
	"time"
)

func TestPlaceholderStatusesFillsRequestedStatus(t *testing.T) {
	got := placeholderStatuses(3, EmailUnverified)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for _, s := range got {
		if s != EmailUnverified {
			t.Errorf("expected EmailUnverified, got %q", s)
		}
	}
	if placeholderStatuses(0, EmailUnverified) != nil {
		t.Errorf("expected nil for zero-length request")
	}
}

func TestRunReviewPipelineNoopWithoutTimeRange(t *testing.T) {
	rec := Record{}
	runReviewPipeline(`<html><body></body></html>`, &rec, time.Time{}, time.Time{})
	if rec.HasFilteredReviews {
		t.Errorf("expected no review filtering without a requested time range")
	}
}

func TestRunReviewPipelineSetsHasFilteredReviewsWhenRangeRequested(t *testing.T) {
	rec := Record{}
	html := `<html><body>
		<div data-review-id="1" role="listitem">
			<span class="wiI7pd">great place</span>
			<span class="rsqaWe">2 months ago</span>
		</div>
	</body></html>`
	runReviewPipeline(html, &rec, time.Now().AddDate(-1, 0, 0), time.Time{})
	if !rec.HasFilteredReviews {
		t.Fatalf("expected HasFilteredReviews once a time range is requested")
	}
	if rec.FilteredReviewCount != 1 {
		t.Fatalf("expected 1 review surviving the range, got %d", rec.FilteredReviewCount)
	}
}
