package reviewfilter

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestExtractReviewsReadsAuthorRatingTextAndWhen(t *testing.T) {
	html := `<html><body>
		<div data-review-id="1" role="listitem">
			<div data-review-author>Jane Doe</div>
			<span aria-label="Rated 4 out of 5"></span>
			<span class="wiI7pd">Great service, would come back.</span>
			<span class="rsqaWe">2 months ago</span>
		</div>
	</body></html>`
	doc := mustDoc(t, html)

	reviews := ExtractReviews(doc)
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}
	r := reviews[0]
	if r.Author != "Jane Doe" {
		t.Errorf("expected author Jane Doe, got %q", r.Author)
	}
	if r.Rating != 4 {
		t.Errorf("expected rating 4, got %d", r.Rating)
	}
	if !strings.Contains(r.Text, "Great service") {
		t.Errorf("expected review text captured, got %q", r.Text)
	}
	if !r.HasPostedAt {
		t.Errorf("expected parseable relative date")
	}
}

func TestExtractReviewsSkipsEmptyCards(t *testing.T) {
	html := `<html><body><div data-review-id="1" role="listitem"></div></body></html>`
	doc := mustDoc(t, html)

	if got := ExtractReviews(doc); len(got) != 0 {
		t.Fatalf("expected empty card skipped, got %+v", got)
	}
}
