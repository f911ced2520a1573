package exportcsv

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/leadgrid/leadgrid/jobrunner"
	"github.com/leadgrid/leadgrid/reviewfilter"
	"github.com/leadgrid/leadgrid/scrape"
)

func TestWriteRecordWritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	w := New(csv.NewWriter(&buf))

	rec := jobrunner.Record{
		Business: scrape.Business{Name: "Cafe One"},
	}
	if err := w.WriteRecord(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteRecord(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w.cw.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows = 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != strings.Join(Headers(), ",") {
		t.Errorf("unexpected header line: %q", lines[0])
	}
}

func TestRowOmitsAbsentOptionalFields(t *testing.T) {
	rec := jobrunner.Record{
		Business: scrape.Business{Name: "No Rating Cafe"},
	}
	row := Row(rec)
	headers := Headers()
	idx := func(name string) int {
		for i, h := range headers {
			if h == name {
				return i
			}
		}
		t.Fatalf("header %q not found", name)
		return -1
	}
	if row[idx("rating")] != "" {
		t.Errorf("expected empty rating when HasRating is false, got %q", row[idx("rating")])
	}
	if row[idx("review_count")] != "" {
		t.Errorf("expected empty review_count when HasReviews is false, got %q", row[idx("review_count")])
	}
}

func TestRowJoinsEmailsAndFlattensReviews(t *testing.T) {
	postedAt := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	rec := jobrunner.Record{
		Business: scrape.Business{
			Name:      "Multi Email Cafe",
			Rating:    4.5,
			HasRating: true,
		},
		Emails: []string{"a@example.com", "b@example.com"},
		FilteredReviews: []reviewfilter.Review{
			{Text: "Great place", Rating: 5, PostedAt: postedAt, HasPostedAt: true},
		},
		FilteredReviewCount: 1,
	}
	row := Row(rec)
	headers := Headers()
	idx := func(name string) int {
		for i, h := range headers {
			if h == name {
				return i
			}
		}
		t.Fatalf("header %q not found", name)
		return -1
	}
	if row[idx("emails")] != "a@example.com;b@example.com" {
		t.Errorf("unexpected emails column: %q", row[idx("emails")])
	}
	if row[idx("review_1_text")] != "Great place" {
		t.Errorf("unexpected review_1_text: %q", row[idx("review_1_text")])
	}
	if row[idx("review_1_rating")] != "5" {
		t.Errorf("unexpected review_1_rating: %q", row[idx("review_1_rating")])
	}
	if row[idx("review_1_date")] != "2026-01-15" {
		t.Errorf("unexpected review_1_date: %q", row[idx("review_1_date")])
	}
	if row[idx("review_2_text")] != "" {
		t.Errorf("expected empty second review slot, got %q", row[idx("review_2_text")])
	}
}
