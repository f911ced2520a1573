// Package exportcsv renders jobrunner.Record rows to CSV — the one piece of
// spec.md §1's out-of-scope "CSV export formatting" this module still owns:
// flattening a Record's nested fields (emails, filtered reviews) into flat
// columns. Grounded on the teacher's writers/csvrows.Writer, which streams
// *gmaps.Entry/[]*gmaps.Entry off a scrapemate.Result channel into an
// encoding/csv.Writer, writing the header row exactly once.
package exportcsv

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/leadgrid/leadgrid/jobrunner"
	"github.com/leadgrid/leadgrid/reviewfilter"
)

// maxFlattenedReviews bounds how many filtered reviews get their own
// review_N_* column triplet; additional reviews are dropped from the export
// but still counted in reviews_count.
const maxFlattenedReviews = 3

// Writer streams jobrunner.Record values to CSV, writing the header row
// once on the first Write call. Grounded on writers/csvrows.Writer's
// wroteHeader-guarded single-header-write pattern.
type Writer struct {
	cw          *csv.Writer
	wroteHeader bool
}

// New wraps an already-constructed encoding/csv.Writer.
func New(cw *csv.Writer) *Writer {
	return &Writer{cw: cw}
}

// Run drains records from in until it closes or ctx is cancelled, matching
// the teacher's Writer.Run channel-draining shape.
func (w *Writer) Run(ctx context.Context, in <-chan jobrunner.Record) error {
	defer w.cw.Flush()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-in:
			if !ok {
				return nil
			}
			if err := w.WriteRecord(rec); err != nil {
				return err
			}
		}
	}
}

// WriteRecord writes a single row, writing the header first if this is the
// first call.
func (w *Writer) WriteRecord(rec jobrunner.Record) error {
	if !w.wroteHeader {
		if err := w.cw.Write(Headers()); err != nil {
			return fmt.Errorf("exportcsv: write header: %w", err)
		}
		w.wroteHeader = true
	}
	if err := w.cw.Write(Row(rec)); err != nil {
		return fmt.Errorf("exportcsv: write row: %w", err)
	}
	return nil
}

// Headers returns the fixed column order. Grounded on gmaps.Entry.CsvHeaders'
// business-fields-then-derived-fields ordering, extended with this module's
// own email/review columns (spec.md §3's Business record field list).
func Headers() []string {
	headers := []string{
		"name",
		"category",
		"rating",
		"review_count",
		"rating_count",
		"phone",
		"address",
		"website",
		"latitude",
		"longitude",
		"search_term",
		"search_type",
		"search_location",
		"emails",
		"reviews_count",
	}
	for i := 1; i <= maxFlattenedReviews; i++ {
		headers = append(headers,
			fmt.Sprintf("review_%d_text", i),
			fmt.Sprintf("review_%d_rating", i),
			fmt.Sprintf("review_%d_date", i),
		)
	}
	return headers
}

// Row flattens one Record into Headers' column order. email_verification
// detail is deliberately omitted (spec.md §3 marks it as internal-only
// metadata, not part of the exported row).
func Row(rec jobrunner.Record) []string {
	row := []string{
		rec.Name,
		rec.Category,
		stringifyFloat(rec.Rating, rec.HasRating),
		stringifyInt(rec.ReviewCount, rec.HasReviews),
		rec.RatingCount,
		rec.Phone,
		rec.Address,
		rec.Website,
		stringifyFloat(rec.Latitude, rec.HasCoords),
		stringifyFloat(rec.Longitude, rec.HasCoords),
		rec.SearchTerm,
		rec.SearchType,
		rec.SearchLocation,
		strings.Join(rec.Emails, ";"),
		strconv.Itoa(rec.FilteredReviewCount),
	}
	for i := 0; i < maxFlattenedReviews; i++ {
		if i < len(rec.FilteredReviews) {
			rv := rec.FilteredReviews[i]
			row = append(row, rv.Text, strconv.Itoa(rv.Rating), reviewDate(rv))
		} else {
			row = append(row, "", "", "")
		}
	}
	return row
}

func stringifyFloat(v float64, present bool) string {
	if !present {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stringifyInt(v int, present bool) string {
	if !present {
		return ""
	}
	return strconv.Itoa(v)
}

// reviewDate prefers the parsed PostedAt timestamp; falls back to the raw
// relative-time string reviewfilter kept for unparseable review dates.
func reviewDate(rv reviewfilter.Review) string {
	if rv.HasPostedAt {
		return rv.PostedAt.Format("2006-01-02")
	}
	return rv.RawWhen
}
