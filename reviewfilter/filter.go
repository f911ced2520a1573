package reviewfilter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeRange bounds review PostedAt timestamps inclusively on both ends; a
// zero Since or Until means that side is unbounded.
type TimeRange struct {
	Since time.Time
	Until time.Time
}

// relativeUnitRe matches mapping-service review timestamps of the form
// "a year ago", "2 months ago", "3 weeks ago", "a day ago"; "yesterday",
// "today" and "just now" are handled separately in parseRelativeTime.
var relativeUnitRe = regexp.MustCompile(`(?i)^(a|an|\d+)\s+(year|month|week|day|hour|minute)s?\s+ago$`)

// parseRelativeTime converts a review's displayed "when" text into an
// absolute timestamp relative to now. Returns ok=false when the text
// doesn't match a recognized relative-time shape.
func parseRelativeTime(raw string, now time.Time) (time.Time, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return time.Time{}, false
	}

	if text == "yesterday" {
		return now.AddDate(0, 0, -1), true
	}
	if text == "today" || text == "just now" {
		return now, true
	}

	m := relativeUnitRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}

	count := 1
	if n, err := strconv.Atoi(m[1]); err == nil {
		count = n
	}

	switch m[2] {
	case "year":
		return now.AddDate(-count, 0, 0), true
	case "month":
		return now.AddDate(0, -count, 0), true
	case "week":
		return now.AddDate(0, 0, -7*count), true
	case "day":
		return now.AddDate(0, 0, -count), true
	case "hour":
		return now.Add(-time.Duration(count) * time.Hour), true
	case "minute":
		return now.Add(-time.Duration(count) * time.Minute), true
	}
	return time.Time{}, false
}

// Apply keeps only reviews whose PostedAt falls within tr (spec.md's
// Review Filter). A review with no parseable date is dropped, mirroring
// the Listing Harvester's rule that an item missing the filtered
// attribute is kept only when the filter itself is absent — here the
// filter is always present by construction (Apply is only called when
// the job requested a review time range).
func Apply(reviews []Review, tr TimeRange) []Review {
	var out []Review
	for _, r := range reviews {
		if !r.HasPostedAt {
			continue
		}
		if !tr.Since.IsZero() && r.PostedAt.Before(tr.Since) {
			continue
		}
		if !tr.Until.IsZero() && r.PostedAt.After(tr.Until) {
			continue
		}
		out = append(out, r)
	}
	return out
}
