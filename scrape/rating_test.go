package scrape

import "testing"

func TestParseRatingCanonical(t *testing.T) {
	cases := []struct {
		label string
		want  float64
		ok    bool
	}{
		{"4.5 stars", 4.5, true},
		{"4,5 Sterne", 4.5, true},
		{"5 stars out of 5", 5, true},
		{"", 0, false},
		{"no rating yet", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseRating(tc.label)
		if ok != tc.ok {
			t.Errorf("ParseRating(%q) ok = %v, want %v", tc.label, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseRating(%q) = %v, want %v", tc.label, got, tc.want)
		}
	}
}

func TestParseReviewCount(t *testing.T) {
	cases := []struct {
		label string
		want  int
		ok    bool
	}{
		{"123 reviews", 123, true},
		{"(1,234)", 1234, true},
		{"1 review", 1, true},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseReviewCount(tc.label)
		if ok != tc.ok {
			t.Errorf("ParseReviewCount(%q) ok = %v, want %v", tc.label, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseReviewCount(%q) = %v, want %v", tc.label, got, tc.want)
		}
	}
}

func TestRatingFilterMatches(t *testing.T) {
	cases := []struct {
		f     RatingFilter
		value float64
		want  bool
	}{
		{RatingFilter{"gt", 4.0}, 4.5, true},
		{RatingFilter{"gt", 4.0}, 4.0, false},
		{RatingFilter{"gte", 4.0}, 4.0, true},
		{RatingFilter{"lt", 3.0}, 2.9, true},
		{RatingFilter{"lte", 3.0}, 3.0, true},
	}
	for _, tc := range cases {
		if got := tc.f.Matches(tc.value); got != tc.want {
			t.Errorf("%+v.Matches(%v) = %v, want %v", tc.f, tc.value, got, tc.want)
		}
	}
}
