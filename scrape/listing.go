package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RatingFilter encodes the operator-based rating/review-count filter of
// spec.md §3 ("optional rating filter {op ∈ {gt,gte,lt,lte}, value}").
type RatingFilter struct {
	Op    string // "gt", "gte", "lt", "lte"
	Value float64
}

// Matches reports whether value satisfies the filter.
func (f RatingFilter) Matches(value float64) bool {
	switch f.Op {
	case "gt":
		return value > f.Value
	case "gte":
		return value >= f.Value
	case "lt":
		return value < f.Value
	case "lte":
		return value <= f.Value
	default:
		return true
	}
}

// Listing is one card's worth of pre-filter data extracted from a rendered,
// scrolled search page.
type Listing struct {
	DetailURL   string
	Name        string
	Rating      float64
	HasRating   bool
	ReviewCount int
	HasReviews  bool
}

// HarvestResult is the Listing Harvester's contract (spec.md §4.3).
type HarvestResult struct {
	Listings       []Listing
	PreFilterCount int
}

// cardSelector is grounded on the teacher's card-iteration selector in
// gmaps.GmapJob.Process: `div[role=feed] div[jsaction]>a`.
const cardSelector = `div[role=feed] div[jsaction]>a`

// Harvest extracts every listing card from doc, then applies the rating and
// review-count filters at this stage. Items with a filterable attribute
// missing are kept only when the filter itself is absent.
func Harvest(doc *goquery.Document, ratingFilter *RatingFilter, reviewFilter *RatingFilter) HarvestResult {
	var all []Listing

	doc.Find(cardSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}

		l := Listing{DetailURL: href, Name: strings.TrimSpace(a.AttrOr("aria-label", ""))}

		card := a.Closest("div[jsaction]")
		if card.Length() == 0 {
			card = a
		}

		if ratingLabel, ok := findAriaLabelMatching(card, "star"); ok {
			if v, ok := ParseRating(ratingLabel); ok {
				l.Rating, l.HasRating = v, true
			}
		}
		if reviewLabel, ok := findAriaLabelMatching(card, "review"); ok {
			if v, ok := ParseReviewCount(reviewLabel); ok {
				l.ReviewCount, l.HasReviews = v, true
			}
		}

		all = append(all, l)
	})

	surviving := make([]Listing, 0, len(all))
	for _, l := range all {
		if ratingFilter != nil {
			if !l.HasRating || !ratingFilter.Matches(l.Rating) {
				continue
			}
		}
		if reviewFilter != nil {
			if !l.HasReviews || !reviewFilter.Matches(float64(l.ReviewCount)) {
				continue
			}
		}
		surviving = append(surviving, l)
	}

	return HarvestResult{Listings: surviving, PreFilterCount: len(all)}
}

// findAriaLabelMatching searches scope and its descendants for the first
// aria-label containing needle (case-insensitive), returning the full label.
func findAriaLabelMatching(scope *goquery.Selection, needle string) (string, bool) {
	var label string
	var found bool
	scope.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		al := s.AttrOr("aria-label", "")
		if strings.Contains(strings.ToLower(al), needle) {
			label, found = al, true
			return false
		}
		return true
	})
	if !found {
		if al := scope.AttrOr("aria-label", ""); strings.Contains(strings.ToLower(al), needle) {
			label, found = al, true
		}
	}
	return label, found
}
