// Package reviewfilter implements the Review Filter (spec.md §4's Review
// Filter component): extracting reviews from a rendered detail page and
// keeping only those inside a requested time range. Grounded on the shape
// of the teacher's gmaps.Review struct and parseReviews in
// gmaps/entry.go, reimplemented as a DOM read since this module extracts
// from accessible-label markup rather than the teacher's
// window.APP_INITIALIZATION_STATE JSON array protocol.
package reviewfilter

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Review mirrors the teacher's gmaps.Review fields (Name, Rating,
// Description, Images, When), renamed to match this module's domain and
// extended with a parsed PostedAt.
type Review struct {
	Author      string
	Rating      int
	Text        string
	Images      []string
	RawWhen     string
	PostedAt    time.Time
	HasPostedAt bool
}

const reviewCardSelector = "div[data-review-id], div[aria-label][role=listitem]"

// ExtractReviews walks a detail page's review section and returns every
// review card it can parse. Missing ratings/dates are tolerated; a review
// with no parseable date still appears in the list with HasPostedAt=false.
func ExtractReviews(doc *goquery.Document) []Review {
	var out []Review

	doc.Find(reviewCardSelector).Each(func(_ int, s *goquery.Selection) {
		author := strings.TrimSpace(firstNonEmpty(
			s.Find("[data-review-author]").Text(),
			s.Find("div.d4r55, div[class*=author]").First().Text(),
		))

		rating, _ := parseStarRating(s)
		text := strings.TrimSpace(s.Find("span[data-expandable-section], span.wiI7pd").First().Text())
		rawWhen := strings.TrimSpace(s.Find("span.rsqaWe, span[class*=date]").First().Text())

		var images []string
		s.Find("button[data-photo-index] img, img[data-review-photo]").Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok && src != "" {
				images = append(images, src)
			}
		})

		if author == "" && text == "" && rawWhen == "" {
			return
		}

		postedAt, ok := parseRelativeTime(rawWhen, time.Now())
		out = append(out, Review{
			Author:      author,
			Rating:      rating,
			Text:        text,
			Images:      images,
			RawWhen:     rawWhen,
			PostedAt:    postedAt,
			HasPostedAt: ok,
		})
	})

	return out
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

// parseStarRating reads the first integer in the review card's accessible
// rating label (e.g. "Rated 4 out of 5"). With no such label it returns
// ok=false; star glyphs are not counted.
func parseStarRating(s *goquery.Selection) (int, bool) {
	label := s.Find("[aria-label*=Rated], [aria-label*=stars]").First().AttrOr("aria-label", "")
	if n, ok := firstInt(label); ok {
		return n, true
	}
	return 0, false
}

func firstInt(s string) (int, bool) {
	var digits strings.Builder
	started := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			started = true
			continue
		}
		if started {
			break
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, false
	}
	return n, true
}
