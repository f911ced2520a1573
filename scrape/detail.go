package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/leadgrid/leadgrid/geocatalog"
)

// plusCodeTolerance bounds the encode/decode round trip check; a plus code's
// own cell is far smaller than this, so anything outside it means Encode or
// Decode disagreed with itself rather than an expected precision artifact.
const plusCodeTolerance = 0.001

// Business is the canonical extracted record before email harvest/verify
// are run (spec.md §3). Emails/EmailStatus/EmailVerification are filled in
// by later pipeline stages.
type Business struct {
	Name        string
	Category    string
	Rating      float64
	HasRating   bool
	ReviewCount int
	HasReviews  bool
	Phone       string
	Address     string
	Website     string
	Latitude    float64
	Longitude   float64
	HasCoords   bool
	PlusCode    string // empty when HasCoords is false or the round-trip check fails
	DetailURL   string
}

const detailNavigationTimeout = 15 * time.Second
const detailExtractionTimeout = 10 * time.Second

// ExtractDetail navigates to detailURL and extracts the canonical business
// record from the rendered DOM, racing the DOM evaluation against a 10s
// timeout (spec.md §4.4). A failed DOM evaluation, its timeout, or ctx
// cancellation yields (nil, nil) — the listing is dropped, not retried at
// this layer. A navigation failure is returned as an error instead.
func ExtractDetail(ctx context.Context, page playwright.Page, detailURL string) (*Business, error) {
	if _, err := page.Goto(detailURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(detailNavigationTimeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("scrape: navigate to detail page: %w", err)
	}

	type result struct {
		biz *Business
		err error
	}
	done := make(chan result, 1)

	go func() {
		biz, err := extractDetailDOM(page, detailURL)
		done <- result{biz, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, nil // dropped, not retried (spec.md §4.4)
		}
		return r.biz, nil
	case <-time.After(detailExtractionTimeout):
		return nil, nil
	case <-ctx.Done():
		return nil, nil
	}
}

func extractDetailDOM(page playwright.Page, detailURL string) (*Business, error) {
	content, err := page.Content()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	biz := &Business{DetailURL: detailURL}

	biz.Name = strings.TrimSpace(doc.Find("h1").First().Text())
	biz.Category = strings.TrimSpace(doc.Find("button[jsaction*=category]").First().Text())

	if label, ok := findAriaLabelMatching(doc.Selection, "star"); ok {
		if v, ok := ParseRating(label); ok {
			biz.Rating, biz.HasRating = v, true
		}
	}
	if label, ok := findAriaLabelMatching(doc.Selection, "review"); ok {
		if v, ok := ParseReviewCount(label); ok {
			biz.ReviewCount, biz.HasReviews = v, true
		}
	}

	doc.Find(`a[href^="tel:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if href, ok := s.Attr("href"); ok {
			biz.Phone = strings.TrimPrefix(href, "tel:")
			return false
		}
		return true
	})

	if label, ok := findAriaLabelMatching(doc.Selection, "address"); ok {
		biz.Address = cleanAddressLabel(label)
	}

	biz.Website = ExtractWebsite(doc)

	if lat, lng, ok := ParseCoordinatesFromURL(page.URL()); ok {
		biz.Latitude, biz.Longitude, biz.HasCoords = lat, lng, true
		if code, ok := geocatalog.EncodePlusCode(lat, lng); ok && geocatalog.PlusCodeRoundTripOK(code, lat, lng, plusCodeTolerance) {
			biz.PlusCode = code
		}
	}

	return biz, nil
}

func cleanAddressLabel(label string) string {
	label = strings.TrimSpace(label)
	for _, prefix := range []string{"Address: ", "Address:"} {
		label = strings.TrimPrefix(label, prefix)
	}
	return strings.TrimSpace(label)
}

// ApplyPostExtractionPolicy applies the silent-drop policy of spec.md §4.4:
// onlyWithoutWebsite drops records with a website; isExtractEmail drops
// records without a website (emails cannot be gathered).
func ApplyPostExtractionPolicy(biz *Business, onlyWithoutWebsite, isExtractEmail bool) bool {
	if onlyWithoutWebsite && biz.Website != "" {
		return false
	}
	if isExtractEmail && biz.Website == "" {
		return false
	}
	return true
}
