package scrape

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// mappingRedirectorHosts are the mapping-service's own redirector/URL hosts;
// a link to one of these is not an external website.
var mappingRedirectorHosts = map[string]bool{
	"www.google.com": true,
	"google.com":     true,
	"maps.google.com": true,
	"goo.gl":         true,
}

var domainLikeRe = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)

// ExtractWebsite runs the four-step website cascade of spec.md §4.4 against
// a detail page's rendered DOM. doc is the parsed page content; labels come
// from each anchor's accessible label (aria-label, or text fallback).
func ExtractWebsite(doc *goquery.Document) string {
	// Step 1: explicit "Website" authority link — the control the mapping
	// service renders with a distinct "Website" data-item-id/aria-label.
	if href := findByAriaLabelExact(doc, "website"); href != "" {
		return unwrapRedirector(href)
	}

	// Step 2: any link whose accessible label begins with or contains "Website".
	if href := findByAriaLabelContains(doc, "website"); href != "" {
		return unwrapRedirector(href)
	}

	// Step 3: first "action" link whose target is http(s), not a
	// mapping-service URL, and whose label/host looks like a domain.
	var step3 string
	doc.Find("a[data-item-id], a[jsaction]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		href = unwrapRedirector(href)
		if !looksLikeExternalWebsite(href) {
			return true
		}
		label := strings.TrimSpace(s.AttrOr("aria-label", s.Text()))
		if label == "" || looksLikeDomain(label) || looksLikeDomain(hostOf(href)) {
			step3 = href
			return false
		}
		return true
	})
	if step3 != "" {
		return step3
	}

	// Step 4: a link posted by the place owner (typically in an "About"/owner
	// update section, rendered with the same external-link shape as step 3
	// but outside the main action row).
	var step4 string
	doc.Find("div[data-attrid*=owner] a, div[aria-label*=Updates] a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		href = unwrapRedirector(href)
		if looksLikeExternalWebsite(href) {
			step4 = href
			return false
		}
		return true
	})

	return step4
}

func findByAriaLabelExact(doc *goquery.Document, label string) string {
	var found string
	doc.Find("a[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.AttrOr("aria-label", "")), label) {
			if href, ok := s.Attr("href"); ok {
				found = href
				return false
			}
		}
		return true
	})
	return found
}

func findByAriaLabelContains(doc *goquery.Document, needle string) string {
	var found string
	doc.Find("a[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		al := strings.ToLower(strings.TrimSpace(s.AttrOr("aria-label", "")))
		if strings.Contains(al, needle) {
			if href, ok := s.Attr("href"); ok {
				found = href
				return false
			}
		}
		return true
	})
	return found
}

func looksLikeExternalWebsite(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return !mappingRedirectorHosts[strings.ToLower(u.Hostname())]
}

func looksLikeDomain(s string) bool {
	return domainLikeRe.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

func hostOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// unwrapRedirector unwraps a mapping-service redirector URL to its `q`
// query parameter, which carries the actual destination.
func unwrapRedirector(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if !mappingRedirectorHosts[strings.ToLower(u.Hostname())] {
		return href
	}
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	return href
}
