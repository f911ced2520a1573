// Package emailharvest implements the Email Harvester (spec.md §4.5): two
// interchangeable crawlers (render-driven and fetch-driven) sharing the
// same extraction sources, validation, and output ordering. Grounded on
// the teacher's gmaps.EmailExtractJob (docEmailExtractor, regexEmailExtractor,
// sameDomainCandidates, extractSameAsLinks) and on the Polliog-google-maps-scraper
// EmailPipeline's retrying HTTP fetch cascade.
package emailharvest

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// decodeCFEmail reverses Cloudflare's data-cfemail obfuscation: byte
// r = hex[0:2], then for i=2,4,...: char = int(hex[i:i+2],16) XOR r
// (spec.md §4.5).
func decodeCFEmail(hexStr string) (string, bool) {
	if len(hexStr) < 4 || len(hexStr)%2 != 0 {
		return "", false
	}

	r, err := strconv.ParseUint(hexStr[0:2], 16, 8)
	if err != nil {
		return "", false
	}

	var sb strings.Builder
	for i := 2; i+2 <= len(hexStr); i += 2 {
		b, err := strconv.ParseUint(hexStr[i:i+2], 16, 8)
		if err != nil {
			return "", false
		}
		sb.WriteByte(byte(b) ^ byte(r))
	}

	decoded := sb.String()
	if decoded == "" {
		return "", false
	}
	return decoded, true
}

// extractCFEmails finds every `data-cfemail` attribute in doc and decodes it.
func extractCFEmails(doc *goquery.Document) []string {
	var out []string
	doc.Find("[data-cfemail]").Each(func(_ int, s *goquery.Selection) {
		hexStr, ok := s.Attr("data-cfemail")
		if !ok {
			return
		}
		if email, ok := decodeCFEmail(hexStr); ok {
			out = append(out, email)
		}
	})
	return out
}
