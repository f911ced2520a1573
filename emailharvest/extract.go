package emailharvest

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mcnijman/go-emailaddress"
)

// ExtractAll runs every extraction source of spec.md §4.5 against one
// page's body/doc and returns the deduplicated, validated candidate list.
// Grounded on the teacher's docEmailExtractor/regexEmailExtractor/
// extractMetaFromDoc/extractTrackingFromBody plus the JSON-LD recursion in
// extendSocialFromJSONLD/extractSameAsLinks, retargeted from social links
// to the `email`/`contactPoint.email` fields spec.md calls for.
func ExtractAll(body []byte, doc *goquery.Document) []string {
	var candidates []string

	if doc != nil {
		candidates = append(candidates, mailtoEmails(doc)...)
		candidates = append(candidates, anchorTextEmails(doc)...)
		candidates = append(candidates, extractCFEmails(doc)...)
		candidates = append(candidates, metaEmails(doc)...)
		candidates = append(candidates, footerEmails(doc)...)
		candidates = append(candidates, dataAttributeEmails(doc)...)
		candidates = append(candidates, ariaLabelEmails(doc)...)
		candidates = append(candidates, jsonLDEmails(doc)...)
	}

	bodyEmails := regexEmails(body, false)
	if len(bodyEmails) < 5 {
		bodyEmails = append(bodyEmails, regexEmails(body, true)...)
	}
	candidates = append(candidates, bodyEmails...)

	return Sanitize(dedupeCaseInsensitive(candidates))
}

func mailtoEmails(doc *goquery.Document) []string {
	var out []string
	doc.Find(`a[href^='mailto:']`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		value := strings.SplitN(strings.TrimPrefix(href, "mailto:"), "?", 2)[0]
		if email, ok := validSyntax(value); ok {
			out = append(out, email)
		}
	})
	return out
}

func anchorTextEmails(doc *goquery.Document) []string {
	var out []string
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		out = append(out, regexEmails([]byte(s.Text()), false)...)
	})
	return out
}

func metaEmails(doc *goquery.Document) []string {
	var out []string
	doc.Find(`meta[name*=email], meta[name*=contact], meta[property*=email], meta[property*=contact]`).Each(func(_ int, s *goquery.Selection) {
		content := s.AttrOr("content", "")
		out = append(out, regexEmails([]byte(content), false)...)
	})
	return out
}

func footerEmails(doc *goquery.Document) []string {
	text := doc.Find("footer").Text()
	return regexEmails([]byte(text), false)
}

func dataAttributeEmails(doc *goquery.Document) []string {
	var out []string
	doc.Find("[data-email], [data-contact]").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"data-email", "data-contact"} {
			if v, ok := s.Attr(attr); ok {
				out = append(out, regexEmails([]byte(v), false)...)
			}
		}
	})
	return out
}

func ariaLabelEmails(doc *goquery.Document) []string {
	var out []string
	doc.Find(`[aria-label*=email], [aria-label*=contact]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("aria-label"); ok {
			out = append(out, regexEmails([]byte(v), false)...)
		}
	})
	return out
}

func jsonLDEmails(doc *goquery.Document) []string {
	var out []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var parsed interface{}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return
		}
		walkJSONLDEmails(parsed, &out)
	})
	return out
}

// walkJSONLDEmails recurses a decoded JSON-LD document looking for `email`
// and `contactPoint.email` fields, grounded on the teacher's
// extractSameAsLinks recursion pattern applied to email fields instead of
// social "sameAs" links.
func walkJSONLDEmails(node interface{}, out *[]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, val := range v {
			if strings.EqualFold(key, "email") {
				if s, ok := val.(string); ok {
					*out = append(*out, s)
				}
				continue
			}
			if strings.EqualFold(key, "contactPoint") {
				walkJSONLDEmails(val, out)
				continue
			}
			walkJSONLDEmails(val, out)
		}
	case []interface{}:
		for _, it := range v {
			walkJSONLDEmails(it, out)
		}
	}
}

// deobfuscationReplacements covers the common "[at]"/"(at)"/" at "-style
// obfuscations, grounded on the teacher's regexEmailExtractor table. The
// space-padded bracket forms come first so "name [at] example [dot] com"
// collapses to "name@example.com" with no spaces left around "@" or ".".
var deobfuscationReplacements = []struct{ from, to string }{
	{" [at] ", "@"}, {" (at) ", "@"},
	{"[at]", "@"}, {"(at)", "@"}, {" at ", "@"},
	{" [dot] ", "."}, {" (dot) ", "."},
	{"[dot]", "."}, {"(dot)", "."}, {" dot ", "."}, {"[.]", "."},
}

// strictEmailRe is the conservative pass; relaxedEmailRe drops the word
// boundary requirement to catch emails prefixed by emoji/punctuation
// (spec.md §4.5's "relaxed-boundary pass").
var strictEmailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
var relaxedEmailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

func regexEmails(body []byte, relaxed bool) []string {
	text := html.UnescapeString(string(body))
	for _, rep := range deobfuscationReplacements {
		text = strings.ReplaceAll(text, rep.from, rep.to)
	}

	re := strictEmailRe
	if relaxed {
		re = relaxedEmailRe
	}

	matches := re.FindAllString(text, -1)
	var out []string
	for _, m := range matches {
		if email, ok := validSyntax(m); ok {
			out = append(out, email)
		}
	}
	return out
}

func validSyntax(s string) (string, bool) {
	addr, err := emailaddress.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.String(), true
}

func dedupeCaseInsensitive(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
