package emailharvest

import (
	"regexp"
	"sort"
	"strings"
)

// resourceTLDs rejects candidates whose "TLD" is actually a filename
// extension picked up by the regex pass (spec.md §4.5).
var resourceTLDs = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "svg": true,
	"css": true, "js": true, "pdf": true, "woff": true, "woff2": true,
	"mp4": true, "webp": true, "ico": true, "json": true, "xml": true,
}

// longTLDWhitelist lists real TLDs allowed through the suspiciously-long-TLD
// rejection; domainValid consults it only for TLDs longer than six letters.
var longTLDWhitelist = map[string]bool{
	"info": true, "email": true, "agency": true, "company": true,
}

var phoneLikeRe = regexp.MustCompile(`^\d{3,4}-?\d{4}$`)
var zipLikeRe = regexp.MustCompile(`^\d{5}`)
var domainShapeRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*\.[a-z]{2,24}$`)

// Sanitize drops candidates that fail spec.md §4.5's local-part and
// domain-shape checks: phone-number-like and zip-like local parts, domains
// that aren't a dotted label sequence, resource-file TLDs, and suspiciously
// long unwhitelisted TLDs.
func Sanitize(in []string) []string {
	var out []string
	for _, email := range in {
		if isValidCandidate(email) {
			out = append(out, email)
		}
	}
	return out
}

func isValidCandidate(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	local := email[:at]
	domain := strings.ToLower(email[at+1:])

	if !localPartValid(local) {
		return false
	}
	return domainValid(domain)
}

func localPartValid(local string) bool {
	if phoneLikeRe.MatchString(local) || zipLikeRe.MatchString(local) {
		return false
	}

	var alpha, digit int
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			alpha++
		case r >= '0' && r <= '9':
			digit++
		}
	}
	if alpha < 2 {
		return false
	}
	if digit > 0 && digit > len(local)/2 {
		return false
	}
	return true
}

func domainValid(domain string) bool {
	if !domainShapeRe.MatchString(domain) {
		return false
	}

	parts := strings.Split(domain, ".")
	tld := parts[len(parts)-1]

	if resourceTLDs[tld] {
		return false
	}
	if len(tld) > 6 && !longTLDWhitelist[tld] {
		return false
	}
	return true
}

// OrderForOutput dedupes case-insensitively and sorts addresses whose
// domain matches siteDomain (or a subdomain of it) ahead of the rest,
// preserving the relative discovery order within each group.
func OrderForOutput(emails []string, siteDomain string) []string {
	deduped := dedupeCaseInsensitive(emails)
	siteDomain = strings.ToLower(strings.TrimPrefix(siteDomain, "www."))

	matching := make([]string, 0, len(deduped))
	rest := make([]string, 0, len(deduped))
	for _, email := range deduped {
		if matchesSiteDomain(email, siteDomain) {
			matching = append(matching, email)
		} else {
			rest = append(rest, email)
		}
	}

	out := append(matching, rest...)
	sort.SliceStable(out, func(i, j int) bool {
		iMatch := matchesSiteDomain(out[i], siteDomain)
		jMatch := matchesSiteDomain(out[j], siteDomain)
		return iMatch && !jMatch
	})
	return out
}

func matchesSiteDomain(email, siteDomain string) bool {
	if siteDomain == "" {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(strings.TrimPrefix(email[at+1:], "www."))
	return domain == siteDomain || strings.HasSuffix(domain, "."+siteDomain)
}
