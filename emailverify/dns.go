// Package emailverify implements the Email Verifier (spec.md §4.6):
// normalize -> syntax -> MX/A/AAAA -> SMTP callout -> catch-all probe.
// Grounded on the teacher's gmaps.EmailVerifyJob, which reaches for
// AfterShip/email-verifier for a fast syntax+MX check; this package keeps
// that dependency for disposable-domain annotation (see probeDisposable in
// verify.go) but hand-rolls the SMTP callout itself, since the library
// doesn't expose raw RCPT/STARTTLS/catch-all control at the level spec.md
// requires. mcnijman/go-emailaddress, the teacher's other syntax-check
// dependency, lives in emailharvest instead — it validates a candidate
// address at extraction time, before it ever reaches this package.
package emailverify

import (
	"context"
	"math/rand"
	"net"
	"sort"
)

// MXHost is one mail-exchanger candidate, ordered by ascending priority.
type MXHost struct {
	Host     string
	Priority uint16
}

// ResolveMailHosts returns the domain's MX hosts sorted ascending by
// priority, with equal-priority groups shuffled uniformly (spec.md §4.6);
// if no MX records exist, it falls back to the domain's own A/AAAA records
// presented as a single synthetic host.
func ResolveMailHosts(ctx context.Context, resolver *net.Resolver, domain string) ([]MXHost, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	records, err := resolver.LookupMX(ctx, domain)
	if err == nil && len(records) > 0 {
		hosts := make([]MXHost, 0, len(records))
		for _, r := range records {
			hosts = append(hosts, MXHost{Host: trimDot(r.Host), Priority: r.Pref})
		}
		sortAndShuffleMX(hosts)
		return hosts, nil
	}

	addrs, aErr := resolver.LookupHost(ctx, domain)
	if aErr != nil || len(addrs) == 0 {
		if err != nil {
			return nil, err
		}
		return nil, aErr
	}

	return []MXHost{{Host: domain, Priority: 0}}, nil
}

// sortAndShuffleMX sorts by ascending priority, then shuffles within each
// equal-priority run so repeated verifications don't always hammer the
// same host first.
func sortAndShuffleMX(hosts []MXHost) {
	sort.SliceStable(hosts, func(i, j int) bool { return hosts[i].Priority < hosts[j].Priority })

	start := 0
	for start < len(hosts) {
		end := start + 1
		for end < len(hosts) && hosts[end].Priority == hosts[start].Priority {
			end++
		}
		group := hosts[start:end]
		rand.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		start = end
	}
}

func trimDot(host string) string {
	if n := len(host); n > 0 && host[n-1] == '.' {
		return host[:n-1]
	}
	return host
}
