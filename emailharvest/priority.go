package emailharvest

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// priorityScores is the priority-page table of spec.md §4.5, grounded on
// the candidate keywords in the teacher's sameDomainCandidates (contact,
// about, privacy, kontak/tentang/hubungi) extended to the spec's full set.
var priorityScores = map[string]int{
	"contact":        150,
	"reach":          140,
	"get-in-touch":   140,
	"getintouch":     140,
	"connect":        130,
	"impressum":      120,
	"support":        70,
	"help":           65,
	"team":           40,
	"about":          35,
	"privacy":        20,
	"legal":          20,
}

// PriorityPage is an in-domain candidate page ranked for crawling.
type PriorityPage struct {
	URL   string
	Score int
}

// DiscoverPriorityPages finds every same-domain link in doc, scores it
// against priorityScores (matched against the link's path/text), and
// returns them sorted by descending score. Grounded on the teacher's
// sameDomainCandidates, generalized from a fixed keyword allowlist to a
// scored table.
func DiscoverPriorityPages(doc *goquery.Document, baseURL string) []PriorityPage {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var out []PriorityPage

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if !u.IsAbs() {
			u = base.ResolveReference(u)
		}
		if !strings.EqualFold(u.Hostname(), base.Hostname()) {
			return
		}

		abs := u.String()
		if seen[abs] {
			return
		}

		score := scoreCandidate(u.Path, s.Text())
		if score == 0 {
			return
		}

		seen[abs] = true
		out = append(out, PriorityPage{URL: abs, Score: score})
	})

	sortByScoreDesc(out)
	return out
}

func scoreCandidate(path, text string) int {
	haystack := strings.ToLower(path + " " + text)
	best := 0
	for keyword, score := range priorityScores {
		if strings.Contains(haystack, keyword) && score > best {
			best = score
		}
	}
	return best
}

func sortByScoreDesc(pages []PriorityPage) {
	for i := 1; i < len(pages); i++ {
		for j := i; j > 0 && pages[j].Score > pages[j-1].Score; j-- {
			pages[j], pages[j-1] = pages[j-1], pages[j]
		}
	}
}
