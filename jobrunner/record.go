package jobrunner

import (
	"strconv"

	"github.com/leadgrid/leadgrid/emailverify"
	"github.com/leadgrid/leadgrid/reviewfilter"
	"github.com/leadgrid/leadgrid/scrape"
)

// EmailVerificationMode mirrors spec.md §3's email_verification.mode enum.
type EmailVerificationMode string

const (
	VerificationVerified   EmailVerificationMode = "verified"
	VerificationUnverified EmailVerificationMode = "unverified"
	VerificationFallback   EmailVerificationMode = "fallback"
)

// EmailStatus mirrors spec.md §3's email_status enum, a parallel list to
// Record.Emails (one status per address, in the same order).
type EmailStatus string

const (
	EmailDeliverable   EmailStatus = "deliverable"
	EmailRisky         EmailStatus = "risky"
	EmailUndeliverable EmailStatus = "undeliverable"
	EmailError         EmailStatus = "error"
	EmailUnverified    EmailStatus = "unverified"
	EmailUnknown       EmailStatus = "unknown"
)

// EmailVerification is spec.md §3's Business.email_verification object.
type EmailVerification struct {
	Mode    EmailVerificationMode
	Details []emailverify.Result
}

// Record is the full Business record of spec.md §3: scrape.Business plus the
// pipeline-stage fields the Detail Extractor doesn't fill in (search
// metadata, harvested/verified emails, filtered reviews).
type Record struct {
	scrape.Business

	RatingCount string // spec.md §3: "integer as string"

	SearchTerm     string
	SearchType     string // fixed literal, e.g. "search"
	SearchLocation string

	Emails            []string
	EmailStatus       []EmailStatus
	EmailVerification EmailVerification

	FilteredReviews     []reviewfilter.Review
	FilteredReviewCount int
	HasFilteredReviews  bool
}

// newRecord builds a Record from an extracted Business plus the location
// scope it was found in, leaving email/review fields empty for later
// pipeline stages to fill in.
func newRecord(biz scrape.Business, keyword, searchLocation string) Record {
	r := Record{
		Business:       biz,
		SearchTerm:     keyword,
		SearchType:     "search",
		SearchLocation: searchLocation,
	}
	if biz.HasReviews {
		r.RatingCount = strconv.Itoa(biz.ReviewCount)
	}
	return r
}
