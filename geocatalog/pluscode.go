package geocatalog

import (
	"math"

	olc "github.com/google/open-location-code/go"
)

// plusCodeLength is the standard 10-character "pair code" precision
// (roughly 13.7m x 13.7m at the equator) — enough to distinguish two
// storefronts on the same block without carrying the extra grid-refinement
// digits spec.md has no use for.
const plusCodeLength = 10

// EncodePlusCode computes the Open Location Code for a coordinate pair,
// grounded on the teacher's own gmaps.Entry.PlusCode field (there read off
// the place page's embedded data array; here computed directly from the
// Detail Extractor's own lat/lng, since this module never gets that
// internal array). Returns ok=false if lat/lng are out of range.
func EncodePlusCode(lat, lng float64) (code string, ok bool) {
	encoded, err := olc.Encode(lat, lng, plusCodeLength)
	if err != nil {
		return "", false
	}
	return encoded, true
}

// PlusCodeRoundTripOK decodes code and checks its center falls within
// toleranceDegrees of (lat, lng). Used as a coordinate sanity check right
// after extraction (spec.md §4.4 treats the URL-embedded lat/lng as
// authoritative, but a decode/re-encode mismatch still flags a corrupt or
// truncated coordinate before it reaches a Business record).
func PlusCodeRoundTripOK(code string, lat, lng, toleranceDegrees float64) bool {
	area, err := olc.Decode(code)
	if err != nil {
		return false
	}
	return math.Abs(area.LatitudeCenter-lat) <= toleranceDegrees &&
		math.Abs(area.LongitudeCenter-lng) <= toleranceDegrees
}
