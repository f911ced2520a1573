package geocatalog

import "testing"

// plusCodeTolerance matches the tolerance scrape.ExtractDetail passes to
// PlusCodeRoundTripOK.
const plusCodeTolerance = 0.001

func TestEncodePlusCodeRoundTrips(t *testing.T) {
	lat, lng := 47.6062, -122.3321

	code, ok := EncodePlusCode(lat, lng)
	if !ok {
		t.Fatalf("expected Encode to succeed for a valid coordinate")
	}
	if code == "" {
		t.Fatalf("expected a non-empty plus code")
	}

	if !PlusCodeRoundTripOK(code, lat, lng, plusCodeTolerance) {
		t.Fatalf("expected round trip to succeed for its own encoded code")
	}
}

func TestEncodePlusCodeRejectsOutOfRangeCoordinates(t *testing.T) {
	if _, ok := EncodePlusCode(200, 0); ok {
		t.Fatalf("expected latitude 200 to be rejected")
	}
}

func TestPlusCodeRoundTripFailsOnMismatch(t *testing.T) {
	code, ok := EncodePlusCode(47.6062, -122.3321)
	if !ok {
		t.Fatalf("expected Encode to succeed")
	}

	if PlusCodeRoundTripOK(code, 10, 10, plusCodeTolerance) {
		t.Fatalf("expected round trip against an unrelated coordinate to fail")
	}
}
