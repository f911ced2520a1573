package scrape

import "testing"

func TestParseCoordinatesFromURL(t *testing.T) {
	url := "https://www.google.com/maps/place/Acme/@37.7,-122.4,15z/data=!4m5!3m4!1s0x0:0x0!8m2!3d37.774929!4d-122.419416"
	lat, lng, ok := ParseCoordinatesFromURL(url)
	if !ok {
		t.Fatalf("expected coordinates to parse")
	}
	if lat != 37.774929 || lng != -122.419416 {
		t.Fatalf("got lat=%v lng=%v", lat, lng)
	}
}

func TestParseCoordinatesFromURLMissing(t *testing.T) {
	if _, _, ok := ParseCoordinatesFromURL("https://example.com/no-coords-here"); ok {
		t.Fatalf("expected no coordinates to be found")
	}
}
