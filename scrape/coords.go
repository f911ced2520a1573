package scrape

import (
	"regexp"
	"strconv"
)

// coordRe matches the !3d<lat>!4d<lng> fragment the mapping service embeds
// in every place URL path, grounded on the teacher's own /maps/place/ URL
// handling in GmapJob.Process (waitUntilURLContains "/maps/place/").
var coordRe = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)

// ParseCoordinatesFromURL extracts latitude/longitude from a detail page's
// own URL. This source is authoritative over any DOM-derived coordinate
// (spec.md §4.4).
func ParseCoordinatesFromURL(pageURL string) (lat, lng float64, ok bool) {
	m := coordRe.FindStringSubmatch(pageURL)
	if len(m) != 3 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
