package jobrunner

import "net/url"

const searchBaseURL = "https://www.google.com/maps/search/"

// buildSearchURL renders the mapping-service search URL for keyword at loc.
// Grounded on the teacher's gmaps.NewGmapJob, which builds the same
// "%s/maps/search/%s" shape via url.QueryEscape — QueryEscape already
// collapses whitespace to '+', matching spec.md §4.7's requirement.
func buildSearchURL(keyword string, loc Location) string {
	query := keyword + " in " + loc.searchLocation()
	return searchBaseURL + url.QueryEscape(query)
}
