package jobrunner

import (
	"fmt"
	"math/rand"

	"github.com/leadgrid/leadgrid/geocatalog"
)

// Location is one resolved (country, state, city) triple the runner visits
// in order. Population is 0 when unresolved.
type Location struct {
	Country    string
	State      string
	City       string
	Population int
}

// key returns the geocatalog.LocationKey dedup key for loc (spec.md §3
// "Location key").
func (loc Location) key() string {
	return geocatalog.LocationKey(loc.Country, loc.State, loc.City)
}

// searchLocation renders the human-readable "city, state, country" label
// stored on each Business record's search_location field.
func (loc Location) searchLocation() string {
	switch {
	case loc.City != "" && loc.State != "":
		return fmt.Sprintf("%s, %s, %s", loc.City, loc.State, loc.Country)
	case loc.City != "":
		return fmt.Sprintf("%s, %s", loc.City, loc.Country)
	case loc.State != "":
		return fmt.Sprintf("%s, %s", loc.State, loc.Country)
	default:
		return loc.Country
	}
}

// ExpandScope resolves a job's (country, state, city) input into the ordered
// sequence of locations the runner visits (spec.md §4.7 "Scope expansion").
//
//   - country+state+city → one location.
//   - country+state      → every city of the state, shuffled.
//   - country            → every state (shuffled), and within each state its
//     cities (shuffled).
//
// When phased is true the resulting cities are additionally bucketed by
// resolved population into Big/Mid/Small/Unknown (each bucket shuffled
// internally) and concatenated in that order, per spec.md's "optional
// phased variant".
func ExpandScope(catalog *geocatalog.Catalog, p Params, rng *rand.Rand, minPopulationFloor int) ([]Location, error) {
	if err := catalog.ValidateCountry(p.Country); err != nil {
		return nil, err
	}

	var locations []Location

	switch {
	case p.City != "":
		if err := catalog.ValidateState(p.Country, p.State); err != nil {
			return nil, err
		}
		locations = []Location{{Country: p.Country, State: p.State, City: p.City}}

	case p.State != "":
		if err := catalog.ValidateState(p.Country, p.State); err != nil {
			return nil, err
		}
		cities, err := catalog.Cities(p.Country, p.State)
		if err != nil {
			return nil, err
		}
		locations = make([]Location, len(cities))
		for i, c := range cities {
			locations[i] = Location{Country: p.Country, State: p.State, City: c.Name, Population: c.Population}
		}
		shuffleLocations(rng, locations)

	default:
		states, err := catalog.States(p.Country)
		if err != nil {
			return nil, err
		}
		shuffleStates(rng, states)
		for _, st := range states {
			cities, err := catalog.Cities(p.Country, st.Code)
			if err != nil {
				return nil, err
			}
			stateCities := make([]Location, len(cities))
			for i, c := range cities {
				stateCities[i] = Location{Country: p.Country, State: st.Code, City: c.Name, Population: c.Population}
			}
			shuffleLocations(rng, stateCities)
			locations = append(locations, stateCities...)
		}
	}

	if p.Phased {
		locations = phaseByPopulation(locations, rng, minPopulationFloor)
	}

	return locations, nil
}

// phaseByPopulation buckets locations into Big/Mid/Small/Unknown using
// geocatalog.Bucket, shuffles each bucket independently, and concatenates
// them in Big → Mid → Small → Unknown order.
func phaseByPopulation(locations []Location, rng *rand.Rand, minPopulationFloor int) []Location {
	var big, mid, small, unknown []Location
	for _, loc := range locations {
		switch geocatalog.Bucket(loc.Population, minPopulationFloor) {
		case geocatalog.BucketBig:
			big = append(big, loc)
		case geocatalog.BucketMid:
			mid = append(mid, loc)
		case geocatalog.BucketSmall:
			small = append(small, loc)
		default:
			unknown = append(unknown, loc)
		}
	}
	shuffleLocations(rng, big)
	shuffleLocations(rng, mid)
	shuffleLocations(rng, small)
	shuffleLocations(rng, unknown)

	out := make([]Location, 0, len(locations))
	out = append(out, big...)
	out = append(out, mid...)
	out = append(out, small...)
	out = append(out, unknown...)
	return out
}

func shuffleLocations(rng *rand.Rand, locs []Location) {
	rng.Shuffle(len(locs), func(i, j int) { locs[i], locs[j] = locs[j], locs[i] })
}

func shuffleStates(rng *rand.Rand, states []geocatalog.State) {
	rng.Shuffle(len(states), func(i, j int) { states[i], states[j] = states[j], states[i] })
}

// dedupeLocations drops locations whose key has already been seen, the
// within-job dedup of spec.md §9 Non-goals ("deduplicated only within a
// single job by location key").
func dedupeLocations(locations []Location) []Location {
	seen := make(map[string]struct{}, len(locations))
	out := make([]Location, 0, len(locations))
	for _, loc := range locations {
		k := loc.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, loc)
	}
	return out
}
