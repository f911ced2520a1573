// Package geocatalog is a pure lookup over a static country/state/city
// dataset: it returns the states of a country, the cities of a
// country+state, and validates the codes a job scope is built from.
package geocatalog

import (
	"fmt"
	"sort"
	"strings"
)

// PopulationBucket classifies a city by resolved population, used by the
// Job Runner's phased traversal (spec.md §4.7).
type PopulationBucket int

const (
	BucketUnknown PopulationBucket = iota
	BucketSmall
	BucketMid
	BucketBig
)

func (b PopulationBucket) String() string {
	switch b {
	case BucketBig:
		return "big"
	case BucketMid:
		return "mid"
	case BucketSmall:
		return "small"
	default:
		return "unknown"
	}
}

// City is one entry of a state's city list.
type City struct {
	Name       string
	Population int // 0 means unknown
}

// State is one entry of a country's state list.
type State struct {
	Code  string
	Name  string
	Cities []City
}

// Country is the top-level catalog entry.
type Country struct {
	Code   string
	Name   string
	States []State
}

// Catalog is a read-only, in-memory geo dataset.
type Catalog struct {
	countries map[string]Country
}

// New builds a Catalog from the embedded seed dataset. Real deployments
// load a much larger dataset the same way; the shape never changes.
func New() *Catalog {
	c := &Catalog{countries: make(map[string]Country, len(seedCountries))}
	for _, country := range seedCountries {
		c.countries[strings.ToUpper(country.Code)] = country
	}
	return c
}

// ErrNotFound is returned for unknown country/state/city codes.
type ErrNotFound struct {
	Kind string // "country", "state", "city"
	Code string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("geocatalog: unknown %s %q", e.Kind, e.Code)
}

// ValidateCountry checks that countryCode is a known ISO-3166-1 alpha-2 code.
func (c *Catalog) ValidateCountry(countryCode string) error {
	_, ok := c.countries[strings.ToUpper(strings.TrimSpace(countryCode))]
	if !ok {
		return &ErrNotFound{Kind: "country", Code: countryCode}
	}
	return nil
}

// ValidateState checks that stateCode belongs to countryCode.
func (c *Catalog) ValidateState(countryCode, stateCode string) error {
	country, ok := c.countries[strings.ToUpper(strings.TrimSpace(countryCode))]
	if !ok {
		return &ErrNotFound{Kind: "country", Code: countryCode}
	}
	stateCode = strings.ToUpper(strings.TrimSpace(stateCode))
	for _, s := range country.States {
		if strings.EqualFold(s.Code, stateCode) {
			return nil
		}
	}
	return &ErrNotFound{Kind: "state", Code: stateCode}
}

// States returns every state of countryCode, sorted by code.
func (c *Catalog) States(countryCode string) ([]State, error) {
	country, ok := c.countries[strings.ToUpper(strings.TrimSpace(countryCode))]
	if !ok {
		return nil, &ErrNotFound{Kind: "country", Code: countryCode}
	}
	out := make([]State, len(country.States))
	copy(out, country.States)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Cities returns every city of countryCode+stateCode, sorted by name.
func (c *Catalog) Cities(countryCode, stateCode string) ([]City, error) {
	country, ok := c.countries[strings.ToUpper(strings.TrimSpace(countryCode))]
	if !ok {
		return nil, &ErrNotFound{Kind: "country", Code: countryCode}
	}
	stateCode = strings.ToUpper(strings.TrimSpace(stateCode))
	for _, s := range country.States {
		if strings.EqualFold(s.Code, stateCode) {
			out := make([]City, len(s.Cities))
			copy(out, s.Cities)
			sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
			return out, nil
		}
	}
	return nil, &ErrNotFound{Kind: "state", Code: stateCode}
}

// Bucket classifies a population count into the runner's phased buckets
// (spec.md §4.7). A population of 0 (unresolved) is always BucketUnknown.
func Bucket(population, minPopulationFloor int) PopulationBucket {
	const (
		bigThreshold = 1_000_000
		midThreshold = 100_000
	)
	switch {
	case population <= 0:
		return BucketUnknown
	case population >= bigThreshold:
		return BucketBig
	case population >= midThreshold:
		return BucketMid
	case population >= minPopulationFloor:
		return BucketSmall
	default:
		return BucketUnknown
	}
}

// LocationKey derives the case-insensitive, whitespace-collapsed dedup key
// of spec.md §3.
func LocationKey(countryCode, stateCode, city string) string {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return norm(countryCode) + "|" + norm(stateCode) + "|" + norm(city)
}

// seedCountries is a small representative slice of the dataset; production
// deployments replace it with a generated table of the same shape.
var seedCountries = []Country{
	{
		Code: "US", Name: "United States",
		States: []State{
			{
				Code: "CA", Name: "California",
				Cities: []City{
					{Name: "Los Angeles", Population: 3_900_000},
					{Name: "San Francisco", Population: 870_000},
					{Name: "Fresno", Population: 540_000},
					{Name: "Modesto", Population: 215_000},
					{Name: "Visalia", Population: 141_000},
				},
			},
			{
				Code: "NY", Name: "New York",
				Cities: []City{
					{Name: "New York City", Population: 8_300_000},
					{Name: "Buffalo", Population: 278_000},
					{Name: "Albany", Population: 99_000},
				},
			},
		},
	},
	{
		Code: "IN", Name: "India",
		States: []State{
			{
				Code: "MH", Name: "Maharashtra",
				Cities: []City{
					{Name: "Mumbai", Population: 12_400_000},
					{Name: "Pune", Population: 3_100_000},
					{Name: "Nagpur", Population: 2_400_000},
					{Name: "Kolhapur", Population: 550_000},
				},
			},
			{
				Code: "KA", Name: "Karnataka",
				Cities: []City{
					{Name: "Bengaluru", Population: 8_400_000},
					{Name: "Mysuru", Population: 920_000},
				},
			},
		},
	},
	{
		Code: "GB", Name: "United Kingdom",
		States: []State{
			{
				Code: "ENG", Name: "England",
				Cities: []City{
					{Name: "London", Population: 8_900_000},
					{Name: "Manchester", Population: 550_000},
					{Name: "York", Population: 153_000},
				},
			},
		},
	},
}
