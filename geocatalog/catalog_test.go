package geocatalog

import "testing"

func TestValidateCountry(t *testing.T) {
	c := New()

	if err := c.ValidateCountry("us"); err != nil {
		t.Fatalf("expected US to validate, got %v", err)
	}

	if err := c.ValidateCountry("ZZ"); err == nil {
		t.Fatalf("expected ZZ to be rejected")
	}
}

func TestStatesAndCities(t *testing.T) {
	c := New()

	states, err := c.States("IN")
	if err != nil {
		t.Fatalf("States: %v", err)
	}
	if len(states) == 0 {
		t.Fatalf("expected at least one state for IN")
	}

	cities, err := c.Cities("IN", "mh")
	if err != nil {
		t.Fatalf("Cities: %v", err)
	}

	found := false
	for _, city := range cities {
		if city.Name == "Pune" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Pune in Maharashtra cities, got %+v", cities)
	}

	if _, err := c.Cities("IN", "ZZ"); err == nil {
		t.Fatalf("expected unknown state to error")
	}
}

func TestBucket(t *testing.T) {
	cases := []struct {
		population int
		floor      int
		want       PopulationBucket
	}{
		{0, 1000, BucketUnknown},
		{1_500_000, 1000, BucketBig},
		{200_000, 1000, BucketMid},
		{5000, 1000, BucketSmall},
		{500, 1000, BucketUnknown},
	}

	for _, tc := range cases {
		if got := Bucket(tc.population, tc.floor); got != tc.want {
			t.Errorf("Bucket(%d, %d) = %v, want %v", tc.population, tc.floor, got, tc.want)
		}
	}
}

func TestLocationKeyNormalizes(t *testing.T) {
	a := LocationKey("us", "CA", "  San   Francisco ")
	b := LocationKey("US", "ca", "san francisco")

	if a != b {
		t.Fatalf("expected normalized keys to match: %q vs %q", a, b)
	}
}
