package geo

import (
	"testing"
)

func almost(a, b, eps float64) bool {
	if a > b {
		return a-b < eps
	}
	return b-a < eps
}

func TestHaversine_SamePoint(t *testing.T) {
	if d := Haversine(33.4484, -112.0740, 33.4484, -112.0740); d != 0 {
		t.Fatalf("want 0, got %f", d)
	}
}

func TestDistanceMiles_KnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, eps              float64
	}{
		// Phoenix -> Tucson, ~106 mi по прямой
		{"phoenix-tucson", 33.4484, -112.0740, 32.2226, -110.9747, 106.5, 1.5},
		// one degree of latitude is ~69 miles
		{"one-degree-lat", 40, -100, 41, -100, 69.1, 0.2},
		{"antipodal", 0, 0, 0, 180, 12_436.8, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMiles(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if !almost(got, tt.want, tt.eps) {
				t.Errorf("want %.1f±%.1f, got %.3f", tt.want, tt.eps, got)
			}
		})
	}
}

func TestDistanceMiles_MatchesMeters(t *testing.T) {
	miles := DistanceMiles(33.5, -112.0, 33.6, -112.1)
	meters := Haversine(33.5, -112.0, 33.6, -112.1)
	if !almost(miles*MetersPerMile, meters, 25) {
		t.Errorf("miles %.4f * %.3f = %.1fm, haversine says %.1fm", miles, MetersPerMile, miles*MetersPerMile, meters)
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		valid    bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{91, 0, false},
		{0, 181, false},
		{-91, 0, false},
		{0, -181, false},
	}
	for _, tt := range tests {
		if got := ValidateCoordinates(tt.lat, tt.lon); got != tt.valid {
			t.Errorf("ValidateCoordinates(%f, %f) = %v, want %v", tt.lat, tt.lon, got, tt.valid)
		}
	}
}
