package property

import "math"

// RoomTier maps a square-footage band to typical room counts.
// A tier applies when sqft < MaxSqft; MaxSqft 0 marks the open-ended last tier.
type RoomTier struct {
	MaxSqft   int     `yaml:"max_sqft"`
	Bedrooms  int     `yaml:"bedrooms"`
	Bathrooms float64 `yaml:"bathrooms"`
}

// DefaultRoomTiers returns the stock square-footage step function.
func DefaultRoomTiers() []RoomTier {
	return []RoomTier{
		{MaxSqft: 1000, Bedrooms: 2, Bathrooms: 1.0},
		{MaxSqft: 1500, Bedrooms: 2, Bathrooms: 1.5},
		{MaxSqft: 2000, Bedrooms: 3, Bathrooms: 2.0},
		{MaxSqft: 2500, Bedrooms: 3, Bathrooms: 2.5},
		{MaxSqft: 3000, Bedrooms: 4, Bathrooms: 3.0},
		{MaxSqft: 3500, Bedrooms: 4, Bathrooms: 3.5},
		{MaxSqft: 4000, Bedrooms: 5, Bathrooms: 4.0},
		{MaxSqft: 5000, Bedrooms: 5, Bathrooms: 4.5},
		{MaxSqft: 0, Bedrooms: 5, Bathrooms: 5.0},
	}
}

// EstimateRooms derives bedroom and bathroom counts from square footage.
// Tiers must be ordered by ascending MaxSqft. ok is false for non-positive
// sqft or when no tier covers it.
func EstimateRooms(sqft int, t Type, tiers []RoomTier) (beds int, baths float64, ok bool) {
	if sqft <= 0 {
		return 0, 0, false
	}
	for _, tier := range tiers {
		if tier.MaxSqft == 0 || sqft < tier.MaxSqft {
			beds, baths, ok = tier.Bedrooms, tier.Bathrooms, true
			break
		}
	}
	if !ok {
		return 0, 0, false
	}

	switch t {
	case TypeCondo, TypeTownhouse:
		beds = max(1, beds-1)
		baths = math.Max(1.0, baths-0.5)
	case TypeMultiFamily:
		beds++
	}
	return beds, baths, true
}
