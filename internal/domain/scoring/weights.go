// Package scoring holds the similarity features, the weight vector and score results.
package scoring

import (
	"fmt"
	"math"
)

// Feature names one similarity dimension.
type Feature string

// Similarity features.
const (
	FeatureDistance  Feature = "distance"
	FeatureSqft      Feature = "sqft"
	FeaturePrice     Feature = "price"
	FeatureBedrooms  Feature = "bedrooms"
	FeatureBathrooms Feature = "bathrooms"
	FeatureYearBuilt Feature = "year_built"
	FeatureType      Feature = "property_type"
)

// Features lists every feature in canonical order. All sums iterate in this
// order so results are bit-identical across runs.
var Features = []Feature{
	FeatureDistance, FeatureSqft, FeaturePrice, FeatureBedrooms,
	FeatureBathrooms, FeatureYearBuilt, FeatureType,
}

// IsValid reports whether f is a known feature.
func (f Feature) IsValid() bool {
	for _, known := range Features {
		if f == known {
			return true
		}
	}
	return false
}

// Weights maps features to non-negative weights summing to 1.
// Every constructor and mutator returns a normalized vector.
type Weights map[Feature]float64

// Bias is an additive, unnormalized adjustment on top of Weights.
type Bias map[Feature]float64

// sumTolerance is how far a stored vector may drift from 1.
const sumTolerance = 1e-6

// DefaultWeights returns the baseline weight vector.
func DefaultWeights() Weights {
	return Weights{
		FeatureDistance:  0.15,
		FeatureSqft:      0.25,
		FeaturePrice:     0.20,
		FeatureBedrooms:  0.15,
		FeatureBathrooms: 0.10,
		FeatureYearBuilt: 0.10,
		FeatureType:      0.05,
	}
}

// NewWeights validates raw values and returns them normalized.
// Missing features get weight 0.
func NewWeights(raw map[Feature]float64) (Weights, error) {
	for f, v := range raw {
		if !f.IsValid() {
			return nil, fmt.Errorf("unknown feature %q", f)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("weight for %s must be a non-negative number, got %v", f, v)
		}
	}
	w := make(Weights, len(Features))
	for _, f := range Features {
		w[f] = raw[f]
	}
	if w.Sum() == 0 {
		return nil, fmt.Errorf("weights must not all be zero")
	}
	return w.Normalized(), nil
}

// Sum adds the weights in canonical order.
func (w Weights) Sum() float64 {
	var s float64
	for _, f := range Features {
		s += w[f]
	}
	return s
}

// Validate checks that the vector is non-negative and sums to 1.
func (w Weights) Validate() error {
	for _, f := range Features {
		if w[f] < 0 {
			return fmt.Errorf("negative weight for %s: %f", f, w[f])
		}
	}
	if s := w.Sum(); math.Abs(s-1) > sumTolerance {
		return fmt.Errorf("weights sum to %.6f, must sum to 1.0", s)
	}
	return nil
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	c := make(Weights, len(Features))
	for _, f := range Features {
		c[f] = w[f]
	}
	return c
}

// Normalized returns w scaled to sum 1. An all-zero vector becomes uniform.
func (w Weights) Normalized() Weights {
	out := make(Weights, len(Features))
	s := w.Sum()
	if s <= 0 {
		u := 1 / float64(len(Features))
		for _, f := range Features {
			out[f] = u
		}
		return out
	}
	for _, f := range Features {
		out[f] = w[f] / s
	}
	return out
}

// Clamped clamps every weight into [lo, hi] and renormalizes.
func (w Weights) Clamped(lo, hi float64) Weights {
	out := make(Weights, len(Features))
	for _, f := range Features {
		out[f] = math.Min(hi, math.Max(lo, w[f]))
	}
	return out.Normalized()
}

// WithBias adds b to w and renormalizes. Negative results floor at 0.
func (w Weights) WithBias(b Bias) Weights {
	if len(b) == 0 {
		return w.Normalized()
	}
	out := make(Weights, len(Features))
	for _, f := range Features {
		out[f] = math.Max(0, w[f]+b[f])
	}
	return out.Normalized()
}

// Add accumulates v into the bias for f.
func (b Bias) Add(f Feature, v float64) {
	b[f] += v
}
