// Package guideline models user-supplied comparable-selection constraints.
package guideline

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
)

// Key names a criterion.
type Key string

// Criterion keys.
const (
	KeyMaxDistanceMiles        Key = "max_distance_miles"
	KeyMaxAgeMonths            Key = "max_age_months"
	KeyLotSizeTolerancePercent Key = "lot_size_tolerance_percent"
	KeyBedroomsExactMatch      Key = "bedrooms_exact_match"
	KeyBedroomsTolerance       Key = "bedrooms_tolerance"
	KeyBathroomsExactMatch     Key = "bathrooms_exact_match"
	KeyBathroomsTolerance      Key = "bathrooms_tolerance"
	KeyPriceTolerancePercent   Key = "price_tolerance_percent"
)

// Priorities.
const (
	PriorityHard      = 2.0
	PriorityPreferred = 1.5
	PriorityNormal    = 1.0
)

// keySpec describes how a criterion is stored and which feature it biases.
type keySpec struct {
	flag    bool
	feature scoring.Feature
}

var keys = map[Key]keySpec{
	KeyMaxDistanceMiles:        {feature: scoring.FeatureDistance},
	KeyMaxAgeMonths:            {},
	KeyLotSizeTolerancePercent: {},
	KeyBedroomsExactMatch:      {flag: true, feature: scoring.FeatureBedrooms},
	KeyBedroomsTolerance:       {feature: scoring.FeatureBedrooms},
	KeyBathroomsExactMatch:     {flag: true, feature: scoring.FeatureBathrooms},
	KeyBathroomsTolerance:      {feature: scoring.FeatureBathrooms},
	KeyPriceTolerancePercent:   {feature: scoring.FeaturePrice},
}

// IsValid reports whether k is a known criterion key.
func (k Key) IsValid() bool {
	_, ok := keys[k]
	return ok
}

// KnownKeys returns every criterion key in sorted order.
func KnownKeys() []Key {
	out := make([]Key, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsFlag reports whether k is a boolean criterion.
func (k Key) IsFlag() bool { return keys[k].flag }

// Feature returns the similarity feature a soft criterion biases, if any.
func (k Key) Feature() (scoring.Feature, bool) {
	f := keys[k].feature
	return f, f != ""
}

// Criteria maps criterion keys to values. Boolean criteria are stored as 1/0
// and encoded as JSON booleans.
type Criteria map[Key]float64

// Flag reports whether a boolean criterion is set.
func (c Criteria) Flag(k Key) bool { return c[k] != 0 }

// Value returns a numeric criterion.
func (c Criteria) Value(k Key) (float64, bool) {
	v, ok := c[k]
	return v, ok
}

// Keys returns the criterion keys in sorted order.
func (c Criteria) Keys() []Key {
	out := make([]Key, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks keys and values.
func (c Criteria) Validate() error {
	for k, v := range c {
		if !k.IsValid() {
			return fmt.Errorf("%w: unknown criterion %q", domain.ErrInvalidGuideline, k)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidGuideline, k)
		}
	}
	return nil
}

// MarshalJSON writes flags as booleans.
func (c Criteria) MarshalJSON() ([]byte, error) {
	out := make(map[Key]any, len(c))
	for k, v := range c {
		if k.IsFlag() {
			out[k] = v != 0
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts booleans or numbers for every key.
func (c *Criteria) UnmarshalJSON(b []byte) error {
	var raw map[Key]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Criteria, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case bool:
			if x {
				out[k] = 1
			} else {
				out[k] = 0
			}
		case float64:
			out[k] = x
		default:
			return fmt.Errorf("%w: %s has unsupported value %v", domain.ErrInvalidGuideline, k, v)
		}
	}
	*c = out
	return nil
}

// Guideline is one selection constraint. Priority 2.0 and above is hard.
type Guideline struct {
	Description string    `json:"description"`
	Criteria    Criteria  `json:"criteria"`
	Priority    float64   `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

// New validates and constructs a guideline. A zero priority becomes PriorityNormal.
func New(description string, criteria Criteria, priority float64, now time.Time) (Guideline, error) {
	description = strings.TrimSpace(description)
	if description == "" && len(criteria) == 0 {
		return Guideline{}, fmt.Errorf("%w: description or criteria is required", domain.ErrInvalidGuideline)
	}
	if priority == 0 {
		priority = PriorityNormal
	}
	if priority < 0 || priority > PriorityHard || math.IsNaN(priority) {
		return Guideline{}, fmt.Errorf("%w: priority must be in (0, %.1f]", domain.ErrInvalidGuideline, PriorityHard)
	}
	if criteria == nil {
		criteria = Criteria{}
	}
	if err := criteria.Validate(); err != nil {
		return Guideline{}, err
	}
	return Guideline{
		Description: description,
		Criteria:    criteria,
		Priority:    priority,
		CreatedAt:   now.UTC(),
	}, nil
}

// IsHard reports whether violating the guideline excludes a candidate.
func (g Guideline) IsHard() bool { return g.Priority >= PriorityHard }

// IsInert reports whether the guideline carries no criteria.
func (g Guideline) IsInert() bool { return len(g.Criteria) == 0 }
