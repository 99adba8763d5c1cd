package guideline

import (
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
)

// DefaultBiasScale converts soft-guideline priority into weight bias.
const DefaultBiasScale = 0.1

// daysPerMonth matches how sale recency is counted elsewhere.
const daysPerMonth = 30

// Filter is one compiled hard constraint against a fixed subject.
// Candidates missing the data a filter needs pass it.
type Filter struct {
	Index       int
	Key         Key
	Description string
	pass        func(c *property.Property) bool
}

// Pass reports whether c satisfies the constraint.
func (f Filter) Pass(c *property.Property) bool { return f.pass(c) }

// String describes the filter for logs.
func (f Filter) String() string {
	return fmt.Sprintf("guideline[%d] %s", f.Index, f.Key)
}

// Filters are ANDed hard constraints.
type Filters []Filter

// Pass returns true when c passes every filter, otherwise false and the first
// failing filter.
func (fs Filters) Pass(c *property.Property) (bool, *Filter) {
	for i := range fs {
		if !fs[i].pass(c) {
			return false, &fs[i]
		}
	}
	return true, nil
}

// Compiled is the result of compiling guidelines against a subject.
type Compiled struct {
	Filters Filters
	Bias    scoring.Bias
}

// Compile turns guidelines into hard filters (priority >= 2.0) and an additive
// weight bias (soft guidelines). Criteria are visited in sorted key order.
func Compile(guidelines []Guideline, subject *property.Property, now time.Time, biasScale float64) Compiled {
	out := Compiled{Bias: scoring.Bias{}}
	for i, g := range guidelines {
		for _, k := range g.Criteria.Keys() {
			v := g.Criteria[k]
			if g.IsHard() {
				if pass := predicate(k, v, subject, now); pass != nil {
					out.Filters = append(out.Filters, Filter{
						Index:       i,
						Key:         k,
						Description: g.Description,
						pass:        pass,
					})
				}
				continue
			}
			if f, ok := k.Feature(); ok {
				out.Bias.Add(f, g.Priority*biasScale)
			}
		}
	}
	return out
}

// predicate builds the check for one criterion; nil means the criterion
// imposes nothing (e.g. a cleared flag).
func predicate(k Key, v float64, subject *property.Property, now time.Time) func(c *property.Property) bool {
	switch k {
	case KeyMaxDistanceMiles:
		return func(c *property.Property) bool {
			d, ok := subject.DistanceMiles(c)
			return !ok || d <= v
		}
	case KeyMaxAgeMonths:
		limit := time.Duration(v*daysPerMonth*24) * time.Hour
		return func(c *property.Property) bool {
			return c.SaleDate == nil || now.Sub(*c.SaleDate) <= limit
		}
	case KeyLotSizeTolerancePercent:
		return func(c *property.Property) bool {
			if subject.LotSizeSqft == nil || c.LotSizeSqft == nil || *subject.LotSizeSqft <= 0 {
				return true
			}
			return percentDiff(*c.LotSizeSqft, *subject.LotSizeSqft) <= v
		}
	case KeyBedroomsExactMatch:
		if v == 0 {
			return nil
		}
		return func(c *property.Property) bool {
			return subject.Bedrooms == nil || c.Bedrooms == nil || *subject.Bedrooms == *c.Bedrooms
		}
	case KeyBedroomsTolerance:
		return func(c *property.Property) bool {
			if subject.Bedrooms == nil || c.Bedrooms == nil {
				return true
			}
			return math.Abs(float64(*subject.Bedrooms-*c.Bedrooms)) <= v
		}
	case KeyBathroomsExactMatch:
		if v == 0 {
			return nil
		}
		return func(c *property.Property) bool {
			return subject.Bathrooms == nil || c.Bathrooms == nil || *subject.Bathrooms == *c.Bathrooms
		}
	case KeyBathroomsTolerance:
		return func(c *property.Property) bool {
			if subject.Bathrooms == nil || c.Bathrooms == nil {
				return true
			}
			return math.Abs(*subject.Bathrooms-*c.Bathrooms) <= v
		}
	case KeyPriceTolerancePercent:
		return func(c *property.Property) bool {
			ref, ok := subject.AskingPrice()
			price, cok := c.Price()
			if !ok || !cok {
				return true
			}
			return percentDiff(price, ref) <= v
		}
	default:
		return nil
	}
}

func percentDiff(v, ref float64) float64 {
	return math.Abs(v-ref) / ref * 100
}
