package valuation

import (
	"math"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain/property"
	domval "github.com/kailas-cloud/compdex/internal/domain/valuation"
)

// AdjustmentRates are the appraisal-style dollar adjustment parameters.
type AdjustmentRates struct {
	MinSqftDelta         int     // ignore size differences up to this many sqft
	FallbackPricePerSqft float64 // used when neither property yields $/sqft
	BedroomRate          float64 // share of comp price per bedroom
	BathroomRate         float64 // share of comp price per bathroom
	MinBathroomDelta     float64
	LotRatePerSqft       float64 // share of comp price per lot sqft
	MinLotDelta          float64
	AgeRatePerYear       float64
	MinAgeDeltaYears     int
	TimeRatePerMonth     float64
	MinMonthsSinceSale   float64
}

// DefaultAdjustmentRates returns the stock parameters.
func DefaultAdjustmentRates() AdjustmentRates {
	return AdjustmentRates{
		MinSqftDelta:         50,
		FallbackPricePerSqft: 200,
		BedroomRate:          0.015,
		BathroomRate:         0.01,
		MinBathroomDelta:     0.5,
		LotRatePerSqft:       0.00001,
		MinLotDelta:          1000,
		AgeRatePerYear:       0.007,
		MinAgeDeltaYears:     5,
		TimeRatePerMonth:     0.008,
		MinMonthsSinceSale:   3,
	}
}

// Adjust returns the corrections that bring comp's price in line with
// subject. A comp that is better than the subject gets a negative amount.
func (s *Service) Adjust(subject, comp *property.Property, now time.Time) []domval.Adjustment {
	price, ok := comp.Price()
	if !ok {
		return nil
	}
	r := s.rates
	var out []domval.Adjustment
	add := func(kind string, amount float64, format string, args ...any) {
		if amount == 0 {
			return
		}
		out = append(out, domval.Adjustment{
			Kind:        kind,
			Amount:      math.Round(amount*100) / 100,
			Description: s.printer.Sprintf(format, args...),
		})
	}

	if subject.SquareFeet != nil && comp.SquareFeet != nil {
		diff := *comp.SquareFeet - *subject.SquareFeet
		if absInt(diff) > r.MinSqftDelta {
			add(domval.AdjustSquareFeet, -float64(diff)*s.pricePerSqft(subject, comp, price),
				"comp is %d sqft %s than subject", absInt(diff), moreOrLess(diff > 0, "larger", "smaller"))
		}
	}

	if subject.Bedrooms != nil && comp.Bedrooms != nil {
		diff := *comp.Bedrooms - *subject.Bedrooms
		add(domval.AdjustBedrooms, -float64(diff)*price*r.BedroomRate,
			"comp has %d %s bedroom(s)", absInt(diff), moreOrLess(diff > 0, "more", "fewer"))
	}

	if subject.Bathrooms != nil && comp.Bathrooms != nil {
		diff := *comp.Bathrooms - *subject.Bathrooms
		if math.Abs(diff) >= r.MinBathroomDelta {
			add(domval.AdjustBathrooms, -diff*price*r.BathroomRate,
				"comp has %.1f %s bathroom(s)", math.Abs(diff), moreOrLess(diff > 0, "more", "fewer"))
		}
	}

	if subject.LotSizeSqft != nil && comp.LotSizeSqft != nil {
		diff := *comp.LotSizeSqft - *subject.LotSizeSqft
		if math.Abs(diff) > r.MinLotDelta {
			add(domval.AdjustLotSize, -diff*price*r.LotRatePerSqft,
				"comp lot is %.0f sqft %s", math.Abs(diff), moreOrLess(diff > 0, "larger", "smaller"))
		}
	}

	if subject.YearBuilt != nil && comp.YearBuilt != nil {
		// Positive diff: comp is newer, so it is worth more than the subject.
		diff := *comp.YearBuilt - *subject.YearBuilt
		if absInt(diff) > r.MinAgeDeltaYears {
			add(domval.AdjustAge, -float64(diff)*price*r.AgeRatePerYear,
				"comp is %d years %s", absInt(diff), moreOrLess(diff > 0, "newer", "older"))
		}
	}

	if comp.SaleDate != nil {
		months := now.Sub(*comp.SaleDate).Hours() / 24 / 30
		if months > r.MinMonthsSinceSale {
			add(domval.AdjustTime, price*r.TimeRatePerMonth*months,
				"comp sold %.1f months ago", months)
		}
	}

	if comp.SellerConcessions != nil && *comp.SellerConcessions > 0 {
		add(domval.AdjustConcessions, *comp.SellerConcessions,
			"seller paid $%.0f in concessions", *comp.SellerConcessions)
	}

	return out
}

func (s *Service) pricePerSqft(subject, comp *property.Property, compPrice float64) float64 {
	if ask, ok := subject.AskingPrice(); ok && subject.SquareFeet != nil && *subject.SquareFeet > 0 {
		return ask / float64(*subject.SquareFeet)
	}
	if comp.SquareFeet != nil && *comp.SquareFeet > 0 {
		return compPrice / float64(*comp.SquareFeet)
	}
	return s.rates.FallbackPricePerSqft
}

func moreOrLess(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
