// Package valuation turns selected comparables into a value estimate.
package valuation

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kailas-cloud/compdex/internal/domain/property"
	domval "github.com/kailas-cloud/compdex/internal/domain/valuation"
)

// Thresholds map comp count, mean similarity and price dispersion to a grade.
type Thresholds struct {
	HighCount        int
	HighScore        float64
	HighMaxCV        float64
	ModerateCount    int
	ModerateScore    float64
	ModerateMaxCV    float64
	FullConfidenceAt int // comp count at which the count factor saturates
}

// DefaultThresholds returns the stock confidence grading.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighCount:        5,
		HighScore:        0.8,
		HighMaxCV:        0.10,
		ModerateCount:    3,
		ModerateScore:    0.6,
		ModerateMaxCV:    0.20,
		FullConfidenceAt: 10,
	}
}

// Comparable is a selected comp with its similarity score.
type Comparable struct {
	Property *property.Property
	Score    float64
}

// Service estimates values.
type Service struct {
	thresholds Thresholds
	rates      AdjustmentRates
	printer    *message.Printer
	now        func() time.Time
}

// New creates an estimator.
func New(thresholds Thresholds, rates AdjustmentRates) *Service {
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	if rates == (AdjustmentRates{}) {
		rates = DefaultAdjustmentRates()
	}
	return &Service{
		thresholds: thresholds,
		rates:      rates,
		printer:    message.NewPrinter(language.English),
		now:        time.Now,
	}
}

// Estimate derives a value for subject from comps. Comps without any price
// are ignored. With no priced comps the result has Method none and Low confidence.
func (s *Service) Estimate(subject *property.Property, comps []Comparable) domval.Result {
	now := s.now()
	res := domval.Result{
		Method:     domval.MethodNone,
		Confidence: domval.ConfidenceLow,
		Comps:      []domval.Comp{},
	}
	if lp := subject.ListPrice; lp != nil && *lp > 0 {
		v := *lp
		res.ListPrice = &v
	}

	var prices, ppsf, scores []float64
	var adjWeighted, adjWeight, adjPlain float64
	for _, c := range comps {
		price, ok := c.Property.Price()
		if !ok {
			continue
		}
		prices = append(prices, price)
		scores = append(scores, c.Score)
		if pps, ok := c.Property.PricePerSqft(); ok {
			ppsf = append(ppsf, pps)
		}

		comp := domval.Comp{
			CandidateID: c.Property.ID,
			Price:       price,
			Score:       c.Score,
			Adjustments: s.Adjust(subject, c.Property, now),
		}
		if res.ListPrice != nil {
			diff := price - *res.ListPrice
			pct := diff / *res.ListPrice * 100
			comp.PriceDiff, comp.PriceDiffPercent = &diff, &pct
		}
		comp.AdjustedPrice = price + comp.TotalAdjustment()
		adjWeighted += comp.AdjustedPrice * c.Score
		adjWeight += c.Score
		adjPlain += comp.AdjustedPrice
		res.Comps = append(res.Comps, comp)
	}

	n := len(prices)
	res.CompCount = n
	if n == 0 {
		return res
	}

	res.AveragePrice = mean(prices)
	res.AverageScore = mean(scores)
	res.CoefficientOfVariation = coefficientOfVariation(prices)
	if len(ppsf) > 0 {
		res.AveragePricePerSqft = mean(ppsf)
	}

	if subject.SquareFeet != nil && *subject.SquareFeet > 0 && res.AveragePricePerSqft > 0 {
		res.Estimate = res.AveragePricePerSqft * float64(*subject.SquareFeet)
		res.Method = domval.MethodPricePerSqft
	} else {
		res.Estimate = res.AveragePrice
		res.Method = domval.MethodAveragePrice
	}

	adjusted := adjPlain / float64(n)
	if adjWeight > 0 {
		adjusted = adjWeighted / adjWeight
	}
	res.AdjustedEstimate = &adjusted

	res.Confidence = s.grade(n, res.AverageScore, res.CoefficientOfVariation)
	res.ConfidenceScore = s.confidenceScore(n, res.AverageScore, res.CoefficientOfVariation)

	if res.ListPrice != nil {
		dev := (res.Estimate - *res.ListPrice) / *res.ListPrice * 100
		res.DeviationFromList = &dev
	}
	return res
}

func (s *Service) grade(n int, avgScore, cv float64) domval.Confidence {
	t := s.thresholds
	switch {
	case n >= t.HighCount && avgScore >= t.HighScore && cv <= t.HighMaxCV:
		return domval.ConfidenceHigh
	case n >= t.ModerateCount && avgScore >= t.ModerateScore && cv <= t.ModerateMaxCV:
		return domval.ConfidenceModerate
	default:
		return domval.ConfidenceLow
	}
}

func (s *Service) confidenceScore(n int, avgScore, cv float64) float64 {
	countFactor := math.Min(1, float64(n)/float64(max(1, s.thresholds.FullConfidenceAt)))
	return countFactor * avgScore * math.Max(0.5, 1-cv)
}

func mean(vs []float64) float64 {
	var s float64
	for _, v := range vs {
		s += v
	}
	return s / float64(len(vs))
}

// coefficientOfVariation is the population standard deviation over the mean.
func coefficientOfVariation(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	m := mean(vs)
	if m == 0 {
		return 0
	}
	var ss float64
	for _, v := range vs {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss/float64(len(vs))) / m
}
