// Package valuation holds value estimates derived from selected comparables.
package valuation

// Confidence grades an estimate.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh     Confidence = "high"
	ConfidenceModerate Confidence = "moderate"
	ConfidenceLow      Confidence = "low"
)

// Method records how the point estimate was derived.
type Method string

// Estimation methods.
const (
	MethodPricePerSqft Method = "price_per_sqft"
	MethodAveragePrice Method = "average_price"
	MethodNone         Method = "none"
)

// Adjustment kinds.
const (
	AdjustSquareFeet  = "square_feet"
	AdjustBedrooms    = "bedrooms"
	AdjustBathrooms   = "bathrooms"
	AdjustLotSize     = "lot_size"
	AdjustAge         = "age"
	AdjustTime        = "time"
	AdjustConcessions = "concessions"
)

// Adjustment is one dollar correction to a comp's sale price.
type Adjustment struct {
	Kind        string  `json:"kind"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// Comp is one selected comparable as seen by the estimator.
type Comp struct {
	CandidateID      string       `json:"candidate_id"`
	Price            float64      `json:"price"`
	Score            float64      `json:"score"`
	PriceDiff        *float64     `json:"price_diff,omitempty"`
	PriceDiffPercent *float64     `json:"price_diff_percent,omitempty"`
	Adjustments      []Adjustment `json:"adjustments,omitempty"`
	AdjustedPrice    float64      `json:"adjusted_price"`
}

// TotalAdjustment sums the comp's adjustments.
func (c Comp) TotalAdjustment() float64 {
	var s float64
	for _, a := range c.Adjustments {
		s += a.Amount
	}
	return s
}

// Result is the estimator output.
type Result struct {
	CompCount              int        `json:"comp_count"`
	AveragePrice           float64    `json:"average_price"`
	AveragePricePerSqft    float64    `json:"average_price_per_sqft"`
	Estimate               float64    `json:"estimate"`
	Method                 Method     `json:"method"`
	AdjustedEstimate       *float64   `json:"adjusted_estimate,omitempty"`
	AverageScore           float64    `json:"average_score"`
	CoefficientOfVariation float64    `json:"coefficient_of_variation"`
	Confidence             Confidence `json:"confidence"`
	ConfidenceScore        float64    `json:"confidence_score"`
	ListPrice              *float64   `json:"list_price,omitempty"`
	DeviationFromList      *float64   `json:"deviation_from_list_percent,omitempty"`
	Comps                  []Comp     `json:"comps"`
}
