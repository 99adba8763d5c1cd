package compdex

import (
	"github.com/kailas-cloud/compdex/internal/domain/feedback"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
	domval "github.com/kailas-cloud/compdex/internal/domain/valuation"
	compsuc "github.com/kailas-cloud/compdex/internal/usecase/comps"
	"github.com/kailas-cloud/compdex/internal/usecase/learn"
)

// Public names for the values the client accepts and returns.
type (
	// Query identifies a subject by parcel id or by address.
	Query = property.Query
	// Address is a postal address.
	Address = property.Address
	// Property is a resolved property record. Optional fields are nil when unknown.
	Property = property.Property
	// Comparable is a ranked comparable with its score breakdown.
	Comparable = compsuc.Comparable
	// Result is the outcome of FindComparables.
	Result = compsuc.Result
	// Valuation is a value estimate derived from comparables.
	Valuation = domval.Result
	// Guideline is one selection constraint.
	Guideline = domgl.Guideline
	// Criteria maps criterion keys to thresholds; flags are 1 or 0.
	Criteria = domgl.Criteria
	// CriterionKey names one guideline criterion.
	CriterionKey = domgl.Key
	// Weights maps scoring features to weights that sum to 1.
	Weights = scoring.Weights
	// FeedbackRecord is one stored piece of feedback.
	FeedbackRecord = feedback.Record
	// TrainSummary describes a batch training run.
	TrainSummary = learn.TrainSummary
)

// Guideline priorities. Hard guidelines filter candidates; the others bias weights.
const (
	PriorityHard      = domgl.PriorityHard
	PriorityPreferred = domgl.PriorityPreferred
	PriorityNormal    = domgl.PriorityNormal
)

// Criterion keys.
const (
	MaxDistanceMiles        = domgl.KeyMaxDistanceMiles
	MaxAgeMonths            = domgl.KeyMaxAgeMonths
	LotSizeTolerancePercent = domgl.KeyLotSizeTolerancePercent
	BedroomsExactMatch      = domgl.KeyBedroomsExactMatch
	BedroomsTolerance       = domgl.KeyBedroomsTolerance
	BathroomsExactMatch     = domgl.KeyBathroomsExactMatch
	BathroomsTolerance      = domgl.KeyBathroomsTolerance
	PriceTolerancePercent   = domgl.KeyPriceTolerancePercent
)
