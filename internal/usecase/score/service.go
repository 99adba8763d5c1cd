// Package score computes multi-factor similarity between a subject and a candidate.
package score

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
)

// Config holds the decay parameters of each sub-score.
type Config struct {
	MaxDistanceMiles  float64
	BedroomTolerance  int
	BathroomTolerance float64
	AgeBandYears      float64
	GoodMatch         float64
	Reasons           ReasonBounds
}

// ReasonBounds are the human-interpretable limits for match reasons.
type ReasonBounds struct {
	ProximityMiles float64
	SizePercent    float64
	PricePercent   float64
	BathroomDelta  float64
	YearBuiltYears int
}

// DefaultConfig returns the stock scorer parameters.
func DefaultConfig() Config {
	return Config{
		MaxDistanceMiles:  5,
		BedroomTolerance:  2,
		BathroomTolerance: 1.0,
		AgeBandYears:      30,
		GoodMatch:         0.7,
		Reasons: ReasonBounds{
			ProximityMiles: 1.0,
			SizePercent:    10,
			PricePercent:   10,
			BathroomDelta:  0.5,
			YearBuiltYears: 10,
		},
	}
}

// Service scores candidates.
type Service struct {
	cfg     Config
	printer *message.Printer
}

// New creates a scorer. Zero fields in cfg fall back to DefaultConfig.
func New(cfg Config) *Service {
	def := DefaultConfig()
	if cfg.MaxDistanceMiles <= 0 {
		cfg.MaxDistanceMiles = def.MaxDistanceMiles
	}
	if cfg.BedroomTolerance < 0 {
		cfg.BedroomTolerance = def.BedroomTolerance
	}
	if cfg.BathroomTolerance < 0 {
		cfg.BathroomTolerance = def.BathroomTolerance
	}
	if cfg.AgeBandYears <= 0 {
		cfg.AgeBandYears = def.AgeBandYears
	}
	if cfg.GoodMatch <= 0 {
		cfg.GoodMatch = def.GoodMatch
	}
	if cfg.Reasons == (ReasonBounds{}) {
		cfg.Reasons = def.Reasons
	}
	return &Service{cfg: cfg, printer: message.NewPrinter(language.English)}
}

// Score computes the candidate's similarity to subject with distance decaying
// over the configured radius. See ScoreWithin.
func (s *Service) Score(subject, candidate *property.Property, weights scoring.Weights, bias scoring.Bias) scoring.Result {
	return s.ScoreWithin(subject, candidate, weights, bias, s.cfg.MaxDistanceMiles)
}

// ScoreWithin computes the candidate's similarity to subject. The distance
// sub-score reaches 0 at radius miles; a non-positive radius uses the
// configured one. The effective weights are weights plus bias, renormalized.
// A feature whose inputs are missing scores 0 and still carries its weight.
func (s *Service) ScoreWithin(
	subject, candidate *property.Property, weights scoring.Weights, bias scoring.Bias, radius float64,
) scoring.Result {
	if radius <= 0 {
		radius = s.cfg.MaxDistanceMiles
	}
	w := weights.WithBias(bias)
	res := scoring.Result{
		CandidateID: candidate.ID,
		SubScores:   make(map[scoring.Feature]float64, len(scoring.Features)),
		Reasons:     []string{},
	}

	dist, hasDist := subject.DistanceMiles(candidate)
	if hasDist {
		res.DistanceMiles = &dist
	}

	var total, used float64
	for _, f := range scoring.Features {
		sub := scoring.Clamp01(s.subScore(f, subject, candidate, dist, hasDist, radius))
		res.SubScores[f] = sub
		total += w[f] * sub
		used += w[f]
		if sub >= s.cfg.GoodMatch {
			if r, ok := s.reason(f, subject, candidate, dist); ok {
				res.Reasons = append(res.Reasons, r)
			}
		}
	}
	if used > 0 {
		res.Score = scoring.Clamp01(total / used)
	}
	return res
}

func (s *Service) subScore(
	f scoring.Feature, subject, candidate *property.Property, dist float64, hasDist bool, radius float64,
) float64 {
	switch f {
	case scoring.FeatureDistance:
		if !hasDist {
			return 0
		}
		return math.Max(0, 1-dist/radius)
	case scoring.FeatureSqft:
		if subject.SquareFeet == nil || candidate.SquareFeet == nil || *subject.SquareFeet <= 0 {
			return 0
		}
		return 1 - math.Abs(float64(*candidate.SquareFeet-*subject.SquareFeet))/float64(*subject.SquareFeet)
	case scoring.FeaturePrice:
		ref, ok := subject.AskingPrice()
		price, cok := candidate.Price()
		if !ok || !cok {
			return 0
		}
		return 1 - math.Abs(price-ref)/ref
	case scoring.FeatureBedrooms:
		if subject.Bedrooms == nil || candidate.Bedrooms == nil {
			return 0
		}
		diff := absInt(*subject.Bedrooms - *candidate.Bedrooms)
		return stepDecay(diff, s.cfg.BedroomTolerance)
	case scoring.FeatureBathrooms:
		if subject.Bathrooms == nil || candidate.Bathrooms == nil {
			return 0
		}
		steps := int(math.Round(math.Abs(*subject.Bathrooms-*candidate.Bathrooms) * 2))
		return stepDecay(steps, int(math.Round(s.cfg.BathroomTolerance*2)))
	case scoring.FeatureYearBuilt:
		if subject.YearBuilt == nil || candidate.YearBuilt == nil {
			return 0
		}
		return 1 - float64(absInt(*subject.YearBuilt-*candidate.YearBuilt))/s.cfg.AgeBandYears
	case scoring.FeatureType:
		if subject.Type.IsValid() && subject.Type == candidate.Type {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// stepDecay gives 1 for an exact match and loses 1/(tol+1) per step up to tol.
func stepDecay(steps, tol int) float64 {
	if steps > tol {
		return 0
	}
	return 1 - float64(steps)/float64(tol+1)
}

func (s *Service) reason(f scoring.Feature, subject, candidate *property.Property, dist float64) (string, bool) {
	b := s.cfg.Reasons
	switch f {
	case scoring.FeatureDistance:
		if dist <= b.ProximityMiles {
			return s.printer.Sprintf("close proximity (%.2f miles)", dist), true
		}
	case scoring.FeatureSqft:
		if pctDiff(float64(*candidate.SquareFeet), float64(*subject.SquareFeet)) <= b.SizePercent {
			return s.printer.Sprintf("similar size (%d sqft)", *candidate.SquareFeet), true
		}
	case scoring.FeaturePrice:
		ref, _ := subject.AskingPrice()
		price, _ := candidate.Price()
		if pctDiff(price, ref) <= b.PricePercent {
			return s.printer.Sprintf("similar price ($%.0f)", price), true
		}
	case scoring.FeatureBedrooms:
		if *subject.Bedrooms == *candidate.Bedrooms {
			return s.printer.Sprintf("same bedrooms (%d)", *candidate.Bedrooms), true
		}
	case scoring.FeatureBathrooms:
		if math.Abs(*subject.Bathrooms-*candidate.Bathrooms) <= b.BathroomDelta {
			return s.printer.Sprintf("similar bathrooms (%.1f)", *candidate.Bathrooms), true
		}
	case scoring.FeatureYearBuilt:
		if absInt(*subject.YearBuilt-*candidate.YearBuilt) <= b.YearBuiltYears {
			return "similar age (built " + strconv.Itoa(*candidate.YearBuilt) + ")", true
		}
	case scoring.FeatureType:
		return s.printer.Sprintf("same property type (%s)", candidate.Type), true
	}
	return "", false
}

func pctDiff(v, ref float64) float64 {
	return math.Abs(v-ref) / ref * 100
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
