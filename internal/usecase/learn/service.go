// Package learn adjusts similarity weights from user feedback.
package learn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/feedback"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
	"github.com/kailas-cloud/compdex/internal/metrics"
)

// Config holds the update rule parameters.
type Config struct {
	Enabled      bool
	LearningRate float64
	MinWeight    float64
	MaxWeight    float64
	Baseline     scoring.Weights
}

// DefaultConfig returns the stock learner parameters.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		LearningRate: 0.1,
		MinWeight:    0.01,
		MaxWeight:    0.6,
		Baseline:     scoring.DefaultWeights(),
	}
}

// TrainSummary describes one batch training run.
type TrainSummary struct {
	Records int             `json:"records"`
	Before  scoring.Weights `json:"before"`
	After   scoring.Weights `json:"after"`
}

// Service owns the weight vector. Writers are serialized; readers get a copy.
type Service struct {
	weights WeightStore
	log     FeedbackLog
	cfg     Config
	logger  *zap.Logger

	mu      sync.Mutex
	current scoring.Weights
}

// New creates a learner. Zero numeric fields fall back to DefaultConfig.
func New(weights WeightStore, log FeedbackLog, cfg Config, logger *zap.Logger) *Service {
	def := DefaultConfig()
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.MinWeight <= 0 {
		cfg.MinWeight = def.MinWeight
	}
	if cfg.MaxWeight <= 0 || cfg.MaxWeight < cfg.MinWeight {
		cfg.MaxWeight = def.MaxWeight
	}
	if cfg.Baseline == nil {
		cfg.Baseline = def.Baseline
	} else {
		cfg.Baseline = cfg.Baseline.Normalized()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{weights: weights, log: log, cfg: cfg, logger: logger}
}

// Weights returns the current vector, loading it from the store on first use.
func (s *Service) Weights(ctx context.Context) (scoring.Weights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return w.Clone(), nil
}

// ApplyFeedback performs one online step on the current weights and persists them.
func (s *Service) ApplyFeedback(ctx context.Context, rec feedback.Record) (scoring.Weights, error) {
	if !s.cfg.Enabled {
		return nil, domain.ErrLearningDisabled
	}
	if err := feedback.ValidateQuality(rec.Quality); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	next := s.Step(cur, rec)
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	metrics.TrainingStepsTotal.WithLabelValues("online").Inc()

	s.logger.Debug("Applied feedback",
		zap.String("record", rec.ID),
		zap.Float64("quality", rec.Quality),
	)
	return next.Clone(), nil
}

// Train replays the whole feedback log in stored order, starting from the
// baseline weights, and persists the result. An empty log leaves the
// current weights untouched.
func (s *Service) Train(ctx context.Context) (TrainSummary, error) {
	if !s.cfg.Enabled {
		return TrainSummary{}, domain.ErrLearningDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.load(ctx)
	if err != nil {
		return TrainSummary{}, err
	}

	records, err := s.log.List(ctx)
	if err != nil {
		return TrainSummary{}, fmt.Errorf("list feedback: %w", err)
	}
	if len(records) == 0 {
		return TrainSummary{Before: before.Clone(), After: before.Clone()}, nil
	}

	after := s.Replay(records)
	if err := s.persist(ctx, after); err != nil {
		return TrainSummary{}, err
	}
	metrics.TrainingStepsTotal.WithLabelValues("batch").Add(float64(len(records)))

	s.logger.Info("Weights retrained",
		zap.Int("records", len(records)),
		zap.Any("weights", after),
	)
	return TrainSummary{Records: len(records), Before: before.Clone(), After: after.Clone()}, nil
}

// Replay applies records sequentially from the baseline. It is pure, so two
// calls over the same records return bit-identical vectors.
func (s *Service) Replay(records []feedback.Record) scoring.Weights {
	w := s.cfg.Baseline.Clone()
	for _, rec := range records {
		w = s.Step(w, rec)
	}
	return w
}

// Step moves each weight by rate * (quality - 0.5) * signal, clamps into
// [MinWeight, MaxWeight] and renormalizes. The signal is the feature's mean
// sub-score across the chosen comps minus the mean over all features, so
// the moves sum to zero and renormalization cannot flip their sign: a
// feature that stood out in a well-rated selection always gains weight.
// A selection where every feature scored alike leaves the weights as they are.
func (s *Service) Step(w scoring.Weights, rec feedback.Record) scoring.Weights {
	avg := scoring.AverageSubScores(rec.SubScores)
	delta := s.cfg.LearningRate * (rec.Quality - 0.5)

	var mean float64
	for _, f := range scoring.Features {
		mean += avg[f]
	}
	mean /= float64(len(scoring.Features))

	next := make(scoring.Weights, len(scoring.Features))
	for _, f := range scoring.Features {
		next[f] = w[f] + delta*(avg[f]-mean)
	}
	return next.Clamped(s.cfg.MinWeight, s.cfg.MaxWeight)
}

// load must be called with mu held.
func (s *Service) load(ctx context.Context) (scoring.Weights, error) {
	if s.current != nil {
		return s.current, nil
	}
	w, err := s.weights.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		w = s.cfg.Baseline.Clone()
	case err != nil:
		return nil, fmt.Errorf("load weights: %w", err)
	case w.Validate() != nil:
		s.logger.Warn("Stored weights invalid, renormalizing", zap.Error(w.Validate()))
		w = w.Normalized()
	}
	s.current = w
	publish(w)
	return w, nil
}

// persist must be called with mu held.
func (s *Service) persist(ctx context.Context, w scoring.Weights) error {
	if err := s.weights.Save(ctx, w); err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	s.current = w
	publish(w)
	return nil
}

func publish(w scoring.Weights) {
	for _, f := range scoring.Features {
		metrics.FeatureWeight.WithLabelValues(string(f)).Set(w[f])
	}
}
