// Package guideline manages the persisted selection guidelines.
package guideline

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/domain"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/metrics"
)

// Parse outcomes.
const (
	ParsedByRules       = "rules"
	ParsedByInterpreter = "interpreter"
	ParsedInert         = "inert"
)

// Service is the guideline engine. Mutations are serialized and persisted
// before they become visible.
type Service struct {
	store       Store
	interpreter Interpreter
	parser      *domgl.Parser
	biasScale   float64
	logger      *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	loaded bool
	list   []domgl.Guideline
}

// New creates the engine. interpreter may be nil.
func New(store Store, interpreter Interpreter, parser *domgl.Parser, biasScale float64, logger *zap.Logger) *Service {
	if parser == nil {
		parser = domgl.NewParser(nil)
	}
	if biasScale <= 0 {
		biasScale = domgl.DefaultBiasScale
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		interpreter: interpreter,
		parser:      parser,
		biasScale:   biasScale,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns the guidelines in insertion order.
func (s *Service) List(ctx context.Context) ([]domgl.Guideline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(s.list), nil
}

// Add validates and appends a structured guideline.
func (s *Service) Add(ctx context.Context, description string, criteria domgl.Criteria, priority float64) (domgl.Guideline, error) {
	g, err := domgl.New(description, criteria, priority, s.now())
	if err != nil {
		return domgl.Guideline{}, err
	}
	if err := s.append(ctx, g); err != nil {
		return domgl.Guideline{}, err
	}
	return g, nil
}

// AddInstruction parses free text into a guideline and appends it. Text
// neither the rules nor the interpreter understand is kept as an inert
// guideline; that is logged, not returned as an error.
func (s *Service) AddInstruction(ctx context.Context, text string) (domgl.Guideline, error) {
	criteria, priority := s.parser.Parse(text)
	outcome := ParsedByRules

	if len(criteria) == 0 && s.interpreter != nil {
		interpreted, err := s.interpreter.Interpret(ctx, text)
		switch {
		case err != nil:
			s.logger.Warn("Guideline interpreter failed", zap.String("text", text), zap.Error(err))
		case interpreted.Validate() != nil:
			s.logger.Warn("Guideline interpreter returned invalid criteria",
				zap.String("text", text), zap.Error(interpreted.Validate()))
		default:
			criteria = interpreted
			outcome = ParsedByInterpreter
		}
	}
	if len(criteria) == 0 {
		outcome = ParsedInert
		s.logger.Warn("Guideline not understood, stored without criteria", zap.String("text", text))
	}
	metrics.GuidelinesParsedTotal.WithLabelValues(outcome).Inc()

	return s.Add(ctx, text, criteria, priority)
}

// Remove deletes the guideline at index. Later guidelines shift down by one.
func (s *Service) Remove(ctx context.Context, index int) (domgl.Guideline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return domgl.Guideline{}, err
	}
	if index < 0 || index >= len(s.list) {
		return domgl.Guideline{}, fmt.Errorf("%w: index %d, have %d", domain.ErrGuidelineNotFound, index, len(s.list))
	}
	removed := s.list[index]
	next := slices.Delete(slices.Clone(s.list), index, index+1)
	if err := s.save(ctx, next); err != nil {
		return domgl.Guideline{}, err
	}
	return removed, nil
}

// Compile turns the current guidelines into hard filters and soft bias for subject.
func (s *Service) Compile(ctx context.Context, subject *property.Property, now time.Time) (domgl.Compiled, error) {
	list, err := s.List(ctx)
	if err != nil {
		return domgl.Compiled{}, err
	}
	return domgl.Compile(list, subject, now, s.biasScale), nil
}

func (s *Service) append(ctx context.Context, g domgl.Guideline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return err
	}
	next := append(slices.Clone(s.list), g)
	return s.save(ctx, next)
}

// load must be called with mu held.
func (s *Service) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	list, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load guidelines: %w", err)
	}
	s.list = list
	s.loaded = true
	return nil
}

// save must be called with mu held.
func (s *Service) save(ctx context.Context, next []domgl.Guideline) error {
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save guidelines: %w", err)
	}
	s.list = next
	return nil
}
