package compdex

import (
	"context"
	"fmt"
	"time"
)

// GuidelineService manages selection guidelines.
type GuidelineService struct {
	svc compsUseCase
	obs *observer
}

// List returns the guidelines in insertion order.
func (s *GuidelineService) List(ctx context.Context) (_ []Guideline, err error) {
	start := time.Now()
	defer func() { s.obs.observe("guideline.list", start, err) }()

	list, err := s.svc.ListGuidelines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list guidelines: %w", err)
	}
	return list, nil
}

// Add appends a structured guideline.
func (s *GuidelineService) Add(
	ctx context.Context, description string, criteria Criteria, priority float64,
) (_ Guideline, err error) {
	start := time.Now()
	defer func() { s.obs.observe("guideline.add", start, err) }()

	g, err := s.svc.AddGuideline(ctx, description, criteria, priority)
	if err != nil {
		return Guideline{}, fmt.Errorf("add guideline: %w", err)
	}
	return g, nil
}

// Instruct parses a free-text instruction such as "must be within 1 mile"
// and appends the resulting guideline. Text nothing understands is still
// stored, with empty criteria.
func (s *GuidelineService) Instruct(ctx context.Context, text string) (_ Guideline, err error) {
	start := time.Now()
	defer func() { s.obs.observe("guideline.instruct", start, err) }()

	g, err := s.svc.AddInstruction(ctx, text)
	if err != nil {
		return Guideline{}, fmt.Errorf("add instruction: %w", err)
	}
	return g, nil
}

// Remove deletes the guideline at index and returns it.
func (s *GuidelineService) Remove(ctx context.Context, index int) (_ Guideline, err error) {
	start := time.Now()
	defer func() { s.obs.observe("guideline.remove", start, err) }()

	g, err := s.svc.RemoveGuideline(ctx, index)
	if err != nil {
		return Guideline{}, fmt.Errorf("remove guideline: %w", err)
	}
	return g, nil
}
