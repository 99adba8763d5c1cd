package compdex

import "github.com/kailas-cloud/compdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery         = domain.ErrInvalidQuery
	ErrProviderUnavailable  = domain.ErrProviderUnavailable
	ErrNoProviders          = domain.ErrNoProviders
	ErrInvalidFeedbackScore = domain.ErrInvalidFeedbackScore
	ErrGuidelineNotFound    = domain.ErrGuidelineNotFound
	ErrSelectionNotFound    = domain.ErrSelectionNotFound
	ErrInvalidGuideline     = domain.ErrInvalidGuideline
	ErrLearningDisabled     = domain.ErrLearningDisabled
	ErrUnknownCandidate     = domain.ErrUnknownCandidate

	ErrInterpreterBudgetExceeded = domain.ErrInterpreterBudgetExceeded
)
