package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a subject query without any usable identity.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrProviderUnavailable signals a provider network, auth or parse failure.
	// The resolver treats it as absence of data.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrNoProviders signals that no provider is enabled (configuration error).
	ErrNoProviders = errors.New("no providers enabled")
	// ErrInvalidFeedbackScore signals a feedback quality outside [0,1].
	ErrInvalidFeedbackScore = errors.New("invalid feedback score")
	// ErrGuidelineNotFound signals a guideline index out of range.
	ErrGuidelineNotFound = errors.New("guideline not found")
	// ErrSelectionNotFound signals an unknown or expired selection reference.
	ErrSelectionNotFound = errors.New("selection not found")
	// ErrInvalidGuideline signals a structurally invalid guideline.
	ErrInvalidGuideline = errors.New("invalid guideline")
	// ErrUnknownCandidate signals feedback naming a candidate outside its selection.
	ErrUnknownCandidate = errors.New("candidate not in selection")
	// ErrLearningDisabled signals that feedback-driven learning is switched off.
	ErrLearningDisabled = errors.New("learning disabled")
	// ErrInterpreterBudgetExceeded signals a spent interpreter token budget.
	ErrInterpreterBudgetExceeded = errors.New("interpreter token budget exceeded")
)

// ProviderError wraps ErrProviderUnavailable with the provider name and cause.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrProviderUnavailable.Error(), e.Provider, e.Err)
}

// Unwrap allows errors.Is against both the sentinel and the cause.
func (e *ProviderError) Unwrap() []error { return []error{ErrProviderUnavailable, e.Err} }

// NewProviderError creates a provider failure error.
func NewProviderError(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}
