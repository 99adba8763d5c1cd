// Package feedback models selections and the user's judgement of them.
package feedback

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
)

// Selection is the ranked outcome of one comparable search, kept so
// feedback can reference it later.
type Selection struct {
	ID        string           `json:"id"`
	SubjectID string           `json:"subject_id"`
	Results   []scoring.Result `json:"results"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewSelection assigns a fresh id.
func NewSelection(subjectID string, results []scoring.Result, now time.Time) Selection {
	return Selection{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Results:   results,
		CreatedAt: now.UTC(),
	}
}

// Record is one piece of feedback on a selection. SubScores snapshots the
// sub-scores of the chosen comps so the log alone is enough to retrain.
type Record struct {
	ID           string                        `json:"id"`
	SelectionID  string                        `json:"selection_id"`
	CandidateIDs []string                      `json:"candidate_ids"`
	SubScores    []map[scoring.Feature]float64 `json:"sub_scores"`
	Quality      float64                       `json:"quality"`
	Timestamp    time.Time                     `json:"timestamp"`
}

// ValidateQuality rejects scores outside [0,1].
func ValidateQuality(q float64) error {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return fmt.Errorf("%w: %v is outside [0,1]", domain.ErrInvalidFeedbackScore, q)
	}
	return nil
}

// NewRecord builds a record for the chosen candidates of sel. An empty
// candidateIDs means every ranked candidate was accepted. Unknown ids are an error.
func NewRecord(sel Selection, candidateIDs []string, quality float64, now time.Time) (Record, error) {
	if err := ValidateQuality(quality); err != nil {
		return Record{}, err
	}

	byID := make(map[string]scoring.Result, len(sel.Results))
	for _, r := range sel.Results {
		byID[r.CandidateID] = r
	}

	if len(candidateIDs) == 0 {
		candidateIDs = make([]string, 0, len(sel.Results))
		for _, r := range sel.Results {
			candidateIDs = append(candidateIDs, r.CandidateID)
		}
	}

	snaps := make([]map[scoring.Feature]float64, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		r, ok := byID[id]
		if !ok {
			return Record{}, fmt.Errorf("%w: candidate %q is not part of selection %s",
				domain.ErrUnknownCandidate, id, sel.ID)
		}
		snap := make(map[scoring.Feature]float64, len(r.SubScores))
		for f, v := range r.SubScores {
			snap[f] = v
		}
		snaps = append(snaps, snap)
	}

	return Record{
		ID:           uuid.NewString(),
		SelectionID:  sel.ID,
		CandidateIDs: candidateIDs,
		SubScores:    snaps,
		Quality:      quality,
		Timestamp:    now.UTC(),
	}, nil
}
