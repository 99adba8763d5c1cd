package compdex

import (
	"context"
	"fmt"
	"time"
)

// RecordFeedback rates a previous selection. quality must be in [0,1].
// Without candidate ids every ranked comparable of the selection counts
// as accepted.
func (c *Client) RecordFeedback(
	ctx context.Context, selectionID string, quality float64, candidateIDs ...string,
) (_ FeedbackRecord, err error) {
	start := time.Now()
	defer func() { c.obs.observe("feedback.record", start, err) }()

	rec, err := c.comps.RecordFeedback(ctx, selectionID, quality, candidateIDs)
	if err != nil {
		return FeedbackRecord{}, fmt.Errorf("record feedback: %w", err)
	}
	return rec, nil
}

// Train replays the whole feedback log from the baseline weights.
func (c *Client) Train(ctx context.Context) (_ TrainSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("feedback.train", start, err) }()

	sum, err := c.comps.Train(ctx)
	if err != nil {
		return TrainSummary{}, fmt.Errorf("train: %w", err)
	}
	return sum, nil
}

// Weights returns the current scoring weights.
func (c *Client) Weights(ctx context.Context) (_ Weights, err error) {
	start := time.Now()
	defer func() { c.obs.observe("weights.get", start, err) }()

	w, err := c.comps.Weights(ctx)
	if err != nil {
		return nil, fmt.Errorf("get weights: %w", err)
	}
	return w, nil
}
