package scoring

// Result is the similarity of one candidate to the subject.
type Result struct {
	CandidateID   string              `json:"candidate_id"`
	Score         float64             `json:"score"`
	SubScores     map[Feature]float64 `json:"sub_scores"`
	Reasons       []string            `json:"reasons"`
	DistanceMiles *float64            `json:"distance_miles,omitempty"`
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// AverageSubScores averages each feature's sub-score across snapshots.
// Features absent from a snapshot count as 0.
func AverageSubScores(snapshots []map[Feature]float64) map[Feature]float64 {
	avg := make(map[Feature]float64, len(Features))
	if len(snapshots) == 0 {
		return avg
	}
	for _, f := range Features {
		var s float64
		for _, snap := range snapshots {
			s += snap[f]
		}
		avg[f] = s / float64(len(snapshots))
	}
	return avg
}
