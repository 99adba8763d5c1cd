package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every compdex metric.
const Namespace = "compdex"

// Comparable-search Prometheus metrics.
var (
	ProviderFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_fetch_total",
			Help:      "Provider fetch attempts by outcome",
		},
		[]string{"provider", "outcome"}, // data / empty / error / skipped
	)

	ProviderFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "provider_fetch_duration_seconds",
			Help:      "Provider fetch duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	ProviderThrottledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_throttled_total",
			Help:      "Provider requests delayed by the client-side rate limiter",
		},
		[]string{"provider"},
	)

	FieldsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fields_resolved_total",
			Help:      "Property fields filled during resolution, by source",
		},
		[]string{"source"},
	)

	CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "candidates_total",
			Help:      "Candidates seen per selection stage",
		},
		[]string{"stage"}, // fetched / guideline / distance / age / score / self / ranked
	)

	GuidelinesParsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "guidelines_parsed_total",
			Help:      "Natural-language guideline instructions by parse result",
		},
		[]string{"result"}, // rules / interpreter / inert
	)

	InterpreterTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "interpreter_tokens_total",
			Help:      "Tokens consumed by the guideline interpreter",
		},
	)

	InterpreterBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "interpreter_budget_tokens_remaining",
			Help:      "Interpreter tokens left in the budget, -1 if unlimited",
		},
		[]string{"period"}, // day / month
	)

	FeedbackRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "feedback_records_total",
			Help:      "Feedback records accepted",
		},
	)

	TrainingStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "training_steps_total",
			Help:      "Weight update steps applied",
		},
		[]string{"mode"}, // online / batch
	)

	FeatureWeight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "feature_weight",
			Help:      "Current persisted similarity weight per feature",
		},
		[]string{"feature"},
	)
)

var compsMetricsRegistered bool

// RegisterCompsMetrics registers comparable-search metrics. Must be called once from main.
func RegisterCompsMetrics() {
	if compsMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderFetchTotal)
	prometheus.MustRegister(ProviderFetchDuration)
	prometheus.MustRegister(ProviderThrottledTotal)
	prometheus.MustRegister(FieldsResolvedTotal)
	prometheus.MustRegister(CandidatesTotal)
	prometheus.MustRegister(GuidelinesParsedTotal)
	prometheus.MustRegister(InterpreterTokensTotal)
	prometheus.MustRegister(InterpreterBudgetTokensRemaining)
	prometheus.MustRegister(FeedbackRecordsTotal)
	prometheus.MustRegister(TrainingStepsTotal)
	prometheus.MustRegister(FeatureWeight)
	compsMetricsRegistered = true
}
