package compdex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/compdex/internal/domain"
)

// Operation outcomes used as the status label.
const (
	statusOK       = "ok"
	statusInvalid  = "invalid"
	statusNotFound = "not_found"
	statusError    = "error"
)

type sdkMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	comparables prometheus.Histogram
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compdex",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK calls by operation and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "compdex",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		comparables: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "compdex",
			Subsystem: "sdk",
			Name:      "comparables_returned",
			Help:      "Comparables returned per successful find.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 25},
		}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.comparables); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points c at the collector a previous
// client registered under the same name.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("compdex: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("compdex: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// outcome maps an error to a status label. Caller mistakes are kept apart
// from infrastructure failures so alerts can ignore them.
func outcome(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, domain.ErrInvalidFeedbackScore),
		errors.Is(err, domain.ErrInvalidGuideline),
		errors.Is(err, domain.ErrUnknownCandidate):
		return statusInvalid
	case errors.Is(err, domain.ErrSelectionNotFound),
		errors.Is(err, domain.ErrGuidelineNotFound):
		return statusNotFound
	default:
		return statusError
	}
}

// observer logs and counts SDK calls. A nil observer does nothing.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error, attrs ...slog.Attr) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := outcome(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}

	ctx := context.Background()
	attrs = append(attrs, slog.String("op", op), slog.Duration("duration", dur))
	switch status {
	case statusOK:
		o.logger.LogAttrs(ctx, slog.LevelDebug, "compdex call completed", attrs...)
	case statusError:
		o.logger.LogAttrs(ctx, slog.LevelWarn, "compdex call failed", append(attrs, slog.Any("error", err))...)
	default:
		o.logger.LogAttrs(ctx, slog.LevelInfo, "compdex call rejected",
			append(attrs, slog.String("status", status), slog.Any("error", err))...)
	}
}

// observeFind also records how many comparables a successful find returned.
func (o *observer) observeFind(start time.Time, res Result, err error) {
	if o == nil {
		return
	}
	if err == nil && o.metrics != nil {
		o.metrics.comparables.Observe(float64(len(res.Comparables)))
	}
	o.observe("comparables.find", start, err,
		slog.String("selection_id", res.SelectionID),
		slog.Int("comparables", len(res.Comparables)),
	)
}
