// Package app wires storage, providers and use cases into a running
// compdex instance. Both the HTTP server and the embedded SDK build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/config"
	"github.com/kailas-cloud/compdex/internal/db"
	dbFile "github.com/kailas-cloud/compdex/internal/db/file"
	dbRedis "github.com/kailas-cloud/compdex/internal/db/redis"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
	"github.com/kailas-cloud/compdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/compdex/internal/repository/budget"
	feedbackrepo "github.com/kailas-cloud/compdex/internal/repository/feedback"
	guidelinerepo "github.com/kailas-cloud/compdex/internal/repository/guideline"
	selectionrepo "github.com/kailas-cloud/compdex/internal/repository/selection"
	weightsrepo "github.com/kailas-cloud/compdex/internal/repository/weights"
	openaiInt "github.com/kailas-cloud/compdex/internal/transport/openai"
	"github.com/kailas-cloud/compdex/internal/transport/provider"
	compsuc "github.com/kailas-cloud/compdex/internal/usecase/comps"
	guidelineuc "github.com/kailas-cloud/compdex/internal/usecase/guideline"
	healthuc "github.com/kailas-cloud/compdex/internal/usecase/health"
	"github.com/kailas-cloud/compdex/internal/usecase/learn"
	"github.com/kailas-cloud/compdex/internal/usecase/rank"
	"github.com/kailas-cloud/compdex/internal/usecase/resolve"
	"github.com/kailas-cloud/compdex/internal/usecase/score"
	usageuc "github.com/kailas-cloud/compdex/internal/usecase/usage"
	"github.com/kailas-cloud/compdex/internal/usecase/valuation"
)

const defaultReadinessTimeout = 10 * time.Second

// App is a wired compdex instance.
type App struct {
	Store  db.Store
	Comps  *compsuc.Service
	Health *healthuc.Service
	Usage  *usageuc.Service
}

// Close releases the store.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
}

// NewStore opens the configured storage backend.
func NewStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		return s, nil
	case config.DriverFile:
		s, err := dbFile.NewStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("create file store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Build opens the store, waits for it and wires every service.
// cfg must already be validated.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := NewStore(cfg.Database)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	a, err := Wire(ctx, store, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// Wire builds the services on top of an open store.
func Wire(ctx context.Context, store db.Store, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.RegisterCompsMetrics()

	checkers := make(map[string]healthuc.Checker)

	sources, err := buildSources(cfg.Providers, logger, checkers)
	if err != nil {
		return nil, err
	}
	resolver, err := resolve.New(sources, resolve.Config{
		Mode:     resolve.Mode(cfg.Resolver.Mode),
		Required: toFields(cfg.Resolver.Required),
		Estimation: resolve.EstimationConfig{
			Enabled: cfg.Estimation.Enabled,
			Tiers:   cfg.Estimation.Tiers,
		},
	}, logger.Named("resolve"))
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	candidates, err := buildCandidates(cfg, sources, logger, checkers)
	if err != nil {
		return nil, err
	}

	baseline := scoring.DefaultWeights()
	if len(cfg.Scoring.Weights) > 0 {
		raw := make(map[scoring.Feature]float64, len(cfg.Scoring.Weights))
		for name, v := range cfg.Scoring.Weights {
			raw[scoring.Feature(name)] = v
		}
		if baseline, err = scoring.NewWeights(raw); err != nil {
			return nil, fmt.Errorf("scoring.weights: %w", err)
		}
	}

	prefix := cfg.Database.KeyPrefix
	weights := weightsrepo.New(store, prefix)
	guidelines := guidelinerepo.New(store, prefix)
	feedbackLog := feedbackrepo.New(store, prefix)
	selections := selectionrepo.New(store, prefix, time.Duration(cfg.Database.SelectionTTLHours)*time.Hour)

	// A nil *Interpreter wrapped in the interface would not compare equal to nil.
	var interpreter guidelineuc.Interpreter
	var budget usageuc.BudgetReader
	if ic := cfg.Guidelines.Interpreter; ic.Enabled {
		in := openaiInt.NewInterpreter(&openaiInt.Config{
			APIKey:  ic.APIKey,
			BaseURL: ic.BaseURL,
			Model:   ic.Model,
			Timeout: time.Duration(ic.TimeoutSec) * time.Second,
			Logger:  logger.Named("interpreter"),
		})
		checkers["interpreter"] = in

		// Tokens are always counted; limits of 0 never block.
		tracker := guidelineuc.NewBudgetTracker(
			ic.DailyTokenLimit, ic.MonthlyTokenLimit,
			guidelineuc.BudgetAction(ic.BudgetAction), logger.Named("budget"),
		).WithStore(ctx, budgetrepo.New(store, prefix, "interpreter"))
		if ic.HasBudget() {
			logger.Info("Interpreter token budget",
				zap.Int64("daily_limit", ic.DailyTokenLimit),
				zap.Int64("monthly_limit", ic.MonthlyTokenLimit),
				zap.String("action", ic.BudgetAction),
			)
		}
		interpreter = guidelineuc.NewMeteredInterpreter(in, tracker, logger.Named("interpreter"))
		budget = tracker
	}

	learner := learn.New(weights, feedbackLog, learn.Config{
		Enabled:      cfg.Learning.IsEnabled(),
		LearningRate: cfg.Learning.LearningRate,
		MinWeight:    cfg.Learning.MinWeight,
		MaxWeight:    cfg.Learning.MaxWeight,
		Baseline:     baseline,
	}, logger.Named("learn"))

	scorer := score.New(score.Config{
		MaxDistanceMiles:  cfg.Search.MaxDistanceMiles,
		BedroomTolerance:  *cfg.Scoring.BedroomTolerance,
		BathroomTolerance: cfg.Scoring.BathroomTolerance,
		AgeBandYears:      cfg.Scoring.AgeBandYears,
		GoodMatch:         cfg.Scoring.GoodMatch,
	})

	comps := compsuc.New(compsuc.Deps{
		Resolver:   resolver,
		Candidates: candidates,
		Guidelines: guidelineuc.New(
			guidelines, interpreter, domgl.NewParser(domgl.DefaultRules()),
			cfg.Guidelines.BiasScale, logger.Named("guideline"),
		),
		Scorer:     scorer,
		Ranker:     rank.New(logger.Named("rank")),
		Learner:    learner,
		Valuer:     valuation.New(valuation.DefaultThresholds(), valuation.DefaultAdjustmentRates()),
		Selections: selections,
		Feedback:   feedbackLog,
	}, logger.Named("comps")).WithDefaults(compsuc.Options{
		MaxDistanceMiles: cfg.Search.MaxDistanceMiles,
		MaxAgeDays:       cfg.Search.MaxAgeDays,
		MinScore:         cfg.Search.MinScore,
		MaxComps:         cfg.Search.MaxComps,
		LenientFactor:    cfg.Search.LenientFactor,
	})

	return &App{
		Store:  store,
		Comps:  comps,
		Health: healthuc.New(store, checkers),
		Usage:  usageuc.New(budget),
	}, nil
}

// connector is what every provider kind implements.
type connector interface {
	resolve.Provider
	compsuc.CandidateSource
}

func newConnector(pc config.ProviderConfig, logger *zap.Logger) (connector, error) {
	switch pc.Kind {
	case config.KindFixture:
		f, err := provider.LoadFixture(pc.Name, pc.Path, pc.Regions)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		logger.Info("Loaded fixture provider", zap.String("provider", pc.Name), zap.Int("records", f.Len()))
		return f, nil
	case config.KindHTTP:
		fieldMap := make(map[property.Field]string, len(pc.FieldMap))
		for f, key := range pc.FieldMap {
			fieldMap[property.Field(f)] = key
		}
		h, err := provider.NewHTTP(provider.HTTPConfig{
			Name:       pc.Name,
			BaseURL:    pc.BaseURL,
			APIKey:     pc.APIKey,
			AuthHeader: pc.AuthHeader,
			FieldMap:   fieldMap,
			Regions:    pc.Regions,
			RatePerSec: pc.RatePerSec,
			Burst:      pc.Burst,
			Timeout:    time.Duration(pc.TimeoutSec) * time.Second,
			Logger:     logger.Named(pc.Name),
		})
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		return h, nil
	default:
		return nil, fmt.Errorf("provider %s: unknown kind %q", pc.Name, pc.Kind)
	}
}

func buildSources(list []config.ProviderConfig, logger *zap.Logger, checkers map[string]healthuc.Checker) ([]resolve.Source, error) {
	sources := make([]resolve.Source, 0, len(list))
	for _, pc := range list {
		c, err := newConnector(pc, logger)
		if err != nil {
			return nil, err
		}
		if hc, ok := c.(healthuc.Checker); ok && pc.IsEnabled() {
			checkers["provider:"+pc.Name] = hc
		}
		sources = append(sources, resolve.Source{
			Provider: c,
			Enabled:  pc.IsEnabled(),
			Regions:  pc.Regions,
			Targets:  toFields(pc.Targets),
		})
	}
	return sources, nil
}

// buildCandidates returns the configured candidate sources. Without a
// candidates section every enabled provider that lists comparables is used.
func buildCandidates(
	cfg config.Config, sources []resolve.Source, logger *zap.Logger, checkers map[string]healthuc.Checker,
) ([]compsuc.CandidateSource, error) {
	var out []compsuc.CandidateSource
	if len(cfg.Candidates) == 0 {
		for _, s := range sources {
			if cs, ok := s.Provider.(compsuc.CandidateSource); ok && s.Enabled {
				out = append(out, cs)
			}
		}
		return out, nil
	}
	for _, pc := range cfg.Candidates {
		if !pc.IsEnabled() {
			continue
		}
		c, err := newConnector(pc, logger)
		if err != nil {
			return nil, err
		}
		if hc, ok := c.(healthuc.Checker); ok {
			checkers["candidates:"+pc.Name] = hc
		}
		out = append(out, c)
	}
	return out, nil
}

func toFields(names []string) []property.Field {
	if len(names) == 0 {
		return nil
	}
	out := make([]property.Field, len(names))
	for i, n := range names {
		out[i] = property.Field(n)
	}
	return out
}
