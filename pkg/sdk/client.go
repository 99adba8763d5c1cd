package compdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/app"
	"github.com/kailas-cloud/compdex/internal/config"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
	compsuc "github.com/kailas-cloud/compdex/internal/usecase/comps"
	"github.com/kailas-cloud/compdex/internal/usecase/learn"
)

// placeholderPort satisfies config validation; the embedded client never listens.
const placeholderPort = 8080

// Internal interface for substitution in tests.
type compsUseCase interface {
	FindComparables(ctx context.Context, q property.Query, opts compsuc.Options) (compsuc.Result, error)
	RecordFeedback(ctx context.Context, selectionID string, quality float64, candidateIDs []string) (FeedbackRecord, error)
	Train(ctx context.Context) (learn.TrainSummary, error)
	Weights(ctx context.Context) (scoring.Weights, error)
	EstimateValue(subject *property.Property, comps []compsuc.Comparable) Valuation
	ListGuidelines(ctx context.Context) ([]domgl.Guideline, error)
	AddGuideline(ctx context.Context, description string, criteria domgl.Criteria, priority float64) (domgl.Guideline, error)
	AddInstruction(ctx context.Context, text string) (domgl.Guideline, error)
	RemoveGuideline(ctx context.Context, index int) (domgl.Guideline, error)
}

// Client is the compdex SDK entry point.
type Client struct {
	app    *app.App
	comps  compsUseCase
	health healthUseCase
	usage  usageUseCase
	obs    *observer
}

// New builds an embedded compdex instance. The provided context is used
// for the initial storage readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, o := range opts {
		o.apply(cc)
	}

	cfg, err := buildConfig(cc)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	serviceLogger := cc.serviceLogger
	if serviceLogger == nil {
		serviceLogger = zap.NewNop()
	}
	a, err := app.Build(ctx, cfg, serviceLogger)
	if err != nil {
		return nil, fmt.Errorf("compdex: %w", err)
	}
	return &Client{app: a, comps: a.Comps, health: a.Health, usage: a.Usage, obs: obs}, nil
}

// buildConfig layers the options over the optional config file.
func buildConfig(cc *clientConfig) (config.Config, error) {
	var cfg config.Config
	if cc.configPath != "" {
		var err error
		if cfg, err = config.DecodeFile(cc.configPath); err != nil {
			return config.Config{}, fmt.Errorf("compdex: %w", err)
		}
	}

	if cc.driver != "" {
		cfg.Database.Driver = cc.driver
		cfg.Database.Addrs = cc.addrs
		cfg.Database.Password = cc.password
		cfg.Database.Dir = cc.dataDir
	}
	for _, p := range cc.providers {
		cfg.Providers = append(cfg.Providers, config.ProviderConfig{
			Name:    p.name,
			Kind:    p.kind,
			Path:    p.path,
			BaseURL: p.baseURL,
			APIKey:  p.apiKey,
			Regions: p.regions,
		})
	}
	if cc.learning != nil {
		cfg.Learning.Enabled = cc.learning
	}
	if cc.interpreterKey != "" {
		cfg.Guidelines.Interpreter.Enabled = true
		cfg.Guidelines.Interpreter.APIKey = cc.interpreterKey
		cfg.Guidelines.Interpreter.Model = cc.interpreterModel
	}
	if b := cc.interpreterBudget; b != nil {
		cfg.Guidelines.Interpreter.DailyTokenLimit = b.daily
		cfg.Guidelines.Interpreter.MonthlyTokenLimit = b.monthly
		cfg.Guidelines.Interpreter.BudgetAction = config.BudgetActionWarn
		if b.reject {
			cfg.Guidelines.Interpreter.BudgetAction = config.BudgetActionReject
		}
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = placeholderPort
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		if len(cfg.Providers) == 0 {
			return config.Config{}, errors.New("compdex: at least one provider required (use WithFixtureProvider or WithHTTPProvider)")
		}
		return config.Config{}, fmt.Errorf("compdex: invalid configuration: %w", err)
	}
	return cfg, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.app != nil {
		c.app.Close()
	}
}

// FindComparables resolves the subject and returns its ranked comparables.
// An empty Comparables is a valid outcome.
func (c *Client) FindComparables(ctx context.Context, q Query, opts ...SearchOption) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observeFind(start, res, err) }()

	sc := &searchConfig{}
	for _, o := range opts {
		o.applySearch(sc)
	}

	res, err = c.comps.FindComparables(ctx, q, compsuc.Options{
		MaxDistanceMiles: sc.radiusMiles,
		MaxAgeDays:       sc.maxAgeDays,
		MinScore:         sc.minScore,
		MaxComps:         sc.maxComps,
		LenientFactor:    sc.lenientFactor,
	})
	if err != nil {
		return Result{}, fmt.Errorf("find comparables: %w", err)
	}
	return res, nil
}

// Estimate derives a value for subject from comps.
func (c *Client) Estimate(subject *Property, comps []Comparable) Valuation {
	start := time.Now()
	defer func() { c.obs.observe("comparables.estimate", start, nil) }()

	return c.comps.EstimateValue(subject, comps)
}

// Guidelines returns the guideline service.
func (c *Client) Guidelines() *GuidelineService {
	return &GuidelineService{svc: c.comps, obs: c.obs}
}
