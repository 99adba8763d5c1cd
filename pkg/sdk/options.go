package compdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type providerSpec struct {
	name    string
	kind    string
	path    string
	baseURL string
	apiKey  string
	regions []string
}

type budgetSpec struct {
	daily, monthly int64
	reject         bool
}

type clientConfig struct {
	configPath string

	driver   string // "file", "valkey" or "redis"
	addrs    []string
	password string
	dataDir  string

	providers []providerSpec
	learning  *bool

	interpreterKey    string
	interpreterModel  string
	interpreterBudget *budgetSpec

	logger        *slog.Logger
	serviceLogger *zap.Logger
	metricsReg    prometheus.Registerer
}

// WithConfigFile loads a compdex YAML configuration. Options applied after
// it override the file.
func WithConfigFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.configPath = path
	})
}

// WithFileStore keeps weights, guidelines, feedback and selections in dir.
// This is the default, with dir "data".
func WithFileStore(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "file"
		c.dataDir = dir
	})
}

// WithValkey stores state in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores state in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithFixtureProvider appends a provider backed by a YAML fixture file.
// Providers are consulted in the order they are added.
func WithFixtureProvider(name, path string, regions ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.providers = append(c.providers, providerSpec{name: name, kind: "fixture", path: path, regions: regions})
	})
}

// WithHTTPProvider appends a JSON API provider. The key is sent as a
// Bearer token.
func WithHTTPProvider(name, baseURL, apiKey string, regions ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.providers = append(c.providers, providerSpec{
			name: name, kind: "http", baseURL: baseURL, apiKey: apiKey, regions: regions,
		})
	})
}

// WithLearning switches feedback-driven weight learning on or off.
// Learning is on by default.
func WithLearning(enabled bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.learning = &enabled
	})
}

// WithInterpreter enables the OpenAI fallback for guideline instructions
// the built-in rules do not understand. An empty model keeps the default.
func WithInterpreter(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.interpreterKey = apiKey
		c.interpreterModel = model
	})
}

// WithInterpreterBudget caps interpreter tokens per UTC day and month
// (0 = unlimited). With reject set, instructions past the cap are stored
// without criteria instead of calling the model; otherwise a warning is logged.
func WithInterpreterBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.interpreterBudget = &budgetSpec{daily: daily, monthly: monthly, reject: reject}
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithServiceLogger receives the logs of the embedded services, such as
// provider failures and unparsed guideline text. Silent by default.
func WithServiceLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.serviceLogger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
