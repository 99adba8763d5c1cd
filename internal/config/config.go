package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/compdex/internal/domain/property"
)

// Config holds the compdex configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Search     SearchConfig     `yaml:"search"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Learning   LearningConfig   `yaml:"learning"`
	Estimation EstimationConfig `yaml:"estimation"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Providers  []ProviderConfig `yaml:"providers"` // descending trust order
	Candidates []ProviderConfig `yaml:"candidates"`
	Guidelines GuidelinesConfig `yaml:"guidelines"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverFile   = "file"
)

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Driver            string   `yaml:"driver"` // valkey, redis, file (default: file)
	Addrs             []string `yaml:"addrs"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	DB                int      `yaml:"db"`
	Dir               string   `yaml:"dir"` // file driver only
	KeyPrefix         string   `yaml:"key_prefix"`
	SelectionTTLHours int      `yaml:"selection_ttl_hours"` // 0 = keep forever
	ReadinessTimeout  int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds the comparable search defaults.
type SearchConfig struct {
	MaxDistanceMiles float64  `yaml:"max_distance_miles"`
	MaxAgeDays       int      `yaml:"max_age_days"`
	MinScore         *float64 `yaml:"min_score"` // default 0.7; 0 keeps every candidate
	MaxComps         int      `yaml:"max_comps"`
	LenientFactor    float64  `yaml:"lenient_factor"`
}

// ScoringConfig holds similarity parameters.
type ScoringConfig struct {
	Weights           map[string]float64 `yaml:"weights"`           // empty = built-in baseline
	BedroomTolerance  *int               `yaml:"bedroom_tolerance"` // default 2; 0 = exact count only
	BathroomTolerance float64            `yaml:"bathroom_tolerance"`
	AgeBandYears      float64            `yaml:"age_band_years"`
	GoodMatch         float64            `yaml:"good_match"`
}

// LearningConfig holds weight learner settings.
type LearningConfig struct {
	Enabled      *bool   `yaml:"enabled"` // default true
	LearningRate float64 `yaml:"learning_rate"`
	MinWeight    float64 `yaml:"min_weight"`
	MaxWeight    float64 `yaml:"max_weight"`
}

// IsEnabled reports whether feedback adjusts weights.
func (l LearningConfig) IsEnabled() bool { return l.Enabled == nil || *l.Enabled }

// EstimationConfig holds the room estimator settings.
type EstimationConfig struct {
	Enabled bool                `yaml:"enabled"`
	Tiers   []property.RoomTier `yaml:"tiers"`
}

// Resolver modes.
const (
	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
)

// ResolverConfig holds field resolution settings.
type ResolverConfig struct {
	Mode     string   `yaml:"mode"`     // sequential (default), concurrent
	Required []string `yaml:"required"` // fields that end a sequential chain once filled
}

// Provider kinds.
const (
	KindHTTP    = "http"
	KindFixture = "fixture"
)

// ProviderConfig describes one data provider or candidate source.
type ProviderConfig struct {
	Name       string            `yaml:"name"`
	Kind       string            `yaml:"kind"`    // http, fixture
	Enabled    *bool             `yaml:"enabled"` // default true
	Regions    []string          `yaml:"regions"`
	Targets    []string          `yaml:"targets"`
	BaseURL    string            `yaml:"base_url"`
	APIKey     string            `yaml:"api_key"`
	AuthHeader string            `yaml:"auth_header"` // default Authorization (Bearer)
	FieldMap   map[string]string `yaml:"field_map"`   // property field -> JSON key
	RatePerSec float64           `yaml:"rate_per_sec"` // 0 = unlimited
	Burst      int               `yaml:"burst"`
	TimeoutSec int               `yaml:"timeout_sec"`
	Path       string            `yaml:"path"` // fixture file
}

// IsEnabled reports whether the provider is consulted.
func (p ProviderConfig) IsEnabled() bool { return p.Enabled == nil || *p.Enabled }

// GuidelinesConfig holds guideline engine settings.
type GuidelinesConfig struct {
	BiasScale   float64           `yaml:"bias_scale"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
}

// InterpreterConfig holds the LLM fallback for guideline instructions.
type InterpreterConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`

	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	BudgetAction      string `yaml:"budget_action"`       // warn (default), reject
}

// HasBudget reports whether any token limit is set.
func (c InterpreterConfig) HasBudget() bool {
	return c.DailyTokenLimit > 0 || c.MonthlyTokenLimit > 0
}

// Interpreter budget actions.
const (
	BudgetActionWarn   = "warn"
	BudgetActionReject = "reject"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	cfg, err := Decode(data)
	if err != nil {
		return Config{}, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Decode expands ${VAR} references and decodes YAML without defaults or
// validation, for callers that layer their own overrides on top.
func Decode(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// DecodeFile reads and decodes a configuration file without validating it.
func DecodeFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Decode(data)
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverFile
	}
	if c.Database.Driver == DriverFile && c.Database.Dir == "" {
		c.Database.Dir = "data"
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "compdex"
	}
	c.Database.KeyPrefix = strings.TrimSuffix(c.Database.KeyPrefix, ":")
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.MaxDistanceMiles <= 0 {
		c.Search.MaxDistanceMiles = 5
	}
	if c.Search.MaxAgeDays <= 0 {
		c.Search.MaxAgeDays = 180
	}
	if c.Search.MinScore == nil {
		c.Search.MinScore = valueOf(0.7)
	}
	if c.Search.MaxComps <= 0 {
		c.Search.MaxComps = 10
	}
	if c.Search.LenientFactor <= 0 {
		c.Search.LenientFactor = 0.8
	}
	if c.Scoring.BedroomTolerance == nil {
		c.Scoring.BedroomTolerance = valueOf(2)
	}
	if c.Scoring.BathroomTolerance <= 0 {
		c.Scoring.BathroomTolerance = 1.0
	}
	if c.Scoring.AgeBandYears <= 0 {
		c.Scoring.AgeBandYears = 30
	}
	if c.Scoring.GoodMatch <= 0 {
		c.Scoring.GoodMatch = 0.7
	}
	if c.Learning.LearningRate <= 0 {
		c.Learning.LearningRate = 0.1
	}
	if c.Learning.MinWeight <= 0 {
		c.Learning.MinWeight = 0.01
	}
	if c.Learning.MaxWeight <= 0 {
		c.Learning.MaxWeight = 0.6
	}
	if len(c.Estimation.Tiers) == 0 {
		c.Estimation.Tiers = property.DefaultRoomTiers()
	}
	if c.Resolver.Mode == "" {
		c.Resolver.Mode = ModeSequential
	}
	for _, list := range [][]ProviderConfig{c.Providers, c.Candidates} {
		for i := range list {
			if list[i].TimeoutSec <= 0 {
				list[i].TimeoutSec = 10
			}
			if list[i].AuthHeader == "" {
				list[i].AuthHeader = "Authorization"
			}
		}
	}
	if c.Guidelines.BiasScale <= 0 {
		c.Guidelines.BiasScale = 0.1
	}
	if c.Guidelines.Interpreter.Model == "" {
		c.Guidelines.Interpreter.Model = "gpt-4o-mini"
	}
	if c.Guidelines.Interpreter.TimeoutSec <= 0 {
		c.Guidelines.Interpreter.TimeoutSec = 15
	}
	if c.Guidelines.Interpreter.BudgetAction == "" {
		c.Guidelines.Interpreter.BudgetAction = BudgetActionWarn
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
		if c.Database.DB < 0 {
			return fmt.Errorf("database.db must not be negative, got %d", c.Database.DB)
		}
	case DriverFile:
		if c.Database.Dir == "" {
			return fmt.Errorf("database.dir is required for driver %q", DriverFile)
		}
	default:
		return fmt.Errorf("database.driver must be one of valkey, redis, file, got %q", c.Database.Driver)
	}

	if s := c.Search.MinScore; s != nil && (*s < 0 || *s > 1) {
		return fmt.Errorf("search.min_score must be in [0,1], got %v", *s)
	}
	if t := c.Scoring.BedroomTolerance; t != nil && *t < 0 {
		return fmt.Errorf("scoring.bedroom_tolerance must not be negative, got %d", *t)
	}
	if c.Search.LenientFactor > 1 {
		return fmt.Errorf("search.lenient_factor must be in (0,1], got %v", c.Search.LenientFactor)
	}
	if c.Learning.MinWeight >= c.Learning.MaxWeight {
		return fmt.Errorf("learning.min_weight (%v) must be below learning.max_weight (%v)",
			c.Learning.MinWeight, c.Learning.MaxWeight)
	}

	switch c.Resolver.Mode {
	case ModeSequential, ModeConcurrent:
	default:
		return fmt.Errorf("resolver.mode must be %q or %q, got %q", ModeSequential, ModeConcurrent, c.Resolver.Mode)
	}
	for _, f := range c.Resolver.Required {
		if !isField(f) {
			return fmt.Errorf("resolver.required: unknown field %q", f)
		}
	}

	enabled := 0
	if err := validateProviders("providers", c.Providers, &enabled); err != nil {
		return err
	}
	if enabled == 0 {
		return fmt.Errorf("providers: at least one enabled provider is required")
	}
	var candidates int
	if err := validateProviders("candidates", c.Candidates, &candidates); err != nil {
		return err
	}

	if c.Guidelines.Interpreter.Enabled && c.Guidelines.Interpreter.APIKey == "" {
		return fmt.Errorf("guidelines.interpreter.api_key is required when the interpreter is enabled")
	}
	switch ic := c.Guidelines.Interpreter; {
	case ic.DailyTokenLimit < 0 || ic.MonthlyTokenLimit < 0:
		return fmt.Errorf("guidelines.interpreter token limits must not be negative")
	case ic.BudgetAction != BudgetActionWarn && ic.BudgetAction != BudgetActionReject:
		return fmt.Errorf("guidelines.interpreter.budget_action must be %q or %q, got %q",
			BudgetActionWarn, BudgetActionReject, ic.BudgetAction)
	}
	return nil
}

func validateProviders(section string, list []ProviderConfig, enabled *int) error {
	seen := make(map[string]struct{}, len(list))
	for i, p := range list {
		if p.Name == "" {
			return fmt.Errorf("%s[%d].name is required", section, i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%s: duplicate name %q", section, p.Name)
		}
		seen[p.Name] = struct{}{}

		switch p.Kind {
		case KindHTTP:
			if p.BaseURL == "" {
				return fmt.Errorf("%s.%s.base_url is required for kind %q", section, p.Name, KindHTTP)
			}
		case KindFixture:
			if p.Path == "" {
				return fmt.Errorf("%s.%s.path is required for kind %q", section, p.Name, KindFixture)
			}
		default:
			return fmt.Errorf("%s.%s.kind must be %q or %q, got %q", section, p.Name, KindHTTP, KindFixture, p.Kind)
		}
		for _, f := range p.Targets {
			if !isField(f) {
				return fmt.Errorf("%s.%s.targets: unknown field %q", section, p.Name, f)
			}
		}
		for f := range p.FieldMap {
			if !isField(f) {
				return fmt.Errorf("%s.%s.field_map: unknown field %q", section, p.Name, f)
			}
		}
		if p.IsEnabled() {
			*enabled++
		}
	}
	return nil
}

func isField(name string) bool {
	for _, f := range property.Fields {
		if string(f) == name {
			return true
		}
	}
	return false
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

func valueOf[T any](v T) *T { return &v }
