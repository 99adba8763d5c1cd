// Package openai interprets free-text guideline instructions through an
// OpenAI-compatible chat completion API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/domain"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/metrics"
)

// metricsLabel is the provider label used on fetch metrics.
const metricsLabel = "interpreter"

// Interpreter implements usecase/guideline.Interpreter.
type Interpreter struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	prompt  string
	logger  *zap.Logger
}

// Config holds the interpreter settings.
type Config struct {
	APIKey  string
	BaseURL string // empty = api.openai.com
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewInterpreter creates an interpreter.
func NewInterpreter(cfg *Config) *Interpreter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Interpreter{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		prompt:  systemPrompt(),
		logger:  logger,
	}
}

// Interpret asks the model for a JSON object of criteria. Unknown keys and
// null values in the reply are dropped; the remainder must validate.
func (i *Interpreter) Interpret(ctx context.Context, text string) (domgl.Criteria, error) {
	criteria, _, err := i.InterpretWithUsage(ctx, text)
	return criteria, err
}

// InterpretWithUsage is Interpret that also reports the total tokens billed,
// including for replies that fail to decode.
func (i *Interpreter) InterpretWithUsage(ctx context.Context, text string) (domgl.Criteria, int, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       i.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: i.prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := i.client.CreateChatCompletion(ctx, req)
	metrics.ProviderFetchDuration.WithLabelValues(metricsLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderFetchTotal.WithLabelValues(metricsLabel, "error").Inc()
		return nil, 0, parseAPIError(err)
	}
	tokens := resp.Usage.TotalTokens
	if len(resp.Choices) == 0 {
		metrics.ProviderFetchTotal.WithLabelValues(metricsLabel, "error").Inc()
		return nil, tokens, fmt.Errorf("empty completion: %w", domain.ErrProviderUnavailable)
	}

	criteria, dropped, err := decodeCriteria(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.ProviderFetchTotal.WithLabelValues(metricsLabel, "error").Inc()
		return nil, tokens, err
	}
	if len(dropped) > 0 {
		i.logger.Debug("interpreter returned unknown criteria",
			zap.Strings("keys", dropped),
			zap.String("instruction", text),
		)
	}

	outcome := "data"
	if len(criteria) == 0 {
		outcome = "empty"
	}
	metrics.ProviderFetchTotal.WithLabelValues(metricsLabel, outcome).Inc()
	return criteria, tokens, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (i *Interpreter) HealthCheck(ctx context.Context) error {
	if _, err := i.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// decodeCriteria parses a model reply. Fenced code blocks are tolerated.
func decodeCriteria(content string) (domgl.Criteria, []string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, nil, fmt.Errorf("decode interpreter reply: %w", err)
	}

	var dropped []string
	known := make(map[string]any, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		if !domgl.Key(k).IsValid() {
			dropped = append(dropped, k)
			continue
		}
		known[k] = v
	}

	data, err := json.Marshal(known)
	if err != nil {
		return nil, nil, fmt.Errorf("re-encode criteria: %w", err)
	}
	var c domgl.Criteria
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, nil, err
	}
	for k, v := range c {
		if k.IsFlag() && v == 0 {
			delete(c, k)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	return c, dropped, nil
}

func systemPrompt() string {
	names := make([]string, 0, 8)
	for _, k := range domgl.KnownKeys() {
		kind := "number"
		if k.IsFlag() {
			kind = "boolean"
		}
		names = append(names, fmt.Sprintf("- %s (%s)", k, kind))
	}
	return "You convert a real-estate appraiser's instruction about choosing comparable sales " +
		"into a JSON object. Use only these keys:\n" + strings.Join(names, "\n") +
		"\nDistances are miles, ages are months, tolerances are percent or counts. " +
		"Omit keys the instruction does not mention. Reply with {} if nothing applies."
}

// parseAPIError extracts a human-readable error from the API response.
// All errors wrap domain.ErrProviderUnavailable; the caller treats them as no answer.
func parseAPIError(err error) error {
	wrap := domain.ErrProviderUnavailable

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("interpreter API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("interpreter API error %d: %w", reqErr.HTTPStatusCode, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("interpreter API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("interpreter timed out: %w", wrap)
	}
	return fmt.Errorf("interpreter request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
