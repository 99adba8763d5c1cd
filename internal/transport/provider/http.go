// Package provider implements property data connectors: a generic HTTP JSON
// API client and a YAML fixture file. Both serve as resolver providers and
// as comparable candidate sources.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/metrics"
)

// maxBodyBytes caps a provider response.
const maxBodyBytes = 8 << 20

// HTTPConfig holds the settings of one JSON API provider.
type HTTPConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	// AuthHeader carries APIKey. "Authorization" sends "Bearer <key>";
	// any other header sends the raw key.
	AuthHeader string
	// FieldMap maps property fields to dotted JSON paths. Unmapped fields
	// use the field name.
	FieldMap map[property.Field]string
	// Regions restricts candidate searches to these state codes; empty means everywhere.
	Regions    []string
	RatePerSec float64 // 0 = unlimited
	Burst      int
	Timeout    time.Duration
	Client     *http.Client
	Logger     *zap.Logger
}

// HTTP is a JSON API provider. GET {base}/property looks up one property;
// GET {base}/comparables lists sold properties around a point.
type HTTP struct {
	cfg     HTTPConfig
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewHTTP creates a provider.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("provider %s: invalid base url %q", cfg.Name, cfg.BaseURL)
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "Authorization"
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSec > 0 {
		burst := max(cfg.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTP{
		cfg:     cfg,
		base:    base,
		client:  client,
		limiter: limiter,
		logger:  logger.With(zap.String("provider", cfg.Name)),
	}, nil
}

// Name implements resolve.Provider.
func (h *HTTP) Name() string { return h.cfg.Name }

// Fetch implements resolve.Provider. 404 means no data.
func (h *HTTP) Fetch(ctx context.Context, q property.Query) (*property.Property, error) {
	params := url.Values{}
	setIf(params, "parcel_id", q.ParcelID)
	setIf(params, "street", q.Address.Street)
	setIf(params, "city", q.Address.City)
	setIf(params, "state", q.Address.State)
	setIf(params, "zip", q.Address.Zip)

	var raw map[string]any
	found, err := h.get(ctx, "/property", params, &raw)
	if err != nil || !found || raw == nil {
		return nil, err
	}
	p := decodeRecord(raw, h.cfg.FieldMap)
	p.ID = q.Identity()
	return &p, nil
}

// Candidates implements comps.CandidateSource. Subjects without a location
// are searched by state and zip instead of radius.
func (h *HTTP) Candidates(ctx context.Context, subject *property.Property, radiusMiles float64) ([]property.Property, error) {
	if len(h.cfg.Regions) > 0 && !slices.Contains(h.cfg.Regions, strings.ToUpper(subject.Address.State)) {
		return nil, nil
	}

	params := url.Values{}
	if subject.Location != nil {
		params.Set("lat", strconv.FormatFloat(subject.Location.Lat, 'f', 6, 64))
		params.Set("lon", strconv.FormatFloat(subject.Location.Lon, 'f', 6, 64))
		params.Set("radius_miles", strconv.FormatFloat(radiusMiles, 'f', -1, 64))
	}
	setIf(params, "state", subject.Address.State)
	setIf(params, "zip", subject.Address.Zip)
	if subject.Type != property.TypeUnknown {
		params.Set("property_type", string(subject.Type))
	}

	var body json.RawMessage
	found, err := h.get(ctx, "/comparables", params, &body)
	if err != nil || !found {
		return nil, err
	}
	records, err := decodeList(body)
	if err != nil {
		return nil, domain.NewProviderError(h.cfg.Name, err)
	}

	out := make([]property.Property, 0, len(records))
	for _, raw := range records {
		p := decodeRecord(raw, h.cfg.FieldMap)
		p.ID = identity(&p)
		if p.ID == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// HealthCheck verifies the API answers at all.
func (h *HTTP) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.base.String(), http.NoBody)
	if err != nil {
		return err
	}
	h.authorize(req)
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider %s: %w", h.cfg.Name, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("provider %s: status %d", h.cfg.Name, resp.StatusCode)
	}
	return nil
}

// get performs a rate-limited GET and decodes the body into out.
// found is false on 404. Any other failure wraps domain.ErrProviderUnavailable.
func (h *HTTP) get(ctx context.Context, path string, params url.Values, out any) (bool, error) {
	if !h.limiter.Allow() {
		metrics.ProviderThrottledTotal.WithLabelValues(h.cfg.Name).Inc()
		if err := h.limiter.Wait(ctx); err != nil {
			return false, domain.NewProviderError(h.cfg.Name, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	u := *h.base
	u.Path += path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return false, domain.NewProviderError(h.cfg.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	h.authorize(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return false, domain.NewProviderError(h.cfg.Name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return false, domain.NewProviderError(h.cfg.Name, fmt.Errorf("unauthorized (status %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		h.logger.Warn("provider rate limited us", zap.String("retry_after", resp.Header.Get("Retry-After")))
		return false, domain.NewProviderError(h.cfg.Name, errors.New("rate limited (status 429)"))
	case resp.StatusCode >= 300:
		return false, domain.NewProviderError(h.cfg.Name, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return false, domain.NewProviderError(h.cfg.Name, fmt.Errorf("decode response: %w", err))
	}
	return true, nil
}

func (h *HTTP) authorize(req *http.Request) {
	if h.cfg.APIKey == "" {
		return
	}
	if strings.EqualFold(h.cfg.AuthHeader, "Authorization") {
		req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
		return
	}
	req.Header.Set(h.cfg.AuthHeader, h.cfg.APIKey)
}

// decodeList accepts a bare array or an object wrapping it in
// "results", "properties" or "data".
func decodeList(body json.RawMessage) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode candidate list: %w", err)
	}
	for _, key := range []string{"results", "properties", "data"} {
		if inner, ok := wrapped[key]; ok {
			if err := json.Unmarshal(inner, &list); err != nil {
				return nil, fmt.Errorf("decode candidate list %q: %w", key, err)
			}
			return list, nil
		}
	}
	return nil, errors.New("candidate list not found in response")
}

func setIf(v url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		v.Set(key, value)
	}
}
