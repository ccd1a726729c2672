// Package remote talks to an external model builder and reasoner over HTTP.
//
// Routes:
//
//	POST /build  {"script"}                                          -> {"model_id"}; 422 on rejection
//	POST /solve  {"model_id","script","rules","max_level","timeout_ms"} -> solve result
//	POST /proof  {"model_id","goal"}                                 -> proof trace
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/pkg/cache"
	"github.com/snow-ghost/geosynth/pkg/limiter"
	"github.com/snow-ghost/geosynth/pkg/logging"
	"github.com/snow-ghost/geosynth/pkg/metrics"
	"github.com/snow-ghost/geosynth/pkg/tracing"
)

// Endpoint names used for protection, metrics and spans.
const (
	EndpointBuild = "build"
	EndpointSolve = "solve"
	EndpointProof = "proof"
)

// Model is a handle to a model held by the remote builder.
type Model struct {
	ID     string
	Script string
}

// Options configures a Client. Zero values fall back to defaults; Metrics,
// Tracer and Logger are optional.
type Options struct {
	HTTPClient *http.Client
	MaxRPM     int
	Retry      *limiter.RetryConfig
	CacheSize  int
	Metrics    *metrics.PrometheusMetrics
	Tracer     *tracing.Tracer
	Logger     *logging.Logger
}

// Client implements core.Prover against a remote service.
type Client struct {
	baseURL    string
	client     *http.Client
	protection *limiter.ProtectionManager
	models     *cache.CacheManager[*Model]
	metrics    *metrics.PrometheusMetrics
	tracer     *tracing.Tracer
	logger     *logging.Logger
}

type buildRequest struct {
	Script string `json:"script"`
}

type buildResponse struct {
	ModelID string `json:"model_id"`
}

type solveRequest struct {
	ModelID   string      `json:"model_id"`
	Script    string      `json:"script"`
	Rules     []core.Rule `json:"rules,omitempty"`
	MaxLevel  int         `json:"max_level"`
	TimeoutMS int64       `json:"timeout_ms,omitempty"`
}

type solveResponse struct {
	ModelID       string      `json:"model_id"`
	LevelTimesMS  []float64   `json:"level_times_ms"`
	Status        string      `json:"status"`
	Branches      []int       `json:"branches"`
	AllAdded      []core.Fact `json:"all_added"`
	LastFactAdded *core.Fact  `json:"last_fact_added"`
}

type proofRequest struct {
	ModelID string `json:"model_id"`
	Goal    string `json:"goal"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("prover url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracing.NewNoop()
	}

	cacheCfg := cache.DefaultCacheConfig()
	if opts.CacheSize > 0 {
		cacheCfg.MaxSize = opts.CacheSize
	}
	var observer cache.Observer
	if opts.Metrics != nil {
		observer = opts.Metrics
	}
	models, err := cache.NewCacheManager[*Model]("models", cacheCfg, observer)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		models:  models,
		metrics: opts.Metrics,
		tracer:  tracer,
		logger:  opts.Logger,
	}

	endpoints := []limiter.Endpoint{
		{Name: EndpointBuild, MaxRPM: opts.MaxRPM},
		{Name: EndpointSolve, MaxRPM: opts.MaxRPM},
		{Name: EndpointProof, MaxRPM: opts.MaxRPM},
	}
	c.protection = limiter.NewProtectionManager(endpoints, opts.Retry, limiter.Hooks{
		OnRetry: func(endpoint string, attempt int, err error) {
			if c.metrics != nil {
				c.metrics.RecordRetry(endpoint, retryReason(err))
			}
			if c.logger != nil {
				c.logger.LogRetry(context.Background(), endpoint, retryReason(err), attempt)
			}
		},
		OnStateChange: func(endpoint, from, to string) {
			if c.metrics != nil {
				c.metrics.RecordCircuitState(endpoint, to)
			}
			if c.logger != nil {
				c.logger.LogCircuitBreaker(context.Background(), endpoint, from, to)
			}
		},
	})
	return c, nil
}

// Build returns a model for script. Models are cached by script text, so
// the same script is only sent once.
func (c *Client) Build(ctx context.Context, script core.Script) (core.Model, error) {
	text := script.String()
	m, _, err := c.models.GetOrCompute(ctx, cache.KeyFor(text), func(ctx context.Context) (*Model, error) {
		var resp buildResponse
		if err := c.call(ctx, EndpointBuild, buildRequest{Script: text}, &resp); err != nil {
			var httpErr *limiter.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnprocessableEntity {
				return nil, core.NewBuildError(text, httpErr)
			}
			return nil, err
		}
		if resp.ModelID == "" {
			return nil, fmt.Errorf("build %q: empty model id", text)
		}
		return &Model{ID: resp.ModelID, Script: text}, nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Solve saturates the model.
func (c *Client) Solve(ctx context.Context, m core.Model, problem core.Script, opts core.SolveOptions) (core.SolveResult, error) {
	model, err := asModel(m)
	if err != nil {
		return core.SolveResult{}, err
	}
	req := solveRequest{
		ModelID:   model.ID,
		Script:    problem.String(),
		Rules:     opts.Rules,
		MaxLevel:  opts.MaxLevel,
		TimeoutMS: opts.Timeout.Milliseconds(),
	}
	var resp solveResponse
	if err := c.call(ctx, EndpointSolve, req, &resp); err != nil {
		return core.SolveResult{}, fmt.Errorf("%w: %w", core.ErrSolveFailed, err)
	}

	res := core.SolveResult{
		Model:         model,
		Status:        resp.Status,
		Branches:      resp.Branches,
		AllAdded:      resp.AllAdded,
		LastFactAdded: resp.LastFactAdded,
	}
	if resp.ModelID != "" && resp.ModelID != model.ID {
		res.Model = &Model{ID: resp.ModelID, Script: model.Script}
	}
	for _, ms := range resp.LevelTimesMS {
		res.LevelTimes = append(res.LevelTimes, time.Duration(ms*float64(time.Millisecond)))
	}
	return res, nil
}

// ProofTrace traces goal in a solved model.
func (c *Client) ProofTrace(ctx context.Context, m core.Model, goal core.Predicate) (core.ProofTrace, error) {
	model, err := asModel(m)
	if err != nil {
		return core.ProofTrace{}, err
	}
	var trace core.ProofTrace
	if err := c.call(ctx, EndpointProof, proofRequest{ModelID: model.ID, Goal: goal.String()}, &trace); err != nil {
		var httpErr *limiter.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return core.ProofTrace{}, fmt.Errorf("%w: %s", core.ErrNoGoal, goal)
		}
		return core.ProofTrace{}, fmt.Errorf("%w: %w", core.ErrSolveFailed, err)
	}
	if trace.Refs == nil {
		trace.Refs = make(map[string]int)
	}
	return trace, nil
}

// InvalidateModels drops every cached model handle.
func (c *Client) InvalidateModels() int {
	return c.models.Purge()
}

// Stats reports protection and cache statistics.
func (c *Client) Stats() map[string]interface{} {
	return map[string]interface{}{
		"protection": c.protection.GetAllStats(),
		"models":     c.models.Stats(),
	}
}

// Close releases the model cache.
func (c *Client) Close() {
	c.models.Close()
}

// call posts body to endpoint through the protection layer and decodes the
// JSON reply into out.
func (c *Client) call(ctx context.Context, endpoint string, body, out interface{}) error {
	ctx, span := c.tracer.StartProverSpan(ctx, endpoint)
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}
	requestID := uuid.NewString()
	start := time.Now()

	_, err = c.protection.ExecuteWithProtection(ctx, endpoint, func(ctx context.Context) (interface{}, error) {
		return nil, c.do(ctx, endpoint, requestID, payload, out)
	})

	took := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
		tracing.RecordSpanError(span, err)
	} else {
		tracing.RecordSpanSuccess(span)
	}
	if c.metrics != nil {
		c.metrics.RecordRequest(endpoint, status)
		c.metrics.RecordLatency(endpoint, took)
	}
	if c.logger != nil {
		c.logger.LogProverCall(ctx, endpoint, status, took, requestID)
	}
	return err
}

func (c *Client) do(ctx context.Context, endpoint, requestID string, payload []byte, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("prover %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := http.StatusText(resp.StatusCode)
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return limiter.NewHTTPError(resp.StatusCode, msg, string(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func asModel(m core.Model) (*Model, error) {
	model, ok := m.(*Model)
	if !ok || model == nil {
		return nil, fmt.Errorf("%w: unknown model %T", core.ErrSolveFailed, m)
	}
	return model, nil
}

func retryReason(err error) string {
	var httpErr *limiter.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("http_%d", httpErr.StatusCode)
	}
	return "error"
}

var _ core.Prover = (*Client)(nil)
