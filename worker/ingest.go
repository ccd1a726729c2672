package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snow-ghost/geosynth/archive"
	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/pkg/cache"
	"github.com/snow-ghost/geosynth/pkg/logging"
	"github.com/snow-ghost/geosynth/pkg/registry"
	"github.com/snow-ghost/geosynth/pkg/tracing"
	"github.com/snow-ghost/geosynth/worker/telemetry"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	// maxRunTime bounds a /run computation when no solve timeout is set.
	maxRunTime = 5 * time.Minute
)

// IngestOptions configures an Ingestor. Every field is optional.
type IngestOptions struct {
	Store     Store
	Telemetry *telemetry.Telemetry
	Logger    *logging.Logger
	Tracer    *tracing.Tracer
	Gatherer  prometheus.Gatherer
	Observer  cache.Observer
	Rules     []core.Rule
	CacheSize int
	// Seed, when non-zero, makes unseeded /generate requests reproducible:
	// the n-th request uses Seed+n.
	Seed int64
}

// Ingestor is the HTTP surface of the worker.
type Ingestor struct {
	gen      Generator
	prover   core.Prover
	reg      *registry.Registry
	store    Store
	results  *cache.CacheManager[RunResult]
	rules    []core.Rule
	tel      *telemetry.Telemetry
	logger   *logging.Logger
	tracer   *tracing.Tracer
	gatherer prometheus.Gatherer
	seed     int64
	requests atomic.Int64
	mux      *http.ServeMux
}

type generateRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

type runRequest struct {
	Script   string `json:"script"`
	MaxLevel int    `json:"max_level,omitempty"`
}

type runResponse struct {
	RunResult
	Cached bool `json:"cached"`
}

// modelInvalidator is implemented by provers that cache built models.
type modelInvalidator interface {
	InvalidateModels() int
}

func NewIngestor(gen Generator, prover core.Prover, reg *registry.Registry, opts IngestOptions) (*Ingestor, error) {
	cfg := cache.DefaultCacheConfig()
	if opts.CacheSize > 0 {
		cfg.MaxSize = opts.CacheSize
	}
	results, err := cache.NewCacheManager[RunResult]("results", cfg, opts.Observer)
	if err != nil {
		return nil, err
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NewTelemetry()
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.NewNoop()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	i := &Ingestor{
		gen:      gen,
		prover:   prover,
		reg:      reg,
		store:    opts.Store,
		results:  results,
		rules:    opts.Rules,
		tel:      opts.Telemetry,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
		gatherer: opts.Gatherer,
		seed:     opts.Seed,
		mux:      http.NewServeMux(),
	}
	i.mux.HandleFunc("POST /generate", i.handleGenerate)
	i.mux.HandleFunc("POST /run", i.handleRun)
	i.mux.HandleFunc("DELETE /cache", i.handleClearCache)
	i.mux.HandleFunc("GET /problems", i.handleListProblems)
	i.mux.HandleFunc("GET /problems/stats", i.handleProblemStats)
	i.mux.HandleFunc("GET /problems/{id}", i.handleGetProblem)
	i.mux.HandleFunc("GET /healthcheck", i.tel.HealthHandler)
	i.mux.HandleFunc("GET /debug/vars", i.tel.VarsHandler)
	i.mux.Handle("GET /metrics", promhttp.HandlerFor(i.gatherer, promhttp.HandlerOpts{}))
	return i, nil
}

// ServeHTTP routes the request inside a span and logs it.
func (i *Ingestor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := i.tracer.StartSpan(r.Context(), "http "+r.Method+" "+r.URL.Path)
	defer span.End()

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	i.mux.ServeHTTP(rec, r.WithContext(ctx))
	tracing.AddSpanAttributes(span, map[string]interface{}{"http.status_code": rec.status})
	if i.logger != nil {
		i.logger.WithTraceID(ctx, tracing.GetTraceID(ctx)).
			LogRequest(ctx, r.Method, r.URL.Path, rec.status, time.Since(start), r.Header.Get("X-Request-ID"))
	}
}

// Close releases the result cache.
func (i *Ingestor) Close() {
	i.results.Close()
}

func (i *Ingestor) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	seed := i.nextSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	p, err := i.gen.Search(r.Context(), rand.New(rand.NewSource(seed)))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	if i.store != nil {
		if err := i.store.Save(r.Context(), p); err != nil {
			slog.ErrorContext(r.Context(), "failed to archive problem", "problem_id", p.ID, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("X-Seed", strconv.FormatInt(seed, 10))
	writeJSON(w, http.StatusOK, p)
}

func (i *Ingestor) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	script, err := core.ParseScript(req.Script)
	if err == nil {
		err = script.Validate()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := core.SolveOptions{Rules: i.rules, MaxLevel: i.reg.Search.MaxLevel, Timeout: i.reg.Search.SolveTimeout}
	if req.MaxLevel > 0 {
		opts.MaxLevel = req.MaxLevel
	}
	key := cache.KeyFor(script.String(), strconv.Itoa(opts.MaxLevel))
	ctx, span := i.tracer.StartCacheSpan(r.Context(), "run")
	defer span.End()
	res, hit, err := i.results.GetOrCompute(ctx, key, func(ctx context.Context) (RunResult, error) {
		// Shared by every waiter on key; detached from the first request.
		limit := maxRunTime
		if opts.Timeout > 0 {
			limit = 2 * opts.Timeout
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), limit)
		defer cancel()
		return RunScript(ctx, i.prover, script, opts)
	})
	tracing.AddSpanAttributes(span, map[string]interface{}{"cache.hit": hit})
	if i.logger != nil {
		i.logger.LogCacheOperation(r.Context(), "run", hit, r.Header.Get("X-Request-ID"))
	}
	if err != nil {
		tracing.RecordSpanError(span, err)
		if core.IsBuildError(err) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{RunResult: res, Cached: hit})
}

func (i *Ingestor) handleClearCache(w http.ResponseWriter, r *http.Request) {
	out := map[string]int{"results": i.results.Purge()}
	if inv, ok := i.prover.(modelInvalidator); ok {
		out["models"] = inv.InvalidateModels()
	}
	slog.InfoContext(r.Context(), "caches cleared", "results", out["results"], "models", out["models"])
	writeJSON(w, http.StatusOK, out)
}

func (i *Ingestor) handleGetProblem(w http.ResponseWriter, r *http.Request) {
	if i.store == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}
	p, err := i.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type listResponse struct {
	Total    int64          `json:"total"`
	Problems []core.Problem `json:"problems"`
}

func (i *Ingestor) handleListProblems(w http.ResponseWriter, r *http.Request) {
	if i.store == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	total, err := i.store.Count(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	problems, err := i.store.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if problems == nil {
		problems = []core.Problem{}
	}
	writeJSON(w, http.StatusOK, listResponse{Total: total, Problems: problems})
}

func (i *Ingestor) handleProblemStats(w http.ResponseWriter, r *http.Request) {
	if i.store == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}
	stats, err := i.store.StatsByPrimitive(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []archive.PrimitiveStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

// parseFilter reads primitive, forced, min_proof_length, limit and offset
// from the query string.
func parseFilter(r *http.Request) (archive.Filter, error) {
	q := r.URL.Query()
	filter := archive.Filter{Primitive: q.Get("primitive"), Limit: defaultListLimit}

	if v := q.Get("forced"); v != "" {
		forced, err := strconv.ParseBool(v)
		if err != nil {
			return archive.Filter{}, fmt.Errorf("forced: %w", err)
		}
		filter.Forced = &forced
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"min_proof_length", &filter.MinProofLength},
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	}
	for _, p := range ints {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return archive.Filter{}, fmt.Errorf("%s: want a non-negative integer, got %q", p.name, v)
		}
		*p.dst = n
	}
	if filter.Limit == 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return filter, nil
}

func (i *Ingestor) nextSeed() int64 {
	n := i.requests.Add(1)
	if i.seed != 0 {
		return i.seed + n
	}
	return time.Now().UnixNano() + n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
