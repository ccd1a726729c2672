package telemetry

import (
	"context"
	"expvar"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Telemetry collects basic search counters and provides structured logging
type Telemetry struct {
	mu sync.Mutex

	RoundsTotal     *expvar.Int
	RoundsRejected  *expvar.Int
	RoundsAborted   *expvar.Int
	ProblemsTotal   *expvar.Int
	ProblemsForced  *expvar.Int
	ClausesRejected *expvar.Int
	AvgProofLength  *expvar.Float
	AvgSearchTime   *expvar.Float

	totalProofLength int64
	totalSearchTime  time.Duration

	logger *slog.Logger
}

var publishOnce sync.Once

// NewTelemetry creates a telemetry instance. The first one created is
// published under the "geosynth" expvar.
func NewTelemetry() *Telemetry {
	t := &Telemetry{
		RoundsTotal:     new(expvar.Int),
		RoundsRejected:  new(expvar.Int),
		RoundsAborted:   new(expvar.Int),
		ProblemsTotal:   new(expvar.Int),
		ProblemsForced:  new(expvar.Int),
		ClausesRejected: new(expvar.Int),
		AvgProofLength:  new(expvar.Float),
		AvgSearchTime:   new(expvar.Float),
		logger:          slog.Default(),
	}

	publishOnce.Do(func() {
		m := expvar.NewMap("geosynth")
		m.Set("rounds_total", t.RoundsTotal)
		m.Set("rounds_rejected", t.RoundsRejected)
		m.Set("rounds_aborted", t.RoundsAborted)
		m.Set("problems_total", t.ProblemsTotal)
		m.Set("problems_forced", t.ProblemsForced)
		m.Set("clauses_rejected", t.ClausesRejected)
		m.Set("avg_proof_length", t.AvgProofLength)
		m.Set("avg_search_time_ms", t.AvgSearchTime)
	})

	return t
}

// WithLogger replaces the slog logger used for events.
func (t *Telemetry) WithLogger(l *slog.Logger) *Telemetry {
	t.logger = l
	return t
}

// LogRoundStart logs the start of a search round
func (t *Telemetry) LogRoundStart(ctx context.Context, round int, primitive string, auxTarget int) {
	t.RoundsTotal.Add(1)
	t.logger.DebugContext(ctx, "round_started",
		"round", round,
		"primitive", primitive,
		"aux_target", auxTarget,
	)
}

// LogRoundEnd logs a round that produced a solved candidate.
func (t *Telemetry) LogRoundEnd(ctx context.Context, round int, primitive string, aux, proofLength, score int, accepted bool, reason string) {
	if !accepted {
		t.RoundsRejected.Add(1)
	}
	t.logger.InfoContext(ctx, "round_finished",
		"round", round,
		"primitive", primitive,
		"aux", aux,
		"proof_length", proofLength,
		"score", score,
		"accepted", accepted,
		"reason", reason,
	)
}

// LogRoundAborted logs a round discarded because solving failed.
func (t *Telemetry) LogRoundAborted(ctx context.Context, round int, err error) {
	t.RoundsAborted.Add(1)
	t.logger.WarnContext(ctx, "round_aborted",
		"round", round,
		"error", err,
	)
}

// LogClauseRejected counts a clause for point discarded by the model builder.
func (t *Telemetry) LogClauseRejected(ctx context.Context, point string) {
	t.ClausesRejected.Add(1)
	t.logger.DebugContext(ctx, "clause_rejected", "point", point)
}

// LogAccepted logs the final, minimized problem.
func (t *Telemetry) LogAccepted(ctx context.Context, id string, rounds, proofLength, score int, forced bool, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ProblemsTotal.Add(1)
	t.totalProofLength += int64(proofLength)
	t.totalSearchTime += duration
	if forced {
		t.ProblemsForced.Add(1)
	}
	if n := t.ProblemsTotal.Value(); n > 0 {
		t.AvgProofLength.Set(float64(t.totalProofLength) / float64(n))
		t.AvgSearchTime.Set(float64(t.totalSearchTime.Milliseconds()) / float64(n))
	}

	attrs := []any{
		"problem_id", id,
		"rounds", rounds,
		"proof_length", proofLength,
		"score", score,
		"duration_ms", duration.Milliseconds(),
	}
	if forced {
		t.logger.WarnContext(ctx, "problem_forced", attrs...)
		return
	}
	t.logger.InfoContext(ctx, "problem_accepted", attrs...)
}

// HealthHandler returns a simple health check
func (t *Telemetry) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"healthcheck":"Everything OK!","service":"geosynth"}`))
}

// VarsHandler serves the expvar counters
func (t *Telemetry) VarsHandler(w http.ResponseWriter, r *http.Request) {
	expvar.Handler().ServeHTTP(w, r)
}
