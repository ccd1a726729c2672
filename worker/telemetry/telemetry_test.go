package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func quiet() *Telemetry {
	return NewTelemetry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCounters(t *testing.T) {
	tel := quiet()
	ctx := context.Background()

	tel.LogRoundStart(ctx, 1, "triangle", 2)
	tel.LogRoundEnd(ctx, 1, "triangle", 2, 1, 2, false, "too short")
	tel.LogRoundStart(ctx, 2, "triangle", 3)
	tel.LogRoundAborted(ctx, 2, errors.New("timeout"))
	tel.LogClauseRejected(ctx, "D")
	tel.LogAccepted(ctx, "p1", 3, 6, 7, false, 100*time.Millisecond)
	tel.LogAccepted(ctx, "p2", 21, 2, 3, true, 300*time.Millisecond)

	assert.Equal(t, int64(2), tel.RoundsTotal.Value())
	assert.Equal(t, int64(1), tel.RoundsRejected.Value())
	assert.Equal(t, int64(1), tel.RoundsAborted.Value())
	assert.Equal(t, int64(1), tel.ClausesRejected.Value())
	assert.Equal(t, int64(2), tel.ProblemsTotal.Value())
	assert.Equal(t, int64(1), tel.ProblemsForced.Value())
	assert.InDelta(t, 4.0, tel.AvgProofLength.Value(), 1e-9)
	assert.InDelta(t, 200.0, tel.AvgSearchTime.Value(), 1e-9)
}

func TestHandlers(t *testing.T) {
	tel := quiet()

	rec := httptest.NewRecorder()
	tel.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Everything OK!")

	rec = httptest.NewRecorder()
	tel.VarsHandler(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	assert.Contains(t, rec.Body.String(), `"geosynth"`)
}

func TestMultipleInstancesDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		NewTelemetry()
		NewTelemetry()
	})
}
