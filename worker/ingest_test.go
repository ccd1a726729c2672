package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/geosynth/archive"
	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/pkg/metrics"
	"github.com/snow-ghost/geosynth/pkg/registry"
	"github.com/snow-ghost/geosynth/prover/mock"
	"github.com/snow-ghost/geosynth/worker/telemetry"
)

type ingestFixture struct {
	ing    *Ingestor
	srv    *httptest.Server
	prover *mock.Prover
	store  *archive.Store
}

func newIngestFixture(t *testing.T, reject ...string) *ingestFixture {
	t.Helper()
	reg := registry.GetDefaultRegistry()
	prover := mock.New(reject...)
	tel := telemetry.NewTelemetry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	solver := NewSolver(reg, prover)
	solver.Telemetry = tel

	store, err := archive.Open(filepath.Join(t.TempDir(), "problems.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	promReg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(promReg)
	solver.Metrics = m

	ing, err := NewIngestor(solver, prover, reg, IngestOptions{
		Store:     store,
		Telemetry: tel,
		Gatherer:  promReg,
		Observer:  m,
		Seed:      100,
	})
	require.NoError(t, err)
	t.Cleanup(ing.Close)

	srv := httptest.NewServer(ing)
	t.Cleanup(srv.Close)
	return &ingestFixture{ing: ing, srv: srv, prover: prover, store: store}
}

func (f *ingestFixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestGenerateIsSeededAndArchived(t *testing.T) {
	f := newIngestFixture(t)

	resp := f.do(t, http.MethodPost, "/generate", `{"seed": 9}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "9", resp.Header.Get("X-Seed"))
	first := decode[core.Problem](t, resp)
	assert.NotEmpty(t, first.Script)

	resp = f.do(t, http.MethodPost, "/generate", `{"seed": 9}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[core.Problem](t, resp)
	assert.Equal(t, first.Script, second.Script)

	resp = f.do(t, http.MethodGet, "/problems/"+first.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored := decode[core.Problem](t, resp)
	assert.Equal(t, first.Script, stored.Script)
	assert.Equal(t, first.ProofLength, stored.ProofLength)
}

func TestGenerateWithoutBodyUsesServerSeed(t *testing.T) {
	f := newIngestFixture(t)

	resp := f.do(t, http.MethodPost, "/generate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "101", resp.Header.Get("X-Seed"))
}

func TestGenerateRejectsBadJSON(t *testing.T) {
	f := newIngestFixture(t)
	resp := f.do(t, http.MethodPost, "/generate", `{"seed":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUnknownProblem(t *testing.T) {
	f := newIngestFixture(t)
	resp := f.do(t, http.MethodGet, "/problems/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunCachesResults(t *testing.T) {
	f := newIngestFixture(t)
	body := `{"script": "A B C = triangle A B C; D = on_tline D A B C; E = on_pline E D A B ? on_pline D A B E"}`

	resp := f.do(t, http.MethodPost, "/run", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[runResponse](t, resp)
	assert.False(t, first.Cached)
	assert.True(t, first.Proved)
	assert.Equal(t, 2, first.ProofLength)
	assert.Equal(t, "on_pline D A B E", first.Goal)
	assert.True(t, strings.HasSuffix(first.Script, "? on_pline D A B E"))
	require.NotNil(t, first.Proof)
	assert.Len(t, first.Proof.SolutionSteps, 2)
	assert.Equal(t, int64(1), f.prover.Builds())

	resp = f.do(t, http.MethodPost, "/run", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[runResponse](t, resp)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Solution, second.Solution)
	assert.Equal(t, int64(1), f.prover.Builds())

	resp = f.do(t, http.MethodDelete, "/cache", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := decode[map[string]int](t, resp)
	assert.Equal(t, 1, cleared["results"])

	resp = f.do(t, http.MethodPost, "/run", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[runResponse](t, resp).Cached)
	assert.Equal(t, int64(2), f.prover.Builds())
}

func TestRunErrors(t *testing.T) {
	f := newIngestFixture(t, "on_tline")

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{"script":`, http.StatusBadRequest},
		{"unparseable", `{"script": "A B C triangle"}`, http.StatusBadRequest},
		{"undefined point", `{"script": "A B C = triangle A B C; D = on_line D A Z"}`, http.StatusBadRequest},
		{"rejected by builder", `{"script": "A B C = triangle A B C; D = on_tline D A B C"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/run", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRunOutcomes(t *testing.T) {
	f := newIngestFixture(t)

	t.Run("no goal", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/run", `{"script": "A B C = triangle A B C; D = on_line D A B"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		res := decode[runResponse](t, resp)
		assert.Equal(t, SolutionNoGoal, res.Solution)
		assert.False(t, res.Proved)
		assert.Empty(t, res.Goal)
		assert.Nil(t, res.Proof)
		assert.Equal(t, [][]string{{"A", "B", "D"}}, res.Relations["on_line"])
		assert.Contains(t, res.Relations, "cyclic")
		assert.Empty(t, res.Relations["cyclic"])
	})

	t.Run("goal not derived", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/run", `{"script": "A B C = triangle A B C; D = on_line D A B ? perp A B C D"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		res := decode[runResponse](t, resp)
		assert.Equal(t, SolutionFalse, res.Solution)
		assert.False(t, res.Proved)
		assert.Equal(t, "perp A B C D", res.Goal)
		assert.Zero(t, res.ProofLength)
	})
}

func TestRunOutlivesCancelledRequest(t *testing.T) {
	f := newIngestFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	body := `{"script": "A B C = triangle A B C; D = on_tline D A B C ? on_tline A B C D"}`
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	f.ing.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res runResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Proved)
}

func TestListProblems(t *testing.T) {
	f := newIngestFixture(t)
	for _, seed := range []string{"1", "2", "3"} {
		resp := f.do(t, http.MethodPost, "/generate", `{"seed": `+seed+`}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := f.do(t, http.MethodGet, "/problems", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[listResponse](t, resp)
	assert.Equal(t, int64(3), all.Total)
	require.Len(t, all.Problems, 3)

	resp = f.do(t, http.MethodGet, "/problems?limit=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[listResponse](t, resp)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Problems, 2)

	primitive := all.Problems[0].Primitive
	resp = f.do(t, http.MethodGet, "/problems?primitive="+primitive, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	byPrim := decode[listResponse](t, resp)
	require.NotEmpty(t, byPrim.Problems)
	for _, p := range byPrim.Problems {
		assert.Equal(t, primitive, p.Primitive)
	}

	unforced := 0
	for _, p := range all.Problems {
		if !p.Forced {
			unforced++
		}
	}
	resp = f.do(t, http.MethodGet, "/problems?forced=false", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(unforced), decode[listResponse](t, resp).Total)

	resp = f.do(t, http.MethodGet, "/problems?primitive=nope", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	none := decode[listResponse](t, resp)
	assert.Zero(t, none.Total)
	assert.NotNil(t, none.Problems)

	resp = f.do(t, http.MethodGet, "/problems/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[[]archive.PrimitiveStats](t, resp)
	var total int64
	for _, st := range stats {
		total += st.Problems
	}
	assert.Equal(t, int64(3), total)

	for _, q := range []string{"forced=maybe", "limit=-1", "offset=x"} {
		resp = f.do(t, http.MethodGet, "/problems?"+q, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newIngestFixture(t)

	resp := f.do(t, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.do(t, http.MethodPost, "/generate", `{"seed": 1}`)
	resp = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "geosynth_problems_total")

	resp = f.do(t, http.MethodGet, "/generate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
