package restserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/storage"
	"github.com/chrissnell/cirquemetrics/internal/storage/sqlite"
	"github.com/chrissnell/cirquemetrics/pkg/config"
	"github.com/chrissnell/cirquemetrics/pkg/responseformat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap/zaptest"
)

// bowl is a parabolic cross section 400 m wide and 400 m deep
func bowl(id string) cirque.Profile {
	p := cirque.Profile{ID: id}
	for i := 0; i <= 20; i++ {
		x := float64(i) * 20
		p.Samples = append(p.Samples, cirque.Sample{
			Distance:  x,
			Elevation: (x - 200) * (x - 200) / 100,
			X:         x,
		})
	}
	return p
}

func newTestController(t *testing.T, rc config.RESTServerData, opts Options) *Controller {
	t.Helper()
	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, rc, cirque.DefaultParams(), opts, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return ctrl
}

func withSQLite(t *testing.T) Options {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "reports.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return Options{Store: store, Backend: "sqlite", Health: storage.NewHealthManager()}
}

func postJSON(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profiles/analyze", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewControllerDefaults(t *testing.T) {
	ctrl := newTestController(t, config.RESTServerData{}, Options{})
	assert.Equal(t, "0.0.0.0:8080", ctrl.Server.Addr)
	assert.Equal(t, int64(config.DefaultMaxBodyBytes), ctrl.restConfig.MaxBodyBytes)

	_, err := NewController(context.Background(), &sync.WaitGroup{}, config.RESTServerData{}, cirque.DefaultParams(),
		Options{Store: withSQLite(t).Store}, nil)
	assert.Error(t, err, "store without a backend name")
}

func TestAnalyzeWithoutStore(t *testing.T) {
	h := newTestController(t, config.RESTServerData{}, Options{}).Handler()

	rec := postJSON(t, h, AnalyzeRequest{Profiles: []cirque.Profile{bowl("a"), bowl("b")}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, responseformat.ContentTypeJSON, rec.Header().Get("Content-Type"))

	var got AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Stored)
	assert.NotEqual(t, uuid.Nil, got.RunID)
	require.Len(t, got.CrossSections, 2)
	assert.Equal(t, "a", got.CrossSections[0].ProfileID)
	assert.InDelta(t, 400, got.CrossSections[0].Height, 1e-9)
	assert.Len(t, got.HalfProfiles, 4)
	assert.Len(t, got.LowPoints, 2)

	rec = get(h, "/api/v1/runs")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeOptions(t *testing.T) {
	h := newTestController(t, config.RESTServerData{}, Options{}).Handler()

	halves := false
	rec := postJSON(t, h, AnalyzeRequest{
		Profiles: []cirque.Profile{bowl("a")},
		Options:  &AnalysisOptions{HalfProfiles: &halves},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got.HalfProfiles)
	assert.Len(t, got.CrossSections, 1)

	rec = postJSON(t, h, AnalyzeRequest{
		Profiles: []cirque.Profile{bowl("a")},
		Options:  &AnalysisOptions{BoundaryMode: "lowest"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	negative := -1.0
	rec = postJSON(t, h, AnalyzeRequest{
		Profiles: []cirque.Profile{bowl("a")},
		Options:  &AnalysisOptions{MinHeight: &negative},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	h := newTestController(t, config.RESTServerData{MaxBodyBytes: 4096}, Options{}).Handler()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", "{profiles", http.StatusBadRequest},
		{"empty body", "", http.StatusBadRequest},
		{"no profiles", `{"profiles":[]}`, http.StatusBadRequest},
		{"single sample", `{"profiles":[{"id":"a","samples":[{"distance":0,"elevation":1}]}]}`, http.StatusUnprocessableEntity},
		{"too large", `{"profiles":[` + strings.Repeat(`{"id":"x"},`, 1000) + `]}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/profiles/analyze", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}

	rec := get(h, "/api/v1/profiles/analyze")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAnalyzeMsgPack(t *testing.T) {
	h := newTestController(t, config.RESTServerData{}, Options{}).Handler()

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	require.NoError(t, enc.Encode(AnalyzeRequest{Profiles: []cirque.Profile{bowl("m")}}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profiles/analyze?format=msgpack", &buf)
	req.Header.Set("Content-Type", responseformat.ContentTypeMsgPack)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, responseformat.ContentTypeMsgPack, rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &got))
	sections, ok := got["cross_sections"].([]any)
	require.True(t, ok, "cross_sections missing from %v", got)
	assert.Len(t, sections, 1)
}

func TestAnalyzeStoresRuns(t *testing.T) {
	h := newTestController(t, config.RESTServerData{}, withSQLite(t)).Handler()

	rec := postJSON(t, h, AnalyzeRequest{Profiles: []cirque.Profile{
		bowl("a"),
		{ID: "flat", Samples: []cirque.Sample{{Distance: 0, Elevation: 5}, {Distance: 10, Elevation: 5, X: 10}}},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var analyzed AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analyzed))
	assert.True(t, analyzed.Stored)
	require.Len(t, analyzed.Failures, 1)
	assert.Equal(t, "flat", analyzed.Failures[0].ProfileID)

	rec = get(h, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs RunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, analyzed.RunID, runs.Runs[0].ID)
	assert.Equal(t, 2, runs.Runs[0].Profiles)
	assert.Equal(t, 1, runs.Runs[0].Failures)

	rec = get(h, "/api/v1/runs/"+analyzed.RunID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var stored cirque.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, analyzed.Report, stored)

	assert.Equal(t, http.StatusBadRequest, get(h, "/api/v1/runs/not-a-uuid").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/api/v1/runs/"+uuid.NewString()).Code)
}

func TestHealth(t *testing.T) {
	h := newTestController(t, config.RESTServerData{}, Options{}).Handler()
	rec := get(h, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var got HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, storage.StatusHealthy, got.Status)
	assert.Empty(t, got.Storage)

	opts := withSQLite(t)
	h = newTestController(t, config.RESTServerData{}, opts).Handler()
	rec = get(h, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, storage.StatusHealthy, got.Storage["sqlite"].Status)

	opts.Health.UpdateHealth("sqlite", storage.NewHealth(storage.StatusUnhealthy, "ping failed", nil))
	h = newTestController(t, config.RESTServerData{}, opts).Handler()
	rec = get(h, "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTPLogs(t *testing.T) {
	h := newTestController(t, config.RESTServerData{}, Options{}).Handler()
	get(h, "/api/v1/health")

	rec := get(h, "/api/v1/logs/http")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/health")
}
