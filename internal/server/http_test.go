package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmmcquay/pdn-mcp/internal/health"
	"github.com/dmmcquay/pdn-mcp/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(stats StatsFunc) *HTTPServer {
	logger := logging.Discard()
	checker := health.NewChecker(logger, "test", "deadbeef")
	checker.RegisterCheck("parser", health.ParserCheck())
	return NewHTTPServer("127.0.0.1:0", logger, checker, stats)
}

func TestEndpoints(t *testing.T) {
	srv := newServer(func() interface{} { return map[string]int{"games": 3} })

	tests := []struct {
		path string
		code int
	}{
		{"/health", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/stats", http.StatusOK},
		{"/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.code, rec.Code, tt.path)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newServer(func() interface{} { return map[string]int{"games": 3} })

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var body map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 3, body["games"])
}

func TestStatsEndpointOptional(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartStop(t *testing.T) {
	srv := newServer(nil)
	require.NoError(t, srv.Start())

	resp, err := http.Get(fmt.Sprintf("http://%s/health", srv.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, srv.Stop(ctx))
}

func TestStartReportsBindError(t *testing.T) {
	first := newServer(nil)
	require.NoError(t, first.Start())
	defer first.Stop(context.Background())

	second := NewHTTPServer(first.Addr(), logging.Discard(), health.NewChecker(logging.Discard(), "", ""), nil)
	assert.Error(t, second.Start())
}

type recorded struct {
	method, path, status string
}

type fakeRecorder struct{ calls []recorded }

func (f *fakeRecorder) RecordHTTPRequest(method, path, status string, _ float64) {
	f.calls = append(f.calls, recorded{method, path, status})
}

func TestPrometheusMiddlewareCapturesStatus(t *testing.T) {
	rec := &fakeRecorder{}
	h := PrometheusMiddleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, []recorded{{"POST", "/x", "418"}}, rec.calls)
}
