package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmmcquay/pdn-mcp/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChecker() *Checker {
	return NewChecker(logging.Discard(), "1.0.0", "abc123")
}

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]error
		want   Status
	}{
		{name: "no checks", checks: map[string]error{}, want: StatusHealthy},
		{name: "all healthy", checks: map[string]error{"store": nil, "parser": nil}, want: StatusHealthy},
		{name: "one unhealthy", checks: map[string]error{"store": errors.New("closed"), "parser": nil}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChecker()
			for name, err := range tt.checks {
				c.RegisterCheck(name, func(context.Context) error { return err })
			}

			resp := c.CheckHealth(context.Background())
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, "1.0.0", resp.Version)
			require.Len(t, resp.Components, len(tt.checks))
			for i := 1; i < len(resp.Components); i++ {
				assert.Less(t, resp.Components[i-1].Name, resp.Components[i].Name)
			}
			for _, comp := range resp.Components {
				if tt.checks[comp.Name] != nil {
					assert.Equal(t, StatusUnhealthy, comp.Status)
					assert.Equal(t, tt.checks[comp.Name].Error(), comp.Message)
				}
			}
		})
	}
}

func TestCheckHealthAppliesTimeout(t *testing.T) {
	c := newChecker()
	c.RegisterCheck("slow", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	c.RegisterCheck("cancelled", func(ctx context.Context) error {
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := c.CheckHealth(ctx)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestLivenessHandler(t *testing.T) {
	c := newChecker()
	c.RegisterCheck("store", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "abc123", resp.GitCommit)
}

func TestReadinessHandler(t *testing.T) {
	c := newChecker()
	c.RegisterCheck("parser", ParserCheck())

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	c.RegisterCheck("store", func(context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Len(t, resp.Components, 2)
}

type fakeStore struct{ err error }

func (f fakeStore) Ping(context.Context) error { return f.err }

type fakeRecorder struct{ results []bool }

func (f *fakeRecorder) RecordStoreHealthCheck(ok bool) { f.results = append(f.results, ok) }

func TestStoreCheck(t *testing.T) {
	rec := &fakeRecorder{}
	assert.NoError(t, StoreCheck(fakeStore{}, rec)(context.Background()))

	err := StoreCheck(fakeStore{err: errors.New("database is closed")}, rec)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is closed")
	assert.Equal(t, []bool{true, false}, rec.results)

	assert.NoError(t, StoreCheck(fakeStore{}, nil)(context.Background()))
}

func TestParserCheck(t *testing.T) {
	assert.NoError(t, ParserCheck()(context.Background()))
}

func TestConcurrentHealthChecks(t *testing.T) {
	c := newChecker()
	for _, name := range []string{"a", "b", "c"} {
		c.RegisterCheck(name, func(context.Context) error {
			time.Sleep(10 * time.Millisecond)
			return nil
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, StatusHealthy, c.CheckHealth(context.Background()).Status)
		}()
	}
	wg.Wait()
}
