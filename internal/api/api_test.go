package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/xray/internal/api/handlers"
	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/internal/scheduler"
	"github.com/wonny/xray/pkg/logger"
)

type fakeRunner struct {
	result *contracts.PipelineResult
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, portfolioID string) (*contracts.PipelineResult, error) {
	return f.result, f.err
}

type fakeHoldingsCache struct {
	stats       contracts.CacheStats
	invalidated []string
}

func (f *fakeHoldingsCache) Get(ctx context.Context, fundID string, maxAge time.Duration) (*contracts.HoldingsTable, bool, error) {
	return nil, false, nil
}

func (f *fakeHoldingsCache) Put(ctx context.Context, table *contracts.HoldingsTable) error {
	return nil
}

func (f *fakeHoldingsCache) Invalidate(ctx context.Context, fundID string) error {
	f.invalidated = append(f.invalidated, fundID)
	return nil
}

func (f *fakeHoldingsCache) StaleFunds(ctx context.Context, maxAge time.Duration) ([]string, error) {
	return nil, nil
}

func (f *fakeHoldingsCache) Stats(ctx context.Context) (contracts.CacheStats, error) {
	return f.stats, nil
}

func newTestServer(t *testing.T, runner handlers.Runner, cache contracts.HoldingsCache) (*httptest.Server, *ProgressHub) {
	t.Helper()

	log := logger.NewNop()
	hub := NewProgressHub(log)
	router := NewRouter(
		handlers.NewPipelineHandler(runner, log),
		handlers.NewCacheHandler(cache, log),
		handlers.NewJobsHandler(scheduler.New(log), log),
		hub,
		log,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)
	return srv, hub
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, &fakeHoldingsCache{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestTriggerRunAndReadLatest(t *testing.T) {
	runner := &fakeRunner{
		result: &contracts.PipelineResult{
			RunID:      "run-test",
			Success:    true,
			TotalValue: 1500,
			Exposures: []contracts.ExposureRecord{
				{CanonicalID: "US0378331005", Name: "Apple Inc", TotalExposure: 1500, PortfolioPercent: 100},
			},
			Health: &contracts.HealthSummary{Success: true},
		},
	}
	srv, _ := newTestServer(t, runner, &fakeHoldingsCache{})

	resp, err := http.Get(srv.URL + "/api/pipeline/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/pipeline/run", "application/json", strings.NewReader(`{"portfolio_id":"main"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/api/pipeline/latest")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	resp, err = http.Get(srv.URL + "/api/pipeline/exposures")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		RunID     string                     `json:"run_id"`
		Total     float64                    `json:"total_portfolio_value"`
		Exposures []contracts.ExposureRecord `json:"exposures"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "run-test", body.RunID)
	assert.Equal(t, 1500.0, body.Total)
	require.Len(t, body.Exposures, 1)
	assert.Equal(t, "US0378331005", body.Exposures[0].CanonicalID)
}

func TestCacheEndpoints(t *testing.T) {
	cache := &fakeHoldingsCache{
		stats: contracts.CacheStats{Funds: 3, Rows: 120},
	}
	srv, _ := newTestServer(t, &fakeRunner{}, cache)

	resp, err := http.Get(srv.URL + "/api/cache/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats contracts.CacheStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 3, stats.Funds)
	assert.Equal(t, 120, stats.Rows)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/cache/funds/IE00B4L5Y983", nil)
	require.NoError(t, err)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, []string{"IE00B4L5Y983"}, cache.invalidated)
}

func TestJobsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, &fakeHoldingsCache{})

	resp, err := http.Get(srv.URL + "/api/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/api/jobs/unknown/run", "application/json", nil)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestProgressHubBroadcast(t *testing.T) {
	srv, hub := newTestServer(t, &fakeRunner{}, &fakeHoldingsCache{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(contracts.PhaseDecompose, 50)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event ProgressEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, contracts.PhaseDecompose, event.Phase)
	assert.Equal(t, 50.0, event.Pct)
}
