package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/clients/yahoo"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/modules/optimization"
)

// serveSyntheticChart returns 300 days of smooth prices for any
// symbol, seeded off its first letter so different symbols produce
// different series.
func serveSyntheticChart(w http.ResponseWriter, r *http.Request) {
	symbol := path.Base(r.URL.Path)
	seed := float64(symbol[0] % 8)

	const days = 300
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days+1)

	timestamps := make([]int64, days)
	closes := make([]float64, days)
	price := 100.0 + seed
	for i := 0; i < days; i++ {
		price *= 1 + 0.0005 + 0.0002*seed + (0.008+0.002*seed)*math.Sin(float64(i)+seed)
		timestamps[i] = start.AddDate(0, 0, i).Unix()
		closes[i] = price
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []interface{}{
				map[string]interface{}{
					"timestamp": timestamps,
					"indicators": map[string]interface{}{
						"quote": []interface{}{
							map[string]interface{}{"close": closes},
						},
					},
				},
			},
			"error": nil,
		},
	})
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(serveSyntheticChart))
	t.Cleanup(upstream.Close)

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := zerolog.Nop()
	quotes := yahoo.NewClient(log)
	quotes.SetBaseURL(upstream.URL)
	cache := marketdata.NewCacheRepository(db.Conn(), log)
	marketData := marketdata.NewService(quotes, cache, time.Hour, log)
	engine := optimization.NewEngine(0.0, 1000, log)
	history := optimization.NewHistoryRepository(db.Conn(), log)
	optimizationSvc := optimization.NewService(engine, marketData, history, log)

	return New(Config{
		Log:          log,
		Port:         0,
		DevMode:      true,
		DB:           db,
		Optimization: optimizationSvc,
		MarketData:   marketData,
		History:      history,
	})
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
	assert.Equal(t, "frontier", body["service"])
}

func TestRootEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Service   string   `json:"service"`
		Version   string   `json:"version"`
		Endpoints []string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "frontier", body.Service)
	assert.Contains(t, body.Endpoints, "POST /api/optimize")
	assert.Contains(t, body.Endpoints, "POST /api/frontier")
}

func TestSystemStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])
	assert.Contains(t, body, "cpu_percent")
	assert.Contains(t, body, "memory_percent")
	assert.Contains(t, body, "price_cache")
	assert.Contains(t, body, "optimization_runs")
	assert.Contains(t, body, "database_size_mb")
}

func TestOptimizeEndToEnd(t *testing.T) {
	s := newTestServer(t)

	payload, err := json.Marshal(map[string]interface{}{
		"tickers": []string{"AAA", "BBB"},
		"method":  "min_variance",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/optimize", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp optimization.OptimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Weights, 2)
	sum := 0.0
	for _, w := range resp.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-4)

	// The run lands in history.
	histRec := get(s, "/api/optimize/history")
	require.Equal(t, http.StatusOK, histRec.Code)

	var hist struct {
		Runs  []optimization.RunRecord `json:"runs"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(histRec.Body.Bytes(), &hist))
	require.Equal(t, 1, hist.Count)
	assert.Equal(t, optimization.RunKindOptimize, hist.Runs[0].Kind)
	assert.Equal(t, "min_variance", hist.Runs[0].Method)
}

func TestValidateTickerEndToEnd(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/api/validate-ticker/aapl")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Ticker string `json:"ticker"`
		Valid  bool   `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AAPL", body.Ticker)
	assert.True(t, body.Valid)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/optimize", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
