package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/modules/optimization"
)

// SystemHandlers serves process and storage health metrics.
type SystemHandlers struct {
	log        zerolog.Logger
	db         *database.DB
	marketData *marketdata.Service
	history    *optimization.HistoryRepository
	startTime  time.Time
}

// NewSystemHandlers creates system monitoring handlers.
func NewSystemHandlers(log zerolog.Logger, db *database.DB, marketData *marketdata.Service, history *optimization.HistoryRepository) *SystemHandlers {
	return &SystemHandlers{
		log:        log.With().Str("component", "system_handlers").Logger(),
		db:         db,
		marketData: marketData,
		history:    history,
		startTime:  time.Now(),
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := map[string]interface{}{
		"status":         "ok",
		"version":        Version,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"cpu_percent":    cpuPercent,
		"memory_percent": memPercent,
	}

	if h.marketData != nil {
		cacheStats, err := h.marketData.CacheStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to read cache stats")
		} else {
			response["price_cache"] = cacheStats
		}
	}

	if h.history != nil {
		runCount, err := h.history.Count()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count optimization runs")
		} else {
			response["optimization_runs"] = runCount
		}
	}

	if h.db != nil {
		response["database_size_mb"] = h.databaseSizeMB()
	}

	h.writeJSON(w, response)
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a short sampling interval so the endpoint responds quickly.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) databaseSizeMB() float64 {
	info, err := os.Stat(h.db.Path())
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to stat database file")
		return 0
	}
	return float64(info.Size()) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
