package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/stockwatch/stockwatch/internal/database"
	"github.com/stockwatch/stockwatch/internal/scheduler"
)

// SystemHandlers serves health, stats and maintenance endpoints.
type SystemHandlers struct {
	appDB     *database.DB
	cacheDB   *database.DB
	backupJob scheduler.Job // nil when backups are not configured
	log       zerolog.Logger
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(appDB, cacheDB *database.DB, backupJob scheduler.Job, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		appDB:     appDB,
		cacheDB:   cacheDB,
		backupJob: backupJob,
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleHealth handles GET /health and GET /api/system/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	databases := map[string]string{}
	for name, db := range map[string]*database.DB{
		h.appDB.Name():   h.appDB,
		h.cacheDB.Name(): h.cacheDB,
	} {
		if err := db.QuickCheck(r.Context()); err != nil {
			databases[name] = "unreachable"
			status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			databases[name] = "ok"
		}
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"databases": databases,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleStats handles GET /api/system/stats
func (h *SystemHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		stats["cpu_percent"] = cpuPercent[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats["memory"] = map[string]interface{}{
			"total_bytes": vm.Total,
			"used_bytes":  vm.Used,
			"percent":     vm.UsedPercent,
		}
	}

	databases := map[string]interface{}{}
	for _, db := range []*database.DB{h.appDB, h.cacheDB} {
		dbStats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}
		databases[db.Name()] = map[string]interface{}{
			"size_bytes":     dbStats.SizeBytes,
			"wal_size_bytes": dbStats.WALSizeBytes,
			"page_count":     dbStats.PageCount,
			"page_size":      dbStats.PageSize,
		}
	}
	stats["databases"] = databases

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": stats})
}

// HandleTriggerBackup handles POST /api/system/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backupJob == nil {
		h.writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": map[string]interface{}{"message": "Backups are not configured"},
		})
		return
	}

	if err := h.backupJob.Run(); err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]interface{}{"message": "Backup failed"},
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"backup": "completed"},
	})
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
