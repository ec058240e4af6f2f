package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/phishguard/internal/datastore"
	"github.com/tphakala/phishguard/internal/logger"
)

// Health states.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// MemoryInfo is the host memory snapshot in the health response.
type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status            string                       `json:"status"`
	Database          string                       `json:"database"`
	URLhausConfigured bool                         `json:"urlhaus_configured"`
	APIStatus         map[string]APIStatusResponse `json:"api_status"`
	Memory            *MemoryInfo                  `json:"memory,omitempty"`
	Timestamp         time.Time                    `json:"timestamp"`
}

// APIStatusResponse is the last known state of one intel provider.
type APIStatusResponse struct {
	Status         string    `json:"status"`
	LastCheck      time.Time `json:"last_check"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	SuccessCount   int64     `json:"success_count"`
	ErrorCount     int64     `json:"error_count"`
}

// PruneResponse is the body of POST /api/v1/admin/prune.
type PruneResponse struct {
	Deleted int64 `json:"deleted"`
	Days    int   `json:"days"`
}

// Health handles GET /api/v1/health. A failing database answers 503.
func (c *Controller) Health(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	resp := HealthResponse{
		Status:            HealthHealthy,
		Database:          "connected",
		URLhausConfigured: c.intel != nil && c.intel.Configured(),
		APIStatus:         map[string]APIStatusResponse{},
		Timestamp:         time.Now().UTC(),
	}

	log := GetLogger().WithContext(reqCtx)
	if err := c.store.Ping(reqCtx); err != nil {
		log.Warn("health check database ping failed", logger.Error(err))
		resp.Status = HealthDegraded
		resp.Database = "error"
	} else if statuses, err := c.store.APIStatuses(reqCtx); err != nil {
		log.Warn("health check could not read api status", logger.Error(err))
	} else {
		for i := range statuses {
			s := &statuses[i]
			resp.APIStatus[s.APIName] = APIStatusResponse{
				Status:         s.Status,
				LastCheck:      s.LastCheck.UTC(),
				ResponseTimeMs: s.ResponseTimeMs,
				SuccessCount:   s.SuccessCount,
				ErrorCount:     s.ErrorCount,
			}
		}
	}

	if c.memoryStats != nil {
		if vm, err := c.memoryStats(reqCtx); err == nil {
			resp.Memory = &MemoryInfo{
				Total:       vm.Total,
				Used:        vm.Used,
				Available:   vm.Available,
				UsedPercent: vm.UsedPercent,
			}
		} else {
			log.Debug("health check could not read memory", logger.Error(err))
		}
	}

	code := http.StatusOK
	if resp.Status != HealthHealthy {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, resp)
}

// Prune handles POST /api/v1/admin/prune?days=N
func (c *Controller) Prune(ctx echo.Context) error {
	days := c.retentionDays
	if raw := ctx.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.HandleError(ctx, err, "days must be a positive integer", http.StatusBadRequest)
		}
		days = n
	}
	olderThan, err := datastore.RetentionPeriod(days)
	if err != nil {
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}

	deleted, err := c.store.PruneDetections(ctx.Request().Context(), olderThan)
	if err != nil {
		return c.handleServiceError(ctx, err, "failed to prune detection history")
	}
	GetLogger().WithContext(ctx.Request().Context()).Info("detection history pruned",
		logger.Int64("deleted", deleted),
		logger.Int("days", days))
	return ctx.JSON(http.StatusOK, PruneResponse{Deleted: deleted, Days: days})
}
