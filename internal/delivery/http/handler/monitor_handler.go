package handler

import (
	"net/http"
	"time"

	"fuel-station-monitor/internal/ingestion"
	"fuel-station-monitor/internal/liveness"
	"fuel-station-monitor/pkg/utils"

	"github.com/gin-gonic/gin"
)

type LivenessReader interface {
	Entries() []liveness.Entry
}

type IngestionStats interface {
	Snapshot() ingestion.IngestMetrics
}

type LivenessEntryResponse struct {
	NozzleID         string    `json:"nozzle_id"`
	DispenserID      string    `json:"dispenser_id"`
	LastSeen         time.Time `json:"last_seen"`
	SecondsRemaining float64   `json:"seconds_remaining"`
}

// MonitorHandler exposes the liveness table and the ingestion counters.
type MonitorHandler struct {
	liveness LivenessReader
	stats    IngestionStats
}

func NewMonitorHandler(liveness LivenessReader, stats IngestionStats) *MonitorHandler {
	return &MonitorHandler{liveness: liveness, stats: stats}
}

func (h *MonitorHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/liveness", h.Liveness)
	router.GET("/ingestion/metrics", h.IngestionMetrics)
}

func (h *MonitorHandler) Liveness(c *gin.Context) {
	entries := h.liveness.Entries()
	out := make([]LivenessEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = LivenessEntryResponse{
			NozzleID:         e.NozzleID,
			DispenserID:      e.DispenserID,
			LastSeen:         e.LastSeen,
			SecondsRemaining: e.ExpiresIn.Seconds(),
		}
	}
	utils.SuccessResponse(c, http.StatusOK, "Liveness entries retrieved successfully", out)
}

func (h *MonitorHandler) IngestionMetrics(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Ingestion metrics retrieved successfully", h.stats.Snapshot())
}
