package handler

import (
	"net/http"

	"fuel-station-monitor/internal/calibration"
	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/pkg/utils"

	"github.com/gin-gonic/gin"
)

type CalibrationCache interface {
	Clear(address, tankID string) bool
	ClearAll() int
	Stats() calibration.CacheStats
}

type CalibrationHandler struct {
	cache CalibrationCache
}

func NewCalibrationHandler(cache CalibrationCache) *CalibrationHandler {
	return &CalibrationHandler{cache: cache}
}

func (h *CalibrationHandler) RegisterRoutes(router *gin.RouterGroup) {
	cal := router.Group("/calibration/cache")
	{
		cal.GET("", h.Stats)
		cal.DELETE("", h.ClearAll)
		cal.DELETE("/:address/:tank_id", h.Clear)
	}
}

func (h *CalibrationHandler) Stats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Calibration cache statistics", h.cache.Stats())
}

func (h *CalibrationHandler) ClearAll(c *gin.Context) {
	n := h.cache.ClearAll()
	utils.SuccessResponse(c, http.StatusOK, "Calibration cache cleared", gin.H{"cleared": n})
}

// Clear drops one tank's chart. Tanks are addressed by controller address and
// gauge index, since gauge indexes repeat across controllers.
func (h *CalibrationHandler) Clear(c *gin.Context) {
	address, err := station.NormalizeAddress(c.Param("address"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid tank address", err)
		return
	}

	tankID := utils.SanitizeIdentifier(c.Param("tank_id"))
	if tankID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid tank ID", nil)
		return
	}

	if !h.cache.Clear(address, tankID) {
		utils.ErrorResponse(c, http.StatusNotFound, "No cached table for tank", nil)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Calibration cache cleared", gin.H{
		"address": address,
		"tank_id": tankID,
		"cleared": 1,
	})
}
