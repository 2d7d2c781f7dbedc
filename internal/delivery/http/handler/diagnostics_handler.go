package handler

import (
	"errors"
	"net/http"

	"fuel-station-monitor/internal/diagnostics"
	"fuel-station-monitor/internal/ingestion"
	"fuel-station-monitor/pkg/utils"

	"github.com/gin-gonic/gin"
)

// DiagnosticsReader is the read side of the status cache registry.
type DiagnosticsReader interface {
	Query(device string, kind diagnostics.Kind) (interface{}, error)
	Devices() []string
}

type DiagnosticsHandler struct {
	registry DiagnosticsReader
}

func NewDiagnosticsHandler(registry DiagnosticsReader) *DiagnosticsHandler {
	return &DiagnosticsHandler{registry: registry}
}

func (h *DiagnosticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	diag := router.Group("/diagnostics")
	{
		diag.GET("", h.ListDevices)
		diag.GET("/:device/:kind", h.GetHistory)
	}
}

func (h *DiagnosticsHandler) ListDevices(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", h.registry.Devices())
}

// GetHistory returns the retained history of one kind for a device such as D00012.
func (h *DiagnosticsHandler) GetHistory(c *gin.Context) {
	class, address, err := ingestion.ParseClientID(c.Param("device"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device", err)
		return
	}

	history, err := h.registry.Query(diagnostics.DeviceKey(class, address), diagnostics.Kind(c.Param("kind")))
	switch {
	case errors.Is(err, diagnostics.ErrUnknownKind):
		utils.ErrorResponse(c, http.StatusBadRequest, "Unknown diagnostics kind", err)
		return
	case errors.Is(err, diagnostics.ErrUnknownDevice):
		utils.ErrorResponse(c, http.StatusNotFound, "No diagnostics for device", err)
		return
	case err != nil:
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to read diagnostics", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Diagnostics retrieved successfully", history)
}
