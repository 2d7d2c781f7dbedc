package handler

import (
	"net/http"

	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/internal/ingestion"
	apperrors "fuel-station-monitor/pkg/errors"
	"fuel-station-monitor/pkg/utils"

	"github.com/gin-gonic/gin"
)

const codeBrokerUnavailable = "BROKER_UNAVAILABLE"

// SubscriptionController provisions broker subscriptions for devices.
type SubscriptionController interface {
	AddDevice(ref ingestion.DeviceRef) error
	RemoveDevice(ref ingestion.DeviceRef) error
	DeviceTopics(ref ingestion.DeviceRef) ([]string, error)
	Topics() []string
}

type SubscriptionRequest struct {
	Class   string `json:"class" validate:"required,oneof=dispenser tank"`
	Address string `json:"address" validate:"required,busaddr"`
}

type SubscriptionResponse struct {
	Class   station.DeviceClass `json:"class"`
	Address string              `json:"address"`
	Topics  []string            `json:"topics"`
}

type SubscriptionHandler struct {
	subscriptions SubscriptionController
}

func NewSubscriptionHandler(subscriptions SubscriptionController) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

func (h *SubscriptionHandler) RegisterRoutes(router *gin.RouterGroup) {
	subs := router.Group("/subscriptions")
	{
		subs.GET("", h.ListTopics)
		subs.POST("", h.AddDevice)
		subs.DELETE("/:class/:address", h.RemoveDevice)
	}
}

func (h *SubscriptionHandler) ListTopics(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Subscriptions retrieved successfully", h.subscriptions.Topics())
}

func (h *SubscriptionHandler) AddDevice(c *gin.Context) {
	var req SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ref, err := toDeviceRef(req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device", err)
		return
	}

	if err := h.subscriptions.AddDevice(ref); err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to subscribe device",
			apperrors.NewAppError(codeBrokerUnavailable, "broker rejected subscribe", err))
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Device subscribed successfully", h.response(ref))
}

func (h *SubscriptionHandler) RemoveDevice(c *gin.Context) {
	ref, err := toDeviceRef(SubscriptionRequest{Class: c.Param("class"), Address: c.Param("address")})
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device", err)
		return
	}

	if err := h.subscriptions.RemoveDevice(ref); err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to unsubscribe device",
			apperrors.NewAppError(codeBrokerUnavailable, "broker rejected unsubscribe", err))
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device unsubscribed successfully", h.response(ref))
}

func (h *SubscriptionHandler) response(ref ingestion.DeviceRef) SubscriptionResponse {
	topics, _ := h.subscriptions.DeviceTopics(ref)
	return SubscriptionResponse{Class: ref.Class, Address: ref.Address, Topics: topics}
}

func toDeviceRef(req SubscriptionRequest) (ingestion.DeviceRef, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return ingestion.DeviceRef{}, err
	}
	address, err := station.NormalizeAddress(req.Address)
	if err != nil {
		return ingestion.DeviceRef{}, err
	}
	return ingestion.DeviceRef{Class: station.DeviceClass(req.Class), Address: address}, nil
}
