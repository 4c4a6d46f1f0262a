package httpapi

import (
	"net/http"

	"shop-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminHandler struct {
	status service.StatusService
	flags  *service.FlagService
	log    *zap.Logger
}

func NewAdminHandler(status service.StatusService, flags *service.FlagService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{status: status, flags: flags, log: log}
}

func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body", nil))
		return
	}

	order, err := h.status.UpdateStatus(c.Request.Context(), orderID, service.UpdateStatusInput{
		Status:                req.Status,
		TrackingCode:          req.TrackingCode,
		ReverseLogisticsCode:  req.ReverseLogisticsCode,
		ReturnInstructions:    req.ReturnInstructions,
		RefundAmountCents:     req.RefundAmountCents,
		RefundRejectionReason: req.RefundRejectionReason,
		RefundRejectionProof:  req.RefundRejectionProof,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// SetFlag выставляет значение фич-флага (например purchase_enabled)
func (h *AdminHandler) SetFlag(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, NewValidationError("flag key required", nil))
		return
	}
	var req SetFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body", nil))
		return
	}

	if err := h.flags.Set(c.Request.Context(), key, req.Value); err != nil {
		h.log.Error("Не удалось сохранить флаг", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value})
}
