package httpapi

import (
	"net/http"
	"strconv"

	"shop-service/internal/models"
	"shop-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderHandler struct {
	checkout service.CheckoutService
	status   service.StatusService
	log      *zap.Logger
}

func NewOrderHandler(checkout service.CheckoutService, status service.StatusService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{checkout: checkout, status: status, log: log}
}

func (h *OrderHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body", nil))
		return
	}

	order, err := h.checkout.CreateOrderFromCart(c.Request.Context(), service.CheckoutInput{
		Address:        req.Address.toInput(),
		CouponCode:     req.CouponCode,
		ShippingMethod: req.ShippingMethod,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) CreatePaymentSession(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}

	url, err := h.checkout.CreatePaymentSession(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, PaymentSessionResponse{RedirectURL: url})
}

func (h *OrderHandler) ShippingOptions(c *gin.Context) {
	opts, err := h.checkout.ShippingOptions(c.Request.Context(), c.Query("zip"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	resp := make([]ShippingOptionResponse, 0, len(opts))
	for _, o := range opts {
		resp = append(resp, ShippingOptionResponse{
			Provider:     o.Provider,
			Name:         o.Name,
			PriceCents:   o.PriceCents,
			DeliveryDays: o.DeliveryDays,
		})
	}
	c.JSON(http.StatusOK, gin.H{"options": resp})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}

	order, err := h.checkout.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	in := service.OrderListInput{
		Limit:  atoiQuery(c, "limit", 20),
		Offset: atoiQuery(c, "offset", 0),
	}
	if s := c.Query("status"); s != "" {
		st := models.OrderStatus(s)
		in.Status = &st
	}

	orders, total, err := h.checkout.ListOrders(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	resp := OrderListResponse{
		Orders: make([]OrderResponse, 0, len(orders)),
		Total:  total,
		Limit:  in.Limit,
		Offset: in.Offset,
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) ListHistory(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}

	entries, err := h.checkout.ListHistory(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	resp := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, HistoryEntryResponse{
			Status:    e.Status,
			Message:   e.Message,
			ActorRole: e.ActorRole,
			CreatedAt: e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": resp})
}

func (h *OrderHandler) RequestRefund(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}
	var req RefundRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body", nil))
		return
	}

	in := service.RefundRequestInput{Type: req.Type}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.RefundItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	order, err := h.status.RequestRefund(c.Request.Context(), orderID, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func atoiQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
