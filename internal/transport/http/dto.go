package httpapi

import (
	"time"

	"shop-service/internal/models"
	"shop-service/internal/service"

	"github.com/google/uuid"
)

// BaseError универсальный корневой формат ошибки
// Code — машинно-ориентированный код (snake_case)
// Message — краткое человеко-читаемое описание
// Details — дополнительная строка (пояснение)
// Fields — для валидационных ошибок (имя поля + текст)
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

func NewValidationError(msg string, fields []FieldError) BaseError {
	return BaseError{Code: "validation_error", Message: msg, Fields: fields}
}
func NewConflictError(msg string) BaseError {
	return BaseError{Code: "conflict", Message: msg}
}
func NewUnauthorizedError(msg string) BaseError {
	return BaseError{Code: "unauthorized", Message: msg}
}
func NewForbiddenError(msg string) BaseError {
	return BaseError{Code: "forbidden", Message: msg}
}
func NewNotFoundError(msg string) BaseError {
	return BaseError{Code: "not_found", Message: msg}
}
func NewRateLimitedError(msg string) BaseError {
	return BaseError{Code: "rate_limited", Message: msg}
}
func NewInternalError(details string) BaseError {
	return BaseError{Code: "internal_error", Message: "internal server error", Details: details}
}

type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int32     `json:"quantity" binding:"required"`
}

type UpdateQuantityRequest struct {
	Quantity *int32 `json:"quantity" binding:"required"`
}

type CartItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type CartResponse struct {
	ID          uuid.UUID          `json:"id"`
	Items       []CartItemResponse `json:"items"`
	LastUpdated time.Time          `json:"last_updated"`
}

func toCartResponse(cart *models.Cart) CartResponse {
	resp := CartResponse{
		ID:          cart.ID,
		Items:       make([]CartItemResponse, 0, len(cart.Items)),
		LastUpdated: cart.LastUpdated,
	}
	for _, it := range cart.Items {
		resp.Items = append(resp.Items, CartItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt,
		})
	}
	return resp
}

type AddressRequest struct {
	Line1   string `json:"line1" binding:"required"`
	Line2   string `json:"line2"`
	City    string `json:"city" binding:"required"`
	Region  string `json:"region"`
	Country string `json:"country" binding:"required"`
	Zip     string `json:"zip" binding:"required"`
}

type CheckoutRequest struct {
	Address        AddressRequest `json:"address" binding:"required"`
	CouponCode     string         `json:"coupon_code"`
	ShippingMethod string         `json:"shipping_method" binding:"required"`
}

type OrderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int32     `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	RefundQuantity int32     `json:"refund_quantity,omitempty"`
}

type OrderResponse struct {
	ID                   uuid.UUID           `json:"id"`
	Status               models.OrderStatus  `json:"status"`
	ShippingAddress      string              `json:"shipping_address"`
	ShippingMethod       string              `json:"shipping_method"`
	ShippingCostCents    int64               `json:"shipping_cost_cents"`
	SubTotalCents        int64               `json:"sub_total_cents"`
	DiscountCents        int64               `json:"discount_cents"`
	TotalCents           int64               `json:"total_cents"`
	AppliedCoupon        *string             `json:"applied_coupon,omitempty"`
	RefundType           *models.RefundType  `json:"refund_type,omitempty"`
	RefundRequestedCents *int64              `json:"refund_requested_cents,omitempty"`
	TrackingCode         *string             `json:"tracking_code,omitempty"`
	ReverseLogisticsCode *string             `json:"reverse_logistics_code,omitempty"`
	ReturnInstructions   *string             `json:"return_instructions,omitempty"`
	DeliveredAt          *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	Items                []OrderItemResponse `json:"items"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:                   o.ID,
		Status:               o.Status,
		ShippingAddress:      o.ShippingAddress,
		ShippingMethod:       o.ShippingMethod,
		ShippingCostCents:    o.ShippingCostCents,
		SubTotalCents:        o.SubTotalCents,
		DiscountCents:        o.DiscountCents,
		TotalCents:           o.TotalCents,
		AppliedCoupon:        o.AppliedCoupon,
		RefundType:           o.RefundType,
		RefundRequestedCents: o.RefundRequestedCents,
		TrackingCode:         o.TrackingCode,
		ReverseLogisticsCode: o.ReverseLogisticsCode,
		ReturnInstructions:   o.ReturnInstructions,
		DeliveredAt:          o.DeliveredAt,
		CreatedAt:            o.CreatedAt,
		Items:                make([]OrderItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			RefundQuantity: it.RefundQuantity,
		})
	}
	return resp
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type HistoryEntryResponse struct {
	Status    models.OrderStatus `json:"status"`
	Message   string             `json:"message"`
	ActorRole string             `json:"actor_role,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

type PaymentSessionResponse struct {
	RedirectURL string `json:"redirect_url"`
}

type ShippingOptionResponse struct {
	Provider     string `json:"provider"`
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	DeliveryDays int32  `json:"delivery_days"`
}

type RefundItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int32     `json:"quantity" binding:"required"`
}

type RefundRequestBody struct {
	Type  models.RefundType   `json:"type" binding:"required"`
	Items []RefundItemRequest `json:"items"`
}

type UpdateStatusRequest struct {
	Status                models.OrderStatus `json:"status" binding:"required"`
	TrackingCode          *string            `json:"tracking_code"`
	ReverseLogisticsCode  *string            `json:"reverse_logistics_code"`
	ReturnInstructions    *string            `json:"return_instructions"`
	RefundAmountCents     *int64             `json:"refund_amount_cents"`
	RefundRejectionReason *string            `json:"refund_rejection_reason"`
	RefundRejectionProof  *string            `json:"refund_rejection_proof"`
}

type SetFlagRequest struct {
	Value string `json:"value" binding:"required"`
}

type WebhookResponse struct {
	Status string `json:"status"`
}

func (a AddressRequest) toInput() service.AddressInput {
	return service.AddressInput{
		Line1:   a.Line1,
		Line2:   a.Line2,
		City:    a.City,
		Region:  a.Region,
		Country: a.Country,
		Zip:     a.Zip,
	}
}
