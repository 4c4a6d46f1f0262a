// Package httpapi — HTTP-поверхность сервиса: корзина, оформление заказа,
// заказы и возвраты, админские операции и вебхук платёжного шлюза.
package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shop-service/internal/service"
)

type RouterConfig struct {
	JWTSecret            string
	WebhookRatePerSecond int
	WebhookRateBurst     int
}

func Router(
	cfg RouterConfig,
	carts service.CartService,
	checkout service.CheckoutService,
	status service.StatusService,
	webhooks service.WebhookService,
	flags *service.FlagService,
	log *zap.Logger,
) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		// cors запрещает credentials вместе с wildcard origin;
		// авторизация идёт заголовком Authorization, куки не нужны
		AllowCredentials: false,
	}))
	r.Use(ClientMeta())

	cartHandler := NewCartHandler(carts, log)
	orderHandler := NewOrderHandler(checkout, status, log)
	webhookHandler := NewWebhookHandler(webhooks, log)
	adminHandler := NewAdminHandler(status, flags, log)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	r.POST("/webhooks/payment",
		RateLimit(cfg.WebhookRatePerSecond, cfg.WebhookRateBurst),
		webhookHandler.HandleGatewayEvent)

	authed := r.Group("/", AuthRequired(cfg.JWTSecret, log))
	{
		authed.POST("/cart/items", cartHandler.AddItem)
		authed.PUT("/cart/items/:product_id", cartHandler.UpdateQuantity)
		authed.DELETE("/cart/items/:product_id", cartHandler.RemoveItem)
		authed.DELETE("/cart", cartHandler.Clear)
		authed.GET("/cart", cartHandler.Get)

		authed.GET("/shipping/options", orderHandler.ShippingOptions)

		authed.POST("/checkout", orderHandler.Checkout)
		authed.POST("/orders/:id/pay", orderHandler.CreatePaymentSession)
		authed.GET("/orders", orderHandler.ListOrders)
		authed.GET("/orders/:id", orderHandler.GetOrder)
		authed.GET("/orders/:id/history", orderHandler.ListHistory)
		authed.POST("/orders/:id/refund-request", orderHandler.RequestRefund)

		admin := authed.Group("/admin", RequireAdmin())
		{
			admin.PUT("/orders/:id/status", adminHandler.UpdateStatus)
			admin.PUT("/settings/:key", adminHandler.SetFlag)
		}
	}

	return r
}
