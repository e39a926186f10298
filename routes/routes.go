package routes

import (
	"homely/handlers"
	"homely/middleware"

	"github.com/gin-gonic/gin"
)

// HandlerBundle aggregates the handlers the router needs.
type HandlerBundle struct {
	Booking *handlers.BookingHandler
	Webhook *handlers.WebhookHandler
	Admin   *handlers.AdminHandler
}

// RegisterRoutes registers all endpoint groups.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	RegisterBookingRoutes(r, hb)
	RegisterGatewayRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}

// RegisterGatewayRoutes registers the inbound payment-gateway endpoint.
func RegisterGatewayRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/gateway")
	{
		api.POST("/webhook", hb.Webhook.GatewayWebhookHandler)
	}
}

// RegisterAdminRoutes registers the operator endpoints.
func RegisterAdminRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/admin")
	api.Use(middleware.AdminKeyMiddleware())
	{
		api.POST("/settlement/run", hb.Admin.TriggerSettlementHandler)
		api.GET("/settlement/runs/:id", hb.Admin.GetRunHandler)
		api.GET("/payouts", hb.Admin.ListPayoutsHandler)
		api.GET("/escalations", hb.Admin.ListEscalationsHandler)
	}
}
