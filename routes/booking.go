package routes

import (
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers all endpoints for the booking lifecycle.
func RegisterBookingRoutes(r *gin.Engine, hb *HandlerBundle) {
	booking := r.Group("/api/bookings")
	{
		booking.POST("", hb.Booking.CreateBookingHandler)
		booking.GET("/:id", hb.Booking.GetBookingHandler)
		booking.POST("/:id/cancel", hb.Booking.CancelBookingHandler)
		booking.POST("/:id/start", hb.Booking.StartServiceHandler)
		booking.POST("/:id/complete", hb.Booking.CompleteServiceHandler)
	}
}
