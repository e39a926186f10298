package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"homely/models"
	"homely/services/booking"
	"homely/utils"
)

const bookingCacheTTL = 5 * time.Minute

// BookingHandler exposes the booking lifecycle endpoints.
type BookingHandler struct {
	Svc    booking.BookingService
	Cache  *redis.Client
	Logger *zap.Logger
}

func NewBookingHandler(svc booking.BookingService, cache *redis.Client, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Svc: svc, Cache: cache, Logger: logger}
}

// CreateBookingHandler opens a new booking in pending status.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	b, err := h.Svc.CreateBooking(c.Request.Context(), input)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to create booking", err.Error())
		return
	}

	c.JSON(http.StatusCreated, b)
}

// GetBookingHandler returns one booking, served from the read cache when warm.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if cached, err := h.Cache.Get(ctx, bookingCacheKey(id)).Result(); err == nil {
		var b models.Booking
		if json.Unmarshal([]byte(cached), &b) == nil {
			c.JSON(http.StatusOK, b)
			return
		}
	}

	b, err := h.Svc.GetBooking(ctx, id)
	if err != nil {
		status := http.StatusInternalServerError
		if booking.ErrCode(err) == booking.CodeNotFound {
			status = http.StatusNotFound
		}
		utils.JSONError(c, status, "failed to fetch booking", err.Error())
		return
	}

	h.cacheBooking(ctx, b)
	c.JSON(http.StatusOK, b)
}

// CancelBookingHandler applies the cancellation flow and returns the policy
// decision with the refund amount, the reason surfaced verbatim.
func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	id := c.Param("id")
	var input struct {
		Initiator string `json:"initiator"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if input.Initiator == "" {
		input.Initiator = "customer"
	}

	decision, err := h.Svc.Cancel(c.Request.Context(), id, input.Initiator, time.Now())
	if err != nil {
		h.respondTransitionError(c, err, decision)
		return
	}

	h.invalidateBooking(c.Request.Context(), id)
	b, _ := h.Svc.GetBooking(c.Request.Context(), id)

	resp := gin.H{
		"allowed":       decision.Allowed,
		"refundPercent": decision.RefundPercent,
		"reason":        decision.Reason,
	}
	if b != nil {
		resp["status"] = b.Status
		resp["refundAmount"] = b.RefundDueAmount
	}
	c.JSON(http.StatusOK, resp)
}

// StartServiceHandler records that the professional started the visit.
func (h *BookingHandler) StartServiceHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.MarkServiceStarted(c.Request.Context(), id); err != nil {
		h.respondTransitionError(c, err, nil)
		return
	}
	h.invalidateBooking(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"status": "in_progress"})
}

// CompleteServiceHandler records the professional's completion signal.
func (h *BookingHandler) CompleteServiceHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.MarkServiceCompleted(c.Request.Context(), id, time.Now()); err != nil {
		h.respondTransitionError(c, err, nil)
		return
	}
	h.invalidateBooking(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"completed": true})
}

func (h *BookingHandler) respondTransitionError(c *gin.Context, err error, extra interface{}) {
	code := booking.ErrCode(err)
	status := http.StatusInternalServerError
	switch code {
	case booking.CodeNotFound:
		status = http.StatusNotFound
	case booking.CodeAlreadyTerminal, booking.CodeInProgress, booking.CodeInvalidTransition:
		status = http.StatusConflict
	case booking.CodeConcurrentModification:
		status = http.StatusConflict
	case booking.CodeAmountMismatch:
		status = http.StatusUnprocessableEntity
	}
	resp := gin.H{"error": err.Error(), "code": code}
	if extra != nil {
		resp["decision"] = extra
	}
	c.JSON(status, resp)
}

func (h *BookingHandler) cacheBooking(ctx context.Context, b *models.Booking) {
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := h.Cache.Set(ctx, bookingCacheKey(b.ID), data, bookingCacheTTL).Err(); err != nil {
		h.Logger.Debug("Failed to cache booking", zap.String("bookingId", b.ID), zap.Error(err))
	}
}

func (h *BookingHandler) invalidateBooking(ctx context.Context, id string) {
	if err := h.Cache.Del(ctx, bookingCacheKey(id)).Err(); err != nil {
		h.Logger.Debug("Failed to invalidate booking cache", zap.String("bookingId", id), zap.Error(err))
	}
}

func bookingCacheKey(id string) string {
	return "booking:" + id
}
