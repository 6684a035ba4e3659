package provider

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careslot/booking-api/internal/handler"
	"github.com/careslot/booking-api/internal/middleware"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/service/appointment"
	"github.com/careslot/booking-api/internal/service/auth"
	"github.com/careslot/booking-api/internal/service/availability"
	"github.com/careslot/booking-api/internal/service/schedule"
	apperrors "github.com/careslot/booking-api/pkg/errors"
)

// defaultRangeDays is the window served when the caller omits the range.
const defaultRangeDays = 7

type Handler struct {
	scheduleSvc     *schedule.Service
	availabilitySvc *availability.Service
	appointmentSvc  *appointment.Service
	authSvc         *auth.Service
}

func NewHandler(
	scheduleSvc *schedule.Service,
	availabilitySvc *availability.Service,
	appointmentSvc *appointment.Service,
	authSvc *auth.Service,
) *Handler {
	return &Handler{
		scheduleSvc:     scheduleSvc,
		availabilitySvc: availabilitySvc,
		appointmentSvc:  appointmentSvc,
		authSvc:         authSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	providers := r.Group("/providers")
	{
		providers.GET("", h.ListProviders)
		providers.PUT("/:id/availability", h.SetAvailability)
		providers.GET("/:id/time-slots", h.GetTimeSlots)
		providers.GET("/:id/booked-appointments", h.GetBookedAppointments)
	}
}

func (h *Handler) SetAvailability(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid provider id", err))
		return
	}

	var req model.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation(err.Error(), err))
		return
	}

	if err := h.scheduleSvc.SetAvailability(c.Request.Context(), principal, providerID, &req); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("availability updated"))
}

func (h *Handler) GetTimeSlots(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid provider id", err))
		return
	}

	dateRange, err := bindDateRange(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	slots, err := h.availabilitySvc.GetTimeSlots(c.Request.Context(), providerID, dateRange)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) GetBookedAppointments(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid provider id", err))
		return
	}

	dateRange, err := bindDateRange(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	appointments, err := h.appointmentSvc.GetBookedAppointments(c.Request.Context(), principal, providerID, dateRange)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) ListProviders(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	providers, err := h.authSvc.ListProviders(c.Request.Context(), principal)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(providers))
}

// bindDateRange parses start_date/end_date query params, defaulting to
// today through the next week when omitted.
func bindDateRange(c *gin.Context) (model.DateRange, error) {
	var dateRange model.DateRange
	if err := c.ShouldBindQuery(&dateRange); err != nil {
		return model.DateRange{}, apperrors.Validation("invalid date range", err)
	}

	if dateRange.Start.IsZero() {
		dateRange.Start = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if dateRange.End.IsZero() {
		dateRange.End = dateRange.Start.AddDate(0, 0, defaultRangeDays)
	}
	if dateRange.End.Before(dateRange.Start) {
		return model.DateRange{}, apperrors.Validation("end_date precedes start_date", nil)
	}

	return dateRange, nil
}
