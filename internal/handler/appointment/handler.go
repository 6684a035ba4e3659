package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careslot/booking-api/internal/handler"
	"github.com/careslot/booking-api/internal/middleware"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/service/appointment"
	apperrors "github.com/careslot/booking-api/pkg/errors"
)

type Handler struct {
	svc *appointment.Service
}

func NewHandler(svc *appointment.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.Reserve)
		appointments.POST("/:id/confirm", h.Confirm)
		appointments.POST("/:id/cancel", h.Cancel)
	}
}

func (h *Handler) Reserve(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	var req model.ReserveAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation(err.Error(), err))
		return
	}

	appt, err := h.svc.Reserve(c.Request.Context(), principal, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(appt))
}

func (h *Handler) Confirm(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid appointment id", err))
		return
	}

	appt, err := h.svc.Confirm(c.Request.Context(), principal, id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func (h *Handler) Cancel(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid appointment id", err))
		return
	}

	appt, err := h.svc.Cancel(c.Request.Context(), principal, id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}
