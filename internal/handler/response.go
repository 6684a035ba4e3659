package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/careslot/booking-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// StatusOf maps an application error code to the HTTP status the client
// should see.
func StatusOf(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeInvalidState, apperrors.CodeSlotUnavailable:
		return http.StatusConflict
	case apperrors.CodeExpired:
		return http.StatusGone
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the JSON error response for err and records it on the
// context for the logging middleware.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(StatusOf(err), NewErrorResponse(apperrors.MessageOf(err)))
}
