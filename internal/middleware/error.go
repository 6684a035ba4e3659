package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/careslot/booking-api/internal/handler"
	apperrors "github.com/careslot/booking-api/pkg/errors"
)

// ErrorHandler converts errors attached to the gin context into a JSON
// response with the status derived from the application error code.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		status := handler.StatusOf(lastErr)
		c.JSON(status, handler.NewErrorResponse(apperrors.MessageOf(lastErr)))
	}
}
