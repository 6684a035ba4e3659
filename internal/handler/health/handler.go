package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/careslot/booking-api/internal/cache"
)

type Handler struct {
	db    *sqlx.DB
	cache cache.SlotCache
}

func NewHandler(db *sqlx.DB, slotCache cache.SlotCache) *Handler {
	return &Handler{
		db:    db,
		cache: slotCache,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// ReadinessCheck fails only on database loss. The cache is reported but
// never gates readiness since slot reads degrade to the database.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "database connection failed",
		})
		return
	}

	cacheStatus := "UP"
	if err := h.cache.Ping(c.Request.Context()); err != nil {
		cacheStatus = "DEGRADED"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"cache":  cacheStatus,
	})
}
