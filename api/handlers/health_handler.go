package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/mediagrab/internal/domain"
)

// StatsSource reports aggregate user statistics.
type StatsSource interface {
	GetStats() (*domain.UserStats, error)
}

// BotStatus reports whether the bot's update loop is running.
type BotStatus interface {
	IsRunning() bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	bot   BotStatus
	stats StatsSource
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(bot BotStatus, stats StatsSource) *HealthHandler {
	return &HealthHandler{
		bot:   bot,
		stats: stats,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Bot     struct {
		Running bool `json:"running"`
	} `json:"bot"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	response.Bot.Running = h.bot.IsRunning()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.bot.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "bot update loop not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Stats handles GET /api/v1/stats
func (h *HealthHandler) Stats(c *gin.Context) {
	stats, err := h.stats.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
