package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/tasks"
)

func NewHandler(itemRepo database.ItemRepository, scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		itemRepo:  itemRepo,
		scheduler: scheduler,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) GetStatus(c *gin.Context) {
	summary, err := h.itemRepo.Summary(c.Request.Context())
	if err != nil {
		slog.Error("Status query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	states := make(map[string]int, len(summary.ByState))
	for state, count := range summary.ByState {
		states[string(state)] = count
	}

	c.JSON(http.StatusOK, gin.H{
		"states":           states,
		"pending_approval": summary.Pending,
		"approved_queued":  summary.ApprovedQueued,
		"published_total":  summary.PublishedTotal,
		"published_today":  summary.PublishedToday,
	})
}

func (h *Handler) TriggerFetch(c *gin.Context) {
	h.scheduler.TriggerFetch()
	c.JSON(http.StatusAccepted, gin.H{
		"status": "fetch cycle scheduled",
	})
}
