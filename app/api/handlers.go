package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/memo-comb/app/aggregate"
	"github.com/lysyi3m/memo-comb/app/filter"
	"github.com/lysyi3m/memo-comb/app/source"
)

const (
	messageNoSources  = "no sources configured"
	messageAllFailed  = "all sources failed, try again later"
	messageNoNewMemos = "no new memos"
)

func NewHandler(deps Deps) *Handler {
	return &Handler{
		registry:  deps.Registry,
		memos:     deps.Memos,
		feeds:     deps.Feeds,
		relay:     deps.Relay,
		writer:    deps.Writer,
		embeds:    deps.Embeds,
		generator: deps.Generator,
		filterer:  filter.NewFilterer(),
		store:     deps.Store,
		scheduler: deps.Scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"timestamp":    time.Now().In(time.Local).Format(time.RFC3339),
		"memo_sources": len(h.registry.Memos()),
		"feed_sources": len(h.registry.Feeds()),
	}

	if h.store != nil {
		if count, err := h.store.GetSourceCount(c.Request.Context()); err == nil {
			health["tracked_sources"] = count
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListSources(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Source status store is not available"})
		return
	}

	statuses, err := h.store.ListSources(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	healthy := 0
	for _, status := range statuses {
		if status.Healthy() {
			healthy++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": statuses,
		"total":   len(statuses),
		"healthy": healthy,
	})
}

func (h *Handler) ProbeSource(c *gin.Context) {
	id := c.Param("id")

	desc, ok := h.registry.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler is not running"})
		return
	}

	if err := h.scheduler.EnqueueProbe(desc.ID); err != nil {
		slog.Error("Error enqueueing probe task", "source", desc.ID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue probe task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Probe enqueued",
		"source": gin.H{
			"id":      desc.ID,
			"kind":    desc.Kind(),
			"dialect": desc.Dialect,
		},
	})
}

// pipelineMessage turns a cycle error into the inline message shown to the
// user. Per-source failures never reach here.
func pipelineMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, aggregate.ErrNoSources):
		return messageNoSources
	case errors.Is(err, aggregate.ErrAllSourcesFailed):
		return messageAllFailed
	default:
		return err.Error()
	}
}

// selectMemoSources resolves the memo sources addressed by a request. An
// explicit source id wins over the view.
func (h *Handler) selectMemoSources(sourceID, view, user string) ([]source.Descriptor, bool) {
	if sourceID != "" {
		desc, ok := h.registry.Get(sourceID)
		if !ok || desc.Kind() != source.KindMemo {
			return nil, false
		}
		return []source.Descriptor{desc}, true
	}

	if view == "" {
		view = string(source.ViewAll)
	}
	return h.registry.Select(source.View(view), user), true
}

func limitParam(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
