package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/memo-comb/app/embed"
	"github.com/lysyi3m/memo-comb/app/feed"
	"github.com/lysyi3m/memo-comb/app/filter"
	"github.com/lysyi3m/memo-comb/app/relay"
	"github.com/lysyi3m/memo-comb/app/source"
)

// allFeedsLimit is the default cap of /api/feeds/all.
const allFeedsLimit = 100

func (h *Handler) ListFeeds(c *gin.Context) {
	descriptors := h.registry.Feeds()

	feeds := make([]gin.H, 0, len(descriptors))
	for _, desc := range descriptors {
		feeds = append(feeds, gin.H{
			"id":      desc.ID,
			"name":    desc.DisplayName,
			"url":     desc.Endpoint,
			"type":    desc.Dialect,
			"filters": len(desc.Filters),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"count": len(feeds),
	})
}

func (h *Handler) GetAllFeeds(c *gin.Context) {
	h.serveFeeds(c, h.registry.Feeds(), limitParam(c, allFeedsLimit))
}

func (h *Handler) GetFeedByID(c *gin.Context) {
	desc, ok := h.registry.Feed(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	h.serveFeeds(c, []source.Descriptor{desc}, limitParam(c, feed.MaxItems))
}

func (h *Handler) serveFeeds(c *gin.Context, sources []source.Descriptor, limit int) {
	result, err := h.feeds.Run(c.Request.Context(), sources)

	items := filter.Search(h.filterer, result.Items, c.Query("q"), feed.SearchFields...)
	if len(items) > limit {
		items = items[:limit]
	}

	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.JSON(http.StatusOK, feedsResponse{
		Items:    items,
		Failures: result.Failures,
		Sources:  result.Sources,
		Message:  pipelineMessage(err),
	})
}

func (h *Handler) GetFeedProxy(c *gin.Context) {
	resp, err := h.relay.Forward(c.Request.Context(), c.Query("url"))
	if err != nil {
		var upstreamErr *relay.UpstreamError

		switch {
		case errors.Is(err, relay.ErrTargetMissing):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Feed URL is required"})
		case errors.Is(err, relay.ErrTargetInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Feed URL must be an absolute http(s) URL"})
		case errors.Is(err, relay.ErrTargetForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Feed host is not allowed"})
		case errors.As(err, &upstreamErr):
			c.JSON(upstreamErr.Status, gin.H{"error": upstreamErr.Message})
		default:
			slog.Error("Feed proxy error", "url", c.Query("url"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to proxy feed"})
		}
		return
	}

	c.Data(http.StatusOK, resp.ContentType, resp.Body)
}

func (h *Handler) GetEmbed(c *gin.Context) {
	meta, err := h.embeds.Resolve(c.Request.Context(), c.Query("url"))
	if err != nil {
		if errors.Is(err, embed.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A valid http(s) url parameter is required"})
			return
		}
		slog.Warn("Embed resolution failed", "url", c.Query("url"), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to resolve page metadata",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, meta)
}
