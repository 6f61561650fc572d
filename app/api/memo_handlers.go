package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/memo-comb/app/filter"
	"github.com/lysyi3m/memo-comb/app/memo"
	"github.com/lysyi3m/memo-comb/app/merge"
	"github.com/lysyi3m/memo-comb/app/relay"
	"github.com/lysyi3m/memo-comb/app/rss"
)

// rssItems caps the memos exported to /rss.
const rssItems = 50

func (h *Handler) GetMemos(c *gin.Context) {
	sources, ok := h.selectMemoSources(c.Query("source"), c.Query("view"), c.Query("user"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	result, err := h.memos.Run(c.Request.Context(), sources)

	c.JSON(http.StatusOK, memosResponse{
		Items:    filter.Search(h.filterer, result.Items, c.Query("q"), memo.SearchFields...),
		Cursor:   result.Cursor,
		Failures: result.Failures,
		Sources:  result.Sources,
		Message:  pipelineMessage(err),
	})
}

func (h *Handler) PostMoreMemos(c *gin.Context) {
	var req moreMemosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body."})
		return
	}

	sources, ok := h.selectMemoSources(req.Source, req.View, req.User)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	existing := req.Items
	if existing == nil {
		existing = []memo.Record{}
	}

	result, err := h.memos.LoadMore(c.Request.Context(), sources, existing, req.Cursor)

	response := memosResponse{
		Items:    filter.Search(h.filterer, result.Items, req.Query, memo.SearchFields...),
		Cursor:   result.Cursor,
		Failures: result.Failures,
		Sources:  result.Sources,
	}
	if errors.Is(err, merge.ErrNoNewRecords) {
		response.NoNewRecords = true
		response.Message = messageNoNewMemos
	} else {
		response.Message = pipelineMessage(err)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetRSS(c *gin.Context) {
	sources, ok := h.selectMemoSources(c.Query("source"), c.Query("view"), c.Query("user"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	result, err := h.memos.Run(c.Request.Context(), sources)
	if err != nil {
		slog.Warn("RSS export is incomplete", "error", err)
	}

	items := result.Items
	if len(items) > rssItems {
		items = items[:rssItems]
	}

	out, err := h.generator.Run(rss.Channel{Title: "Memo BBS", Path: c.Request.URL.RequestURI()}, items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(out))
}

func (h *Handler) CreateMemo(c *gin.Context) {
	token := c.GetHeader("Authorization")
	if err := h.writer.Check(token); err != nil {
		writeError(c, err)
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body."})
		return
	}

	reply, err := h.writer.Create(c.Request.Context(), token, fields)
	if err != nil {
		writeError(c, err)
		return
	}
	writeReply(c, reply)
}

func (h *Handler) UpdateMemo(c *gin.Context) {
	token := c.GetHeader("Authorization")
	if err := h.writer.Check(token); err != nil {
		writeError(c, err)
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body."})
		return
	}

	reply, err := h.writer.Update(c.Request.Context(), token, c.Param("memoId"), fields)
	if err != nil {
		writeError(c, err)
		return
	}
	writeReply(c, reply)
}

func (h *Handler) DeleteMemo(c *gin.Context) {
	reply, err := h.writer.Delete(c.Request.Context(), c.GetHeader("Authorization"), c.Param("memoId"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeReply(c, reply)
}

func writeReply(c *gin.Context, reply *relay.Reply) {
	if len(reply.Body) == 0 || !json.Valid(reply.Body) {
		c.Status(reply.Status)
		return
	}
	c.Data(reply.Status, "application/json; charset=utf-8", reply.Body)
}

func writeError(c *gin.Context, err error) {
	var upstreamErr *relay.UpstreamError

	switch {
	case errors.Is(err, relay.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Memos API URL is not configured."})
	case errors.Is(err, relay.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is missing."})
	case errors.Is(err, relay.ErrContentRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required."})
	case errors.Is(err, relay.ErrEmptyUpdate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is empty. Nothing to update."})
	case errors.Is(err, relay.ErrMemoIDMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Memo ID is missing."})
	case errors.As(err, &upstreamErr):
		response := gin.H{"error": upstreamErr.Message}
		if json.Valid(upstreamErr.Body) {
			response["details"] = json.RawMessage(upstreamErr.Body)
		} else if len(upstreamErr.Body) > 0 {
			response["details"] = string(upstreamErr.Body)
		}
		c.JSON(upstreamErr.Status, response)
	default:
		slog.Error("Memo write failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "An unexpected error occurred.",
			"details": err.Error(),
		})
	}
}
