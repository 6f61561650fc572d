package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/memo-comb/app/cfg"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/rss", handler.GetRSS)

	api := r.Group("/api")
	{
		api.GET("/memos", handler.GetMemos)
		api.POST("/memos/more", handler.PostMoreMemos)

		api.GET("/feeds", handler.ListFeeds)
		api.GET("/feeds/all", handler.GetAllFeeds)
		api.GET("/feeds/:id", handler.GetFeedByID)

		api.GET("/feed-proxy", handler.GetFeedProxy)
		api.GET("/embed", handler.GetEmbed)

		api.POST("/memo", handler.CreateMemo)
		api.PATCH("/memo/:memoId", handler.UpdateMemo)
		api.DELETE("/memo/:memoId", handler.DeleteMemo)
	}

	if apiAccessKey != "" {
		admin := r.Group("/api/sources")
		admin.Use(authMiddleware(apiAccessKey))
		{
			admin.GET("", handler.ListSources)
			admin.POST("/:id/probe", handler.ProbeSource)
		}
		slog.Info("Admin endpoints enabled with authentication")
	} else {
		slog.Info("Admin endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"memos":      "/api/memos?view=<bbs|home|random|user>&user=<name>&q=<query>",
			"more":       "/api/memos/more (POST)",
			"feeds":      "/api/feeds, /api/feeds/all, /api/feeds/<id>",
			"feed_proxy": "/api/feed-proxy?url=<feed url>",
			"embed":      "/api/embed?url=<page url>",
			"memo":       "/api/memo (POST), /api/memo/<id> (PATCH, DELETE; requires Authorization header)",
			"rss":        "/rss",
			"health":     "/health",
		}

		if apiAccessKey != "" {
			endpoints["sources"] = "/api/sources (requires X-API-Key header)"
			endpoints["probe"] = "/api/sources/<id>/probe (POST, requires X-API-Key header)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "Memo Comb",
			"version":     cfg.GetVersion(),
			"description": "Memo and blog feed aggregator with multi-source merge, relay and write passthrough",
			"endpoints":   endpoints,
			"api_status": map[string]any{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware checks the admin API key from X-API-Key or a Bearer token.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
