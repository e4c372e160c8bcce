package adapters

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/watchroom/server/internal/app"
	"github.com/watchroom/server/internal/config"
	"github.com/watchroom/server/internal/domain"
)

// SetupRouter wires HTTP routes (REST + WS) with the orchestrator.
// - Static UI from cfg.StaticPath, uploaded media from cfg.UploadDir.
// - REST under /api/*, websocket upgrade at /ws.
func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)
	r.Static("/uploads", cfg.UploadDir)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	api := r.Group("/api")
	api.POST("/upload", HandleUpload(cfg))

	// Rooms are created and torn down on the ws path only; the REST
	// surface is read-only observability.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": orch.Store().Rooms()})
	})
	api.GET("/rooms/:id", func(c *gin.Context) {
		id := domain.RoomID(c.Param("id"))
		info, ok := orch.Store().RoomInfo(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRoomNotFound.Error()})
			return
		}
		state, _ := orch.Store().VideoState(id)
		c.JSON(http.StatusOK, gin.H{
			"id":         info.ID,
			"userCount":  info.UserCount,
			"createdAt":  info.CreatedAt,
			"videoState": state,
		})
	})

	ctl := NewWSController(cfg, orch)
	r.GET("/ws", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})

	log.Info().Str("module", "adapters.router").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
