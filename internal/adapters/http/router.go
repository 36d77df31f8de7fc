package http

import (
	"context"
	"net/http"

	"github.com/dkeye/confrelay/internal/adapters/signal"
	"github.com/dkeye/confrelay/internal/config"
	"github.com/dkeye/confrelay/internal/core"
	"github.com/dkeye/confrelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SessionView is the read side of the relay the admin API exposes.
type SessionView interface {
	Snapshot() []core.SessionInfo
	Session(name domain.SessionName) (core.SessionInfo, bool)
}

// CounterSource exposes named counters.
type CounterSource interface {
	Snapshot() map[string]uint64
}

// Deps are the collaborators of the admin router.
type Deps struct {
	Sessions SessionView
	Counters CounterSource
	Control  core.ControlHandler
	Clients  func() int
}

func SetupRouter(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if d.Clients != nil {
			body["clients"] = d.Clients()
		}
		c.JSON(http.StatusOK, body)
	})

	api := r.Group("/api")

	// GET /api/sessions: every live session
	api.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": d.Sessions.Snapshot()})
	})

	// GET /api/sessions/:name
	api.GET("/sessions/:name", func(c *gin.Context) {
		info, ok := d.Sessions.Session(domain.SessionName(c.Param("name")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, info)
	})

	api.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"counters": d.Counters.Snapshot()})
	})

	if d.Control != nil {
		ctrl := signal.NewControlWSController(d.Control, cfg.WSReadLimit, cfg.SendQueue, cfg.WriteTimeout)
		r.GET("/ws/control", func(c *gin.Context) {
			ctrl.HandleControl(ctx, c)
		})
	}

	return r
}
