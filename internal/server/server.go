package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"tickerchat-go/internal/config"
	"tickerchat-go/internal/credential"
	"tickerchat-go/internal/runtime"
	"tickerchat-go/internal/scheduler"
	"tickerchat-go/internal/storage"
	"tickerchat-go/internal/symbols"
	"tickerchat-go/internal/version"
)

// Server exposes the operational surface: health, metrics and a status
// snapshot. It never exposes tokens or client secrets.
type Server struct {
	cfg      *config.Config
	backend  storage.Backend
	tasks    *runtime.TaskManager
	engine   *scheduler.Engine
	store    *symbols.Store
	managers []*credential.Manager

	httpServer *http.Server
}

// New builds the status server around the already-wired components.
func New(cfg *config.Config, backend storage.Backend, tasks *runtime.TaskManager,
	engine *scheduler.Engine, store *symbols.Store, managers []*credential.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		backend:  backend,
		tasks:    tasks,
		engine:   engine,
		store:    store,
		managers: managers,
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)

	authed := router.Group("/", managementAuth(cfg.ManagementKey, cfg.ManagementKeyHash))
	authed.GET("/metrics", gin.WrapH(promhttp.Handler()))
	authed.GET("/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:              cfg.StatusAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until Shutdown is called. http.ErrServerClosed is the normal
// shutdown path and is not reported as an error.
func (s *Server) Run() error {
	log.WithField("addr", s.cfg.StatusAddr).Info("status server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.backend.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type identityStatus struct {
	Name   string `json:"name"`
	UserID string `json:"user_id,omitempty"`
}

type taskStatus struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

func (s *Server) handleStatus(c *gin.Context) {
	identities := make([]identityStatus, 0, len(s.managers))
	for _, m := range s.managers {
		identities = append(identities, identityStatus{
			Name:   m.Name(),
			UserID: m.UserID(),
		})
	}

	taskSnap := s.tasks.Snapshot()
	tasks := make([]taskStatus, 0, len(taskSnap))
	for _, t := range taskSnap {
		ts := taskStatus{
			Name:        t.Name,
			Description: t.Description,
			StartTime:   t.StartTime,
			Status:      string(t.Status),
		}
		if t.Error != nil {
			ts.Error = t.Error.Error()
		}
		tasks = append(tasks, ts)
	}

	c.JSON(http.StatusOK, gin.H{
		"version":    version.Version,
		"identities": identities,
		"scheduler":  s.engine.Status(),
		"symbols": gin.H{
			"size":      s.store.Size(),
			"capacity":  s.store.Capacity(),
			"low_water": s.store.LowWater(),
		},
		"tasks": tasks,
	})
}
