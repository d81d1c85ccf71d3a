package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"heartstream/internal/models"
)

const serviceVersion = "1.0.0"

// Server is the read-only status surface of a replay session: health probe,
// last-published snapshot, and Prometheus metrics. It never touches live
// session state; the loop pushes snapshot copies into it.
type Server struct {
	router    *gin.Engine
	logger    *zap.Logger
	sessionID string
	startedAt time.Time

	mu   sync.RWMutex
	last *models.Snapshot
}

// NewServer builds the status server for one session.
func NewServer(sessionID string, registry *prometheus.Registry, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:    router,
		logger:    logger,
		sessionID: sessionID,
		startedAt: time.Now(),
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "heartstream",
			"version": serviceVersion,
		})
	})

	router.GET("/status", func(c *gin.Context) {
		s.mu.RLock()
		last := s.last
		s.mu.RUnlock()

		resp := gin.H{
			"service":    "heartstream",
			"version":    serviceVersion,
			"session_id": s.sessionID,
			"uptime":     time.Since(s.startedAt).String(),
		}
		if last != nil {
			resp["last_snapshot"] = last
		}
		c.JSON(http.StatusOK, resp)
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return s
}

// Observe stores a copy of the latest published snapshot.
func (s *Server) Observe(snap models.Snapshot) {
	s.mu.Lock()
	s.last = &snap
	s.mu.Unlock()
}

// Run serves until the listener fails. Meant to be started on its own
// goroutine; the process exits with the replay session, not the server.
func (s *Server) Run(addr string) {
	s.logger.Info("Status server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Error("Status server failed", zap.Error(err))
	}
}
