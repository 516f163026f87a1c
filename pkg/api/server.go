// Package api exposes the scenario-runner's HTTP surface: case execution,
// scenario-run lifecycle, reporting, and a liveness probe, wrapped in the
// unified {code, message, data} envelope.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/report"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/services"
)

// Server wires the HTTP router to the service layer.
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	caseRuns     *services.CaseRunService
	scenarioRuns *services.ScenarioRunService
	reports      *report.Builder
	dbPing       func(ctx context.Context) error
	brokerPing   func(ctx context.Context) error
	logger       *slog.Logger
}

// NewServer builds the router and registers every route.
func NewServer(caseRuns *services.CaseRunService, scenarioRuns *services.ScenarioRunService, reports *report.Builder, dbPing, brokerPing func(ctx context.Context) error, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	s := &Server{router: router, caseRuns: caseRuns, scenarioRuns: scenarioRuns, reports: reports, dbPing: dbPing, brokerPing: brokerPing, logger: logger}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.POST("/case/run", s.handleCaseRun)
	api.POST("/scenario/run", s.handleScenarioRun)
	api.GET("/scenario/run/:id", s.handleGetScenarioRun)
	api.GET("/scenario/run/:id/report", s.handleScenarioRunReport)
	api.POST("/scenario/run/cancel", s.handleScenarioRunCancel)
}

// Start runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request handled",
			"method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "duration_ms", time.Since(start).Milliseconds())
	}
}
