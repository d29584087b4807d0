package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opsstack/incident-rca/internal/config"
	"github.com/opsstack/incident-rca/internal/models"
	"github.com/opsstack/incident-rca/internal/utils"
)

// IncidentProcessor runs the analysis pipeline for one raw log payload.
type IncidentProcessor interface {
	ProcessIncident(ctx context.Context, logs string) models.PipelineResult
}

// Server exposes the incident pipeline over HTTP.
type Server struct {
	httpServer *http.Server
	processor  IncidentProcessor
	latency    *utils.LatencyTracker
	logger     *slog.Logger
}

// NewServer wires the gin router and handlers.
func NewServer(cfg config.ServerConfig, processor IncidentProcessor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		processor: processor,
		latency:   utils.NewLatencyTracker(512),
		logger:    logger,
	}

	router.Use(s.requestLogger())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/incidents", s.handleAnalyze)
	}

	return s
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("http server shutdown", slog.Any("error", err))
	}
}

// requestLogger tags each request with an id and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		s.latency.Observe(time.Since(start))
		s.logger.Info("request handled",
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"requests_seen":  s.latency.Count(),
		"request_p95_ms": s.latency.Percentile(95).Milliseconds(),
	})
}

type analyzeRequest struct {
	Logs string `json:"logs"`
}

// handleAnalyze runs the full pipeline over the submitted log text. A
// pipeline that completes with Success=false still returns 200; the body
// carries the error detail. Only malformed requests get a 4xx.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Logs == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "logs field is required"})
		return
	}

	result := s.processor.ProcessIncident(c.Request.Context(), req.Logs)
	c.JSON(http.StatusOK, result)
}
