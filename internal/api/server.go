// Package api exposes the triage service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mediscan-triage-server/internal/catalog"
	"github.com/mediscan-triage-server/internal/domain"
	"github.com/mediscan-triage-server/internal/logging"
	"github.com/mediscan-triage-server/internal/metrics"
	"github.com/mediscan-triage-server/internal/middleware"
)

const (
	rootMessage = "Healthcare Diagnostic API is running"

	// multipartMemory is how much of a multipart body is kept in memory
	// before file parts spill to disk.
	multipartMemory = 8 << 20
)

// Dependencies are the collaborators a Server needs besides configuration.
// Metrics may be nil.
type Dependencies struct {
	Logger    *logrus.Logger
	Processor domain.TriageProcessor
	Catalog   *catalog.Catalog
	Metrics   *metrics.Collector
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	router        *gin.Engine
	server        *http.Server
	startedAt     time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) (*Server, error) {
	cfg := configManager.GetConfig()

	if deps.Logger == nil || deps.Processor == nil || deps.Catalog == nil {
		return nil, errors.New("api: logger, processor and catalog are required")
	}

	// Set Gin mode based on environment
	if strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = multipartMemory

	// Add middleware
	router.Use(middleware.CorrelationID())
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}
	router.Use(middleware.AuditLogger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.CORS))

	server := &Server{
		configManager: configManager,
		deps:          deps,
		router:        router,
		startedAt:     time.Now(),
	}

	// Setup routes
	if err := server.setupRoutes(); err != nil {
		return nil, err
	}

	return server, nil
}

// Router returns the underlying gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errCh)
	}()

	// Wait for context cancellation
	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.deps.Logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() error {
	cfg := s.configManager.GetConfig()

	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)

	if cfg.Metrics.Enabled && s.deps.Metrics != nil {
		s.router.GET(cfg.Metrics.Path, gin.WrapH(s.deps.Metrics.Handler()))
	}

	s.router.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, http.StatusNotFound, "NOT_FOUND", "Not Found")
	})

	diagnose := []gin.HandlerFunc{middleware.BodyLimit(cfg.Upload.MaxBytes)}
	if cfg.RateLimit.Enabled {
		limiter, err := middleware.NewRateLimiter(cfg.RateLimit)
		if err != nil {
			return fmt.Errorf("failed to create rate limiter: %w", err)
		}
		diagnose = append([]gin.HandlerFunc{middleware.RateLimit(limiter)}, diagnose...)
	}
	diagnose = append(diagnose, s.handleDiagnose)

	s.router.POST("/diagnose", diagnose...)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/diagnose", diagnose...)
	}

	return nil
}

// handleRoot answers the liveness probe used by the web frontend
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": rootMessage})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	cat := s.deps.Catalog
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   s.configManager.GetServerConfig().Version,
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"catalog": gin.H{
			"categories": cat.Summary(),
			"phrases":    cat.PhraseCount(),
		},
	})
}

// handleDiagnose decodes the multipart form and runs one triage
func (s *Server) handleDiagnose(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.respondFormError(c, err)
		return
	}

	symptoms := c.PostForm("symptoms")

	upload, err := imageUpload(c)
	if err != nil {
		s.respondFormError(c, err)
		return
	}

	resp, err := s.deps.Processor.Diagnose(c.Request.Context(), symptoms, upload)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveDiagnosis(resp)
	}
	c.JSON(http.StatusOK, resp)
}

// imageUpload returns the optional "image" file part. A missing part, or an
// empty part with no filename, counts as no image.
func imageUpload(c *gin.Context) (*domain.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	if fh.Filename == "" && fh.Size == 0 {
		return nil, nil
	}

	return &domain.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}, nil
}

// respondError maps a triage error onto its status code
func (s *Server) respondError(c *gin.Context, err error) {
	var triageErr *domain.TriageError
	if !errors.As(err, &triageErr) {
		triageErr = domain.WrapInternal(err)
	}

	if !triageErr.IsClientError() {
		logging.FromContext(c.Request.Context(), s.deps.Logger).
			WithField("error", logging.SanitizeError(err)).
			Error("Triage request failed")
	}

	middleware.AbortWithError(c, triageErr.HTTPStatus(), string(triageErr.Kind), triageErr.Message)
}

// respondFormError handles failures to read the request body itself
func (s *Server) respondFormError(c *gin.Context, err error) {
	if isTooLarge(err) {
		middleware.AbortWithError(c, http.StatusRequestEntityTooLarge, middleware.ErrCodeRequestTooLarge, "Request body too large")
		return
	}
	middleware.AbortWithError(c, http.StatusBadRequest, middleware.ErrCodeInvalidRequest, "Malformed multipart form")
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return true
	}
	// Some multipart paths flatten the reader error into a string
	return strings.Contains(err.Error(), "request body too large")
}
