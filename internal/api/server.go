package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/clearhealth/trialmatch/internal/domain"
	"github.com/clearhealth/trialmatch/internal/feedback"
	"github.com/clearhealth/trialmatch/internal/middleware"
	"github.com/clearhealth/trialmatch/internal/service"
)

// Ranker orders a batch of trials by match score for one patient.
type Ranker interface {
	MatchTrialsForPatient(ctx context.Context, trials []domain.Trial, profile *domain.PatientProfile, opts service.MatchOptions) ([]domain.TrialMatchResult, error)
}

// BreakerProbe exposes the state of the model API circuit breaker for the
// health endpoint.
type BreakerProbe interface {
	BreakerState() gobreaker.State
}

// EvaluationStore records match results for later audit.
type EvaluationStore interface {
	Save(ctx context.Context, patientID string, result *domain.TrialMatchResult) error
	GetByID(ctx context.Context, evaluationID string) (*domain.TrialMatchResult, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.TrialMatchResult, error)
}

// Deps carries the services the HTTP layer dispatches to. Feedback,
// Evaluations, and Breaker may be nil; the corresponding surfaces degrade
// rather than fail.
type Deps struct {
	Matcher     service.TrialMatcher
	Ranker      Ranker
	Scorer      *service.Scorer
	Feedback    feedback.Store
	Evaluations EvaluationStore
	Breaker     BreakerProbe
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	deps          Deps
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, logger *logrus.Logger, deps Deps) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	}
	router.Use(corsMiddleware())

	server := &Server{
		configManager: configManager,
		logger:        logger,
		deps:          deps,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router returns the underlying gin engine, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
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
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/match", s.handleMatch)
		v1.POST("/match/batch", s.handleBatchMatch)
		v1.GET("/benchmark", s.handleBenchmark)

		v1.GET("/evaluations", s.handleListEvaluations)
		v1.GET("/evaluations/:id", s.handleGetEvaluation)

		// Patient identifiers travel in query parameters, never in URL
		// paths; the audit logger records paths verbatim.
		v1.POST("/feedback", s.handleSaveFeedback)
		v1.GET("/feedback", s.handleListFeedback)
		v1.GET("/feedback/entry", s.handleGetFeedback)
		v1.GET("/feedback/export", s.handleExportFeedback)
		v1.DELETE("/feedback/:id", s.handleDeleteFeedback)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}
	if s.deps.Breaker != nil {
		resp["model_api_breaker"] = s.deps.Breaker.BreakerState().String()
	}
	c.JSON(http.StatusOK, resp)
}

// matchRequest is the payload for scoring one patient against one trial.
type matchRequest struct {
	Trial   domain.Trial          `json:"trial"`
	Patient domain.PatientProfile `json:"patient"`
}

// batchMatchRequest is the payload for ranking a set of trials for one
// patient.
type batchMatchRequest struct {
	Trials  []domain.Trial        `json:"trials"`
	Patient domain.PatientProfile `json:"patient"`
	Options service.MatchOptions  `json:"options"`
}

// handleMatch scores a single patient-trial pairing
func (s *Server) handleMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", err)
		return
	}

	result, err := s.deps.Matcher.CalculateTrialMatch(c.Request.Context(), &req.Trial, &req.Patient)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "match evaluation rejected input", err)
		return
	}

	// Recording history is best effort; a storage failure never fails the
	// match itself.
	if s.deps.Evaluations != nil {
		if err := s.deps.Evaluations.Save(c.Request.Context(), req.Patient.PatientID, result); err != nil {
			s.logger.WithError(err).Warn("Failed to record evaluation")
		}
	}

	c.JSON(http.StatusOK, result)
}

// handleGetEvaluation retrieves one recorded evaluation by ID
func (s *Server) handleGetEvaluation(c *gin.Context) {
	if s.deps.Evaluations == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabaseError, "evaluation history not configured", nil)
		return
	}

	result, err := s.deps.Evaluations.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeInvalidInput, "evaluation not found", nil)
			return
		}
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to load evaluation", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleListEvaluations lists a patient's recorded evaluations
func (s *Server) handleListEvaluations(c *gin.Context) {
	if s.deps.Evaluations == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabaseError, "evaluation history not configured", nil)
		return
	}

	patientID := c.Query("patient_id")
	if patientID == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "patient_id query parameter is required", nil)
		return
	}

	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	results, err := s.deps.Evaluations.ListByPatient(c.Request.Context(), patientID, limit, offset)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to list evaluations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id":  patientID,
		"count":       len(results),
		"evaluations": results,
	})
}

// handleBatchMatch ranks a batch of trials for one patient
func (s *Server) handleBatchMatch(c *gin.Context) {
	var req batchMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", err)
		return
	}

	opts := req.Options
	matcherCfg := s.configManager.GetMatcherConfig()
	if opts.Limit <= 0 {
		opts.Limit = matcherCfg.DefaultLimit
	}
	if opts.MinScore <= 0 {
		opts.MinScore = matcherCfg.DefaultMinScore
	}

	results, err := s.deps.Ranker.MatchTrialsForPatient(c.Request.Context(), req.Trials, &req.Patient, opts)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "batch match rejected input", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": req.Patient.PatientID,
		"count":      len(results),
		"results":    results,
	})
}

// handleBenchmark runs the built-in scoring benchmark comparing the
// confidence-weighted formula against the legacy unweighted one
func (s *Server) handleBenchmark(c *gin.Context) {
	report := service.RunScoringBenchmark(s.deps.Scorer, service.BenchmarkCases())
	c.JSON(http.StatusOK, report)
}

// handleSaveFeedback stores clinician feedback for a match result
func (s *Server) handleSaveFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabaseError, "feedback store not configured", nil)
		return
	}

	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", err)
		return
	}
	if fb.PatientID == "" || fb.NCTID == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "patient_id and nct_id are required", nil)
		return
	}

	if err := s.deps.Feedback.Save(c.Request.Context(), &fb); err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to save feedback", err)
		return
	}

	c.JSON(http.StatusCreated, fb)
}

// handleGetFeedback retrieves feedback for one patient-trial pairing
func (s *Server) handleGetFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabaseError, "feedback store not configured", nil)
		return
	}

	patientID := c.Query("patient_id")
	nctID := c.Query("nct_id")
	if patientID == "" || nctID == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "patient_id and nct_id query parameters are required", nil)
		return
	}

	fb, err := s.deps.Feedback.Get(c.Request.Context(), patientID, nctID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to load feedback", err)
		return
	}
	if fb == nil {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeInvalidInput, "no feedback for this patient-trial pairing", nil)
		return
	}

	c.JSON(http.StatusOK, fb)
}

// handleListFeedback lists feedback entries, newest first
func (s *Server) handleListFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabaseError, "feedback store not configured", nil)
		return
	}

	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	entries, err := s.deps.Feedback.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to list feedback", err)
		return
	}

	total, err := s.deps.Feedback.Count(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to count feedback", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"feedback": entries,
	})
}

// handleExportFeedback streams all feedback as a JSON export document
func (s *Server) handleExportFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabaseError, "feedback store not configured", nil)
		return
	}

	c.Header("Content-Type", "application/json")
	if err := s.deps.Feedback.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("Feedback export failed")
	}
}

// handleDeleteFeedback removes a feedback entry by ID
func (s *Server) handleDeleteFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabaseError, "feedback store not configured", nil)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "feedback id must be an integer", err)
		return
	}

	if err := s.deps.Feedback.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to delete feedback", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// respondError writes a standardized error body and logs the cause.
func (s *Server) respondError(c *gin.Context, status int, code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	s.logger.WithFields(logrus.Fields{
		"status":         status,
		"code":           code,
		"correlation_id": c.GetString("correlation_id"),
		"error":          details,
	}).Warn(message)

	c.JSON(status, domain.NewEngineError(code, message, details, c.GetString("correlation_id")))
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
