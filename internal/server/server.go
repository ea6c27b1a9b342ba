package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/mux"
	"github.com/rcardoso/zapboard/internal/auth"
	"github.com/rcardoso/zapboard/internal/config"
	"github.com/rcardoso/zapboard/internal/dashboard"
	"github.com/rcardoso/zapboard/internal/health"
	"github.com/rcardoso/zapboard/internal/ingest"
	"github.com/rcardoso/zapboard/internal/repo"
)

// Server exposes the webhook ingestion API and the dashboard read API
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	ingest    *ingest.Service
	dashboard *dashboard.Service
	tracker   *health.Tracker
	repo      *repo.Repository
	publisher message.Publisher
	jwt       *auth.JWTManager
	server    *http.Server
}

// New creates the HTTP server. jwtManager may be nil to disable auth.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	ingestSvc *ingest.Service,
	dashboardSvc *dashboard.Service,
	tracker *health.Tracker,
	repository *repo.Repository,
	publisher message.Publisher,
	jwtManager *auth.JWTManager,
) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		ingest:    ingestSvc,
		dashboard: dashboardSvc,
		tracker:   tracker,
		repo:      repository,
		publisher: publisher,
		jwt:       jwtManager,
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	// Ingestion endpoints, called by the automation pipeline
	r.HandleFunc("/api/webhook", s.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/api/receive-text", s.handleReceiveText).Methods(http.MethodPost)
	r.HandleFunc("/api/receive-audio", s.handleReceiveAudio).Methods(http.MethodPost)
	r.HandleFunc("/api/receive-media", s.handleReceiveMedia).Methods(http.MethodPost)

	// Counter/health admin endpoints, also pipeline-facing
	r.HandleFunc("/api/bot-stats", s.handleSetBotStats).Methods(http.MethodPost)
	r.HandleFunc("/api/bot-stats", s.handleIncrementBotStats).Methods(http.MethodPut)
	r.HandleFunc("/api/interactions", s.handleCreateInteraction).Methods(http.MethodPost)
	r.HandleFunc("/api/system-health", s.handleSetSystemHealth).Methods(http.MethodPost)
	r.HandleFunc("/api/system-health", s.handleRecordSuccess).Methods(http.MethodPut)
	r.HandleFunc("/api/system-health", s.handleRecordFailure).Methods(http.MethodPatch)

	// Read endpoints, consumed by the dashboard
	r.Handle("/api/bot-stats", RequireAuth(s.jwt, http.HandlerFunc(s.handleGetBotStats))).Methods(http.MethodGet)
	r.Handle("/api/interactions", RequireAuth(s.jwt, http.HandlerFunc(s.handleGetInteractions))).Methods(http.MethodGet)
	r.Handle("/api/system-health", RequireAuth(s.jwt, http.HandlerFunc(s.handleGetSystemHealth))).Methods(http.MethodGet)
	r.Handle("/api/dashboard", RequireAuth(s.jwt, http.HandlerFunc(s.handleDashboard))).Methods(http.MethodGet)

	r.HandleFunc("/healthcheck", s.handleHealthcheck).Methods(http.MethodGet)

	return r
}

// Start runs the HTTP server until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.App.Server.Port),
		Handler: s.Router(),
	}

	s.logger.Info("Starting HTTP server", slog.Int("port", s.cfg.App.Server.Port))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			return err
		}

		s.logger.Info("HTTP server stopped")
		return nil
	}
}

// GetAddress returns the server address
func (s *Server) GetAddress() string {
	return fmt.Sprintf(":%d", s.cfg.App.Server.Port)
}

// publishPipelineSuccess signals the health tracker that a unit of work
// completed. Fire-and-forget: the health feed never blocks a response.
func (s *Server) publishPipelineSuccess(source string) {
	event := health.PipelineSuccessEvent{Source: source, Timestamp: time.Now()}
	data, err := event.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal success event", slog.String("error", err.Error()))
		return
	}
	if err := s.publisher.Publish(health.TopicPipelineSuccess, message.NewMessage(watermill.NewUUID(), data)); err != nil {
		s.logger.Error("failed to publish success event", slog.String("error", err.Error()))
	}
}

// publishPipelineFailure signals a failed unit of work
func (s *Server) publishPipelineFailure(source, reason string) {
	event := health.PipelineFailureEvent{Source: source, Reason: reason, Timestamp: time.Now()}
	data, err := event.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal failure event", slog.String("error", err.Error()))
		return
	}
	if err := s.publisher.Publish(health.TopicPipelineFailure, message.NewMessage(watermill.NewUUID(), data)); err != nil {
		s.logger.Error("failed to publish failure event", slog.String("error", err.Error()))
	}
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
