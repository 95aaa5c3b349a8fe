package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"newsreel/internal/api"
	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/queue"
)

type apiServer struct {
	bind     string
	token    string
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:     bind,
		token:    cfg.Paths.APIToken,
		logger:   logger,
		daemon:   d,
		queueSvc: api.NewQueueService(d.store),
	}

	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// routes builds the HTTP surface. /healthz stays open so probes work without
// credentials; everything under /api honors the optional bearer token.
func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.token))
		r.Post("/api/jobs", s.handleIngest)
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/queue", s.handleQueue)
		r.Get("/api/queue/{id}", s.handleQueueItem)
		r.Post("/api/queue/{id}/retry", s.handleRetry)
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	deps := make([]api.DependencyStatus, len(status.Dependencies))
	for i, dep := range status.Dependencies {
		deps[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: deps,
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.queueSvc == nil {
		s.writeError(w, http.StatusServiceUnavailable, "queue unavailable")
		return
	}
	var req api.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := s.queueSvc.Ingest(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrInvalidIngest):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, queue.ErrDuplicateURL):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.log().Info("job queued over http",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("title", job.Title))
	s.writeJSON(w, http.StatusCreated, api.IngestResponse{JobID: job.ID})
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if s.queueSvc == nil {
		s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: nil})
		return
	}
	query := r.URL.Query()
	var stages []queue.ScriptStage
	for _, value := range query["stage"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		stage, ok := queue.ParseScriptStage(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown script stage %q", trimmed))
			return
		}
		stages = append(stages, stage)
	}

	if value := strings.TrimSpace(query.Get("image")); value != "" {
		imageStage, ok := queue.ParseImageStage(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown image stage %q", value))
			return
		}
		jobs, err := s.queueSvc.ListByImageStage(r.Context(), imageStage)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(stages) > 0 {
			kept := jobs[:0]
			for _, job := range jobs {
				for _, stage := range stages {
					if job.ScriptStage == string(stage) {
						kept = append(kept, job)
						break
					}
				}
			}
			jobs = kept
		}
		s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
		return
	}

	jobs, err := s.queueSvc.List(r.Context(), stages...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	if s.queueSvc == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.queueSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	if s.queueSvc == nil {
		s.writeError(w, http.StatusServiceUnavailable, "queue unavailable")
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	updated, err := s.queueSvc.Retry(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.RetryResponse{Updated: updated})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
