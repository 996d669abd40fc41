// Package httpapi serves the word slate engine over HTTP for deployments
// outside Nakama.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"pixelary/internal/app"
	"pixelary/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/julienschmidt/httprouter"
)

const (
	timeout      = 10 * time.Second
	maxBodyBytes = 64 << 10
)

// Engine is the use-case surface the HTTP port exposes.
type Engine interface {
	GetCandidates(ctx context.Context) (app.CandidatesResponse, error)
	TrackAction(ctx context.Context, req app.TrackRequest) app.TrackResponse
	RecordOutcome(ctx context.Context, req app.OutcomeRequest) app.TrackResponse
	GetWordStats(ctx context.Context, req app.StatsRequest) (app.WordStatsResponse, error)
	GetConfig(ctx context.Context) (config.BanditConfig, error)
	UpdateConfig(ctx context.Context, patch app.ConfigPatch) (config.BanditConfig, error)
}

// Options configure a Server.
type Options struct {
	// OperatorSecret signs operator tokens. Empty disables config updates.
	OperatorSecret string
	Version        string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  runtime.Logger
}

// Server routes HTTP requests to an Engine.
type Server struct {
	engine Engine
	opts   Options
	logger runtime.Logger
}

// New creates a Server.
func New(engine Engine, opts Options) *Server {
	return &Server{engine: engine, opts: opts, logger: opts.Logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		s.logger.Error("HTTP: Panic serving %s %s: %v", r.Method, r.URL.Path, i)
		writeError(w, http.StatusInternalServerError, "internal error")
	}

	mux.POST("/v1/candidates", s.serveCandidates)
	mux.POST("/v1/track", s.serveTrack)
	mux.POST("/v1/outcome", s.serveOutcome)
	mux.GET("/v1/stats", s.serveStats)
	mux.GET("/v1/config", s.serveGetConfig)
	mux.PUT("/v1/config", s.servePutConfig)

	mux.GET("/healthz", s.serveHealthCheck)
	mux.GET("/version", s.serveVersion)
	if s.opts.Metrics != nil {
		mux.Handler(http.MethodGet, "/metrics", s.opts.Metrics)
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, bind string, port int) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(bind, strconv.Itoa(port)),
		Handler:           s.Routes(),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP: Listening on http://%s/", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) serveCandidates(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp, err := s.engine.GetCandidates(r.Context())
	if err != nil {
		s.logger.Error("HTTP: Failed to select words: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to select words")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) serveTrack(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req app.TrackRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.logger.Warn("HTTP: Invalid track payload from %s: %v", r.RemoteAddr, err)
		writeJSON(w, http.StatusOK, app.TrackResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.TrackAction(r.Context(), req))
}

func (s *Server) serveOutcome(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req app.OutcomeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.logger.Warn("HTTP: Invalid outcome payload from %s: %v", r.RemoteAddr, err)
		writeJSON(w, http.StatusOK, app.TrackResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.RecordOutcome(r.Context(), req))
}

func (s *Server) serveStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req app.StatsRequest
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.Limit = limit
	}

	resp, err := s.engine.GetWordStats(r.Context(), req)
	if errors.Is(err, app.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("HTTP: Failed to build stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to build stats")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) serveGetConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cfg, err := s.engine.GetConfig(r.Context())
	if err != nil {
		s.logger.Error("HTTP: Failed to read config: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) servePutConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	operator, err := verifyOperator(s.opts.OperatorSecret, r)
	switch {
	case errors.Is(err, ErrAuthDisabled):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, ErrNotAnOperator):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		w.Header().Set("WWW-Authenticate", `Bearer realm="wordslate"`)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var patch app.ConfigPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config payload")
		return
	}

	cfg, err := s.engine.UpdateConfig(r.Context(), patch)
	if err != nil {
		s.logger.Error("HTTP: Failed to update config for %s: %v", operator, err)
		writeError(w, http.StatusInternalServerError, "failed to update config")
		return
	}
	s.logger.Info("HTTP: Config v%d saved by %s", cfg.Version, operator)
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) serveHealthCheck(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) serveVersion(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "wordslate v"+s.opts.Version+"\n")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
