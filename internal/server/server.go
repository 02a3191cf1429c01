// Package server exposes profile extraction over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	codolio "github.com/RavensCloud/codolio-gofun"
	"github.com/RavensCloud/codolio-gofun/internal/metrics"
)

// maxBodyBytes bounds the POST /codolio request body.
const maxBodyBytes = 1 << 16

const timeoutDetail = "Timed out loading Codolio page"

// ProfileFetcher loads and extracts one profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, username string) (*codolio.Profile, error)
}

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	// RequestTimeout bounds one profile fetch. Zero means no extra bound.
	RequestTimeout time.Duration
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// Server serves profiles from a ProfileFetcher.
type Server struct {
	fetcher ProfileFetcher
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New returns a Server with a nop logger and fresh metrics unless opts sets them.
func New(fetcher ProfileFetcher, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Server{fetcher: fetcher, opts: opts, logger: logger, metrics: m}
}

// Routes returns the HTTP handler of the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors(s.opts.CORSOrigins))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Head("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Get("/codolio/", s.handleGetProfile)
	r.Get("/codolio/{username}", s.handleGetProfile)
	r.Post("/codolio", s.handlePostProfile)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

type envelope struct {
	Success  bool             `json:"success"`
	Username string           `json:"username"`
	Data     *codolio.Profile `json:"data"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

type profileRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"status":  "running",
		"message": "Codolio Scraper API",
		"try":     "/codolio/SambhavSurthi",
		"endpoints": map[string]string{
			"health":  "GET /health",
			"profile": "GET /codolio/{username}",
			"post":    "POST /codolio {\"username\": \"...\"}",
			"metrics": "GET /metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if unescaped, err := url.PathUnescape(username); err == nil {
		username = unescaped
	}
	s.serveProfile(w, r, username)
}

func (s *Server) handlePostProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: expected {\"username\": \"...\"}")
		return
	}
	s.serveProfile(w, r, req.Username)
}

// serveProfile validates username before any browser work, fetches the
// profile and writes the envelope or the mapped error.
func (s *Server) serveProfile(w http.ResponseWriter, r *http.Request, username string) {
	username = strings.TrimSpace(username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	profile, err := s.fetcher.FetchProfile(ctx, username)
	elapsed := time.Since(start)

	if err != nil {
		status, detail := errorStatus(err)
		s.metrics.ObserveScrape(outcomeFor(status), elapsed)
		s.logger.Warn("fetch profile failed",
			zap.String("username", username),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, status, detail)
		return
	}

	s.metrics.ObserveScrape(metrics.OutcomeSuccess, elapsed)
	s.logger.Info("fetched profile",
		zap.String("username", username),
		zap.Duration("elapsed", elapsed),
		zap.Int("heatmap_cells", len(profile.Heatmap)),
		zap.Int("topics", len(profile.DSATopics)),
	)
	writeJSON(w, http.StatusOK, envelope{Success: true, Username: username, Data: profile})
}

// errorStatus maps a fetch error to its HTTP status and client-facing detail.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, codolio.ErrInvalidUsername):
		return http.StatusBadRequest, "username is required"
	case errors.Is(err, codolio.ErrTimeout), errors.Is(err, codolio.ErrLandmarkMissing):
		return http.StatusGatewayTimeout, timeoutDetail
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func outcomeFor(status int) string {
	if status == http.StatusGatewayTimeout {
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Success: false, Detail: detail})
}
