package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"LinkClassifier/internal/domain"
	"LinkClassifier/internal/ports"
	"LinkClassifier/internal/status"
)

// Deps wires the HTTP surface to the orchestration components.
type Deps struct {
	Classifier ports.Classifier
	Limiter    ports.Admitter
	Categories ports.CategorySource
	Status     *status.Aggregator
	Logger     *slog.Logger
	// RequestTimeout bounds one classify request end to end.
	RequestTimeout time.Duration
}

// Server exposes the classification service over JSON/HTTP.
type Server struct {
	classifier ports.Classifier
	limiter    ports.Admitter
	categories ports.CategorySource
	status     *status.Aggregator
	logger     *slog.Logger
	timeout    time.Duration

	httpServer *http.Server
}

// New builds the server and its routes.
func New(addr string, deps Deps) *Server {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		classifier: deps.Classifier,
		limiter:    deps.Limiter,
		categories: deps.Categories,
		status:     deps.Status,
		logger:     deps.Logger,
		timeout:    timeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/classify", s.handleClassify)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/summary", s.handleSummary)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleNotFound)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	s.log().Info("http server listening", "addr", s.httpServer.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

type classifyRequest struct {
	URL *string `json:"url"`
}

type classifyResponse struct {
	URL              string             `json:"url"`
	NormalizedURL    string             `json:"normalized_url"`
	Classifications  []domain.Candidate `json:"classifications"`
	Timestamp        string             `json:"timestamp"`
	ProcessingTimeMS int64              `json:"processing_time_ms"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if !s.limiter.Admit(clientIP(r)) {
		s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Request must be JSON")
		return
	}
	if req.URL == nil {
		err := &domain.MissingFieldError{Field: "url"}
		s.writeError(w, http.StatusBadRequest, "Missing required field: url")
		s.log().Debug("rejected classify request", "error", err)
		return
	}
	if *req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "URL must be a non-empty string")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	decision, err := s.classifier.ClassifyURL(ctx, *req.URL)
	if err != nil {
		s.writeClassifyError(w, err)
		return
	}

	classifications := decision.Classifications
	if classifications == nil {
		classifications = []domain.Candidate{}
	}

	s.writeJSON(w, http.StatusOK, classifyResponse{
		URL:              decision.URL,
		NormalizedURL:    decision.NormalizedURL,
		Classifications:  classifications,
		Timestamp:        timestamp(),
		ProcessingTimeMS: decision.Elapsed.Milliseconds(),
	})
}

// writeClassifyError maps the error taxonomy onto HTTP statuses. Inference
// failures surface as a generic classification error; detail stays in the
// log.
func (s *Server) writeClassifyError(w http.ResponseWriter, err error) {
	var (
		invalidURL  *domain.InvalidURLError
		upstream    *domain.UpstreamError
		parseErr    *domain.InferenceParseError
		unavailable *domain.InferenceUnavailableError
	)

	switch {
	case errors.As(err, &invalidURL):
		s.writeError(w, http.StatusUnprocessableEntity, "Invalid URL format")
	case errors.As(err, &upstream):
		s.log().Error("bookmark service unavailable", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "Upstream service unavailable")
	case errors.As(err, &unavailable):
		s.log().Error("inference backend unavailable", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Classification error")
	case errors.As(err, &parseErr):
		s.log().Error("inference response rejected", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Classification error")
	case errors.Is(err, context.DeadlineExceeded):
		s.log().Error("classify request timed out", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Classification error")
	default:
		s.log().Error("classification failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Classification error")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.status.Status(r.Context()))
}

type summaryList struct {
	ListID    int      `json:"list_id"`
	LinkCount int      `json:"link_count"`
	Domains   []string `json:"domains"`
}

type summaryResponse struct {
	TotalLists int           `json:"total_lists"`
	Lists      []summaryList `json:"lists"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	categories, err := s.categories.Get(r.Context())
	if err != nil {
		s.log().Error("summary unavailable", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Error getting classification summary")
		return
	}

	resp := summaryResponse{TotalLists: len(categories), Lists: []summaryList{}}
	for _, cat := range categories {
		domains := cat.Domains
		if domains == nil {
			domains = []string{}
		}
		resp.Lists = append(resp.Lists, summaryList{
			ListID:    cat.ListID,
			LinkCount: len(cat.Links),
			Domains:   domains,
		})
	}
	sort.Slice(resp.Lists, func(i, j int) bool { return resp.Lists[i].ListID < resp.Lists[j].ListID })

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": timestamp(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusNotFound, "Endpoint not found")
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log().Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]any{
		"error":     message,
		"code":      code,
		"timestamp": timestamp(),
	})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// clientIP extracts the admission-control key from the remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
