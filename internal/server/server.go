package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"loanqa/internal/domain"
)

//go:embed static/index.html
var staticFiles embed.FS

// Answerer is the part of the answering pipeline the server needs.
type Answerer interface {
	AnswerWith(ctx context.Context, question string, settings domain.GenerationSettings) (domain.Answer, error)
}

// Options configures the page and the settings offered to users.
type Options struct {
	Title           string
	Subtitle        string
	Footer          string
	Warning         string
	Models          []string
	MaxTokenChoices []int
	Defaults        domain.GenerationSettings
}

// Server serves the single-page assistant and its JSON API.
type Server struct {
	answerer Answerer
	opts     Options
	page     *template.Template
	logger   *slog.Logger

	// one question at a time
	mu sync.Mutex
}

// New creates a server. The page template is parsed here so a broken page
// fails at startup.
func New(answerer Answerer, opts Options, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Warning == "" {
		opts.Warning = "Please enter a valid question."
	}
	page, err := template.ParseFS(staticFiles, "static/index.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		answerer: answerer,
		opts:     opts,
		page:     page,
		logger:   logger,
	}, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/settings", s.handleSettings)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	return mux
}

type settingsResponse struct {
	Title           string                    `json:"title"`
	Subtitle        string                    `json:"subtitle"`
	Footer          string                    `json:"footer"`
	Models          []string                  `json:"models"`
	MaxTokenChoices []int                     `json:"max_tokens_choices"`
	Defaults        domain.GenerationSettings `json:"defaults"`
}

type askRequest struct {
	Question    string   `json:"question"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

type sourceJSON struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Page   int     `json:"page,omitempty"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

type askResponse struct {
	Answer  string       `json:"answer"`
	Model   string       `json:"model"`
	Sources []sourceJSON `json:"sources"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, s.settings()); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"time_utc": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings())
}

func (s *Server) settings() settingsResponse {
	return settingsResponse{
		Title:           s.opts.Title,
		Subtitle:        s.opts.Subtitle,
		Footer:          s.opts.Footer,
		Models:          s.opts.Models,
		MaxTokenChoices: s.opts.MaxTokenChoices,
		Defaults:        s.opts.Defaults,
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	logger := s.logger.With("request_id", requestID)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"warning": s.opts.Warning})
		return
	}

	settings := s.opts.Defaults
	if req.Model != "" {
		settings.Model = req.Model
	}
	if req.Temperature != nil {
		settings.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		settings.MaxTokens = *req.MaxTokens
	}

	s.mu.Lock()
	start := time.Now()
	answer, err := s.answerer.AnswerWith(r.Context(), req.Question, settings)
	s.mu.Unlock()

	if err != nil {
		status, body := errorResponse(err, s.opts.Warning)
		logger.Warn("question failed", "status", status, "error", err, "duration", time.Since(start))
		writeJSON(w, status, body)
		return
	}

	resp := askResponse{
		Answer:  answer.Text,
		Model:   answer.Model,
		Sources: make([]sourceJSON, len(answer.Sources)),
	}
	for i, sc := range answer.Sources {
		resp.Sources[i] = sourceJSON{
			ID:     sc.Chunk.ID,
			Source: sc.Chunk.Source,
			Page:   sc.Chunk.Page,
			Score:  sc.Score,
			Text:   sc.Chunk.Content,
		}
	}
	logger.Info("question answered", "model", answer.Model, "sources", len(resp.Sources), "duration", time.Since(start))
	writeJSON(w, http.StatusOK, resp)
}

// errorResponse maps a pipeline failure to a status and JSON body.
func errorResponse(err error, warning string) (int, map[string]string) {
	if errors.Is(err, domain.ErrInput) {
		return http.StatusBadRequest, map[string]string{"warning": warning}
	}

	var pe *domain.PipelineError
	if errors.As(err, &pe) && pe.Stage == domain.StageValidate {
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	}

	var kind string
	switch {
	case errors.Is(err, domain.ErrAuth):
		kind = "authentication failed"
	case errors.Is(err, domain.ErrRateLimit):
		kind = "rate limit or quota exceeded"
	case errors.Is(err, domain.ErrNetwork):
		kind = "completion service unavailable"
	case errors.Is(err, domain.ErrLoad):
		kind = "index unavailable"
	default:
		kind = "failed to answer the question"
	}
	return http.StatusBadGateway, map[string]string{"error": kind, "detail": err.Error()}
}
