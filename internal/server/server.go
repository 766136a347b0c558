// Package server exposes the tutoring backend over HTTP: solution
// creation, answer checking, and the streaming coaching endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/abhisek/stepwise/internal/llm"
)

// Server holds the handler dependencies.
type Server struct {
	cfg      Config
	provider llm.StreamingProvider
	logger   *slog.Logger
}

// New creates a Server backed by the given provider.
func New(cfg Config, provider llm.StreamingProvider, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, provider: provider, logger: logger}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware(s.cfg.AllowedOrigins))

	r.Get("/healthz", s.handleHealth)
	r.Post("/createSolution", s.handleCreateSolution)
	r.Post("/checkResponse", s.handleCheckResponse)
	r.Post("/chat", s.handleChat)
	r.Post("/recap", s.handleRecap)

	return r
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps provider failures to HTTP status codes.
func errorStatus(err error) int {
	var rl *llm.ErrRateLimit
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests
	}
	var unavail *llm.ErrProviderUnavailable
	if errors.As(err, &unavail) {
		return http.StatusBadGateway
	}
	var invalid *llm.ErrInvalidResponse
	if errors.As(err, &invalid) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateSolution generates a model solution for a new problem. The
// schema-validated LLM output is returned to the client verbatim.
func (s *Server) handleCreateSolution(w http.ResponseWriter, r *http.Request) {
	var req createSolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Concept) == "" || strings.TrimSpace(req.ProblemDescription) == "" {
		s.writeError(w, http.StatusBadRequest, "concept and problem_description are required")
		return
	}

	ctx := llm.WithPurpose(r.Context(), "solution-gen")
	resp, err := s.provider.Generate(ctx, llm.Request{
		System: solutionSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: solutionUserPrompt(req.Concept, req.ProblemDescription)},
		},
		Schema:    solutionSchema,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		s.logger.Error("create solution failed", "error", err)
		s.writeError(w, errorStatus(err), "solution generation failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.Content); err != nil {
		s.logger.Warn("write solution response failed", "error", err)
	}
}

// handleCheckResponse grades the student's latest message against the
// expected step. The wire format is a two-element array:
// [verdict, strategy].
func (s *Server) handleCheckResponse(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CorrectAnswer == "" || len(req.Message.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "correct_answer and a non-empty transcript are required")
		return
	}

	messages := llmMessages(req.Message)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: checkUserPrompt(req.CorrectAnswer),
	})

	ctx := llm.WithPurpose(r.Context(), "answer-check")
	resp, err := s.provider.Generate(ctx, llm.Request{
		System:    checkSystemPrompt,
		Messages:  messages,
		Schema:    verdictSchema,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		s.logger.Error("check response failed", "error", err)
		s.writeError(w, errorStatus(err), "answer check failed")
		return
	}

	var verdict struct {
		Verdict  string `json:"verdict"`
		Strategy string `json:"strategy"`
	}
	if err := json.Unmarshal(resp.Content, &verdict); err != nil {
		s.logger.Error("decode verdict failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "answer check failed")
		return
	}

	s.writeJSON(w, http.StatusOK, [2]string{verdict.Verdict, verdict.Strategy})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.streamTurn(w, r, llm.Request{
		System:      chatSystemPrompt(req.CorrectAnswer, req.StudentMistake, req.Strategy),
		Messages:    llmMessages(req.Message),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}, "tutor-chat")
}

func (s *Server) handleRecap(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.streamTurn(w, r, llm.Request{
		System:      recapSystemPrompt(req.CorrectAnswer),
		Messages:    llmMessages(req.Message),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}, "session-recap")
}

// streamTurn runs one streaming generation, relaying deltas as SSE frames.
// A client disconnect cancels the generation through the request context.
func (s *Server) streamTurn(w http.ResponseWriter, r *http.Request, req llm.Request, purpose string) {
	if len(req.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "a non-empty transcript is required")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := llm.WithPurpose(r.Context(), purpose)
	if _, err := s.provider.GenerateStream(ctx, req, sse.Emit); err != nil {
		// Headers are gone; all we can do is log and close the stream.
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("stream failed", "purpose", purpose, "error", err)
		}
	}
}
