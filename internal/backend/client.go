// Package backend is the HTTP client for the Stepwise tutoring backend:
// session creation, answer evaluation, and the streaming tutoring/recap
// endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/abhisek/stepwise/internal/evaluate"
	"github.com/abhisek/stepwise/internal/transcript"
)

// Config holds backend connection settings.
type Config struct {
	// BaseURL is the tutoring backend root, e.g. "http://localhost:8090".
	BaseURL string

	// Timeout bounds the non-streaming calls (create, check). Streaming
	// calls are bounded by their context instead.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8090",
		Timeout: 60 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if u := os.Getenv("STEPWISE_BACKEND_URL"); u != "" {
		cfg.BaseURL = u
	}
	return cfg
}

// StatusError reports a non-success HTTP response from the backend.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s returned status %d", e.Endpoint, e.Code)
}

// Client talks to the tutoring backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	// streamClient has no timeout; streams live as long as their context.
	streamClient *http.Client
}

// New creates a backend client from the given config.
func New(cfg Config) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		http:         &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
	}
}

var _ evaluate.Checker = (*Client)(nil)

// CreateSolution asks the backend to produce a model solution for a new
// problem. The response is validated at the boundary; invalid records are
// rejected rather than partially decoded.
func (c *Client) CreateSolution(ctx context.Context, concept, problemDescription string) (*Solution, error) {
	body, err := c.postJSON(ctx, "/createSolution", createSolutionRequest{
		Concept:            concept,
		ProblemDescription: problemDescription,
	})
	if err != nil {
		return nil, err
	}
	return decodeSolution(body)
}

// CheckAnswer submits the transcript and the expected answer for the
// current step, returning the backend's verdict.
func (c *Client) CheckAnswer(ctx context.Context, conv *transcript.Conversation, expectedAnswer string) (evaluate.Verdict, error) {
	body, err := c.postJSON(ctx, "/checkResponse", checkRequest{
		Message:       payloadFromConversation(conv),
		CorrectAnswer: expectedAnswer,
	})
	if err != nil {
		return evaluate.Verdict{}, err
	}

	// The wire format is a two-element literal array: [verdict, strategy].
	var pair []string
	if err := json.Unmarshal(body, &pair); err != nil {
		return evaluate.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if len(pair) != 2 {
		return evaluate.Verdict{}, fmt.Errorf("decode verdict: got %d elements, want 2", len(pair))
	}
	return evaluate.Verdict{Code: pair[0], Strategy: pair[1]}, nil
}

// StreamTurn opens the tutoring stream for the next coaching turn. The
// returned body speaks the "data: " framing consumed by stream.Decoder;
// the caller must close it.
func (c *Client) StreamTurn(ctx context.Context, conv *transcript.Conversation, expectedAnswer string, verdict evaluate.Verdict) (io.ReadCloser, error) {
	return c.postStream(ctx, "/chat", turnRequest{
		Message:        payloadFromConversation(conv),
		CorrectAnswer:  expectedAnswer,
		Strategy:       verdict.Strategy,
		StudentMistake: verdict.Code,
	})
}

// StreamRecap opens the end-of-session recap stream.
func (c *Client) StreamRecap(ctx context.Context, conv *transcript.Conversation, expectedAnswer string, verdict evaluate.Verdict) (io.ReadCloser, error) {
	return c.postStream(ctx, "/recap", turnRequest{
		Message:        payloadFromConversation(conv),
		CorrectAnswer:  expectedAnswer,
		Strategy:       verdict.Strategy,
		StudentMistake: verdict.Code,
	})
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	resp, err := c.post(ctx, c.http, endpoint, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	return body, nil
}

func (c *Client) postStream(ctx context.Context, endpoint string, payload any) (io.ReadCloser, error) {
	resp, err := c.post(ctx, c.streamClient, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", endpoint, err)
	}
	return resp, nil
}
