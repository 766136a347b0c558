package llm

import (
	"context"
	"log/slog"
	"time"
)

// LoggingProvider is a decorator that records every LLM call with latency,
// token usage, and estimated cost.
type LoggingProvider struct {
	inner  Provider
	logger *slog.Logger
}

// WithLogging wraps a Provider with structured request logging.
func WithLogging(p Provider, logger *slog.Logger) *LoggingProvider {
	return &LoggingProvider{inner: p, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	l.log(ctx, "llm generate", req, resp, err, time.Since(start))
	return resp, err
}

func (l *LoggingProvider) GenerateStream(ctx context.Context, req Request, emit func(string) error) (*Response, error) {
	start := time.Now()
	resp, err := generateStream(ctx, l.inner, req, emit)
	l.log(ctx, "llm stream", req, resp, err, time.Since(start))
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func (l *LoggingProvider) log(ctx context.Context, msg string, req Request, resp *Response, err error, elapsed time.Duration) {
	attrs := []any{
		slog.String("model", l.inner.ModelID()),
		slog.String("purpose", PurposeFrom(ctx)),
		slog.Int("messages", len(req.Messages)),
		slog.Duration("elapsed", elapsed),
	}
	if req.Schema != nil {
		attrs = append(attrs, slog.String("schema", req.Schema.Name))
	}
	if resp != nil {
		attrs = append(attrs,
			slog.Int("input_tokens", resp.Usage.InputTokens),
			slog.Int("output_tokens", resp.Usage.OutputTokens),
		)
		if cost := LookupCost(resp.Model); cost != nil {
			attrs = append(attrs, slog.Float64("cost_usd",
				cost.Cost(resp.Usage.InputTokens, resp.Usage.OutputTokens)))
		}
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	l.logger.InfoContext(ctx, msg, attrs...)
}

// generateStream streams through inner when it supports streaming and
// falls back to a single Generate call emitted as one delta otherwise.
func generateStream(ctx context.Context, inner Provider, req Request, emit func(string) error) (*Response, error) {
	if sp, ok := inner.(StreamingProvider); ok {
		return sp.GenerateStream(ctx, req, emit)
	}
	resp, err := inner.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := emit(decodeTextContent(resp.Content)); err != nil {
		return nil, err
	}
	return resp, nil
}
