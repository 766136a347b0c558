package backend

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/abhisek/stepwise/internal/evaluate"
	"github.com/abhisek/stepwise/internal/transcript"
)

// Mock is a deterministic backend for tests. Canned stream bodies are
// served in FIFO order; verdicts likewise. All requests are recorded.
type Mock struct {
	mu sync.Mutex

	Solution    *Solution
	SolutionErr error

	verdicts   []evaluate.Verdict
	VerdictErr error

	streams   []string
	StreamErr error

	CheckCalls  []string // expected answers received
	TurnCalls   []evaluate.Verdict
	RecapCalls  []evaluate.Verdict
	CreateCalls []string // concepts received
}

// NewMock creates an empty Mock.
func NewMock() *Mock {
	return &Mock{}
}

// QueueVerdict appends a canned verdict.
func (m *Mock) QueueVerdict(v evaluate.Verdict) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts = append(m.verdicts, v)
}

// QueueStream appends a canned stream body (raw "data: " framed text).
func (m *Mock) QueueStream(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, body)
}

func (m *Mock) CreateSolution(_ context.Context, concept, _ string) (*Solution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, concept)
	if m.SolutionErr != nil {
		return nil, m.SolutionErr
	}
	return m.Solution, nil
}

func (m *Mock) CheckAnswer(_ context.Context, _ *transcript.Conversation, expectedAnswer string) (evaluate.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckCalls = append(m.CheckCalls, expectedAnswer)
	if m.VerdictErr != nil {
		return evaluate.Verdict{}, m.VerdictErr
	}
	if len(m.verdicts) == 0 {
		return evaluate.Verdict{Code: evaluate.VerdictCorrect}, nil
	}
	v := m.verdicts[0]
	m.verdicts = m.verdicts[1:]
	return v, nil
}

func (m *Mock) StreamTurn(_ context.Context, _ *transcript.Conversation, _ string, verdict evaluate.Verdict) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TurnCalls = append(m.TurnCalls, verdict)
	return m.nextStream()
}

func (m *Mock) StreamRecap(_ context.Context, _ *transcript.Conversation, _ string, verdict evaluate.Verdict) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecapCalls = append(m.RecapCalls, verdict)
	return m.nextStream()
}

// nextStream pops the next canned body. Callers hold the lock.
func (m *Mock) nextStream() (io.ReadCloser, error) {
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}
	body := ""
	if len(m.streams) > 0 {
		body = m.streams[0]
		m.streams = m.streams[1:]
	}
	return io.NopCloser(strings.NewReader(body)), nil
}
