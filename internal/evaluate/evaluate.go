// Package evaluate decides whether a student's latest answer matches the
// current expected step and which coaching strategy to use next.
package evaluate

import (
	"context"
	"fmt"

	"github.com/abhisek/stepwise/internal/transcript"
)

// VerdictCorrect is the only verdict code that advances progress. Every
// other code is an implementation-defined mistake label.
const VerdictCorrect = "CORRECT"

// Verdict is the backend's correctness judgment for the latest answer.
// Strategy carries the coaching approach for the next tutoring turn when
// the answer was wrong.
type Verdict struct {
	Code     string
	Strategy string
}

// Correct reports whether this verdict advances progress.
func (v Verdict) Correct() bool {
	return v.Code == VerdictCorrect
}

// Checker is the backend judgment call: the full transcript so far plus the
// single expected answer for the current step.
type Checker interface {
	CheckAnswer(ctx context.Context, conv *transcript.Conversation, expectedAnswer string) (Verdict, error)
}

// Evaluator wraps a Checker with expected-step selection.
type Evaluator struct {
	checker Checker
}

// New creates an Evaluator backed by the given Checker.
func New(checker Checker) *Evaluator {
	return &Evaluator{checker: checker}
}

// Check selects the expected answer for the conversation's current step and
// asks the backend for a verdict. A backend failure aborts the turn without
// touching progress; the caller surfaces it as a notice.
func (e *Evaluator) Check(ctx context.Context, conv *transcript.Conversation) (Verdict, error) {
	expected, ok := ExpectedStep(conv.ModelSolution, conv.Progress)
	if !ok {
		return Verdict{}, fmt.Errorf("no expected step for progress %d of %d", conv.Progress, len(conv.ModelSolution))
	}
	verdict, err := e.checker.CheckAnswer(ctx, conv, expected)
	if err != nil {
		return Verdict{}, fmt.Errorf("check answer: %w", err)
	}
	return verdict, nil
}

// ExpectedStep returns the model-solution entry for the current step.
// Steps are consumed front to back while progress counts down from
// len(solution) to zero, so the index is len(solution)-progress.
func ExpectedStep(solution []string, progress int) (string, bool) {
	if progress <= 0 || progress > len(solution) {
		return "", false
	}
	return solution[len(solution)-progress], true
}
