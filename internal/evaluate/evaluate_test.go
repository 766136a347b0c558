package evaluate

import (
	"context"
	"errors"
	"testing"

	"github.com/abhisek/stepwise/internal/transcript"
)

type fakeChecker struct {
	verdict      Verdict
	err          error
	gotExpected  string
	gotTurnCount int
}

func (f *fakeChecker) CheckAnswer(_ context.Context, conv *transcript.Conversation, expected string) (Verdict, error) {
	f.gotExpected = expected
	f.gotTurnCount = len(conv.Turns)
	return f.verdict, f.err
}

func TestExpectedStep_FrontToBack(t *testing.T) {
	solution := []string{"s1", "s2", "s3"}

	cases := []struct {
		progress int
		want     string
		ok       bool
	}{
		{3, "s1", true},
		{2, "s2", true},
		{1, "s3", true},
		{0, "", false},
		{4, "", false},
		{-1, "", false},
	}
	for _, tc := range cases {
		got, ok := ExpectedStep(solution, tc.progress)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ExpectedStep(progress=%d) = (%q, %v), want (%q, %v)", tc.progress, got, ok, tc.want, tc.ok)
		}
	}
}

func TestVerdict_Correct(t *testing.T) {
	if !(Verdict{Code: VerdictCorrect}).Correct() {
		t.Error("CORRECT should be correct")
	}
	if (Verdict{Code: "sign-error", Strategy: "revisit negatives"}).Correct() {
		t.Error("mistake codes must not be correct")
	}
}

func TestCheck_PassesCurrentExpectedStep(t *testing.T) {
	checker := &fakeChecker{verdict: Verdict{Code: VerdictCorrect}}
	ev := New(checker)
	conv := &transcript.Conversation{
		ModelSolution: []string{"s1", "s2", "s3"},
		Progress:      2,
		Turns:         []transcript.Turn{{Role: transcript.RoleUser, Content: "answer"}},
	}

	verdict, err := ev.Check(context.Background(), conv)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !verdict.Correct() {
		t.Error("verdict should be correct")
	}
	if checker.gotExpected != "s2" {
		t.Errorf("expected answer sent = %q, want s2", checker.gotExpected)
	}
	if checker.gotTurnCount != 1 {
		t.Errorf("transcript turns sent = %d, want 1", checker.gotTurnCount)
	}
}

func TestCheck_NoStepForCompletedSession(t *testing.T) {
	ev := New(&fakeChecker{})
	conv := &transcript.Conversation{ModelSolution: []string{"s1"}, Progress: 0}

	if _, err := ev.Check(context.Background(), conv); err == nil {
		t.Error("expected error when no step remains")
	}
}

func TestCheck_BackendFailurePropagates(t *testing.T) {
	boom := errors.New("backend down")
	ev := New(&fakeChecker{err: boom})
	conv := &transcript.Conversation{ModelSolution: []string{"s1"}, Progress: 1}

	_, err := ev.Check(context.Background(), conv)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped backend error", err)
	}
}
