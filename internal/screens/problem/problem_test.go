package problem

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/stepwise/internal/backend"
	tutor "github.com/abhisek/stepwise/internal/chat"
	"github.com/abhisek/stepwise/internal/router"
	"github.com/abhisek/stepwise/internal/transcript"
)

func testForm(mock *backend.Mock) (*ProblemScreen, *transcript.Store) {
	store := transcript.NewStore()
	controller := tutor.NewController(store, mock)
	return New(controller, store), store
}

func enter() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: tea.KeyEnter}
}

func typeText(s *ProblemScreen, text string) {
	for _, r := range text {
		scr, _ := s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
		*s = *scr.(*ProblemScreen)
	}
}

func TestProblemScreen_Title(t *testing.T) {
	s, _ := testForm(backend.NewMock())
	if s.Title() != "New Problem" {
		t.Errorf("Title = %q", s.Title())
	}
}

func TestProblemScreen_EnterAdvancesFields(t *testing.T) {
	s, _ := testForm(backend.NewMock())
	if s.focus != fieldConcept {
		t.Fatalf("initial focus = %d", s.focus)
	}

	scr, _ := s.Update(enter())
	s = scr.(*ProblemScreen)
	if s.focus != fieldDescription {
		t.Errorf("focus = %d, want description", s.focus)
	}

	scr, _ = s.Update(enter())
	s = scr.(*ProblemScreen)
	if s.focus != fieldSubmit {
		t.Errorf("focus = %d, want submit", s.focus)
	}
}

func TestProblemScreen_SubmitRequiresBothFields(t *testing.T) {
	s, _ := testForm(backend.NewMock())
	typeText(s, "algebra")
	s.focus = fieldSubmit

	_, cmd := s.Update(enter())
	if cmd != nil {
		t.Error("expected no command with an empty description")
	}
}

func TestProblemScreen_SubmitStartsSessionAndPops(t *testing.T) {
	mock := backend.NewMock()
	mock.Solution = &backend.Solution{
		Steps:     []string{"2x=4", "x=2"},
		Reasoning: "isolate x",
	}
	s, store := testForm(mock)

	typeText(s, "algebra")
	scr, _ := s.Update(enter())
	s = scr.(*ProblemScreen)
	typeText(s, "solve 2x+1=5")
	s.focus = fieldSubmit

	scr, cmd := s.Update(enter())
	s = scr.(*ProblemScreen)
	if cmd == nil {
		t.Fatal("expected a command from submit")
	}
	if !s.creating {
		t.Error("expected creating state while the solution is generated")
	}

	// Run the blocking creation, then feed the result back in.
	msg := cmd()
	scr, cmd = s.Update(msg)
	s = scr.(*ProblemScreen)

	if s.creating {
		t.Error("expected creating cleared")
	}
	if cmd == nil {
		t.Fatal("expected a pop command after success")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Fatalf("expected PopScreenMsg, got %T", cmd())
	}

	conv := store.Active()
	if !conv.Started() {
		t.Fatal("expected a started conversation")
	}
	if conv.Progress != 2 {
		t.Errorf("progress = %d, want 2", conv.Progress)
	}
	if len(mock.CreateCalls) != 1 || mock.CreateCalls[0] != "algebra" {
		t.Errorf("create calls = %v", mock.CreateCalls)
	}
}

func TestProblemScreen_FailedCreateKeepsForm(t *testing.T) {
	mock := backend.NewMock()
	mock.SolutionErr = &backend.StatusError{Endpoint: "/createSolution", Code: 502}
	s, store := testForm(mock)

	typeText(s, "algebra")
	scr, _ := s.Update(enter())
	s = scr.(*ProblemScreen)
	typeText(s, "solve 2x+1=5")
	s.focus = fieldSubmit

	scr, cmd := s.Update(enter())
	s = scr.(*ProblemScreen)
	msg := cmd()
	_, cmd = s.Update(msg)

	if cmd != nil {
		t.Error("expected the form to stay open after a failed create")
	}
	if store.Active().Started() {
		t.Error("conversation should not have started")
	}
}
