package chat

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/stepwise/internal/backend"
	tutor "github.com/abhisek/stepwise/internal/chat"
	"github.com/abhisek/stepwise/internal/draft"
	"github.com/abhisek/stepwise/internal/router"
	"github.com/abhisek/stepwise/internal/screen"
	"github.com/abhisek/stepwise/internal/screens/problem"
	"github.com/abhisek/stepwise/internal/transcript"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

// startedFixture returns a screen whose active conversation has a
// two-step solution installed.
func startedFixture(mock *backend.Mock) (*ChatScreen, *transcript.Store) {
	store := transcript.NewStore()
	id := store.ActiveID()
	store.Append(id,
		transcript.Turn{Role: transcript.RoleUser, Content: "Concept: algebra\n\nsolve 2x+1=5"},
		transcript.Turn{Role: transcript.RoleAssistant, Content: "Let's begin."},
	)
	store.SetSolution(id, []string{"2x=4", "x=2"}, "isolate x")

	drafts := draft.NewCache(nil, nil)
	controller := tutor.NewController(store, mock, tutor.WithDrafts(drafts))
	return New(controller, store, drafts), store
}

func TestChatScreen_Title(t *testing.T) {
	s, _ := startedFixture(backend.NewMock())
	if s.Title() != "Chat" {
		t.Errorf("Title = %q, want %q", s.Title(), "Chat")
	}
}

func TestChatScreen_ViewRendersTranscript(t *testing.T) {
	s, _ := startedFixture(backend.NewMock())
	view := s.View(100, 30)
	if view == "" {
		t.Fatal("expected non-empty view")
	}
}

func TestChatScreen_SubmitRunsTurn(t *testing.T) {
	mock := backend.NewMock()
	mock.QueueStream("data: Try isolating x.\n\n")
	s, store := startedFixture(mock)

	s.input.SetValue("2x = 4")
	var scr screen.Screen = s
	_, cmd := scr.Update(specialKey(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected a command from submit")
	}

	// The command blocks through the full turn against the mock backend.
	if msg := cmd(); msg == nil {
		t.Fatal("expected a completion message")
	}

	conv := store.Active()
	if got := len(conv.Turns); got != 4 {
		t.Fatalf("turns = %d, want 4", got)
	}
	if conv.LastTurn().Content != "Try isolating x." {
		t.Errorf("last turn = %q", conv.LastTurn().Content)
	}
	if conv.Progress != 1 {
		t.Errorf("progress = %d, want 1", conv.Progress)
	}
	if s.input.Value() != "" {
		t.Errorf("input not cleared: %q", s.input.Value())
	}
}

func TestChatScreen_SubmitOnUnstartedOpensProblemForm(t *testing.T) {
	store := transcript.NewStore()
	drafts := draft.NewCache(nil, nil)
	controller := tutor.NewController(store, backend.NewMock(), tutor.WithDrafts(drafts))
	s := New(controller, store, drafts)

	s.input.SetValue("some answer")
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("expected PushScreenMsg, got %T", cmd())
	}
	if _, ok := push.Screen.(*problem.ProblemScreen); !ok {
		t.Fatalf("expected problem form, got %T", push.Screen)
	}
}

func TestChatScreen_SidebarSwitchRestoresDraft(t *testing.T) {
	s, store := startedFixture(backend.NewMock())
	first := store.ActiveID()

	second := store.Create()
	store.Append(second, transcript.Turn{Role: transcript.RoleUser, Content: "Concept: fractions\n\nadd 1/2 + 1/3"})
	store.SetSolution(second, []string{"5/6"}, "")
	store.SetActive(first)

	s.drafts.Set(second, "half-typed")

	var scr screen.Screen = s
	scr, _ = scr.Update(specialKey(tea.KeyTab))
	cs := scr.(*ChatScreen)
	if cs.focus != focusSidebar {
		t.Fatal("expected sidebar focus after tab")
	}

	scr, _ = cs.Update(keyPress('j'))
	scr, _ = scr.Update(specialKey(tea.KeyEnter))
	cs = scr.(*ChatScreen)

	if store.ActiveID() != second {
		t.Errorf("active = %s, want %s", store.ActiveID(), second)
	}
	if cs.input.Value() != "half-typed" {
		t.Errorf("draft not restored: %q", cs.input.Value())
	}
	if cs.focus != focusInput {
		t.Error("expected input focus after opening a chat")
	}
}

func TestChatScreen_DeleteConfirmFlow(t *testing.T) {
	s, store := startedFixture(backend.NewMock())
	doomed := store.ActiveID()

	var scr screen.Screen = s
	scr, _ = scr.Update(specialKey(tea.KeyTab))
	scr, _ = scr.Update(keyPress('d'))
	cs := scr.(*ChatScreen)
	if !cs.confirmDelete {
		t.Fatal("expected delete confirmation")
	}

	// N keeps the chat.
	scr, _ = cs.Update(keyPress('n'))
	cs = scr.(*ChatScreen)
	if cs.confirmDelete {
		t.Fatal("expected confirmation dismissed")
	}
	if _, ok := store.Get(doomed); !ok {
		t.Fatal("chat should still exist")
	}

	// D then Y deletes it.
	scr, _ = cs.Update(keyPress('d'))
	scr, _ = scr.Update(keyPress('y'))
	if _, ok := store.Get(doomed); ok {
		t.Error("chat should be deleted")
	}
}

func TestChatScreen_KeyHints(t *testing.T) {
	s, _ := startedFixture(backend.NewMock())
	if len(s.KeyHints()) == 0 {
		t.Error("expected non-empty key hints")
	}

	s.confirmDelete = true
	hints := s.KeyHints()
	if len(hints) != 2 || hints[0].Key != "Y" {
		t.Errorf("unexpected confirm hints: %+v", hints)
	}
}

func TestConversationTitle(t *testing.T) {
	conv := &transcript.Conversation{Turns: []transcript.Turn{
		{Role: transcript.RoleAssistant, Content: "ignored"},
		{Role: transcript.RoleUser, Content: "Concept: algebra\n\nsolve it"},
	}}
	if got := conversationTitle(conv); got != "algebra" {
		t.Errorf("title = %q, want %q", got, "algebra")
	}

	if got := conversationTitle(&transcript.Conversation{}); got != "New chat" {
		t.Errorf("empty title = %q, want %q", got, "New chat")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a very long chat title", 8); got != "a very …" {
		t.Errorf("truncate = %q", got)
	}
}
