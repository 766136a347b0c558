// Package chat is the main conversation screen: the transcript pane, the
// answer input, and the sidebar listing every conversation.
package chat

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"

	tutor "github.com/abhisek/stepwise/internal/chat"
	"github.com/abhisek/stepwise/internal/draft"
	"github.com/abhisek/stepwise/internal/router"
	"github.com/abhisek/stepwise/internal/screen"
	"github.com/abhisek/stepwise/internal/screens/problem"
	"github.com/abhisek/stepwise/internal/transcript"
	"github.com/abhisek/stepwise/internal/ui/components"
	"github.com/abhisek/stepwise/internal/ui/layout"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// ChatScreen implements screen.Screen for the tutoring conversation.
type ChatScreen struct {
	controller *tutor.Controller
	store      *transcript.Store
	drafts     *draft.Cache

	input         components.TextInput
	focus         focusArea
	selected      int // sidebar cursor
	confirmDelete bool
	scroll        int // lines scrolled up from the transcript tail
}

var _ screen.Screen = (*ChatScreen)(nil)
var _ screen.KeyHintProvider = (*ChatScreen)(nil)

// New creates the chat screen and restores the active conversation's draft.
func New(controller *tutor.Controller, store *transcript.Store, drafts *draft.Cache) *ChatScreen {
	input := components.NewTextInput("Type your next step...", 0)
	if d := drafts.Get(store.ActiveID()); d != "" {
		input.SetValue(d)
	}
	return &ChatScreen{
		controller: controller,
		store:      store,
		drafts:     drafts,
		input:      input,
	}
}

func (s *ChatScreen) Init() tea.Cmd {
	// A brand-new conversation has nothing to answer yet; go straight to
	// the problem form.
	if s.store.Active().Empty() {
		return tea.Batch(
			s.input.Init(),
			func() tea.Msg {
				return router.PushScreenMsg{Screen: problem.New(s.controller, s.store)}
			},
		)
	}
	return s.input.Init()
}

func (s *ChatScreen) Title() string {
	return "Chat"
}

func (s *ChatScreen) KeyHints() []layout.KeyHint {
	if s.confirmDelete {
		return []layout.KeyHint{
			{Key: "Y", Description: "Delete chat"},
			{Key: "N", Description: "Keep it"},
		}
	}
	if s.focus == focusSidebar {
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Select"},
			{Key: "Enter", Description: "Open"},
			{Key: "D", Description: "Delete"},
			{Key: "Tab", Description: "Back to input"},
		}
	}
	hints := []layout.KeyHint{
		{Key: "Enter", Description: "Send"},
	}
	if s.controller.Busy() {
		hints = []layout.KeyHint{
			{Key: "Esc", Description: "Stop"},
		}
	} else if !s.store.Active().Started() {
		hints = []layout.KeyHint{
			{Key: "Ctrl+P", Description: "Set problem"},
		}
	}
	hints = append(hints,
		layout.KeyHint{Key: "Ctrl+N", Description: "New chat"},
		layout.KeyHint{Key: "Tab", Description: "Chats"},
	)
	return hints
}

func (s *ChatScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case TranscriptUpdatedMsg:
		s.clampSelected()
		return s, nil

	case turnDoneMsg:
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.focus == focusInput && !s.confirmDelete {
		return s, s.updateInput(msg)
	}
	return s, nil
}

func (s *ChatScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.confirmDelete {
		switch key {
		case "y", "Y":
			s.confirmDelete = false
			return s, s.deleteSelected()
		case "n", "N", "esc":
			s.confirmDelete = false
		}
		return s, nil
	}

	switch key {
	case "tab":
		if s.focus == focusInput {
			s.focus = focusSidebar
			s.selected = s.activeIndex()
			s.input.Blur()
			return s, nil
		}
		s.focus = focusInput
		return s, s.input.Focus()

	case "ctrl+n":
		return s, s.newChat()

	case "pgup":
		s.scroll += 5
		return s, nil

	case "pgdown":
		s.scroll -= 5
		if s.scroll < 0 {
			s.scroll = 0
		}
		return s, nil
	}

	if s.focus == focusSidebar {
		return s.handleSidebarKey(key)
	}

	switch key {
	case "enter":
		return s, s.submit()
	case "ctrl+p":
		if !s.store.Active().Started() && !s.controller.Busy() {
			return s, func() tea.Msg {
				return router.PushScreenMsg{Screen: problem.New(s.controller, s.store)}
			}
		}
		return s, nil
	}

	return s, s.updateInput(msg)
}

func (s *ChatScreen) handleSidebarKey(key string) (screen.Screen, tea.Cmd) {
	switch key {
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
	case "down", "j":
		if s.selected < s.store.Len()-1 {
			s.selected++
		}
	case "enter":
		convs := s.store.List()
		if s.selected >= 0 && s.selected < len(convs) {
			s.switchTo(convs[s.selected].ID)
			s.focus = focusInput
			return s, s.input.Focus()
		}
	case "d", "D":
		s.confirmDelete = true
	}
	return s, nil
}

// submit sends the typed answer through the controller on its own
// goroutine; streaming updates arrive as TranscriptUpdatedMsg.
func (s *ChatScreen) submit() tea.Cmd {
	if s.controller.Busy() {
		return nil
	}
	text := strings.TrimSpace(s.input.Value())
	if text == "" {
		return nil
	}

	conv := s.store.Active()
	if !conv.Started() {
		return func() tea.Msg {
			return router.PushScreenMsg{Screen: problem.New(s.controller, s.store)}
		}
	}

	s.input.Reset()
	s.drafts.Clear(conv.ID)
	s.scroll = 0

	controller := s.controller
	return func() tea.Msg {
		controller.SendTurn(context.Background(), text)
		return turnDoneMsg{}
	}
}

// newChat activates an empty conversation and opens the problem form.
func (s *ChatScreen) newChat() tea.Cmd {
	id := s.controller.NewChat()
	s.input.SetValue(s.drafts.Get(id))
	s.focus = focusInput
	s.scroll = 0
	return tea.Batch(
		s.input.Focus(),
		func() tea.Msg {
			return router.PushScreenMsg{Screen: problem.New(s.controller, s.store)}
		},
	)
}

// switchTo activates another conversation, swapping drafts.
func (s *ChatScreen) switchTo(id string) {
	if id == s.store.ActiveID() {
		return
	}
	s.controller.SelectConversation(id)
	s.input.SetValue(s.drafts.Get(id))
	s.scroll = 0
}

func (s *ChatScreen) deleteSelected() tea.Cmd {
	convs := s.store.List()
	if s.selected < 0 || s.selected >= len(convs) {
		return nil
	}
	s.controller.DeleteConversation(convs[s.selected].ID)
	s.clampSelected()
	s.input.SetValue(s.drafts.Get(s.store.ActiveID()))
	return nil
}

// updateInput forwards a message to the text input and persists the
// draft when the value changed.
func (s *ChatScreen) updateInput(msg tea.Msg) tea.Cmd {
	before := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if v := s.input.Value(); v != before {
		s.drafts.Set(s.store.ActiveID(), v)
	}
	return cmd
}

func (s *ChatScreen) activeIndex() int {
	active := s.store.ActiveID()
	for i, c := range s.store.List() {
		if c.ID == active {
			return i
		}
	}
	return 0
}

func (s *ChatScreen) clampSelected() {
	if n := s.store.Len(); s.selected >= n {
		s.selected = n - 1
	}
	if s.selected < 0 {
		s.selected = 0
	}
}
