// Package problem is the form for starting a new tutoring session: the
// student names a concept and describes the problem to work through.
package problem

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	tutor "github.com/abhisek/stepwise/internal/chat"
	"github.com/abhisek/stepwise/internal/router"
	"github.com/abhisek/stepwise/internal/screen"
	"github.com/abhisek/stepwise/internal/transcript"
	"github.com/abhisek/stepwise/internal/ui/components"
	"github.com/abhisek/stepwise/internal/ui/layout"
	"github.com/abhisek/stepwise/internal/ui/theme"
)

const (
	fieldConcept = iota
	fieldDescription
	fieldSubmit
)

// createdMsg is sent when the blocking solution creation returns.
type createdMsg struct{}

// ProblemScreen implements screen.Screen for the new-problem form.
type ProblemScreen struct {
	controller *tutor.Controller
	store      *transcript.Store

	concept     components.TextInput
	description components.TextInput
	focus       int
	creating    bool
}

var _ screen.Screen = (*ProblemScreen)(nil)
var _ screen.KeyHintProvider = (*ProblemScreen)(nil)

// New creates the problem form for the active conversation.
func New(controller *tutor.Controller, store *transcript.Store) *ProblemScreen {
	concept := components.NewTextInput("e.g. linear equations", 80)
	description := components.NewTextInput("e.g. solve 2x + 1 = 5 for x", 400)
	description.Blur()

	return &ProblemScreen{
		controller:  controller,
		store:       store,
		concept:     concept,
		description: description,
	}
}

func (s *ProblemScreen) Init() tea.Cmd {
	return s.concept.Init()
}

func (s *ProblemScreen) Title() string {
	return "New Problem"
}

func (s *ProblemScreen) KeyHints() []layout.KeyHint {
	if s.creating {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Continue"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ProblemScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case createdMsg:
		s.creating = false
		// The controller reports failures through notices; only a
		// successfully started conversation closes the form.
		if s.store.Active().Started() {
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
		return s, nil

	case tea.KeyMsg:
		if s.creating {
			return s, nil
		}
		switch msg.String() {
		case "tab", "down":
			return s, s.setFocus(s.focus + 1)
		case "shift+tab", "up":
			return s, s.setFocus(s.focus - 1)
		case "enter":
			if s.focus == fieldSubmit {
				return s, s.submit()
			}
			return s, s.setFocus(s.focus + 1)
		}
	}

	if s.creating {
		return s, nil
	}

	var cmd tea.Cmd
	switch s.focus {
	case fieldConcept:
		s.concept, cmd = s.concept.Update(msg)
	case fieldDescription:
		s.description, cmd = s.description.Update(msg)
	}
	return s, cmd
}

func (s *ProblemScreen) setFocus(f int) tea.Cmd {
	if f < fieldConcept {
		f = fieldConcept
	}
	if f > fieldSubmit {
		f = fieldSubmit
	}
	s.focus = f

	s.concept.Blur()
	s.description.Blur()
	switch f {
	case fieldConcept:
		return s.concept.Focus()
	case fieldDescription:
		return s.description.Focus()
	}
	return nil
}

func (s *ProblemScreen) ready() bool {
	return strings.TrimSpace(s.concept.Value()) != "" &&
		strings.TrimSpace(s.description.Value()) != ""
}

// submit kicks off solution creation on its own goroutine.
func (s *ProblemScreen) submit() tea.Cmd {
	if !s.ready() || s.controller.Busy() {
		return nil
	}
	s.creating = true

	controller := s.controller
	concept := s.concept.Value()
	description := s.description.Value()
	return func() tea.Msg {
		controller.StartProblem(context.Background(), concept, description)
		return createdMsg{}
	}
}

func (s *ProblemScreen) View(width, height int) string {
	formWidth := width - 8
	if formWidth > 72 {
		formWidth = 72
	}

	label := func(text string, active bool) string {
		style := lipgloss.NewStyle().Foreground(theme.TextDim).Bold(true)
		if active {
			style = style.Foreground(theme.Secondary)
		}
		return style.Render(text)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Width(formWidth).Render("Set up a problem"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(formWidth).Render("The tutor breaks it into steps and coaches you through them."))
	b.WriteString("\n\n")

	b.WriteString(label("CONCEPT", s.focus == fieldConcept))
	b.WriteString("\n")
	b.WriteString(s.concept.View())
	b.WriteString("\n\n")

	b.WriteString(label("PROBLEM", s.focus == fieldDescription))
	b.WriteString("\n")
	b.WriteString(s.description.View())
	b.WriteString("\n\n")

	if s.creating {
		b.WriteString(theme.Hint.Render("Working out a model solution..."))
	} else {
		button := components.NewButton("Start Session", s.focus == fieldSubmit && s.ready(), nil)
		b.WriteString(button.View())
	}

	return lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Width(formWidth).Render(b.String()))
}
