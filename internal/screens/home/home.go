// Package home is the entry screen: resume the last conversation, start a
// fresh one, or quit.
package home

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	tutor "github.com/abhisek/stepwise/internal/chat"
	"github.com/abhisek/stepwise/internal/draft"
	"github.com/abhisek/stepwise/internal/router"
	"github.com/abhisek/stepwise/internal/screen"
	chatscreen "github.com/abhisek/stepwise/internal/screens/chat"
	"github.com/abhisek/stepwise/internal/transcript"
	"github.com/abhisek/stepwise/internal/ui/components"
	"github.com/abhisek/stepwise/internal/ui/theme"
)

// HomeScreen is the application's root screen.
type HomeScreen struct {
	menu       components.Menu
	store      *transcript.Store
	controller *tutor.Controller
	drafts     *draft.Cache
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates the home screen.
func New(controller *tutor.Controller, store *transcript.Store, drafts *draft.Cache) *HomeScreen {
	h := &HomeScreen{
		store:      store,
		controller: controller,
		drafts:     drafts,
	}

	items := []components.MenuItem{
		{Label: "RESUME CHAT", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: chatscreen.New(controller, store, drafts)}
			}
		}},
		{Label: "NEW CHAT", Action: func() tea.Cmd {
			controller.NewChat()
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: chatscreen.New(controller, store, drafts)}
			}
		}},
		{Label: "QUIT", Action: func() tea.Cmd {
			return tea.Quit
		}},
	}
	h.menu = components.NewMenu(items)
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	var total, completed, open int
	for _, conv := range h.store.List() {
		if conv.Empty() {
			continue
		}
		total++
		if conv.Completed {
			completed++
		} else if conv.Started() {
			open++
		}
	}

	var sections []string
	sections = append(sections,
		theme.Title.Width(width).Render("S T E P W I S E"),
		theme.Subtitle.Width(width).Render("Work through problems one step at a time"),
	)

	stats := fmt.Sprintf("%d chats   %d in progress   %d completed", total, open, completed)
	sections = append(sections, lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render(stats))

	sections = append(sections,
		lipgloss.PlaceHorizontal(width, lipgloss.Center, h.menu.View()))

	content := strings.Join(sections, "\n\n")
	return lipgloss.PlaceVertical(height, lipgloss.Center, content)
}

func (h *HomeScreen) Title() string {
	return "Home"
}
