// Package app assembles the TUI: the root Bubble Tea model, the screen
// router, and the plumbing that turns controller updates into redraws.
package app

import (
	"fmt"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	tutor "github.com/abhisek/stepwise/internal/chat"
	"github.com/abhisek/stepwise/internal/draft"
	"github.com/abhisek/stepwise/internal/persist"
	"github.com/abhisek/stepwise/internal/router"
	"github.com/abhisek/stepwise/internal/screen"
	chatscreen "github.com/abhisek/stepwise/internal/screens/chat"
	"github.com/abhisek/stepwise/internal/screens/home"
	"github.com/abhisek/stepwise/internal/transcript"
	"github.com/abhisek/stepwise/internal/ui/layout"
)

const noticeDuration = 4 * time.Second

// Options carries the dependencies the TUI runs on. Syncer is optional;
// without it nothing is persisted.
type Options struct {
	Store   *transcript.Store
	Backend tutor.Backend
	Drafts  *draft.Cache
	Syncer  *persist.Syncer
}

// noticeMsg delivers a controller notice to the toast bar.
type noticeMsg struct {
	notice tutor.Notice
}

// noticeExpiredMsg clears the toast bar.
type noticeExpiredMsg struct{}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router     *router.Router
	controller *tutor.Controller
	store      *transcript.Store
	width      int
	height     int
	notice     *tutor.Notice
}

func newAppModel(controller *tutor.Controller, store *transcript.Store, drafts *draft.Cache) AppModel {
	return AppModel{
		router:     router.New(home.New(controller, store, drafts)),
		controller: controller,
		store:      store,
	}
}

func (m AppModel) Init() tea.Cmd {
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case noticeMsg:
		n := msg.notice
		m.notice = &n
		return m, tea.Tick(noticeDuration, func(time.Time) tea.Msg {
			return noticeExpiredMsg{}
		})

	case noticeExpiredMsg:
		m.notice = nil
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			// Esc stops a running turn first; a second press navigates.
			if m.controller.Busy() {
				m.controller.Stop()
				return m, nil
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.headerStatus(), m.width)
	footer := m.renderFooter(active)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// headerStatus summarizes the session for the header's right side.
func (m AppModel) headerStatus() string {
	if st := m.controller.State(); st != tutor.StateIdle {
		return st.String()
	}
	conv := m.store.Active()
	switch {
	case conv.Completed:
		return "completed"
	case conv.Started():
		noun := "steps"
		if conv.Progress == 1 {
			noun = "step"
		}
		return fmt.Sprintf("%d %s left", conv.Progress, noun)
	}
	return ""
}

// renderFooter shows the toast while one is live, key hints otherwise.
func (m AppModel) renderFooter(active screen.Screen) string {
	if m.notice != nil {
		return layout.RenderNotice(m.notice.Title, m.notice.Description,
			m.notice.Level == tutor.NoticeError, m.width)
	}

	var hints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		hints = hp.KeyHints()
	}
	if len(hints) == 0 {
		hints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
		}
	}
	hints = append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
	return layout.RenderFooter(hints, m.width)
}

// Run wires the controller to a Bubble Tea program and blocks until the
// user quits. Controller updates arrive over channels so the streaming
// goroutines never touch the model directly.
func Run(opts Options) error {
	updates := make(chan struct{}, 1)
	notices := make(chan tutor.Notice, 16)

	controller := tutor.NewController(opts.Store, opts.Backend,
		tutor.WithDrafts(opts.Drafts),
		tutor.WithNotifier(tutor.NotifierFunc(func(n tutor.Notice) {
			select {
			case notices <- n:
			default:
			}
		})),
		tutor.WithOnUpdate(func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		}),
	)

	p := tea.NewProgram(newAppModel(controller, opts.Store, opts.Drafts))

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-updates:
				if opts.Syncer != nil {
					opts.Syncer.Notify()
				}
				p.Send(chatscreen.TranscriptUpdatedMsg{})
			case n := <-notices:
				p.Send(noticeMsg{notice: n})
			}
		}
	}()

	_, err := p.Run()
	close(done)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
