package chat

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/stepwise/internal/transcript"
	"github.com/abhisek/stepwise/internal/ui/components"
	"github.com/abhisek/stepwise/internal/ui/theme"
)

const sidebarWidth = 26

func (s *ChatScreen) View(width, height int) string {
	mainWidth := width - sidebarWidth - 3
	if mainWidth < 20 {
		mainWidth = 20
	}

	sidebar := s.renderSidebar(sidebarWidth, height)

	var main string
	if s.confirmDelete {
		main = s.renderDeleteConfirm(mainWidth, height)
	} else {
		main = s.renderConversation(mainWidth, height)
	}

	divider := strings.TrimSuffix(
		strings.Repeat(lipgloss.NewStyle().Foreground(theme.Border).Render("│")+"\n", height),
		"\n",
	)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(sidebarWidth).Height(height).Render(sidebar),
		" "+divider+" ",
		main,
	)
}

// renderSidebar lists every conversation, newest last.
func (s *ChatScreen) renderSidebar(width, height int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Bold(true).
		Render("  CHATS"))
	b.WriteString("\n\n")

	active := s.store.ActiveID()
	for i, conv := range s.store.List() {
		marker := "  "
		if conv.ID == active {
			marker = "▸ "
		}

		title := truncate(conversationTitle(conv), width-6)
		if conv.Completed {
			title += " ✓"
		}
		line := marker + title

		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch {
		case s.focus == focusSidebar && i == s.selected:
			style = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
		case conv.ID == active:
			style = lipgloss.NewStyle().Foreground(theme.Secondary)
		case conv.Completed:
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	return b.String()
}

// renderConversation renders the transcript tail, the progress line, and
// the input prompt.
func (s *ChatScreen) renderConversation(width, height int) string {
	conv := s.store.Active()

	// Bottom rows: blank + progress + prompt.
	inputRows := 3
	transcriptHeight := height - inputRows
	if transcriptHeight < 1 {
		transcriptHeight = 1
	}

	transcriptView := s.renderTranscript(conv, width, transcriptHeight)
	progressLine := s.renderProgress(conv, width)
	prompt := s.renderPrompt(conv, width)

	return transcriptView + "\n\n" + progressLine + "\n" + prompt
}

func (s *ChatScreen) renderTranscript(conv *transcript.Conversation, width, height int) string {
	if conv.Empty() {
		return lipgloss.NewStyle().
			Width(width).
			Foreground(theme.TextDim).
			Render("\n  No problem yet. Press Ctrl+P to set one up.")
	}

	var blocks []string
	for _, turn := range conv.Turns {
		label := theme.UserLabel.Render("You")
		if turn.Role == transcript.RoleAssistant {
			label = theme.TutorLabel.Render("Tutor")
		}
		body := lipgloss.NewStyle().
			Width(width).
			Foreground(theme.Text).
			Render(turn.Content)
		blocks = append(blocks, label+"\n"+body)
	}

	lines := strings.Split(strings.Join(blocks, "\n\n"), "\n")

	// Follow the tail; scroll offsets count up from the bottom.
	end := len(lines) - s.scroll
	if end > len(lines) {
		end = len(lines)
	}
	if end < 0 {
		end = 0
	}
	start := end - height
	if start < 0 {
		start = 0
	}

	return strings.Join(lines[start:end], "\n")
}

func (s *ChatScreen) renderProgress(conv *transcript.Conversation, width int) string {
	if !conv.Started() {
		return ""
	}

	total := len(conv.ModelSolution)
	done := total - conv.Progress
	if conv.Completed {
		return theme.Correct.Render(fmt.Sprintf("  All %d steps solved", total))
	}

	barWidth := width / 3
	if barWidth < 12 {
		barWidth = 12
	}
	bar := components.NewProgressBar("", float64(done)/float64(total), false, barWidth)
	count := lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("  %d of %d steps", done, total))
	return "  " + bar.View() + count
}

func (s *ChatScreen) renderPrompt(conv *transcript.Conversation, width int) string {
	prompt := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("> ")

	if conv.Completed {
		return prompt + theme.Hint.Render("Chat completed. Ctrl+N starts a new one.")
	}
	if s.controller.Busy() {
		return prompt + theme.Hint.Render(s.controller.State().String())
	}
	return prompt + s.input.View()
}

func (s *ChatScreen) renderDeleteConfirm(width, height int) string {
	convs := s.store.List()
	title := "this chat"
	if s.selected >= 0 && s.selected < len(convs) {
		title = fmt.Sprintf("%q", conversationTitle(convs[s.selected]))
	}

	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Bold(true).
		Render(fmt.Sprintf("Delete %s?", title)))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("The transcript and its draft are removed for good."))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render("[Y] Delete"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Primary).
		Render("[N] Keep"))

	return b.String()
}

// conversationTitle derives a sidebar label from the opening user turn.
func conversationTitle(conv *transcript.Conversation) string {
	for _, turn := range conv.Turns {
		if turn.Role != transcript.RoleUser {
			continue
		}
		line := turn.Content
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimPrefix(line, "Concept: ")
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return "New chat"
}

func truncate(s string, max int) string {
	if max < 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
