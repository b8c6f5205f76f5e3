package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nudriin/humbet-cli/internal/core/domain"
	"github.com/nudriin/humbet-cli/internal/core/session"
	"github.com/nudriin/humbet-cli/internal/interfaces/di"
)

const timelineRows = 8

// chatEntry is one rendered transcript line pair.
type chatEntry struct {
	role    string
	content string
	meta    string
}

// chatRespMsg carries the backend's answer (or failure) into the model.
type chatRespMsg struct {
	resp *domain.ChatResponse
	err  error
}

// thinkTickMsg drives timeline refresh while the backend is working.
type thinkTickMsg time.Time

// feedbackResultMsg reports the outcome of a rating submission.
type feedbackResultMsg struct {
	score int
	err   error
}

// chatModel is the Bubble Tea model for the interactive chat.
type chatModel struct {
	container *di.Container
	thinking  *session.ThinkingSession

	input    textinput.Model
	spin     spinner.Model
	vp       viewport.Model
	renderer *glamour.TermRenderer

	transcript     []chatEntry
	conversationID *int
	waiting        bool
	showTimeline   bool
	feedbackMode   bool
	status         string
	width          int
	height         int
	ready          bool
}

func newChatModel(container *di.Container, conversationID *int) chatModel {
	input := textinput.New()
	input.Placeholder = "Tanyakan sesuatu..."
	input.Focus()
	input.CharLimit = 2000

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return chatModel{
		container:      container,
		thinking:       container.NewThinkingSession(),
		input:          input,
		spin:           spin,
		conversationID: conversationID,
		showTimeline:   true,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		vpHeight := msg.Height - timelineRows - 6
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = vpHeight
		}
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-4),
		)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.feedbackMode && msg.String() == "esc" {
				m.feedbackMode = false
				m.status = ""
				return m, nil
			}
			m.thinking.Close()
			return m, tea.Quit
		case "tab":
			m.showTimeline = !m.showTimeline
			return m, nil
		case "ctrl+f":
			if m.conversationID != nil && !m.waiting {
				m.feedbackMode = true
				m.status = "Rate the last answer: press 1-5, esc to cancel"
			}
			return m, nil
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.waiting {
				return m, nil
			}
			m.transcript = append(m.transcript, chatEntry{role: "user", content: query})
			m.input.Reset()
			m.waiting = true
			m.status = ""
			m.refreshViewport()
			return m, tea.Batch(m.sendCmd(query), m.spin.Tick, thinkTick())
		}
		if m.feedbackMode && len(msg.String()) == 1 && msg.String() >= "1" && msg.String() <= "5" {
			score := int(msg.String()[0] - '0')
			m.feedbackMode = false
			m.status = "Submitting feedback..."
			return m, m.feedbackCmd(score)
		}

	case chatRespMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = errorStyle.Render(userMessage(msg.err))
			m.refreshViewport()
			return m, nil
		}
		id := msg.resp.ConversationID
		m.conversationID = &id
		m.transcript = append(m.transcript, chatEntry{
			role:    "assistant",
			content: msg.resp.Answer,
			meta:    answerMeta(msg.resp),
		})
		m.status = dimStyle.Render("ctrl+f to rate this answer")
		m.refreshViewport()
		return m, nil

	case thinkTickMsg:
		if m.waiting || m.thinking.IsThinking() {
			return m, thinkTick()
		}
		return m, nil

	case spinner.TickMsg:
		if m.waiting || m.thinking.IsThinking() {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case feedbackResultMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(userMessage(msg.err))
		} else {
			m.status = successStyle.Render(fmt.Sprintf("✓ Recorded score %d/5", msg.score))
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m chatModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Humbet"))
	if m.conversationID != nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  conversation #%d", *m.conversationID)))
	}
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")

	if m.showTimeline && (m.waiting || m.thinking.IsThinking() || len(m.thinking.Events()) > 0) {
		b.WriteString(m.timelineView())
	}

	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter send · tab timeline · ctrl+f rate · esc quit"))
	return b.String()
}

// timelineView renders the tail of the live reasoning trace.
func (m chatModel) timelineView() string {
	var b strings.Builder
	if m.waiting || m.thinking.IsThinking() {
		b.WriteString(m.spin.View())
		b.WriteString(stageStyle.Render(" thinking"))
	} else {
		b.WriteString(dimStyle.Render("trace"))
	}
	b.WriteString("\n")

	events := m.thinking.Events()
	start := 0
	if len(events) > timelineRows-1 {
		start = len(events) - (timelineRows - 1)
	}
	for _, e := range events[start:] {
		line := fmt.Sprintf("%s %s", stageStyle.Render(fmt.Sprintf("%-12s", e.Stage)), e.Describe())
		if m.width > 4 && len(line) > m.width-2 {
			line = line[:m.width-2]
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// refreshViewport re-renders the transcript and scrolls to the bottom.
func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, entry := range m.transcript {
		switch entry.role {
		case "user":
			b.WriteString(labelStyle.Render("You: "))
			b.WriteString(entry.content)
			b.WriteString("\n")
		case "assistant":
			rendered := entry.content
			if m.renderer != nil {
				if out, err := m.renderer.Render(entry.content); err == nil {
					rendered = out
				}
			}
			b.WriteString(rendered)
			if entry.meta != "" {
				b.WriteString(dimStyle.Render(entry.meta))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	m.vp.SetContent(b.String())
	m.vp.GotoBottom()
}

// sendCmd starts a thinking session (bounded wait for the stream to open)
// and then submits the query. The two are correlated only by timing: the
// event stream is global, not scoped to this request.
func (m chatModel) sendCmd(query string) tea.Cmd {
	thinking := m.thinking
	client := m.container.APIClient
	convID := m.conversationID
	return func() tea.Msg {
		ctx := context.Background()
		if err := thinking.Start(ctx); err != nil {
			return chatRespMsg{err: err}
		}
		resp, err := client.PostChat(ctx, domain.ChatRequest{
			Query:          query,
			ConversationID: convID,
		})
		return chatRespMsg{resp: resp, err: err}
	}
}

// feedbackCmd resolves the id of the last assistant message in the current
// conversation and submits the score against it.
func (m chatModel) feedbackCmd(score int) tea.Cmd {
	client := m.container.APIClient
	convID := *m.conversationID
	return func() tea.Msg {
		ctx := context.Background()
		detail, err := client.GetConversationDetail(ctx, convID)
		if err != nil {
			return feedbackResultMsg{score: score, err: err}
		}
		messageID := 0
		for _, msg := range detail.Messages {
			if msg.Role == "assistant" {
				messageID = msg.ID
			}
		}
		if messageID == 0 {
			return feedbackResultMsg{score: score, err: fmt.Errorf("no assistant message to rate")}
		}
		_, err = client.SubmitFeedback(ctx, domain.FeedbackRequest{MessageID: messageID, Score: score})
		return feedbackResultMsg{score: score, err: err}
	}
}

// answerMeta formats the confidence, iteration and source summary line.
func answerMeta(resp *domain.ChatResponse) string {
	meta := fmt.Sprintf("confidence %.1f%% · %d iterations", resp.Confidence*100, resp.Iterations)
	if len(resp.Sources) > 0 {
		names := make([]string, 0, len(resp.Sources))
		for _, s := range resp.Sources {
			if s.Source != "" {
				names = append(names, s.Source)
			}
		}
		if len(names) > 0 {
			meta += " · sources: " + strings.Join(names, ", ")
		}
	}
	return meta
}

func thinkTick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return thinkTickMsg(t)
	})
}
