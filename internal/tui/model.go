package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docchat/internal/domain"
	"docchat/internal/service"
)

// ChatPort is the TUI-facing subset of the chat service.
type ChatPort interface {
	Ask(ctx context.Context, query string) (*service.Answer, error)
	Sources(ctx context.Context, query string) (domain.SourceMap, error)
	ClearHistory()
	DocumentCount(ctx context.Context) (int, error)
}

type entry struct {
	role    string
	text    string
	sources domain.SourceMap
}

// Model is the Bubble Tea model for the chat interface. While an answer is
// streaming, each received fragment is appended to the last transcript entry
// and the next Recv is scheduled as a command.
type Model struct {
	svc       ChatPort
	input     textinput.Model
	viewport  viewport.Model
	entries   []entry
	answer    *service.Answer
	lastQuery string
	status    string
	streaming bool
	ready     bool
}

func New(svc ChatPort, chunkCount int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		svc:      svc,
		input:    ti,
		viewport: vp,
		status:   fmt.Sprintf("%d chunks loaded. Enter to ask, Ctrl+L clears history, Ctrl+C quits.", chunkCount),
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

type answerStartedMsg struct {
	answer *service.Answer
	query  string
}

type fragmentMsg struct {
	text string
	done bool
}

type sourcesMsg struct{ sources domain.SourceMap }

type queryErrMsg struct{ err error }

func askCmd(svc ChatPort, query string) tea.Cmd {
	return func() tea.Msg {
		ans, err := svc.Ask(context.Background(), query)
		if err != nil {
			return queryErrMsg{err}
		}
		return answerStartedMsg{answer: ans, query: query}
	}
}

func recvCmd(ans *service.Answer) tea.Cmd {
	return func() tea.Msg {
		fragment, done, err := ans.Recv()
		if err != nil {
			return queryErrMsg{err}
		}
		return fragmentMsg{text: fragment, done: done}
	}
}

func sourcesCmd(svc ChatPort, query string) tea.Cmd {
	return func() tea.Msg {
		sources, err := svc.Sources(context.Background(), query)
		if err != nil {
			return queryErrMsg{err}
		}
		return sourcesMsg{sources}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		vh := msg.Height - qh - fh - 3
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.answer != nil {
				_ = m.answer.Close()
			}
			return m, tea.Quit
		}
		if msg.Type == tea.KeyCtrlL && !m.streaming {
			m.svc.ClearHistory()
			m.entries = nil
			m.status = "Conversation history cleared."
			m.viewport.SetContent(m.renderTranscript())
			return m, nil
		}
		if msg.String() == "enter" && !m.streaming {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				break
			}
			m.entries = append(m.entries, entry{role: "user", text: q}, entry{role: "assistant"})
			m.input.SetValue("")
			m.streaming = true
			m.lastQuery = q
			m.status = "Thinking..."
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
			return m, askCmd(m.svc, q)
		}

	case answerStartedMsg:
		m.answer = msg.answer
		return m, recvCmd(m.answer)

	case fragmentMsg:
		if len(m.entries) > 0 {
			m.entries[len(m.entries)-1].text += msg.text
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		if !msg.done {
			return m, recvCmd(m.answer)
		}
		_ = m.answer.Close()
		m.answer = nil
		m.status = "Fetching sources..."
		return m, sourcesCmd(m.svc, m.lastQuery)

	case sourcesMsg:
		if len(m.entries) > 0 {
			m.entries[len(m.entries)-1].sources = msg.sources
		}
		m.streaming = false
		m.status = "Ready."
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case queryErrMsg:
		if m.answer != nil {
			_ = m.answer.Close()
			m.answer = nil
		}
		m.streaming = false
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docchat")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return "No messages yet."
	}
	var sb strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch e.role {
		case "user":
			sb.WriteString(userStyle.Render("You: ") + e.text)
		default:
			sb.WriteString(assistantStyle.Render("Assistant: ") + e.text)
			if len(e.sources) > 0 {
				sb.WriteString("\n" + sourceStyle.Render(renderSources(e.sources)))
			}
		}
	}
	return sb.String()
}

func renderSources(sources domain.SourceMap) string {
	var sb strings.Builder
	sb.WriteString("Sources:")
	for file, labels := range sources {
		sb.WriteString(fmt.Sprintf("\n  %s: %s", file, strings.Join(labels, ", ")))
	}
	return sb.String()
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
