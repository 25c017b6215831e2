// Package ui provides the interactive chat terminal interface built on
// Bubble Tea. It renders the agent's event stream as it arrives: a
// thinking indicator, one box per tool execution, then the answer with
// its data sources.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/finsight/finsight/internal/agent"
)

// Ask starts one agent run and returns its event stream.
type Ask func(question string) <-chan agent.Event

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	// UI components
	textInput textinput.Model
	spinner   spinner.Model
	viewport  viewport.Model
	styles    Styles

	// State
	running     bool
	status      string
	messages    []chatMessage
	currentTool string
	lastUsage   *agent.UsageTotals
	width       int
	height      int
	ready       bool
	quitting    bool

	// Agent entry point (injected)
	ask Ask
}

// chatMessage is one entry of the scrollback.
type chatMessage struct {
	role    string // "user", "assistant", "system", "tool", "sources"
	content string
	tool    *toolUse
	sources []string
}

// toolUse is a finished tool execution as shown in the scrollback.
type toolUse struct {
	name    string
	summary string
}

// eventMsg carries one agent event into the Bubble Tea update loop,
// along with the channel to keep draining.
type eventMsg struct {
	evt agent.Event
	ok  bool
	ch  <-chan agent.Event
}

func waitForEvent(ch <-chan agent.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		return eventMsg{evt: evt, ok: ok, ch: ch}
	}
}

// NewModel creates a chat model wired to the given agent entry point.
func NewModel(ask Ask) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about your finances... (e.g., 'How much did I spend on groceries last month?')"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 80

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#059669"))

	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.DefaultKeyMap()

	return Model{
		textInput: ti,
		spinner:   s,
		viewport:  vp,
		styles:    DefaultStyles(),
		messages:  make([]chatMessage, 0),
		ask:       ask,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

// headerHeight returns the number of terminal lines occupied by the banner.
func (m Model) headerHeight() int {
	banner := m.styles.BannerTitle.Render(Banner())
	return lipgloss.Height(banner) + 2
}

// footerHeight returns the number of terminal lines occupied by the input + help bar.
func (m Model) footerHeight() int {
	return 4
}

// updateViewport rebuilds the viewport content and scrolls to the bottom.
func (m *Model) updateViewport() {
	var b strings.Builder

	for _, msg := range m.messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.running {
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			if m.running {
				return m, nil
			}

			question := strings.TrimSpace(m.textInput.Value())
			if question == "" {
				return m, nil
			}

			if cmd := m.handleCommand(question); cmd != nil || m.textInput.Value() == "" {
				m.updateViewport()
				return m, cmd
			}

			m.messages = append(m.messages, chatMessage{role: "user", content: question})
			m.textInput.SetValue("")
			m.running = true
			m.status = "thinking"
			m.updateViewport()

			if m.ask != nil {
				cmds = append(cmds, waitForEvent(m.ask(question)))
			}
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10

		vpWidth := msg.Width
		vpHeight := msg.Height - m.headerHeight() - m.footerHeight()
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(vpWidth, vpHeight)
			m.viewport.KeyMap = viewport.DefaultKeyMap()
		} else {
			m.viewport.Width = vpWidth
			m.viewport.Height = vpHeight
		}

		m.ready = true
		m.updateViewport()

	case eventMsg:
		newModel, cmd := m.handleAgentEvent(msg)
		nm := newModel.(Model)
		nm.updateViewport()
		return nm, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.running {
			m.updateViewport()
		}
	}

	if !m.running {
		var tiCmd tea.Cmd
		m.textInput, tiCmd = m.textInput.Update(msg)
		cmds = append(cmds, tiCmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// handleCommand processes special commands. It returns a non-nil Cmd or
// clears the input when the text was a command.
func (m *Model) handleCommand(input string) tea.Cmd {
	switch strings.ToLower(input) {
	case "exit", "quit", "q":
		m.quitting = true
		return tea.Quit

	case "clear":
		m.messages = make([]chatMessage, 0)
		m.textInput.SetValue("")
		return nil

	case "help", "?":
		m.messages = append(m.messages, chatMessage{
			role: "system",
			content: `Available commands:
  help, ?     Show this help
  clear       Clear chat history
  exit, quit  Exit

Example questions:
  "How much did I spend on groceries last month?"
  "What are my current account balances?"
  "Compare my spending this month to last month"
  "How has my net worth changed this year?"`,
		})
		m.textInput.SetValue("")
		return nil
	}

	return nil
}

// handleAgentEvent folds one event from the stream into the scrollback.
func (m Model) handleAgentEvent(msg eventMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		// Producer closed the channel; the terminal event already arrived.
		m.running = false
		m.currentTool = ""
		return m, nil
	}

	switch msg.evt.Type {
	case agent.EventThinking:
		m.status = "thinking"

	case agent.EventToolStart:
		m.currentTool = msg.evt.Name
		m.status = "running " + msg.evt.Name

	case agent.EventToolResult:
		m.currentTool = ""
		m.status = "thinking"
		m.messages = append(m.messages, chatMessage{
			role: "tool",
			tool: &toolUse{name: msg.evt.Name, summary: msg.evt.Summary},
		})

	case agent.EventContent:
		m.messages = append(m.messages, chatMessage{
			role:    "assistant",
			content: msg.evt.Text,
		})

	case agent.EventSources:
		lines := make([]string, 0, len(msg.evt.Sources))
		for _, s := range msg.evt.Sources {
			line := s.Description
			if s.DateRange != "" {
				line += " (" + s.DateRange + ")"
			}
			lines = append(lines, line)
		}
		m.messages = append(m.messages, chatMessage{role: "sources", sources: lines})

	case agent.EventDone:
		m.lastUsage = msg.evt.Usage
		m.running = false
		m.currentTool = ""

	case agent.EventError:
		m.messages = append(m.messages, chatMessage{
			role:    "system",
			content: "Error: " + msg.evt.Message,
		})
		m.running = false
		m.currentTool = ""
	}

	return m, tea.Batch(m.spinner.Tick, waitForEvent(msg.ch))
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return m.styles.SystemMessage.Render("Goodbye!\n")
	}

	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	// Fixed header: banner
	b.WriteString(m.styles.BannerTitle.Render(Banner()))
	b.WriteString("\n\n")

	// Scrollable middle: viewport
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	// Fixed footer: input + help bar
	b.WriteString(m.styles.Prompt.Render("> "))
	if m.running {
		b.WriteString(m.styles.StatusText.Render("(processing...)"))
	} else {
		b.WriteString(m.textInput.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())

	return m.styles.App.Render(b.String())
}

// renderMessage renders a single chat message.
func (m Model) renderMessage(msg chatMessage) string {
	switch msg.role {
	case "user":
		return m.styles.UserMessage.Render("You: " + msg.content)

	case "assistant":
		return m.styles.AssistantMessage.Render(msg.content)

	case "system":
		return m.styles.SystemMessage.Render(msg.content)

	case "tool":
		if msg.tool != nil {
			return m.renderToolUse(msg.tool)
		}

	case "sources":
		var b strings.Builder
		b.WriteString(m.styles.SourceLine.Render("Sources:"))
		for _, line := range msg.sources {
			b.WriteString("\n")
			b.WriteString(m.styles.SourceLine.Render("  - " + line))
		}
		return b.String()
	}
	return ""
}

// renderToolUse renders a completed tool execution.
func (m Model) renderToolUse(t *toolUse) string {
	var b strings.Builder
	b.WriteString(m.styles.ToolName.Render(t.name))
	if t.summary != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.ToolSummary.Render(t.summary))
	}
	return m.styles.ToolBox.Render(b.String())
}

// renderStatus renders the in-progress spinner line.
func (m Model) renderStatus() string {
	status := m.status
	if status == "" {
		status = "working"
	}
	return fmt.Sprintf("%s %s",
		m.spinner.View(),
		m.styles.StatusText.Render(status+"..."),
	)
}

// renderHelpBar renders the bottom help bar.
func (m Model) renderHelpBar() string {
	help := []string{
		m.styles.HelpKey.Render("enter") + m.styles.HelpValue.Render(" send"),
		m.styles.HelpKey.Render("ctrl+c") + m.styles.HelpValue.Render(" quit"),
		m.styles.HelpKey.Render("help") + m.styles.HelpValue.Render(" commands"),
	}
	if m.lastUsage != nil {
		help = append(help, m.styles.HelpValue.Render(
			fmt.Sprintf("last run: %d in / %d out tokens, %d tool calls",
				m.lastUsage.InputTokens, m.lastUsage.OutputTokens, m.lastUsage.ToolCalls)))
	}
	return m.styles.HelpBar.Render(strings.Join(help, "  |  "))
}

// Run starts the interactive chat session and blocks until exit.
func Run(ask Ask) error {
	p := tea.NewProgram(NewModel(ask), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
