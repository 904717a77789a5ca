package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/tkresnik/aria-core/core"
)

var (
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	interimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type stateChangedMsg struct {
	state orchestration.State
}

type interimTranscriptMsg struct {
	transcript string
}

// historyChangedMsg asks the UI to re-render the conversation from the
// orchestrator's history.
type historyChangedMsg struct{}

type sessionErrorMsg struct {
	err error
}

type recordingStartedMsg struct{}

type recordingStoppedMsg struct{}

type model struct {
	orchestrator *orchestration.Orchestrator

	viewport viewport.Model
	ready    bool
	width    int

	state     orchestration.State
	recording bool
	interim   string
	err       error
}

func newModel(o *orchestration.Orchestrator) model {
	return model{
		orchestrator: o,
		state:        o.State(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := msg.Height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.footerView())
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.refreshConversation()
		return m, nil

	case stateChangedMsg:
		m.state = msg.state
		if msg.state == orchestration.StateIdle {
			m.recording = false
		}
		return m, nil

	case interimTranscriptMsg:
		m.interim = msg.transcript
		m.refreshConversation()
		return m, nil

	case historyChangedMsg:
		m.interim = ""
		m.refreshConversation()
		return m, nil

	case sessionErrorMsg:
		m.err = msg.err
		return m, nil

	case recordingStartedMsg:
		m.recording = true
		return m, nil

	case recordingStoppedMsg:
		m.recording = false
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	o := m.orchestrator

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		if m.recording {
			return m, func() tea.Msg {
				if err := o.StopRecording(); err != nil {
					return sessionErrorMsg{err: err}
				}
				return recordingStoppedMsg{}
			}
		}
		return m, func() tea.Msg {
			if err := o.StartRecording(); err != nil {
				return sessionErrorMsg{err: err}
			}
			return recordingStartedMsg{}
		}

	case " ", "esc":
		m.recording = false
		return m, func() tea.Msg {
			o.CancelAllPlayback()
			return historyChangedMsg{}
		}

	case "e":
		m.err = nil
		o.ClearError()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) refreshConversation() {
	if !m.ready {
		return
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *model) renderConversation() string {
	var lines []string
	for turn := range m.orchestrator.Turns {
		prefix := userStyle.Render("You: ")
		style := lipgloss.NewStyle()
		if turn.Speaker == orchestration.SpeakerAssistant {
			prefix = assistantStyle.Render("Aria: ")
		}
		if turn.Status == orchestration.TurnCancelled {
			style = cancelledStyle
		}

		content := wordwrap.String(turn.Content, max(m.width-8, 20))
		lines = append(lines, prefix+style.Render(content))
	}

	if m.interim != "" {
		content := wordwrap.String(m.interim, max(m.width-8, 20))
		lines = append(lines, userStyle.Render("You: ")+interimStyle.Render(content))
	}

	return strings.Join(lines, "\n\n")
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.footerView()
}

func (m model) headerView() string {
	status := string(m.state)
	if m.recording {
		status += " ● rec"
	}
	return statusStyle.Render(fmt.Sprintf(" aria | %s ", status))
}

func (m model) footerView() string {
	help := helpStyle.Render(" r: toggle mic | space/esc: interrupt | e: clear error | q: quit ")
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf(" error: %v ", m.err)) + "\n" + help
	}
	return help
}
