package tui

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bug.st/serial"

	"github.com/TZeys/RVCI/rvci-router/config"
	"github.com/TZeys/RVCI/rvci-router/router"
	"github.com/TZeys/RVCI/rvci-router/version"
)

// --- STYLES ---
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#575B7E")).
			Padding(0, 1)

	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	statusKeyStyle = lipgloss.NewStyle().Bold(true)

	linkUpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	linkDownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	chanIndexStyle  = lipgloss.NewStyle().Width(6).Align(lipgloss.Right).Padding(0, 1)
	chanTargetStyle = lipgloss.NewStyle().Width(30).Padding(0, 1)
	chanLevelStyle  = lipgloss.NewStyle().Width(9).Align(lipgloss.Right).Padding(0, 1)
	chanBarStyle    = lipgloss.NewStyle().Width(34).Padding(0, 1)
)

// --- MODEL ---
type tickMsg time.Time

type Model struct {
	state          *router.RouterState
	log            *log.Logger
	viewport       viewport.Model
	textInput      textinput.Model
	ready          bool
	lastDataRender string
}

func NewModel(rs *router.RouterState, logger *log.Logger) Model {
	ti := textinput.New()
	ti.Placeholder = "switch 1 | switch 2 | ports"
	ti.Focus()

	return Model{
		state:     rs,
		log:       logger,
		textInput: ti,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// --- UPDATE ---
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.textInput.Focused() {
			switch msg.Type {
			case tea.KeyEnter:
				m.handleCommand()
				return m, nil
			case tea.KeyCtrlC, tea.KeyEsc:
				m.textInput.Blur()
				return m, nil
			}
		} else {
			switch msg.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "i", "c":
				m.textInput.Focus()
				return m, nil
			case "1":
				m.state.SendCommand(router.SwitchDeviceCmd{Slot: 1})
				return m, nil
			case "2":
				m.state.SendCommand(router.SwitchDeviceCmd{Slot: 2})
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		topPaneHeight := 10
		linePaneHeight := 4
		footerHeight := 3
		verticalMargin := topPaneHeight + linePaneHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMargin)
			m.viewport.Style = baseStyle
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMargin
		}
		m.lastDataRender = ""

	case tickMsg:
		newRender := m.renderChannelPane()
		if m.lastDataRender != newRender {
			m.viewport.SetContent(newRender)
			m.lastDataRender = newRender
		}
		return m, tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
	}

	if m.textInput.Focused() {
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleCommand() {
	input := strings.TrimSpace(m.textInput.Value())
	defer m.textInput.SetValue("")
	if input == "" {
		return
	}
	m.log.Printf("TUI: User input: '%s'", input)
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	switch command {
	case "switch", "sw":
		if len(parts) < 2 {
			m.state.SetStatus("Error: 'switch' requires a slot (1 or 2).")
			return
		}
		slot, err := strconv.Atoi(parts[1])
		if err != nil || (slot != 1 && slot != 2) {
			m.state.SetStatus(fmt.Sprintf("Error: Invalid slot '%s'. Use 1 or 2.", parts[1]))
			return
		}
		m.state.SendCommand(router.SwitchDeviceCmd{Slot: slot})
		m.state.SetStatus(fmt.Sprintf("Queued switch to work device %d", slot))
	case "ports", "p":
		ports, err := serial.GetPortsList()
		if err != nil {
			m.state.SetStatus(fmt.Sprintf("Error: port scan failed: %v", err))
			return
		}
		if len(ports) == 0 {
			m.state.SetStatus("No serial ports found.")
			return
		}
		m.state.SetStatus("Ports: " + strings.Join(ports, ", "))
	default:
		m.state.SetStatus(fmt.Sprintf("Error: Unknown command '%s'.", command))
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatusPane(),
		m.renderLinePane(),
		m.viewport.View(),
		m.renderFooter(),
	)
}

func (m Model) renderStatusPane() string {
	_, _, _, accepted, dropped, buttons, linkUp, status := m.state.GetSnapshot()
	link := linkDownStyle.Render("DOWN")
	if linkUp {
		link = linkUpStyle.Render("UP")
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Link & Counters"),
		statusKeyStyle.Render("Version:  ")+version.Version,
		statusKeyStyle.Render("Link:     ")+link,
		statusKeyStyle.Render("Accepted: ")+fmt.Sprintf("%d", accepted),
		statusKeyStyle.Render("Dropped:  ")+fmt.Sprintf("%d", dropped),
		statusKeyStyle.Render("Buttons:  ")+fmt.Sprintf("%d", buttons),
		" ",
		statusKeyStyle.Render("Status:"),
		status,
	)
	return baseStyle.Width(m.viewport.Width - 2).Height(8).Render(content)
}

func (m Model) renderLinePane() string {
	_, _, line, _, _, _, _, _ := m.state.GetSnapshot()
	var content strings.Builder
	content.WriteString(titleStyle.Render("Last Line") + "\n")
	content.WriteString(fmt.Sprintf("RX [%d]: [%s] %s", line.Count, line.Timestamp, line.Text))
	return baseStyle.Width(m.viewport.Width - 2).Render(content.String())
}

func (m Model) renderChannelPane() string {
	levels, dials, _, _, _, _, _, _ := m.state.GetSnapshot()

	var content strings.Builder
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		chanIndexStyle.Render("Ch"),
		chanTargetStyle.Render("Target"),
		chanLevelStyle.Render("Level"),
		chanBarStyle.Render("Meter"),
	)
	content.WriteString(titleStyle.Width(m.viewport.Width).Render(header) + "\n")

	for i, d := range dials {
		level := 0.0
		if i < len(levels) {
			level = levels[i]
		}
		levelStr := "--"
		if level >= 0 {
			levelStr = fmt.Sprintf("%3.0f%%", level*100)
		}
		line := lipgloss.JoinHorizontal(lipgloss.Left,
			chanIndexStyle.Render(fmt.Sprintf("%d", i)),
			chanTargetStyle.Render(dialLabel(d)),
			chanLevelStyle.Render(levelStr),
			chanBarStyle.Render(levelBar(level, 30)),
		)
		content.WriteString(line + "\n")
	}
	if len(dials) == 0 {
		content.WriteString("No dials configured.\n")
	}
	return content.String()
}

func dialLabel(d config.Dial) string {
	switch d.Type {
	case config.DialSystem:
		return "System volume"
	case config.DialProcess:
		return d.ProcessName
	case config.DialAllOthers:
		return "All other apps"
	}
	return string(d.Type)
}

func levelBar(level float64, width int) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level*float64(width) + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func (m Model) renderFooter() string {
	help := "(1)/(2) switch output | (i) to input command | (q) to quit"
	if m.textInput.Focused() {
		help = "Enter command and press Esc to cancel"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.textInput.View(),
		help,
	)
}
