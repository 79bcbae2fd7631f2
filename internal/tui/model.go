// Package tui provides the BubbleTea-based alarm panel.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/klaxon/internal/dbus"
	"github.com/jmylchreest/klaxon/internal/model"
)

// Client is the daemon API the panel drives.
type Client interface {
	Play(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (model.SessionInfo, error)
	Channels(ctx context.Context) ([]model.ChannelDescriptor, error)
}

const (
	defaultTimeout = 5 * time.Second
	pollInterval   = time.Second
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("1")).
			Padding(0, 2)

	badgeBase = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 4).
			MarginTop(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(10)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// badgeStyle returns the state badge style: red while sounding, yellow while
// preparing or paused, grey when silent.
func badgeStyle(state model.SessionState) lipgloss.Style {
	switch state {
	case model.SessionPlaying:
		return badgeBase.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	case model.SessionPreparing, model.SessionPaused:
		return badgeBase.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	default:
		return badgeBase.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	}
}

// Model is the main TUI model.
type Model struct {
	client  Client
	timeout time.Duration
	signals <-chan dbus.Signal
	now     func() time.Time

	// State
	session      model.SessionInfo
	channels     []model.ChannelDescriptor
	showChannels bool
	connected    bool
	width        int
	height       int
	ready        bool

	// Key bindings
	keys KeyMap
	help help.Model

	// Status message
	statusMsg string
	statusErr bool
}

// New creates a new TUI model. signals may be nil, in which case the panel
// relies on polling.
func New(client Client, signals <-chan dbus.Signal) Model {
	return Model{
		client:  client,
		timeout: defaultTimeout,
		signals: signals,
		now:     time.Now,
		session: model.InactiveSession(),
		keys:    DefaultKeyMap(),
		help:    help.New(),
	}
}

type statusLoadedMsg struct {
	session model.SessionInfo
	err     error
}

type channelsLoadedMsg struct {
	channels []model.ChannelDescriptor
	err      error
}

type actionResultMsg struct {
	action string
	err    error
}

type signalMsg struct {
	signal dbus.Signal
}

type tickMsg time.Time

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadStatus,
		m.loadChannels,
		m.waitForSignal,
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

// loadStatus fetches the session status from the daemon.
func (m Model) loadStatus() tea.Msg {
	ctx, cancel := m.context()
	defer cancel()
	info, err := m.client.Status(ctx)
	return statusLoadedMsg{session: info, err: err}
}

// loadChannels fetches the registered channels from the daemon.
func (m Model) loadChannels() tea.Msg {
	ctx, cancel := m.context()
	defer cancel()
	channels, err := m.client.Channels(ctx)
	return channelsLoadedMsg{channels: channels, err: err}
}

// waitForSignal blocks until the daemon reports a playback change.
func (m Model) waitForSignal() tea.Msg {
	if m.signals == nil {
		return nil
	}
	sig, ok := <-m.signals
	if !ok {
		return nil
	}
	return signalMsg{signal: sig}
}

func (m Model) play() tea.Msg {
	ctx, cancel := m.context()
	defer cancel()
	return actionResultMsg{action: "play", err: m.client.Play(ctx)}
}

func (m Model) stop() tea.Msg {
	ctx, cancel := m.context()
	defer cancel()
	return actionResultMsg{action: "stop", err: m.client.Stop(ctx)}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case statusLoadedMsg:
		if msg.err != nil {
			m.connected = false
			m.session = model.InactiveSession()
			m.statusMsg = "Daemon unreachable: " + msg.err.Error()
			m.statusErr = true
			return m, nil
		}
		if !m.connected && m.statusErr {
			m.statusMsg = ""
			m.statusErr = false
		}
		m.connected = true
		m.session = msg.session
		return m, nil

	case channelsLoadedMsg:
		if msg.err == nil {
			m.channels = msg.channels
		}
		return m, nil

	case actionResultMsg:
		if msg.err != nil {
			return m, tea.Batch(m.loadStatus, setStatus("Failed to "+msg.action+": "+msg.err.Error(), true))
		}
		text := "Alarm sounding"
		if msg.action == "stop" {
			text = "Alarm silenced"
		}
		return m, tea.Batch(m.loadStatus, setStatus(text, false))

	case signalMsg:
		return m, tea.Batch(m.loadStatus, m.waitForSignal)

	case tickMsg:
		return m, tea.Batch(m.loadStatus, tick())

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		if m.connected {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil
	}

	return m, nil
}

func setStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Play):
		return m, m.play

	case key.Matches(msg, m.keys.Stop):
		return m, m.stop

	case key.Matches(msg, m.keys.Toggle):
		if m.session.Active() {
			return m, m.stop
		}
		return m, m.play

	case key.Matches(msg, m.keys.Channels):
		m.showChannels = !m.showChannels
		if m.showChannels {
			return m, m.loadChannels
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.loadStatus, m.loadChannels)
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("KLAXON"))
	b.WriteString("\n")

	b.WriteString(badgeStyle(m.session.State).Render(m.badgeText()))
	b.WriteString("\n")

	if m.session.Active() {
		b.WriteString(labelStyle.Render("Session") + m.session.ID + "\n")
		if !m.session.StartedAt.IsZero() {
			b.WriteString(labelStyle.Render("Started") + humanize.RelTime(m.session.StartedAt, m.now(), "ago", "from now") + "\n")
		}
	}

	if m.showChannels {
		b.WriteString("\n" + m.viewChannels())
	}

	b.WriteString("\n")
	if m.statusMsg != "" {
		style := dimStyle.Foreground(lipgloss.Color("7"))
		if m.statusErr {
			style = errStyle
		}
		b.WriteString(style.Render(m.statusMsg) + "\n")
	}

	if m.help.ShowAll {
		b.WriteString(m.help.View(m.keys))
	} else {
		b.WriteString(m.buildKeybindBar(m.width))
	}

	return b.String()
}

func (m Model) badgeText() string {
	switch {
	case !m.connected:
		return "DAEMON OFFLINE"
	case m.session.State == model.SessionPlaying:
		return "ALARM SOUNDING"
	case m.session.State == model.SessionPreparing:
		return "PREPARING"
	case m.session.State == model.SessionPaused:
		return "PAUSED"
	default:
		return "SILENT"
	}
}

func (m Model) viewChannels() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Channels") + "\n")

	if len(m.channels) == 0 {
		b.WriteString(dimStyle.Render("  none registered") + "\n")
		return b.String()
	}

	for _, c := range m.channels {
		sound := "default sound"
		if c.HasCustomSound() {
			sound = c.Sound
		}
		fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render(c.Name), dimStyle.Render(
			fmt.Sprintf("(%s, %s, %s)", c.ID, c.ImportanceName(), sound)))
	}
	return b.String()
}

// keybind is one entry in the bottom bar.
type keybind struct {
	key  string
	desc string
}

// buildKeybindBar builds a keybind bar that fits within the given width.
func (m Model) buildKeybindBar(width int) string {
	toggle := "sound"
	if m.session.Active() {
		toggle = "silence"
	}

	// Most important first
	binds := []keybind{
		{"space", toggle},
		{"q", "quit"},
		{"?", "help"},
		{"p", "play"},
		{"s", "stop"},
		{"c", "channels"},
		{"r", "refresh"},
	}

	const separator = "  "
	result := ""
	plainLen := 0
	for _, b := range binds {
		plain := b.key + " " + b.desc
		next := plainLen + len(plain)
		if result != "" {
			next += len(separator)
		}
		if width > 0 && next > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += keyStyle.Render(b.key) + " " + b.desc
		plainLen = next
	}

	return dimStyle.Render(result)
}

// RunOptions configures the TUI.
type RunOptions struct {
	Client  Client
	Signals <-chan dbus.Signal
	Timeout time.Duration
}

// Run starts the TUI with the given options.
func Run(opts RunOptions) error {
	m := New(opts.Client, opts.Signals)
	if opts.Timeout > 0 {
		m.timeout = opts.Timeout
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
