package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-surface/lifecycle"
	"github.com/wippyai/wasm-surface/surface"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// Lines used by the title, status and help rows.
const chromeRows = 4

type keyMap struct {
	Spawn  key.Binding
	Stop   key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Spawn, k.Stop, k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Spawn:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "spawn")),
	Stop:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "stop")),
	Reload: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

type frameMsg time.Time

type exitMsg lifecycle.Exit

type reloadMsg struct{}

type interactiveModel struct {
	app      *app
	win      *window
	spinner  spinner.Model
	help     help.Model
	renderer *frameRenderer
	interval time.Duration
	cols     int
	rows     int
	quitting bool
}

func newInteractiveModel(a *app, cols, rows int) *interactiveModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = statusStyle
	m := &interactiveModel{
		app:      a,
		spinner:  s,
		help:     help.New(),
		renderer: newFrameRenderer(),
		interval: a.cfg.Pump.Interval,
	}
	m.layout(cols, rows)
	return m
}

// layout sizes the child window to the terminal below the chrome. Each cell
// shows two pixel rows.
func (m *interactiveModel) layout(cols, rows int) {
	m.cols = max(cols, 1)
	m.rows = max(rows-chromeRows, 1)
	if m.win != nil {
		m.win.resize(m.cols, m.rows*2)
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(
		m.spawn,
		m.frameTick(),
		m.spinner.Tick,
		waitForExit(m.app.exits),
		waitForReload(m.app.watch.Events()),
	)
}

func (m *interactiveModel) frameTick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func waitForExit(exits <-chan lifecycle.Exit) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-exits
		if !ok {
			return nil
		}
		return exitMsg(e)
	}
}

func waitForReload(events <-chan struct{}) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return reloadMsg{}
	}
}

type spawnMsg struct{}

// spawn is a message so the window is always created on the UI goroutine.
func (m *interactiveModel) spawn() tea.Msg { return spawnMsg{} }

func (m *interactiveModel) doSpawn() {
	m.win = newWindow(m.cols, m.rows*2)
	if err := m.app.spawn(context.Background(), m.win); err != nil {
		m.app.logger.Warn("spawn failed", zap.Error(err))
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Spawn), key.Matches(msg, keys.Reload):
			m.doSpawn()
			return m, nil
		case key.Matches(msg, keys.Stop):
			_ = m.app.coord.Stop(context.Background())
			return m, nil
		}
		m.forwardKey(msg)

	case tea.MouseMsg:
		m.forwardMouse(msg)

	case tea.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)
		_ = m.app.coord.Forward(surface.Event{
			Kind: surface.EventResize,
			X:    int32(m.cols),
			Y:    int32(m.rows * 2),
		})

	case spawnMsg:
		m.doSpawn()

	case frameMsg:
		// The UI goroutine owns capability work queued by guests.
		m.app.queue.Drain()
		return m, m.frameTick()

	case exitMsg:
		return m, waitForExit(m.app.exits)

	case reloadMsg:
		m.app.logger.Info("module changed, respawning")
		m.doSpawn()
		return m, waitForReload(m.app.watch.Events())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) forwardKey(msg tea.KeyMsg) {
	var code uint32
	if len(msg.Runes) > 0 {
		code = uint32(msg.Runes[0])
	} else {
		code = uint32(msg.Type)
	}
	_ = m.app.coord.Forward(surface.Event{Kind: surface.EventKeyDown, Code: code})
}

func (m *interactiveModel) forwardMouse(msg tea.MouseMsg) {
	y := msg.Y - 1
	if y < 0 || y >= m.rows {
		return
	}
	e := surface.Event{X: int32(msg.X), Y: int32(y * 2), Code: uint32(msg.Button)}
	switch msg.Action {
	case tea.MouseActionPress:
		e.Kind = surface.EventPointerDown
	case tea.MouseActionRelease:
		e.Kind = surface.EventPointerUp
	case tea.MouseActionMotion:
		e.Kind = surface.EventPointerMove
	default:
		return
	}
	_ = m.app.coord.Forward(e)
}

func (m *interactiveModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("wasm-surface"))
	b.WriteString(" ")
	b.WriteString(m.app.label())
	b.WriteString("\n")

	var frame string
	if m.win != nil {
		if img, visible := m.win.snapshot(); visible {
			frame = m.renderer.render(img, m.cols, m.rows)
		}
	}
	if frame == "" {
		frame = idleStyle.Render(strings.Repeat("\n", m.rows-1))
	}
	b.WriteString(frame)
	b.WriteString("\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m *interactiveModel) statusLine() string {
	status := m.app.coord.Status()
	switch {
	case m.app.coord.Active():
		frames := uint64(0)
		if m.win != nil {
			frames = m.win.presented()
		}
		return m.spinner.View() + statusStyle.Render(fmt.Sprintf(" %s  session %s  %d frames",
			status, m.app.coord.SessionID(), frames))
	case strings.HasPrefix(status, "error"):
		return errorStyle.Render(status)
	default:
		return idleStyle.Render(status)
	}
}

// runInteractive drives the coordinator from a bubbletea program. The
// program's goroutine is the UI goroutine: it creates windows and drains the
// UI task queue on every frame.
func runInteractive(a *app, cols, rows int) error {
	m := newInteractiveModel(a, cols, rows)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
