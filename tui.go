package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hark/clipboard"
	"hark/log"
	"hark/session"
	"hark/shutdown"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type stateMsg struct{ State session.State }
type transcriptMsg struct{ Text string }
type enabledMsg struct{ Enabled bool }
type copiedMsg struct{ Err error }
type tickMsg time.Time

// The button starts on this row: title, blank line, then the button box.
const buttonTop = 2

type tuiModel struct {
	toggle func()
	copy   func(string) error

	state         session.State
	enabled       bool
	transcript    string
	status        string
	listenStart   time.Time
	listenFor     time.Duration
	copied        bool
	copyErr       error
	frame         int
	width, height int
}

func newTUIModel(toggle func(), copyText func(string) error, status string) tuiModel {
	return tuiModel{toggle: toggle, copy: copyText, status: status}
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "space", "enter":
			m.tap()
		case "y":
			return m, m.copyTranscript()
		}

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && m.onButton(msg.X, msg.Y) {
			m.tap()
		}

	case tickMsg:
		m.frame++
		if m.state == session.Listening {
			m.listenFor = time.Since(m.listenStart)
		}
		return m, tuiTick()

	case stateMsg:
		if msg.State == session.Listening && m.state != session.Listening {
			m.listenStart = time.Now()
			m.listenFor = 0
		}
		m.state = msg.State

	case transcriptMsg:
		m.transcript = msg.Text
		m.copied = false
		m.copyErr = nil

	case enabledMsg:
		m.enabled = msg.Enabled

	case copiedMsg:
		m.copied = msg.Err == nil
		m.copyErr = msg.Err
	}
	return m, nil
}

// tap forwards a press to the controller. A disabled control swallows it.
func (m tuiModel) tap() {
	if m.enabled && m.toggle != nil {
		m.toggle()
	}
}

func (m tuiModel) copyTranscript() tea.Cmd {
	text := m.transcript
	if text == "" || text == session.Placeholder || m.copy == nil {
		return nil
	}
	copyFn := m.copy
	return func() tea.Msg {
		return copiedMsg{Err: copyFn(text)}
	}
}

func (m tuiModel) onButton(x, y int) bool {
	button := m.renderButton()
	return y >= buttonTop && y < buttonTop+lipgloss.Height(button) &&
		x >= 0 && x < lipgloss.Width(button)
}

func (m tuiModel) renderButton() string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 2).
		Bold(true)
	switch {
	case !m.enabled:
		style = style.Foreground(lipgloss.Color("240")).BorderForeground(lipgloss.Color("238"))
	case m.state == session.Listening:
		style = style.Foreground(lipgloss.Color("196")).BorderForeground(lipgloss.Color("196"))
	default:
		style = style.Foreground(lipgloss.Color("42")).BorderForeground(lipgloss.Color("42"))
	}
	return style.Render(m.state.Label())
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	title := lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true).Render("hark")
	lines = append(lines, title, "")
	lines = append(lines, strings.Split(m.renderButton(), "\n")...)

	// Status line
	if m.state == session.Listening {
		dot := "●"
		if m.frame%10 >= 5 {
			dot = " "
		}
		rec := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Render(fmt.Sprintf("%s LISTENING %.1fs", dot, m.listenFor.Seconds()))
		lines = append(lines, rec)
	} else {
		standby := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("○ STANDBY")
		lines = append(lines, standby)
	}
	lines = append(lines, "")

	// Transcript, wrapped to the window
	wrapWidth := m.width - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	if m.transcript != "" {
		textStyle := lipgloss.NewStyle().Width(wrapWidth).Foreground(lipgloss.Color("4"))
		if m.transcript == session.Placeholder || m.transcript == session.DeniedMessage {
			textStyle = textStyle.Foreground(lipgloss.Color("241"))
		}
		text := textStyle.Render(m.transcript)
		if m.copied {
			text += " " + lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("[✓ copied]")
		}
		lines = append(lines, text)
	}
	if m.copyErr != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render("copy failed: "+m.copyErr.Error()))
	}
	lines = append(lines, "")

	if m.status != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(m.status))
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	help := boldStyle.Render("space") + helpStyle.Render(" tap  ") +
		boldStyle.Render("y") + helpStyle.Render(" copy  ") +
		boldStyle.Render("q") + helpStyle.Render(" quit  ") +
		helpStyle.Render("hark "+version)
	lines = append(lines, help)

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(lines, "\n"))
}

// tuiSink feeds controller events into the bubbletea program. Send blocks
// until the program is running, which holds the controller back until the
// screen is ready.
type tuiSink struct {
	mu sync.Mutex
	p  *tea.Program
}

func (s *tuiSink) attach(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *tuiSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *tuiSink) StateChanged(state session.State) { s.send(stateMsg{State: state}) }
func (s *tuiSink) TranscriptChanged(text string)    { s.send(transcriptMsg{Text: text}) }
func (s *tuiSink) ControlEnabled(enabled bool)      { s.send(enabledMsg{Enabled: enabled}) }

func runTUI(a *app) {
	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	sink := &tuiSink{}
	ctrl := a.newController(sink)
	p := tea.NewProgram(newTUIModel(ctrl.Toggle, clipboard.Copy, a.statusLine()),
		tea.WithAltScreen(), tea.WithMouseCellMotion())
	sink.attach(p)

	done := a.serve(ctx, ctrl)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
	}
	stop()
	<-done
	a.close(ctrl)
}
