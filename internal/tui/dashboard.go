// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui renders the live safe dashboard in the terminal. It only reads
// acquisition state and the warning ledger; lock commands go through the
// password gate and the relay.
package tui // import "github.com/smartsafe/safewatch/internal/tui"

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/smartsafe/safewatch/internal/acquisition"
	"github.com/smartsafe/safewatch/internal/gate"
	"github.com/smartsafe/safewatch/internal/i18n"
	"github.com/smartsafe/safewatch/internal/ledger"
	"github.com/smartsafe/safewatch/internal/model"
	"github.com/smartsafe/safewatch/internal/relay"
)

// warningRows is how many ledger entries the table shows.
const warningRows = 10

// Commander sends lock intents to the actuator.
type Commander interface {
	Send(ctx context.Context, intent model.Intent) (relay.Confirmation, error)
	State() model.LockState
}

// stateMsg carries a state published by the acquisition loop.
type stateMsg acquisition.State

// commandDoneMsg reports the outcome of a relay command.
type commandDoneMsg struct {
	intent model.Intent
	conf   relay.Confirmation
	err    error
}

// Model is the dashboard's bubbletea model.
type Model struct {
	states   <-chan acquisition.State
	state    acquisition.State
	ledger   *ledger.Ledger
	gate     *gate.Gate
	relay    Commander
	timeout  time.Duration
	password textinput.Model
	warnings table.Model

	pending model.Intent // intent in flight, "" when idle
	lockMsg string
	lockErr string
	width   int
}

// New builds a dashboard that listens on states. initial seeds the view so
// a restarted dashboard does not start blank.
func New(states <-chan acquisition.State, initial acquisition.State, led *ledger.Ledger, g *gate.Gate, c Commander, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Placeholder = i18n.T("lock.enter_password")
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 128
	ti.Width = 24
	ti.Prompt = "> "
	ti.TextStyle = focusedStyle
	ti.Cursor.Style = focusedStyle
	ti.Focus()

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: i18n.T("dashboard.col_timestamp"), Width: 24},
			{Title: i18n.T("dashboard.col_event"), Width: 48},
		}),
		table.WithHeight(warningRows+1),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSubtle).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorWhite).
		Bold(false)
	t.SetStyles(s)

	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	m := Model{
		states:   states,
		state:    initial,
		ledger:   led,
		gate:     g,
		relay:    c,
		timeout:  timeout,
		password: ti,
		warnings: t,
		width:    80,
	}
	m.rebuildWarnings()
	return m
}

// waitForState blocks on the subscription. A closed channel ends the wait
// without a message.
func waitForState(ch <-chan acquisition.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

func (m Model) sendCmd(intent model.Intent) tea.Cmd {
	c, timeout := m.relay, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		conf, err := c.Send(ctx, intent)
		return commandDoneMsg{intent: intent, conf: conf, err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForState(m.states))
}

func (m *Model) rebuildWarnings() {
	if m.ledger == nil {
		return
	}
	entries := m.ledger.Latest(warningRows)
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{e.DisplayTimestamp, e.Message})
	}
	m.warnings.SetRows(rows)
}

func (m Model) authenticated() bool {
	return m.gate != nil && m.gate.Authenticated()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case stateMsg:
		m.state = acquisition.State(msg)
		m.rebuildWarnings()
		return m, waitForState(m.states)

	case commandDoneMsg:
		m.pending = ""
		if msg.err != nil {
			m.lockErr = i18n.T("lock.failed", msg.err)
			m.lockMsg = ""
		} else {
			m.lockErr = ""
			m.lockMsg = i18n.T("lock.sent", lockLabel(msg.conf.State))
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if !m.authenticated() {
			return m.updatePassword(msg)
		}
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "l", "u":
			if m.pending != "" || m.relay == nil {
				return m, nil
			}
			intent := model.IntentLock
			if msg.String() == "u" {
				intent = model.IntentUnlock
			}
			if m.relay.State() == intent.Target() {
				return m, nil
			}
			m.pending = intent
			m.lockErr, m.lockMsg = "", ""
			return m, m.sendCmd(intent)
		case "o":
			m.gate.Logout()
			m.lockMsg, m.lockErr = "", ""
			m.password.Reset()
			return m, m.password.Focus()
		}
	}
	return m, nil
}

// updatePassword routes keys to the password field until the gate opens.
func (m Model) updatePassword(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		if m.gate == nil {
			return m, nil
		}
		input := m.password.Value()
		m.password.Reset()
		if err := m.gate.Submit(input); err != nil {
			return m, nil
		}
		m.password.Blur()
		return m, nil
	}
	if m.gate != nil {
		m.gate.ClearError()
	}
	var cmd tea.Cmd
	m.password, cmd = m.password.Update(msg)
	return m, cmd
}

// Run starts the dashboard on the terminal and blocks until the user quits
// or ctx is done.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
