// Package tui renders the onboarding call as a phone-frame terminal UI. The
// model owns no call state: it forwards keys to the controller and renders
// controller snapshots.
package tui

import (
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harunnryd/skillcall/pkg/call"
)

const (
	frameInterval = 120 * time.Millisecond
	errorTTL      = 4 * time.Second
	eventBuffer   = 64
)

// Controller is the part of *call.Controller the UI drives.
type Controller interface {
	Snapshot() call.Snapshot
	AddListener(l call.Listener)
	PressDigit(d rune) error
	DeleteDigit() error
	Dial() error
	SelectLanguage(key string) error
	Skip() error
	Replay() error
	TypeInstead() error
	ReRecord() error
	Edit() error
	SwitchToVoice() error
	SetEditText(text string) error
	Confirm() error
	Submit() error
	Save() error
	HangUp()
	NewCall() error
}

// Model is the root bubbletea model for the call screen.
type Model struct {
	ctrl   Controller
	events chan call.Event

	snap  call.Snapshot
	frame int

	width  int
	height int

	errText string
	errSeq  int

	// noticeSeen is the newest notice a clear has been scheduled for;
	// notices up to noticeExpired are no longer shown.
	noticeSeen    uint64
	noticeExpired uint64

	// navigated is set once a saved call hands off to search.
	navigated string
}

// New subscribes to ctrl and returns the initial model.
func New(ctrl Controller) Model {
	events := make(chan call.Event, eventBuffer)
	ctrl.AddListener(call.ListenerFunc(func(ev call.Event) {
		select {
		case events <- ev:
		default:
			// the next frame tick refreshes the snapshot anyway
		}
	}))
	m := Model{ctrl: ctrl, events: events}
	m.refresh()
	return m
}

// Navigated returns the path a saved call asked to open, if any.
func (m Model) Navigated() string {
	return m.navigated
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitEventCmd(m.events), frameCmd()}
	if m.noticeSeen != 0 {
		cmds = append(cmds, clearNoticeCmd(m.noticeSeen))
	}
	return tea.Batch(cmds...)
}

// refresh pulls a fresh snapshot and schedules expiry for a new notice.
func (m *Model) refresh() tea.Cmd {
	m.snap = m.ctrl.Snapshot()
	n := m.snap.Notice
	if n == nil || n.Seq <= m.noticeSeen {
		return nil
	}
	m.noticeSeen = n.Seq
	return clearNoticeCmd(n.Seq)
}

func waitEventCmd(events <-chan call.Event) tea.Cmd {
	return func() tea.Msg {
		return callEventMsg{Event: <-events}
	}
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return frameMsg{}
	})
}

func clearErrorCmd(seq int) tea.Cmd {
	return tea.Tick(errorTTL, func(time.Time) tea.Msg {
		return clearErrorMsg{seq: seq}
	})
}

func clearNoticeCmd(seq uint64) tea.Cmd {
	return tea.Tick(errorTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case callEventMsg:
		cmd := m.refresh()
		if msg.Event.Kind == call.EventNavigate {
			m.navigated = msg.Event.Path
			return m, tea.Quit
		}
		return m, tea.Batch(waitEventCmd(m.events), cmd)

	case frameMsg:
		m.frame++
		return m, tea.Batch(frameCmd(), m.refresh())

	case clearErrorMsg:
		if msg.seq == m.errSeq {
			m.errText = ""
		}
		return m, nil

	case clearNoticeMsg:
		if msg.seq > m.noticeExpired {
			m.noticeExpired = msg.seq
		}
		return m, nil
	}
	return m, nil
}

// handleKey maps a key press to a controller action for the current stage.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case KeyCtrlC:
		return m, tea.Quit
	case KeyHangUp:
		if m.snap.Stage != call.StageDial {
			m.ctrl.HangUp()
			return m, m.refresh()
		}
		return m, nil
	}

	var err error
	switch m.snap.Stage {
	case call.StageDial:
		switch {
		case key == KeyQuit:
			return m, tea.Quit
		case key == KeyEnter:
			err = m.ctrl.Dial()
		case key == KeyBackspace:
			err = m.ctrl.DeleteDigit()
		case isDigit(msg):
			err = m.ctrl.PressDigit(msg.Runes[0])
		}

	case call.StageIVR:
		if isDigit(msg) && m.snap.KeysVisible {
			err = m.ctrl.SelectLanguage(string(msg.Runes[0]))
		}

	case call.StageInterview:
		err = m.handleVoiceKey(msg)

	case call.StageDone:
		switch key {
		case KeySave:
			err = m.ctrl.Save()
		case KeyNewCall:
			err = m.ctrl.NewCall()
		case KeyQuit:
			return m, tea.Quit
		}
	}

	cmd := m.refresh()
	if err != nil {
		m.errSeq++
		m.errText = err.Error()
		return m, tea.Batch(cmd, clearErrorCmd(m.errSeq))
	}
	return m, cmd
}

func (m Model) handleVoiceKey(msg tea.KeyMsg) error {
	key := msg.String()
	switch m.snap.Voice {
	case call.VoiceSpeaking:
		if key == KeySkip || key == KeySpace {
			return m.ctrl.Skip()
		}
	case call.VoiceListening:
		switch key {
		case KeyType:
			return m.ctrl.TypeInstead()
		case KeyReplay:
			return m.ctrl.Replay()
		}
	case call.VoiceConfirming:
		switch key {
		case KeyEnter, KeyConfirm:
			return m.ctrl.Confirm()
		case KeyReplay:
			return m.ctrl.ReRecord()
		case KeyEdit:
			return m.ctrl.Edit()
		}
	case call.VoiceTyping:
		switch msg.Type {
		case tea.KeyEnter:
			return m.ctrl.Submit()
		case tea.KeyTab:
			return m.ctrl.SwitchToVoice()
		case tea.KeyBackspace:
			text := m.snap.Edit
			if text == "" {
				return nil
			}
			_, size := utf8.DecodeLastRuneInString(text)
			return m.ctrl.SetEditText(text[:len(text)-size])
		case tea.KeySpace:
			return m.ctrl.SetEditText(m.snap.Edit + " ")
		case tea.KeyRunes:
			return m.ctrl.SetEditText(m.snap.Edit + string(msg.Runes))
		}
	}
	return nil
}

func isDigit(msg tea.KeyMsg) bool {
	return msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && strings.ContainsRune("0123456789", msg.Runes[0])
}
