package tui

import "github.com/harunnryd/skillcall/pkg/call"

// callEventMsg wraps an event delivered by the controller listener.
type callEventMsg struct {
	Event call.Event
}

// frameMsg advances the widget animations.
type frameMsg struct{}

// clearErrorMsg drops a transient error line.
type clearErrorMsg struct {
	seq int
}

// clearNoticeMsg expires the controller notice with the given sequence.
type clearNoticeMsg struct {
	seq uint64
}
