package metrics

import "time"

// Event is one entry on a call's timeline. Tags carry identifiers such as
// session_id and stage names; Fields carry free-form detail.
type Event struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev Event)
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(Event) {}
