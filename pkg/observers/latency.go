package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/skillcall/pkg/metrics"
)

// TurnLatencyObserver logs how long each question took, from the moment it
// was spoken to the moment its answer was submitted, split at the point the
// call started listening.
type TurnLatencyObserver struct {
	mu    sync.Mutex
	turns map[string]*turnTimes
	log   *slog.Logger
}

type turnTimes struct {
	spoken    time.Time
	listening time.Time
}

func NewTurnLatencyObserver(log *slog.Logger) *TurnLatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &TurnLatencyObserver{turns: make(map[string]*turnTimes), log: log}
}

func (o *TurnLatencyObserver) RecordEvent(ev metrics.Event) {
	id := ev.Tags["session_id"]
	if id == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	switch ev.Name {
	case "question_spoken":
		o.turns[id] = &turnTimes{spoken: ev.Time}
	case "voice_stage":
		t := o.turns[id]
		if t != nil && t.listening.IsZero() && ev.Tags["to"] == "listening" {
			t.listening = ev.Time
		}
	case "answer_submitted":
		t := o.turns[id]
		if t == nil {
			return
		}
		o.log.Info("turn_latency",
			"session_id", id,
			"question_key", ev.Tags["question_key"],
			"speak_ms", durationMs(t.spoken, t.listening),
			"answer_ms", durationMs(t.listening, ev.Time),
			"total_ms", durationMs(t.spoken, ev.Time),
		)
		delete(o.turns, id)
	case "call_ended":
		delete(o.turns, id)
	}
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}
