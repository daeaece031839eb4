package call

// Stage is the call-level state.
type Stage int

const (
	StageDial Stage = iota
	StageRinging
	StageIVR
	StageInterview
	StageReviewing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageDial:
		return "dial"
	case StageRinging:
		return "ringing"
	case StageIVR:
		return "ivr"
	case StageInterview:
		return "interview"
	case StageReviewing:
		return "reviewing"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// active reports whether the elapsed call timer runs in this stage.
func (s Stage) active() bool {
	return s == StageIVR || s == StageInterview || s == StageReviewing
}

// VoiceStage is the per-question state nested inside the interview stage.
type VoiceStage int

const (
	VoiceIdle VoiceStage = iota
	VoiceSpeaking
	VoiceListening
	VoiceConfirming
	VoiceTyping
)

func (v VoiceStage) String() string {
	switch v {
	case VoiceIdle:
		return "idle"
	case VoiceSpeaking:
		return "speaking"
	case VoiceListening:
		return "listening"
	case VoiceConfirming:
		return "confirming"
	case VoiceTyping:
		return "typing"
	default:
		return "unknown"
	}
}

// Hang-up is allowed from every stage and is not listed.
var stageTransitions = map[Stage][]Stage{
	StageDial:      {StageRinging},
	StageRinging:   {StageIVR},
	StageIVR:       {StageInterview},
	StageInterview: {StageReviewing},
	StageReviewing: {StageDone},
	StageDone:      {},
}

// A new question always restarts at speaking and is not listed.
var voiceTransitions = map[VoiceStage][]VoiceStage{
	VoiceSpeaking:   {VoiceListening},
	VoiceListening:  {VoiceConfirming, VoiceTyping, VoiceSpeaking},
	VoiceConfirming: {VoiceListening, VoiceTyping},
	VoiceTyping:     {VoiceListening},
}

func stageTransitionValid(from, to Stage) bool {
	if to == StageDial {
		return from != StageDial
	}
	for _, s := range stageTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func voiceTransitionValid(from, to VoiceStage) bool {
	for _, s := range voiceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports a transition the state tables do not allow.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From + " to " + e.To
}
