package call

import "time"

type EventKind int

const (
	EventStageChanged EventKind = iota
	EventVoiceStageChanged
	EventPhoneChanged
	EventIVRUpdated
	EventQuestionStarted
	EventTranscriptUpdated
	EventAnswerSubmitted
	EventNotice
	EventVerification
	EventProfileReady
	EventNavigate
	EventElapsed
	EventCallEnded
)

func (k EventKind) String() string {
	switch k {
	case EventStageChanged:
		return "call_stage"
	case EventVoiceStageChanged:
		return "voice_stage"
	case EventPhoneChanged:
		return "phone_changed"
	case EventIVRUpdated:
		return "ivr_updated"
	case EventQuestionStarted:
		return "question_spoken"
	case EventTranscriptUpdated:
		return "transcript_updated"
	case EventAnswerSubmitted:
		return "answer_submitted"
	case EventNotice:
		return "notice"
	case EventVerification:
		return "verification"
	case EventProfileReady:
		return "profile_ready"
	case EventNavigate:
		return "navigate"
	case EventElapsed:
		return "elapsed"
	case EventCallEnded:
		return "call_ended"
	default:
		return "unknown"
	}
}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeSuccess:
		return "success"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a user-facing message, the terminal equivalent of a toast.
type Notice struct {
	Level NoticeLevel
	Text  string
	// Seq increases with every notice, starting at 1, across calls.
	Seq uint64
}

// VerificationOutcome is the result of checking the spoken one-time code.
type VerificationOutcome int

const (
	OTPVerified VerificationOutcome = iota
	OTPRejected
	OTPErrored
)

func (o VerificationOutcome) String() string {
	switch o {
	case OTPVerified:
		return "verified"
	case OTPRejected:
		return "rejected"
	default:
		return "errored"
	}
}

type VerificationResult struct {
	Outcome VerificationOutcome
	Message string
	Err     error
}

// Event describes one change in the controller. From and To carry stage
// names for stage events; the other fields are set per kind.
type Event struct {
	Kind         EventKind
	Time         time.Time
	SessionID    string
	From         string
	To           string
	QuestionKey  string
	Text         string
	Notice       *Notice
	Verification *VerificationResult
	Path         string
	Elapsed      time.Duration
}

// Listener observes controller events. Listeners are called without the
// controller lock held and may call back into the controller.
type Listener interface {
	OnCallEvent(ev Event)
}

type ListenerFunc func(ev Event)

func (f ListenerFunc) OnCallEvent(ev Event) { f(ev) }
