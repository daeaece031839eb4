package call

import (
	"context"
	"time"

	"github.com/harunnryd/skillcall/pkg/backend"
)

// QuestionSource fetches the interview for a language.
type QuestionSource interface {
	Questions(ctx context.Context, phone, languageKey string) (backend.QuestionsResponse, error)
}

type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage string) (backend.TranslateResponse, error)
}

type OTPService interface {
	GenerateOTP(ctx context.Context, phone, aadhaarLast4 string) (backend.GenerateOTPResponse, error)
	VerifyOTP(ctx context.Context, phone, otp string) (backend.VerifyOTPResponse, error)
}

type Extractor interface {
	ExtractProfile(ctx context.Context, req backend.ExtractRequest) (backend.ExtractResponse, error)
}

type ProfileSaver interface {
	SaveProfile(ctx context.Context, phone string, profile backend.Profile) (backend.SaveResponse, error)
}

// Backend is everything the controller needs from the SkillSync API.
// *backend.Client satisfies it.
type Backend interface {
	QuestionSource
	Translator
	OTPService
	Extractor
	ProfileSaver
}

// Ringer connects the call. Ring returns once the ringing phase is over.
type Ringer interface {
	Ring(ctx context.Context, phone string) error
}

// DelayRinger simulates ringing with a fixed delay.
type DelayRinger struct {
	Delay time.Duration
}

func (r DelayRinger) Ring(ctx context.Context, phone string) error {
	if r.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Outcome is how a journaled call ended.
type Outcome string

const (
	OutcomeReviewed   Outcome = "reviewed"
	OutcomeSaved      Outcome = "saved"
	OutcomeSaveFailed Outcome = "save_failed"
	OutcomeHungUp     Outcome = "hung_up"
)

// CallRecord is what the controller hands to a Journal.
type CallRecord struct {
	SessionID   string
	Phone       string
	LanguageKey string
	Language    string
	Stage       Stage
	Answers     []Answer
	Profile     backend.Profile
	WorkerID    string
	Outcome     Outcome
	StartedAt   time.Time
	EndedAt     time.Time
}

// Journal persists call outcomes. Record runs off the controller's path.
type Journal interface {
	Record(ctx context.Context, rec CallRecord) error
}

var _ Backend = (*backend.Client)(nil)
