package call

import (
	"strings"
	"time"

	"github.com/harunnryd/skillcall/pkg/backend"
)

// Reserved question keys with side effects on submission.
const (
	KeyAadhaarLast4 = "aadhaar_last4"
	KeyAadhaarOTP   = "aadhaar_otp"
)

const phoneDigits = 10

// Session identifies one call from dial to hang-up.
type Session struct {
	ID        string
	Phone     string
	Language  Language
	StartedAt time.Time
}

type Question struct {
	Key  string
	Text string
}

type Answer struct {
	Key  string
	Text string
}

// AnswerSet maps question keys to answers, keeping first-insertion order.
type AnswerSet struct {
	order []string
	text  map[string]string
}

func NewAnswerSet() *AnswerSet {
	return &AnswerSet{text: make(map[string]string)}
}

// Set stores text under key. An existing key keeps its position.
func (a *AnswerSet) Set(key, text string) {
	if _, ok := a.text[key]; !ok {
		a.order = append(a.order, key)
	}
	a.text[key] = text
}

func (a *AnswerSet) Get(key string) (string, bool) {
	v, ok := a.text[key]
	return v, ok
}

func (a *AnswerSet) Len() int { return len(a.order) }

// List returns the answers in insertion order.
func (a *AnswerSet) List() []Answer {
	out := make([]Answer, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, Answer{Key: k, Text: a.text[k]})
	}
	return out
}

// Map returns a copy suitable for the extraction request.
func (a *AnswerSet) Map() map[string]string {
	out := make(map[string]string, len(a.text))
	for k, v := range a.text {
		out[k] = v
	}
	return out
}

// NormalizePhone strips non-digits and keeps at most ten digits.
func NormalizePhone(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			if b.Len() == phoneDigits {
				break
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FallbackProfile builds the minimal profile shown when extraction fails.
func FallbackProfile(answers *AnswerSet) backend.Profile {
	p := backend.Profile{}
	if v, ok := answers.Get("name"); ok {
		p["name"] = v
	}
	if v, ok := answers.Get("skill"); ok {
		p["skill_type"] = v
	}
	if v, ok := answers.Get("about"); ok {
		p["bio_english"] = v
	}
	return p
}
