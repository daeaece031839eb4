package backend

import (
	"fmt"
	"strconv"
	"strings"
)

// Language is one entry of the IVR language menu as served by the backend.
type Language struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Question is a single interview question in the selected language.
type Question struct {
	Key  string `json:"key"`
	Text string `json:"question"`
}

type QuestionsRequest struct {
	Phone       string `json:"phone"`
	LanguageKey string `json:"language_key"`
}

type QuestionsResponse struct {
	Language  string     `json:"language,omitempty"`
	Greeting  string     `json:"greeting,omitempty"`
	Questions []Question `json:"questions"`
}

type TTSRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type TranslateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
}

type TranslateResponse struct {
	Translated string `json:"translated"`
	Original   string `json:"original,omitempty"`
}

type GenerateOTPRequest struct {
	Phone        string `json:"phone"`
	AadhaarLast4 string `json:"aadhaar_last4"`
}

type GenerateOTPResponse struct {
	Success bool   `json:"success"`
	DemoOTP string `json:"demo_otp"`
	Message string `json:"message,omitempty"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type VerifyOTPResponse struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message,omitempty"`
}

type ExtractRequest struct {
	Phone    string            `json:"phone"`
	Language string            `json:"language"`
	Answers  map[string]string `json:"answers"`
}

type ExtractResponse struct {
	Success    bool    `json:"success"`
	Language   string  `json:"language,omitempty"`
	Transcript string  `json:"transcript,omitempty"`
	Profile    Profile `json:"profile"`
}

type SaveResponse struct {
	Success  bool   `json:"success"`
	WorkerID string `json:"worker_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// DefaultVoiceFilename is used when a VoiceAnswer names no file.
const DefaultVoiceFilename = "recording.wav"

// VoiceAnswer is one recorded answer. Language is the display name
// ("Tamil"), not the locale. The backend picks its decoder from the
// Filename suffix.
type VoiceAnswer struct {
	Phone       string
	Language    string
	QuestionKey string
	Filename    string
	Audio       []byte
}

type VoiceAnswerResponse struct {
	QuestionKey string `json:"question_key"`
	Transcript  string `json:"transcript"`
}

// Profile is the extracted worker profile. It round-trips through save as an
// opaque map; the accessors read the fields the review screen shows.
type Profile map[string]any

// Field renders a scalar profile value as text.
func (p Profile) Field(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (p Profile) Name() string { return p.Field("name") }
func (p Profile) SkillType() string { return p.Field("skill_type") }
func (p Profile) ExperienceYears() string { return p.Field("experience_years") }
func (p Profile) DailyRate() string { return p.Field("daily_rate") }
func (p Profile) LocationHint() string { return p.Field("location_hint") }
func (p Profile) Bio() string { return p.Field("bio_english") }

// Specializations returns the specializations list, accepting either a JSON
// array or a comma separated string.
func (p Profile) Specializations() []string {
	switch v := p["specializations"].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if str := strings.TrimSpace(fmt.Sprint(s)); str != "" {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return v
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
