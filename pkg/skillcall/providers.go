package skillcall

import (
	"errors"
	"time"

	"github.com/harunnryd/skillcall/pkg/adapters/stt"
	"github.com/harunnryd/skillcall/pkg/adapters/tts"
	"github.com/harunnryd/skillcall/pkg/backend"
	"github.com/harunnryd/skillcall/pkg/call"
	"github.com/harunnryd/skillcall/pkg/configutil"
	"github.com/harunnryd/skillcall/pkg/logging"
	"github.com/harunnryd/skillcall/pkg/providers/audio"
	"github.com/harunnryd/skillcall/pkg/providers/deepgram"
	"github.com/harunnryd/skillcall/pkg/providers/elevenlabs"
	"github.com/harunnryd/skillcall/pkg/providers/mock"
	"github.com/harunnryd/skillcall/pkg/providers/twilio"
	"github.com/harunnryd/skillcall/pkg/providers/upload"
)

var errNoBackend = errors.New("backend client required")

// DefaultRegistry registers every built-in provider.
//
//	tts:     backend, elevenlabs, mock
//	player:  exec, clock, mock
//	capture: upload, deepgram, none, mock
//	ringer:  delay, twilio
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	r.RegisterSynthesizer("backend", newBackendSynthesizer)
	r.RegisterSynthesizer("elevenlabs", newElevenLabsSynthesizer)
	r.RegisterSynthesizer("mock", newMockSynthesizer)
	r.RegisterPlayer("exec", newExecPlayer)
	r.RegisterPlayer("clock", newClockPlayer)
	r.RegisterPlayer("mock", newMockPlayer)
	r.RegisterRecognizer("upload", newUploadRecognizer)
	r.RegisterRecognizer("deepgram", newDeepgramRecognizer)
	r.RegisterRecognizer("none", newNoRecognizer)
	r.RegisterRecognizer("mock", newMockRecognizer)
	r.RegisterRinger("delay", newDelayRinger)
	r.RegisterRinger("twilio", newTwilioRinger)
	return r
}

func newBackendSynthesizer(settings map[string]any, deps Deps) (tts.Synthesizer, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{}); err != nil {
		return nil, err
	}
	if deps.Backend == nil {
		return nil, errNoBackend
	}
	return backend.NewSynthesizer(deps.Backend), nil
}

func newElevenLabsSynthesizer(settings map[string]any, deps Deps) (tts.Synthesizer, error) {
	var s struct {
		APIKey       string `mapstructure:"api_key"`
		VoiceID      string `mapstructure:"voice_id"`
		ModelID      string `mapstructure:"model_id"`
		OutputFormat string `mapstructure:"output_format"`
		BaseURL      string `mapstructure:"base_url"`
	}
	schema := configutil.Schema{
		Required: []string{"api_key", "voice_id"},
		Optional: []string{"model_id", "output_format", "base_url"},
	}
	if err := configutil.DecodeSettings(settings, schema, &s); err != nil {
		return nil, err
	}
	return elevenlabs.New(elevenlabs.Config{
		APIKey:       s.APIKey,
		VoiceID:      s.VoiceID,
		ModelID:      s.ModelID,
		OutputFormat: s.OutputFormat,
		BaseURL:      s.BaseURL,
		Logger:       deps.Logger,
	}), nil
}

func newMockSynthesizer(settings map[string]any, deps Deps) (tts.Synthesizer, error) {
	var s struct {
		SilenceMS int `mapstructure:"silence_ms"`
	}
	if err := configutil.DecodeSettings(settings, configutil.Schema{Optional: []string{"silence_ms"}}, &s); err != nil {
		return nil, err
	}
	m := mock.NewSynthesizer()
	if s.SilenceMS > 0 {
		m.Audio = audio.Silence(time.Duration(s.SilenceMS) * time.Millisecond)
	}
	return m, nil
}

func newExecPlayer(settings map[string]any, deps Deps) (tts.Player, error) {
	var s struct {
		Command string   `mapstructure:"command"`
		Args    []string `mapstructure:"args"`
	}
	if err := configutil.DecodeSettings(settings, configutil.Schema{Optional: []string{"command", "args"}}, &s); err != nil {
		return nil, err
	}
	return audio.NewExecPlayer(s.Command, s.Args, deps.Logger), nil
}

func newClockPlayer(settings map[string]any, deps Deps) (tts.Player, error) {
	var s struct {
		Speed float64 `mapstructure:"speed"`
	}
	if err := configutil.DecodeSettings(settings, configutil.Schema{Optional: []string{"speed"}}, &s); err != nil {
		return nil, err
	}
	if s.Speed < 0 {
		return nil, errors.New("speed must not be negative")
	}
	return audio.NewClockPlayer(s.Speed, deps.Logger), nil
}

func newMockPlayer(settings map[string]any, deps Deps) (tts.Player, error) {
	var s struct {
		DelayMS int `mapstructure:"delay_ms"`
	}
	if err := configutil.DecodeSettings(settings, configutil.Schema{Optional: []string{"delay_ms"}}, &s); err != nil {
		return nil, err
	}
	return mock.NewPlayer(configutil.Millis(s.DelayMS, time.Second)), nil
}

func newUploadRecognizer(settings map[string]any, deps Deps) (stt.Recognizer, error) {
	var s struct {
		Clip            time.Duration `mapstructure:"clip"`
		RecorderCommand string        `mapstructure:"recorder_command"`
		RecorderArgs    []string      `mapstructure:"recorder_args"`
	}
	schema := configutil.Schema{Optional: []string{"clip", "recorder_command", "recorder_args"}}
	if err := configutil.DecodeSettings(settings, schema, &s); err != nil {
		return nil, err
	}
	if deps.Backend == nil {
		return nil, errNoBackend
	}
	return upload.New(upload.Config{
		Source:      audio.NewClipRecorder(s.RecorderCommand, s.RecorderArgs),
		Transcriber: deps.Backend,
		Clip:        s.Clip,
		Logger:      deps.Logger,
	}), nil
}

func newDeepgramRecognizer(settings map[string]any, deps Deps) (stt.Recognizer, error) {
	var s struct {
		APIKey          string        `mapstructure:"api_key"`
		Model           string        `mapstructure:"model"`
		Encoding        string        `mapstructure:"encoding"`
		SampleRate      int           `mapstructure:"sample_rate"`
		Channels        int           `mapstructure:"channels"`
		UtteranceEndMS  int           `mapstructure:"utterance_end_ms"`
		MaxDuration     time.Duration `mapstructure:"max_duration"`
		RecorderCommand string        `mapstructure:"recorder_command"`
		RecorderArgs    []string      `mapstructure:"recorder_args"`
	}
	schema := configutil.Schema{
		Required: []string{"api_key"},
		Optional: []string{"model", "encoding", "sample_rate", "channels", "utterance_end_ms", "max_duration", "recorder_command", "recorder_args"},
	}
	if err := configutil.DecodeSettings(settings, schema, &s); err != nil {
		return nil, err
	}
	return deepgram.New(deepgram.Config{
		APIKey:         s.APIKey,
		Model:          s.Model,
		Encoding:       s.Encoding,
		SampleRate:     s.SampleRate,
		Channels:       s.Channels,
		UtteranceEndMS: s.UtteranceEndMS,
		MaxDuration:    s.MaxDuration,
		Source:         audio.NewRecorder(s.RecorderCommand, s.RecorderArgs),
		Logger:         deps.Logger,
	}), nil
}

func newNoRecognizer(settings map[string]any, deps Deps) (stt.Recognizer, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{}); err != nil {
		return nil, err
	}
	return stt.Unavailable{}, nil
}

func newMockRecognizer(settings map[string]any, deps Deps) (stt.Recognizer, error) {
	var s struct {
		Transcripts []string `mapstructure:"transcripts"`
		DelayMS     int      `mapstructure:"delay_ms"`
	}
	if err := configutil.DecodeSettings(settings, configutil.Schema{Optional: []string{"transcripts", "delay_ms"}}, &s); err != nil {
		return nil, err
	}
	m := mock.NewRecognizer(s.Transcripts...)
	m.Delay = configutil.Millis(s.DelayMS, time.Second)
	return m, nil
}

func newDelayRinger(settings map[string]any, deps Deps) (call.Ringer, error) {
	var s struct {
		DelayMS int `mapstructure:"delay_ms"`
	}
	if err := configutil.DecodeSettings(settings, configutil.Schema{Optional: []string{"delay_ms"}}, &s); err != nil {
		return nil, err
	}
	return call.DelayRinger{Delay: configutil.Millis(s.DelayMS, deps.Config.Call.RingDelay())}, nil
}

func newTwilioRinger(settings map[string]any, deps Deps) (call.Ringer, error) {
	var s struct {
		AccountSID  string        `mapstructure:"account_sid"`
		AuthToken   string        `mapstructure:"auth_token"`
		From        string        `mapstructure:"from"`
		CountryCode string        `mapstructure:"country_code"`
		URL         string        `mapstructure:"url"`
		TwiML       string        `mapstructure:"twiml"`
		Hold        time.Duration `mapstructure:"hold"`
	}
	schema := configutil.Schema{
		Required: []string{"account_sid", "auth_token", "from"},
		Optional: []string{"country_code", "url", "twiml", "hold"},
	}
	if err := configutil.DecodeSettings(settings, schema, &s); err != nil {
		return nil, err
	}
	hold := s.Hold
	if hold <= 0 {
		hold = deps.Config.Call.RingDelay()
	}
	return twilio.NewRinger(twilio.Config{
		AccountSID:  s.AccountSID,
		AuthToken:   s.AuthToken,
		From:        s.From,
		CountryCode: s.CountryCode,
		URL:         s.URL,
		TwiML:       s.TwiML,
		Hold:        hold,
		Logger:      logging.NewComponentLogger(deps.Logger, "ringer"),
	}), nil
}
