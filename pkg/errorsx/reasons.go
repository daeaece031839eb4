package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonInvalidPhone    ReasonCode = "invalid_phone"
	ReasonEmptyAnswer     ReasonCode = "empty_answer"
	ReasonUnknownLanguage ReasonCode = "unknown_language"
	ReasonWrongStage      ReasonCode = "wrong_stage"
	ReasonBusy            ReasonCode = "busy"

	ReasonQuestionsFetch ReasonCode = "questions_fetch"
	ReasonExtract        ReasonCode = "extract"
	ReasonSave           ReasonCode = "save"
	ReasonOTPGenerate    ReasonCode = "otp_generate"
	ReasonOTPVerify      ReasonCode = "otp_verify"
	ReasonBackendStatus  ReasonCode = "backend_status"

	ReasonTTSSynthesize  ReasonCode = "tts_synthesize"
	ReasonTTSDecode      ReasonCode = "tts_decode"
	ReasonTTSPlayback    ReasonCode = "tts_playback"
	ReasonTTSTimeout     ReasonCode = "tts_timeout"
	ReasonTTSRateLimit   ReasonCode = "tts_rate_limit"
	ReasonTTSCircuitOpen ReasonCode = "tts_circuit_open"

	ReasonCaptureUnsupported ReasonCode = "capture_unsupported"
	ReasonCaptureFailed      ReasonCode = "capture_failed"
	ReasonTranslate          ReasonCode = "translate"

	ReasonRinger ReasonCode = "ringer"
)
