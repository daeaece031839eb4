package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harunnryd/skillcall/pkg/errorsx"
	"github.com/harunnryd/skillcall/pkg/redact"
	"github.com/harunnryd/skillcall/pkg/resilience"
)

const defaultTimeout = 30 * time.Second

// StatusError is returned for any non-2xx response other than 429.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("backend status %d: %s", e.Code, body)
}

type Config struct {
	BaseURL   string
	APIPrefix string
	Token     string
	Timeout   time.Duration
	Retries   int
	Logger    *slog.Logger
}

// Client talks to the SkillSync ai-call API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	retry   resilience.RetryPolicy
	log     *slog.Logger
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	retry := resilience.NewRetryPolicy(cfg.Retries, 250*time.Millisecond)
	retry.Retryable = retryable
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + prefix,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		retry:   retry,
		log:     log.With(slog.String("component", "backend")),
	}
}

// WithHTTPClient swaps the underlying http.Client. Used by tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	var out struct {
		Languages []Language `json:"languages"`
	}
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/ai-call/languages", nil, &out)
	})
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonBackendStatus)
	}
	return out.Languages, nil
}

func (c *Client) Questions(ctx context.Context, phone, languageKey string) (QuestionsResponse, error) {
	var out QuestionsResponse
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		out = QuestionsResponse{}
		return c.doJSON(ctx, http.MethodPost, "/ai-call/questions", QuestionsRequest{Phone: phone, LanguageKey: languageKey}, &out)
	})
	if err != nil {
		return QuestionsResponse{}, errorsx.Wrap(err, errorsx.ReasonQuestionsFetch)
	}
	return out, nil
}

// TTS returns the MP3 bytes for text spoken in language.
func (c *Client) TTS(ctx context.Context, text, language string) ([]byte, error) {
	body, err := json.Marshal(TTSRequest{Text: text, Language: language})
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, "/ai-call/tts", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSSynthesize)
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSSynthesize)
	}
	return audio, nil
}

func (c *Client) Translate(ctx context.Context, text, sourceLanguage string) (TranslateResponse, error) {
	var out TranslateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/ai-call/translate", TranslateRequest{Text: text, SourceLanguage: sourceLanguage}, &out); err != nil {
		return TranslateResponse{}, errorsx.Wrap(err, errorsx.ReasonTranslate)
	}
	return out, nil
}

func (c *Client) GenerateOTP(ctx context.Context, phone, aadhaarLast4 string) (GenerateOTPResponse, error) {
	var out GenerateOTPResponse
	if err := c.doJSON(ctx, http.MethodPost, "/ai-call/generate-otp", GenerateOTPRequest{Phone: phone, AadhaarLast4: aadhaarLast4}, &out); err != nil {
		return GenerateOTPResponse{}, errorsx.Wrap(err, errorsx.ReasonOTPGenerate)
	}
	return out, nil
}

func (c *Client) VerifyOTP(ctx context.Context, phone, otp string) (VerifyOTPResponse, error) {
	var out VerifyOTPResponse
	if err := c.doJSON(ctx, http.MethodPost, "/ai-call/verify-otp", VerifyOTPRequest{Phone: phone, OTP: otp}, &out); err != nil {
		return VerifyOTPResponse{}, errorsx.Wrap(err, errorsx.ReasonOTPVerify)
	}
	return out, nil
}

func (c *Client) ExtractProfile(ctx context.Context, req ExtractRequest) (ExtractResponse, error) {
	var out ExtractResponse
	if err := c.doJSON(ctx, http.MethodPost, "/ai-call/extract-profile", req, &out); err != nil {
		return ExtractResponse{}, errorsx.Wrap(err, errorsx.ReasonExtract)
	}
	if out.Profile == nil {
		return ExtractResponse{}, errorsx.New(errorsx.ReasonExtract)
	}
	return out, nil
}

func (c *Client) SaveProfile(ctx context.Context, phone string, profile Profile) (SaveResponse, error) {
	var out SaveResponse
	path := "/ai-call/save-profile?phone=" + url.QueryEscape(phone)
	if err := c.doJSON(ctx, http.MethodPost, path, profile, &out); err != nil {
		return SaveResponse{}, errorsx.Wrap(err, errorsx.ReasonSave)
	}
	return out, nil
}

// TranscribeVoice uploads a recorded answer and returns the transcript.
func (c *Client) TranscribeVoice(ctx context.Context, in VoiceAnswer) (VoiceAnswerResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range [][2]string{{"phone", in.Phone}, {"language", in.Language}, {"question_key", in.QuestionKey}} {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return VoiceAnswerResponse{}, err
		}
	}
	name := in.Filename
	if name == "" {
		name = DefaultVoiceFilename
	}
	part, err := mw.CreateFormFile("audio", name)
	if err != nil {
		return VoiceAnswerResponse{}, err
	}
	if _, err := part.Write(in.Audio); err != nil {
		return VoiceAnswerResponse{}, err
	}
	if err := mw.Close(); err != nil {
		return VoiceAnswerResponse{}, err
	}
	resp, err := c.send(ctx, http.MethodPost, "/ai-call/voice-answer", mw.FormDataContentType(), &buf)
	if err != nil {
		return VoiceAnswerResponse{}, errorsx.Wrap(err, errorsx.ReasonCaptureFailed)
	}
	defer resp.Body.Close()
	var out VoiceAnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return VoiceAnswerResponse{}, errorsx.Wrap(fmt.Errorf("decode voice answer: %w", err), errorsx.ReasonCaptureFailed)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	resp, err := c.send(ctx, method, path, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// send performs the request and returns the response only for 2xx statuses.
func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json, audio/mpeg")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend_request_failed", slog.String("path", redact.Text(path)), slog.String("error", err.Error()))
		return nil, err
	}
	c.log.Debug("backend_request",
		slog.String("method", method),
		slog.String("path", redact.Text(path)),
		slog.Int("status", resp.StatusCode),
		slog.Int64("latency_ms", time.Since(start).Milliseconds()),
	)
	if resp.StatusCode == http.StatusTooManyRequests {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, resilience.RateLimitError{Provider: "skillsync", Message: string(b)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}

// retryable retries transport failures, rate limits and 5xx responses.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return true
}
