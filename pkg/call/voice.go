package call

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/skillcall/pkg/adapters/stt"
	"github.com/harunnryd/skillcall/pkg/backend"
	"github.com/harunnryd/skillcall/pkg/errorsx"
	"github.com/harunnryd/skillcall/pkg/resilience"
)

// startTurnLocked begins the voice turn for the current question.
func (c *Controller) startTurnLocked() {
	c.turnSeq++
	c.turn = voiceTurn{id: c.turnSeq}
	q := c.questions[c.current]
	c.emitLocked(Event{Kind: EventQuestionStarted, QuestionKey: q.Key, Text: q.Text})
	c.speakLocked()
}

// setVoiceLocked moves the voice turn to a new stage and invalidates every
// completion started for the previous one.
func (c *Controller) setVoiceLocked(to VoiceStage) error {
	from := c.turn.stage
	if from != VoiceIdle && !voiceTransitionValid(from, to) {
		return &InvalidTransitionError{From: from.String(), To: to.String()}
	}
	c.turn.stage = to
	c.epoch++
	c.log.Debug("voice_stage_changed", slog.String("session_id", c.session.ID), slog.String("from", from.String()), slog.String("to", to.String()))
	c.emitLocked(Event{Kind: EventVoiceStageChanged, From: from.String(), To: to.String(), QuestionKey: c.questions[c.current].Key})
	return nil
}

// teardownMediaLocked releases the active playback and capture. The handles
// are stopped after mu is released, before the caller returns.
func (c *Controller) teardownMediaLocked() {
	pb, capture := c.playback, c.capture
	c.playback, c.capture = nil, nil
	c.stopTimerLocked(&c.safety)
	if pb == nil && capture == nil {
		return
	}
	c.after = append(c.after, func() {
		c.mediaMu.Lock()
		defer c.mediaMu.Unlock()
		if pb != nil {
			pb.Stop()
		}
		if capture != nil {
			capture.Abort()
		}
	})
}

func (c *Controller) speakLocked() {
	c.teardownMediaLocked()
	c.turn.resolved = false
	c.turn.spoken, c.turn.edit, c.turn.translating = "", "", false
	if err := c.setVoiceLocked(VoiceSpeaking); err != nil {
		return
	}
	tok := c.tokenLocked()
	text := c.questions[c.current].Text
	language := c.session.Language.Name
	c.safety = time.AfterFunc(c.timing.SafetyTimeout, func() {
		c.speakResolved(tok, "safety_timeout", errorsx.New(errorsx.ReasonTTSTimeout))
	})
	ctx := c.ctx
	go c.speak(ctx, tok, text, language)
}

func (c *Controller) speak(ctx context.Context, tok token, text, language string) {
	if c.breaker != nil && !c.breaker.Allow() {
		c.speakResolved(tok, "circuit_open", errorsx.New(errorsx.ReasonTTSCircuitOpen))
		return
	}
	audio, err := c.synth.Synthesize(ctx, text, language)
	if c.breaker != nil {
		if err != nil {
			c.breaker.OnError(err)
		} else {
			c.breaker.OnSuccess()
		}
	}
	if err != nil {
		reason := errorsx.ReasonTTSSynthesize
		if resilience.IsRateLimit(err) {
			reason = errorsx.ReasonTTSRateLimit
		}
		c.speakResolved(tok, "synthesize_error", errorsx.Wrap(err, reason))
		return
	}

	c.mediaMu.Lock()
	if !c.stillValid(tok) {
		c.mediaMu.Unlock()
		return
	}
	pb, err := c.player.Play(ctx, audio)
	if err != nil {
		c.mediaMu.Unlock()
		c.speakResolved(tok, "play_rejected", errorsx.Wrap(err, errorsx.ReasonTTSPlayback))
		return
	}
	c.mu.Lock()
	if !c.validLocked(tok) || c.turn.resolved {
		c.mu.Unlock()
		pb.Stop()
		c.mediaMu.Unlock()
		return
	}
	c.playback = pb
	c.mu.Unlock()
	c.mediaMu.Unlock()

	select {
	case <-pb.Done():
		if err := pb.Err(); err != nil {
			c.speakResolved(tok, "playback_error", errorsx.Wrap(err, errorsx.ReasonTTSPlayback))
			return
		}
		c.speakResolved(tok, "playback_ended", nil)
	case <-ctx.Done():
	}
}

func (c *Controller) valid(tok token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked(tok)
}

// stillValid also rejects a speaking turn that has already been resolved.
func (c *Controller) stillValid(tok token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked(tok) && !c.turn.resolved
}

// speakResolved ends the speaking stage. Only the first caller for a turn
// has an effect.
func (c *Controller) speakResolved(tok token, reason string, err error) {
	c.mu.Lock()
	defer c.unlock()
	if !c.validLocked(tok) || c.turn.stage != VoiceSpeaking || c.turn.resolved {
		return
	}
	c.turn.resolved = true
	if err != nil {
		c.log.Warn("tts_fallback",
			slog.String("session_id", c.session.ID),
			slog.String("reason", reason),
			slog.String("error_reason", string(errorsx.Reason(err))),
			slog.String("error", err.Error()),
		)
	}
	c.listenLocked()
}

// Skip stops the question audio and starts listening.
func (c *Controller) Skip() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireVoiceLocked(VoiceSpeaking); err != nil {
		return err
	}
	c.turn.resolved = true
	c.listenLocked()
	return nil
}

// Replay speaks the current question again while listening.
func (c *Controller) Replay() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireVoiceLocked(VoiceListening); err != nil {
		return err
	}
	c.speakLocked()
	return nil
}

func (c *Controller) listenLocked() {
	c.teardownMediaLocked()
	c.turn.spoken, c.turn.edit, c.turn.translating = "", "", false
	if err := c.setVoiceLocked(VoiceListening); err != nil {
		return
	}
	tok := c.tokenLocked()
	ctx := c.ctx
	locale := c.session.Language.Locale
	if locale == "" {
		locale = DefaultLocale
	}
	req := stt.Request{
		SessionID:   c.session.ID,
		Phone:       c.session.Phone,
		Locale:      locale,
		Language:    c.session.Language.Name,
		LanguageKey: c.session.Language.Key,
		QuestionKey: c.questions[c.current].Key,
	}
	go c.listen(ctx, tok, req)
}

func (c *Controller) listen(ctx context.Context, tok token, req stt.Request) {
	capability, err := c.rec.Check(ctx)
	switch {
	case capability == stt.Unsupported:
		c.captureFailed(tok, errorsx.New(errorsx.ReasonCaptureUnsupported))
		return
	case capability == stt.Errored || err != nil:
		if err == nil {
			err = errors.New("capability check errored")
		}
		c.captureFailed(tok, errorsx.Wrap(err, errorsx.ReasonCaptureFailed))
		return
	}

	c.mediaMu.Lock()
	if !c.valid(tok) {
		c.mediaMu.Unlock()
		return
	}
	capture, err := c.rec.Listen(ctx, req)
	if err != nil {
		c.mediaMu.Unlock()
		c.captureFailed(tok, errorsx.Wrap(err, errorsx.ReasonCaptureFailed))
		return
	}
	c.mu.Lock()
	if !c.validLocked(tok) {
		c.mu.Unlock()
		capture.Abort()
		c.mediaMu.Unlock()
		return
	}
	c.capture = capture
	c.mu.Unlock()
	c.mediaMu.Unlock()

	text, err := capture.Result()
	c.captureDone(tok, capture, text, err)
}

func (c *Controller) captureFailed(tok token, err error) {
	c.mu.Lock()
	defer c.unlock()
	if !c.validLocked(tok) || c.turn.stage != VoiceListening {
		return
	}
	c.log.Info("capture_fallback_typing", slog.String("session_id", c.session.ID), slog.String("reason", string(errorsx.Reason(err))), slog.String("error", err.Error()))
	c.capture = nil
	_ = c.setVoiceLocked(VoiceTyping)
}

func (c *Controller) captureDone(tok token, capture stt.Capture, text string, err error) {
	c.mu.Lock()
	defer c.unlock()
	if !c.validLocked(tok) || c.turn.stage != VoiceListening || c.capture != capture {
		return
	}
	c.capture = nil
	if err != nil {
		if errors.Is(err, stt.ErrAborted) {
			return
		}
		c.log.Info("capture_fallback_typing", slog.String("session_id", c.session.ID), slog.String("error", err.Error()))
		_ = c.setVoiceLocked(VoiceTyping)
		return
	}
	text = strings.TrimSpace(text)
	if err := c.setVoiceLocked(VoiceConfirming); err != nil {
		return
	}
	if text == "" {
		c.emitLocked(Event{Kind: EventTranscriptUpdated})
		return
	}
	c.turn.spoken = translatingText
	c.turn.edit = text
	c.turn.translating = true
	c.emitLocked(Event{Kind: EventTranscriptUpdated, Text: translatingText})

	ctxTok := c.tokenLocked()
	ctx := c.ctx
	source := c.session.Language.Name
	if source == "" {
		source = "auto"
	}
	go func() {
		resp, err := c.backend.Translate(ctx, text, source)
		c.translateDone(ctxTok, text, resp, err)
	}()
}

func (c *Controller) translateDone(tok token, raw string, resp backend.TranslateResponse, err error) {
	c.mu.Lock()
	defer c.unlock()
	if !c.validLocked(tok) || c.turn.stage != VoiceConfirming {
		return
	}
	c.turn.translating = false
	if err != nil {
		c.log.Warn("translate_failed", slog.String("session_id", c.session.ID), slog.String("error", err.Error()))
		c.turn.spoken, c.turn.edit = raw, raw
		_ = c.setVoiceLocked(VoiceTyping)
		c.noticeLocked(NoticeError, noticeTranslate)
		return
	}
	english := resp.Translated
	if strings.TrimSpace(english) == "" {
		english = raw
	}
	c.turn.spoken, c.turn.edit = english, english
	c.emitLocked(Event{Kind: EventTranscriptUpdated, Text: english})
}

// TypeInstead abandons listening for the typing box.
func (c *Controller) TypeInstead() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireVoiceLocked(VoiceListening); err != nil {
		return err
	}
	c.teardownMediaLocked()
	return c.setVoiceLocked(VoiceTyping)
}

// ReRecord discards the transcript and listens again.
func (c *Controller) ReRecord() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireVoiceLocked(VoiceConfirming); err != nil {
		return err
	}
	c.listenLocked()
	return nil
}

// Edit moves the transcript into the typing box.
func (c *Controller) Edit() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireVoiceLocked(VoiceConfirming); err != nil {
		return err
	}
	if c.turn.translating {
		return ErrBusy
	}
	c.turn.edit = c.turn.spoken
	return c.setVoiceLocked(VoiceTyping)
}

// SwitchToVoice leaves the typing box and listens again.
func (c *Controller) SwitchToVoice() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireVoiceLocked(VoiceTyping); err != nil {
		return err
	}
	c.listenLocked()
	return nil
}

// SetEditText replaces the typing buffer.
func (c *Controller) SetEditText(text string) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireVoiceLocked(VoiceTyping); err != nil {
		return err
	}
	c.turn.edit = text
	return nil
}

// Confirm submits the transcript as shown.
func (c *Controller) Confirm() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireVoiceLocked(VoiceConfirming); err != nil {
		return err
	}
	if c.turn.translating {
		return ErrBusy
	}
	return c.submitLocked(c.turn.spoken)
}

// Submit submits the typing buffer.
func (c *Controller) Submit() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireVoiceLocked(VoiceTyping); err != nil {
		return err
	}
	return c.submitLocked(c.turn.edit)
}

// SubmitTurn submits the typing buffer only if turnID is still the active
// turn. A repeated submit for a turn already answered is a no-op.
func (c *Controller) SubmitTurn(turnID uint64) error {
	c.mu.Lock()
	defer c.unlock()
	if c.stage != StageInterview || c.turn.id != turnID {
		return nil
	}
	switch c.turn.stage {
	case VoiceTyping:
		return c.submitLocked(c.turn.edit)
	case VoiceConfirming:
		if c.turn.translating {
			return ErrBusy
		}
		return c.submitLocked(c.turn.spoken)
	}
	return ErrWrongStage
}

func (c *Controller) submitLocked(text string) error {
	answer := strings.TrimSpace(text)
	if answer == "" {
		c.noticeLocked(NoticeError, noticeEmptyAnswer)
		return ErrEmptyAnswer
	}
	q := c.questions[c.current]
	c.answers.Set(q.Key, answer)
	c.teardownMediaLocked()
	c.emitLocked(Event{Kind: EventAnswerSubmitted, QuestionKey: q.Key, Text: answer})

	switch q.Key {
	case KeyAadhaarLast4:
		c.generateOTPLocked(answer)
	case KeyAadhaarOTP:
		c.verifyOTPLocked(answer)
	}

	if c.current+1 < len(c.questions) {
		c.current++
		c.startTurnLocked()
		return nil
	}
	c.startReviewLocked()
	return nil
}

func (c *Controller) generateOTPLocked(last4 string) {
	gen, ctx, phone := c.gen, c.ctx, c.session.Phone
	go func() {
		resp, err := c.backend.GenerateOTP(ctx, phone, last4)
		c.mu.Lock()
		defer c.unlock()
		if c.closed || c.gen != gen {
			return
		}
		if err != nil {
			c.log.Warn("otp_generate_failed", slog.String("session_id", c.session.ID), slog.String("error", err.Error()))
			c.noticeLocked(NoticeWarning, noticeOTPOffline)
			return
		}
		c.noticeLocked(NoticeSuccess, "OTP sent to Aadhaar-registered mobile. Demo OTP: "+resp.DemoOTP)
	}()
}

func (c *Controller) verifyOTPLocked(otp string) {
	gen, ctx, phone := c.gen, c.ctx, c.session.Phone
	go func() {
		resp, err := c.backend.VerifyOTP(ctx, phone, otp)
		c.mu.Lock()
		defer c.unlock()
		if c.closed || c.gen != gen {
			return
		}
		res := &VerificationResult{Message: resp.Message}
		switch {
		case err != nil:
			res.Outcome, res.Err = OTPErrored, err
			c.log.Warn("otp_verify_failed", slog.String("session_id", c.session.ID), slog.String("error", err.Error()))
			c.noticeLocked(NoticeWarning, "Could not verify OTP — backend may be offline")
		case resp.Verified:
			res.Outcome = OTPVerified
			c.noticeLocked(NoticeSuccess, "OTP validated")
		default:
			res.Outcome = OTPRejected
			msg := "OTP did not match"
			if resp.Message != "" {
				msg = resp.Message
			}
			c.noticeLocked(NoticeError, msg)
		}
		c.verify = res
		c.emitLocked(Event{Kind: EventVerification, Verification: res})
	}()
}

func (c *Controller) requireVoiceLocked(stage VoiceStage) error {
	if err := c.requireLocked(StageInterview); err != nil {
		return err
	}
	if c.turn.stage != stage {
		return ErrWrongStage
	}
	return nil
}
