package call

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/skillcall/pkg/adapters/stt"
	"github.com/harunnryd/skillcall/pkg/adapters/tts"
	"github.com/harunnryd/skillcall/pkg/backend"
	"github.com/harunnryd/skillcall/pkg/errorsx"
	"github.com/harunnryd/skillcall/pkg/metrics"
	"github.com/harunnryd/skillcall/pkg/redact"
	"github.com/harunnryd/skillcall/pkg/resilience"
)

const (
	noticeEmptyAnswer  = "Answer cannot be empty"
	noticeInvalidPhone = "Enter a valid 10-digit number"
	noticeFetchFailed  = "Backend error — could not load questions, please try again"
	noticeTranslate    = "Translation failed — please type your answer in English"
	noticeOTPOffline   = "Could not generate OTP — backend may be offline"
	noticeSaved        = "Profile saved! Worker is now discoverable by customers."
	noticeSaveFailed   = "Save failed"
	translatingText    = "Translating…"

	// SearchPath is where a saved call navigates to.
	SearchPath = "/search"
)

// Timing holds the controller's timer durations.
type Timing struct {
	IVRTick       time.Duration
	SafetyTimeout time.Duration
	SaveRedirect  time.Duration
	ElapsedTick   time.Duration
}

func (t Timing) withDefaults() Timing {
	if t.IVRTick <= 0 {
		t.IVRTick = 180 * time.Millisecond
	}
	if t.SafetyTimeout <= 0 {
		t.SafetyTimeout = 8 * time.Second
	}
	if t.SaveRedirect <= 0 {
		t.SaveRedirect = 1500 * time.Millisecond
	}
	if t.ElapsedTick <= 0 {
		t.ElapsedTick = time.Second
	}
	return t
}

// Options wires a Controller to its collaborators. Backend, Synthesizer,
// Player and Recognizer are required.
type Options struct {
	Timing      Timing
	Backend     Backend
	Synthesizer tts.Synthesizer
	Player      tts.Player
	Recognizer  stt.Recognizer
	Ringer      Ringer
	Journal     Journal
	Observer    metrics.Observer
	// Breaker skips synthesis while the TTS provider keeps failing.
	Breaker *resilience.CircuitBreaker
	Logger  *slog.Logger
	NewID   func() string
}

// token identifies the async work started for one voice-stage entry of one
// session. Completions carrying a stale token are dropped.
type token struct {
	gen   uint64
	epoch uint64
}

type voiceTurn struct {
	id          uint64
	stage       VoiceStage
	spoken      string
	edit        string
	translating bool
	// resolved guards the speaking race between playback end, playback
	// error and the safety timeout.
	resolved bool
}

// Controller drives one onboarding call at a time. All state is guarded by
// mu; collaborators and listeners are only called with mu released.
type Controller struct {
	mu      sync.Mutex
	mediaMu sync.Mutex
	// writes tracks journal records still in flight.
	writes sync.WaitGroup

	timing  Timing
	backend Backend
	synth   tts.Synthesizer
	player  tts.Player
	rec     stt.Recognizer
	ringer  Ringer
	journal Journal
	obs     metrics.Observer
	breaker *resilience.CircuitBreaker
	log     *slog.Logger
	newID   func() string

	listeners []Listener
	closed    bool

	gen       uint64
	epoch     uint64
	ctx       context.Context
	cancel    context.CancelFunc
	stopClock context.CancelFunc

	phone       string
	session     Session
	stage       Stage
	ivrLines    []string
	keysVisible bool
	fetching    bool
	greeting    string
	questions   []Question
	current     int
	answers     *AnswerSet
	turn        voiceTurn
	turnSeq     uint64
	playback    tts.Playback
	capture     stt.Capture
	safety      *time.Timer
	navTimer    *time.Timer
	profile     backend.Profile
	saving      bool
	saved       bool
	elapsed     time.Duration
	lastNotice  *Notice
	noticeSeq   uint64
	verify      *VerificationResult

	pending []Event
	after   []func()
}

func New(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	ringer := opts.Ringer
	if ringer == nil {
		ringer = DelayRinger{Delay: 3 * time.Second}
	}
	rec := opts.Recognizer
	if rec == nil {
		rec = stt.Unavailable{}
	}
	obs := opts.Observer
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	c := &Controller{
		timing:  opts.Timing.withDefaults(),
		backend: opts.Backend,
		synth:   opts.Synthesizer,
		player:  opts.Player,
		rec:     rec,
		ringer:  ringer,
		journal: opts.Journal,
		obs:     obs,
		breaker: opts.Breaker,
		log:     log.With(slog.String("component", "call")),
		newID:   newID,
		answers: NewAnswerSet(),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// AddListener registers a listener for controller events.
func (c *Controller) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// unlock releases mu, then runs queued teardown work and delivers queued
// events. Every exported method that mutates state defers it.
func (c *Controller) unlock() {
	events := c.pending
	after := c.after
	listeners := append([]Listener(nil), c.listeners...)
	c.pending = nil
	c.after = nil
	c.mu.Unlock()

	for _, fn := range after {
		fn()
	}
	for _, ev := range events {
		c.obs.RecordEvent(toMetric(ev))
		for _, l := range listeners {
			l.OnCallEvent(ev)
		}
	}
}

func (c *Controller) emitLocked(ev Event) {
	ev.Time = time.Now()
	ev.SessionID = c.session.ID
	c.pending = append(c.pending, ev)
}

func (c *Controller) noticeLocked(level NoticeLevel, text string) {
	c.noticeSeq++
	n := &Notice{Level: level, Text: text, Seq: c.noticeSeq}
	c.lastNotice = n
	c.emitLocked(Event{Kind: EventNotice, Notice: n, Text: text})
}

func (c *Controller) tokenLocked() token {
	return token{gen: c.gen, epoch: c.epoch}
}

func (c *Controller) validLocked(tok token) bool {
	return !c.closed && tok.gen == c.gen && tok.epoch == c.epoch
}

func (c *Controller) setStageLocked(to Stage) error {
	from := c.stage
	if !stageTransitionValid(from, to) {
		return &InvalidTransitionError{From: from.String(), To: to.String()}
	}
	c.stage = to
	c.epoch++
	c.log.Info("call_stage_changed", slog.String("session_id", c.session.ID), slog.String("from", from.String()), slog.String("to", to.String()))
	c.emitLocked(Event{Kind: EventStageChanged, From: from.String(), To: to.String()})
	switch {
	case to.active() && !from.active():
		c.startClockLocked()
	case !to.active() && from.active():
		c.stopClockLocked()
	}
	return nil
}

// startClockLocked runs the elapsed-call ticker until the call leaves the
// active stages or the session resets.
func (c *Controller) startClockLocked() {
	c.elapsed = 0
	ctx, cancel := context.WithCancel(c.ctx)
	c.stopClock = cancel
	gen := c.gen
	tick := c.timing.ElapsedTick
	go func() {
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.mu.Lock()
				if c.gen != gen || !c.stage.active() || ctx.Err() != nil {
					c.mu.Unlock()
					return
				}
				c.elapsed += tick
				c.emitLocked(Event{Kind: EventElapsed, Elapsed: c.elapsed})
				c.unlock()
			}
		}
	}()
}

func (c *Controller) stopClockLocked() {
	if c.stopClock != nil {
		c.stopClock()
		c.stopClock = nil
	}
	c.elapsed = 0
}

// SetPhone replaces the dialed number with the normalized digits of input.
func (c *Controller) SetPhone(input string) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireLocked(StageDial); err != nil {
		return err
	}
	c.phone = NormalizePhone(input)
	c.emitLocked(Event{Kind: EventPhoneChanged, Text: c.phone})
	return nil
}

// PressDigit appends a keypad digit. Star and hash keys are ignored.
func (c *Controller) PressDigit(d rune) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireLocked(StageDial); err != nil {
		return err
	}
	if d < '0' || d > '9' || len(c.phone) >= phoneDigits {
		return nil
	}
	c.phone += string(d)
	c.emitLocked(Event{Kind: EventPhoneChanged, Text: c.phone})
	return nil
}

// DeleteDigit removes the last dialed digit.
func (c *Controller) DeleteDigit() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireLocked(StageDial); err != nil {
		return err
	}
	if c.phone != "" {
		c.phone = c.phone[:len(c.phone)-1]
		c.emitLocked(Event{Kind: EventPhoneChanged, Text: c.phone})
	}
	return nil
}

// CanDial reports whether exactly ten digits have been entered.
func (c *Controller) CanDial() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage == StageDial && len(c.phone) == phoneDigits
}

// Dial starts a new session and rings the number.
func (c *Controller) Dial() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireLocked(StageDial); err != nil {
		return err
	}
	if len(c.phone) != phoneDigits {
		c.noticeLocked(NoticeError, noticeInvalidPhone)
		return ErrInvalidPhone
	}
	c.session = Session{ID: c.newID(), Phone: c.phone, StartedAt: time.Now()}
	if err := c.setStageLocked(StageRinging); err != nil {
		return err
	}
	tok := c.tokenLocked()
	ctx, phone := c.ctx, c.phone
	go func() {
		err := c.ringer.Ring(ctx, phone)
		c.ringDone(tok, err)
	}()
	return nil
}

func (c *Controller) ringDone(tok token, err error) {
	c.mu.Lock()
	defer c.unlock()
	if !c.validLocked(tok) || c.stage != StageRinging {
		return
	}
	if err != nil {
		c.log.Warn("ringer_failed", slog.String("session_id", c.session.ID), slog.String("reason", string(errorsx.ReasonRinger)), slog.String("error", err.Error()))
	}
	if err := c.setStageLocked(StageIVR); err != nil {
		return
	}
	c.startRevealLocked()
}

// startRevealLocked reveals the IVR menu one line per tick, then shows the
// language keys.
func (c *Controller) startRevealLocked() {
	c.ivrLines = nil
	c.keysVisible = false
	tok := c.tokenLocked()
	ctx := c.ctx
	tick := c.timing.IVRTick
	go func() {
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if !c.revealNext(tok) {
					return
				}
			}
		}
	}()
}

func (c *Controller) revealNext(tok token) bool {
	c.mu.Lock()
	defer c.unlock()
	if !c.validLocked(tok) || c.stage != StageIVR {
		return false
	}
	if len(c.ivrLines) < len(IVRLines) {
		c.ivrLines = append(c.ivrLines, IVRLines[len(c.ivrLines)])
		c.emitLocked(Event{Kind: EventIVRUpdated})
		return true
	}
	c.keysVisible = true
	c.emitLocked(Event{Kind: EventIVRUpdated, Text: "keys_visible"})
	return false
}

// SelectLanguage picks a language from the IVR menu and fetches the
// interview questions for it.
func (c *Controller) SelectLanguage(key string) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireLocked(StageIVR); err != nil {
		return err
	}
	if !c.keysVisible || c.fetching {
		return ErrBusy
	}
	lang, ok := LookupLanguage(strings.TrimSpace(key))
	if !ok {
		return ErrUnknownLanguage
	}
	c.session.Language = lang
	c.keysVisible = false
	c.fetching = true
	c.ivrLines = selectedLines(lang)
	c.emitLocked(Event{Kind: EventIVRUpdated, Text: lang.Name})

	tok := c.tokenLocked()
	ctx, phone := c.ctx, c.session.Phone
	go func() {
		resp, err := c.backend.Questions(ctx, phone, lang.Key)
		c.questionsDone(tok, resp, err)
	}()
	return nil
}

func (c *Controller) questionsDone(tok token, resp backend.QuestionsResponse, err error) {
	c.mu.Lock()
	defer c.unlock()
	if !c.validLocked(tok) || c.stage != StageIVR {
		return
	}
	c.fetching = false
	if err == nil && len(resp.Questions) == 0 {
		err = errorsx.Newf(errorsx.ReasonQuestionsFetch, "no questions for language %s", c.session.Language.Key)
	}
	if err != nil {
		c.log.Warn("questions_fetch_failed", slog.String("session_id", c.session.ID), slog.String("error", err.Error()))
		c.noticeLocked(NoticeError, noticeFetchFailed)
		c.ivrLines = append([]string(nil), IVRLines...)
		c.keysVisible = true
		c.emitLocked(Event{Kind: EventIVRUpdated, Text: "keys_visible"})
		return
	}
	c.questions = make([]Question, 0, len(resp.Questions))
	for _, q := range resp.Questions {
		c.questions = append(c.questions, Question{Key: q.Key, Text: q.Text})
	}
	c.greeting = resp.Greeting
	c.current = 0
	c.answers = NewAnswerSet()
	if err := c.setStageLocked(StageInterview); err != nil {
		return
	}
	c.startTurnLocked()
}

// HangUp ends the call from any stage: media stops, timers stop and all
// session state resets to dial before HangUp returns.
func (c *Controller) HangUp() {
	c.mu.Lock()
	defer c.unlock()
	c.resetLocked(OutcomeHungUp)
}

// NewCall leaves the done screen for a fresh dial pad.
func (c *Controller) NewCall() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireLocked(StageDone); err != nil {
		return err
	}
	c.resetLocked("")
	return nil
}

// Close tears the controller down. Later calls return ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.unlock()
		return nil
	}
	c.resetLocked(OutcomeHungUp)
	c.closed = true
	c.unlock()
	c.writes.Wait()
	return nil
}

func (c *Controller) resetLocked(outcome Outcome) {
	if c.closed {
		return
	}
	from := c.stage
	if outcome != "" && from != StageDial && from != StageDone {
		c.journalLocked(outcome, "")
	}
	c.teardownMediaLocked()
	c.stopTimerLocked(&c.safety)
	c.stopTimerLocked(&c.navTimer)
	c.stopClockLocked()
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.gen++
	c.epoch++

	if from != StageDial {
		c.emitLocked(Event{Kind: EventCallEnded, From: from.String()})
		c.stage = StageDial
		c.log.Info("call_stage_changed", slog.String("session_id", c.session.ID), slog.String("from", from.String()), slog.String("to", StageDial.String()))
		c.emitLocked(Event{Kind: EventStageChanged, From: from.String(), To: StageDial.String()})
	}
	c.phone = ""
	c.session = Session{}
	c.ivrLines = nil
	c.keysVisible = false
	c.fetching = false
	c.greeting = ""
	c.questions = nil
	c.current = 0
	c.answers = NewAnswerSet()
	c.turn = voiceTurn{}
	c.profile = nil
	c.saving = false
	c.saved = false
	c.verify = nil
	c.lastNotice = nil
}

func (c *Controller) stopTimerLocked(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (c *Controller) requireLocked(stage Stage) error {
	if c.closed {
		return ErrClosed
	}
	if c.stage != stage {
		return ErrWrongStage
	}
	return nil
}

// startReviewLocked hands the answers to extraction. The call reaches done
// whether or not extraction succeeds.
func (c *Controller) startReviewLocked() {
	c.teardownMediaLocked()
	c.turn = voiceTurn{}
	if err := c.setStageLocked(StageReviewing); err != nil {
		return
	}
	tok := c.tokenLocked()
	ctx := c.ctx
	req := backend.ExtractRequest{
		Phone:    c.session.Phone,
		Language: c.session.Language.Name,
		Answers:  c.answers.Map(),
	}
	go func() {
		resp, err := c.backend.ExtractProfile(ctx, req)
		c.extractDone(tok, resp, err)
	}()
}

func (c *Controller) extractDone(tok token, resp backend.ExtractResponse, err error) {
	c.mu.Lock()
	defer c.unlock()
	if !c.validLocked(tok) || c.stage != StageReviewing {
		return
	}
	if err != nil || resp.Profile == nil {
		if err == nil {
			err = errorsx.New(errorsx.ReasonExtract)
		}
		c.log.Warn("extract_failed", slog.String("session_id", c.session.ID), slog.String("error", err.Error()))
		c.profile = FallbackProfile(c.answers)
	} else {
		c.profile = resp.Profile
	}
	if err := c.setStageLocked(StageDone); err != nil {
		return
	}
	c.emitLocked(Event{Kind: EventProfileReady})
	c.journalLocked(OutcomeReviewed, "")
}

// Save persists the reviewed profile. The outcome arrives as a notice; on
// success a navigate event follows after the redirect delay.
func (c *Controller) Save() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireLocked(StageDone); err != nil {
		return err
	}
	if c.saving {
		return ErrBusy
	}
	c.saving = true
	tok := c.tokenLocked()
	ctx, phone := c.ctx, c.session.Phone
	profile := cloneProfile(c.profile)
	go func() {
		resp, err := c.backend.SaveProfile(ctx, phone, profile)
		c.saveDone(tok, resp, err)
	}()
	return nil
}

func (c *Controller) saveDone(tok token, resp backend.SaveResponse, err error) {
	c.mu.Lock()
	defer c.unlock()
	if !c.validLocked(tok) || c.stage != StageDone {
		return
	}
	c.saving = false
	if err != nil {
		c.log.Warn("save_failed", slog.String("session_id", c.session.ID), slog.String("error", err.Error()))
		c.noticeLocked(NoticeError, noticeSaveFailed)
		c.journalLocked(OutcomeSaveFailed, "")
		return
	}
	c.saved = true
	c.log.Info("profile_saved", slog.String("session_id", c.session.ID), slog.String("worker_id", resp.WorkerID))
	c.noticeLocked(NoticeSuccess, noticeSaved)
	c.journalLocked(OutcomeSaved, resp.WorkerID)
	gen := c.gen
	c.navTimer = time.AfterFunc(c.timing.SaveRedirect, func() {
		c.mu.Lock()
		defer c.unlock()
		if c.closed || c.gen != gen || c.stage != StageDone {
			return
		}
		c.navTimer = nil
		c.emitLocked(Event{Kind: EventNavigate, Path: SearchPath})
	})
}

// journalLocked queues a journal write for the current session.
func (c *Controller) journalLocked(outcome Outcome, workerID string) {
	if c.journal == nil || c.session.ID == "" {
		return
	}
	rec := CallRecord{
		SessionID:   c.session.ID,
		Phone:       c.session.Phone,
		LanguageKey: c.session.Language.Key,
		Language:    c.session.Language.Name,
		Stage:       c.stage,
		Answers:     c.answers.List(),
		Profile:     cloneProfile(c.profile),
		WorkerID:    workerID,
		Outcome:     outcome,
		StartedAt:   c.session.StartedAt,
		EndedAt:     time.Now(),
	}
	j, log := c.journal, c.log
	c.after = append(c.after, func() {
		c.writes.Add(1)
		go func() {
			defer c.writes.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := j.Record(ctx, rec); err != nil {
				log.Warn("journal_record_failed", slog.String("session_id", rec.SessionID), slog.String("error", err.Error()))
			}
		}()
	})
}

func cloneProfile(p backend.Profile) backend.Profile {
	if p == nil {
		return nil
	}
	out := make(backend.Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Snapshot is a read-only copy of the controller state for rendering.
type Snapshot struct {
	Stage        Stage
	Phone        string
	CanDial      bool
	Session      Session
	IVRLines     []string
	KeysVisible  bool
	Fetching     bool
	Greeting     string
	Questions    []Question
	Current      int
	Question     Question
	TurnID       uint64
	Voice        VoiceStage
	Spoken       string
	Edit         string
	Translating  bool
	Answers      []Answer
	Profile      backend.Profile
	Saving       bool
	Saved        bool
	Elapsed      time.Duration
	Notice       *Notice
	Verification *VerificationResult
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Stage:        c.stage,
		Phone:        c.phone,
		CanDial:      c.stage == StageDial && len(c.phone) == phoneDigits,
		Session:      c.session,
		IVRLines:     append([]string(nil), c.ivrLines...),
		KeysVisible:  c.keysVisible,
		Fetching:     c.fetching,
		Greeting:     c.greeting,
		Questions:    append([]Question(nil), c.questions...),
		Current:      c.current,
		TurnID:       c.turn.id,
		Voice:        c.turn.stage,
		Spoken:       c.turn.spoken,
		Edit:         c.turn.edit,
		Translating:  c.turn.translating,
		Answers:      c.answers.List(),
		Profile:      cloneProfile(c.profile),
		Saving:       c.saving,
		Saved:        c.saved,
		Elapsed:      c.elapsed,
		Notice:       c.lastNotice,
		Verification: c.verify,
	}
	if c.stage == StageInterview && c.current < len(c.questions) {
		s.Question = c.questions[c.current]
	}
	return s
}

func toMetric(ev Event) metrics.Event {
	tags := map[string]string{}
	if ev.SessionID != "" {
		tags["session_id"] = ev.SessionID
	}
	if ev.From != "" {
		tags["from"] = ev.From
	}
	if ev.To != "" {
		tags["to"] = ev.To
	}
	if ev.QuestionKey != "" {
		tags["question_key"] = ev.QuestionKey
	}
	fields := map[string]any{}
	switch ev.Kind {
	case EventAnswerSubmitted:
		fields["question_key"] = ev.QuestionKey
		fields["answer"] = ev.Text
	case EventNotice:
		fields["level"] = ev.Notice.Level.String()
		fields["text"] = ev.Text
	case EventVerification:
		fields["outcome"] = ev.Verification.Outcome.String()
	case EventNavigate:
		fields["path"] = ev.Path
	}
	return metrics.Event{
		Name:   ev.Kind.String(),
		Time:   ev.Time,
		Value:  ev.Elapsed.Seconds(),
		Tags:   tags,
		Fields: fields,
	}
}

func (c *Controller) String() string {
	s := c.Snapshot()
	return fmt.Sprintf("call[%s stage=%s voice=%s phone=%s]", s.Session.ID, s.Stage, s.Voice, redact.Phone(s.Phone))
}
