package twilio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/harunnryd/skillcall/pkg/errorsx"
	"github.com/harunnryd/skillcall/pkg/redact"
)

const defaultTwiML = `<Response><Say>SkillSync is calling to set up your worker profile. Please continue on the onboarding screen.</Say></Response>`

type callCreator interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
}

type Config struct {
	AccountSID  string
	AuthToken   string
	From        string
	CountryCode string
	// URL points Twilio at a voice webhook. When empty TwiML is sent inline.
	URL   string
	TwiML string
	// Hold keeps the screen ringing after the call is placed.
	Hold   time.Duration
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.CountryCode == "" {
		c.CountryCode = "+91"
	}
	if c.TwiML == "" {
		c.TwiML = defaultTwiML
	}
	if c.Hold <= 0 {
		c.Hold = 3 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Ringer places a real outbound call to the worker's phone while the
// onboarding screen shows the ringing stage.
type Ringer struct {
	cfg    Config
	client callCreator
	log    *slog.Logger
}

func NewRinger(cfg Config) *Ringer {
	cfg = cfg.withDefaults()
	return &Ringer{cfg: cfg, log: cfg.Logger.With(slog.String("component", "twilio_ringer"))}
}

// Ring places the call and then holds for the configured ringing time. A
// failure to place the call is returned after the hold.
func (r *Ringer) Ring(ctx context.Context, phone string) error {
	sid, callErr := r.place(phone)
	if callErr != nil {
		r.log.Warn("twilio_call_failed", slog.String("phone", redact.Phone(phone)), slog.String("error", callErr.Error()))
	} else {
		r.log.Info("twilio_call_placed", slog.String("phone", redact.Phone(phone)), slog.String("call_sid", sid))
	}
	t := time.NewTimer(r.cfg.Hold)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	if callErr != nil {
		return errorsx.Wrap(callErr, errorsx.ReasonRinger)
	}
	return nil
}

func (r *Ringer) place(phone string) (string, error) {
	if phone == "" || r.cfg.From == "" {
		return "", errors.New("to/from required")
	}
	if r.cfg.AccountSID == "" || r.cfg.AuthToken == "" {
		return "", errors.New("missing twilio credentials")
	}
	client := r.client
	if client == nil {
		rest := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: r.cfg.AccountSID,
			Password: r.cfg.AuthToken,
		})
		client = rest.Api
	}
	params := &api.CreateCallParams{}
	params.SetTo(r.e164(phone))
	params.SetFrom(r.cfg.From)
	if strings.TrimSpace(r.cfg.URL) != "" {
		params.SetUrl(r.cfg.URL)
	} else {
		params.SetTwiml(r.cfg.TwiML)
	}
	resp, err := client.CreateCall(params)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Sid == nil {
		return "", fmt.Errorf("missing call sid")
	}
	return *resp.Sid, nil
}

func (r *Ringer) e164(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return r.cfg.CountryCode + phone
}
