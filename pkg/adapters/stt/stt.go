package stt

import (
	"context"
	"errors"
)

// Unavailable is the Recognizer used when no speech capture is configured.
// Every turn it is asked for reports Unsupported, so answers are typed.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Name() string { return "no_stt" }

func (u Unavailable) Check(ctx context.Context) (Capability, error) {
	return Unsupported, u.err()
}

func (u Unavailable) Listen(ctx context.Context, req Request) (Capture, error) {
	return nil, u.err()
}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return errors.New("speech capture disabled")
	}
	return errors.New(u.Reason)
}
