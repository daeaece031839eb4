package call

import (
	"errors"

	"github.com/harunnryd/skillcall/pkg/errorsx"
)

var (
	ErrInvalidPhone    = errorsx.ReasonedError{Err: errors.New("enter a valid 10-digit number"), Reason: errorsx.ReasonInvalidPhone}
	ErrEmptyAnswer     = errorsx.ReasonedError{Err: errors.New("answer cannot be empty"), Reason: errorsx.ReasonEmptyAnswer}
	ErrUnknownLanguage = errorsx.ReasonedError{Err: errors.New("unknown language key"), Reason: errorsx.ReasonUnknownLanguage}
	ErrBusy            = errorsx.ReasonedError{Err: errors.New("request already in flight"), Reason: errorsx.ReasonBusy}
	ErrWrongStage      = errorsx.ReasonedError{Err: errors.New("action not available in this stage"), Reason: errorsx.ReasonWrongStage}
	ErrClosed          = errors.New("call controller closed")
)
