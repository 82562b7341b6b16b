// Package apperr defines the error taxonomy shared by the case lifecycle,
// the task orchestrator and the HTTP layer.
//
// Every error carries the action attempted, the case it targeted and the
// case status at the time of failure so a client can decide whether to retry
// or re-render. Match kinds with errors.Is against the exported sentinels:
//
//	if errors.Is(err, apperr.ErrInvalidState) { ... }
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"alert-case-service/internal/modal"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindUnauthorized
	KindPartialFailure
	KindTimeout
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindUnauthorized:
		return "unauthorized"
	case KindPartialFailure:
		return "partial_failure"
	case KindTimeout:
		return "timeout"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("action not allowed in current state")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrPartialFailure = errors.New("side effect failed after case was persisted")
	ErrTimeout        = errors.New("operation timed out")
	ErrStore          = errors.New("store failure")
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindInvalidState:
		return ErrInvalidState
	case KindUnauthorized:
		return ErrUnauthorized
	case KindPartialFailure:
		return ErrPartialFailure
	case KindTimeout:
		return ErrTimeout
	case KindStore:
		return ErrStore
	}
	return nil
}

// Error is the concrete error returned by lifecycle operations.
type Error struct {
	Kind   Kind
	Action string
	CaseID string
	Status modal.CaseStatus
	Msg    string

	// Case is the persisted case for PartialFailure and Timeout errors, so a
	// caller can retry only the failed side effect.
	Case *modal.Case

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Action)
	if e.CaseID != "" {
		fmt.Fprintf(&b, " case=%s", e.CaseID)
	}
	if e.Status != "" {
		fmt.Fprintf(&b, " status=%s", e.Status)
	}
	b.WriteString(": ")
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else if s := e.Kind.sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString("error")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func New(kind Kind, action, msg string) *Error {
	return &Error{Kind: kind, Action: action, Msg: msg}
}

func Wrap(kind Kind, action string, err error) *Error {
	return &Error{Kind: kind, Action: action, Err: err}
}

// WithCase stamps the target case id and its current status.
func (e *Error) WithCase(c *modal.Case) *Error {
	if c != nil {
		e.CaseID = c.ID
		e.Status = c.Status
	}
	return e
}

// WithCaseID stamps only the target id, for cases that could not be loaded.
func (e *Error) WithCaseID(id string) *Error {
	e.CaseID = id
	return e
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PersistedCase returns the case attached to a PartialFailure or Timeout error.
func PersistedCase(err error) *modal.Case {
	var e *Error
	if errors.As(err, &e) {
		return e.Case
	}
	return nil
}

func Validationf(action, format string, args ...any) *Error {
	return New(KindValidation, action, fmt.Sprintf(format, args...))
}

func InvalidStatef(action, format string, args ...any) *Error {
	return New(KindInvalidState, action, fmt.Sprintf(format, args...))
}

func Unauthorizedf(action, format string, args ...any) *Error {
	return New(KindUnauthorized, action, fmt.Sprintf(format, args...))
}

func NotFoundf(action, format string, args ...any) *Error {
	return New(KindNotFound, action, fmt.Sprintf(format, args...))
}
