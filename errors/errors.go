package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrForbidden           = fmt.Errorf("forbidden")
	ErrNotFound            = fmt.Errorf("not found")
	ErrInvalidBody         = fmt.Errorf("invalid body")
	ErrTransportGone       = fmt.Errorf("transport gone")
	ErrDuplicateConnection = fmt.Errorf("duplicate connection")
	ErrUnauthenticated     = fmt.Errorf("unauthenticated")
	ErrRateLimited         = fmt.Errorf("rate limited")
	ErrUnknownEventType    = fmt.Errorf("unknown event type")
	ErrUnknownVerb         = fmt.Errorf("unknown verb")
	ErrInvalidTransition   = fmt.Errorf("invalid status transition")
	ErrBridgeClosed        = fmt.Errorf("bridge closed")
	ErrUnknownBridge       = fmt.Errorf("unknown bridge type")
)

// Kind is the error category reported to clients.
type Kind string

const (
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindInvalidBody     Kind = "invalid_body"
	KindTransportGone   Kind = "transport_gone"
	KindRateLimited     Kind = "rate_limited"
	KindUnauthenticated Kind = "unauthenticated"
	KindInternal        Kind = "internal"
)

// KindOf maps a (possibly wrapped) error onto its client-facing Kind.
// Anything that is not one of the known sentinels is internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrForbidden):
		return KindForbidden
	case Is(err, ErrNotFound):
		return KindNotFound
	case Is(err, ErrInvalidBody), Is(err, ErrUnknownEventType),
		Is(err, ErrUnknownVerb), Is(err, ErrInvalidTransition):
		return KindInvalidBody
	case Is(err, ErrTransportGone):
		return KindTransportGone
	case Is(err, ErrRateLimited):
		return KindRateLimited
	case Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	default:
		return KindInternal
	}
}

// PublicMessage returns the message safe to send to a client.
func PublicMessage(err error) string {
	if KindOf(err) == KindInternal {
		return "internal error"
	}
	return err.Error()
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }
