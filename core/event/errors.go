package event

import "errors"

var (
	ErrUnexpectedPayload = errors.New("unexpected event payload type")
	ErrHandlerPanic      = errors.New("event handler panicked")
	ErrNilHandler        = errors.New("nil event handler")
)
