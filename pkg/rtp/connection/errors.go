package connection

import (
	"errors"
	"fmt"
)

// Cause причина неудачи операции над соединением
type Cause int

const (
	CauseMalformedDescription Cause = iota + 1
	CauseNoCommonCapability
	CauseResourceExhausted
	CauseInvalidState
	CauseAborted
	CauseUnsupportedMode
)

func (c Cause) String() string {
	switch c {
	case CauseMalformedDescription:
		return "malformed_description"
	case CauseNoCommonCapability:
		return "no_common_capability"
	case CauseResourceExhausted:
		return "resource_exhausted"
	case CauseInvalidState:
		return "invalid_state"
	case CauseAborted:
		return "aborted"
	case CauseUnsupportedMode:
		return "unsupported_mode"
	default:
		return "unknown"
	}
}

// NegotiationError неудача открытия или изменения соединения
type NegotiationError struct {
	Cause Cause
	Err   error
}

func (e *NegotiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rtp connection: %s: %v", e.Cause, e.Err)
	}
	return "rtp connection: " + e.Cause.String()
}

func (e *NegotiationError) Unwrap() error {
	return e.Err
}

// CauseOf извлекает причину из ошибки, 0 если это не NegotiationError
func CauseOf(err error) Cause {
	var nerr *NegotiationError
	if errors.As(err, &nerr) {
		return nerr.Cause
	}
	return 0
}
