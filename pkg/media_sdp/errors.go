package media_sdp

import (
	"errors"
	"fmt"
)

// SDPErrorCode определяет коды ошибок для SDP операций
type SDPErrorCode int

const (
	ErrorCodeSDPParsing SDPErrorCode = iota + 2000
	ErrorCodeSDPGeneration
	ErrorCodeIncompatibleCodec
	ErrorCodeInvalidDirection
)

// Сентинелы для проверки через errors.Is
var (
	ErrMalformedDescription = errors.New("malformed session description")
	ErrNoCommonCodec        = errors.New("no common codec")
)

func (c SDPErrorCode) String() string {
	switch c {
	case ErrorCodeSDPParsing:
		return "parsing"
	case ErrorCodeSDPGeneration:
		return "generation"
	case ErrorCodeIncompatibleCodec:
		return "incompatible_codec"
	case ErrorCodeInvalidDirection:
		return "invalid_direction"
	default:
		return "unknown"
	}
}

// SDPError представляет ошибку в SDP операциях
type SDPError struct {
	Code    SDPErrorCode
	Message string
	Wrapped error
}

// NewSDPError создает новую SDP ошибку
func NewSDPError(code SDPErrorCode, format string, args ...interface{}) *SDPError {
	return &SDPError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapSDPError оборачивает существующую ошибку в SDPError
func WrapSDPError(code SDPErrorCode, err error, format string, args ...interface{}) *SDPError {
	return &SDPError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Wrapped: err,
	}
}

// Error реализует интерфейс error
func (e *SDPError) Error() string {
	msg := fmt.Sprintf("SDP Error [%d]: %s", e.Code, e.Message)
	if e.Wrapped != nil {
		msg += fmt.Sprintf(" - Wrapped: %v", e.Wrapped)
	}
	return msg
}

// Unwrap возвращает обернутую ошибку для поддержки errors.Is/As
func (e *SDPError) Unwrap() error {
	return e.Wrapped
}

// Is сопоставляет код ошибки с сентинелами пакета
func (e *SDPError) Is(target error) bool {
	switch target {
	case ErrMalformedDescription:
		return e.Code == ErrorCodeSDPParsing
	case ErrNoCommonCodec:
		return e.Code == ErrorCodeIncompatibleCodec
	}
	return false
}

// IsSDPError проверяет, является ли ошибка SDPError с указанным кодом
func IsSDPError(err error, code SDPErrorCode) bool {
	var sdpErr *SDPError
	if !errors.As(err, &sdpErr) {
		return false
	}
	return sdpErr.Code == code
}
