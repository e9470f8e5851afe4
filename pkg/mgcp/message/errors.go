package message

import (
	"errors"
	"fmt"
)

// ErrMalformedMessage базовая ошибка разбора сообщения
var ErrMalformedMessage = errors.New("malformed MGCP message")

// ParseError ошибка разбора с контекстом, достаточным для ответа PROTOCOL_ERROR
type ParseError struct {
	Line   int    // номер строки, начиная с 1; 0 если строка неизвестна
	Reason string // описание проблемы

	// TransactionID известен, если строка команды успела разобраться
	TransactionID int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", ErrMalformedMessage, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedMessage, e.Reason)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrMalformedMessage)
func (e *ParseError) Unwrap() error {
	return ErrMalformedMessage
}

func newParseError(line, txID int, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Line:          line,
		Reason:        fmt.Sprintf(format, args...),
		TransactionID: txID,
	}
}
