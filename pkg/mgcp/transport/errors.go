package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrTransportClosed операция над закрытым транспортом
	ErrTransportClosed = errors.New("transport closed")

	// ErrNotListening транспорт еще не открыл сокет
	ErrNotListening = errors.New("transport not listening")

	// ErrMessageTooLarge сообщение не помещается в датаграмму
	ErrMessageTooLarge = errors.New("message too large")
)

// TransportError ошибка сетевой операции
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mgcp udp %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
