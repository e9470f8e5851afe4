package message

import (
	"strconv"
	"strings"
)

// Request запрос MGCP: строка команды, параметры и необязательное тело
type Request struct {
	parameters

	verb          Verb
	transactionID int
	endpointID    string
	version       string
}

// NewRequest создает запрос с версией протокола по умолчанию
func NewRequest(verb Verb, transactionID int, endpointID string) *Request {
	return &Request{
		parameters:    newParameters(),
		verb:          verb,
		transactionID: transactionID,
		endpointID:    endpointID,
		version:       Version,
	}
}

// IsRequest всегда true
func (r *Request) IsRequest() bool {
	return true
}

// Verb возвращает код команды
func (r *Request) Verb() Verb {
	return r.verb
}

// TransactionID возвращает идентификатор транзакции
func (r *Request) TransactionID() int {
	return r.transactionID
}

// EndpointID возвращает идентификатор конечной точки в виде "local@domain"
func (r *Request) EndpointID() string {
	return r.endpointID
}

// Version возвращает версию протокола из строки команды
func (r *Request) Version() string {
	return r.version
}

// String сериализует запрос в формат протокола
func (r *Request) String() string {
	var b strings.Builder
	b.WriteString(string(r.verb))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(r.transactionID))
	b.WriteByte(' ')
	b.WriteString(r.endpointID)
	b.WriteByte(' ')
	b.WriteString(r.version)
	b.WriteString("\r\n")
	r.writeTo(&b)
	return b.String()
}
