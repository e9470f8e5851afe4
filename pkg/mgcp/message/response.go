package message

import (
	"strconv"
	"strings"
)

// Response ответ MGCP
type Response struct {
	parameters

	code          ResponseCode
	transactionID int
	comment       string
}

// NewResponse создает ответ со стандартным комментарием кода
func NewResponse(code ResponseCode, transactionID int) *Response {
	return &Response{
		parameters:    newParameters(),
		code:          code,
		transactionID: transactionID,
		comment:       code.Message(),
	}
}

// NewResponseWithComment создает ответ с произвольным комментарием
func NewResponseWithComment(code ResponseCode, transactionID int, comment string) *Response {
	r := NewResponse(code, transactionID)
	if comment != "" {
		r.comment = comment
	}
	return r
}

// IsRequest всегда false
func (r *Response) IsRequest() bool {
	return false
}

// Code возвращает код ответа
func (r *Response) Code() ResponseCode {
	return r.code
}

// TransactionID возвращает идентификатор транзакции запроса
func (r *Response) TransactionID() int {
	return r.transactionID
}

// Comment возвращает текстовый комментарий строки ответа
func (r *Response) Comment() string {
	return r.comment
}

// String сериализует ответ в формат протокола
func (r *Response) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(r.code)))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(r.transactionID))
	if r.comment != "" {
		b.WriteByte(' ')
		b.WriteString(r.comment)
	}
	b.WriteString("\r\n")
	r.writeTo(&b)
	return b.String()
}
