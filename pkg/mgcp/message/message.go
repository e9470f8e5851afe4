// Package message содержит модель сообщений MGCP (RFC 3435) и текстовый парсер.
package message

import (
	"strings"
)

// Version версия протокола, которую мы отправляем в исходящих запросах
const Version = "MGCP 1.0"

// Verb код команды MGCP
type Verb string

const (
	VerbCreateConnection      Verb = "CRCX"
	VerbModifyConnection      Verb = "MDCX"
	VerbDeleteConnection      Verb = "DLCX"
	VerbRequestNotification   Verb = "RQNT"
	VerbNotify                Verb = "NTFY"
	VerbAuditEndpoint         Verb = "AUEP"
	VerbAuditConnection       Verb = "AUCX"
	VerbRestartInProgress     Verb = "RSIP"
	VerbEndpointConfiguration Verb = "EPCF"
)

var knownVerbs = map[Verb]bool{
	VerbCreateConnection:      true,
	VerbModifyConnection:      true,
	VerbDeleteConnection:      true,
	VerbRequestNotification:   true,
	VerbNotify:                true,
	VerbAuditEndpoint:         true,
	VerbAuditConnection:       true,
	VerbRestartInProgress:     true,
	VerbEndpointConfiguration: true,
}

// IsKnown проверяет, что команда определена протоколом
func (v Verb) IsKnown() bool {
	return knownVerbs[v]
}

// Parameter буквенный код параметра (строки "X:10", "N:ca@host:2727" и т.д.)
type Parameter string

const (
	ParamBearerInformation      Parameter = "B"
	ParamCallID                 Parameter = "C"
	ParamCapabilities           Parameter = "A"
	ParamConnectionID           Parameter = "I"
	ParamConnectionParameters   Parameter = "P"
	ParamDetectEvents           Parameter = "T"
	ParamDigitMap               Parameter = "D"
	ParamEventStates            Parameter = "ES"
	ParamLocalConnectionOptions Parameter = "L"
	ParamMode                   Parameter = "M"
	ParamNotifiedEntity         Parameter = "N"
	ParamObservedEvents         Parameter = "O"
	ParamPackageList            Parameter = "PL"
	ParamQuarantineHandling     Parameter = "Q"
	ParamReasonCode             Parameter = "E"
	ParamRequestedEvents        Parameter = "R"
	ParamRequestedInfo          Parameter = "F"
	ParamRequestID              Parameter = "X"
	ParamRestartDelay           Parameter = "RD"
	ParamRestartMethod          Parameter = "RM"
	ParamSecondConnectionID     Parameter = "I2"
	ParamSecondEndpointID       Parameter = "Z2"
	ParamSignalRequests         Parameter = "S"
	ParamSpecificEndpointID     Parameter = "Z"
)

// normalizeParameter приводит код параметра к каноничному виду
func normalizeParameter(p Parameter) Parameter {
	return Parameter(strings.ToUpper(strings.TrimSpace(string(p))))
}

// Direction направление движения сообщения относительно шлюза
type Direction int

const (
	DirectionIncoming Direction = iota
	DirectionOutgoing
)

func (d Direction) String() string {
	switch d {
	case DirectionIncoming:
		return "INCOMING"
	case DirectionOutgoing:
		return "OUTGOING"
	default:
		return "UNKNOWN"
	}
}

// Message общий интерфейс запросов и ответов MGCP
type Message interface {
	IsRequest() bool
	TransactionID() int
	Parameter(p Parameter) (string, bool)
	Body() string
	String() string
}

// Observer получает сообщения, проходящие через компонент
type Observer interface {
	OnMessage(msg Message, direction Direction)
}

// ObserverFunc адаптер функции к Observer
type ObserverFunc func(msg Message, direction Direction)

// OnMessage вызывает f(msg, direction)
func (f ObserverFunc) OnMessage(msg Message, direction Direction) {
	f(msg, direction)
}

// parameters упорядоченный набор параметров сообщения.
// Порядок нужен для стабильной сериализации.
type parameters struct {
	order  []Parameter
	values map[Parameter]string
	body   string
}

func newParameters() parameters {
	return parameters{values: make(map[Parameter]string)}
}

// Parameter возвращает значение параметра
func (p *parameters) Parameter(name Parameter) (string, bool) {
	v, ok := p.values[normalizeParameter(name)]
	return v, ok
}

// SetParameter устанавливает значение параметра, сохраняя позицию существующего
func (p *parameters) SetParameter(name Parameter, value string) {
	name = normalizeParameter(name)
	if _, exists := p.values[name]; !exists {
		p.order = append(p.order, name)
	}
	p.values[name] = value
}

// RemoveParameter удаляет параметр
func (p *parameters) RemoveParameter(name Parameter) {
	name = normalizeParameter(name)
	if _, exists := p.values[name]; !exists {
		return
	}
	delete(p.values, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Parameters возвращает копию параметров в порядке добавления
func (p *parameters) Parameters() []Parameter {
	return append([]Parameter(nil), p.order...)
}

// Body возвращает тело сообщения (как правило SDP)
func (p *parameters) Body() string {
	return p.body
}

// SetBody устанавливает тело сообщения
func (p *parameters) SetBody(body string) {
	p.body = body
}

func (p *parameters) writeTo(b *strings.Builder) {
	for _, name := range p.order {
		b.WriteString(string(name))
		b.WriteString(": ")
		b.WriteString(p.values[name])
		b.WriteString("\r\n")
	}
	if p.body != "" {
		b.WriteString("\r\n")
		b.WriteString(p.body)
	}
}
