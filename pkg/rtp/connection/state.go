package connection

import (
	"context"

	"github.com/looplab/fsm"
)

// State состояние RTP соединения
type State string

const (
	StateIdle        State = "idle"
	StateOpening     State = "opening"
	StateNegotiating State = "negotiating"
	StateOpen        State = "open"
	StateModifying   State = "modifying"
	StateClosing     State = "closing"
	StateClosed      State = "closed"
)

// AllStates перечисление состояний для метрик
var AllStates = []State{
	StateIdle, StateOpening, StateNegotiating, StateOpen, StateModifying, StateClosing, StateClosed,
}

const (
	eventOpen      = "open"
	eventNegotiate = "negotiate"
	eventOpened    = "opened"
	eventFail      = "fail"
	eventModify    = "modify"
	eventModified  = "modified"
	eventClose     = "close"
	eventClosed    = "closed"
)

// newStateMachine создает автомат соединения. onChange вызывается после
// каждого перехода и не должен генерировать события.
func newStateMachine(onChange func(from, to State)) *fsm.FSM {
	return fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: eventOpen, Src: []string{string(StateIdle)}, Dst: string(StateOpening)},
			{Name: eventNegotiate, Src: []string{string(StateOpening)}, Dst: string(StateNegotiating)},
			{Name: eventOpened, Src: []string{string(StateOpening), string(StateNegotiating)}, Dst: string(StateOpen)},
			// Неудачное открытие освобождает ресурсы
			{Name: eventFail, Src: []string{string(StateOpening), string(StateNegotiating)}, Dst: string(StateClosed)},
			{Name: eventModify, Src: []string{string(StateOpen)}, Dst: string(StateModifying)},
			// Успех и откат изменения возвращают в open
			{Name: eventModified, Src: []string{string(StateModifying)}, Dst: string(StateOpen)},
			{Name: eventClose, Src: []string{
				string(StateOpening), string(StateNegotiating), string(StateOpen), string(StateModifying),
			}, Dst: string(StateClosing)},
			{Name: eventClosed, Src: []string{string(StateClosing)}, Dst: string(StateClosed)},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if onChange != nil {
					onChange(State(e.Src), State(e.Dst))
				}
			},
		},
	)
}
