package param

import (
	"fmt"
	"strings"
)

// EventAction действие, выполняемое при наступлении запрошенного события
type EventAction string

const (
	ActionNotify            EventAction = "N"
	ActionAccumulate        EventAction = "A"
	ActionDigitMap          EventAction = "D"
	ActionSwap              EventAction = "S"
	ActionIgnore            EventAction = "I"
	ActionKeepSignalsActive EventAction = "K"
)

var knownActions = map[EventAction]bool{
	ActionNotify:            true,
	ActionAccumulate:        true,
	ActionDigitMap:          true,
	ActionSwap:              true,
	ActionIgnore:            true,
	ActionKeepSignalsActive: true,
}

// ParseEventActions разбирает аргументы запрошенного события "N", "A,K".
// Отсутствие действий означает уведомление.
func ParseEventActions(args string) ([]EventAction, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return []EventAction{ActionNotify}, nil
	}

	parts := strings.Split(args, ",")
	actions := make([]EventAction, 0, len(parts))
	for _, part := range parts {
		action := EventAction(strings.ToUpper(strings.TrimSpace(part)))
		if !knownActions[action] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, part)
		}
		actions = append(actions, action)
	}
	return actions, nil
}
