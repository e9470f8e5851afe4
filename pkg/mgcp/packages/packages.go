// Package packages содержит реестр пакетов MGCP: разрешение сигналов
// "pkg/signal(params)" в исполняемые объекты и событий "pkg/event" в известные типы.
package packages

import (
	"context"
	"sort"
	"strings"
	"time"
)

// MediaGroup медиа-компоненты конечной точки, над которыми выполняются сигналы.
// Обработка звука находится за пределами этого пакета.
type MediaGroup interface {
	Play(ctx context.Context, req PlayRequest) error
	Collect(ctx context.Context, req CollectRequest) (string, error)
	Record(ctx context.Context, req RecordRequest) (string, error)
	Stop()
}

// PlayRequest параметры воспроизведения
type PlayRequest struct {
	Announcements []string
	Iterations    int // -1 - бесконечно
	Interval      time.Duration
}

// CollectRequest параметры сбора DTMF
type CollectRequest struct {
	Prompt    []string
	MinDigits int
	MaxDigits int
	Timeout   time.Duration
}

// RecordRequest параметры записи
type RecordRequest struct {
	Prompt    []string
	MaxLength time.Duration
}

// EventType тип события в каноничном написании
type EventType struct {
	Package string
	Name    string
}

func (e EventType) String() string {
	return e.Package + "/" + e.Name
}

// Event наблюдаемое событие для отчета агенту вызовов
type Event struct {
	EventType
	Params map[string]string
}

// String кодирует событие для параметра O: "AU/oc(rc=100 dc=12)"
func (e Event) String() string {
	if len(e.Params) == 0 {
		return e.EventType.String()
	}

	keys := make([]string, 0, len(e.Params))
	for k := range e.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Params[k])
	}
	return e.EventType.String() + "(" + strings.Join(parts, " ") + ")"
}

// Signal разрешенный сигнал, готовый к выполнению над медиа-группой
type Signal interface {
	Package() string
	Name() string
	Parameters() map[string]string
	// Execute выполняет сигнал. Возвращает событие для отчета или nil,
	// если сигнал завершается без события.
	Execute(ctx context.Context) (*Event, error)
}

// Package набор сигналов и событий с общим префиксом
type Package interface {
	Name() string
	HasEvent(name string) bool
	HasSignal(name string) bool
	// Signal создает сигнал; ErrUnsupportedSignal если имя не определено
	Signal(name string, params map[string]string, mg MediaGroup) (Signal, error)
}
