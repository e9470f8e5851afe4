package command

import (
	"sync"

	"github.com/hl2dod/mediaserver/pkg/mgcp/message"
)

type observerEntry struct {
	id       uint64
	observer message.Observer
}

// Observers список наблюдателей сообщений. Подписка и отписка безопасны
// во время рассылки: рассылка идет по снимку списка.
type Observers struct {
	mu      sync.RWMutex
	nextID  uint64
	entries []observerEntry
}

func NewObservers() *Observers {
	return &Observers{}
}

// Observe добавляет наблюдателя и возвращает функцию отписки
func (o *Observers) Observe(observer message.Observer) (forget func()) {
	o.mu.Lock()
	o.nextID++
	id := o.nextID
	o.entries = append(o.entries, observerEntry{id: id, observer: observer})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { o.forget(id) })
	}
}

func (o *Observers) forget(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.entries {
		if e.id == id {
			o.entries = append(o.entries[:i:i], o.entries[i+1:]...)
			return
		}
	}
}

// Len количество подписанных наблюдателей
func (o *Observers) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.entries)
}

// Notify рассылает сообщение всем наблюдателям, подписанным на момент вызова
func (o *Observers) Notify(msg message.Message, direction message.Direction) {
	o.mu.RLock()
	snapshot := make([]message.Observer, len(o.entries))
	for i, e := range o.entries {
		snapshot[i] = e.observer
	}
	o.mu.RUnlock()

	for _, observer := range snapshot {
		observer.OnMessage(msg, direction)
	}
}
