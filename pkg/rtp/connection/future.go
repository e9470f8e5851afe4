package connection

import (
	"context"
	"sync"
)

// Future результат асинхронной операции над соединением.
// Разрешается ровно один раз.
type Future struct {
	once     sync.Once
	done     chan struct{}
	result   Result
	callback Callback
}

func newFuture(callback Callback) *Future {
	return &Future{
		done:     make(chan struct{}),
		callback: callback,
	}
}

// Done закрывается после разрешения
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result возвращает результат, если операция завершена
func (f *Future) Result() (Result, bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return Result{}, false
	}
}

// Wait ждет результат или отмену ctx. Отмена ожидания не отменяет операцию.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// resolve возвращает false, если future уже разрешен
func (f *Future) resolve(result Result) bool {
	resolved := false
	f.once.Do(func() {
		f.result = result
		close(f.done)
		resolved = true
	})
	if resolved && f.callback != nil {
		f.callback(result)
	}
	return resolved
}
