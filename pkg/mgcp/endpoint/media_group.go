package endpoint

import (
	"context"
	"time"

	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
)

// NullMediaGroup медиа-группа без обработки звука: воспроизведение
// завершается сразу, сбор цифр и запись возвращают пустой результат.
// Используется, когда DSP не подключен.
type NullMediaGroup struct {
	// Delay имитация длительности операции
	Delay time.Duration
}

func (m NullMediaGroup) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m NullMediaGroup) Play(ctx context.Context, req packages.PlayRequest) error {
	return m.wait(ctx)
}

func (m NullMediaGroup) Collect(ctx context.Context, req packages.CollectRequest) (string, error) {
	return "", m.wait(ctx)
}

func (m NullMediaGroup) Record(ctx context.Context, req packages.RecordRequest) (string, error) {
	return "", m.wait(ctx)
}

func (m NullMediaGroup) Stop() {}
