package service

import (
	"context"
	"sync"
	"time"
)

// Budget — общий бюджет запросов на весь гейтвей. Лимиты биржи глобальные,
// не посимвольные, поэтому и бюджет один на все символы.
//
// Две обязанности:
//   - ограничение параллелизма (как sem-канал в прогреве, только честный);
//   - кулдаун после rate-limit: все ждут, порядок очереди сохраняется.
type Budget struct {
	mu            sync.Mutex
	parallel      int
	inflight      int
	cooldownUntil time.Time
	queue         []chan struct{} // FIFO; слот выдаёт диспетчер, закрывая канал
	timer         *time.Timer
}

func NewBudget(parallel int) *Budget {
	if parallel <= 0 {
		parallel = 4
	}
	return &Budget{parallel: parallel}
}

// Acquire блокируется до выдачи слота. Возвращает release.
// Очередь строго FIFO: кто раньше попросил, тот раньше поедет после кулдауна.
func (b *Budget) Acquire(ctx context.Context) (func(), error) {
	b.mu.Lock()
	if len(b.queue) == 0 && b.canProceedLocked() {
		b.inflight++
		b.mu.Unlock()
		return b.release, nil
	}

	w := make(chan struct{})
	b.queue = append(b.queue, w)
	b.scheduleWakeLocked()
	b.mu.Unlock()

	select {
	case <-w:
		return b.release, nil
	case <-ctx.Done():
		b.abandon(w)
		return nil, ctx.Err()
	}
}

// Penalize — биржа попросила притормозить. Продлеваем кулдаун,
// очередь не трогаем: она поедет в исходном порядке после паузы.
func (b *Budget) Penalize(d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	b.mu.Lock()
	until := time.Now().Add(d)
	if until.After(b.cooldownUntil) {
		b.cooldownUntil = until
	}
	b.scheduleWakeLocked()
	b.mu.Unlock()
}

// CoolingDown — для health/логов.
func (b *Budget) CoolingDown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Now().Before(b.cooldownUntil)
}

func (b *Budget) release() {
	b.mu.Lock()
	b.inflight--
	b.dispatchLocked()
	b.mu.Unlock()
}

func (b *Budget) canProceedLocked() bool {
	return b.inflight < b.parallel && !time.Now().Before(b.cooldownUntil)
}

// dispatchLocked выдаёт слоты голове очереди, пока можно.
func (b *Budget) dispatchLocked() {
	for len(b.queue) > 0 && b.canProceedLocked() {
		w := b.queue[0]
		b.queue = b.queue[1:]
		b.inflight++
		close(w)
	}
	b.scheduleWakeLocked()
}

// scheduleWakeLocked — если очередь стоит из-за кулдауна, взводим таймер
// на его окончание.
func (b *Budget) scheduleWakeLocked() {
	if len(b.queue) == 0 {
		return
	}
	wait := time.Until(b.cooldownUntil)
	if wait <= 0 {
		// стоим не из-за кулдауна, разбудит release()
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(wait, func() {
		b.mu.Lock()
		b.dispatchLocked()
		b.mu.Unlock()
	})
}

// abandon — вызывающий отвалился по ctx. Если слот уже успели выдать —
// возвращаем его, иначе просто выходим из очереди.
func (b *Budget) abandon(w chan struct{}) {
	b.mu.Lock()
	for i, q := range b.queue {
		if q == w {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			b.mu.Unlock()
			return
		}
	}
	b.mu.Unlock()

	// не нашли в очереди => слот уже выдан, отдаём обратно
	<-w
	b.release()
}
