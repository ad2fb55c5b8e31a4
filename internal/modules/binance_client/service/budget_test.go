package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"breakout_bot/internal/modules/binance_client/service"
)

// Сценарий: rate-limit прилетел посреди очереди запросов от двух символов.
// Все встают на кулдаун и после него едут в исходном порядке.
func TestBudgetCooldownKeepsFIFO(t *testing.T) {
	b := service.NewBudget(1)
	ctx := context.Background()

	release, err := b.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// биржа сказала притормозить
	cooldown := 80 * time.Millisecond
	deadline := time.Now().Add(cooldown)
	b.Penalize(cooldown)

	var mu sync.Mutex
	var order []string
	var times []time.Time

	var wg sync.WaitGroup
	// запросы "BTCUSDT-1", "ETHUSDT", "BTCUSDT-2" встают в очередь в этом порядке
	for _, name := range []string{"BTCUSDT-1", "ETHUSDT", "BTCUSDT-2"} {
		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, err := b.Acquire(ctx)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			order = append(order, name)
			times = append(times, time.Now())
			mu.Unlock()
			rel()
		}()
		// даём горутине гарантированно встать в очередь раньше следующей
		time.Sleep(15 * time.Millisecond)
	}

	// слот свободен, но кулдаун ещё держит всех
	release()
	wg.Wait()

	if len(order) != 3 {
		t.Fatalf("expected 3 completions, got %d", len(order))
	}
	want := []string{"BTCUSDT-1", "ETHUSDT", "BTCUSDT-2"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("resume order broken: got %v, want %v", order, want)
		}
	}
	for i, ts := range times {
		if ts.Before(deadline) {
			t.Errorf("request %s resumed at %v, before cooldown end %v", order[i], ts, deadline)
		}
	}
}

func TestBudgetAcquireCancelled(t *testing.T) {
	b := service.NewBudget(1)

	release, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := b.Acquire(ctx); err == nil {
		t.Fatal("expected ctx error while slot is held")
	}

	// после отмены очередь должна быть чистой: следующий проходит сразу
	release()
	rel2, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	rel2()
}
