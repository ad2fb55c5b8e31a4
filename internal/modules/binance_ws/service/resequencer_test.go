package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"breakout_bot/internal/models"
	"breakout_bot/internal/modules/binance_ws/service"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func candleAt(open time.Time) models.Candle {
	return models.Candle{
		Symbol:    "BTCUSDT",
		Open:      100, High: 101, Low: 99, Close: 100,
		OpenTime:  open,
		CloseTime: open.Add(time.Minute),
		Timeframe: "1m",
	}
}

// Реконнект с тремя пропущенными свечами: дырка закрывается бэкфиллом,
// наружу уходит ровно по одной свече на каждое закрытие, строго по порядку.
func TestPushBackfillsGap(t *testing.T) {
	backfillCalls := 0
	backfill := func(_ context.Context, symbol string, from time.Time, limit int) ([]models.Candle, error) {
		backfillCalls++
		if !from.Equal(t0.Add(time.Minute)) {
			t.Fatalf("backfill from %s", from)
		}
		var out []models.Candle
		for i := 0; i < 3; i++ {
			out = append(out, candleAt(from.Add(time.Duration(i)*time.Minute)))
		}
		return out, nil
	}

	r := service.NewResequencer(time.Minute, backfill)
	ctx := context.Background()

	out, gap := r.Push(ctx, candleAt(t0))
	if gap != nil || len(out) != 1 {
		t.Fatalf("first candle: out=%d gap=%v", len(out), gap)
	}

	// стрим порвался, следующая живая свеча — t0+4m (пропущены +1m..+3m)
	out, gap = r.Push(ctx, candleAt(t0.Add(4*time.Minute)))
	if gap != nil {
		t.Fatalf("gap not repaired: %v", gap.Err)
	}
	if len(out) != 4 {
		t.Fatalf("want 3 backfilled + 1 live, got %d", len(out))
	}
	for i, c := range out {
		want := t0.Add(time.Duration(i+1) * time.Minute)
		if !c.OpenTime.Equal(want) {
			t.Errorf("candle %d open %s, want %s", i, c.OpenTime, want)
		}
	}
	if backfillCalls != 1 {
		t.Errorf("backfill calls: %d", backfillCalls)
	}

	// продолжение после починки — обычный контиг
	out, gap = r.Push(ctx, candleAt(t0.Add(5*time.Minute)))
	if gap != nil || len(out) != 1 {
		t.Fatalf("post-repair candle: out=%d gap=%v", len(out), gap)
	}
}

// Дубли после реконнекта (биржа переигрывает последнюю свечу) давятся.
func TestPushDropsDuplicates(t *testing.T) {
	r := service.NewResequencer(time.Minute, nil)
	ctx := context.Background()

	r.Push(ctx, candleAt(t0))
	out, gap := r.Push(ctx, candleAt(t0))
	if gap != nil || len(out) != 0 {
		t.Fatalf("duplicate leaked: out=%d gap=%v", len(out), gap)
	}
	out, _ = r.Push(ctx, candleAt(t0.Add(-time.Minute)))
	if len(out) != 0 {
		t.Fatal("stale candle leaked")
	}
}

// Бэкфилл не смог — наружу GapEvent, а не тихо склеенное окно.
func TestPushSurfacesUnrepairableGap(t *testing.T) {
	backfill := func(_ context.Context, _ string, _ time.Time, _ int) ([]models.Candle, error) {
		return nil, errors.New("rest down")
	}
	r := service.NewResequencer(time.Minute, backfill)
	ctx := context.Background()

	r.Push(ctx, candleAt(t0))
	out, gap := r.Push(ctx, candleAt(t0.Add(3*time.Minute)))
	if gap == nil {
		t.Fatal("expected gap event")
	}
	if len(out) != 0 {
		t.Fatalf("candles emitted across unrepaired gap: %d", len(out))
	}
	if gap.Symbol != "BTCUSDT" || !gap.LastSeen.Equal(t0) {
		t.Errorf("gap event: %+v", gap)
	}

	// после Reset последовательность начинается заново
	r.Reset("BTCUSDT")
	out, gap = r.Push(ctx, candleAt(t0.Add(10*time.Minute)))
	if gap != nil || len(out) != 1 {
		t.Fatalf("restart after reset: out=%d gap=%v", len(out), gap)
	}
}
