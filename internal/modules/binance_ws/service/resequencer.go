package service

import (
	"context"
	"fmt"
	"time"

	"breakout_bot/internal/models"
)

// Backfiller — REST-источник пропущенных свечей: отдаёт закрытые свечи
// с open-time >= from, по возрастанию.
type Backfiller func(ctx context.Context, symbol string, from time.Time, limit int) ([]models.Candle, error)

// Resequencer следит, чтобы последовательность свечей наружу уходила
// монотонной и без дырок: дубли давим, дырки закрываем бэкфиллом,
// незакрываемую дырку отдаём как GapEvent — дальше пусть решает движок.
type Resequencer struct {
	tf       time.Duration
	backfill Backfiller
	lastOpen map[string]time.Time
}

func NewResequencer(tf time.Duration, backfill Backfiller) *Resequencer {
	return &Resequencer{
		tf:       tf,
		backfill: backfill,
		lastOpen: make(map[string]time.Time),
	}
}

// Push — очередная закрытая свеча из стрима (или прогрева).
// Возвращает свечи к выдаче наружу строго по порядку.
// gap != nil значит дырку закрыть не удалось; свечи до дырки уже выданы.
func (r *Resequencer) Push(ctx context.Context, c models.Candle) (out []models.Candle, gap *models.GapEvent) {
	last, seen := r.lastOpen[c.Symbol]

	switch {
	case !seen:
		r.lastOpen[c.Symbol] = c.OpenTime
		return []models.Candle{c}, nil

	case !c.OpenTime.After(last):
		// дубль или переигранная свеча после реконнекта — давим
		return nil, nil

	case c.OpenTime.Equal(last.Add(r.tf)):
		r.lastOpen[c.Symbol] = c.OpenTime
		return []models.Candle{c}, nil
	}

	// дырка: [last+tf, c.OpenTime) надо добрать по REST
	from := last.Add(r.tf)
	missing := int(c.OpenTime.Sub(from)/r.tf) + 1

	fetched, err := r.backfill(ctx, c.Symbol, from, missing)
	if err != nil {
		return nil, &models.GapEvent{
			Symbol: c.Symbol, LastSeen: last, Got: c.OpenTime,
			Err: fmt.Errorf("backfill: %w", err),
		}
	}

	expect := from
	for _, f := range fetched {
		if !f.OpenTime.Equal(expect) {
			break // биржа сама отдала с дыркой — дальше не верим
		}
		if !f.OpenTime.Before(c.OpenTime) {
			break // дошли до живой свечи
		}
		out = append(out, f)
		r.lastOpen[c.Symbol] = f.OpenTime
		expect = expect.Add(r.tf)
	}

	if expect.Equal(c.OpenTime) {
		r.lastOpen[c.Symbol] = c.OpenTime
		return append(out, c), nil
	}

	// закрыть не смогли — наружу дырку, выданное остаётся выданным
	return out, &models.GapEvent{
		Symbol: c.Symbol, LastSeen: r.lastOpen[c.Symbol], Got: c.OpenTime,
		Err: fmt.Errorf("backfill incomplete: want %s, have up to %s", c.OpenTime, expect),
	}
}

// Reset — после подтверждённой дырки окно наверху инвалидировано,
// начинаем отсчёт последовательности заново.
func (r *Resequencer) Reset(symbol string) {
	delete(r.lastOpen, symbol)
}
