package strategy

import (
	"fmt"

	"breakout_bot/internal/models"
)

// ThresholdFunc считает уровни пробоя вверх/вниз по окну.
// Формула — деталь тюнинга, поэтому подменяемая.
type ThresholdFunc func(window []models.Candle) (longTrig, shortTrig float64)

// StopFunc считает стоп для направления по тому же окну.
type StopFunc func(window []models.Candle, dir models.Direction) float64

// Config — параметры эвалюатора. Lookback и Coefficient приходят из конфига.
type Config struct {
	Lookback    int
	Coefficient float64

	// nil => дефолтные формулы волатильного пробоя
	Threshold ThresholdFunc
	Stop      StopFunc
}

// Breakout — чистый эвалюатор пробоя: окно свечей на входе, сигнал на выходе.
// Никакого состояния и никакой сети, иначе это не тестируется.
type Breakout struct {
	cfg Config
}

func NewBreakout(cfg Config) *Breakout {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 20
	}
	if cfg.Coefficient <= 0 {
		cfg.Coefficient = 0.5
	}
	if cfg.Threshold == nil {
		cfg.Threshold = RangeThreshold(cfg.Coefficient)
	}
	if cfg.Stop == nil {
		cfg.Stop = WindowExtremeStop()
	}
	return &Breakout{cfg: cfg}
}

// Evaluate — окно это последние N закрытых свечей ПЛЮС текущая закрытая
// свеча последним элементом. Меньше N+1 свечей => решения нет (это не ошибка,
// просто рано). Дырка в окне => тоже нет решения, окно должно быть
// инвалидировано тем, кто его держит.
func (b *Breakout) Evaluate(window []models.Candle) models.Signal {
	if len(window) < b.cfg.Lookback+1 {
		return models.Signal{}
	}

	if hasGap(window) {
		return models.Signal{}
	}

	// последняя свеча — та, на закрытии которой принимаем решение;
	// пороги считаем по предыдущим N
	last := window[len(window)-1]
	prior := window[len(window)-1-b.cfg.Lookback : len(window)-1]

	longTrig, shortTrig := b.cfg.Threshold(prior)

	var dir models.Direction
	var trig float64
	var reason string

	switch {
	case last.Close >= longTrig:
		dir = models.DirLong
		trig = last.Close
		reason = fmt.Sprintf("breakout UP: close=%.5f >= trig=%.5f", last.Close, longTrig)
	case last.Close <= shortTrig:
		dir = models.DirShort
		trig = last.Close
		reason = fmt.Sprintf("breakout DOWN: close=%.5f <= trig=%.5f", last.Close, shortTrig)
	default:
		return models.Signal{}
	}

	return models.Signal{
		Symbol:      last.Symbol,
		Direction:   dir,
		TriggerPx:   trig,
		StopPx:      b.cfg.Stop(prior, dir),
		GeneratedAt: last.CloseTime,
		Reason:      reason,
	}
}

// RangeThreshold — классический волатильный пробой:
// trig = последний close ± K * (max(high) - min(low)) по окну.
func RangeThreshold(k float64) ThresholdFunc {
	return func(window []models.Candle) (float64, float64) {
		hi, lo := windowExtremes(window)
		ref := window[len(window)-1].Close
		rng := hi - lo
		return ref + k*rng, ref - k*rng
	}
}

// WindowExtremeStop — стоп на противоположном экстремуме окна
// (лоу окна для лонга, хай для шорта).
func WindowExtremeStop() StopFunc {
	return func(window []models.Candle, dir models.Direction) float64 {
		hi, lo := windowExtremes(window)
		if dir == models.DirLong {
			return lo
		}
		return hi
	}
}

func windowExtremes(window []models.Candle) (hi, lo float64) {
	hi, lo = window[0].High, window[0].Low
	for _, c := range window[1:] {
		if c.High > hi {
			hi = c.High
		}
		if c.Low < lo {
			lo = c.Low
		}
	}
	return hi, lo
}

// hasGap — open-time соседних свечей должны идти строго через таймфрейм.
func hasGap(window []models.Candle) bool {
	tf := models.TimeframeDuration(window[0].Timeframe)
	if tf <= 0 {
		return false
	}
	for i := 1; i < len(window); i++ {
		if !window[i].OpenTime.Equal(window[i-1].OpenTime.Add(tf)) {
			return true
		}
	}
	return false
}

// Warmup — сколько свечей нужно накопить до первого решения.
func (b *Breakout) Warmup() int { return b.cfg.Lookback + 1 }

// Dump — строка состояния для логов.
func (b *Breakout) Dump(window []models.Candle) string {
	if len(window) < b.cfg.Lookback+1 {
		return fmt.Sprintf("breakout: warmup %d/%d", len(window), b.cfg.Lookback+1)
	}
	prior := window[len(window)-1-b.cfg.Lookback : len(window)-1]
	longTrig, shortTrig := b.cfg.Threshold(prior)
	return fmt.Sprintf("breakout[N=%d K=%.2f] up=%.5f down=%.5f last=%.5f",
		b.cfg.Lookback, b.cfg.Coefficient, longTrig, shortTrig, window[len(window)-1].Close)
}
