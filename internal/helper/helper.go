package helper

import "math"

// Округление цен и объёмов к фильтрам биржи. Цена не на тике или объём
// не на шаге лота — гарантированный reject, поэтому округляем всегда
// в "безопасную" сторону до отправки.

func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-12)
	return steps * tick
}

func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Ceil(px/tick - 1e-12)
	return steps * tick
}

// RoundQtyToStep — объём всегда вниз: округление вверх может превысить
// доступную маржу или нарушить reduce-only.
func RoundQtyToStep(qty, step float64) float64 {
	return RoundDownToTick(qty, step)
}
