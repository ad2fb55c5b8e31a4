package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position — позиция по символу. Мутирует ТОЛЬКО леджер и только
// по подтверждённым филлам. Знак Qty: + лонг, - шорт.
// Деньги считаем на decimal, чтобы дубль/реордер филлов не размывал float.
type Position struct {
	Symbol      string
	Qty         decimal.Decimal
	AvgEntry    decimal.Decimal
	RealizedPnL decimal.Decimal
	UpdatedAt   time.Time
}

func NewPosition(symbol string) Position {
	return Position{Symbol: symbol}
}

func (p Position) Flat() bool { return p.Qty.IsZero() }

// UnrealizedPnL — маркер нереализованного результата по последней цене.
func (p Position) UnrealizedPnL(lastPx float64) decimal.Decimal {
	if p.Qty.IsZero() {
		return decimal.Zero
	}
	px := decimal.NewFromFloat(lastPx)
	return px.Sub(p.AvgEntry).Mul(p.Qty)
}
