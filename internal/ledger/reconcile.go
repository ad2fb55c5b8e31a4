package ledger

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
)

// Snapshot — срез состояния биржи для реконсиляции: ответы на точечные
// запросы по нашим ордерам плюс позиция.
type Snapshot struct {
	// Orders: clientOrderID -> состояние на бирже. Отсутствие ключа значит
	// "биржа про такой ордер не знает" (запрос вернул order-does-not-exist).
	Orders map[string]models.ExecReport

	PositionQty   float64
	PositionEntry float64
}

// Reconcile — авторитет последней инстанции. Каждый локальный ордер в
// unknown/устаревшем состоянии приводится к версии биржи; дрейф позиции
// исправляется. Каждое расхождение логируется — молча ничего не правим.
// Возвращает список применённых исправлений.
func (l *Ledger) Reconcile(ctx context.Context, snap Snapshot) ([]string, error) {
	var fixes []string

	for _, o := range l.ActiveOrders() {
		rep, known := snap.Orders[o.ClientOrderID]
		if !known {
			if o.Status == models.StatusPendingSubmit || o.Status == models.StatusUnknown {
				// запрос не дошёл до биржи — намерение свободно
				fixes = append(fixes,
					fmt.Sprintf("order %s (%s): not on exchange, marked cancelled", o.ClientOrderID, o.Status))
				if err := l.MarkStatus(ctx, o.ClientOrderID, models.StatusCancelled); err != nil {
					return fixes, err
				}
			}
			continue
		}

		if rep.Status != o.Status || rep.CumFilledQty > o.FilledQty {
			fixes = append(fixes, fmt.Sprintf(
				"order %s: local %s/%.8f -> exchange %s/%.8f",
				o.ClientOrderID, o.Status, o.FilledQty, rep.Status, rep.CumFilledQty))
		}
		// ApplyFill с кумулятивным снапшотом идемпотентен: дубль ничего не меняет
		if _, err := l.ApplyFill(ctx, rep); err != nil {
			return fixes, err
		}
	}

	// дрейф позиции: верим бирже, своё логируем
	exQty := decimal.NewFromFloat(snap.PositionQty)
	if !l.position.Qty.Equal(exQty) {
		fixes = append(fixes, fmt.Sprintf(
			"position drift: local %s@%s -> exchange %.8f@%.8f",
			l.position.Qty, l.position.AvgEntry, snap.PositionQty, snap.PositionEntry))
		l.position.Qty = exQty
		l.position.AvgEntry = decimal.NewFromFloat(snap.PositionEntry)
		if err := l.store.SavePosition(ctx, &l.position); err != nil {
			return fixes, fmt.Errorf("reconcile persist position: %w", err)
		}
	}

	for _, f := range fixes {
		log.Printf("[LEDGER] %s reconcile: %s", l.symbol, f)
	}

	if err := l.SetNeedsReconcile(ctx, false); err != nil {
		return fixes, err
	}
	return fixes, nil
}
