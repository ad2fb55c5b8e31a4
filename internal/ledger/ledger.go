package ledger

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
)

// Store — персистентное хранилище леджера. Пишем на каждой мутации,
// читаем на старте как сид для реконсиляции.
type Store interface {
	SaveOrder(ctx context.Context, o *models.Order) error
	SavePosition(ctx context.Context, p *models.Position) error
	LoadActiveOrders(ctx context.Context, symbol string) ([]*models.Order, error)
	LoadPosition(ctx context.Context, symbol string) (*models.Position, error)
	SetNeedsReconcile(ctx context.Context, symbol string, v bool) error
	NeedsReconcile(ctx context.Context, symbol string) (bool, error)
}

// Ledger — единственный источник правды по ордерам и позиции символа.
// Single-writer: все мутации идут из горутины движка, локов нет.
// Биржа при реконсиляции — авторитет последней инстанции.
type Ledger struct {
	symbol string
	store  Store

	active    map[string]*models.Order   // clientOrderID -> активный ордер
	byIntent  map[models.Intent]string   // намерение -> clientOrderID
	seenFills map[string]struct{}        // дедуп филлов
	position  models.Position

	fillCount int // филлов с последней сводки
}

func New(symbol string, store Store) *Ledger {
	return &Ledger{
		symbol:    symbol,
		store:     store,
		active:    make(map[string]*models.Order),
		byIntent:  make(map[models.Intent]string),
		seenFills: make(map[string]struct{}),
		position:  models.NewPosition(symbol),
	}
}

// Restore — поднимаем состояние из стора на старте. Локальной памяти
// не доверяем: дальше обязателен Reconcile против биржи.
func (l *Ledger) Restore(ctx context.Context) error {
	orders, err := l.store.LoadActiveOrders(ctx, l.symbol)
	if err != nil {
		return fmt.Errorf("ledger restore orders: %w", err)
	}
	for _, o := range orders {
		l.active[o.ClientOrderID] = o
		l.byIntent[o.Intent] = o.ClientOrderID
	}

	pos, err := l.store.LoadPosition(ctx, l.symbol)
	if err != nil {
		return fmt.Errorf("ledger restore position: %w", err)
	}
	if pos != nil {
		l.position = *pos
	}
	return nil
}

// Open — регистрируем новый ордер ДО сетевого вызова (pending-submit).
// Инвариант: одно намерение — максимум один не-терминальный ордер.
func (l *Ledger) Open(ctx context.Context, o *models.Order) error {
	if cid, ok := l.byIntent[o.Intent]; ok {
		if ex := l.active[cid]; ex != nil && !ex.Status.Terminal() {
			return fmt.Errorf("ledger: intent %q already has active order %s (%s)",
				o.Intent, cid, ex.Status)
		}
	}
	o.Status = models.StatusPendingSubmit
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt

	l.active[o.ClientOrderID] = o
	l.byIntent[o.Intent] = o.ClientOrderID
	return l.persistOrder(ctx, o)
}

// ApplyAck — биржа подтвердила приём ордера.
func (l *Ledger) ApplyAck(ctx context.Context, clientOrderID string, exchangeOrderID int64) error {
	o, ok := l.active[clientOrderID]
	if !ok {
		return fmt.Errorf("ledger: ack for unknown order %s", clientOrderID)
	}
	o.ExchangeOrderID = exchangeOrderID
	if o.Status == models.StatusPendingSubmit || o.Status == models.StatusUnknown {
		o.Status = models.StatusSubmitted
	}
	o.UpdatedAt = time.Now()
	return l.persistOrder(ctx, o)
}

// MarkStatus — перевод статуса без филла (cancelled, rejected, unknown...).
func (l *Ledger) MarkStatus(ctx context.Context, clientOrderID string, st models.OrderStatus) error {
	o, ok := l.active[clientOrderID]
	if !ok {
		return fmt.Errorf("ledger: status %s for unknown order %s", st, clientOrderID)
	}
	o.Status = st
	o.UpdatedAt = time.Now()
	if err := l.persistOrder(ctx, o); err != nil {
		return err
	}
	if st.Terminal() {
		l.retire(o)
	}
	return nil
}

// ApplyFill — применяем исполнение. Идемпотентно: один и тот же филл,
// пришедший дважды (at-least-once доставка), меняет позицию ровно один раз.
func (l *Ledger) ApplyFill(ctx context.Context, rep models.ExecReport) (bool, error) {
	o, ok := l.active[rep.ClientOrderID]
	if !ok {
		// филл по уже закрытому/чужому ордеру — дубль, игнорируем с трейсом
		log.Printf("[LEDGER] %s: fill for inactive order %s, ignored", l.symbol, rep.ClientOrderID)
		return false, nil
	}

	var deltaQty, fillPx float64
	if rep.TradeID != 0 {
		// поштучный филл из user-data стрима
		key := fmt.Sprintf("%s|%d", rep.ClientOrderID, rep.TradeID)
		if _, dup := l.seenFills[key]; dup {
			return false, nil
		}
		l.seenFills[key] = struct{}{}
		deltaQty = rep.LastFillQty
		fillPx = rep.LastFillPrice
	} else {
		// кумулятивный снапшот (REST query / реконсиляция)
		deltaQty = rep.CumFilledQty - o.FilledQty
		fillPx = rep.AvgFillPrice
	}
	if deltaQty <= 0 {
		// ничего нового; но статус мог докатиться
		return false, l.adoptStatus(ctx, o, rep)
	}

	o.FilledQty += deltaQty
	if rep.AvgFillPrice > 0 {
		o.AvgFillPrice = rep.AvgFillPrice
	} else if o.AvgFillPrice == 0 {
		o.AvgFillPrice = fillPx
	}
	l.applyToPosition(o.Side, deltaQty, fillPx)
	l.fillCount++

	if err := l.adoptStatus(ctx, o, rep); err != nil {
		return true, err
	}
	if err := l.store.SavePosition(ctx, &l.position); err != nil {
		return true, fmt.Errorf("ledger persist position: %w", err)
	}
	return true, nil
}

func (l *Ledger) adoptStatus(ctx context.Context, o *models.Order, rep models.ExecReport) error {
	if rep.ExchangeOrderID != 0 {
		o.ExchangeOrderID = rep.ExchangeOrderID
	}
	if rep.Status != "" && rep.Status != models.StatusUnknown {
		o.Status = rep.Status
	}
	o.UpdatedAt = time.Now()
	if err := l.persistOrder(ctx, o); err != nil {
		return err
	}
	if o.Status.Terminal() {
		l.retire(o)
	}
	return nil
}

// applyToPosition — знак дельты по стороне; усреднение при наборе,
// реализованный PnL при сокращении.
func (l *Ledger) applyToPosition(side models.Side, qty, px float64) {
	d := decimal.NewFromFloat(qty)
	if side == models.SideSell {
		d = d.Neg()
	}
	p := decimal.NewFromFloat(px)

	cur := l.position.Qty
	switch {
	case cur.IsZero() || cur.Sign() == d.Sign():
		// набор позиции — средневзвешенный вход
		newQty := cur.Add(d)
		if !newQty.IsZero() {
			l.position.AvgEntry = cur.Abs().Mul(l.position.AvgEntry).
				Add(d.Abs().Mul(p)).
				Div(newQty.Abs())
		}
		l.position.Qty = newQty

	default:
		// сокращение/разворот: закрываем не больше, чем есть
		closed := decimal.Min(cur.Abs(), d.Abs())
		pnl := p.Sub(l.position.AvgEntry).Mul(closed)
		if cur.Sign() < 0 {
			pnl = pnl.Neg()
		}
		l.position.RealizedPnL = l.position.RealizedPnL.Add(pnl)

		newQty := cur.Add(d)
		l.position.Qty = newQty
		if newQty.IsZero() {
			l.position.AvgEntry = decimal.Zero
		} else if newQty.Sign() != cur.Sign() {
			// развернулись — остаток открыт по цене филла
			l.position.AvgEntry = p
		}
	}
	l.position.UpdatedAt = time.Now()
}

func (l *Ledger) retire(o *models.Order) {
	delete(l.active, o.ClientOrderID)
	if l.byIntent[o.Intent] == o.ClientOrderID {
		delete(l.byIntent, o.Intent)
	}
}

func (l *Ledger) persistOrder(ctx context.Context, o *models.Order) error {
	if err := l.store.SaveOrder(ctx, o); err != nil {
		return fmt.Errorf("ledger persist order %s: %w", o.ClientOrderID, err)
	}
	return nil
}

// ActiveByIntent — активный ордер намерения, nil если нет.
func (l *Ledger) ActiveByIntent(intent models.Intent) *models.Order {
	cid, ok := l.byIntent[intent]
	if !ok {
		return nil
	}
	return l.active[cid]
}

// HasUnknown — есть ли ордера в UNKNOWN. Пока есть — новые ордера
// по символу не выставляются.
func (l *Ledger) HasUnknown() bool {
	for _, o := range l.active {
		if o.Status == models.StatusUnknown {
			return true
		}
	}
	return false
}

// UnknownOrders — для реконсиляции.
func (l *Ledger) UnknownOrders() []*models.Order {
	var out []*models.Order
	for _, o := range l.active {
		if o.Status == models.StatusUnknown {
			out = append(out, o)
		}
	}
	return out
}

// ActiveOrders — все не-терминальные.
func (l *Ledger) ActiveOrders() []*models.Order {
	out := make([]*models.Order, 0, len(l.active))
	for _, o := range l.active {
		out = append(out, o)
	}
	return out
}

func (l *Ledger) Position() models.Position { return l.position }

// TakeFillCount — счётчик филлов для дневной сводки, сбрасывается при чтении.
func (l *Ledger) TakeFillCount() int {
	n := l.fillCount
	l.fillCount = 0
	return n
}

func (l *Ledger) SetNeedsReconcile(ctx context.Context, v bool) error {
	return l.store.SetNeedsReconcile(ctx, l.symbol, v)
}
