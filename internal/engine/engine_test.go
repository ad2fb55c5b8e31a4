package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"breakout_bot/internal/ledger"
	"breakout_bot/internal/models"
	gw "breakout_bot/internal/modules/binance_client/service"
	"breakout_bot/internal/strategy"
)

// --- фейки ---

type memStore struct {
	orders    map[string]*models.Order
	positions map[string]*models.Position
	needs     map[string]bool
	saves     []models.Order // история записей, по порядку
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[string]*models.Order),
		positions: make(map[string]*models.Position),
		needs:     make(map[string]bool),
	}
}

func (m *memStore) SaveOrder(_ context.Context, o *models.Order) error {
	cp := *o
	m.orders[o.ClientOrderID] = &cp
	m.saves = append(m.saves, cp)
	return nil
}
func (m *memStore) SavePosition(_ context.Context, p *models.Position) error {
	cp := *p
	m.positions[p.Symbol] = &cp
	return nil
}
func (m *memStore) LoadActiveOrders(context.Context, string) ([]*models.Order, error) {
	return nil, nil
}
func (m *memStore) LoadPosition(context.Context, string) (*models.Position, error) {
	return nil, nil
}
func (m *memStore) SetNeedsReconcile(_ context.Context, symbol string, v bool) error {
	m.needs[symbol] = v
	return nil
}
func (m *memStore) NeedsReconcile(_ context.Context, symbol string) (bool, error) {
	return m.needs[symbol], nil
}

type fakeGateway struct {
	submits   []models.Order
	cancels   []string
	submitErr error
	queryRep  models.ExecReport
	queryErr  error
	posQty    float64
	posEntry  float64
}

func (g *fakeGateway) Submit(_ context.Context, o *models.Order) (models.ExecReport, error) {
	g.submits = append(g.submits, *o)
	if g.submitErr != nil {
		return models.ExecReport{}, g.submitErr
	}
	return models.ExecReport{
		Symbol:          o.Symbol,
		ClientOrderID:   o.ClientOrderID,
		ExchangeOrderID: int64(len(g.submits)),
		Status:          models.StatusSubmitted,
	}, nil
}
func (g *fakeGateway) Cancel(_ context.Context, _, cid string) (models.ExecReport, error) {
	g.cancels = append(g.cancels, cid)
	return models.ExecReport{ClientOrderID: cid, Status: models.StatusCancelled}, nil
}
func (g *fakeGateway) Query(context.Context, string, string) (models.ExecReport, error) {
	return g.queryRep, g.queryErr
}
func (g *fakeGateway) OpenOrders(context.Context, string) ([]models.ExecReport, error) {
	return nil, nil
}
func (g *fakeGateway) PositionRisk(context.Context, string) (float64, float64, error) {
	return g.posQty, g.posEntry, nil
}
func (g *fakeGateway) SetLeverage(context.Context, string, int) error { return nil }
func (g *fakeGateway) SymbolInfo(context.Context, string) (gw.SymbolMeta, error) {
	return gw.SymbolMeta{TickSize: 0.5, StepSize: 0.001}, nil
}

type memNotify struct{ events []models.NotifyEvent }

func (n *memNotify) Publish(ev models.NotifyEvent) { n.events = append(n.events, ev) }

func (n *memNotify) count(t models.NotifyType) int {
	c := 0
	for _, ev := range n.events {
		if ev.Type == t {
			c++
		}
	}
	return c
}

// --- хелперы ---

func newTestRunner(g Gateway) (*Runner, *ledger.Ledger, *memNotify) {
	led := ledger.New("BTCUSDT", newMemStore())
	strat := strategy.NewBreakout(strategy.Config{Lookback: 4, Coefficient: 0.5})
	n := &memNotify{}
	r := NewRunner("BTCUSDT", Params{
		OrderQty:     1,
		Leverage:     5,
		EntryHorizon: 3 * time.Minute,
	}, g, led, strat, n)
	return r, led, n
}

var base = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// flatCandle — окно без движения: high 101, low 99, close 100.
// Порог пробоя при K=0.5: 100 ± 0.5*(101-99) => up 101, down 99.
func flatCandle(i int) models.Candle {
	open := base.Add(time.Duration(i) * time.Minute)
	return models.Candle{
		Symbol: "BTCUSDT", Open: 100, High: 101, Low: 99, Close: 100,
		OpenTime: open, CloseTime: open.Add(time.Minute), Timeframe: "1m",
	}
}

func breakoutCandle(i int) models.Candle {
	c := flatCandle(i)
	c.High, c.Close = 102, 101.5
	return c
}

// --- тесты ---

// Полный цикл: пробой -> лимитка входа -> фил -> защитный стоп ->
// фил стопа -> плоско, PnL реализован.
func TestBreakoutFullCycle(t *testing.T) {
	g := &fakeGateway{}
	r, led, n := newTestRunner(g)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		r.onCandle(ctx, flatCandle(i))
	}
	if len(g.submits) != 0 {
		t.Fatalf("order before breakout: %+v", g.submits)
	}

	r.onCandle(ctx, breakoutCandle(4))
	if len(g.submits) != 1 {
		t.Fatalf("submits after breakout: %d", len(g.submits))
	}
	entry := g.submits[0]
	if entry.Intent != models.IntentEntry || entry.Side != models.SideBuy || entry.Type != models.OrderLimit {
		t.Fatalf("entry order: %+v", entry)
	}
	if entry.Price != 101.5 {
		t.Errorf("entry price: %v", entry.Price)
	}

	// фил входа из user-data стрима
	r.onReport(ctx, models.ExecReport{
		Symbol: "BTCUSDT", ClientOrderID: entry.ClientOrderID,
		Status: models.StatusFilled, TradeID: 1,
		LastFillQty: 1, LastFillPrice: 101.5, CumFilledQty: 1, AvgFillPrice: 101.5,
	})
	if len(g.submits) != 2 {
		t.Fatalf("no protective stop after entry fill: %d submits", len(g.submits))
	}
	stop := g.submits[1]
	if stop.Intent != models.IntentStop || stop.Side != models.SideSell || stop.Type != models.OrderStopMarket {
		t.Fatalf("stop order: %+v", stop)
	}
	if stop.Price != 99 {
		t.Errorf("stop price: %v (want window low)", stop.Price)
	}
	if n.count(models.NotifyEntryFilled) != 1 {
		t.Errorf("entry notifications: %d", n.count(models.NotifyEntryFilled))
	}

	// стоп сработал
	r.onReport(ctx, models.ExecReport{
		Symbol: "BTCUSDT", ClientOrderID: stop.ClientOrderID,
		Status: models.StatusFilled, TradeID: 2,
		LastFillQty: 1, LastFillPrice: 99, CumFilledQty: 1, AvgFillPrice: 99,
	})
	if !led.Position().Flat() {
		t.Fatalf("position after stop fill: %s", led.Position().Qty)
	}
	if n.count(models.NotifyExitFilled) != 1 {
		t.Errorf("exit notifications: %d", n.count(models.NotifyExitFilled))
	}
	if led.ActiveByIntent(models.IntentEntry) != nil || led.ActiveByIntent(models.IntentStop) != nil {
		t.Error("orders still active after full cycle")
	}
}

// Вход набирается частями: после первого частичного фила стоп покрывает
// только набранное; каждый следующий фил обязан перевыставить стоп
// (cancel/replace) на полный объём позиции.
func TestPartialFillsResizeStop(t *testing.T) {
	g := &fakeGateway{}
	store := newMemStore()
	led := ledger.New("BTCUSDT", store)
	strat := strategy.NewBreakout(strategy.Config{Lookback: 4, Coefficient: 0.5})
	n := &memNotify{}
	r := NewRunner("BTCUSDT", Params{OrderQty: 1, Leverage: 5, EntryHorizon: 3 * time.Minute}, g, led, strat, n)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		r.onCandle(ctx, flatCandle(i))
	}
	r.onCandle(ctx, breakoutCandle(4))
	if len(g.submits) != 1 {
		t.Fatalf("submits after breakout: %d", len(g.submits))
	}
	entry := g.submits[0]

	// первый частичный фил — стоп встаёт на набранные 0.4
	r.onReport(ctx, models.ExecReport{
		Symbol: "BTCUSDT", ClientOrderID: entry.ClientOrderID,
		Status: models.StatusPartiallyFilled, TradeID: 1,
		LastFillQty: 0.4, LastFillPrice: 101.5, CumFilledQty: 0.4, AvgFillPrice: 101.5,
	})
	if len(g.submits) != 2 {
		t.Fatalf("no stop after partial fill: %d submits", len(g.submits))
	}
	stop1 := g.submits[1]
	if stop1.Intent != models.IntentStop || stop1.Quantity != 0.4 {
		t.Fatalf("first stop: %+v", stop1)
	}

	// вход добрался до полного объёма — старый стоп снимается,
	// новый покрывает всю позицию
	r.onReport(ctx, models.ExecReport{
		Symbol: "BTCUSDT", ClientOrderID: entry.ClientOrderID,
		Status: models.StatusFilled, TradeID: 2,
		LastFillQty: 0.6, LastFillPrice: 101.5, CumFilledQty: 1, AvgFillPrice: 101.5,
	})
	if len(g.cancels) != 1 || g.cancels[0] != stop1.ClientOrderID {
		t.Fatalf("undersized stop not cancelled: %v", g.cancels)
	}
	if len(g.submits) != 3 {
		t.Fatalf("no replacement stop: %d submits", len(g.submits))
	}
	stop2 := g.submits[2]
	if stop2.Intent != models.IntentStop || stop2.Side != models.SideSell {
		t.Fatalf("replacement stop: %+v", stop2)
	}
	if stop2.Quantity != 1 {
		t.Errorf("replacement stop quantity: %v (want full position)", stop2.Quantity)
	}
	if stop2.Price != 99 {
		t.Errorf("replacement stop price: %v", stop2.Price)
	}

	// перед отменой старый стоп проходит через PENDING_CANCEL в сторе
	var sawPending bool
	for _, s := range store.saves {
		if s.ClientOrderID == stop1.ClientOrderID && s.Status == models.StatusPendingCancel {
			sawPending = true
		}
	}
	if !sawPending {
		t.Error("stop replacement skipped pending-cancel state")
	}

	// актуальный стоп ровно один
	if act := led.ActiveByIntent(models.IntentStop); act == nil || act.ClientOrderID != stop2.ClientOrderID {
		t.Errorf("active stop: %+v", act)
	}
}

// Вход не исполнился за горизонт — снимается, намерение свободно.
func TestEntryHorizonCancels(t *testing.T) {
	g := &fakeGateway{}
	r, led, _ := newTestRunner(g)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		r.onCandle(ctx, flatCandle(i))
	}
	r.onCandle(ctx, breakoutCandle(4))
	if len(g.submits) != 1 {
		t.Fatalf("submits: %d", len(g.submits))
	}

	r.entryDeadline = time.Now().Add(-time.Second)
	r.checkEntryHorizon(ctx)

	if len(g.cancels) != 1 {
		t.Fatalf("cancels: %d", len(g.cancels))
	}
	if led.ActiveByIntent(models.IntentEntry) != nil {
		t.Error("entry intent not freed after horizon cancel")
	}
}

// Таймаут сабмита: ордер в UNKNOWN, символ замирает — повторный сигнал
// не рождает второй ордер, пока сверка не разрешит судьбу первого.
func TestAmbiguousSubmitPausesSymbol(t *testing.T) {
	g := &fakeGateway{submitErr: &gw.Error{Kind: gw.KindAmbiguous, Err: errors.New("timeout")}}
	r, led, n := newTestRunner(g)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		r.onCandle(ctx, flatCandle(i))
	}
	r.onCandle(ctx, breakoutCandle(4))
	if len(g.submits) != 1 {
		t.Fatalf("submits: %d", len(g.submits))
	}
	if !led.HasUnknown() {
		t.Fatal("order not in unknown after ambiguous submit")
	}
	if n.count(models.NotifyError) == 0 {
		t.Error("operator not notified about unknown order")
	}

	// ещё один пробой (уже с учётом расширившегося окна) — новых ордеров
	// быть не должно
	next := flatCandle(5)
	next.High, next.Close = 105, 104.5
	r.onCandle(ctx, next)
	if len(g.submits) != 1 {
		t.Fatalf("order submitted while unknown pending: %d", len(g.submits))
	}

	// сверка: биржа ордера не видела — намерение освобождено
	g.queryErr = &gw.Error{Kind: gw.KindRejected, Code: -2013, Err: errors.New("Order does not exist")}
	if err := r.reconcile(ctx); err != nil {
		t.Fatal(err)
	}
	if led.HasUnknown() {
		t.Error("unknown survived reconcile")
	}
}

// Отказ биржи терминален: без ретраев, намерение свободно сразу.
func TestRejectedSubmitFreesIntent(t *testing.T) {
	g := &fakeGateway{submitErr: &gw.Error{Kind: gw.KindRejected, Code: -2019, Err: errors.New("margin is insufficient")}}
	r, led, n := newTestRunner(g)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		r.onCandle(ctx, flatCandle(i))
	}
	r.onCandle(ctx, breakoutCandle(4))

	if len(g.submits) != 1 {
		t.Fatalf("submits: %d", len(g.submits))
	}
	if led.ActiveByIntent(models.IntentEntry) != nil {
		t.Error("rejected entry still holds the intent")
	}
	if n.count(models.NotifyError) == 0 {
		t.Error("rejection not surfaced to operator")
	}
}

// Дырка в фиде инвалидирует окно: сигналов нет, пока оно не накопится заново.
func TestGapInvalidatesWindow(t *testing.T) {
	g := &fakeGateway{}
	r, _, n := newTestRunner(g)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		r.onCandle(ctx, flatCandle(i))
	}
	r.onGap(ctx, &models.GapEvent{Symbol: "BTCUSDT", LastSeen: base.Add(3 * time.Minute), Err: errors.New("backfill failed")})

	// свеча с пробойным закрытием сразу после дырки — окно ещё холодное
	r.onCandle(ctx, breakoutCandle(10))
	if len(g.submits) != 0 {
		t.Fatalf("order on cold window: %d", len(g.submits))
	}
	if n.count(models.NotifyError) == 0 {
		t.Error("gap not surfaced to operator")
	}
}
