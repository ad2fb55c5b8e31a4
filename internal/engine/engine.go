package engine

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"breakout_bot/internal/helper"
	"breakout_bot/internal/ledger"
	"breakout_bot/internal/models"
	gw "breakout_bot/internal/modules/binance_client/service"
	"breakout_bot/internal/strategy"
)

// Gateway — то, что движку нужно от биржи. Реализует binance_client.
type Gateway interface {
	Submit(ctx context.Context, o *models.Order) (models.ExecReport, error)
	Cancel(ctx context.Context, symbol, clientOrderID string) (models.ExecReport, error)
	Query(ctx context.Context, symbol, clientOrderID string) (models.ExecReport, error)
	OpenOrders(ctx context.Context, symbol string) ([]models.ExecReport, error)
	PositionRisk(ctx context.Context, symbol string) (qty, entry float64, err error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SymbolInfo(ctx context.Context, symbol string) (gw.SymbolMeta, error)
}

// Notifier — best-effort канал к человеку. Движок никогда на него не ждёт.
type Notifier interface {
	Publish(ev models.NotifyEvent)
}

// Params — общие параметры исполнения, вынесены из конфига.
type Params struct {
	OrderQty          float64
	Leverage          int
	EntryHorizon      time.Duration
	ReconcileInterval time.Duration
	DailySummaryHour  int
}

// Runner — движок одного символа: single-writer над своим леджером.
// Все события (свечи, исполнения, таймеры) сериализуются в одной горутине,
// поэтому гонок по состоянию нет по построению.
type Runner struct {
	symbol string
	params Params

	gateway Gateway
	led     *ledger.Ledger
	strat   *strategy.Breakout
	notify  Notifier

	window []models.Candle
	meta   gw.SymbolMeta

	// стоп активного сигнала; живёт от входа до выхода
	stopPx float64
	// дедлайн фила входа; нулевое время = входа нет
	entryDeadline time.Time

	lastSummaryDay int
}

func NewRunner(symbol string, p Params, g Gateway, l *ledger.Ledger, s *strategy.Breakout, n Notifier) *Runner {
	return &Runner{
		symbol:         symbol,
		params:         p,
		gateway:        g,
		led:            l,
		strat:          s,
		notify:         n,
		lastSummaryDay: -1,
	}
}

// Seed — прогрев окна историей до старта стрима.
func (r *Runner) Seed(candles []models.Candle) {
	r.window = append(r.window[:0], candles...)
	r.trimWindow()
}

// Run — жизненный цикл символа. На старте: restore -> leverage -> сверка
// с биржей, локальной памяти не доверяем. Дальше цикл событий.
// На останове помечаем символ как требующий сверки: следующий запуск
// обязан начать с реконсиляции.
func (r *Runner) Run(ctx context.Context, feed <-chan models.FeedEvent, reports <-chan models.ExecReport) {
	if err := r.led.Restore(ctx); err != nil {
		log.Printf("[ENGINE] %s: restore: %v — stopping", r.symbol, err)
		r.notifyErr("restore failed: %v", err)
		return
	}
	if err := r.gateway.SetLeverage(ctx, r.symbol, r.params.Leverage); err != nil {
		log.Printf("[ENGINE] %s: set leverage: %v", r.symbol, err)
	}
	if meta, err := r.gateway.SymbolInfo(ctx, r.symbol); err != nil {
		log.Printf("[ENGINE] %s: symbol filters: %v — prices go unrounded", r.symbol, err)
	} else {
		r.meta = meta
	}
	if err := r.reconcile(ctx); err != nil {
		log.Printf("[ENGINE] %s: startup reconcile: %v — stopping", r.symbol, err)
		r.notifyErr("startup reconcile failed: %v", err)
		return
	}
	log.Printf("[ENGINE] %s: started, %s", r.symbol, r.strat.Dump(r.window))

	recon := time.NewTicker(r.params.ReconcileInterval)
	defer recon.Stop()
	house := time.NewTicker(15 * time.Second)
	defer house.Stop()

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return

		case ev, ok := <-feed:
			if !ok {
				r.shutdown()
				return
			}
			if ev.Gap != nil {
				r.onGap(ctx, ev.Gap)
			}
			if ev.Candle != nil {
				r.onCandle(ctx, *ev.Candle)
			}

		case rep, ok := <-reports:
			if !ok {
				reports = nil
				continue
			}
			r.onReport(ctx, rep)

		case <-recon.C:
			if err := r.reconcile(ctx); err != nil {
				log.Printf("[ENGINE] %s: reconcile: %v", r.symbol, err)
			}

		case <-house.C:
			r.checkEntryHorizon(ctx)
			r.maybeDailySummary()
		}
	}
}

func (r *Runner) shutdown() {
	// контекст приложения уже умер, флаг пишем на отдельном
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.led.SetNeedsReconcile(ctx, true); err != nil {
		log.Printf("[ENGINE] %s: shutdown flag: %v", r.symbol, err)
	}
	log.Printf("[ENGINE] %s: stopped", r.symbol)
}

// onGap — фид деградировал и дырку закрыть не смог. Окно инвалидировано:
// сигналов не будет, пока не накопится новое. Позиция и стоп живут дальше.
func (r *Runner) onGap(_ context.Context, gap *models.GapEvent) {
	log.Printf("[ENGINE] %s: feed gap after %s: %v — window invalidated",
		r.symbol, gap.LastSeen.Format(time.RFC3339), gap.Err)
	r.window = r.window[:0]
	r.notifyErr("feed gap, window invalidated: %v", gap.Err)
}

func (r *Runner) onCandle(ctx context.Context, c models.Candle) {
	r.window = append(r.window, c)
	r.trimWindow()

	sig := r.strat.Evaluate(r.window)
	if sig.IsNone() {
		return
	}
	log.Printf("[ENGINE] %s: signal %s: %s", r.symbol, sig.Direction, sig.Reason)

	if r.led.HasUnknown() {
		// пока судьба хоть одного ордера неизвестна, новых не выставляем
		log.Printf("[ENGINE] %s: signal skipped, unknown order pending reconcile", r.symbol)
		return
	}

	pos := r.led.Position()
	switch {
	case !pos.Flat() && opposite(pos, sig.Direction):
		r.startExit(ctx, "opposite signal")

	case pos.Flat() && r.led.ActiveByIntent(models.IntentEntry) == nil &&
		r.led.ActiveByIntent(models.IntentExit) == nil:
		r.placeEntry(ctx, sig)

	default:
		log.Printf("[ENGINE] %s: signal skipped, order in flight or position open", r.symbol)
	}
}

// placeEntry — лимитка по цене сигнала. ClientOrderID генерируется до
// сетевого вызова; при любом повторе биржа увидит тот же ключ.
func (r *Runner) placeEntry(ctx context.Context, sig models.Signal) {
	side := models.SideBuy
	if sig.Direction == models.DirShort {
		side = models.SideSell
	}
	o := &models.Order{
		ClientOrderID: newClientOrderID(r.symbol, models.IntentEntry),
		Symbol:        r.symbol,
		Intent:        models.IntentEntry,
		Side:          side,
		Type:          models.OrderLimit,
		Quantity:      r.roundQty(r.params.OrderQty),
		Price:         r.roundPrice(side, sig.TriggerPx),
	}
	if err := r.led.Open(ctx, o); err != nil {
		log.Printf("[ENGINE] %s: open entry: %v", r.symbol, err)
		return
	}
	r.stopPx = sig.StopPx
	r.entryDeadline = time.Now().Add(r.params.EntryHorizon)

	r.submit(ctx, o)
}

// submit — общий путь выставления с разбором исхода по Kind.
func (r *Runner) submit(ctx context.Context, o *models.Order) {
	rep, err := r.gateway.Submit(ctx, o)
	switch {
	case err == nil:
		if aerr := r.led.ApplyAck(ctx, o.ClientOrderID, rep.ExchangeOrderID); aerr != nil {
			log.Printf("[ENGINE] %s: ack: %v", r.symbol, aerr)
		}
		if rep.CumFilledQty > 0 || rep.Status.Terminal() {
			r.adoptFill(ctx, rep)
		}
		log.Printf("[ENGINE] %s: %s %s submitted (%s)", r.symbol, o.Intent, o.ClientOrderID, rep.Status)

	case gw.IsAmbiguous(err):
		// запрос мог дойти. Ордер в UNKNOWN, символ замирает до сверки.
		log.Printf("[ENGINE] %s: %s %s ambiguous: %v", r.symbol, o.Intent, o.ClientOrderID, err)
		if merr := r.led.MarkStatus(ctx, o.ClientOrderID, models.StatusUnknown); merr != nil {
			log.Printf("[ENGINE] %s: mark unknown: %v", r.symbol, merr)
		}
		if ferr := r.led.SetNeedsReconcile(ctx, true); ferr != nil {
			log.Printf("[ENGINE] %s: needs-reconcile flag: %v", r.symbol, ferr)
		}
		r.notifyErr("%s order %s in UNKNOWN, awaiting reconcile", o.Intent, o.ClientOrderID)

	case gw.KindOf(err) == gw.KindRejected:
		log.Printf("[ENGINE] %s: %s %s rejected: %v", r.symbol, o.Intent, o.ClientOrderID, err)
		if merr := r.led.MarkStatus(ctx, o.ClientOrderID, models.StatusRejected); merr != nil {
			log.Printf("[ENGINE] %s: mark rejected: %v", r.symbol, merr)
		}
		r.notifyErr("%s order rejected: %v", o.Intent, err)

	default:
		// transient/rate-limit исчерпали ретраи, но ответ биржи мы ВИДЕЛИ —
		// ордер не создан, намерение свободно
		log.Printf("[ENGINE] %s: %s %s failed: %v", r.symbol, o.Intent, o.ClientOrderID, err)
		if merr := r.led.MarkStatus(ctx, o.ClientOrderID, models.StatusCancelled); merr != nil {
			log.Printf("[ENGINE] %s: mark cancelled: %v", r.symbol, merr)
		}
	}
}

// onReport — исполнение из user-data стрима. Применяем к леджеру
// (идемпотентно) и доводим машину состояний.
func (r *Runner) onReport(ctx context.Context, rep models.ExecReport) {
	intent := r.intentOf(rep.ClientOrderID)

	if _, err := r.led.ApplyFill(ctx, rep); err != nil {
		log.Printf("[ENGINE] %s: apply fill: %v", r.symbol, err)
		return
	}
	r.converge(ctx, intent, rep)
}

// adoptFill — то же, что onReport, но для снапшота из REST-ответа.
func (r *Runner) adoptFill(ctx context.Context, rep models.ExecReport) {
	intent := r.intentOf(rep.ClientOrderID)
	if _, err := r.led.ApplyFill(ctx, rep); err != nil {
		log.Printf("[ENGINE] %s: adopt fill: %v", r.symbol, err)
		return
	}
	r.converge(ctx, intent, rep)
}

// converge — после каждого применённого события доводим реальность
// до желаемой: у позиции должен быть стоп, у плоского символа — ничего.
func (r *Runner) converge(ctx context.Context, intent models.Intent, rep models.ExecReport) {
	pos := r.led.Position()

	if rep.Status == models.StatusFilled {
		switch intent {
		case models.IntentEntry:
			r.entryDeadline = time.Time{}
			log.Printf("[ENGINE] %s: entry filled qty=%.8f avg=%.8f", r.symbol, rep.CumFilledQty, rep.AvgFillPrice)
			r.notify.Publish(models.NotifyEvent{
				Type: models.NotifyEntryFilled, Symbol: r.symbol, At: time.Now(),
				Payload: fmt.Sprintf("вход исполнен: qty=%.8f avg=%.8f stop=%.8f",
					rep.CumFilledQty, rep.AvgFillPrice, r.stopPx),
			})

		case models.IntentStop, models.IntentExit:
			r.stopPx = 0
			log.Printf("[ENGINE] %s: %s filled, position %s, realized pnl %s",
				r.symbol, intent, pos.Qty, pos.RealizedPnL)
			r.notify.Publish(models.NotifyEvent{
				Type: models.NotifyExitFilled, Symbol: r.symbol, At: time.Now(),
				Payload: fmt.Sprintf("выход исполнен @%.8f, realized PnL %s", rep.AvgFillPrice, pos.RealizedPnL),
			})
		}
	}

	if !pos.Flat() {
		r.ensureStop(ctx)
	} else if stop := r.led.ActiveByIntent(models.IntentStop); stop != nil && stop.Status == models.StatusSubmitted {
		// позиция закрыта не стопом — стоп больше не нужен
		if merr := r.led.MarkStatus(ctx, stop.ClientOrderID, models.StatusPendingCancel); merr != nil {
			log.Printf("[ENGINE] %s: mark stop pending-cancel: %v", r.symbol, merr)
		}
		if _, err := r.gateway.Cancel(ctx, r.symbol, stop.ClientOrderID); err != nil {
			log.Printf("[ENGINE] %s: cancel dangling stop: %v", r.symbol, err)
		} else if merr := r.led.MarkStatus(ctx, stop.ClientOrderID, models.StatusCancelled); merr != nil {
			log.Printf("[ENGINE] %s: mark stop cancelled: %v", r.symbol, merr)
		}
	}
}

// ensureStop — у открытой позиции всегда должен стоять защитный стоп,
// покрывающий её целиком. Если позиция доросла частичными филлами входа
// после постановки стопа, действующий стоп снимается и перевыставляется
// на полный объём (cancel/replace).
func (r *Runner) ensureStop(ctx context.Context) {
	if r.led.ActiveByIntent(models.IntentExit) != nil {
		return
	}
	pos := r.led.Position()
	if pos.Flat() {
		return
	}
	want := r.roundQty(pos.Qty.Abs().InexactFloat64())

	if stop := r.led.ActiveByIntent(models.IntentStop); stop != nil {
		if stop.Quantity >= want {
			return
		}
		log.Printf("[ENGINE] %s: stop %s covers %.8f of %.8f, replacing",
			r.symbol, stop.ClientOrderID, stop.Quantity, want)
		if merr := r.led.MarkStatus(ctx, stop.ClientOrderID, models.StatusPendingCancel); merr != nil {
			log.Printf("[ENGINE] %s: mark stop pending-cancel: %v", r.symbol, merr)
		}
		if _, err := r.gateway.Cancel(ctx, r.symbol, stop.ClientOrderID); err != nil {
			if gw.IsAmbiguous(err) {
				_ = r.led.MarkStatus(ctx, stop.ClientOrderID, models.StatusUnknown)
				_ = r.led.SetNeedsReconcile(ctx, true)
				r.notifyErr("stop cancel ambiguous, awaiting reconcile")
				return
			}
			// rejected = стоп уже финализировался на бирже; правду принесёт
			// стрим или сверка
			log.Printf("[ENGINE] %s: replace stop: %v", r.symbol, err)
			return
		}
		if merr := r.led.MarkStatus(ctx, stop.ClientOrderID, models.StatusCancelled); merr != nil {
			log.Printf("[ENGINE] %s: mark stop cancelled: %v", r.symbol, merr)
		}
	}

	if r.stopPx <= 0 {
		// позиция без известного стопа (рестарт между филом входа и
		// постановкой стопа) — сами цену не выдумываем
		log.Printf("[ENGINE] %s: position without stop price — operator attention needed", r.symbol)
		r.notifyErr("position %s without protective stop", pos.Qty)
		return
	}

	side := models.SideSell
	if pos.Qty.Sign() < 0 {
		side = models.SideBuy
	}
	o := &models.Order{
		ClientOrderID: newClientOrderID(r.symbol, models.IntentStop),
		Symbol:        r.symbol,
		Intent:        models.IntentStop,
		Side:          side,
		Type:          models.OrderStopMarket,
		Quantity:      want,
		Price:         r.roundPrice(side, r.stopPx),
	}
	if err := r.led.Open(ctx, o); err != nil {
		log.Printf("[ENGINE] %s: open stop: %v", r.symbol, err)
		return
	}
	r.submit(ctx, o)
}

// startExit — принудительное закрытие по рынку: сначала снимаем стоп,
// потом маркет на весь объём.
func (r *Runner) startExit(ctx context.Context, why string) {
	pos := r.led.Position()
	if pos.Flat() || r.led.ActiveByIntent(models.IntentExit) != nil {
		return
	}
	log.Printf("[ENGINE] %s: closing position (%s)", r.symbol, why)

	if stop := r.led.ActiveByIntent(models.IntentStop); stop != nil {
		if merr := r.led.MarkStatus(ctx, stop.ClientOrderID, models.StatusPendingCancel); merr != nil {
			log.Printf("[ENGINE] %s: mark stop pending-cancel: %v", r.symbol, merr)
		}
		if _, err := r.gateway.Cancel(ctx, r.symbol, stop.ClientOrderID); err != nil {
			if gw.IsAmbiguous(err) {
				_ = r.led.MarkStatus(ctx, stop.ClientOrderID, models.StatusUnknown)
				_ = r.led.SetNeedsReconcile(ctx, true)
				r.notifyErr("stop cancel ambiguous, awaiting reconcile")
				return
			}
			// rejected = стоп уже финализировался на бирже; правду принесёт
			// стрим или сверка, выходить поверх него нельзя
			log.Printf("[ENGINE] %s: cancel stop: %v", r.symbol, err)
			return
		}
		if err := r.led.MarkStatus(ctx, stop.ClientOrderID, models.StatusCancelled); err != nil {
			log.Printf("[ENGINE] %s: mark stop cancelled: %v", r.symbol, err)
		}
	}

	side := models.SideSell
	if pos.Qty.Sign() < 0 {
		side = models.SideBuy
	}
	o := &models.Order{
		ClientOrderID: newClientOrderID(r.symbol, models.IntentExit),
		Symbol:        r.symbol,
		Intent:        models.IntentExit,
		Side:          side,
		Type:          models.OrderMarket,
		Quantity:      r.roundQty(pos.Qty.Abs().InexactFloat64()),
	}
	if err := r.led.Open(ctx, o); err != nil {
		log.Printf("[ENGINE] %s: open exit: %v", r.symbol, err)
		return
	}
	r.submit(ctx, o)
}

// checkEntryHorizon — вход, не исполнившийся за горизонт, снимается:
// пробой уже не тот, догонять цену лимиткой бессмысленно.
func (r *Runner) checkEntryHorizon(ctx context.Context) {
	if r.entryDeadline.IsZero() || time.Now().Before(r.entryDeadline) {
		return
	}
	entry := r.led.ActiveByIntent(models.IntentEntry)
	if entry == nil {
		r.entryDeadline = time.Time{}
		return
	}
	if entry.Status != models.StatusSubmitted && entry.Status != models.StatusPartiallyFilled {
		return
	}
	log.Printf("[ENGINE] %s: entry %s not filled within horizon, cancelling", r.symbol, entry.ClientOrderID)

	if merr := r.led.MarkStatus(ctx, entry.ClientOrderID, models.StatusPendingCancel); merr != nil {
		log.Printf("[ENGINE] %s: mark entry pending-cancel: %v", r.symbol, merr)
	}
	rep, err := r.gateway.Cancel(ctx, r.symbol, entry.ClientOrderID)
	if err != nil {
		if gw.IsAmbiguous(err) {
			_ = r.led.MarkStatus(ctx, entry.ClientOrderID, models.StatusUnknown)
			_ = r.led.SetNeedsReconcile(ctx, true)
			r.notifyErr("entry cancel ambiguous, awaiting reconcile")
			return
		}
		// отмена отбита — скорее всего ордер успел исполниться; спрашиваем
		q, qerr := r.gateway.Query(ctx, r.symbol, entry.ClientOrderID)
		if qerr != nil {
			log.Printf("[ENGINE] %s: cancel+query failed: %v / %v", r.symbol, err, qerr)
			return
		}
		rep = q
	}
	r.entryDeadline = time.Time{}
	r.adoptFill(ctx, rep)

	// частичный фил, остаток снят — позиция есть, стоп обязателен
	if !r.led.Position().Flat() {
		r.ensureStop(ctx)
	}
}

// reconcile — биржа как авторитет: точечные запросы по нашим активным
// ордерам + позиция. Чужие открытые ордера с нашим префиксом снимаем.
func (r *Runner) reconcile(ctx context.Context) error {
	snap := ledger.Snapshot{Orders: make(map[string]models.ExecReport)}

	for _, o := range r.led.ActiveOrders() {
		if o.Status == models.StatusPendingSubmit && time.Since(o.CreatedAt) < time.Minute {
			// сабмит прямо сейчас в полёте — не трогаем
			continue
		}
		rep, err := r.gateway.Query(ctx, r.symbol, o.ClientOrderID)
		if err != nil {
			if gw.KindOf(err) == gw.KindRejected {
				continue // биржа такого не знает — ключа в снапшоте не будет
			}
			return fmt.Errorf("reconcile query %s: %w", o.ClientOrderID, err)
		}
		snap.Orders[o.ClientOrderID] = rep
	}

	qty, entry, err := r.gateway.PositionRisk(ctx, r.symbol)
	if err != nil {
		return fmt.Errorf("reconcile position: %w", err)
	}
	snap.PositionQty, snap.PositionEntry = qty, entry

	fixes, err := r.led.Reconcile(ctx, snap)
	if err != nil {
		return err
	}
	if len(fixes) > 0 {
		r.notify.Publish(models.NotifyEvent{
			Type: models.NotifyError, Symbol: r.symbol, At: time.Now(),
			Payload: "reconcile: " + strings.Join(fixes, "; "),
		})
	}

	// осиротевшие ордера с нашим префиксом (потерянный ключ и т.п.) снимаем
	open, err := r.gateway.OpenOrders(ctx, r.symbol)
	if err != nil {
		log.Printf("[ENGINE] %s: reconcile open orders: %v", r.symbol, err)
	} else {
		for _, rep := range open {
			if !ownOrderID(rep.ClientOrderID) {
				continue
			}
			if _, known := snap.Orders[rep.ClientOrderID]; known {
				continue
			}
			if r.intentOf(rep.ClientOrderID) != "" {
				continue
			}
			log.Printf("[ENGINE] %s: stray order %s on exchange, cancelling", r.symbol, rep.ClientOrderID)
			if _, cerr := r.gateway.Cancel(ctx, r.symbol, rep.ClientOrderID); cerr != nil {
				log.Printf("[ENGINE] %s: cancel stray: %v", r.symbol, cerr)
			}
		}
	}

	if !r.led.Position().Flat() {
		r.ensureStop(ctx)
	}
	return nil
}

// maybeDailySummary — раз в сутки (UTC) сводка: позиция, PnL, филлы.
func (r *Runner) maybeDailySummary() {
	now := time.Now().UTC()
	if now.Hour() != r.params.DailySummaryHour || now.YearDay() == r.lastSummaryDay {
		return
	}
	r.lastSummaryDay = now.YearDay()

	pos := r.led.Position()
	fills := r.led.TakeFillCount()
	r.notify.Publish(models.NotifyEvent{
		Type: models.NotifyDailySummary, Symbol: r.symbol, At: now,
		Payload: fmt.Sprintf("позиция %s@%s, realized PnL %s, филлов за сутки: %d",
			pos.Qty, pos.AvgEntry, pos.RealizedPnL, fills),
	})
}

func (r *Runner) intentOf(clientOrderID string) models.Intent {
	for _, o := range r.led.ActiveOrders() {
		if o.ClientOrderID == clientOrderID {
			return o.Intent
		}
	}
	return ""
}

// roundPrice — к тику в безопасную сторону: покупка вниз, продажа вверх.
func (r *Runner) roundPrice(side models.Side, px float64) float64 {
	if side == models.SideBuy {
		return helper.RoundDownToTick(px, r.meta.TickSize)
	}
	return helper.RoundUpToTick(px, r.meta.TickSize)
}

func (r *Runner) roundQty(qty float64) float64 {
	return helper.RoundQtyToStep(qty, r.meta.StepSize)
}

func (r *Runner) trimWindow() {
	if max := r.strat.Warmup(); len(r.window) > max {
		r.window = append(r.window[:0], r.window[len(r.window)-max:]...)
	}
}

func (r *Runner) notifyErr(format string, args ...any) {
	r.notify.Publish(models.NotifyEvent{
		Type: models.NotifyError, Symbol: r.symbol, At: time.Now(),
		Payload: fmt.Sprintf(format, args...),
	})
}

func opposite(pos models.Position, dir models.Direction) bool {
	return (pos.Qty.Sign() > 0 && dir == models.DirShort) ||
		(pos.Qty.Sign() < 0 && dir == models.DirLong)
}

const orderIDPrefix = "bb-"

// newClientOrderID — ключ идемпотентности: генерируется ОДИН раз на
// намерение, до первого сетевого вызова, и никогда не переиспользуется.
func newClientOrderID(symbol string, intent models.Intent) string {
	return orderIDPrefix + string(intent) + "-" + strings.ToLower(symbol) + "-" +
		strconv.FormatInt(time.Now().UnixNano(), 36)
}

func ownOrderID(id string) bool { return strings.HasPrefix(id, orderIDPrefix) }
