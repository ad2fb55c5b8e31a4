package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"breakout_bot/internal/ledger"
	ledgerpg "breakout_bot/internal/ledger/pg"
	gw "breakout_bot/internal/modules/binance_client/service"
	feedsvc "breakout_bot/internal/modules/binance_ws/service"
	"breakout_bot/internal/modules/config"
	health "breakout_bot/internal/modules/health/service"
	"breakout_bot/internal/models"
	"breakout_bot/internal/notify"
	"breakout_bot/internal/strategy"
)

// Supervisor поднимает по движку на символ и раскидывает события стримов
// по их каналам. Один стрим свечей и один user-data стрим на всех.
type Supervisor struct {
	cfg     *config.Config
	gateway *gw.Client
	feed    *feedsvc.Client
	store   *ledgerpg.Store
	notify  *notify.Service
	state   *health.State
}

func NewSupervisor(
	cfg *config.Config,
	gateway *gw.Client,
	feed *feedsvc.Client,
	store *ledgerpg.Store,
	n *notify.Service,
	state *health.State,
) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		gateway: gateway,
		feed:    feed,
		store:   store,
		notify:  n,
		state:   state,
	}
}

// Run блокирует до остановки контекста; на выходе все движки дорабатывают
// текущие события и помечают символы на сверку.
func (s *Supervisor) Run(ctx context.Context) {
	params := Params{
		OrderQty:          s.cfg.OrderQty,
		Leverage:          s.cfg.Leverage,
		EntryHorizon:      s.cfg.EntryHorizon,
		ReconcileInterval: s.cfg.ReconcileInterval,
		DailySummaryHour:  s.cfg.DailySummaryHour,
	}
	tf := models.TimeframeDuration(s.cfg.Timeframe)

	feeds := make(map[string]chan models.FeedEvent, len(s.cfg.Symbols))
	reports := make(map[string]chan models.ExecReport, len(s.cfg.Symbols))

	var wg sync.WaitGroup
	for _, symbol := range s.cfg.Symbols {
		led := ledger.New(symbol, s.store)
		strat := strategy.NewBreakout(strategy.Config{
			Lookback:    s.cfg.Lookback,
			Coefficient: s.cfg.Coefficient,
		})
		r := NewRunner(symbol, params, s.gateway, led, strat, s.notify)

		// прогрев окна историей, чтобы не ждать Lookback+1 свечей вживую
		warm := strat.Warmup()
		from := time.Now().Add(-time.Duration(warm+2) * tf)
		hist, err := s.feed.GetCandles(ctx, symbol, from, warm+2)
		if err != nil {
			log.Printf("[ENGINE] %s: warmup backfill: %v — starting cold", symbol, err)
		} else {
			r.Seed(hist)
		}

		fc := make(chan models.FeedEvent, 64)
		rc := make(chan models.ExecReport, 64)
		feeds[symbol] = fc
		reports[symbol] = rc

		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx, fc, rc)
		}()
	}

	feedCh := s.feed.StreamCandles(ctx, s.cfg.Symbols, s.store, s.state.SetWSConnected)
	repCh := s.feed.StreamExecReports(ctx, s.gateway)

	s.state.SetReady(true)
	log.Printf("[ENGINE] supervisor up: %d symbols, tf=%s", len(s.cfg.Symbols), s.cfg.Timeframe)

	for {
		select {
		case <-ctx.Done():
			s.state.SetReady(false)
			wg.Wait()
			log.Printf("[ENGINE] supervisor stopped")
			return

		case ev, ok := <-feedCh:
			if !ok {
				feedCh = nil
				continue
			}
			symbol := ""
			if ev.Candle != nil {
				symbol = ev.Candle.Symbol
				s.state.TouchTick(ev.Candle.CloseTime)
			} else if ev.Gap != nil {
				symbol = ev.Gap.Symbol
			}
			if ch, ok := feeds[symbol]; ok {
				select {
				case ch <- ev:
				case <-ctx.Done():
				}
			}

		case rep, ok := <-repCh:
			if !ok {
				repCh = nil
				continue
			}
			ch, known := reports[rep.Symbol]
			if !known {
				log.Printf("[ENGINE] exec report for untracked symbol %s, ignored", rep.Symbol)
				continue
			}
			select {
			case ch <- rep:
			case <-ctx.Done():
			}
		}
	}
}
