package service

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"breakout_bot/internal/models"
)

// StreamCandles — один WebSocket на все символы (combined stream).
// Отдаёт ТОЛЬКО закрытые свечи, последовательность чинится ресеквенсером:
// после реконнекта пропущенное добирается по REST до выдачи живых свечей.
func (c *Client) StreamCandles(
	ctx context.Context,
	symbols []string,
	store CandleStore,
	connected func(bool),
) <-chan models.FeedEvent {
	ch := make(chan models.FeedEvent)

	go func() {
		defer close(ch)

		if len(symbols) == 0 {
			return
		}

		streams := make([]string, 0, len(symbols))
		for _, s := range symbols {
			streams = append(streams, strings.ToLower(s)+"@kline_"+c.cfg.Timeframe)
		}
		wsURL := c.cfg.Binance.WSURL + "/stream?streams=" + strings.Join(streams, "/")

		reseq := NewResequencer(c.tf, c.GetCandles)

		attempt := 0
		for {
			log.Printf("[WS] connect klines %s (%d symbols)", c.cfg.Timeframe, len(symbols))
			conn, _, err := c.wsDialer.DialContext(ctx, wsURL, nil)
			if err != nil {
				attempt++
				delay := backoffDelay(attempt)
				log.Printf("[WS] dial error: %v — retry in %s", err, delay)
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
				continue
			}
			attempt = 0
			if connected != nil {
				connected(true)
			}

			// keepalive: binance шлёт ping сам, но читать надо постоянно,
			// а на свой ping отвечаем pong автоматически (gorilla default)
			conn.SetPongHandler(func(string) error { return nil })

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					log.Printf("[WS] read error: %v", err)
					_ = conn.Close()
					if connected != nil {
						connected(false)
					}
					break
				}

				candle, ok := parseKlineFrame(msg, c.cfg.Timeframe)
				if !ok {
					continue
				}

				out, gap := reseq.Push(ctx, candle)
				for i := range out {
					if store != nil {
						if err := store.SaveCandle(ctx, &out[i]); err != nil {
							log.Printf("[FEED] candle archive: %v", err)
						}
					}
					select {
					case ch <- models.FeedEvent{Candle: &out[i]}:
					case <-ctx.Done():
						_ = conn.Close()
						return
					}
				}
				if gap != nil {
					// дырку наверх, окно у стратегии начнётся заново
					reseq.Reset(gap.Symbol)
					select {
					case ch <- models.FeedEvent{Gap: gap}:
					case <-ctx.Done():
						_ = conn.Close()
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				attempt++
				time.Sleep(backoffDelay(attempt))
			}
		}
	}()

	return ch
}

// parseKlineFrame — combined-stream кадр: {"stream":"...","data":{"e":"kline","k":{...}}}.
// Интересны только закрытые свечи (k.x == true).
func parseKlineFrame(msg []byte, tf string) (models.Candle, bool) {
	var frame struct {
		Data struct {
			EventType string `json:"e"`
			Kline     struct {
				OpenTime  int64  `json:"t"`
				CloseTime int64  `json:"T"`
				Symbol    string `json:"s"`
				Open      string `json:"o"`
				Close     string `json:"c"`
				High      string `json:"h"`
				Low       string `json:"l"`
				Volume    string `json:"v"`
				QuoteVol  string `json:"q"`
				Closed    bool   `json:"x"`
			} `json:"k"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		return models.Candle{}, false
	}
	k := frame.Data.Kline
	if frame.Data.EventType != "kline" || !k.Closed {
		return models.Candle{}, false
	}

	open, err1 := strconv.ParseFloat(k.Open, 64)
	high, err2 := strconv.ParseFloat(k.High, 64)
	low, err3 := strconv.ParseFloat(k.Low, 64)
	closep, err4 := strconv.ParseFloat(k.Close, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || closep <= 0 {
		return models.Candle{}, false
	}
	vol, _ := strconv.ParseFloat(k.Volume, 64)
	qvol, _ := strconv.ParseFloat(k.QuoteVol, 64)

	return models.Candle{
		Symbol:      k.Symbol,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closep,
		Volume:      vol,
		QuoteVolume: qvol,
		OpenTime:    time.UnixMilli(k.OpenTime),
		CloseTime:   time.UnixMilli(k.CloseTime + 1),
		Timeframe:   tf,
	}, true
}
