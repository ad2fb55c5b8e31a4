package service

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"breakout_bot/internal/models"
)

// ListenKeySource — REST-часть user-data стрима (ключ живёт 60 минут,
// продлеваем каждые 30).
type ListenKeySource interface {
	CreateListenKey(ctx context.Context) (string, error)
	KeepAliveListenKey(ctx context.Context) error
}

// StreamExecReports — user-data стрим: ack'и и филлы НАШИХ ордеров.
// Поток может рваться; движок не доверяет ему как единственному
// источнику правды и периодически сверяется с биржей сам.
func (c *Client) StreamExecReports(ctx context.Context, keys ListenKeySource) <-chan models.ExecReport {
	ch := make(chan models.ExecReport)

	go func() {
		defer close(ch)

		attempt := 0
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			key, err := keys.CreateListenKey(ctx)
			if err != nil {
				attempt++
				delay := backoffDelay(attempt)
				log.Printf("[USERWS] listenKey error: %v — retry in %s", err, delay)
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
				continue
			}

			conn, _, err := c.wsDialer.DialContext(ctx, c.cfg.Binance.WSURL+"/ws/"+key, nil)
			if err != nil {
				attempt++
				log.Printf("[USERWS] dial error: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoffDelay(attempt)):
				}
				continue
			}
			attempt = 0
			log.Printf("[USERWS] connected")

			kaCtx, kaCancel := context.WithCancel(ctx)
			go c.keepAliveLoop(kaCtx, keys)

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					log.Printf("[USERWS] read error: %v", err)
					break
				}
				rep, ok := parseOrderUpdate(msg)
				if !ok {
					continue
				}
				select {
				case ch <- rep:
				case <-ctx.Done():
					kaCancel()
					_ = conn.Close()
					return
				}
			}

			kaCancel()
			_ = conn.Close()

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

func (c *Client) keepAliveLoop(ctx context.Context, keys ListenKeySource) {
	t := time.NewTicker(30 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := keys.KeepAliveListenKey(ctx); err != nil {
				log.Printf("[USERWS] keepalive error: %v", err)
			}
		}
	}
}

// parseOrderUpdate — кадр ORDER_TRADE_UPDATE -> ExecReport.
// Остальные типы событий нам не интересны.
func parseOrderUpdate(msg []byte) (models.ExecReport, bool) {
	var frame struct {
		EventType string `json:"e"`
		EventTime int64  `json:"E"`
		Order     struct {
			Symbol        string `json:"s"`
			ClientOrderID string `json:"c"`
			Status        string `json:"X"`
			OrderID       int64  `json:"i"`
			LastFillQty   string `json:"l"`
			LastFillPrice string `json:"L"`
			CumFilledQty  string `json:"z"`
			AvgFillPrice  string `json:"ap"`
			TradeID       int64  `json:"t"`
		} `json:"o"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil || frame.EventType != "ORDER_TRADE_UPDATE" {
		return models.ExecReport{}, false
	}
	o := frame.Order

	f := func(s string) float64 {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}

	return models.ExecReport{
		Symbol:          o.Symbol,
		ClientOrderID:   o.ClientOrderID,
		ExchangeOrderID: o.OrderID,
		Status:          streamStatus(o.Status),
		TradeID:         o.TradeID,
		LastFillQty:     f(o.LastFillQty),
		LastFillPrice:   f(o.LastFillPrice),
		CumFilledQty:    f(o.CumFilledQty),
		AvgFillPrice:    f(o.AvgFillPrice),
		EventTime:       time.UnixMilli(frame.EventTime),
	}, true
}

func streamStatus(s string) models.OrderStatus {
	switch s {
	case "NEW":
		return models.StatusSubmitted
	case "PARTIALLY_FILLED":
		return models.StatusPartiallyFilled
	case "FILLED":
		return models.StatusFilled
	case "CANCELED", "EXPIRED":
		return models.StatusCancelled
	case "REJECTED":
		return models.StatusRejected
	}
	return models.StatusUnknown
}
