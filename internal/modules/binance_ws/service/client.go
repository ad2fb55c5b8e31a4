package service

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"breakout_bot/internal/models"
	"breakout_bot/internal/modules/config"
)

// CandleStore — архив закрытых свечей, пишем best-effort.
type CandleStore interface {
	SaveCandle(ctx context.Context, c *models.Candle) error
}

// Client — маркет-дата фид: kline-стрим + user-data стрим + REST бэкфилл.
// Наружу отдаёт models.FeedEvent (свечи и дырки) и models.ExecReport.
type Client struct {
	cfg      *config.Config
	wsDialer *websocket.Dialer
	http     *http.Client

	tf time.Duration
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:      cfg,
		wsDialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		http:     &http.Client{Timeout: 10 * time.Second},
		tf:       models.TimeframeDuration(cfg.Timeframe),
	}
}

// backoffDelay — экспоненциальный бэкофф с полным джиттером:
// случайное [0, min(ceil, base*2^attempt)]. База 1s, потолок 60s.
func backoffDelay(attempt int) time.Duration {
	const (
		base = time.Second
		ceil = 60 * time.Second
	)
	top := base << uint(attempt)
	if top > ceil || top <= 0 {
		top = ceil
	}
	return time.Duration(rand.Int63n(int64(top)) + 1)
}
