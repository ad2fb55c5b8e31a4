package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"breakout_bot/internal/models"
)

// GetCandles — закрытые свечи по REST, от from по возрастанию.
// Формат строки klines: [openTime, o, h, l, c, vol, closeTime, quoteVol, ...].
func (c *Client) GetCandles(ctx context.Context, symbol string, from time.Time, limit int) ([]models.Candle, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	u := fmt.Sprintf("%s/fapi/v1/klines?symbol=%s&interval=%s&startTime=%d&limit=%d",
		c.cfg.Binance.RestURL, url.QueryEscape(symbol), c.cfg.Timeframe,
		from.UnixMilli(), limit,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("klines http %d: %s", resp.StatusCode, string(b))
	}

	var rows [][]any
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("klines decode: %w", err)
	}

	now := time.Now()
	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		openMs, ok := row[0].(float64)
		if !ok {
			continue
		}
		open, err1 := parseCell(row[1])
		high, err2 := parseCell(row[2])
		low, err3 := parseCell(row[3])
		closep, err4 := parseCell(row[4])
		vol, _ := parseCell(row[5])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || closep <= 0 {
			continue
		}

		start := time.UnixMilli(int64(openMs))
		end := start.Add(c.tf)
		if end.After(now) {
			continue // последняя свеча ещё не закрыта — не берём
		}

		out = append(out, models.Candle{
			Symbol:    symbol,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closep,
			Volume:    vol,
			OpenTime:  start,
			CloseTime: end,
			Timeframe: c.cfg.Timeframe,
		})
	}
	return out, nil
}

func parseCell(v any) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected kline cell %T", v)
	}
	return strconv.ParseFloat(s, 64)
}
