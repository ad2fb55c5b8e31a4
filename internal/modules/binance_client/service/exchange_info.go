package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
)

// SymbolMeta — фильтры инструмента: шаг цены и шаг лота.
type SymbolMeta struct {
	TickSize float64
	StepSize float64
}

// SymbolInfo — /fapi/v1/exchangeInfo по одному символу. Публичный
// эндпоинт, подписи не требует, но бюджет и ретраи общие.
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (SymbolMeta, error) {
	p := url.Values{}
	p.Set("symbol", symbol)

	data, err := c.callRetry(ctx, "exchange_info", http.MethodGet, "/fapi/v1/exchangeInfo", p, true)
	if err != nil {
		return SymbolMeta{}, err
	}

	var resp struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				TickSize   string `json:"tickSize"`
				StepSize   string `json:"stepSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := sonic.Unmarshal(data, &resp); err != nil {
		return SymbolMeta{}, fmt.Errorf("SymbolInfo decode: %w; body=%s", err, string(data))
	}

	for _, s := range resp.Symbols {
		if s.Symbol != symbol {
			continue
		}
		var meta SymbolMeta
		for _, f := range s.Filters {
			switch f.FilterType {
			case "PRICE_FILTER":
				meta.TickSize, _ = strconv.ParseFloat(f.TickSize, 64)
			case "LOT_SIZE":
				meta.StepSize, _ = strconv.ParseFloat(f.StepSize, 64)
			}
		}
		return meta, nil
	}
	return SymbolMeta{}, fmt.Errorf("SymbolInfo: symbol %s not found", symbol)
}
