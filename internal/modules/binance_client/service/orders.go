package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"breakout_bot/internal/models"
)

// orderResp — ответ /fapi/v1/order (POST/GET/DELETE), поля одни и те же.
type orderResp struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	ExecutedQty   string `json:"executedQty"`
	AvgPrice      string `json:"avgPrice"`
	Price         string `json:"price"`
	UpdateTime    int64  `json:"updateTime"`
}

func (r orderResp) toReport() models.ExecReport {
	qty, _ := strconv.ParseFloat(r.ExecutedQty, 64)
	avg, _ := strconv.ParseFloat(r.AvgPrice, 64)
	return models.ExecReport{
		Symbol:          r.Symbol,
		ClientOrderID:   r.ClientOrderID,
		ExchangeOrderID: r.OrderID,
		Status:          mapOrderStatus(r.Status),
		CumFilledQty:    qty,
		AvgFillPrice:    avg,
		EventTime:       time.UnixMilli(r.UpdateTime),
	}
}

func mapOrderStatus(s string) models.OrderStatus {
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

// Submit — выставление ордера. ClientOrderID в o обязан быть сгенерирован
// заранее: при дубле ключа биржа вернёт ошибку, и мы отдадим состояние
// ОРИГИНАЛЬНОГО ордера вместо создания второго. Это центральная гарантия.
func (c *Client) Submit(ctx context.Context, o *models.Order) (models.ExecReport, error) {
	if o.ClientOrderID == "" {
		return models.ExecReport{}, fmt.Errorf("Submit: empty clientOrderID")
	}

	p := url.Values{}
	p.Set("symbol", o.Symbol)
	p.Set("side", string(o.Side))
	p.Set("type", string(o.Type))
	p.Set("quantity", formatQty(o.Quantity))
	p.Set("newClientOrderId", o.ClientOrderID)
	switch o.Type {
	case models.OrderLimit:
		p.Set("price", formatPrice(o.Price))
		p.Set("timeInForce", "GTC")
	case models.OrderStopMarket:
		p.Set("stopPrice", formatPrice(o.Price))
		p.Set("reduceOnly", "true")
	}

	data, err := c.callRetry(ctx, "submit", http.MethodPost, "/fapi/v1/order", p, false)
	if err != nil {
		if ge, ok := err.(*Error); ok && ge.Kind == KindRejected && ge.Code == codeDuplicateOrder {
			// ключ уже был использован (ретрай после таймаута и т.п.) —
			// дубль не создаём, забираем состояние первого ордера
			return c.Query(ctx, o.Symbol, o.ClientOrderID)
		}
		return models.ExecReport{}, err
	}

	var r orderResp
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.ExecReport{}, fmt.Errorf("Submit decode: %w; body=%s", err, string(data))
	}
	return r.toReport(), nil
}

// Cancel — отмена по clientOrderID. "Order does not exist" наружу как есть:
// движок сам решит, что ордер уже финализировался.
func (c *Client) Cancel(ctx context.Context, symbol, clientOrderID string) (models.ExecReport, error) {
	p := url.Values{}
	p.Set("symbol", symbol)
	p.Set("origClientOrderId", clientOrderID)

	data, err := c.callRetry(ctx, "cancel", http.MethodDelete, "/fapi/v1/order", p, false)
	if err != nil {
		return models.ExecReport{}, err
	}

	var r orderResp
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.ExecReport{}, fmt.Errorf("Cancel decode: %w; body=%s", err, string(data))
	}
	return r.toReport(), nil
}

// Query — текущее состояние ордера на бирже. Идемпотентно, таймауты ретраим.
func (c *Client) Query(ctx context.Context, symbol, clientOrderID string) (models.ExecReport, error) {
	p := url.Values{}
	p.Set("symbol", symbol)
	p.Set("origClientOrderId", clientOrderID)

	data, err := c.callRetry(ctx, "query", http.MethodGet, "/fapi/v1/order", p, true)
	if err != nil {
		return models.ExecReport{}, err
	}

	var r orderResp
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.ExecReport{}, fmt.Errorf("Query decode: %w; body=%s", err, string(data))
	}
	return r.toReport(), nil
}

// OpenOrders — все открытые ордера по символу (для реконсиляции).
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]models.ExecReport, error) {
	p := url.Values{}
	p.Set("symbol", symbol)

	data, err := c.callRetry(ctx, "open_orders", http.MethodGet, "/fapi/v1/openOrders", p, true)
	if err != nil {
		return nil, err
	}

	var rs []orderResp
	if err := sonic.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("OpenOrders decode: %w; body=%s", err, string(data))
	}
	out := make([]models.ExecReport, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.toReport())
	}
	return out, nil
}

// PositionRisk — позиция по символу глазами биржи.
func (c *Client) PositionRisk(ctx context.Context, symbol string) (qty, entry float64, err error) {
	p := url.Values{}
	p.Set("symbol", symbol)

	data, err := c.callRetry(ctx, "position_risk", http.MethodGet, "/fapi/v2/positionRisk", p, true)
	if err != nil {
		return 0, 0, err
	}

	var rs []struct {
		Symbol      string `json:"symbol"`
		PositionAmt string `json:"positionAmt"`
		EntryPrice  string `json:"entryPrice"`
	}
	if err := sonic.Unmarshal(data, &rs); err != nil {
		return 0, 0, fmt.Errorf("PositionRisk decode: %w; body=%s", err, string(data))
	}
	for _, r := range rs {
		if r.Symbol == symbol {
			qty, _ = strconv.ParseFloat(r.PositionAmt, 64)
			entry, _ = strconv.ParseFloat(r.EntryPrice, 64)
			return qty, entry, nil
		}
	}
	return 0, 0, nil
}

// SetLeverage — плечо выставляем один раз на старте по каждому символу.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	p := url.Values{}
	p.Set("symbol", symbol)
	p.Set("leverage", strconv.Itoa(leverage))

	_, err := c.callRetry(ctx, "set_leverage", http.MethodPost, "/fapi/v1/leverage", p, true)
	return err
}

func formatQty(v float64) string   { return strconv.FormatFloat(v, 'f', -1, 64) }
func formatPrice(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
