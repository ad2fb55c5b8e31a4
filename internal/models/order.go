package models

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderType string

const (
	OrderLimit      OrderType = "LIMIT"
	OrderMarket     OrderType = "MARKET"
	OrderStopMarket OrderType = "STOP_MARKET"
)

// Intent — логическое намерение. На одно намерение в любой момент
// существует максимум один не-терминальный ордер.
type Intent string

const (
	IntentEntry Intent = "entry"
	IntentStop  Intent = "stop"
	IntentExit  Intent = "exit"
)

type OrderStatus string

const (
	StatusPendingSubmit   OrderStatus = "PENDING_SUBMIT"
	StatusSubmitted       OrderStatus = "SUBMITTED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusPendingCancel   OrderStatus = "PENDING_CANCEL"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
	// Unknown — отправили запрос, ответа нет. Это НЕ ошибка и НЕ успех,
	// пока реконсиляция не скажет, что случилось на бирже.
	StatusUnknown OrderStatus = "UNKNOWN"
)

// Terminal — ордер дальше никуда не двигается, можно в архив.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Order — локальное представление ордера.
// ClientOrderID генерируем ДО первого сетевого вызова и никогда не переиспользуем.
type Order struct {
	ClientOrderID   string
	ExchangeOrderID int64 // 0 пока биржа не подтвердила
	Symbol          string
	Intent          Intent
	Side            Side
	Type            OrderType
	Quantity        float64
	Price           float64 // лимитная цена либо trigger для STOP_MARKET
	Status          OrderStatus
	FilledQty       float64
	AvgFillPrice    float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExecReport — нормализованное исполнение/ack из user-data стрима
// либо из ответа REST. TradeID нужен для идемпотентности филлов.
type ExecReport struct {
	Symbol          string
	ClientOrderID   string
	ExchangeOrderID int64
	Status          OrderStatus
	TradeID         int64
	LastFillQty     float64
	LastFillPrice   float64
	CumFilledQty    float64
	AvgFillPrice    float64
	EventTime       time.Time
}
