package models

import "time"

// FeedEvent — то, что фид отдаёт наверх: либо закрытая свеча,
// либо деградация потока (дырка, которую не удалось закрыть бэкфиллом).
type FeedEvent struct {
	Candle *Candle
	Gap    *GapEvent
}

type GapEvent struct {
	Symbol   string
	LastSeen time.Time // open-time последней целой свечи
	Got      time.Time // open-time свечи, пришедшей после дырки
	Err      error
}

// NotifyType — типы событий для нотифайера.
type NotifyType string

const (
	NotifyEntryFilled  NotifyType = "entry-filled"
	NotifyExitFilled   NotifyType = "exit-filled"
	NotifyError        NotifyType = "error"
	NotifyDailySummary NotifyType = "daily-summary"
)

// NotifyEvent — событие для человека. Доставка best-effort,
// движок на неё никогда не ждёт.
type NotifyEvent struct {
	Type    NotifyType
	Symbol  string
	Payload string
	At      time.Time
}
