package models

import "time"

type Direction string

const (
	DirNone  Direction = ""
	DirLong  Direction = "LONG"
	DirShort Direction = "SHORT"
)

// Signal — решение стратегии по одному окну свечей.
// Чистая производная от окна, без скрытого состояния.
type Signal struct {
	Symbol      string
	Direction   Direction // LONG / SHORT / ""
	TriggerPx   float64   // цена входа (пробой)
	StopPx      float64   // стоп, производный от того же окна
	GeneratedAt time.Time
	Reason      string
}

func (s Signal) IsNone() bool { return s.Direction == DirNone }
