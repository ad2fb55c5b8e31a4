package models

import "time"

// Candle — закрытая свеча. После закрытия считаем её неизменяемой.
type Candle struct {
	Symbol      string
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	QuoteVolume float64
	OpenTime    time.Time
	CloseTime   time.Time
	Timeframe   string
}

// NextOpenTime — ожидаемый open-time следующей свечи.
// Если фактический open-time больше — в потоке дырка, нужен ресинк.
func (c Candle) NextOpenTime(tf time.Duration) time.Time {
	return c.OpenTime.Add(tf)
}

// TimeframeDuration — "1m"/"5m"/"15m"/"1h"/"4h"/"1d" -> time.Duration.
// Неизвестный таймфрейм отдаём как 0, вызывающий сам решает что делать.
func TimeframeDuration(tf string) time.Duration {
	switch tf {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	}
	return 0
}
