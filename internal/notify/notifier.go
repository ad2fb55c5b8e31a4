package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"breakout_bot/internal/models"
)

// Sink — транспорт доставки. Telegram в проде, Stdout когда токена нет.
type Sink interface {
	Send(text string) error
}

// Service — асинхронный нотифайер. Publish никогда не блокирует:
// переполненный буфер роняет событие с логом, торговый путь важнее
// доставки сообщений человеку.
type Service struct {
	sink Sink
	ch   chan models.NotifyEvent
}

const (
	bufferSize  = 256
	sendRetries = 3
)

func NewService(sink Sink) *Service {
	return &Service{
		sink: sink,
		ch:   make(chan models.NotifyEvent, bufferSize),
	}
}

// Publish — неблокирующая постановка в очередь.
func (s *Service) Publish(ev models.NotifyEvent) {
	select {
	case s.ch <- ev:
	default:
		log.Printf("[NOTIFY] buffer full, dropped %s %s: %s", ev.Type, ev.Symbol, ev.Payload)
	}
}

// Run — воркер доставки. Ретраи ограничены: нотификация не стоит того,
// чтобы копить очередь бесконечно.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.ch:
			s.deliver(ctx, ev)
		}
	}
}

func (s *Service) deliver(ctx context.Context, ev models.NotifyEvent) {
	text := format(ev)
	for attempt := 1; ; attempt++ {
		err := s.sink.Send(text)
		if err == nil {
			return
		}
		if attempt >= sendRetries {
			log.Printf("[NOTIFY] dropped after %d attempts: %v; msg=%q", attempt, err, text)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
}

func format(ev models.NotifyEvent) string {
	emoji := "ℹ️"
	switch ev.Type {
	case models.NotifyEntryFilled:
		emoji = "✅"
	case models.NotifyExitFilled:
		emoji = "🏁"
	case models.NotifyError:
		emoji = "❗️"
	case models.NotifyDailySummary:
		emoji = "📊"
	}
	return fmt.Sprintf("%s [%s] %s", emoji, ev.Symbol, ev.Payload)
}

// Telegram — основной sink.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Send(text string) error {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return nil
	}
	_, err := t.bot.Send(tgbot.NewMessage(t.chatID, text))
	return err
}

// Stdout — заглушка без телеграма, всё в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }
func (*Stdout) Send(text string) error {
	log.Println(text)
	return nil
}
