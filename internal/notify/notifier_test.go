package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"breakout_bot/internal/models"
)

type flakySink struct {
	failures int
	sent     []string
}

func (s *flakySink) Send(text string) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("telegram down")
	}
	s.sent = append(s.sent, text)
	return nil
}

// Временный отказ транспорта переживается ретраем, сообщение доходит.
func TestDeliverRetries(t *testing.T) {
	sink := &flakySink{failures: 1}
	s := NewService(sink)

	s.deliver(context.Background(), models.NotifyEvent{
		Type: models.NotifyEntryFilled, Symbol: "BTCUSDT", Payload: "test",
	})
	if len(sink.sent) != 1 {
		t.Fatalf("sent: %d", len(sink.sent))
	}
}

// Мёртвый транспорт не вешает доставку навсегда: после лимита
// попыток сообщение роняется.
func TestDeliverDropsAfterRetries(t *testing.T) {
	sink := &flakySink{failures: 100}
	s := NewService(sink)

	done := make(chan struct{})
	go func() {
		s.deliver(context.Background(), models.NotifyEvent{Type: models.NotifyError, Payload: "x"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("deliver did not give up")
	}
	if len(sink.sent) != 0 {
		t.Fatalf("sent: %d", len(sink.sent))
	}
}

// Publish не блокирует даже с полным буфером.
func TestPublishNeverBlocks(t *testing.T) {
	s := NewService(&flakySink{})
	for i := 0; i < bufferSize+10; i++ {
		s.Publish(models.NotifyEvent{Type: models.NotifyError, Payload: "overflow"})
	}
	// дошли сюда — значит не заблокировались
}
