package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"breakout_bot/internal/models"
	"breakout_bot/internal/modules/binance_client/service"
	"breakout_bot/internal/modules/config"
)

func newTestClient(t *testing.T, url string) *service.Client {
	t.Helper()
	cfg := &config.Config{
		GatewayMaxAttempts: 3,
		GatewayBackoffBase: 5 * time.Millisecond,
		GatewayMaxParallel: 2,
	}
	cfg.Binance.APIKey = "test-key"
	cfg.Binance.APISecret = "test-secret"
	cfg.Binance.RestURL = url
	return service.NewClient(cfg)
}

// fakeExchange — минимальный стенд /fapi/v1/order с дедупом по clientOrderId.
type fakeExchange struct {
	mu      sync.Mutex
	orders  map[string]int64 // clientOrderId -> orderId
	nextID  int64
	created int // сколько РЕАЛЬНО создано ордеров
}

func (f *fakeExchange) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/order" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodPost:
			cid := r.Form.Get("newClientOrderId")
			if _, ok := f.orders[cid]; ok {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprintf(w, `{"code":-4116,"msg":"Duplicated order."}`)
				return
			}
			f.nextID++
			f.created++
			f.orders[cid] = f.nextID
			fmt.Fprintf(w,
				`{"orderId":%d,"clientOrderId":"%s","symbol":"%s","status":"NEW","executedQty":"0","avgPrice":"0","updateTime":%d}`,
				f.nextID, cid, r.Form.Get("symbol"), time.Now().UnixMilli())

		case http.MethodGet:
			cid := r.URL.Query().Get("origClientOrderId")
			id, ok := f.orders[cid]
			if !ok {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprintf(w, `{"code":-2013,"msg":"Order does not exist."}`)
				return
			}
			fmt.Fprintf(w,
				`{"orderId":%d,"clientOrderId":"%s","symbol":"BTCUSDT","status":"NEW","executedQty":"0","avgPrice":"0","updateTime":%d}`,
				id, cid, time.Now().UnixMilli())
		}
	}
}

// Сценарий: повторный Submit с тем же ключом идемпотентности (ретрай после
// таймаута) не создаёт второй ордер — возвращается состояние первого.
func TestSubmitDuplicateKeyCreatesOneOrder(t *testing.T) {
	fake := &fakeExchange{orders: make(map[string]int64)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	order := &models.Order{
		ClientOrderID: "bb-BTCUSDT-entry-0001",
		Symbol:        "BTCUSDT",
		Intent:        models.IntentEntry,
		Side:          models.SideBuy,
		Type:          models.OrderLimit,
		Quantity:      0.01,
		Price:         50000,
	}

	rep1, err := c.Submit(ctx, order)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	rep2, err := c.Submit(ctx, order)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if fake.created != 1 {
		t.Fatalf("exchange created %d orders, want exactly 1", fake.created)
	}
	if rep1.ExchangeOrderID != rep2.ExchangeOrderID {
		t.Errorf("second submit resolved to a different order: %d vs %d",
			rep1.ExchangeOrderID, rep2.ExchangeOrderID)
	}
}

// Подтверждённый отказ биржи терминален: никаких повторных попыток.
func TestSubmitRejectionIsNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"code":-2019,"msg":"Margin is insufficient."}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Submit(context.Background(), &models.Order{
		ClientOrderID: "bb-x-entry-1", Symbol: "BTCUSDT",
		Side: models.SideBuy, Type: models.OrderMarket, Quantity: 1,
	})
	if err == nil {
		t.Fatal("expected rejection error")
	}
	if service.KindOf(err) != service.KindRejected {
		t.Errorf("kind: got %v, want rejected", service.KindOf(err))
	}
	if calls != 1 {
		t.Errorf("rejection was retried: %d calls", calls)
	}
}

// Transient (5xx) ретраится с бэкоффом до успеха.
func TestTransientIsRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w,
			`{"orderId":7,"clientOrderId":"q","symbol":"BTCUSDT","status":"NEW","executedQty":"0","avgPrice":"0","updateTime":1}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	rep, err := c.Query(context.Background(), "BTCUSDT", "q")
	if err != nil {
		t.Fatalf("query after retries: %v", err)
	}
	if rep.ExchangeOrderID != 7 || calls != 3 {
		t.Errorf("got orderId=%d after %d calls", rep.ExchangeOrderID, calls)
	}
}

// 429 ставит весь гейтвей на кулдаун, затем запрос доезжает.
func TestRateLimitPenalizesBudget(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"code":-1003,"msg":"Too many requests."}`)
			return
		}
		fmt.Fprintf(w,
			`{"orderId":9,"clientOrderId":"q","symbol":"BTCUSDT","status":"NEW","executedQty":"0","avgPrice":"0","updateTime":1}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	start := time.Now()
	rep, err := c.Query(context.Background(), "BTCUSDT", "q")
	if err != nil {
		t.Fatalf("query after rate limit: %v", err)
	}
	if rep.ExchangeOrderID != 9 {
		t.Errorf("unexpected order: %+v", rep)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("cooldown not respected: finished in %v", elapsed)
	}
}
