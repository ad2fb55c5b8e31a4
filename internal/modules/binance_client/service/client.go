package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"breakout_bot/internal/modules/config"
)

// Client — гейтвей к фьючерсному REST Binance. Все вызовы идут через
// общий Budget и ретрай-обёртку; наружу отдаём нормализованные типы
// и классифицированные ошибки.
type Client struct {
	cfg    *config.Config
	http   *http.Client
	budget *Budget

	apiKey    string
	apiSecret string
	baseURL   string

	maxAttempts int
	backoffBase time.Duration
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:         cfg,
		http:        &http.Client{Timeout: 10 * time.Second},
		budget:      NewBudget(cfg.GatewayMaxParallel),
		apiKey:      cfg.Binance.APIKey,
		apiSecret:   cfg.Binance.APISecret,
		baseURL:     cfg.Binance.RestURL,
		maxAttempts: cfg.GatewayMaxAttempts,
		backoffBase: cfg.GatewayBackoffBase,
	}
}

// Budget — отдаём бюджет наружу для health-состояния.
func (c *Client) Budget() *Budget { return c.budget }

func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// call — один подписанный вызов REST. idempotent=false значит, что таймаут
// после отправки мог создать ордер: такой исход классифицируем как ambiguous.
func (c *Client) call(
	ctx context.Context,
	method, path string,
	params url.Values,
	idempotent bool,
) ([]byte, error) {

	release, err := c.budget.Acquire(ctx)
	if err != nil {
		return nil, transientErr(err)
	}
	defer release()

	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	var body io.Reader
	fullURL := c.baseURL + path
	if method == http.MethodGet || method == http.MethodDelete {
		fullURL += "?" + query
	} else {
		body = strings.NewReader(query)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, transientErr(err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// таймаут ПОСЛЕ отправки мутирующего запроса — исход неизвестен
		if !idempotent && isTimeout(err) {
			return nil, ambiguousErr(err)
		}
		return nil, transientErr(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if !idempotent {
			return nil, ambiguousErr(err)
		}
		return nil, transientErr(err)
	}

	if resp.StatusCode/100 == 2 {
		return data, nil
	}

	var ae apiError
	_ = json.Unmarshal(data, &ae)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == 418 || ae.Code == codeTooManyRequests:
		after := retryAfter(resp)
		return data, rateLimitedErr(ae.Code, after,
			fmt.Errorf("http %d: %s", resp.StatusCode, string(data)))

	case resp.StatusCode/100 == 5:
		return data, transientErr(
			fmt.Errorf("http %d: %s", resp.StatusCode, string(data)))

	default:
		// 4xx с кодом биржи — осознанный отказ
		return data, rejectedErr(ae.Code,
			fmt.Errorf("http %d: %s", resp.StatusCode, string(data)))
	}
}

// callRetry — ретрай-обёртка поверх call, политика по Kind:
// transient — бэкофф и повтор; rate-limited — пенальти бюджету и повтор;
// rejected/ambiguous — наружу сразу.
func (c *Client) callRetry(
	ctx context.Context,
	name, method, path string,
	params url.Values,
	idempotent bool,
) ([]byte, error) {

	span, ctx := opentracing.StartSpanFromContext(ctx, "gateway."+name)
	defer span.Finish()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		data, err := c.call(ctx, method, path, cloneValues(params), idempotent)
		if err == nil {
			return data, nil
		}
		lastErr = err

		ge, ok := err.(*Error)
		if !ok {
			return nil, err
		}
		switch ge.Kind {
		case KindRejected, KindAmbiguous:
			span.SetTag("error.kind", ge.Kind.String())
			return data, err

		case KindRateLimited:
			// следующая попытка сама встанет в очередь бюджета до конца кулдауна
			c.budget.Penalize(ge.RetryAfter)

		case KindTransient:
			if attempt == c.maxAttempts {
				break
			}
			select {
			case <-time.After(c.backoffBase * time.Duration(1<<uint(attempt-1))):
			case <-ctx.Done():
				return nil, transientErr(ctx.Err())
			}
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(lastErr, "context cancelled")
		default:
		}
	}
	span.SetTag("error.kind", "exhausted")
	return nil, errors.Wrapf(lastErr, "%s: attempts exhausted (%d)", name, c.maxAttempts)
}

func isTimeout(err error) bool {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	// http.Client оборачивает; ctx deadline тоже таймаут
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "Client.Timeout exceeded")
}

func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if sec, err := strconv.Atoi(s); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
	}
	return 5 * time.Second
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		for _, s := range vals {
			out.Add(k, s)
		}
	}
	return out
}
