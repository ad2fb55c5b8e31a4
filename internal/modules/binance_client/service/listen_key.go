package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
)

// CreateListenKey — ключ user-data стрима (филлы/acks приходят по нему).
func (c *Client) CreateListenKey(ctx context.Context) (string, error) {
	data, err := c.callRetry(ctx, "listen_key", http.MethodPost, "/fapi/v1/listenKey", nil, true)
	if err != nil {
		return "", err
	}
	var r struct {
		ListenKey string `json:"listenKey"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("CreateListenKey decode: %w; body=%s", err, string(data))
	}
	if r.ListenKey == "" {
		return "", fmt.Errorf("CreateListenKey: empty listenKey; body=%s", string(data))
	}
	return r.ListenKey, nil
}

// KeepAliveListenKey — надо дёргать раз в ~30 минут, иначе биржа закроет стрим.
func (c *Client) KeepAliveListenKey(ctx context.Context) error {
	_, err := c.callRetry(ctx, "listen_key_keepalive", http.MethodPut, "/fapi/v1/listenKey", nil, true)
	return err
}
