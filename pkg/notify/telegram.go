// Package notify 发送部署通知
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotOK 接口返回 ok=false
var ErrNotOK = errors.New("telegram: response not ok")

// Notifier 发送一条消息
type Notifier interface {
	Send(ctx context.Context, msg string) error
}

type Telegram struct {
	API        string // 例如 https://api.telegram.org
	Token      string
	ChatID     string
	HTTPClient *http.Client
}

func NewTelegram(api, token, chatID string) *Telegram {
	return &Telegram{
		API:        api,
		Token:      token,
		ChatID:     chatID,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type response struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Send 调用 sendMessage, 不重试
func (t *Telegram) Send(ctx context.Context, msg string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage?chat_id=%s&text=%s",
		strings.TrimRight(t.API, "/"), t.Token, url.QueryEscape(t.ChatID), url.QueryEscape(msg))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		// url.Error 中带有 token, 不直接返回
		return fmt.Errorf("telegram: request failed: %v", redact(err.Error(), t.Token))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram: read response: %w", err)
	}
	var ret response
	if err := json.Unmarshal(body, &ret); err != nil {
		return fmt.Errorf("telegram: decode response (status %d): %w: %s", resp.StatusCode, err, body)
	}
	if !ret.OK {
		return fmt.Errorf("%w: %s", ErrNotOK, body)
	}
	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
