package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// PushClient は配信先へエンベロープをPOSTする。
// 配信先URLはユーザー入力由来のため、SSRF防止付きのHTTPクライアント
// （security.SSRFGuardService.NewSafeClient）を渡すこと。
type PushClient struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewPushClient はPushClientを生成する。
func NewPushClient(httpClient *http.Client, logger *slog.Logger) *PushClient {
	return &PushClient{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Send はエンベロープをJSONとして配信先にPOSTする。
// Tokenがある場合はBearer資格情報として付与する。2xx以外は失敗扱い。
func (c *PushClient) Send(ctx context.Context, dest Destination, env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("エンベロープのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("配信リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if dest.Token != "" {
		req.Header.Set("Authorization", "Bearer "+dest.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("配信先への送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("配信先が異常応答を返しました: status=%d", resp.StatusCode)
	}

	c.logger.Debug("配信に成功しました",
		"url", dest.URL,
		"request_id", env.RequestID,
		"status", resp.StatusCode,
	)
	return nil
}
