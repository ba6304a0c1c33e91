// Package llm はOpenAI互換チャット補完APIのクライアントを提供する。
// プラン生成・日誌分析・リマインド文面生成が同じクライアントを共有する。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Client はOpenAI互換チャット補完APIのクライアント。
// Groq等のOpenAI互換エンドポイントに対してJSONモードのチャット補完を行う。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
	apiKey     string
	model      string
}

// Options はチャット補完1回分のパラメータ。
type Options struct {
	// Temperature は生成のランダム性。プラン生成は低温で決定的に寄せる。
	Temperature float64
	// MaxTokens は応答の最大トークン数。0は省略（プロバイダ既定値）。
	MaxTokens int
	// JSONMode はresponse_format=json_objectを指定する。
	JSONMode bool
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey, model string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    normalizeBaseURL(baseURL),
		apiKey:     apiKey,
		model:      model,
	}
}

// normalizeBaseURL は末尾のスラッシュと/chat/completionsサフィックスを除去する。
// 利用者がパス付きのURLを設定してもパスが二重にならないようにする。
func normalizeBaseURL(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	return strings.TrimSuffix(s, "/chat/completions")
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ChatCompletion はsystem+userプロンプトを送信し、アシスタント応答のテキストを返す。
// API到達不能・非200応答・空応答はすべてエラーとして返す（呼び出し元がフォールバックを判断する）。
func (c *Client) ChatCompletion(ctx context.Context, system, user string, opts Options) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("チャット補完APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("model", c.model),
		)
		return "", fmt.Errorf("チャット補完APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("チャット補完APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("model", c.model),
		)
		return "", fmt.Errorf("チャット補完APIがステータス %d を返しました", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("チャット補完APIがエラーを返しました: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("チャット補完APIの応答に選択肢が含まれていません")
	}

	content := chatResp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("チャット補完APIの応答本文が空です")
	}

	c.logger.Debug("チャット補完が成功しました",
		slog.String("model", c.model),
		slog.Int("prompt_tokens", chatResp.Usage.PromptTokens),
		slog.Int("completion_tokens", chatResp.Usage.CompletionTokens),
	)
	return content, nil
}

// StripFences はLLM出力からMarkdownコードフェンス（```json ... ```）を除去する。
// JSONモードでも一部モデルはフェンス付きで返すことがあるため、パース前に通す。
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	if i := strings.LastIndex(s, "```"); i != -1 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
