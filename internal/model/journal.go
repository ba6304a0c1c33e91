// Package model はドメインモデルを定義する。
package model

import "time"

// Journal はユーザーのジャーナル（振り返り記録）を表す。
// SummaryとSentimentはLLMによる派生値で、生成に失敗した場合は空のまま保存される。
type Journal struct {
	ID        int64
	UserID    string
	Entry     string
	Summary   string
	Sentiment Sentiment
	CreatedAt time.Time
}

// Sentiment はジャーナルの感情ラベルを表す。
type Sentiment string

const (
	// SentimentPositive は肯定的な感情。
	SentimentPositive Sentiment = "positive"
	// SentimentNeutral は中立的な感情。
	SentimentNeutral Sentiment = "neutral"
	// SentimentNegative は否定的な感情。
	SentimentNegative Sentiment = "negative"
)

// IsValidSentiment は有効な感情ラベルかどうかを返す。
func IsValidSentiment(s string) bool {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}
