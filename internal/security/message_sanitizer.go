// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageSanitizerService は受信メッセージのテキストをプレーンテキストに正規化する。
// チャットプラットフォーム経由のメッセージはHTML断片を含むことがあるため、
// bluemondayの許可リストなしポリシーで全タグを除去し、
// プランナーとストレージには常に安全なプレーンテキストだけを渡す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
)

// MessageSanitizerService は受信メッセージの正規化機能のインターフェースを定義する。
// 会話エンドポイントでの受信時に使用される。
type MessageSanitizerService interface {
	// Sanitize はメッセージテキストをプレーンテキストに正規化する。
	// 全HTMLタグを除去し、ブロック要素と<br>は改行に変換する。
	// script/style要素は中身ごと破棄される。
	// HTMLエンティティはデコードされ、空白は行単位で正規化される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// blockBoundaryTags は改行に変換されるタグ。
// 行構造を保つことで、複数行の日誌エントリが1行に潰れるのを防ぐ。
var blockBoundaryTags = map[string]bool{
	"br": true, "p": true, "div": true,
	"li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "blockquote": true, "pre": true, "section": true, "article": true,
}

// messageSanitizer はMessageSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフに正規化処理を行う。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（許可タグなし）を使用するため、いかなるマークアップも通過しない。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はメッセージテキストをプレーンテキストに正規化する。
func (s *messageSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	if strings.ContainsRune(raw, '<') {
		text = extractText(raw)
	}

	// タグ断片の取りこぼしはStrictPolicyで確実に除去する。
	// StrictPolicyは特殊文字をエンティティにエスケープするため、
	// プレーンテキスト用途ではUnescapeStringで戻す。
	text = s.policy.Sanitize(text)
	text = html.UnescapeString(text)

	return normalizeWhitespace(text)
}

// extractText はHTML断片からテキストを抽出する。
// ブロック要素の境界は改行に変換し、script/styleの中身は破棄する。
// 不正なHTMLでもエラーにせず、解釈できた範囲のテキストを返す。
func extractText(raw string) string {
	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
	var b strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case xhtml.ErrorToken:
			// io.EOFまたはパース不能: ここまでの抽出結果を返す
			return b.String()
		case xhtml.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
			}
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken, xhtml.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)

			if tag == "script" || tag == "style" {
				if tt == xhtml.StartTagToken {
					skipDepth++
				} else if tt == xhtml.EndTagToken && skipDepth > 0 {
					skipDepth--
				}
				continue
			}

			if blockBoundaryTags[tag] {
				b.WriteByte('\n')
			}
		}
	}
}

// normalizeWhitespace は空白を正規化する。
// 各行の前後空白を除去し連続空白を1つにまとめ、
// 連続する空行は1つに畳み、先頭と末尾の空行を除去する。
func normalizeWhitespace(s string) string {
	rawLines := strings.Split(s, "\n")
	var lines []string
	pendingBlank := false

	for _, raw := range rawLines {
		line := strings.Join(strings.Fields(raw), " ")
		if line == "" {
			if len(lines) > 0 {
				pendingBlank = true
			}
			continue
		}
		if pendingBlank {
			lines = append(lines, "")
			pendingBlank = false
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}
