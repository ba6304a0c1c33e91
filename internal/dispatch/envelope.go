package dispatch

// Destination はプッシュ配信先。Tokenは空の場合があり、そのときは
// 資格情報なしで配信する。
type Destination struct {
	URL   string
	Token string
}

// Envelope は配信先に送る応答の外形。ResultかErrorのどちらか一方だけを持つ。
// RequestIDは受信リクエストのrequestIdをそのまま写し、プレビューと
// 最終応答の突き合わせに使われる。
type Envelope struct {
	RequestID string      `json:"requestId"`
	Result    *ResultBody `json:"result,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
}

// ResultBody は正常応答の本体。
type ResultBody struct {
	Messages []Message `json:"messages"`
	Metadata any       `json:"metadata,omitempty"`
}

// Message は応答メッセージ1件。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrorBody は境界エラー応答の本体。
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewResultEnvelope は正常応答のエンベロープを生成する。
// metadataがnilの場合は省略される。
func NewResultEnvelope(requestID, content string, metadata any) *Envelope {
	return &Envelope{
		RequestID: requestID,
		Result: &ResultBody{
			Messages: []Message{{Role: "assistant", Content: content}},
			Metadata: metadata,
		},
	}
}

// NewErrorEnvelope は境界エラー応答のエンベロープを生成する。
func NewErrorEnvelope(requestID, code, message string) *Envelope {
	return &Envelope{
		RequestID: requestID,
		Error:     &ErrorBody{Code: code, Message: message},
	}
}
