package executor

import (
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// dateLayouts は構造化された日時表現を自然言語解釈より先に試すためのレイアウト群。
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// dateParser は英語の自然言語日時表現（"tomorrow at 5pm" など）を解釈する。
var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDateTime は日時表現のテキストを解釈する。数字のみの表記はエポック秒、
// 次に既知のレイアウト、最後に自然言語表現の順に試し、どれにも当てはまらない
// 場合はnilを返す。解釈できないことはエラーにしない。
// 相対表現（"in 2 hours" など）はbaseを基準に解決される。
func ParseDateTime(text string, base time.Time) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// エポック秒。0は未設定の意味で使われるためnil扱いにする。
	if sec, err := strconv.ParseInt(text, 10, 64); err == nil {
		if sec == 0 {
			return nil
		}
		t := time.Unix(sec, 0).UTC()
		return &t
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}

	r, err := dateParser.Parse(text, base)
	if err != nil || r == nil {
		return nil
	}
	t := r.Time
	return &t
}
