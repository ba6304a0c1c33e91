package repository

import (
	"database/sql"
	"testing"

	"github.com/hitoshi/hisho/internal/model"
)

// PostgresJournalRepoはJournalRepositoryインターフェースを満たすことを検証
func TestPostgresJournalRepo_ImplementsInterface(t *testing.T) {
	var _ JournalRepository = (*PostgresJournalRepo)(nil)
}

// NewPostgresJournalRepoが正しく初期化されることを検証
func TestNewPostgresJournalRepo_Initializes(t *testing.T) {
	repo := NewPostgresJournalRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// nullStringが空文字列をNULLに変換することを検証
func TestNullString(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("empty string should map to NULL")
	}
	if ns := nullString("positive"); !ns.Valid || ns.String != "positive" {
		t.Errorf("non-empty string should be valid: %+v", ns)
	}
}

// nullStringValueがNULLを空文字列に戻すことを検証
func TestNullStringValue(t *testing.T) {
	if got := nullStringValue(sql.NullString{}); got != "" {
		t.Errorf("NULL should map to empty string, got %q", got)
	}
	if got := nullStringValue(sql.NullString{String: "neutral", Valid: true}); got != "neutral" {
		t.Errorf("valid string should round-trip, got %q", got)
	}
}

// 感情ラベルが空のままでもモデルに収まることの検証
// （sentimentはNULL許容カラムのため）
func TestJournal_EmptySentiment_Concept(t *testing.T) {
	journal := &model.Journal{
		UserID: "u1",
		Entry:  "today was fine",
	}
	if journal.Sentiment != "" {
		t.Errorf("unset sentiment should be empty, got %q", journal.Sentiment)
	}
	if model.IsValidSentiment(string(journal.Sentiment)) {
		t.Error("empty sentiment is not a valid label")
	}
}
