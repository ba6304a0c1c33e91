package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hisho/internal/model"
)

// PostgresJournalRepo はPostgreSQLを使用した日誌リポジトリ。
type PostgresJournalRepo struct {
	db *sql.DB
}

// NewPostgresJournalRepo はPostgresJournalRepoを生成する。
func NewPostgresJournalRepo(db *sql.DB) *PostgresJournalRepo {
	return &PostgresJournalRepo{db: db}
}

// Create は日誌エントリを作成する。
func (r *PostgresJournalRepo) Create(ctx context.Context, journal *model.Journal) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO journals (user_id, entry, summary, sentiment)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		journal.UserID, journal.Entry, nullString(journal.Summary), nullString(string(journal.Sentiment)),
	).Scan(&journal.ID, &journal.CreatedAt)
	if err != nil {
		return fmt.Errorf("日誌の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByUserAndID はオーナーとIDで日誌を取得する。見つからない場合はnilを返す。
func (r *PostgresJournalRepo) FindByUserAndID(ctx context.Context, userID string, id int64) (*model.Journal, error) {
	journal := &model.Journal{}
	var summary, sentiment sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, entry, summary, sentiment, created_at
		 FROM journals WHERE user_id = $1 AND id = $2`,
		userID, id,
	).Scan(&journal.ID, &journal.UserID, &journal.Entry, &summary, &sentiment, &journal.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("日誌の取得に失敗しました: %w", err)
	}

	journal.Summary = nullStringValue(summary)
	journal.Sentiment = model.Sentiment(nullStringValue(sentiment))

	return journal, nil
}

// FindNewestMatching は本文に部分文字列（大文字小文字無視）を含む最新の日誌を返す。
// 見つからない場合はnilを返す。
func (r *PostgresJournalRepo) FindNewestMatching(ctx context.Context, userID, substr string) (*model.Journal, error) {
	journal := &model.Journal{}
	var summary, sentiment sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, entry, summary, sentiment, created_at
		 FROM journals WHERE user_id = $1 AND entry ILIKE '%' || $2 || '%'
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, escapeLike(substr),
	).Scan(&journal.ID, &journal.UserID, &journal.Entry, &summary, &sentiment, &journal.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("日誌の部分一致検索に失敗しました: %w", err)
	}

	journal.Summary = nullStringValue(summary)
	journal.Sentiment = model.Sentiment(nullStringValue(sentiment))

	return journal, nil
}

// ListByUser はオーナーの日誌一覧を新しい順で最大limit件返す。
// limitが0以下の場合は全件返す。
func (r *PostgresJournalRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Journal, error) {
	query := `SELECT id, user_id, entry, summary, sentiment, created_at
	          FROM journals WHERE user_id = $1
	          ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("日誌一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var journals []*model.Journal
	for rows.Next() {
		journal := &model.Journal{}
		var summary, sentiment sql.NullString

		if err := rows.Scan(&journal.ID, &journal.UserID, &journal.Entry, &summary, &sentiment, &journal.CreatedAt); err != nil {
			return nil, fmt.Errorf("日誌行の読み取りに失敗しました: %w", err)
		}

		journal.Summary = nullStringValue(summary)
		journal.Sentiment = model.Sentiment(nullStringValue(sentiment))

		journals = append(journals, journal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("日誌一覧の走査に失敗しました: %w", err)
	}

	return journals, nil
}

// Update は日誌の本文・要約・感情を上書き更新する。
func (r *PostgresJournalRepo) Update(ctx context.Context, journal *model.Journal) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE journals SET entry = $3, summary = $4, sentiment = $5
		 WHERE user_id = $1 AND id = $2`,
		journal.UserID, journal.ID, journal.Entry,
		nullString(journal.Summary), nullString(string(journal.Sentiment)),
	)
	if err != nil {
		return fmt.Errorf("日誌の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete はオーナーとIDで日誌を削除する。
func (r *PostgresJournalRepo) Delete(ctx context.Context, userID string, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM journals WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	if err != nil {
		return fmt.Errorf("日誌の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("日誌が見つかりません: %d", id)
	}
	return nil
}

// DeleteAllByUser はオーナーの全日誌を削除し、件数を返す。
func (r *PostgresJournalRepo) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM journals WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("日誌の一括削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return rowsAffected, nil
}

// nullString は空文字列をsql.NullStringのNULLに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ JournalRepository = (*PostgresJournalRepo)(nil)
