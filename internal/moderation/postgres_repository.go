package moderation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// PurgeUserContent removes the user's content in one transaction.
func (r *PostgresRepository) PurgeUserContent(ctx context.Context, userID int64) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("delete likes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE author_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("delete comments: %w", err)
	}

	var articleIDs []int64
	if err := tx.SelectContext(ctx, &articleIDs, `SELECT id FROM articles WHERE author_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("list articles: %w", err)
	}

	if len(articleIDs) > 0 {
		ids := pq.Array(articleIDs)
		for _, stmt := range []string{
			`DELETE FROM article_tags WHERE article_id = ANY($1)`,
			`DELETE FROM likes WHERE article_id = ANY($1)`,
			`DELETE FROM comments WHERE article_id = ANY($1)`,
			`DELETE FROM articles WHERE id = ANY($1)`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, ids); err != nil {
				return 0, fmt.Errorf("purge articles: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(articleIDs), nil
}

// DummyUserIDs lists seeded test accounts.
func (r *PostgresRepository) DummyUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users WHERE email LIKE $1 ORDER BY id`, DummyEmailPattern); err != nil {
		return nil, err
	}
	return ids, nil
}

// RecordAudit inserts an audit_logs row.
func (r *PostgresRepository) RecordAudit(ctx context.Context, entry AuditEntry) error {
	var meta sql.NullString
	if entry.Meta != nil {
		encoded, err := json.Marshal(entry.Meta)
		if err != nil {
			return fmt.Errorf("encode audit meta: %w", err)
		}
		meta = sql.NullString{String: string(encoded), Valid: true}
	}

	const query = `
		INSERT INTO audit_logs (actor_id, action, target_type, target_id, meta, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		meta,
		entry.CreatedAt,
	)
	return err
}
