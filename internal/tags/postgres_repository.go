package tags

import (
	"context"
	"errors"
	"strings"
	"time"

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

// Create inserts a tag.
func (r *PostgresRepository) Create(ctx context.Context, tag Tag) (Tag, error) {
	const query = `INSERT INTO tags (name, created_at) VALUES ($1, $2) RETURNING id`

	if err := r.db.QueryRowxContext(ctx, query, tag.Name, tag.CreatedAt).Scan(&tag.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return Tag{}, ErrDuplicate
		}
		return Tag{}, err
	}
	return tag, nil
}

// Search runs an ILIKE substring match served by the trigram index.
func (r *PostgresRepository) Search(ctx context.Context, query string, limit int) ([]Tag, error) {
	var rows []tagRow
	var err error
	if query == "" {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT id, name, created_at FROM tags ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT id, name, created_at FROM tags WHERE name ILIKE $1 ESCAPE '\' ORDER BY created_at DESC, id DESC LIMIT $2`,
			"%"+escapeLike(query)+"%", limit)
	}
	if err != nil {
		return nil, err
	}

	result := make([]Tag, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toTag())
	}
	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type tagRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (r tagRow) toTag() Tag {
	return Tag{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}
