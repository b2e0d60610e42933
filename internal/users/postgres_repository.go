package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectUserColumns = `SELECT id, email, name, avatar, role, created_at FROM users`

// FindByID looks up a user by primary key.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, selectUserColumns+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toUser(), nil
}

// FindByEmail looks up a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, selectUserColumns+` WHERE email = $1`, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toUser(), nil
}

// Create inserts a user and lets the sequence assign its id.
func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	const query = `
		INSERT INTO users (email, name, avatar, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if err := r.db.QueryRowxContext(ctx, query,
		user.Email,
		user.Name,
		user.AvatarURL,
		string(user.Role),
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		return User{}, translateError(err)
	}
	return user, nil
}

// CreateWithID inserts a user under a fixed id and moves the sequence past it.
func (r *PostgresRepository) CreateWithID(ctx context.Context, user User) (User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insert = `
		INSERT INTO users (id, email, name, avatar, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert,
		user.ID,
		user.Email,
		user.Name,
		user.AvatarURL,
		string(user.Role),
		user.CreatedAt,
	); err != nil {
		return User{}, translateError(err)
	}

	const bump = `SELECT setval(pg_get_serial_sequence('users', 'id'), GREATEST((SELECT MAX(id) FROM users), 1))`
	if _, err := tx.ExecContext(ctx, bump); err != nil {
		return User{}, err
	}

	var row userRow
	if err := tx.GetContext(ctx, &row, selectUserColumns+` WHERE id = $1`, user.ID); err != nil {
		return User{}, err
	}
	if err := tx.Commit(); err != nil {
		return User{}, err
	}
	return *row.toUser(), nil
}

// UpdateDisplayFields refreshes the name and avatar of a user.
func (r *PostgresRepository) UpdateDisplayFields(ctx context.Context, id int64, name string, avatarURL *string) error {
	const query = `UPDATE users SET name = $2, avatar = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, name, avatarURL)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetRole replaces the role of a user.
func (r *PostgresRepository) SetRole(ctx context.Context, id int64, role Role) error {
	const query = `UPDATE users SET role = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, string(role))
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

// userRow is a database row representation of User.
type userRow struct {
	ID        int64          `db:"id"`
	Email     string         `db:"email"`
	Name      string         `db:"name"`
	AvatarURL sql.NullString `db:"avatar"`
	Role      string         `db:"role"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r *userRow) toUser() *User {
	user := &User{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		Role:      Role(r.Role),
		CreatedAt: r.CreatedAt,
	}
	if r.AvatarURL.Valid {
		avatar := r.AvatarURL.String
		user.AvatarURL = &avatar
	}
	return user
}
