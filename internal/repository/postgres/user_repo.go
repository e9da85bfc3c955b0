package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shivam222343/aura/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, username, display_name, avatar_url, kind, is_online, last_seen, push_token, created_at`

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRepo) GetAssistant(ctx context.Context) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE kind = 'assistant' LIMIT 1")
}

// EnsureAssistant seeds the assistant user on startup. Re-running is
// safe: an existing row keeps its id and gets its display name refreshed.
func (r *UserRepo) EnsureAssistant(ctx context.Context, username, displayName string) (*domain.User, error) {
	query := `
		INSERT INTO users (id, username, display_name, kind, created_at)
		VALUES ($1, $2, $3, 'assistant', $4)
		ON CONFLICT (username) DO UPDATE
			SET display_name = EXCLUDED.display_name, kind = 'assistant'
		RETURNING ` + userColumns

	var u domain.User
	err := r.pool.QueryRow(ctx, query, uuid.New(), username, displayName, time.Now()).Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.Kind,
		&u.IsOnline, &u.LastSeen, &u.PushToken, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	query := `UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, online, lastSeen)
	return err
}

func (r *UserRepo) SetPushToken(ctx context.Context, id uuid.UUID, token *string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET push_token = $2 WHERE id = $1`, id, token)
	return err
}

// GetPushTokens returns the registered push token per user, skipping
// users without one.
func (r *UserRepo) GetPushTokens(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	query := `SELECT id, push_token FROM users WHERE id = ANY($1) AND push_token IS NOT NULL`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := make(map[uuid.UUID]string)
	for rows.Next() {
		var (
			id    uuid.UUID
			token string
		)
		if err := rows.Scan(&id, &token); err != nil {
			return nil, err
		}
		tokens[id] = token
	}

	return tokens, rows.Err()
}

func (r *UserRepo) ListAllIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE kind <> 'assistant'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *UserRepo) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.Kind,
		&u.IsOnline, &u.LastSeen, &u.PushToken, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &u, err
}
