package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taotie8304/lu-gang-connect-project/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO user_sessions (
			id, user_id, team_id, team_member_id, is_root, client_ip, created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW(), $7
		)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.TeamID,
		session.TeamMemberID,
		session.IsRoot,
		session.ClientIP,
		session.ExpiresAt,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	const query = `
		SELECT id, user_id, team_id, team_member_id, is_root, client_ip, created_at, expires_at
		FROM user_sessions
		WHERE id = $1 AND expires_at > NOW()
	`
	row := r.pool.QueryRow(ctx, query, id)
	var session models.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TeamID,
		&session.TeamMemberID,
		&session.IsRoot,
		&session.ClientIP,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM user_sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// DeleteAllExcept drops every session of a user but the one that
// authenticated the current request. Pass keepID "" to drop them all.
func (r *SessionRepository) DeleteAllExcept(ctx context.Context, userID string, keepID string) error {
	const query = `DELETE FROM user_sessions WHERE user_id = $1 AND id <> $2`
	_, err := r.pool.Exec(ctx, query, userID, keepID)
	return err
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE expires_at <= NOW()`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
