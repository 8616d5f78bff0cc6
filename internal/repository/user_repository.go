package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taotie8304/lu-gang-connect-project/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	id, username, email, password_hash, avatar, timezone, status,
	inviter_id, last_login_member_id, password_updated_at, created_at, updated_at
`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Avatar,
		&user.Timezone,
		&user.Status,
		&user.InviterID,
		&user.LastLoginMemberID,
		&user.PasswordUpdatedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// FindByBoundEmail looks up an account whose secondary email matches. Phone
// registrations bind an email for code delivery; that email may not be
// reused by another account.
func (r *UserRepository) FindByBoundEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// CreateWithTeam inserts the user together with its default team and the
// owner membership in one transaction. A user without a team is an invalid
// state, so all three rows commit or none do.
func (r *UserRepository) CreateWithTeam(ctx context.Context, user models.User, team models.Team, member models.TeamMember) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertUser = `
			INSERT INTO users (
				id, username, email, password_hash, avatar, timezone, status, inviter_id, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
			)
		`
		if _, err := tx.Exec(ctx, insertUser,
			user.ID,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.Avatar,
			user.Timezone,
			user.Status,
			user.InviterID,
		); err != nil {
			return err
		}

		const insertTeam = `
			INSERT INTO teams (id, name, avatar, owner_id, balance, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`
		if _, err := tx.Exec(ctx, insertTeam,
			team.ID,
			team.Name,
			team.Avatar,
			team.OwnerID,
			team.Balance,
		); err != nil {
			return err
		}

		const insertMember = `
			INSERT INTO team_members (id, team_id, user_id, name, role, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`
		if _, err := tx.Exec(ctx, insertMember,
			member.ID,
			member.TeamID,
			member.UserID,
			member.Name,
			member.Role,
		); err != nil {
			return err
		}

		const setLastLogin = `UPDATE users SET last_login_member_id = $2 WHERE id = $1`
		_, err := tx.Exec(ctx, setLastLogin, user.ID, member.ID)
		return err
	})
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	const query = `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, memberID string) error {
	const query = `UPDATE users SET last_login_member_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, memberID)
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, digest string) error {
	const query = `
		UPDATE users
		SET password_hash = $2, password_updated_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, digest)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id string, avatarURL string) error {
	const query = `UPDATE users SET avatar = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, avatarURL)
	return err
}

// UserWithTeam is the admin listing row: the account joined with its
// default team and member names.
type UserWithTeam struct {
	models.User
	TeamName   string
	MemberName string
}

// ListWithTeam joins each account with its owner membership only, so a
// user invited into other teams still produces exactly one row and the
// page count stays aligned with Count.
func (r *UserRepository) ListWithTeam(ctx context.Context, search string, limit int, offset int) ([]UserWithTeam, error) {
	const query = `
		SELECT u.id, u.username, u.avatar, u.status, u.last_login_member_id, u.created_at,
		       COALESCE(t.name, ''), COALESCE(tm.name, '')
		FROM users u
		LEFT JOIN team_members tm ON tm.user_id = u.id AND tm.role = 'owner'
		LEFT JOIN teams t ON t.id = tm.team_id
		WHERE ($1 = '' OR u.username ILIKE '%' || $1 || '%')
		ORDER BY u.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []UserWithTeam
	for rows.Next() {
		var item UserWithTeam
		if err := rows.Scan(
			&item.ID,
			&item.Username,
			&item.Avatar,
			&item.Status,
			&item.LastLoginMemberID,
			&item.CreatedAt,
			&item.TeamName,
			&item.MemberName,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context, search string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE ($1 = '' OR username ILIKE '%' || $1 || '%')`
	var count int
	if err := r.pool.QueryRow(ctx, query, search).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
