package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taotie8304/lu-gang-connect-project/internal/models"
)

var ErrTeamMemberNotFound = errors.New("team member not found")

type TeamRepository struct {
	pool *pgxpool.Pool
}

func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

const memberDetailColumns = `
	tm.id, tm.name, t.id, t.name, t.avatar, t.balance, tm.user_id
`

func scanMemberDetail(row pgx.Row) (models.TeamMemberDetail, error) {
	var detail models.TeamMemberDetail
	if err := row.Scan(
		&detail.MemberID,
		&detail.MemberName,
		&detail.TeamID,
		&detail.TeamName,
		&detail.TeamAvatar,
		&detail.Balance,
		&detail.UserID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TeamMemberDetail{}, ErrTeamMemberNotFound
		}
		return models.TeamMemberDetail{}, err
	}
	return detail, nil
}

func (r *TeamRepository) GetMemberDetail(ctx context.Context, memberID string) (models.TeamMemberDetail, error) {
	query := `
		SELECT ` + memberDetailColumns + `
		FROM team_members tm
		JOIN teams t ON t.id = tm.team_id
		WHERE tm.id = $1
	`
	return scanMemberDetail(r.pool.QueryRow(ctx, query, memberID))
}

// GetDetailByUserID resolves a user's team membership. Accounts carry
// exactly one default team; the oldest membership wins if more exist.
func (r *TeamRepository) GetDetailByUserID(ctx context.Context, userID string) (models.TeamMemberDetail, error) {
	query := `
		SELECT ` + memberDetailColumns + `
		FROM team_members tm
		JOIN teams t ON t.id = tm.team_id
		WHERE tm.user_id = $1
		ORDER BY tm.created_at ASC
		LIMIT 1
	`
	return scanMemberDetail(r.pool.QueryRow(ctx, query, userID))
}
