package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/match-arena/models"
	"github.com/lib/pq"
)

var (
	ErrMemberNotFound = errors.New("team member not found")
	// ErrMemberConflict maps the unique (match_id, user_id) constraint: a user
	// appears in at most one team per match.
	ErrMemberConflict = errors.New("user already joined this match")
)

type MemberRepository interface {
	Create(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error
	// GetByTeamAndUserForUpdate locks the member row so a paying request holds
	// it until the debit-and-flip commits.
	GetByTeamAndUserForUpdate(ctx context.Context, exec SQLExecutor, teamID, userID int) (*models.TeamMember, error)
	ListByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]*models.TeamMember, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.TeamMember, error)
	ExistsByMatchAndUser(ctx context.Context, exec SQLExecutor, matchID, userID int) (bool, error)
	MarkPaid(ctx context.Context, exec SQLExecutor, memberID int) error
	// CountPaidByTeam counts members with completed payment. Readiness is
	// always judged against the match team size, never against this count's
	// denominator.
	CountPaidByTeam(ctx context.Context, exec SQLExecutor, teamID int) (int, error)
	CountPaidByMatch(ctx context.Context, exec SQLExecutor, matchID int) (int, error)
}

type postgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) MemberRepository {
	return &postgresMemberRepository{db: db}
}

func (r *postgresMemberRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const memberColumns = `id, team_id, match_id, user_id, is_captain, payment_amount, payment_status, created_at`

func (r *postgresMemberRepository) Create(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error {
	query := `
		INSERT INTO team_members (team_id, match_id, user_id, is_captain, payment_amount, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		member.TeamID,
		member.MatchID,
		member.UserID,
		member.IsCaptain,
		member.PaymentAmount,
		member.PaymentStatus,
	).Scan(&member.ID, &member.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "team_members_match_id_user_id_key" {
				return ErrMemberConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresMemberRepository) GetByTeamAndUserForUpdate(ctx context.Context, exec SQLExecutor, teamID, userID int) (*models.TeamMember, error) {
	query := `SELECT ` + memberColumns + ` FROM team_members WHERE team_id = $1 AND user_id = $2 FOR UPDATE`

	member := &models.TeamMember{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, teamID, userID).Scan(
		&member.ID,
		&member.TeamID,
		&member.MatchID,
		&member.UserID,
		&member.IsCaptain,
		&member.PaymentAmount,
		&member.PaymentStatus,
		&member.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

func (r *postgresMemberRepository) ListByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]*models.TeamMember, error) {
	query := `SELECT ` + memberColumns + ` FROM team_members WHERE team_id = $1 ORDER BY id ASC`
	return r.queryMembers(ctx, exec, query, teamID)
}

func (r *postgresMemberRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.TeamMember, error) {
	query := `SELECT ` + memberColumns + ` FROM team_members WHERE match_id = $1 ORDER BY id ASC`
	return r.queryMembers(ctx, exec, query, matchID)
}

func (r *postgresMemberRepository) queryMembers(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.TeamMember, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*models.TeamMember, 0)
	for rows.Next() {
		var member models.TeamMember
		if scanErr := rows.Scan(
			&member.ID,
			&member.TeamID,
			&member.MatchID,
			&member.UserID,
			&member.IsCaptain,
			&member.PaymentAmount,
			&member.PaymentStatus,
			&member.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		members = append(members, &member)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *postgresMemberRepository) ExistsByMatchAndUser(ctx context.Context, exec SQLExecutor, matchID, userID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM team_members WHERE match_id = $1 AND user_id = $2)`
	var exists bool
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresMemberRepository) MarkPaid(ctx context.Context, exec SQLExecutor, memberID int) error {
	query := `UPDATE team_members SET payment_status = $1 WHERE id = $2 AND payment_status = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.PaymentCompleted, memberID, models.PaymentPending)
	if err != nil {
		return err
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *postgresMemberRepository) CountPaidByTeam(ctx context.Context, exec SQLExecutor, teamID int) (int, error) {
	query := `SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND payment_status = $2`
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx, query, teamID, models.PaymentCompleted).Scan(&count)
	return count, err
}

func (r *postgresMemberRepository) CountPaidByMatch(ctx context.Context, exec SQLExecutor, matchID int) (int, error) {
	query := `SELECT COUNT(*) FROM team_members WHERE match_id = $1 AND payment_status = $2`
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, models.PaymentCompleted).Scan(&count)
	return count, err
}
