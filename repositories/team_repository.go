package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/match-arena/models"
)

var (
	ErrTeamNotFound = errors.New("team not found")
	// ErrTeamSlotTaken is returned when a conditional claim hits a slot that
	// another request already named.
	ErrTeamSlotTaken = errors.New("team slot already claimed")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	GetByMatchAndSlot(ctx context.Context, exec SQLExecutor, matchID int, slot models.TeamSlot) (*models.Team, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Team, error)
	// ListByMatchForUpdate locks both team rows of the match, ordered by slot
	// so two concurrent claims always lock in the same order.
	ListByMatchForUpdate(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Team, error)
	// ClaimSlot names a team only if the slot is still open. The WHERE guard
	// makes the claim race-safe: the loser of a concurrent claim sees zero
	// affected rows and gets ErrTeamSlotTaken.
	ClaimSlot(ctx context.Context, exec SQLExecutor, teamID int, displayName string) error
	MarkReady(ctx context.Context, exec SQLExecutor, teamID int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `id, match_id, slot, display_name, is_ready, payment_completed, created_at`

func scanTeam(row *sql.Row) (*models.Team, error) {
	team := &models.Team{}
	err := row.Scan(
		&team.ID,
		&team.MatchID,
		&team.Slot,
		&team.DisplayName,
		&team.IsReady,
		&team.PaymentCompleted,
		&team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (match_id, slot)
		VALUES ($1, $2)
		RETURNING id, created_at`

	return r.getExecutor(exec).QueryRowContext(ctx, query,
		team.MatchID,
		team.Slot,
	).Scan(&team.ID, &team.CreatedAt)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return scanTeam(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTeamRepository) GetByMatchAndSlot(ctx context.Context, exec SQLExecutor, matchID int, slot models.TeamSlot) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE match_id = $1 AND slot = $2`
	return scanTeam(r.getExecutor(exec).QueryRowContext(ctx, query, matchID, slot))
}

func (r *postgresTeamRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE match_id = $1 ORDER BY slot ASC`
	return r.queryTeams(ctx, exec, query, matchID)
}

func (r *postgresTeamRepository) ListByMatchForUpdate(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE match_id = $1 ORDER BY slot ASC FOR UPDATE`
	return r.queryTeams(ctx, exec, query, matchID)
}

func (r *postgresTeamRepository) queryTeams(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Team, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0, 2)
	for rows.Next() {
		var team models.Team
		if scanErr := rows.Scan(
			&team.ID,
			&team.MatchID,
			&team.Slot,
			&team.DisplayName,
			&team.IsReady,
			&team.PaymentCompleted,
			&team.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, &team)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) ClaimSlot(ctx context.Context, exec SQLExecutor, teamID int, displayName string) error {
	query := `UPDATE teams SET display_name = $1 WHERE id = $2 AND display_name IS NULL`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, displayName, teamID)
	if err != nil {
		return err
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrTeamSlotTaken
	}
	return nil
}

func (r *postgresTeamRepository) MarkReady(ctx context.Context, exec SQLExecutor, teamID int) error {
	query := `UPDATE teams SET is_ready = TRUE, payment_completed = TRUE WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, teamID)
	if err != nil {
		return err
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}
