package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/match-arena/models"
)

var (
	ErrResultNotFound = errors.New("match result not found")
)

type ResultRepository interface {
	// Upsert creates the result row for a match or updates the existing one.
	// The unique constraint on match_id is what makes settlement idempotent:
	// a second settle attempt lands on the same row instead of creating a
	// second payout record.
	Upsert(ctx context.Context, exec SQLExecutor, result *models.MatchResult) error
	GetByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchResult, error)
	// GetByMatchForUpdate locks the result row (if present) so racing settle
	// callers serialize on it.
	GetByMatchForUpdate(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchResult, error)
}

type postgresResultRepository struct {
	db *sql.DB
}

func NewPostgresResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const resultColumns = `id, match_id, winning_team_id, prize_awarded, prize_amount, resolution_method, resolved_at`

func scanResult(row *sql.Row) (*models.MatchResult, error) {
	result := &models.MatchResult{}
	err := row.Scan(
		&result.ID,
		&result.MatchID,
		&result.WinningTeamID,
		&result.PrizeAwarded,
		&result.PrizeAmount,
		&result.ResolutionMethod,
		&result.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return result, nil
}

func (r *postgresResultRepository) Upsert(ctx context.Context, exec SQLExecutor, result *models.MatchResult) error {
	query := `
		INSERT INTO match_results (match_id, winning_team_id, prize_awarded, prize_amount, resolution_method, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id) DO UPDATE SET
			winning_team_id = EXCLUDED.winning_team_id,
			prize_awarded = EXCLUDED.prize_awarded,
			prize_amount = EXCLUDED.prize_amount,
			resolution_method = EXCLUDED.resolution_method,
			resolved_at = EXCLUDED.resolved_at
		RETURNING id`

	return r.getExecutor(exec).QueryRowContext(ctx, query,
		result.MatchID,
		result.WinningTeamID,
		result.PrizeAwarded,
		result.PrizeAmount,
		result.ResolutionMethod,
		result.ResolvedAt,
	).Scan(&result.ID)
}

func (r *postgresResultRepository) GetByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchResult, error) {
	query := `SELECT ` + resultColumns + ` FROM match_results WHERE match_id = $1`
	return scanResult(r.getExecutor(exec).QueryRowContext(ctx, query, matchID))
}

func (r *postgresResultRepository) GetByMatchForUpdate(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchResult, error) {
	query := `SELECT ` + resultColumns + ` FROM match_results WHERE match_id = $1 FOR UPDATE`
	return scanResult(r.getExecutor(exec).QueryRowContext(ctx, query, matchID))
}
