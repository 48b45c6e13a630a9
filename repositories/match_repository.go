package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/match-arena/models"
)

var (
	ErrMatchNotFound = errors.New("match not found")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row for the remainder of the
	// transaction. Every status transition goes through this lock so
	// concurrent payments, evidence submissions and admin actions are
	// linearized per match.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	List(ctx context.Context, status *models.MatchStatus, matchType *models.MatchType) ([]*models.Match, error)
	ListStuckBefore(ctx context.Context, cutoff time.Time) ([]*models.Match, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	SetRoomCredentials(ctx context.Context, exec SQLExecutor, id int, roomID, roomCredential string) error
	MarkStarted(ctx context.Context, exec SQLExecutor, id int, startedAt time.Time) error
	MarkCompleted(ctx context.Context, exec SQLExecutor, id int, winningTeamID int, endedAt time.Time) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, match_type, status, game_name, entry_fee, prize_pool, team_size,
		room_id, room_credential, winning_team_id, created_by, created_at, started_at, ended_at`

func scanMatch(row *sql.Row) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.MatchType,
		&match.Status,
		&match.GameName,
		&match.EntryFee,
		&match.PrizePool,
		&match.TeamSize,
		&match.RoomID,
		&match.RoomCredential,
		&match.WinningTeamID,
		&match.CreatedBy,
		&match.CreatedAt,
		&match.StartedAt,
		&match.EndedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches (match_type, status, game_name, entry_fee, prize_pool, team_size, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return r.getExecutor(exec).QueryRowContext(ctx, query,
		match.MatchType,
		match.Status,
		match.GameName,
		match.EntryFee,
		match.PrizePool,
		match.TeamSize,
		match.CreatedBy,
	).Scan(&match.ID, &match.CreatedAt)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) List(ctx context.Context, statusFilter *models.MatchStatus, typeFilter *models.MatchType) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE 1=1`)

	args := []interface{}{}
	placeholderIndex := 1

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
		placeholderIndex++
	}
	if typeFilter != nil {
		queryBuilder.WriteString(" AND match_type = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *typeFilter)
		placeholderIndex++
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMatches(rows)
}

func (r *postgresMatchRepository) ListStuckBefore(ctx context.Context, cutoff time.Time) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE status IN ($1, $2, $3) AND created_at < $4
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query,
		models.MatchStatusWaiting,
		models.MatchStatusTeamAReady,
		models.MatchStatusTeamBReady,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMatches(rows)
}

func collectMatches(rows *sql.Rows) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	for rows.Next() {
		var match models.Match
		if scanErr := rows.Scan(
			&match.ID,
			&match.MatchType,
			&match.Status,
			&match.GameName,
			&match.EntryFee,
			&match.PrizePool,
			&match.TeamSize,
			&match.RoomID,
			&match.RoomCredential,
			&match.WinningTeamID,
			&match.CreatedBy,
			&match.CreatedAt,
			&match.StartedAt,
			&match.EndedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	query := `UPDATE matches SET status = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return r.requireMatch(result)
}

func (r *postgresMatchRepository) SetRoomCredentials(ctx context.Context, exec SQLExecutor, id int, roomID, roomCredential string) error {
	query := `UPDATE matches SET room_id = $1, room_credential = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, roomID, roomCredential, id)
	if err != nil {
		return err
	}
	return r.requireMatch(result)
}

func (r *postgresMatchRepository) MarkStarted(ctx context.Context, exec SQLExecutor, id int, startedAt time.Time) error {
	query := `UPDATE matches SET status = $1, started_at = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.MatchStatusInProgress, startedAt, id)
	if err != nil {
		return err
	}
	return r.requireMatch(result)
}

func (r *postgresMatchRepository) MarkCompleted(ctx context.Context, exec SQLExecutor, id int, winningTeamID int, endedAt time.Time) error {
	query := `UPDATE matches SET status = $1, winning_team_id = $2, ended_at = $3 WHERE id = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.MatchStatusCompleted, winningTeamID, endedAt, id)
	if err != nil {
		return err
	}
	return r.requireMatch(result)
}

func (r *postgresMatchRepository) requireMatch(result sql.Result) error {
	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrMatchNotFound
	}
	return nil
}
