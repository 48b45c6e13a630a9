package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/match-arena/models"
)

var (
	ErrScreenshotNotFound = errors.New("screenshot not found")
)

type ScreenshotRepository interface {
	// Upsert stores the evidence for (match, team). A second submission from
	// the same team overwrites the first rather than accumulating.
	Upsert(ctx context.Context, exec SQLExecutor, shot *models.Screenshot) error
	GetByMatchAndTeam(ctx context.Context, exec SQLExecutor, matchID, teamID int) (*models.Screenshot, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Screenshot, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.VerificationStatus) error
	MarkAllDisputed(ctx context.Context, exec SQLExecutor, matchID int) error
}

type postgresScreenshotRepository struct {
	db *sql.DB
}

func NewPostgresScreenshotRepository(db *sql.DB) ScreenshotRepository {
	return &postgresScreenshotRepository{db: db}
}

func (r *postgresScreenshotRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const screenshotColumns = `id, match_id, team_id, image_key, raw_text, verification_status, submitted_by, created_at, updated_at`

func (r *postgresScreenshotRepository) Upsert(ctx context.Context, exec SQLExecutor, shot *models.Screenshot) error {
	query := `
		INSERT INTO screenshots (match_id, team_id, image_key, raw_text, verification_status, submitted_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id, team_id) DO UPDATE SET
			image_key = EXCLUDED.image_key,
			raw_text = EXCLUDED.raw_text,
			verification_status = EXCLUDED.verification_status,
			submitted_by = EXCLUDED.submitted_by,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return r.getExecutor(exec).QueryRowContext(ctx, query,
		shot.MatchID,
		shot.TeamID,
		shot.ImageKey,
		shot.RawText,
		shot.VerificationStatus,
		shot.SubmittedBy,
	).Scan(&shot.ID, &shot.CreatedAt, &shot.UpdatedAt)
}

func (r *postgresScreenshotRepository) GetByMatchAndTeam(ctx context.Context, exec SQLExecutor, matchID, teamID int) (*models.Screenshot, error) {
	query := `SELECT ` + screenshotColumns + ` FROM screenshots WHERE match_id = $1 AND team_id = $2`

	shot := &models.Screenshot{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, teamID).Scan(
		&shot.ID,
		&shot.MatchID,
		&shot.TeamID,
		&shot.ImageKey,
		&shot.RawText,
		&shot.VerificationStatus,
		&shot.SubmittedBy,
		&shot.CreatedAt,
		&shot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScreenshotNotFound
		}
		return nil, err
	}
	return shot, nil
}

func (r *postgresScreenshotRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Screenshot, error) {
	query := `SELECT ` + screenshotColumns + ` FROM screenshots WHERE match_id = $1 ORDER BY team_id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shots := make([]*models.Screenshot, 0, 2)
	for rows.Next() {
		var shot models.Screenshot
		if scanErr := rows.Scan(
			&shot.ID,
			&shot.MatchID,
			&shot.TeamID,
			&shot.ImageKey,
			&shot.RawText,
			&shot.VerificationStatus,
			&shot.SubmittedBy,
			&shot.CreatedAt,
			&shot.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		shots = append(shots, &shot)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return shots, nil
}

func (r *postgresScreenshotRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.VerificationStatus) error {
	query := `UPDATE screenshots SET verification_status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrScreenshotNotFound
	}
	return nil
}

func (r *postgresScreenshotRepository) MarkAllDisputed(ctx context.Context, exec SQLExecutor, matchID int) error {
	query := `UPDATE screenshots SET verification_status = $1, updated_at = NOW() WHERE match_id = $2`
	_, err := r.getExecutor(exec).ExecContext(ctx, query, models.VerificationDisputed, matchID)
	return err
}
