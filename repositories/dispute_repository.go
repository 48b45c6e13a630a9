package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dosada05/match-arena/models"
	"github.com/lib/pq"
)

var (
	ErrDisputeNotFound     = errors.New("dispute not found")
	ErrDisputeMatchInvalid = errors.New("dispute references an invalid match or team")
)

type DisputeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error)
	// GetByIDForUpdate locks the dispute row while an arbiter resolves it.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Dispute, error)
	HasOpenByMatch(ctx context.Context, exec SQLExecutor, matchID int) (bool, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.DisputeStatus) error
	UpdateResolution(ctx context.Context, exec SQLExecutor, id int, status models.DisputeStatus, notes *string, resolvedAt time.Time) error
}

type postgresDisputeRepository struct {
	db *sql.DB
}

func NewPostgresDisputeRepository(db *sql.DB) DisputeRepository {
	return &postgresDisputeRepository{db: db}
}

func (r *postgresDisputeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const disputeColumns = `id, match_id, reporter_id, reported_team_id, reason, status, admin_notes, created_at, resolved_at`

func scanDispute(row *sql.Row) (*models.Dispute, error) {
	dispute := &models.Dispute{}
	err := row.Scan(
		&dispute.ID,
		&dispute.MatchID,
		&dispute.ReporterID,
		&dispute.ReportedTeamID,
		&dispute.Reason,
		&dispute.Status,
		&dispute.AdminNotes,
		&dispute.CreatedAt,
		&dispute.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return dispute, nil
}

func (r *postgresDisputeRepository) Create(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error {
	query := `
		INSERT INTO disputes (match_id, reporter_id, reported_team_id, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		dispute.MatchID,
		dispute.ReporterID,
		dispute.ReportedTeamID,
		dispute.Reason,
		dispute.Status,
	).Scan(&dispute.ID, &dispute.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrDisputeMatchInvalid
		}
		return err
	}
	return nil
}

func (r *postgresDisputeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	return scanDispute(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresDisputeRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1 FOR UPDATE`
	return scanDispute(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresDisputeRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE match_id = $1 ORDER BY created_at DESC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	disputes := make([]*models.Dispute, 0)
	for rows.Next() {
		var dispute models.Dispute
		if scanErr := rows.Scan(
			&dispute.ID,
			&dispute.MatchID,
			&dispute.ReporterID,
			&dispute.ReportedTeamID,
			&dispute.Reason,
			&dispute.Status,
			&dispute.AdminNotes,
			&dispute.CreatedAt,
			&dispute.ResolvedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		disputes = append(disputes, &dispute)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return disputes, nil
}

func (r *postgresDisputeRepository) HasOpenByMatch(ctx context.Context, exec SQLExecutor, matchID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM disputes WHERE match_id = $1 AND status IN ($2, $3))`
	var exists bool
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, models.DisputePending, models.DisputeUnderReview).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresDisputeRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.DisputeStatus) error {
	query := `UPDATE disputes SET status = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

func (r *postgresDisputeRepository) UpdateResolution(ctx context.Context, exec SQLExecutor, id int, status models.DisputeStatus, notes *string, resolvedAt time.Time) error {
	query := `UPDATE disputes SET status = $1, admin_notes = $2, resolved_at = $3 WHERE id = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, notes, resolvedAt, id)
	if err != nil {
		return err
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrDisputeNotFound
	}
	return nil
}
