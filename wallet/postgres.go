package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/match-arena/repositories"
)

type postgresGateway struct {
	db *sql.DB
}

func NewPostgresGateway(db *sql.DB) Gateway {
	return &postgresGateway{db: db}
}

func (g *postgresGateway) getExecutor(exec repositories.SQLExecutor) repositories.SQLExecutor {
	if exec != nil {
		return exec
	}
	return g.db
}

// Debit locks the wallet row, verifies the balance and subtracts in one
// statement sequence. The row lock holds until the surrounding transaction
// commits, so a concurrent debit of the same wallet waits and then re-reads
// the reduced balance.
func (g *postgresGateway) Debit(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	executor := g.getExecutor(exec)

	var balance int64
	err := executor.QueryRowContext(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrWalletNotFound
		}
		return fmt.Errorf("failed to lock wallet for user %d: %w", userID, err)
	}

	if balance < amount {
		return ErrInsufficientFunds
	}

	_, err = executor.ExecContext(ctx,
		`UPDATE users SET wallet_balance = wallet_balance - $1 WHERE id = $2`, amount, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to debit wallet for user %d: %w", userID, err)
	}
	return nil
}

func (g *postgresGateway) Credit(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	result, err := g.getExecutor(exec).ExecContext(ctx,
		`UPDATE users SET wallet_balance = wallet_balance + $1 WHERE id = $2`, amount, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to credit wallet for user %d: %w", userID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (g *postgresGateway) Balance(ctx context.Context, userID int) (int64, error) {
	var balance int64
	err := g.db.QueryRowContext(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1`, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrWalletNotFound
		}
		return 0, err
	}
	return balance, nil
}
