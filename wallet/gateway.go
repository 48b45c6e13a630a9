package wallet

import (
	"context"
	"errors"

	"github.com/Dosada05/match-arena/repositories"
)

var (
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrWalletNotFound    = errors.New("wallet not found")
)

// Gateway is the ledger boundary of the engine. Both calls are atomic per
// invocation and accept a SQLExecutor so they can join the transaction of the
// operation that triggers them (escrow debit, refund, prize credit).
type Gateway interface {
	Debit(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error
	Credit(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error
	Balance(ctx context.Context, userID int) (int64, error)
}
