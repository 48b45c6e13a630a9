package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/match-arena/models"
	"github.com/Dosada05/match-arena/repositories"
	"github.com/Dosada05/match-arena/wallet"
)

// AccountService covers the wallet and profile surface that sits next to the
// match engine: balance reads, admin top-ups and Telegram linking.
type AccountService interface {
	Profile(ctx context.Context, userID int) (*models.User, error)
	Balance(ctx context.Context, userID int) (int64, error)
	TopUp(ctx context.Context, actor Actor, userID int, amount int64) (int64, error)
	LinkTelegram(ctx context.Context, userID int, chatID int64) error
}

type accountService struct {
	userRepo repositories.UserRepository
	ledger   wallet.Gateway
}

func NewAccountService(userRepo repositories.UserRepository, ledger wallet.Gateway) AccountService {
	return &accountService{userRepo: userRepo, ledger: ledger}
}

func (s *accountService) Profile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *accountService) Balance(ctx context.Context, userID int) (int64, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to read balance for user %d: %w", userID, err)
	}
	return balance, nil
}

// TopUp credits a wallet outside the match flow. Admin only; there is no
// payment provider behind it, it exists for operations and testing.
func (s *accountService) TopUp(ctx context.Context, actor Actor, userID int, amount int64) (int64, error) {
	if !actor.IsAdmin() {
		return 0, ErrForbiddenOperation
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: top-up amount must be positive", ErrValidationFailed)
	}

	if err := s.ledger.Credit(ctx, nil, userID, amount); err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to credit user %d: %w", userID, err)
	}
	return s.Balance(ctx, userID)
}

func (s *accountService) LinkTelegram(ctx context.Context, userID int, chatID int64) error {
	if err := s.userRepo.SetTelegramChatID(ctx, userID, chatID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to link telegram chat for user %d: %w", userID, err)
	}
	return nil
}
