package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/match-arena/live"
	"github.com/Dosada05/match-arena/models"
	"github.com/Dosada05/match-arena/repositories"
	"github.com/Dosada05/match-arena/wallet"
)

// SettlementRequest is the single shape both resolution paths produce: the
// automatic adjudication pipeline and an arbiter decision differ only in the
// Method tag.
type SettlementRequest struct {
	MatchID       int
	WinningTeamID int
	Method        models.ResolutionMethod
}

// SettlementOutcome carries what the post-commit notification fan-out needs.
type SettlementOutcome struct {
	Match       *models.Match
	WinningTeam *models.Team
	Winners     []*models.TeamMember
	AllMembers  []*models.TeamMember
	Shares      map[int]int64 // user id -> credited amount
}

type SettlementService interface {
	// Settle runs the full settlement in its own transaction and notifies
	// participants afterwards.
	Settle(ctx context.Context, req SettlementRequest) (*SettlementOutcome, error)
	// SettleInTx runs the settlement inside a caller-owned transaction, so
	// adjudication and dispute resolution can commit it atomically with their
	// own writes. The caller is responsible for post-commit notifications.
	SettleInTx(ctx context.Context, tx repositories.SQLExecutor, req SettlementRequest) (*SettlementOutcome, error)
	// NotifySettled performs the best-effort fan-out for a committed outcome.
	NotifySettled(ctx context.Context, outcome *SettlementOutcome)
}

type settlementService struct {
	db         *sql.DB
	matchRepo  repositories.MatchRepository
	teamRepo   repositories.TeamRepository
	memberRepo repositories.MemberRepository
	resultRepo repositories.ResultRepository
	userRepo   repositories.UserRepository
	ledger     wallet.Gateway
	notifier   *Notifier
	logger     *slog.Logger
}

func NewSettlementService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.MemberRepository,
	resultRepo repositories.ResultRepository,
	userRepo repositories.UserRepository,
	ledger wallet.Gateway,
	notifier *Notifier,
	logger *slog.Logger,
) SettlementService {
	return &settlementService{
		db:         db,
		matchRepo:  matchRepo,
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		resultRepo: resultRepo,
		userRepo:   userRepo,
		ledger:     ledger,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *settlementService) Settle(ctx context.Context, req SettlementRequest) (*SettlementOutcome, error) {
	var outcome *SettlementOutcome
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		outcome, txErr = s.SettleInTx(ctx, tx, req)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.NotifySettled(ctx, outcome)
	return outcome, nil
}

// SettleInTx performs the five settlement steps under the match row lock:
// status flip, result upsert, prize split, member credits, win counters.
// It is safe to call twice for the same match: the second caller observes the
// existing awarded result and gets ErrAlreadySettled without crediting anyone.
func (s *settlementService) SettleInTx(ctx context.Context, tx repositories.SQLExecutor, req SettlementRequest) (*SettlementOutcome, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, req.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to lock match %d for settlement: %w", req.MatchID, err)
	}

	existing, err := s.resultRepo.GetByMatchForUpdate(ctx, tx, req.MatchID)
	if err != nil && !errors.Is(err, repositories.ErrResultNotFound) {
		return nil, fmt.Errorf("failed to check existing result for match %d: %w", req.MatchID, err)
	}
	if existing != nil && existing.PrizeAwarded {
		// The losing caller of a settle race lands here. Same winner means a
		// harmless replay; a different winner needs manual ledger
		// intervention and is surfaced as a distinct conflict.
		if existing.WinningTeamID != req.WinningTeamID {
			return nil, ErrSettledWinnerMismatch
		}
		return nil, ErrAlreadySettled
	}

	if match.Status != models.MatchStatusInProgress {
		return nil, ErrMatchNotInProgress
	}

	winningTeam, err := s.teamRepo.GetByID(ctx, tx, req.WinningTeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load winning team %d: %w", req.WinningTeamID, err)
	}
	if winningTeam.MatchID != match.ID {
		return nil, ErrTeamNotInMatch
	}

	now := time.Now().UTC()
	if err := s.matchRepo.MarkCompleted(ctx, tx, match.ID, winningTeam.ID, now); err != nil {
		return nil, fmt.Errorf("failed to complete match %d: %w", match.ID, err)
	}
	match.Status = models.MatchStatusCompleted
	match.WinningTeamID = &winningTeam.ID
	match.EndedAt = &now

	result := &models.MatchResult{
		MatchID:          match.ID,
		WinningTeamID:    winningTeam.ID,
		PrizeAwarded:     true,
		PrizeAmount:      match.PrizePool,
		ResolutionMethod: req.Method,
		ResolvedAt:       now,
	}
	if err := s.resultRepo.Upsert(ctx, tx, result); err != nil {
		return nil, fmt.Errorf("failed to upsert result for match %d: %w", match.ID, err)
	}

	winners, err := s.memberRepo.ListByTeam(ctx, tx, winningTeam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load winning members for team %d: %w", winningTeam.ID, err)
	}
	if len(winners) == 0 {
		return nil, fmt.Errorf("winning team %d has no members to credit", winningTeam.ID)
	}

	share, remainder := SplitPrize(match.PrizePool, len(winners))
	shares := make(map[int]int64, len(winners))
	for _, winner := range winners {
		amount := share
		// The integer-division remainder goes to the captain rather than
		// being dropped.
		if remainder > 0 && winner.IsCaptain {
			amount += remainder
		}
		if amount > 0 {
			if err := s.ledger.Credit(ctx, tx, winner.UserID, amount); err != nil {
				return nil, fmt.Errorf("failed to credit prize to user %d: %w", winner.UserID, err)
			}
		}
		if err := s.userRepo.IncrementWins(ctx, tx, winner.UserID); err != nil {
			return nil, fmt.Errorf("failed to increment wins for user %d: %w", winner.UserID, err)
		}
		shares[winner.UserID] = amount
	}

	allMembers, err := s.memberRepo.ListByMatch(ctx, tx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match members for match %d: %w", match.ID, err)
	}

	return &SettlementOutcome{
		Match:       match,
		WinningTeam: winningTeam,
		Winners:     winners,
		AllMembers:  allMembers,
		Shares:      shares,
	}, nil
}

func (s *settlementService) NotifySettled(ctx context.Context, outcome *SettlementOutcome) {
	if outcome == nil {
		return
	}

	winnerName := teamLabel(outcome.WinningTeam)
	payload := map[string]interface{}{
		"match_id":        outcome.Match.ID,
		"winning_team_id": outcome.WinningTeam.ID,
		"prize_pool":      outcome.Match.PrizePool,
	}
	s.notifier.NotifyMembers(ctx, outcome.AllMembers,
		"Match settled",
		fmt.Sprintf("%s won the match for %s.", winnerName, outcome.Match.GameName),
		payload,
	)
	s.notifier.Broadcast(outcome.Match.ID, live.EventMatchSettled, payload)
}
