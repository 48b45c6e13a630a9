package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/match-arena/live"
	"github.com/Dosada05/match-arena/models"
	"github.com/Dosada05/match-arena/repositories"
	"github.com/Dosada05/match-arena/wallet"
)

// EscrowService collects entry fees and flips team readiness. The whole
// debit-and-flip runs in one transaction: either the wallet debit and the
// member status change both commit, or neither does.
type EscrowService interface {
	PayEntryFee(ctx context.Context, matchID, teamID, userID int) (*PaymentReceipt, error)
}

type PaymentReceipt struct {
	MatchID     int                `json:"match_id"`
	TeamID      int                `json:"team_id"`
	UserID      int                `json:"user_id"`
	AmountPaid  int64              `json:"amount_paid"`
	TeamReady   bool               `json:"team_ready"`
	MatchStatus models.MatchStatus `json:"match_status"`
}

type escrowService struct {
	db         *sql.DB
	matchRepo  repositories.MatchRepository
	teamRepo   repositories.TeamRepository
	memberRepo repositories.MemberRepository
	ledger     wallet.Gateway
	lifecycle  LifecycleService
	notifier   *Notifier
	logger     *slog.Logger
}

func NewEscrowService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.MemberRepository,
	ledger wallet.Gateway,
	lifecycle LifecycleService,
	notifier *Notifier,
	logger *slog.Logger,
) EscrowService {
	return &escrowService{
		db:         db,
		matchRepo:  matchRepo,
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		ledger:     ledger,
		lifecycle:  lifecycle,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *escrowService) PayEntryFee(ctx context.Context, matchID, teamID, userID int) (*PaymentReceipt, error) {
	receipt := &PaymentReceipt{MatchID: matchID, TeamID: teamID, UserID: userID}
	var readyTeam *models.Team

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		readyTeam, txErr = s.payEntryFeeInTx(ctx, tx, matchID, teamID, userID, receipt)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	if readyTeam != nil {
		s.notifyReady(ctx, receipt, readyTeam)
	}
	return receipt, nil
}

// payEntryFeeInTx is the transactional body of PayEntryFee. It returns the
// team that just became ready, if any.
func (s *escrowService) payEntryFeeInTx(ctx context.Context, exec repositories.SQLExecutor, matchID, teamID, userID int, receipt *PaymentReceipt) (*models.Team, error) {
	// The match row lock is taken first. It serializes every payment of
	// this match, so two members finishing their team's escrow
	// concurrently cannot both observe "all paid" and double-fire the
	// ready transition.
	match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to lock match %d: %w", matchID, err)
	}
	switch match.Status {
	case models.MatchStatusWaiting, models.MatchStatusTeamAReady, models.MatchStatusTeamBReady:
	default:
		return nil, ErrMatchNotPayable
	}
	receipt.MatchStatus = match.Status

	team, err := s.teamRepo.GetByID(ctx, exec, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team %d: %w", teamID, err)
	}
	if team.MatchID != matchID {
		return nil, ErrTeamNotInMatch
	}

	member, err := s.memberRepo.GetByTeamAndUserForUpdate(ctx, exec, teamID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to lock member row: %w", err)
	}
	if member.PaymentStatus == models.PaymentCompleted {
		return nil, ErrAlreadyPaid
	}

	if err := s.ledger.Debit(ctx, exec, userID, member.PaymentAmount); err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to debit entry fee from user %d: %w", userID, err)
	}
	if err := s.memberRepo.MarkPaid(ctx, exec, member.ID); err != nil {
		return nil, fmt.Errorf("failed to mark member %d paid: %w", member.ID, err)
	}
	receipt.AmountPaid = member.PaymentAmount

	// Readiness is judged against the match team size, never against the
	// team's current member count: a half-filled team with every present
	// member paid is still not ready.
	paidCount, err := s.memberRepo.CountPaidByTeam(ctx, exec, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to count paid members for team %d: %w", teamID, err)
	}
	if paidCount != match.TeamSize {
		return nil, nil
	}

	if err := s.teamRepo.MarkReady(ctx, exec, teamID); err != nil {
		return nil, fmt.Errorf("failed to mark team %d ready: %w", teamID, err)
	}
	team.IsReady = true
	team.PaymentCompleted = true
	receipt.TeamReady = true

	newStatus, err := s.lifecycle.ApplyTeamReady(ctx, exec, match, team)
	if err != nil {
		return nil, err
	}
	receipt.MatchStatus = newStatus
	return team, nil
}

func (s *escrowService) notifyReady(ctx context.Context, receipt *PaymentReceipt, team *models.Team) {
	members, err := s.memberRepo.ListByMatch(ctx, nil, receipt.MatchID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load members for readiness notification",
			slog.Int("match_id", receipt.MatchID), slog.Any("error", err))
		return
	}

	title := "Team ready"
	body := fmt.Sprintf("%s has completed payment.", teamLabel(team))
	if receipt.MatchStatus == models.MatchStatusConfirmed {
		title = "Match confirmed"
		body = "Both teams are paid up. Waiting for the room to be assigned."
	}
	payload := map[string]interface{}{
		"match_id": receipt.MatchID,
		"team_id":  receipt.TeamID,
		"status":   receipt.MatchStatus,
	}
	s.notifier.NotifyMembers(ctx, members, title, body, payload)
	s.notifier.Broadcast(receipt.MatchID, live.EventTeamReady, payload)
}
