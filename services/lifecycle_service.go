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

// LifecycleService is the only writer of Match.status. Everyone else asks it
// to transition.
type LifecycleService interface {
	// ApplyTeamReady advances the state machine after a team's escrow
	// completed. It MUST be called inside the escrow transaction, with the
	// match row already locked; the lock is what linearizes two members of
	// the same team finishing payment at once.
	ApplyTeamReady(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, readyTeam *models.Team) (models.MatchStatus, error)
	SetRoomCredentials(ctx context.Context, actor Actor, matchID int, roomID, roomCredential string) error
	Start(ctx context.Context, actor Actor, matchID int) (*models.Match, error)
	Cancel(ctx context.Context, actor Actor, matchID int) error
}

type lifecycleService struct {
	db         *sql.DB
	matchRepo  repositories.MatchRepository
	teamRepo   repositories.TeamRepository
	memberRepo repositories.MemberRepository
	ledger     wallet.Gateway
	notifier   *Notifier
	logger     *slog.Logger
}

func NewLifecycleService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.MemberRepository,
	ledger wallet.Gateway,
	notifier *Notifier,
	logger *slog.Logger,
) LifecycleService {
	return &lifecycleService{
		db:         db,
		matchRepo:  matchRepo,
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		ledger:     ledger,
		notifier:   notifier,
		logger:     logger,
	}
}

// ApplyTeamReady implements the double condition for confirmation: the other
// team must be ready AND the aggregate paid-member count must equal
// team_size * 2. The second check exists because a team with fewer members
// than team_size must never count as ready, no matter how many of its current
// members paid.
func (s *lifecycleService) ApplyTeamReady(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, readyTeam *models.Team) (models.MatchStatus, error) {
	other, err := s.teamRepo.GetByMatchAndSlot(ctx, exec, match.ID, readyTeam.Slot.Other())
	if err != nil {
		return "", fmt.Errorf("failed to load opposing team for match %d: %w", match.ID, err)
	}

	totalPaid, err := s.memberRepo.CountPaidByMatch(ctx, exec, match.ID)
	if err != nil {
		return "", fmt.Errorf("failed to count paid members for match %d: %w", match.ID, err)
	}

	next := models.MatchStatusTeamAReady
	if readyTeam.Slot == models.TeamSlotB {
		next = models.MatchStatusTeamBReady
	}
	if other.IsReady && totalPaid == match.TeamSize*2 {
		next = models.MatchStatusConfirmed
	}

	if err := s.matchRepo.UpdateStatus(ctx, exec, match.ID, next); err != nil {
		return "", fmt.Errorf("failed to update match %d status to %s: %w", match.ID, next, err)
	}
	return next, nil
}

func (s *lifecycleService) SetRoomCredentials(ctx context.Context, actor Actor, matchID int, roomID, roomCredential string) error {
	if roomID == "" || roomCredential == "" {
		return fmt.Errorf("%w: room id and credential are required", ErrValidationFailed)
	}

	var match *models.Match
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		match, txErr = s.lockMatch(ctx, tx, matchID)
		if txErr != nil {
			return txErr
		}
		if match.CreatedBy != actor.UserID && !actor.IsAdmin() {
			return ErrForbiddenOperation
		}
		if match.Status != models.MatchStatusConfirmed {
			return ErrMatchNotConfirmed
		}
		if match.RoomAssigned() {
			return ErrRoomAlreadyAssigned
		}
		return s.matchRepo.SetRoomCredentials(ctx, tx, matchID, roomID, roomCredential)
	})
	if err != nil {
		return err
	}

	members, listErr := s.memberRepo.ListByMatch(ctx, nil, matchID)
	if listErr != nil {
		s.logger.WarnContext(ctx, "failed to load members for room notification",
			slog.Int("match_id", matchID), slog.Any("error", listErr))
		return nil
	}
	s.notifier.NotifyMembers(ctx, members,
		"Room assigned",
		fmt.Sprintf("The room for your %s match is ready.", match.GameName),
		map[string]interface{}{
			"match_id":        matchID,
			"room_id":         roomID,
			"room_credential": roomCredential,
		},
	)
	return nil
}

// Start moves a confirmed match into progress. Only the captain of the
// creating team may trigger it, and only after the room was handed out.
func (s *lifecycleService) Start(ctx context.Context, actor Actor, matchID int) (*models.Match, error) {
	var match *models.Match
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		match, txErr = s.lockMatch(ctx, tx, matchID)
		if txErr != nil {
			return txErr
		}
		if match.Status != models.MatchStatusConfirmed {
			return ErrMatchNotConfirmed
		}
		if !match.RoomAssigned() {
			return ErrRoomNotAssigned
		}

		if !actor.IsAdmin() {
			allowed, authErr := s.isCreatingTeamCaptain(ctx, tx, match, actor.UserID)
			if authErr != nil {
				return authErr
			}
			if !allowed {
				return ErrCaptainActionForbidden
			}
		}

		now := time.Now().UTC()
		if txErr := s.matchRepo.MarkStarted(ctx, tx, matchID, now); txErr != nil {
			return fmt.Errorf("failed to mark match %d started: %w", matchID, txErr)
		}
		match.Status = models.MatchStatusInProgress
		match.StartedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyTransition(ctx, match, "Match started",
		fmt.Sprintf("Your %s match is now in progress. Good luck!", match.GameName))
	return match, nil
}

// Cancel refunds every paid member and marks the match cancelled, all in one
// transaction. A crash mid-way rolls back both the refunds and the status
// flip, so a partial refund is never observable.
func (s *lifecycleService) Cancel(ctx context.Context, actor Actor, matchID int) error {
	var match *models.Match

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		match, txErr = s.cancelInTx(ctx, tx, actor, matchID)
		return txErr
	})
	if err != nil {
		return err
	}

	s.notifyTransition(ctx, match, "Match cancelled",
		fmt.Sprintf("Your %s match was cancelled. Entry fees have been refunded.", match.GameName))
	return nil
}

// cancelInTx is the transactional body of Cancel: refund every paid member,
// then flip the status.
func (s *lifecycleService) cancelInTx(ctx context.Context, exec repositories.SQLExecutor, actor Actor, matchID int) (*models.Match, error) {
	match, err := s.lockMatch(ctx, exec, matchID)
	if err != nil {
		return nil, err
	}
	if match.CreatedBy != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	if !match.Status.IsCancellable() {
		return nil, ErrMatchNotCancellable
	}

	members, err := s.memberRepo.ListByMatch(ctx, exec, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members for match %d: %w", matchID, err)
	}
	for _, member := range members {
		if member.PaymentStatus != models.PaymentCompleted {
			continue
		}
		if err := s.ledger.Credit(ctx, exec, member.UserID, member.PaymentAmount); err != nil {
			return nil, fmt.Errorf("failed to refund user %d: %w", member.UserID, err)
		}
	}

	if err := s.matchRepo.UpdateStatus(ctx, exec, matchID, models.MatchStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel match %d: %w", matchID, err)
	}
	match.Status = models.MatchStatusCancelled
	return match, nil
}

func (s *lifecycleService) lockMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to lock match %d: %w", matchID, err)
	}
	return match, nil
}

// isCreatingTeamCaptain checks whether userID is the captain of the team the
// match creator joined. When the creator never joined a roster, slot A is
// treated as the creating team.
func (s *lifecycleService) isCreatingTeamCaptain(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, userID int) (bool, error) {
	members, err := s.memberRepo.ListByMatch(ctx, exec, match.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load members for match %d: %w", match.ID, err)
	}

	creatingTeamID := 0
	for _, member := range members {
		if member.UserID == match.CreatedBy {
			creatingTeamID = member.TeamID
			break
		}
	}
	if creatingTeamID == 0 {
		teamA, teamErr := s.teamRepo.GetByMatchAndSlot(ctx, exec, match.ID, models.TeamSlotA)
		if teamErr != nil {
			return false, fmt.Errorf("failed to load team A for match %d: %w", match.ID, teamErr)
		}
		creatingTeamID = teamA.ID
	}

	for _, member := range members {
		if member.TeamID == creatingTeamID && member.UserID == userID && member.IsCaptain {
			return true, nil
		}
	}
	return false, nil
}

func (s *lifecycleService) notifyTransition(ctx context.Context, match *models.Match, title, body string) {
	members, err := s.memberRepo.ListByMatch(ctx, nil, match.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load members for transition notification",
			slog.Int("match_id", match.ID), slog.Any("error", err))
	} else {
		s.notifier.NotifyMembers(ctx, members, title, body, map[string]interface{}{
			"match_id": match.ID,
			"status":   match.Status,
		})
	}
	s.notifier.Broadcast(match.ID, live.EventMatchStatus, map[string]interface{}{
		"match_id": match.ID,
		"status":   match.Status,
	})
}
