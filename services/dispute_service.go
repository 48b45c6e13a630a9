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
)

// DisputeService files complaints and carries arbiter rulings through to
// settlement.
type DisputeService interface {
	FileDispute(ctx context.Context, actor Actor, input FileDisputeInput) (*models.Dispute, error)
	MarkUnderReview(ctx context.Context, actor Actor, disputeID int) (*models.Dispute, error)
	ResolveDispute(ctx context.Context, actor Actor, input ResolveDisputeInput) (*models.Dispute, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.Dispute, error)
}

type FileDisputeInput struct {
	MatchID        int    `json:"-"`
	ReportedTeamID int    `json:"reported_team_id"`
	Reason         string `json:"reason"`
}

type ResolveDisputeInput struct {
	DisputeID int `json:"-"`
	// Uphold awards the match to WinningTeamID; otherwise the dispute is
	// rejected and the match result stands as is.
	Uphold        bool   `json:"uphold"`
	WinningTeamID int    `json:"winning_team_id,omitempty"`
	Resolution    string `json:"resolution"`
}

type disputeService struct {
	db          *sql.DB
	matchRepo   repositories.MatchRepository
	teamRepo    repositories.TeamRepository
	memberRepo  repositories.MemberRepository
	disputeRepo repositories.DisputeRepository
	settlement  SettlementService
	notifier    *Notifier
	logger      *slog.Logger
}

func NewDisputeService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.MemberRepository,
	disputeRepo repositories.DisputeRepository,
	settlement SettlementService,
	notifier *Notifier,
	logger *slog.Logger,
) DisputeService {
	return &disputeService{
		db:          db,
		matchRepo:   matchRepo,
		teamRepo:    teamRepo,
		memberRepo:  memberRepo,
		disputeRepo: disputeRepo,
		settlement:  settlement,
		notifier:    notifier,
		logger:      logger,
	}
}

func (s *disputeService) FileDispute(ctx context.Context, actor Actor, input FileDisputeInput) (*models.Dispute, error) {
	if input.Reason == "" {
		return nil, fmt.Errorf("%w: a dispute reason is required", ErrValidationFailed)
	}

	match, err := s.matchRepo.GetByID(ctx, nil, input.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", input.MatchID, err)
	}
	if match.Status != models.MatchStatusInProgress && match.Status != models.MatchStatusCompleted {
		return nil, ErrMatchNotInProgress
	}

	reported, err := s.teamRepo.GetByID(ctx, nil, input.ReportedTeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team %d: %w", input.ReportedTeamID, err)
	}
	if reported.MatchID != input.MatchID {
		return nil, ErrTeamNotInMatch
	}

	if !actor.System {
		participant, partErr := s.memberRepo.ExistsByMatchAndUser(ctx, nil, input.MatchID, actor.UserID)
		if partErr != nil {
			return nil, fmt.Errorf("failed to check participation for user %d: %w", actor.UserID, partErr)
		}
		if !participant && !actor.IsAdmin() {
			return nil, ErrNotParticipant
		}
	}

	dispute := &models.Dispute{
		MatchID:        input.MatchID,
		ReporterID:     actor.UserID,
		ReportedTeamID: input.ReportedTeamID,
		Reason:         input.Reason,
		Status:         models.DisputePending,
	}
	if err := s.disputeRepo.Create(ctx, nil, dispute); err != nil {
		if errors.Is(err, repositories.ErrDisputeMatchInvalid) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to file dispute for match %d: %w", input.MatchID, err)
	}

	s.notifier.Broadcast(input.MatchID, live.EventDisputeOpened, map[string]interface{}{
		"match_id":   input.MatchID,
		"dispute_id": dispute.ID,
	})
	return dispute, nil
}

func (s *disputeService) MarkUnderReview(ctx context.Context, actor Actor, disputeID int) (*models.Dispute, error) {
	if !actor.CanArbitrate() {
		return nil, ErrArbiterActionForbidden
	}

	var dispute *models.Dispute
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		dispute, txErr = s.lockDispute(ctx, tx, disputeID)
		if txErr != nil {
			return txErr
		}
		if !dispute.Status.Open() {
			return ErrDisputeAlreadyClosed
		}
		if txErr := s.disputeRepo.UpdateStatus(ctx, tx, disputeID, models.DisputeUnderReview); txErr != nil {
			return fmt.Errorf("failed to mark dispute %d under review: %w", disputeID, txErr)
		}
		dispute.Status = models.DisputeUnderReview
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// ResolveDispute closes a dispute with an arbiter ruling. Upholding awards the
// match to the named team through the regular settlement path, tagged as an
// admin decision. If a racing automatic settlement already paid the same
// winner, the ruling still closes the dispute without crediting anyone twice.
func (s *disputeService) ResolveDispute(ctx context.Context, actor Actor, input ResolveDisputeInput) (*models.Dispute, error) {
	if !actor.CanArbitrate() {
		return nil, ErrArbiterActionForbidden
	}
	if input.Uphold && input.WinningTeamID == 0 {
		return nil, ErrWinningTeamRequired
	}

	var dispute *models.Dispute
	var settled *SettlementOutcome

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		dispute, txErr = s.lockDispute(ctx, tx, input.DisputeID)
		if txErr != nil {
			return txErr
		}
		if !dispute.Status.Open() {
			return ErrDisputeAlreadyClosed
		}

		status := models.DisputeRejected
		if input.Uphold {
			status = models.DisputeResolved
			settled, txErr = s.settlement.SettleInTx(ctx, tx, SettlementRequest{
				MatchID:       dispute.MatchID,
				WinningTeamID: input.WinningTeamID,
				Method:        models.ResolutionAdminDecision,
			})
			if txErr != nil && !errors.Is(txErr, ErrAlreadySettled) {
				return txErr
			}
		}

		now := time.Now().UTC()
		var notes *string
		if input.Resolution != "" {
			notes = &input.Resolution
		}
		if txErr := s.disputeRepo.UpdateResolution(ctx, tx, input.DisputeID, status, notes, now); txErr != nil {
			return fmt.Errorf("failed to resolve dispute %d: %w", input.DisputeID, txErr)
		}
		dispute.Status = status
		dispute.AdminNotes = notes
		dispute.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if settled != nil {
		s.settlement.NotifySettled(ctx, settled)
	}
	s.notifyResolution(ctx, dispute)
	return dispute, nil
}

func (s *disputeService) ListByMatch(ctx context.Context, matchID int) ([]*models.Dispute, error) {
	disputes, err := s.disputeRepo.ListByMatch(ctx, nil, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes for match %d: %w", matchID, err)
	}
	return disputes, nil
}

func (s *disputeService) lockDispute(ctx context.Context, tx *sql.Tx, disputeID int) (*models.Dispute, error) {
	dispute, err := s.disputeRepo.GetByIDForUpdate(ctx, tx, disputeID)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to lock dispute %d: %w", disputeID, err)
	}
	return dispute, nil
}

func (s *disputeService) notifyResolution(ctx context.Context, dispute *models.Dispute) {
	members, err := s.memberRepo.ListByMatch(ctx, nil, dispute.MatchID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load members for dispute resolution notification",
			slog.Int("dispute_id", dispute.ID), slog.Any("error", err))
		return
	}

	body := "The dispute was rejected by an arbiter."
	if dispute.Status == models.DisputeResolved {
		body = "An arbiter has ruled on the dispute and the match has been settled."
	}
	s.notifier.NotifyMembers(ctx, members, "Dispute closed", body, map[string]interface{}{
		"match_id":   dispute.MatchID,
		"dispute_id": dispute.ID,
		"status":     dispute.Status,
	})
}
