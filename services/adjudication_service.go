package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Dosada05/match-arena/live"
	"github.com/Dosada05/match-arena/models"
	"github.com/Dosada05/match-arena/repositories"
	"github.com/Dosada05/match-arena/storage"
	"github.com/Dosada05/match-arena/vision"
	"github.com/google/uuid"
)

// AdjudicationService turns submitted evidence into settled outcomes or
// escalated disputes.
type AdjudicationService interface {
	SubmitEvidence(ctx context.Context, actor Actor, input SubmitEvidenceInput) (*EvidenceReceipt, error)
}

type SubmitEvidenceInput struct {
	MatchID     int
	TeamID      int
	ContentType string
	Image       io.Reader
}

type EvidenceReceipt struct {
	Screenshot *models.Screenshot `json:"screenshot"`
	// Resolution reports what the consensus check decided after this
	// submission: "settled", "disputed" or "waiting".
	Resolution string `json:"resolution"`
}

type adjudicationService struct {
	db             *sql.DB
	matchRepo      repositories.MatchRepository
	teamRepo       repositories.TeamRepository
	memberRepo     repositories.MemberRepository
	screenshotRepo repositories.ScreenshotRepository
	disputeRepo    repositories.DisputeRepository
	settlement     SettlementService
	uploader       storage.FileUploader
	classifier     vision.Classifier
	mapper         vision.VerdictMapper
	notifier       *Notifier
	logger         *slog.Logger
}

func NewAdjudicationService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.MemberRepository,
	screenshotRepo repositories.ScreenshotRepository,
	disputeRepo repositories.DisputeRepository,
	settlement SettlementService,
	uploader storage.FileUploader,
	classifier vision.Classifier,
	mapper vision.VerdictMapper,
	notifier *Notifier,
	logger *slog.Logger,
) AdjudicationService {
	return &adjudicationService{
		db:             db,
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		memberRepo:     memberRepo,
		screenshotRepo: screenshotRepo,
		disputeRepo:    disputeRepo,
		settlement:     settlement,
		uploader:       uploader,
		classifier:     classifier,
		mapper:         mapper,
		notifier:       notifier,
		logger:         logger,
	}
}

func (s *adjudicationService) SubmitEvidence(ctx context.Context, actor Actor, input SubmitEvidenceInput) (*EvidenceReceipt, error) {
	// Pre-checks run outside any transaction; they are re-validated under
	// the match lock before anything is written.
	match, err := s.matchRepo.GetByID(ctx, nil, input.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", input.MatchID, err)
	}
	if match.Status != models.MatchStatusInProgress {
		return nil, ErrMatchNotInProgress
	}

	team, err := s.teamRepo.GetByID(ctx, nil, input.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team %d: %w", input.TeamID, err)
	}
	if team.MatchID != input.MatchID {
		return nil, ErrTeamNotInMatch
	}
	if err := s.requireTeamMember(ctx, input.TeamID, actor); err != nil {
		return nil, err
	}

	ext, err := GetExtensionFromContentType(input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("evidence/match_%d/team_%d/%s%s", input.MatchID, input.TeamID, uuid.NewString(), ext)
	upload, err := s.uploader.Upload(ctx, key, input.ContentType, input.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to store evidence image: %w", err)
	}

	// The classifier is slow external I/O; it runs before the transaction
	// opens so its latency never extends a lock hold. A classifier failure
	// leaves the verdict pending, it never blocks the submission.
	rawText := ""
	verdict := models.VerificationPending
	if text, classifyErr := s.classifier.Classify(ctx, upload.Location); classifyErr != nil {
		s.logger.WarnContext(ctx, "evidence classification failed, leaving verdict pending",
			slog.Int("match_id", input.MatchID),
			slog.Int("team_id", input.TeamID),
			slog.Any("error", classifyErr),
		)
	} else {
		rawText = text
		verdict = s.mapper.Map(text)
	}

	shot := &models.Screenshot{
		MatchID:            input.MatchID,
		TeamID:             input.TeamID,
		ImageKey:           upload.Key,
		ImageURL:           upload.Location,
		RawText:            rawText,
		VerificationStatus: verdict,
		SubmittedBy:        actor.UserID,
	}

	var outcome Outcome
	var settled *SettlementOutcome
	var dispute *models.Dispute

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		outcome, settled, dispute, txErr = s.adjudicateInTx(ctx, tx, shot)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	receipt := &EvidenceReceipt{Screenshot: shot, Resolution: "waiting"}
	switch {
	case settled != nil:
		receipt.Resolution = "settled"
		s.settlement.NotifySettled(ctx, settled)
	case outcome.Kind == OutcomeSettle:
		receipt.Resolution = "settled"
	case outcome.Kind == OutcomeDispute:
		receipt.Resolution = "disputed"
		s.notifyDispute(ctx, match, dispute)
	default:
		s.notifier.Broadcast(input.MatchID, live.EventEvidenceReceived, map[string]interface{}{
			"match_id": input.MatchID,
			"team_id":  input.TeamID,
			"status":   shot.VerificationStatus,
		})
	}
	return receipt, nil
}

// adjudicateInTx stores the evidence and runs the consensus check under the
// match lock. It returns what the check decided and, depending on the branch,
// the settlement outcome or the auto-filed dispute.
func (s *adjudicationService) adjudicateInTx(ctx context.Context, exec repositories.SQLExecutor, shot *models.Screenshot) (Outcome, *SettlementOutcome, *models.Dispute, error) {
	var outcome Outcome
	var settled *SettlementOutcome
	var dispute *models.Dispute

	// Re-check under the lock: the match may have settled or been disputed
	// while the classifier was running.
	lockedMatch, err := s.matchRepo.GetByIDForUpdate(ctx, exec, shot.MatchID)
	if err != nil {
		return outcome, nil, nil, fmt.Errorf("failed to lock match %d: %w", shot.MatchID, err)
	}
	if lockedMatch.Status != models.MatchStatusInProgress {
		return outcome, nil, nil, ErrMatchNotInProgress
	}

	if err := s.screenshotRepo.Upsert(ctx, exec, shot); err != nil {
		return outcome, nil, nil, fmt.Errorf("failed to store evidence record: %w", err)
	}

	teams, err := s.teamRepo.ListByMatch(ctx, exec, shot.MatchID)
	if err != nil {
		return outcome, nil, nil, fmt.Errorf("failed to load teams for match %d: %w", shot.MatchID, err)
	}
	shots, err := s.screenshotRepo.ListByMatch(ctx, exec, shot.MatchID)
	if err != nil {
		return outcome, nil, nil, fmt.Errorf("failed to load evidence for match %d: %w", shot.MatchID, err)
	}

	stateA, stateB := evidenceStates(teams, shots)
	outcome = DecideOutcome(stateA, stateB)

	switch outcome.Kind {
	case OutcomeSettle:
		winner := teamBySlot(teams, outcome.WinnerSlot)
		if winner == nil {
			return outcome, nil, nil, fmt.Errorf("no team in slot %s for match %d", outcome.WinnerSlot, shot.MatchID)
		}
		settled, err = s.settlement.SettleInTx(ctx, exec, SettlementRequest{
			MatchID:       shot.MatchID,
			WinningTeamID: winner.ID,
			Method:        models.ResolutionAutomatic,
		})
		if err != nil {
			// A racing settle already paid out; this submission is a
			// harmless replay.
			if errors.Is(err, ErrAlreadySettled) {
				return outcome, nil, nil, nil
			}
			return outcome, nil, nil, err
		}
	case OutcomeDispute:
		dispute, err = s.escalate(ctx, exec, lockedMatch, teams)
		if err != nil {
			return outcome, nil, nil, err
		}
		shot.VerificationStatus = models.VerificationDisputed
	}
	return outcome, settled, dispute, nil
}

// escalate marks all evidence disputed and files a single dispute for the
// match. The match stays in progress pending arbitration: conflicting claims
// are not grounds for cancelling or completing anything.
func (s *adjudicationService) escalate(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, teams []*models.Team) (*models.Dispute, error) {
	if err := s.screenshotRepo.MarkAllDisputed(ctx, exec, match.ID); err != nil {
		return nil, fmt.Errorf("failed to mark evidence disputed for match %d: %w", match.ID, err)
	}

	hasOpen, err := s.disputeRepo.HasOpenByMatch(ctx, exec, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open disputes for match %d: %w", match.ID, err)
	}
	if hasOpen {
		return nil, nil
	}

	reported := teamBySlot(teams, models.TeamSlotA)
	if reported == nil {
		return nil, fmt.Errorf("no team in slot A for match %d", match.ID)
	}
	dispute := &models.Dispute{
		MatchID:        match.ID,
		ReporterID:     match.CreatedBy,
		ReportedTeamID: reported.ID,
		Reason:         "both teams submitted winning evidence",
		Status:         models.DisputePending,
	}
	if err := s.disputeRepo.Create(ctx, exec, dispute); err != nil {
		return nil, fmt.Errorf("failed to file dispute for match %d: %w", match.ID, err)
	}
	return dispute, nil
}

func (s *adjudicationService) requireTeamMember(ctx context.Context, teamID int, actor Actor) error {
	if actor.System || actor.IsAdmin() {
		return nil
	}
	members, err := s.memberRepo.ListByTeam(ctx, nil, teamID)
	if err != nil {
		return fmt.Errorf("failed to load members for team %d: %w", teamID, err)
	}
	for _, member := range members {
		if member.UserID == actor.UserID {
			return nil
		}
	}
	return ErrNotTeamMember
}

func (s *adjudicationService) notifyDispute(ctx context.Context, match *models.Match, dispute *models.Dispute) {
	members, err := s.memberRepo.ListByMatch(ctx, nil, match.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load members for dispute notification",
			slog.Int("match_id", match.ID), slog.Any("error", err))
	} else {
		s.notifier.NotifyMembers(ctx, members,
			"Result disputed",
			"Both teams claimed victory. An arbiter will review the evidence.",
			map[string]interface{}{"match_id": match.ID},
		)
	}
	s.notifier.Broadcast(match.ID, live.EventDisputeOpened, map[string]interface{}{
		"match_id": match.ID,
	})
}

// evidenceStates projects the stored screenshots onto the two slots.
func evidenceStates(teams []*models.Team, shots []*models.Screenshot) (EvidenceState, EvidenceState) {
	byTeam := make(map[int]*models.Screenshot, len(shots))
	for _, shot := range shots {
		byTeam[shot.TeamID] = shot
	}

	var stateA, stateB EvidenceState
	for _, team := range teams {
		state := EvidenceState{}
		if shot, ok := byTeam[team.ID]; ok {
			state = EvidenceState{Submitted: true, Status: shot.VerificationStatus}
		}
		if team.Slot == models.TeamSlotA {
			stateA = state
		} else {
			stateB = state
		}
	}
	return stateA, stateB
}

func teamBySlot(teams []*models.Team, slot models.TeamSlot) *models.Team {
	for _, team := range teams {
		if team.Slot == slot {
			return team
		}
	}
	return nil
}
