package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/match-arena/models"
	"github.com/Dosada05/match-arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScreenshotRepo struct {
	nextID int
	shots  map[int]map[int]*models.Screenshot // matchID -> teamID -> shot
}

func newFakeScreenshotRepo() *fakeScreenshotRepo {
	return &fakeScreenshotRepo{nextID: 1, shots: make(map[int]map[int]*models.Screenshot)}
}

func (r *fakeScreenshotRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, shot *models.Screenshot) error {
	byTeam, ok := r.shots[shot.MatchID]
	if !ok {
		byTeam = make(map[int]*models.Screenshot)
		r.shots[shot.MatchID] = byTeam
	}
	if existing, ok := byTeam[shot.TeamID]; ok {
		shot.ID = existing.ID
		shot.CreatedAt = existing.CreatedAt
	} else {
		shot.ID = r.nextID
		r.nextID++
		shot.CreatedAt = time.Now().UTC()
	}
	shot.UpdatedAt = time.Now().UTC()
	byTeam[shot.TeamID] = shot
	return nil
}

func (r *fakeScreenshotRepo) GetByMatchAndTeam(ctx context.Context, exec repositories.SQLExecutor, matchID, teamID int) (*models.Screenshot, error) {
	if shot, ok := r.shots[matchID][teamID]; ok {
		return shot, nil
	}
	return nil, repositories.ErrScreenshotNotFound
}

func (r *fakeScreenshotRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.Screenshot, error) {
	out := make([]*models.Screenshot, 0)
	for _, shot := range r.shots[matchID] {
		out = append(out, shot)
	}
	return out, nil
}

func (r *fakeScreenshotRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.VerificationStatus) error {
	for _, byTeam := range r.shots {
		for _, shot := range byTeam {
			if shot.ID == id {
				shot.VerificationStatus = status
				return nil
			}
		}
	}
	return repositories.ErrScreenshotNotFound
}

func (r *fakeScreenshotRepo) MarkAllDisputed(ctx context.Context, exec repositories.SQLExecutor, matchID int) error {
	for _, shot := range r.shots[matchID] {
		shot.VerificationStatus = models.VerificationDisputed
	}
	return nil
}

type adjudicationFixture struct {
	service        *adjudicationService
	matchRepo      *fakeMatchRepo
	teamRepo       *fakeTeamRepo
	memberRepo     *fakeMemberRepo
	screenshotRepo *fakeScreenshotRepo
	disputeRepo    *fakeDisputeRepo
	ledger         *fakeLedger

	match *models.Match
	teamA *models.Team
	teamB *models.Team
}

// newAdjudicationFixture builds an in-progress 1v1 match with both entry fees
// collected and no evidence yet.
func newAdjudicationFixture(t *testing.T) *adjudicationFixture {
	t.Helper()
	ctx := context.Background()

	f := &adjudicationFixture{
		matchRepo:      newFakeMatchRepo(),
		teamRepo:       newFakeTeamRepo(),
		memberRepo:     newFakeMemberRepo(),
		screenshotRepo: newFakeScreenshotRepo(),
		disputeRepo:    newFakeDisputeRepo(),
		ledger:         newFakeLedger(),
	}
	userRepo := newFakeUserRepo()
	settlement := NewSettlementService(
		nil, f.matchRepo, f.teamRepo, f.memberRepo, newFakeResultRepo(), userRepo,
		f.ledger, testNotifier(), testLogger(),
	)
	f.service = NewAdjudicationService(
		nil, f.matchRepo, f.teamRepo, f.memberRepo, f.screenshotRepo, f.disputeRepo,
		settlement, nil, nil, nil, testNotifier(), testLogger(),
	).(*adjudicationService)

	f.match = &models.Match{
		MatchType: models.MatchTypePublic,
		Status:    models.MatchStatusInProgress,
		GameName:  "freefire",
		EntryFee:  50,
		PrizePool: 90,
		TeamSize:  1,
		CreatedBy: 1,
	}
	require.NoError(t, f.matchRepo.Create(ctx, nil, f.match))

	f.teamA = &models.Team{MatchID: f.match.ID, Slot: models.TeamSlotA}
	f.teamB = &models.Team{MatchID: f.match.ID, Slot: models.TeamSlotB}
	require.NoError(t, f.teamRepo.Create(ctx, nil, f.teamA))
	require.NoError(t, f.teamRepo.Create(ctx, nil, f.teamB))

	for userID, team := range map[int]*models.Team{1: f.teamA, 2: f.teamB} {
		require.NoError(t, userRepo.Create(ctx, &models.User{Nickname: "p", Role: models.RolePlayer}))
		require.NoError(t, f.memberRepo.Create(ctx, nil, &models.TeamMember{
			TeamID: team.ID, MatchID: f.match.ID, UserID: userID,
			IsCaptain: true, PaymentAmount: 50, PaymentStatus: models.PaymentCompleted,
		}))
	}
	return f
}

func (f *adjudicationFixture) submit(t *testing.T, team *models.Team, userID int, verdict models.VerificationStatus) (Outcome, *SettlementOutcome, *models.Dispute) {
	t.Helper()
	shot := &models.Screenshot{
		MatchID:            f.match.ID,
		TeamID:             team.ID,
		ImageKey:           "evidence/key",
		VerificationStatus: verdict,
		SubmittedBy:        userID,
	}
	outcome, settled, dispute, err := f.service.adjudicateInTx(context.Background(), nil, shot)
	require.NoError(t, err)
	return outcome, settled, dispute
}

func TestAdjudicateWinAgainstConcessionSettles(t *testing.T) {
	f := newAdjudicationFixture(t)

	// A lone concession is not enough signal to settle on.
	outcome, settled, _ := f.submit(t, f.teamB, 2, models.VerificationLoss)
	assert.Equal(t, OutcomeWait, outcome.Kind)
	assert.Nil(t, settled)

	outcome, settled, _ = f.submit(t, f.teamA, 1, models.VerificationWin)
	assert.Equal(t, OutcomeSettle, outcome.Kind)
	require.NotNil(t, settled)
	assert.Equal(t, f.teamA.ID, settled.WinningTeam.ID)
	assert.Equal(t, models.MatchStatusCompleted, f.match.Status)
}

func TestAdjudicatePendingEvidenceDoesNotConcede(t *testing.T) {
	f := newAdjudicationFixture(t)

	f.submit(t, f.teamB, 2, models.VerificationPending)
	outcome, settled, _ := f.submit(t, f.teamA, 1, models.VerificationWin)

	assert.Equal(t, OutcomeWait, outcome.Kind)
	assert.Nil(t, settled)
	assert.Equal(t, models.MatchStatusInProgress, f.match.Status)
	assert.Empty(t, f.ledger.credits)
}

func TestAdjudicateConflictFilesExactlyOneDispute(t *testing.T) {
	f := newAdjudicationFixture(t)

	// Team A's evidence arrives unreadable, so team B's win claim cannot
	// settle against it; team A's own win claim then collides with it.
	f.submit(t, f.teamA, 1, models.VerificationPending)
	f.submit(t, f.teamB, 2, models.VerificationWin)
	outcome, settled, dispute := f.submit(t, f.teamA, 1, models.VerificationWin)

	assert.Equal(t, OutcomeDispute, outcome.Kind)
	assert.Nil(t, settled)
	require.NotNil(t, dispute)
	assert.Equal(t, f.match.CreatedBy, dispute.ReporterID)
	assert.Equal(t, f.teamA.ID, dispute.ReportedTeamID)
	assert.Len(t, f.disputeRepo.disputes, 1)

	// The match stays in progress pending arbitration; nobody got paid.
	assert.Equal(t, models.MatchStatusInProgress, f.match.Status)
	assert.Empty(t, f.ledger.credits)

	shots, _ := f.screenshotRepo.ListByMatch(context.Background(), nil, f.match.ID)
	for _, shot := range shots {
		assert.Equal(t, models.VerificationDisputed, shot.VerificationStatus)
	}

	// Both teams doubling down on their claim must not file a second dispute
	// while the first is still open.
	f.submit(t, f.teamA, 1, models.VerificationWin)
	outcome, _, dispute = f.submit(t, f.teamB, 2, models.VerificationWin)
	assert.Equal(t, OutcomeDispute, outcome.Kind)
	assert.Nil(t, dispute)
	assert.Len(t, f.disputeRepo.disputes, 1)
	assert.Equal(t, models.MatchStatusInProgress, f.match.Status)
}
