package services

import (
	"context"
	"testing"

	"github.com/Dosada05/match-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleFixture struct {
	service    LifecycleService
	matchRepo  *fakeMatchRepo
	teamRepo   *fakeTeamRepo
	memberRepo *fakeMemberRepo
	ledger     *fakeLedger

	match *models.Match
	teamA *models.Team
	teamB *models.Team
}

func newLifecycleFixture(t *testing.T, teamSize int) *lifecycleFixture {
	t.Helper()
	ctx := context.Background()

	f := &lifecycleFixture{
		matchRepo:  newFakeMatchRepo(),
		teamRepo:   newFakeTeamRepo(),
		memberRepo: newFakeMemberRepo(),
		ledger:     newFakeLedger(),
	}
	f.service = NewLifecycleService(
		nil, f.matchRepo, f.teamRepo, f.memberRepo, f.ledger, testNotifier(), testLogger(),
	)

	f.match = &models.Match{
		MatchType: models.MatchTypePublic,
		Status:    models.MatchStatusWaiting,
		GameName:  "freefire",
		EntryFee:  100,
		PrizePool: 2 * 100 * int64(teamSize) * 9 / 10,
		TeamSize:  teamSize,
		CreatedBy: 1,
	}
	require.NoError(t, f.matchRepo.Create(ctx, nil, f.match))

	f.teamA = &models.Team{MatchID: f.match.ID, Slot: models.TeamSlotA}
	f.teamB = &models.Team{MatchID: f.match.ID, Slot: models.TeamSlotB}
	require.NoError(t, f.teamRepo.Create(ctx, nil, f.teamA))
	require.NoError(t, f.teamRepo.Create(ctx, nil, f.teamB))
	return f
}

func (f *lifecycleFixture) addMember(t *testing.T, team *models.Team, userID int, paid bool) *models.TeamMember {
	t.Helper()
	status := models.PaymentPending
	if paid {
		status = models.PaymentCompleted
	}
	member := &models.TeamMember{
		TeamID:        team.ID,
		MatchID:       f.match.ID,
		UserID:        userID,
		PaymentAmount: f.match.EntryFee,
		PaymentStatus: status,
	}
	require.NoError(t, f.memberRepo.Create(context.Background(), nil, member))
	return member
}

func TestApplyTeamReadyFirstTeam(t *testing.T) {
	f := newLifecycleFixture(t, 2)
	ctx := context.Background()

	f.addMember(t, f.teamA, 1, true)
	f.addMember(t, f.teamA, 2, true)
	f.teamA.IsReady = true

	status, err := f.service.ApplyTeamReady(ctx, nil, f.match, f.teamA)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusTeamAReady, status)
	assert.Equal(t, models.MatchStatusTeamAReady, f.match.Status)
}

func TestApplyTeamReadySecondTeamConfirms(t *testing.T) {
	f := newLifecycleFixture(t, 2)
	ctx := context.Background()

	f.addMember(t, f.teamA, 1, true)
	f.addMember(t, f.teamA, 2, true)
	f.teamA.IsReady = true
	f.match.Status = models.MatchStatusTeamAReady

	f.addMember(t, f.teamB, 3, true)
	f.addMember(t, f.teamB, 4, true)
	f.teamB.IsReady = true

	status, err := f.service.ApplyTeamReady(ctx, nil, f.match, f.teamB)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusConfirmed, status)
}

func TestApplyTeamReadyNeedsFullAggregatePayment(t *testing.T) {
	// The opposing team flag says ready, but the aggregate paid count is
	// short of team_size * 2. Confirmation must not fire.
	f := newLifecycleFixture(t, 2)
	ctx := context.Background()

	f.addMember(t, f.teamA, 1, true)
	f.teamA.IsReady = true
	f.match.Status = models.MatchStatusTeamAReady

	f.addMember(t, f.teamB, 3, true)
	f.addMember(t, f.teamB, 4, true)
	f.teamB.IsReady = true

	status, err := f.service.ApplyTeamReady(ctx, nil, f.match, f.teamB)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusTeamBReady, status)
}

func TestCancelRefundsEveryPaidMember(t *testing.T) {
	f := newLifecycleFixture(t, 2)
	ctx := context.Background()

	f.addMember(t, f.teamA, 1, true)
	f.addMember(t, f.teamA, 2, true)
	f.addMember(t, f.teamB, 3, true)
	f.addMember(t, f.teamB, 4, false)

	svc := f.service.(*lifecycleService)
	match, err := svc.cancelInTx(ctx, nil, Actor{UserID: 1, Role: models.RolePlayer}, f.match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCancelled, match.Status)

	// Every completed payment comes back, the pending member gets nothing.
	assert.Len(t, f.ledger.credits, 3)
	for _, userID := range []int{1, 2, 3} {
		balance, _ := f.ledger.Balance(ctx, userID)
		assert.Equal(t, f.match.EntryFee, balance)
	}
	balance, _ := f.ledger.Balance(ctx, 4)
	assert.Equal(t, int64(0), balance)
}

func TestCancelRejectsNonCreator(t *testing.T) {
	f := newLifecycleFixture(t, 2)
	f.addMember(t, f.teamA, 1, true)

	svc := f.service.(*lifecycleService)
	_, err := svc.cancelInTx(context.Background(), nil, Actor{UserID: 99, Role: models.RolePlayer}, f.match.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
	assert.Empty(t, f.ledger.credits)
}

func TestCancelOnlyBeforeConfirmation(t *testing.T) {
	f := newLifecycleFixture(t, 2)
	f.addMember(t, f.teamA, 1, true)
	f.match.Status = models.MatchStatusConfirmed

	svc := f.service.(*lifecycleService)
	_, err := svc.cancelInTx(context.Background(), nil, Actor{UserID: 1, Role: models.RolePlayer}, f.match.ID)
	assert.ErrorIs(t, err, ErrMatchNotCancellable)
	assert.Empty(t, f.ledger.credits)
	assert.Equal(t, models.MatchStatusConfirmed, f.match.Status)
}

func TestMatchStatusTransitions(t *testing.T) {
	assert.True(t, models.MatchStatusWaiting.IsCancellable())
	assert.True(t, models.MatchStatusTeamAReady.IsCancellable())
	assert.True(t, models.MatchStatusTeamBReady.IsCancellable())
	assert.False(t, models.MatchStatusConfirmed.IsCancellable())
	assert.False(t, models.MatchStatusInProgress.IsCancellable())
	assert.False(t, models.MatchStatusCompleted.IsCancellable())

	assert.True(t, models.MatchStatusCompleted.IsTerminal())
	assert.True(t, models.MatchStatusCancelled.IsTerminal())
	assert.False(t, models.MatchStatusInProgress.IsTerminal())
}
