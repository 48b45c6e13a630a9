package services

import (
	"context"
	"testing"

	"github.com/Dosada05/match-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type escrowFixture struct {
	service    *escrowService
	matchRepo  *fakeMatchRepo
	teamRepo   *fakeTeamRepo
	memberRepo *fakeMemberRepo
	ledger     *fakeLedger

	match   *models.Match
	teamA   *models.Team
	teamB   *models.Team
	memberA *models.TeamMember
	memberB *models.TeamMember
}

// newEscrowFixture builds a 1v1 match in waiting with one pending member per
// team. Entry fee 100; wallets start empty.
func newEscrowFixture(t *testing.T) *escrowFixture {
	t.Helper()
	ctx := context.Background()

	f := &escrowFixture{
		matchRepo:  newFakeMatchRepo(),
		teamRepo:   newFakeTeamRepo(),
		memberRepo: newFakeMemberRepo(),
		ledger:     newFakeLedger(),
	}
	lifecycle := NewLifecycleService(
		nil, f.matchRepo, f.teamRepo, f.memberRepo, f.ledger, testNotifier(), testLogger(),
	)
	f.service = NewEscrowService(
		nil, f.matchRepo, f.teamRepo, f.memberRepo, f.ledger, lifecycle, testNotifier(), testLogger(),
	).(*escrowService)

	f.match = &models.Match{
		MatchType: models.MatchTypePublic,
		Status:    models.MatchStatusWaiting,
		GameName:  "freefire",
		EntryFee:  100,
		PrizePool: 180,
		TeamSize:  1,
		CreatedBy: 1,
	}
	require.NoError(t, f.matchRepo.Create(ctx, nil, f.match))

	f.teamA = &models.Team{MatchID: f.match.ID, Slot: models.TeamSlotA}
	f.teamB = &models.Team{MatchID: f.match.ID, Slot: models.TeamSlotB}
	require.NoError(t, f.teamRepo.Create(ctx, nil, f.teamA))
	require.NoError(t, f.teamRepo.Create(ctx, nil, f.teamB))

	f.memberA = &models.TeamMember{
		TeamID: f.teamA.ID, MatchID: f.match.ID, UserID: 1,
		IsCaptain: true, PaymentAmount: 100, PaymentStatus: models.PaymentPending,
	}
	f.memberB = &models.TeamMember{
		TeamID: f.teamB.ID, MatchID: f.match.ID, UserID: 2,
		IsCaptain: true, PaymentAmount: 100, PaymentStatus: models.PaymentPending,
	}
	require.NoError(t, f.memberRepo.Create(ctx, nil, f.memberA))
	require.NoError(t, f.memberRepo.Create(ctx, nil, f.memberB))
	return f
}

func (f *escrowFixture) pay(ctx context.Context, teamID, userID int) (*PaymentReceipt, error) {
	receipt := &PaymentReceipt{MatchID: f.match.ID, TeamID: teamID, UserID: userID}
	_, err := f.service.payEntryFeeInTx(ctx, nil, f.match.ID, teamID, userID, receipt)
	return receipt, err
}

func TestPayEntryFeeReadiesTeamAndDebitsWallet(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.ledger.balances[1] = 100

	receipt, err := f.pay(ctx, f.teamA.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(100), receipt.AmountPaid)
	assert.True(t, receipt.TeamReady)
	assert.Equal(t, models.MatchStatusTeamAReady, receipt.MatchStatus)
	assert.Equal(t, models.PaymentCompleted, f.memberA.PaymentStatus)

	balance, _ := f.ledger.Balance(ctx, 1)
	assert.Equal(t, int64(0), balance)
}

func TestPayEntryFeeRejectsDoublePayment(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.ledger.balances[1] = 300

	_, err := f.pay(ctx, f.teamA.ID, 1)
	require.NoError(t, err)

	_, err = f.pay(ctx, f.teamA.ID, 1)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	// The wallet was debited exactly once.
	assert.Len(t, f.ledger.debits, 1)
	balance, _ := f.ledger.Balance(ctx, 1)
	assert.Equal(t, int64(200), balance)
}

func TestPayEntryFeeInsufficientFundsBlocksReadiness(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.ledger.balances[1] = 40

	_, err := f.pay(ctx, f.teamA.ID, 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing moved: member still pending, team not ready, match untouched.
	assert.Equal(t, models.PaymentPending, f.memberA.PaymentStatus)
	assert.False(t, f.teamA.IsReady)
	assert.Equal(t, models.MatchStatusWaiting, f.match.Status)
	assert.Empty(t, f.ledger.debits)
	balance, _ := f.ledger.Balance(ctx, 1)
	assert.Equal(t, int64(40), balance)
}

func TestPayEntryFeeSecondTeamConfirmsMatch(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.ledger.balances[1] = 100
	f.ledger.balances[2] = 100

	_, err := f.pay(ctx, f.teamA.ID, 1)
	require.NoError(t, err)

	receipt, err := f.pay(ctx, f.teamB.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusConfirmed, receipt.MatchStatus)
	assert.Equal(t, models.MatchStatusConfirmed, f.match.Status)
}

func TestPayEntryFeeRequiresMembership(t *testing.T) {
	f := newEscrowFixture(t)
	f.ledger.balances[99] = 100

	_, err := f.pay(context.Background(), f.teamA.ID, 99)
	assert.ErrorIs(t, err, ErrNotTeamMember)
	assert.Empty(t, f.ledger.debits)
}
