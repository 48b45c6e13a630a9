package services

import (
	"context"
	"testing"

	"github.com/Dosada05/match-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settlementFixture struct {
	service    SettlementService
	matchRepo  *fakeMatchRepo
	teamRepo   *fakeTeamRepo
	memberRepo *fakeMemberRepo
	resultRepo *fakeResultRepo
	userRepo   *fakeUserRepo
	ledger     *fakeLedger

	match *models.Match
	teamA *models.Team
	teamB *models.Team
}

// newSettlementFixture builds an in-progress 4v4 match with every entry fee
// collected. Entry fee 50, prize pool 360 after a 10% margin.
func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()
	ctx := context.Background()

	f := &settlementFixture{
		matchRepo:  newFakeMatchRepo(),
		teamRepo:   newFakeTeamRepo(),
		memberRepo: newFakeMemberRepo(),
		resultRepo: newFakeResultRepo(),
		userRepo:   newFakeUserRepo(),
		ledger:     newFakeLedger(),
	}
	f.service = NewSettlementService(
		nil, f.matchRepo, f.teamRepo, f.memberRepo, f.resultRepo, f.userRepo,
		f.ledger, testNotifier(), testLogger(),
	)

	f.match = &models.Match{
		MatchType: models.MatchTypePublic,
		Status:    models.MatchStatusInProgress,
		GameName:  "freefire",
		EntryFee:  50,
		PrizePool: 360,
		TeamSize:  4,
		CreatedBy: 1,
	}
	require.NoError(t, f.matchRepo.Create(ctx, nil, f.match))

	f.teamA = &models.Team{MatchID: f.match.ID, Slot: models.TeamSlotA}
	f.teamB = &models.Team{MatchID: f.match.ID, Slot: models.TeamSlotB}
	require.NoError(t, f.teamRepo.Create(ctx, nil, f.teamA))
	require.NoError(t, f.teamRepo.Create(ctx, nil, f.teamB))

	userID := 1
	for _, team := range []*models.Team{f.teamA, f.teamB} {
		for i := 0; i < f.match.TeamSize; i++ {
			require.NoError(t, f.userRepo.Create(ctx, &models.User{Nickname: "p", Role: models.RolePlayer}))
			require.NoError(t, f.memberRepo.Create(ctx, nil, &models.TeamMember{
				TeamID:        team.ID,
				MatchID:       f.match.ID,
				UserID:        userID,
				IsCaptain:     i == 0,
				PaymentAmount: f.match.EntryFee,
				PaymentStatus: models.PaymentCompleted,
			}))
			userID++
		}
	}
	return f
}

func TestSettleInTxDistributesPrizeEvenly(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	outcome, err := f.service.SettleInTx(ctx, nil, SettlementRequest{
		MatchID:       f.match.ID,
		WinningTeamID: f.teamA.ID,
		Method:        models.ResolutionAutomatic,
	})
	require.NoError(t, err)

	// 360 / 4 = 90 per member, no remainder.
	assert.Len(t, outcome.Winners, 4)
	for _, winner := range outcome.Winners {
		assert.Equal(t, int64(90), outcome.Shares[winner.UserID])
		balance, _ := f.ledger.Balance(ctx, winner.UserID)
		assert.Equal(t, int64(90), balance)
	}

	assert.Equal(t, models.MatchStatusCompleted, f.match.Status)
	require.NotNil(t, f.match.WinningTeamID)
	assert.Equal(t, f.teamA.ID, *f.match.WinningTeamID)

	result, err := f.resultRepo.GetByMatch(ctx, nil, f.match.ID)
	require.NoError(t, err)
	assert.True(t, result.PrizeAwarded)
	assert.Equal(t, int64(360), result.PrizeAmount)
	assert.Equal(t, models.ResolutionAutomatic, result.ResolutionMethod)

	// Winners got their counters bumped, losers did not.
	for _, winner := range outcome.Winners {
		user, _ := f.userRepo.GetByID(ctx, nil, winner.UserID)
		assert.Equal(t, 1, user.Wins)
	}
	losers, _ := f.memberRepo.ListByTeam(ctx, nil, f.teamB.ID)
	for _, loser := range losers {
		user, _ := f.userRepo.GetByID(ctx, nil, loser.UserID)
		assert.Equal(t, 0, user.Wins)
	}
}

func TestSettleInTxRemainderGoesToCaptain(t *testing.T) {
	f := newSettlementFixture(t)
	f.match.PrizePool = 362 // 362 / 4 = 90 with remainder 2
	ctx := context.Background()

	outcome, err := f.service.SettleInTx(ctx, nil, SettlementRequest{
		MatchID:       f.match.ID,
		WinningTeamID: f.teamA.ID,
		Method:        models.ResolutionAutomatic,
	})
	require.NoError(t, err)

	var total int64
	for _, winner := range outcome.Winners {
		share := outcome.Shares[winner.UserID]
		if winner.IsCaptain {
			assert.Equal(t, int64(92), share)
		} else {
			assert.Equal(t, int64(90), share)
		}
		total += share
	}
	// No unit of the pool is dropped.
	assert.Equal(t, int64(362), total)
}

func TestSettleInTxIsIdempotent(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	req := SettlementRequest{
		MatchID:       f.match.ID,
		WinningTeamID: f.teamA.ID,
		Method:        models.ResolutionAutomatic,
	}
	_, err := f.service.SettleInTx(ctx, nil, req)
	require.NoError(t, err)
	creditsAfterFirst := len(f.ledger.credits)

	_, err = f.service.SettleInTx(ctx, nil, req)
	assert.ErrorIs(t, err, ErrAlreadySettled)
	// The replay credited nobody.
	assert.Equal(t, creditsAfterFirst, len(f.ledger.credits))
}

func TestSettleInTxRejectsConflictingWinner(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	_, err := f.service.SettleInTx(ctx, nil, SettlementRequest{
		MatchID:       f.match.ID,
		WinningTeamID: f.teamA.ID,
		Method:        models.ResolutionAutomatic,
	})
	require.NoError(t, err)

	_, err = f.service.SettleInTx(ctx, nil, SettlementRequest{
		MatchID:       f.match.ID,
		WinningTeamID: f.teamB.ID,
		Method:        models.ResolutionAdminDecision,
	})
	assert.ErrorIs(t, err, ErrSettledWinnerMismatch)
}

func TestSettleInTxRequiresInProgressMatch(t *testing.T) {
	f := newSettlementFixture(t)
	f.match.Status = models.MatchStatusConfirmed
	ctx := context.Background()

	_, err := f.service.SettleInTx(ctx, nil, SettlementRequest{
		MatchID:       f.match.ID,
		WinningTeamID: f.teamA.ID,
		Method:        models.ResolutionAutomatic,
	})
	assert.ErrorIs(t, err, ErrMatchNotInProgress)
}

func TestSettleInTxRejectsForeignTeam(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	other := &models.Team{MatchID: 999, Slot: models.TeamSlotA}
	require.NoError(t, f.teamRepo.Create(ctx, nil, other))

	_, err := f.service.SettleInTx(ctx, nil, SettlementRequest{
		MatchID:       f.match.ID,
		WinningTeamID: other.ID,
		Method:        models.ResolutionAutomatic,
	})
	assert.ErrorIs(t, err, ErrTeamNotInMatch)
}
