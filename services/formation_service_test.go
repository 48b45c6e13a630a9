package services

import (
	"testing"

	"github.com/Dosada05/match-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrizePool(t *testing.T) {
	tests := []struct {
		name          string
		entryFee      int64
		teamSize      int
		marginPercent int64
		want          int64
	}{
		{"4v4 with 10 percent margin", 50, 4, 10, 360},
		{"solo duel no margin", 100, 1, 0, 200},
		{"margin rounds down in favor of the platform", 33, 1, 10, 60}, // pot 66, margin 6.6 -> 6
		{"8v8 with 10 percent margin", 100, 8, 10, 1440},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrizePool(tt.entryFee, tt.teamSize, tt.marginPercent))
		})
	}
}

func TestPickSlot(t *testing.T) {
	slotA := models.TeamSlotA
	slotB := models.TeamSlotB
	name := "alpha"

	open := func(slot models.TeamSlot) *models.Team {
		return &models.Team{ID: int(slot[0]), Slot: slot}
	}
	claimed := func(slot models.TeamSlot) *models.Team {
		return &models.Team{ID: int(slot[0]), Slot: slot, DisplayName: &name}
	}

	t.Run("explicit open slot is honored", func(t *testing.T) {
		team, err := pickSlot([]*models.Team{open(slotA), open(slotB)}, &slotB, nil)
		require.NoError(t, err)
		assert.Equal(t, slotB, team.Slot)
	})

	t.Run("explicit claimed slot fails", func(t *testing.T) {
		_, err := pickSlot([]*models.Team{claimed(slotA), open(slotB)}, &slotA, nil)
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("preferred slot wins when open", func(t *testing.T) {
		team, err := pickSlot([]*models.Team{open(slotA), open(slotB)}, nil, &slotB)
		require.NoError(t, err)
		assert.Equal(t, slotB, team.Slot)
	})

	t.Run("claimed preference falls back to first open", func(t *testing.T) {
		team, err := pickSlot([]*models.Team{open(slotA), claimed(slotB)}, nil, &slotB)
		require.NoError(t, err)
		assert.Equal(t, slotA, team.Slot)
	})

	t.Run("auto assignment takes slot A first", func(t *testing.T) {
		team, err := pickSlot([]*models.Team{open(slotA), open(slotB)}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, slotA, team.Slot)
	})

	t.Run("both claimed fails", func(t *testing.T) {
		_, err := pickSlot([]*models.Team{claimed(slotA), claimed(slotB)}, nil, nil)
		assert.ErrorIs(t, err, ErrNoSlotAvailable)
	})
}

func TestCaptainIndexOf(t *testing.T) {
	assert.Equal(t, 0, captainIndexOf([]JoinMember{{UserID: 1}, {UserID: 2}}))
	assert.Equal(t, 1, captainIndexOf([]JoinMember{{UserID: 1}, {UserID: 2, IsCaptain: true}}))
}

func TestTeamSlotHelpers(t *testing.T) {
	assert.Equal(t, models.TeamSlotB, models.TeamSlotA.Other())
	assert.Equal(t, models.TeamSlotA, models.TeamSlotB.Other())
	assert.True(t, models.TeamSlotA.Valid())
	assert.False(t, models.TeamSlot("C").Valid())

	name := "alpha"
	assert.False(t, (&models.Team{}).Claimed())
	assert.True(t, (&models.Team{DisplayName: &name}).Claimed())
}
