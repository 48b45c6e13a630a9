package vision

import (
	"testing"

	"github.com/Dosada05/match-arena/models"
	"github.com/stretchr/testify/assert"
)

func TestKeywordMapper(t *testing.T) {
	mapper := NewKeywordMapper(DefaultVerdictKeywords())

	tests := []struct {
		name string
		text string
		want models.VerificationStatus
	}{
		{"plain victory", "VICTORY ROYALE", models.VerificationWin},
		{"booyah screen", "BOOYAH! Your squad placed #1", models.VerificationWin},
		{"defeat screen", "Defeat. Better luck next time", models.VerificationLoss},
		{"eliminated mid game", "You were eliminated by Player123", models.VerificationLoss},
		{"mixed case", "wInNeR wInNeR", models.VerificationWin},
		{"no keywords", "match summary: 12 kills, 3 assists", models.VerificationPending},
		{"empty text", "", models.VerificationPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapper.Map(tt.text))
		})
	}
}

func TestKeywordMapperWinBeatsLoss(t *testing.T) {
	// A kill feed can mention both sides. Win terms are checked first so the
	// submitting team gets the benefit of the doubt and consensus still
	// requires the other team to concede.
	mapper := NewKeywordMapper(DefaultVerdictKeywords())
	assert.Equal(t, models.VerificationWin, mapper.Map("Victory! Enemy squad defeated"))
}

func TestKeywordMapperCustomKeywords(t *testing.T) {
	mapper := NewKeywordMapper(VerdictKeywords{
		Win:  []string{"gg ez"},
		Loss: []string{"ff"},
	})
	assert.Equal(t, models.VerificationWin, mapper.Map("GG EZ"))
	assert.Equal(t, models.VerificationLoss, mapper.Map("team voted to FF"))
	assert.Equal(t, models.VerificationPending, mapper.Map("victory"))
}
