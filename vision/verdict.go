package vision

import (
	"strings"

	"github.com/Dosada05/match-arena/models"
)

// VerdictMapper turns raw classifier text into a verification verdict. The
// keyword heuristic below is deliberately replaceable: swap in a stronger
// implementation without touching the state machine.
type VerdictMapper interface {
	Map(rawText string) models.VerificationStatus
}

// VerdictKeywords is configuration, not contract. Order matters: win terms
// are checked before loss terms, and a text matching neither stays pending
// for manual review.
type VerdictKeywords struct {
	Win  []string
	Loss []string
}

func DefaultVerdictKeywords() VerdictKeywords {
	return VerdictKeywords{
		Win:  []string{"victory", "winner", "won", "1st place", "#1", "booyah", "chicken dinner"},
		Loss: []string{"defeat", "defeated", "lost", "eliminated", "better luck"},
	}
}

type keywordMapper struct {
	keywords VerdictKeywords
}

func NewKeywordMapper(keywords VerdictKeywords) VerdictMapper {
	return &keywordMapper{keywords: keywords}
}

func (m *keywordMapper) Map(rawText string) models.VerificationStatus {
	text := strings.ToLower(rawText)
	for _, term := range m.keywords.Win {
		if strings.Contains(text, term) {
			return models.VerificationWin
		}
	}
	for _, term := range m.keywords.Loss {
		if strings.Contains(text, term) {
			return models.VerificationLoss
		}
	}
	return models.VerificationPending
}
