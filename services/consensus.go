package services

import "github.com/Dosada05/match-arena/models"

// EvidenceState is the adjudication view of one team's evidence: whether
// anything was submitted at all, and the verdict derived from it.
type EvidenceState struct {
	Submitted bool
	Status    models.VerificationStatus
}

type OutcomeKind int

const (
	// OutcomeWait: not enough signal yet, keep the match in progress.
	OutcomeWait OutcomeKind = iota
	// OutcomeSettle: exactly one team claims victory and nothing contradicts
	// it, settle automatically.
	OutcomeSettle
	// OutcomeDispute: both teams claim victory, escalate to arbitration.
	OutcomeDispute
)

type Outcome struct {
	Kind       OutcomeKind
	WinnerSlot models.TeamSlot
}

// DecideOutcome is the consensus check over two independent, possibly
// adversarial witnesses. It is a pure function of the two evidence states:
//
//   - one side verified_win, other side verified_loss or absent → settle
//   - both sides verified_win → dispute
//   - anything else (no submissions, ambiguous pending evidence, an already
//     disputed pair) → wait
//
// A team whose evidence is pending has submitted something the classifier
// could not read; settling against it would punish a bad screenshot, so the
// engine waits for a re-upload or manual review instead.
func DecideOutcome(a, b EvidenceState) Outcome {
	aWin := a.Submitted && a.Status == models.VerificationWin
	bWin := b.Submitted && b.Status == models.VerificationWin

	switch {
	case aWin && bWin:
		return Outcome{Kind: OutcomeDispute}
	case aWin && concedes(b):
		return Outcome{Kind: OutcomeSettle, WinnerSlot: models.TeamSlotA}
	case bWin && concedes(a):
		return Outcome{Kind: OutcomeSettle, WinnerSlot: models.TeamSlotB}
	default:
		return Outcome{Kind: OutcomeWait}
	}
}

// concedes reports whether the side does not stand in the way of the other
// side's victory claim: it either verified a loss or has not submitted.
func concedes(e EvidenceState) bool {
	if !e.Submitted {
		return true
	}
	return e.Status == models.VerificationLoss
}
