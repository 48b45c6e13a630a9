package models

import "time"

type ResolutionMethod string

const (
	ResolutionAutomatic     ResolutionMethod = "automatic"
	ResolutionAdminDecision ResolutionMethod = "admin_decision"
)

// MatchResult records how a match was settled. Exactly one row exists per
// match (unique constraint); settlement upserts against it.
type MatchResult struct {
	ID               int              `json:"id"`
	MatchID          int              `json:"match_id"`
	WinningTeamID    int              `json:"winning_team_id"`
	PrizeAwarded     bool             `json:"prize_awarded"`
	PrizeAmount      int64            `json:"prize_amount"`
	ResolutionMethod ResolutionMethod `json:"resolution_method"`
	ResolvedAt       time.Time        `json:"resolved_at"`
}
