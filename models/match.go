package models

import "time"

type MatchType string

const (
	MatchTypePublic  MatchType = "public"
	MatchTypePrivate MatchType = "private"
)

type MatchStatus string

const (
	MatchStatusWaiting    MatchStatus = "waiting"
	MatchStatusTeamAReady MatchStatus = "team_a_ready"
	MatchStatusTeamBReady MatchStatus = "team_b_ready"
	MatchStatusConfirmed  MatchStatus = "confirmed"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

// IsCancellable reports whether Cancel is still permitted. Once a match is
// confirmed the room may already be handed out, so cancellation stops there.
func (s MatchStatus) IsCancellable() bool {
	switch s {
	case MatchStatusWaiting, MatchStatusTeamAReady, MatchStatusTeamBReady:
		return true
	}
	return false
}

type Match struct {
	ID        int         `json:"id"`
	MatchType MatchType   `json:"match_type"`
	Status    MatchStatus `json:"status"`
	GameName  string      `json:"game_name"`
	// EntryFee is charged per member; PrizePool is computed once at creation
	// (entry_fee * team_size * 2 minus the platform margin) and never recomputed.
	EntryFee       int64   `json:"entry_fee"`
	PrizePool      int64   `json:"prize_pool"`
	TeamSize       int     `json:"team_size"`
	RoomID         *string `json:"room_id,omitempty"`
	RoomCredential *string `json:"-"`
	WinningTeamID  *int    `json:"winning_team_id,omitempty"`
	CreatedBy      int     `json:"created_by"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	Teams []*Team `json:"teams,omitempty"`
}

// RoomAssigned reports whether the creator has handed out room credentials.
func (m *Match) RoomAssigned() bool {
	return m.RoomID != nil && *m.RoomID != ""
}
