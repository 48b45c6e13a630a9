package models

import "time"

type TeamSlot string

const (
	TeamSlotA TeamSlot = "A"
	TeamSlotB TeamSlot = "B"
)

// Other returns the opposing slot.
func (s TeamSlot) Other() TeamSlot {
	if s == TeamSlotA {
		return TeamSlotB
	}
	return TeamSlotA
}

func (s TeamSlot) Valid() bool {
	return s == TeamSlotA || s == TeamSlotB
}

type Team struct {
	ID      int      `json:"id"`
	MatchID int      `json:"match_id"`
	Slot    TeamSlot `json:"slot"`
	// DisplayName is nil while the slot is still open. Use Claimed instead of
	// checking the pointer directly.
	DisplayName      *string   `json:"display_name,omitempty"`
	IsReady          bool      `json:"is_ready"`
	PaymentCompleted bool      `json:"payment_completed"`
	CreatedAt        time.Time `json:"created_at"`

	Members []*TeamMember `json:"members,omitempty"`
}

// Claimed reports whether a roster has taken this slot. The slot state is
// Open until a join names the team; all callers go through this method so the
// open/claimed distinction lives in one place.
func (t *Team) Claimed() bool {
	return t.DisplayName != nil && *t.DisplayName != ""
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

type TeamMember struct {
	ID        int  `json:"id"`
	TeamID    int  `json:"team_id"`
	MatchID   int  `json:"match_id"`
	UserID    int  `json:"user_id"`
	IsCaptain bool `json:"is_captain"`
	// PaymentAmount is a frozen copy of the match entry fee at join time.
	PaymentAmount int64         `json:"payment_amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`

	User *User `json:"user,omitempty"`
}
