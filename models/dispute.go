package models

import "time"

type DisputeStatus string

const (
	DisputePending     DisputeStatus = "pending"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeResolved    DisputeStatus = "resolved"
	DisputeRejected    DisputeStatus = "rejected"
)

// Open reports whether the dispute still awaits an arbiter decision.
func (s DisputeStatus) Open() bool {
	return s == DisputePending || s == DisputeUnderReview
}

type Dispute struct {
	ID             int           `json:"id"`
	MatchID        int           `json:"match_id"`
	ReporterID     int           `json:"reporter_id"`
	ReportedTeamID int           `json:"reported_team_id"`
	Reason         string        `json:"reason"`
	Status         DisputeStatus `json:"status"`
	AdminNotes     *string       `json:"admin_notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
}
