package models

import "time"

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationWin      VerificationStatus = "verified_win"
	VerificationLoss     VerificationStatus = "verified_loss"
	VerificationDisputed VerificationStatus = "disputed"
	VerificationAdmin    VerificationStatus = "admin_reviewed"
)

// Screenshot is the evidence a team submits for adjudication. At most one
// current record exists per (match, team); a later upload overwrites it.
type Screenshot struct {
	ID       int    `json:"id"`
	MatchID  int    `json:"match_id"`
	TeamID   int    `json:"team_id"`
	ImageKey string `json:"-"`
	ImageURL string `json:"image_url,omitempty"`
	// RawText is the classifier output, retained for audit.
	RawText            string             `json:"raw_text,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	SubmittedBy        int                `json:"submitted_by"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}
