package services

import "errors"

// Shared errors across services, mapped to HTTP responses in handlers.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rule errors
	ErrValidationFailed    = errors.New("validation failed")
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrInvalidTeamSize     = errors.New("team size must be 1, 4, 6 or 8")
	ErrInvalidEntryFee     = errors.New("entry fee must be positive")
	ErrTeamNameRequired    = errors.New("team display name is required")
	ErrRosterEmpty         = errors.New("at least one member is required to join")
	ErrRosterTooLarge      = errors.New("roster exceeds the match team size")
	ErrDuplicateRosterUser = errors.New("roster contains the same user twice")

	// Precondition errors: the operation is fine, the match state is not
	ErrMatchNotJoinable     = errors.New("match is no longer accepting teams")
	ErrMatchNotPayable      = errors.New("match is no longer accepting entry fees")
	ErrMatchNotConfirmed    = errors.New("match is not in confirmed state")
	ErrMatchNotInProgress   = errors.New("match is not in progress")
	ErrMatchNotCancellable  = errors.New("match can no longer be cancelled")
	ErrRoomNotAssigned      = errors.New("room credentials have not been set")
	ErrRoomAlreadyAssigned  = errors.New("room credentials are already set")
	ErrDisputeAlreadyClosed = errors.New("dispute has already been resolved or rejected")

	// Account errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrNicknameTaken      = errors.New("nickname is already taken")

	// Escrow errors
	ErrInsufficientFunds = errors.New("insufficient wallet balance for entry fee")
	ErrAlreadyPaid       = errors.New("entry fee has already been paid")

	// Conflict errors: a concurrent request won the race, caller may retry
	ErrNoSlotAvailable    = errors.New("no team slot available in this match")
	ErrSlotTaken          = errors.New("team slot has already been claimed")
	ErrUserAlreadyInMatch = errors.New("user has already joined a team in this match")
	ErrAlreadySettled     = errors.New("match has already been settled")

	// Authorization errors
	ErrNotTeamMember          = errors.New("user is not a member of this team")
	ErrNotParticipant         = errors.New("user is not a participant of this match")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only the team captain can perform this action")
	ErrArbiterActionForbidden = errors.New("only an arbiter can perform this action")

	// Entity-specific not-found errors
	ErrUserNotFound    = errors.New("user not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrTeamNotFound    = errors.New("team not found")
	ErrDisputeNotFound = errors.New("dispute not found")

	// Dispute resolution
	ErrWinningTeamRequired   = errors.New("a winning team is required to resolve the dispute")
	ErrTeamNotInMatch        = errors.New("team does not belong to this match")
	ErrSettledWinnerMismatch = errors.New("match is settled with a different winning team")
)
