package services

import "github.com/Dosada05/match-arena/models"

// Actor identifies who is performing an operation. Internal callers (the
// reaper, automatic adjudication) use SystemActor instead of a magic user id.
type Actor struct {
	UserID int
	Role   models.UserRole
	System bool
}

// SystemActor is the engine acting on its own behalf.
var SystemActor = Actor{System: true}

func (a Actor) IsAdmin() bool {
	return a.System || a.Role == models.RoleAdmin
}

// CanArbitrate reports whether the actor may resolve disputes.
func (a Actor) CanArbitrate() bool {
	return a.System || a.Role == models.RoleAdmin || a.Role == models.RoleArbiter
}
