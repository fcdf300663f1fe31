package service

import (
	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   uuid.UUID
	Role domain.Role
}

// IsTeacher reports whether the actor may author content. Admins inherit
// teacher rights.
func (a Actor) IsTeacher() bool {
	return a.Role == domain.RoleTeacher || a.Role == domain.RoleAdmin
}
