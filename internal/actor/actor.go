package actor

import (
	"fmt"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner   Role = "owner"
	RoleFarrier Role = "farrier"
	RoleAdmin   Role = "admin"
)

// Actor is the authenticated caller of an operation. For RoleFarrier the ID
// is the farrier id, for RoleOwner the horse owner's user id.
type Actor struct {
	Role Role
	ID   uuid.UUID
}

func Parse(role, id string) (Actor, error) {
	r := Role(role)
	switch r {
	case RoleOwner, RoleFarrier, RoleAdmin:
	default:
		return Actor{}, fmt.Errorf("unknown actor role %q", role)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Actor{}, fmt.Errorf("actor id: %w", err)
	}

	return Actor{Role: r, ID: parsed}, nil
}

func (a Actor) IsFarrier(farrierID uuid.UUID) bool {
	return a.Role == RoleFarrier && a.ID == farrierID
}

func (a Actor) IsOwner(ownerID uuid.UUID) bool {
	return a.Role == RoleOwner && a.ID == ownerID
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%s", a.Role, a.ID)
}
