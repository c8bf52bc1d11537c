// Package authz holds the cross-cutting ownership predicate shared by the
// content services.
package authz

import (
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	"github.com/google/uuid"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// CanManage reports whether the actor may mutate a document owned by ownerID.
// Admins may manage everything; everyone else only their own documents.
func CanManage(role enums.UserRole, ownerID, userID uuid.UUID) bool {
	if role == enums.UserRoleAdmin {
		return true
	}
	return ownerID != uuid.Nil && ownerID == userID
}

// ActorCanManage is the Actor-shaped convenience over CanManage.
func ActorCanManage(actor Actor, ownerID uuid.UUID) bool {
	return CanManage(actor.Role, ownerID, actor.ID)
}
