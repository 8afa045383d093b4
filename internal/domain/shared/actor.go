package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// ActorKind discriminates between human users and automated callers
type ActorKind string

const (
	ActorKindUser   ActorKind = "user"
	ActorKindSystem ActorKind = "system"
)

// Actor identifies who performs an operation. Automated postings (billing
// listeners, the recurring scheduler, period closing jobs) use SystemActor
// instead of a synthesized user id.
type Actor struct {
	Kind     ActorKind
	UserID   uuid.UUID
	TenantID uuid.UUID
	// Source names the automated process for system actors (e.g. "billing-listener")
	Source string
}

// UserActor returns an actor for an authenticated user
func UserActor(userID, tenantID uuid.UUID) Actor {
	return Actor{Kind: ActorKindUser, UserID: userID, TenantID: tenantID}
}

// SystemActor returns the actor used by automated processes
func SystemActor(tenantID uuid.UUID, source string) Actor {
	return Actor{Kind: ActorKindSystem, TenantID: tenantID, Source: source}
}

// IsSystem reports whether the actor is an automated process
func (a Actor) IsSystem() bool {
	return a.Kind == ActorKindSystem
}

// UserIDPtr returns the user id for user actors and nil for system actors
func (a Actor) UserIDPtr() *uuid.UUID {
	if a.Kind != ActorKindUser || a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// Validate checks that the actor is well formed
func (a Actor) Validate() error {
	switch a.Kind {
	case ActorKindUser:
		if a.UserID == uuid.Nil {
			return NewDomainError("INVALID_ACTOR", "User actor requires a user id")
		}
	case ActorKindSystem:
		if a.Source == "" {
			return NewDomainError("INVALID_ACTOR", "System actor requires a source")
		}
	default:
		return NewDomainError("INVALID_ACTOR", fmt.Sprintf("Unknown actor kind %q", a.Kind))
	}
	return nil
}

// String renders the actor for logs and audit fields
func (a Actor) String() string {
	if a.IsSystem() {
		return "system:" + a.Source
	}
	return "user:" + a.UserID.String()
}
