package service

import (
	"context"
	"encoding/json"
	"fmt"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/google/uuid"
)

// EventPublisher pushes domain events to connected dashboards.
type EventPublisher interface {
	Publish(event string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// Actor identifies who performs an operation. A nil UserID means the system.
type Actor struct {
	UserID   *uuid.UUID
	Username string
}

// SystemActor is used for seeding and imports without a logged-in user.
var SystemActor = Actor{Username: "system"}

// ActorFromClaims builds an Actor from the JWT subject and username.
func ActorFromClaims(sub, username string) Actor {
	a := Actor{Username: username}
	if id, err := uuid.Parse(sub); err == nil {
		a.UserID = &id
	}
	if a.Username == "" {
		a.Username = "system"
	}
	return a
}

// writeAudit records an audit row using the repository's transaction from ctx.
func writeAudit(ctx context.Context, repo repository.AuditRepository, actor Actor, action, entityID, entityName string, details interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := &model.AuditLog{
		UserID:     actor.UserID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
