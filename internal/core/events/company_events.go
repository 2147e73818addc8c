package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	CompanyCreated     = "company.created"
	CompanyUpdated     = "company.updated"
	CompanyDeactivated = "company.deactivated"
	CompanyReactivated = "company.reactivated"
	MemberAdded        = "company.member_added"
	MemberDeactivated  = "company.member_deactivated"
	MemberReactivated  = "company.member_reactivated"
)

func newCompanyEvent(eventType string, companyID uuid.UUID, actorID int64, extra map[string]interface{}) BaseEvent {
	data := map[string]interface{}{
		"company_id": companyID.String(),
		"actor_id":   actorID,
	}
	for k, v := range extra {
		data[k] = v
	}
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewCompanyCreated(companyID uuid.UUID, actorID int64) BaseEvent {
	return newCompanyEvent(CompanyCreated, companyID, actorID, nil)
}

func NewCompanyUpdated(companyID uuid.UUID, actorID int64) BaseEvent {
	return newCompanyEvent(CompanyUpdated, companyID, actorID, nil)
}

func NewCompanyDeactivated(companyID uuid.UUID, actorID int64, membersDeactivated int64) BaseEvent {
	return newCompanyEvent(CompanyDeactivated, companyID, actorID, map[string]interface{}{
		"members_deactivated": membersDeactivated,
	})
}

func NewCompanyReactivated(companyID uuid.UUID, actorID int64) BaseEvent {
	return newCompanyEvent(CompanyReactivated, companyID, actorID, nil)
}

func NewMemberEvent(eventType string, companyID uuid.UUID, actorID int64, membershipID uuid.UUID) BaseEvent {
	return newCompanyEvent(eventType, companyID, actorID, map[string]interface{}{
		"membership_id": membershipID.String(),
	})
}

// RegisterAuditLog subscribes a structured-log audit trail for every company
// lifecycle event type.
func RegisterAuditLog(bus *EventBus, logger *slog.Logger) {
	types := []string{
		CompanyCreated, CompanyUpdated, CompanyDeactivated, CompanyReactivated,
		MemberAdded, MemberDeactivated, MemberReactivated,
	}
	for _, t := range types {
		bus.Subscribe(t, func(ctx context.Context, event Event) error {
			logger.InfoContext(ctx, "audit",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"occurred_at", event.OccurredAt(),
				"payload", event.Payload())
			return nil
		})
	}
}
