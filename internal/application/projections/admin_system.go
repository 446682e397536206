package projections

import (
	"context"
	"time"

	auditStore "whistle/internal/adapters/storage/audit"
	outboxStore "whistle/internal/adapters/storage/outbox"
	domainAudit "whistle/internal/domain/audit"
	domainOutbox "whistle/internal/domain/outbox"
)

// Audit and outbox list sizes.
const (
	DefaultAuditLimit  = 100
	MaxAuditLimit      = 500
	DefaultOutboxLimit = 50
	MaxOutboxLimit     = 200
)

// GetAuditLogQuery carries audit log filters. From and To bound the event time inclusively.
type GetAuditLogQuery struct {
	Category   string
	Action     string
	ActorID    string
	ResourceID string
	From       time.Time
	To         time.Time
	Limit      int
}

// GetAuditLogDeps holds dependencies for GetAuditLog.
type GetAuditLogDeps struct {
	AuditStore AuditStore
}

// QueryGetAuditLog returns audit events newest first.
// PRE: caller is an admin
func QueryGetAuditLog(ctx context.Context, query GetAuditLogQuery, deps GetAuditLogDeps) ([]domainAudit.Event, error) {
	filter := auditStore.Filter{
		Category:   domainAudit.Category(query.Category),
		Action:     domainAudit.Action(query.Action),
		ActorID:    query.ActorID,
		ResourceID: query.ResourceID,
		Since:      query.From,
		Until:      query.To,
	}
	events, err := deps.AuditStore.List(ctx, filter, clampLimit(query.Limit, DefaultAuditLimit, MaxAuditLimit))
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domainAudit.Event{}
	}
	return events, nil
}

// ListOutboxQuery carries outbox list filters. Empty fields match all.
type ListOutboxQuery struct {
	Status     string
	ActionType string
	Limit      int
}

// ListOutboxResult carries matching entries and per-status totals.
type ListOutboxResult struct {
	Entries []domainOutbox.Entry `json:"entries"`
	Counts  map[string]int       `json:"counts"`
}

// ListOutboxDeps holds dependencies for ListOutbox.
type ListOutboxDeps struct {
	OutboxStore OutboxStore
}

// QueryListOutbox returns outbox entries with status counts for the admin view.
// PRE: caller is an admin
func QueryListOutbox(ctx context.Context, query ListOutboxQuery, deps ListOutboxDeps) (ListOutboxResult, error) {
	entries, err := deps.OutboxStore.List(ctx, outboxStore.ListFilter{
		Status:     query.Status,
		ActionType: query.ActionType,
		Limit:      clampLimit(query.Limit, DefaultOutboxLimit, MaxOutboxLimit),
	})
	if err != nil {
		return ListOutboxResult{}, err
	}
	counts, err := deps.OutboxStore.CountByStatus(ctx)
	if err != nil {
		return ListOutboxResult{}, err
	}
	for _, s := range []string{domainOutbox.StatusPending, domainOutbox.StatusRetrying, domainOutbox.StatusDone, domainOutbox.StatusFailed, domainOutbox.StatusAbandoned} {
		if _, ok := counts[s]; !ok {
			counts[s] = 0
		}
	}
	if entries == nil {
		entries = []domainOutbox.Entry{}
	}
	return ListOutboxResult{Entries: entries, Counts: counts}, nil
}
