package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "whistle/internal/adapters/email"
	pushAdapter "whistle/internal/adapters/push"
	"whistle/internal/domain/audit"
	domain "whistle/internal/domain/outbox"
	"whistle/internal/domain/push"
)

// OutboxStoreForProcessor defines the store interface needed by OutboxProcessor.
type OutboxStoreForProcessor interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListPending(ctx context.Context, afterCreatedAt time.Time, afterID string, limit int) ([]domain.Entry, error)
	PurgeDone(ctx context.Context, cutoff time.Time) (int, error)
}

// ActionExecutor executes a specific type of deferred delivery.
type ActionExecutor interface {
	// Execute runs the delivery with the given payload.
	// Returns the external ID (e.g. the provider message ID) and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// ErrAbandonEntry tells the processor the delivery can never succeed.
var ErrAbandonEntry = errors.New("delivery target no longer exists")

// DoneRetention is how long delivered entries are kept before purging.
const DoneRetention = 7 * 24 * time.Hour

// OutboxProcessor retries deferred email and push deliveries.
type OutboxProcessor struct {
	store     OutboxStoreForProcessor
	executors map[string]ActionExecutor
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	maxPages  int
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store OutboxStoreForProcessor, executors map[string]ActionExecutor, now func() time.Time) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       now,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 25,
		maxPages:  40,
	}
}

// ProcessPending attempts up to batchSize due pending or retrying entries.
// Entries still backing off are paged past so they cannot starve newer ones.
// PRE: Context is valid
// POST: Due entries attempted; returns the number attempted
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (int, error) {
	var (
		attempted int
		afterAt   time.Time
		afterID   string
		now       = p.now()
	)
	for page := 0; page < p.maxPages && attempted < p.batchSize; page++ {
		entries, err := p.store.ListPending(ctx, afterAt, afterID, p.batchSize)
		if err != nil {
			return attempted, fmt.Errorf("list pending outbox entries: %w", err)
		}
		for _, entry := range entries {
			afterAt, afterID = entry.CreatedAt, entry.ID
			if attempted == p.batchSize {
				break
			}
			if !entry.CanRetry() || !entry.IsDue(now, p.baseDelay, p.maxDelay) {
				continue
			}
			attempted++
			if err := p.attempt(ctx, entry); err != nil {
				slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
			}
		}
		if len(entries) < p.batchSize {
			break
		}
	}
	return attempted, nil
}

// attempt runs one delivery and saves the outcome.
func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) error {
	entry.MarkAttempt(p.now())
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkFailed(fmt.Errorf("no executor registered for action type: %s", entry.ActionType))
		return p.store.Save(ctx, entry)
	}

	externalID, err := executor.Execute(ctx, entry.Payload)
	switch {
	case errors.Is(err, ErrAbandonEntry):
		entry.ErrorMessage = err.Error()
		_ = entry.MarkAbandoned()
		slog.Info("outbox_action_abandoned", "entry_id", entry.ID, "action_type", entry.ActionType)
	case err != nil:
		entry.MarkFailed(err)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "error", err.Error())
	default:
		entry.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}

	return p.store.Save(ctx, entry)
}

// RetryEntry requeues a failed entry, or attempts a pending one, immediately.
// PRE: entryID is non-empty
// POST: Entry attempted once; status updated
func (p *OutboxProcessor) RetryEntry(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.Status == domain.StatusFailed {
		if err := entry.Requeue(); err != nil {
			return domain.Entry{}, err
		}
	}
	if !entry.CanRetry() {
		return domain.Entry{}, domain.ErrNotRetryable
	}
	if err := p.attempt(ctx, entry); err != nil {
		return domain.Entry{}, err
	}
	return p.store.GetByID(ctx, entryID)
}

// AbandonEntry marks an entry as abandoned by admin.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	if err := entry.MarkAbandoned(); err != nil {
		return domain.Entry{}, err
	}
	if err := p.store.Save(ctx, entry); err != nil {
		return domain.Entry{}, err
	}
	return entry, nil
}

// PurgeDone removes delivered entries older than DoneRetention.
func (p *OutboxProcessor) PurgeDone(ctx context.Context) (int, error) {
	return p.store.PurgeDone(ctx, p.now().Add(-DoneRetention))
}

// OutboxAdminInput carries an admin's action on an outbox entry.
type OutboxAdminInput struct {
	EntryID string
	Abandon bool
	Actor   Actor
}

// OutboxAdminDeps holds dependencies for OutboxAdminAction.
type OutboxAdminDeps struct {
	Processor  *OutboxProcessor
	AuditStore AuditStoreForRecord
	Now        func() time.Time
}

// ExecuteOutboxAdminAction retries or abandons an entry and records an audit event.
// PRE: Actor is an admin
// POST: Entry retried or abandoned; audit event recorded
func ExecuteOutboxAdminAction(ctx context.Context, input OutboxAdminInput, deps OutboxAdminDeps) (domain.Entry, error) {
	var (
		entry  domain.Entry
		err    error
		action = audit.ActionRetry
	)
	if input.Abandon {
		action = audit.ActionAbandon
		entry, err = deps.Processor.AbandonEntry(ctx, input.EntryID)
	} else {
		entry, err = deps.Processor.RetryEntry(ctx, input.EntryID)
	}
	if err != nil {
		return domain.Entry{}, err
	}

	recordAudit(ctx, deps.AuditStore, audit.New(audit.Actor(input.Actor), audit.CategorySystem, action, deps.Now()).
		On("outbox_entry", entry.ID).
		Describe("%s entry now %s", entry.ActionType, entry.Status))
	return entry, nil
}

// --- Email Executor ---

// EmailExecutor sends queued notification emails.
type EmailExecutor struct {
	Sender  emailAdapter.Sender
	BaseURL string
}

// Execute sends an email from the payload.
// PRE: payload is valid JSON matching outbox.EmailPayload
// POST: email sent via configured sender, returns message ID
// INVARIANT: outbox entry status managed by caller
func (e *EmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p domain.EmailPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.To == "" {
		return "", ErrAbandonEntry
	}
	html, err := emailAdapter.NotificationHTML(p.Subject, p.Body, p.Link, e.BaseURL)
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	res, err := e.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{p.To},
		Subject: p.Subject,
		HTML:    html,
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// --- Push Executor ---

// PushStoreForOutbox defines the subscription store interface needed by PushExecutor.
type PushStoreForOutbox interface {
	Get(ctx context.Context, id string) (push.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// PushExecutor replays failed web push deliveries.
type PushExecutor struct {
	Subscriptions PushStoreForOutbox
	Sender        pushAdapter.Sender
}

// Execute delivers the push payload to its subscription.
// PRE: payload is valid JSON matching outbox.PushPayload
// POST: push delivered; gone subscriptions are deleted and the entry abandoned
func (e *PushExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p domain.PushPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	sub, err := e.Subscriptions.Get(ctx, p.SubscriptionID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAbandonEntry, err)
	}
	err = e.Sender.Send(ctx, sub, push.Payload{Title: p.Title, Body: p.Body, URL: p.URL})
	if errors.Is(err, pushAdapter.ErrSubscriptionGone) {
		if delErr := e.Subscriptions.Delete(ctx, sub.ID); delErr != nil {
			slog.Error("push_event", "event", "delete_failed", "subscription_id", sub.ID, "error", delErr)
		}
		return "", fmt.Errorf("%w: %v", ErrAbandonEntry, err)
	}
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

// --- Background Worker ---

// StartBackgroundWorker starts a background goroutine that periodically processes pending outbox entries.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed
func StartBackgroundWorker(processor *OutboxProcessor, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := processor.ProcessPending(ctx); err != nil {
					slog.Error("outbox_background_process_failed", "error", err.Error())
				}
				if n, err := processor.PurgeDone(ctx); err != nil {
					slog.Error("outbox_background_purge_failed", "error", err.Error())
				} else if n > 0 {
					slog.Info("outbox_background_purged", "count", n)
				}
				cancel()
			case <-stopCh:
				slog.Info("outbox_background_worker_stopped")
				return
			}
		}
	}()
}
