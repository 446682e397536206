package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"whistle/internal/domain/audit"
	"whistle/internal/domain/notification"
	"whistle/internal/domain/profile"
	"whistle/internal/domain/referee"
)

// Actor identifies the profile performing an audited action.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// AuditStoreForRecord defines the audit store interface needed by audited orchestrators.
type AuditStoreForRecord interface {
	Save(ctx context.Context, e audit.Event) error
}

// ReviewVerificationInput carries an admin's decision on a pending FA number.
type ReviewVerificationInput struct {
	RefereeID string
	Approve   bool
	Note      string
	Actor     Actor
}

// ReviewDeps holds dependencies for admin review orchestrators.
type ReviewDeps struct {
	RefereeStore RefereeStoreForUpdate
	AuditStore   AuditStoreForRecord
	Notifier     NotificationSender
	Now          func() time.Time
}

// ExecuteReviewVerification approves or rejects a referee's pending FA number.
// PRE: Actor is an admin; referee verification is pending; rejection carries a note
// POST: VerificationStatus verified or rejected; audit event recorded; referee notified
func ExecuteReviewVerification(ctx context.Context, input ReviewVerificationInput, deps ReviewDeps) (referee.Profile, error) {
	if input.Actor.Role != profile.RoleAdmin {
		return referee.Profile{}, ErrForbidden
	}
	r, err := deps.RefereeStore.Get(ctx, input.RefereeID)
	if err != nil {
		return referee.Profile{}, fmt.Errorf("get referee: %w", err)
	}

	now := deps.Now()
	action := audit.ActionApprove
	if input.Approve {
		err = r.Approve(now)
	} else {
		action = audit.ActionReject
		err = r.Reject(input.Note, now)
	}
	if err != nil {
		return referee.Profile{}, err
	}
	if err := deps.RefereeStore.Save(ctx, r); err != nil {
		return referee.Profile{}, fmt.Errorf("save referee: %w", err)
	}

	recordAudit(ctx, deps.AuditStore, audit.New(audit.Actor(input.Actor), audit.CategoryVerification, action, now).
		On("referee", r.ProfileID).
		Describe("FA number %s %s", r.FANumber, r.VerificationStatus).
		Meta(map[string]string{"fa_number": r.FANumber, "note": r.ReviewNote}))

	slog.Info("verification_event", "event", "fa_number_reviewed", "referee_id", r.ProfileID, "status", r.VerificationStatus, "admin_id", input.Actor.ID)

	title := "Your FA number has been verified"
	body := "You can now be offered matches as a verified referee."
	if !input.Approve {
		title = "Your FA number could not be verified"
		body = r.ReviewNote
	}
	notify(ctx, deps.Notifier, NotifyInput{
		UserID: r.ProfileID,
		Type:   notification.TypeVerificationResult,
		Title:  title,
		Body:   body,
		Link:   "/profile/referee",
	})
	return r, nil
}

// SetComplianceInput carries an admin's compliance decision.
type SetComplianceInput struct {
	RefereeID string
	Status    string
	Actor     Actor
}

// ExecuteSetComplianceStatus sets a referee's compliance status.
// PRE: Actor is an admin; Status is a valid compliance status
// POST: ComplianceStatus updated; audit event recorded; referee notified
func ExecuteSetComplianceStatus(ctx context.Context, input SetComplianceInput, deps ReviewDeps) (referee.Profile, error) {
	if input.Actor.Role != profile.RoleAdmin {
		return referee.Profile{}, ErrForbidden
	}
	r, err := deps.RefereeStore.Get(ctx, input.RefereeID)
	if err != nil {
		return referee.Profile{}, fmt.Errorf("get referee: %w", err)
	}
	previous := r.ComplianceStatus

	now := deps.Now()
	if err := r.SetCompliance(input.Status, now); err != nil {
		return referee.Profile{}, err
	}
	if err := deps.RefereeStore.Save(ctx, r); err != nil {
		return referee.Profile{}, fmt.Errorf("save referee: %w", err)
	}

	event := audit.New(audit.Actor(input.Actor), audit.CategoryCompliance, audit.ActionUpdate, now).
		On("referee", r.ProfileID).
		Describe("compliance %s -> %s", previous, r.ComplianceStatus).
		Meta(map[string]string{"from": previous, "to": r.ComplianceStatus})
	if r.ComplianceStatus == referee.ComplianceExpired {
		event = event.Warning()
	}
	recordAudit(ctx, deps.AuditStore, event)

	slog.Info("verification_event", "event", "compliance_set", "referee_id", r.ProfileID, "status", r.ComplianceStatus, "admin_id", input.Actor.ID)

	notify(ctx, deps.Notifier, NotifyInput{
		UserID: r.ProfileID,
		Type:   notification.TypeComplianceUpdated,
		Title:  "Compliance status updated",
		Body:   "Your compliance status is now " + r.ComplianceStatus + ".",
		Link:   "/profile/referee",
	})
	return r, nil
}

// recordAudit saves e. Audit failures are logged and do not fail the action.
func recordAudit(ctx context.Context, store AuditStoreForRecord, e audit.Event) {
	if store == nil {
		return
	}
	if err := store.Save(ctx, e); err != nil {
		slog.Error("audit_event", "event", "save_failed", "category", e.Category, "action", e.Action, "error", err)
	}
}
