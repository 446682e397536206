package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"whistle/internal/domain/availability"
)

// AvailabilityStoreForSet defines the store interface needed by availability edits.
type AvailabilityStoreForSet interface {
	ReplaceWeekly(ctx context.Context, refereeID string, slots []availability.WeeklySlot) error
	ReplaceDates(ctx context.Context, refereeID string, slots []availability.DateSlot) error
}

// WeeklySlotInput is one recurring window.
type WeeklySlotInput struct {
	DayOfWeek int
	StartTime string
	EndTime   string
}

// DateSlotInput is one dated window.
type DateSlotInput struct {
	Date      string
	StartTime string
	EndTime   string
}

// SetWeeklyAvailabilityInput carries the full replacement weekly calendar.
type SetWeeklyAvailabilityInput struct {
	RefereeID string
	Slots     []WeeklySlotInput
}

// SetDateAvailabilityInput carries the full replacement set of dated slots.
type SetDateAvailabilityInput struct {
	RefereeID string
	Slots     []DateSlotInput
}

// SetAvailabilityDeps holds dependencies for availability edits.
type SetAvailabilityDeps struct {
	AvailabilityStore AvailabilityStoreForSet
	Location          *time.Location
	GenerateID        func() string
	Now               func() time.Time
}

// ExecuteSetWeeklyAvailability replaces the referee's weekly slots wholesale.
// PRE: every slot has a valid day and start < end
// POST: Stored weekly slots equal input.Slots
func ExecuteSetWeeklyAvailability(ctx context.Context, input SetWeeklyAvailabilityInput, deps SetAvailabilityDeps) ([]availability.WeeklySlot, error) {
	if input.RefereeID == "" {
		return nil, availability.ErrEmptyRefereeID
	}
	if len(input.Slots) > availability.MaxSlotsPerReferee {
		return nil, availability.ErrTooManySlots
	}
	slots := make([]availability.WeeklySlot, 0, len(input.Slots))
	for i, in := range input.Slots {
		s := availability.WeeklySlot{
			ID:        deps.GenerateID(),
			RefereeID: input.RefereeID,
			DayOfWeek: in.DayOfWeek,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i+1, err)
		}
		slots = append(slots, s)
	}
	if err := deps.AvailabilityStore.ReplaceWeekly(ctx, input.RefereeID, slots); err != nil {
		return nil, fmt.Errorf("replace weekly availability: %w", err)
	}

	slog.Info("availability_event", "event", "weekly_replaced", "referee_id", input.RefereeID, "slots", len(slots))
	return slots, nil
}

// ExecuteSetDateAvailability deletes and reinserts all dated slots for the referee.
// PRE: every slot is today or later in Location and start < end
// POST: Stored date slots equal input.Slots
func ExecuteSetDateAvailability(ctx context.Context, input SetDateAvailabilityInput, deps SetAvailabilityDeps) ([]availability.DateSlot, error) {
	if input.RefereeID == "" {
		return nil, availability.ErrEmptyRefereeID
	}
	if len(input.Slots) > availability.MaxSlotsPerReferee {
		return nil, availability.ErrTooManySlots
	}
	today := localToday(deps.Now(), deps.Location)
	slots := make([]availability.DateSlot, 0, len(input.Slots))
	for i, in := range input.Slots {
		s := availability.DateSlot{
			ID:        deps.GenerateID(),
			RefereeID: input.RefereeID,
			Date:      in.Date,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
		}
		if err := s.Validate(today); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i+1, err)
		}
		slots = append(slots, s)
	}
	if err := deps.AvailabilityStore.ReplaceDates(ctx, input.RefereeID, slots); err != nil {
		return nil, fmt.Errorf("replace date availability: %w", err)
	}

	slog.Info("availability_event", "event", "dates_replaced", "referee_id", input.RefereeID, "slots", len(slots))
	return slots, nil
}
