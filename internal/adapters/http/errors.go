package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"whistle/internal/adapters/storage"
	"whistle/internal/application/orchestrators"
	"whistle/internal/application/projections"
	"whistle/internal/domain/availability"
	"whistle/internal/domain/booking"
	"whistle/internal/domain/message"
	"whistle/internal/domain/notification"
	"whistle/internal/domain/offer"
	"whistle/internal/domain/outbox"
	"whistle/internal/domain/profile"
	"whistle/internal/domain/push"
	"whistle/internal/domain/referee"
)

// errorStatus pairs sentinel errors with the HTTP status they surface as.
// Anything not listed is treated as an internal error.
var errorStatus = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{storage.ErrNotFound}},
	{http.StatusUnauthorized, []error{orchestrators.ErrInvalidCredentials}},
	{http.StatusForbidden, []error{
		projections.ErrNotVisible,
		orchestrators.ErrForbidden,
		orchestrators.ErrAccountLocked,
		orchestrators.ErrSelfRegisterAdmin,
		booking.ErrNotBookingOwner,
		booking.ErrNotBookingReferee,
		booking.ErrNotBookingParty,
		booking.ErrCancelNotPermitted,
		offer.ErrNotOfferHolder,
		message.ErrNotParticipant,
	}},
	{http.StatusConflict, []error{
		booking.ErrNotOpen,
		booking.ErrNotConfirmed,
		booking.ErrAlreadyClosed,
		booking.ErrAlreadyAssigned,
		booking.ErrMatchNotPlayed,
		offer.ErrNotSent,
		offer.ErrNotPriced,
		offer.ErrDuplicate,
		orchestrators.ErrEmailAlreadyExists,
		referee.ErrNotPendingReview,
		referee.ErrAlreadyVerified,
		outbox.ErrNotRetryable,
		outbox.ErrAlreadyTerminal,
	}},
	{http.StatusBadRequest, []error{
		profile.ErrEmptyEmail, profile.ErrInvalidEmail, profile.ErrEmailTooLong, profile.ErrInvalidRole,
		profile.ErrFullNameTooLong, profile.ErrPhoneTooLong, profile.ErrEmptyPassword,
		profile.ErrPasswordTooShort, profile.ErrWrongPassword,
		orchestrators.ErrCurrentPasswordWrong, orchestrators.ErrNewPasswordSame, orchestrators.ErrPasswordFieldsEmpty,
		referee.ErrEmptyProfileID, referee.ErrInvalidFANumber, referee.ErrInvalidRadius, referee.ErrInvalidLevel,
		referee.ErrInvalidCompliance, referee.ErrReviewNoteTooLong, referee.ErrRejectionNeedsNote, referee.ErrCountyTooLong,
		availability.ErrEmptyRefereeID, availability.ErrInvalidDay, availability.ErrInvalidTime,
		availability.ErrEndBeforeStart, availability.ErrInvalidDate, availability.ErrDateInPast, availability.ErrTooManySlots,
		booking.ErrEmptyCoachID, booking.ErrInvalidDate, booking.ErrDateInPast, booking.ErrInvalidKickoff,
		booking.ErrInvalidFormat, booking.ErrNegativeBudget, booking.ErrEmptyGround, booking.ErrEmptyPostcode,
		booking.ErrEmptyTeams, booking.ErrTeamTooLong, booking.ErrGroundTooLong, booking.ErrNotesTooLong, booking.ErrReasonTooLong,
		offer.ErrEmptyBookingID, offer.ErrEmptyRefereeID, offer.ErrInvalidPrice, offer.ErrPriceTooHigh, offer.ErrNoteTooLong,
		message.ErrEmptyThreadID, message.ErrEmptySenderID, message.ErrEmptyBody, message.ErrBodyTooLong, message.ErrInvalidKind,
		notification.ErrEmptyUserID, notification.ErrEmptyType, notification.ErrEmptyTitle, notification.ErrTitleTooLong,
		push.ErrEmptyProfileID, push.ErrInvalidEndpoint, push.ErrMissingKeys,
		outbox.ErrEmptyActionType, outbox.ErrUnknownActionType, outbox.ErrEmptyPayload,
	}},
}

// statusFor returns the HTTP status for err, or 0 when err is unexpected.
func statusFor(err error) int {
	for _, group := range errorStatus {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return 0
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode_response_failed", "error", err.Error())
	}
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleError maps known domain errors to client statuses and everything else to 500.
func handleError(w http.ResponseWriter, err error) {
	if status := statusFor(err); status != 0 {
		writeError(w, status, err.Error())
		return
	}
	internalError(w, err)
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// badRequest reports a malformed request body or query.
func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}
