package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"whistle/internal/adapters/ical"
	"whistle/internal/application/listutil"
	"whistle/internal/application/orchestrators"
	"whistle/internal/application/projections"
	"whistle/internal/domain/booking"
)

type bookingRequest struct {
	MatchDate    string `json:"match_date"`
	KickoffTime  string `json:"kickoff_time"`
	GroundName   string `json:"ground_name"`
	Postcode     string `json:"postcode"`
	County       string `json:"county"`
	HomeTeam     string `json:"home_team"`
	AwayTeam     string `json:"away_team"`
	Format       string `json:"format"`
	AgeGroup     string `json:"age_group"`
	BudgetPence  int    `json:"budget_pence"`
	Notes        string `json:"notes"`
	CentralVenue bool   `json:"central_venue"`
}

func (b bookingRequest) fields() orchestrators.BookingFields {
	return orchestrators.BookingFields(b)
}

// handleCreateBooking handles POST /api/bookings.
func handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req bookingRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	b, err := orchestrators.ExecuteCreateBooking(r.Context(), orchestrators.CreateBookingInput{
		CoachID:       sess.ProfileID,
		BookingFields: req.fields(),
	}, orchestrators.CreateBookingDeps{
		BookingStore: stores.Bookings,
		Events:       app.Events,
		Location:     app.Location,
		GenerateID:   generateID,
		Now:          timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// handleUpdateBooking handles PUT /api/bookings/{id} while the booking is still open.
func handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req bookingRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	b, err := orchestrators.ExecuteUpdateBooking(r.Context(), orchestrators.UpdateBookingInput{
		BookingID:     chi.URLParam(r, "id"),
		ActorID:       sess.ProfileID,
		BookingFields: req.fields(),
	}, orchestrators.UpdateBookingDeps{
		BookingStore: stores.Bookings,
		Location:     app.Location,
		Now:          timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func listBookingsQuery(r *http.Request, profileID string) projections.ListBookingsQuery {
	q := r.URL.Query()
	page := listutil.ParsePageParams(q)
	upcoming, _ := strconv.ParseBool(q.Get("upcoming"))
	return projections.ListBookingsQuery{
		ProfileID: profileID,
		Status:    q.Get("status"),
		Upcoming:  upcoming,
		Limit:     page.PerPage,
		Offset:    (page.Page - 1) * page.PerPage,
	}
}

func listBookingsDeps() projections.ListBookingsDeps {
	return projections.ListBookingsDeps{BookingStore: stores.Bookings, Location: app.Location, Now: timeNow}
}

// handleListCoachBookings handles GET /api/bookings?status=&upcoming=&page=&per_page=.
func handleListCoachBookings(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	bookings, err := projections.QueryListCoachBookings(r.Context(), listBookingsQuery(r, sess.ProfileID), listBookingsDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// handleListAssignedBookings handles GET /api/referee/bookings.
func handleListAssignedBookings(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	bookings, err := projections.QueryListAssignedBookings(r.Context(), listBookingsQuery(r, sess.ProfileID), listBookingsDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

type bookingDetail struct {
	projections.GetBookingResult
	CalendarURL string `json:"calendar_url,omitempty"`
}

func getBookingFor(r *http.Request) (projections.GetBookingResult, error) {
	return projections.QueryGetBooking(r.Context(), projections.GetBookingQuery{
		BookingID: chi.URLParam(r, "id"),
		Viewer:    viewerOf(currentSession(r)),
	}, projections.GetBookingDeps{
		BookingStore: stores.Bookings,
		OfferStore:   stores.Offers,
		ThreadStore:  stores.Threads,
	})
}

// handleGetBooking handles GET /api/bookings/{id}.
func handleGetBooking(w http.ResponseWriter, r *http.Request) {
	result, err := getBookingFor(r)
	if err != nil {
		handleError(w, err)
		return
	}
	detail := bookingDetail{GetBookingResult: result}
	if projections.CanViewCalendar(result, viewerOf(currentSession(r))) {
		detail.CalendarURL = fmt.Sprintf("/api/bookings/%s/calendar.ics", result.Booking.ID)
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleBookingCalendar handles GET /api/bookings/{id}/calendar.ics.
func handleBookingCalendar(w http.ResponseWriter, r *http.Request) {
	result, err := getBookingFor(r)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := projections.CalendarAccess(result, viewerOf(currentSession(r))); err != nil {
		handleError(w, err)
		return
	}
	link := strings.TrimRight(app.BaseURL, "/") + "/bookings/" + result.Booking.ID
	body, err := ical.BookingEvent(result.Booking, app.Location, timeNow(), link)
	if err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ical.Filename(result.Booking)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

type sendOffersResponse struct {
	Booking    booking.Booking `json:"booking"`
	OfferIDs   []string        `json:"offer_ids"`
	RefereeIDs []string        `json:"referee_ids"`
}

// handleSendOffers handles POST /api/bookings/{id}/send-offers.
func handleSendOffers(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	result, err := orchestrators.ExecuteSendBookingOffers(r.Context(), orchestrators.SendOffersInput{
		BookingID: chi.URLParam(r, "id"),
		ActorID:   sess.ProfileID,
	}, orchestrators.SendOffersDeps{
		BookingStore:      stores.Bookings,
		AvailabilityStore: stores.Availability,
		OfferStore:        stores.Offers,
		Notifier:          app.Notifier,
		Events:            app.Events,
		GenerateID:        generateID,
		Now:               timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	resp := sendOffersResponse{Booking: result.Booking, OfferIDs: result.OfferIDs, RefereeIDs: result.RefereeIDs}
	if resp.OfferIDs == nil {
		resp.OfferIDs = []string{}
		resp.RefereeIDs = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type requestRefereeRequest struct {
	RefereeID string `json:"referee_id"`
}

// handleRequestReferee handles POST /api/bookings/{id}/request-referee.
func handleRequestReferee(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req requestRefereeRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	o, err := orchestrators.ExecuteRequestReferee(r.Context(), orchestrators.RequestRefereeInput{
		BookingID: chi.URLParam(r, "id"),
		ActorID:   sess.ProfileID,
		RefereeID: req.RefereeID,
	}, orchestrators.RequestRefereeDeps{
		BookingStore: stores.Bookings,
		RefereeStore: stores.Referees,
		OfferStore:   stores.Offers,
		Notifier:     app.Notifier,
		Events:       app.Events,
		GenerateID:   generateID,
		Now:          timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// handleSearchReferees handles GET /api/bookings/{id}/available-referees?county=&central_venue=&limit=.
func handleSearchReferees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	central, _ := strconv.ParseBool(q.Get("central_venue"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	result, err := projections.QuerySearchAvailableReferees(r.Context(), projections.SearchAvailableRefereesQuery{
		BookingID:        chi.URLParam(r, "id"),
		Viewer:           viewerOf(currentSession(r)),
		County:           q.Get("county"),
		CentralVenueOnly: central,
		Limit:            limit,
	}, projections.SearchAvailableRefereesDeps{
		BookingStore:      stores.Bookings,
		AvailabilityStore: stores.Availability,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListRefereeOffers handles GET /api/referee/offers?status=sent,declined.
func handleListRefereeOffers(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	q := r.URL.Query()
	page := listutil.ParsePageParams(q)
	var statuses []string
	for s := range strings.SplitSeq(q.Get("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}
	items, err := projections.QueryListRefereeOffers(r.Context(), projections.ListRefereeOffersQuery{
		RefereeID: sess.ProfileID,
		Statuses:  statuses,
		Limit:     page.PerPage,
		Offset:    (page.Page - 1) * page.PerPage,
	}, projections.ListRefereeOffersDeps{OfferStore: stores.Offers})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type respondOfferRequest struct {
	Price string `json:"price"`
	Note  string `json:"note"`
}

func respondOfferDeps() orchestrators.RespondOfferDeps {
	return orchestrators.RespondOfferDeps{
		OfferStore:   stores.Offers,
		BookingStore: stores.Bookings,
		Notifier:     app.Notifier,
		Events:       app.Events,
		Now:          timeNow,
	}
}

// handleAcceptOffer handles POST /api/offers/{id}/accept with the referee's price in pounds.
func handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req respondOfferRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	o, err := orchestrators.ExecuteAcceptOffer(r.Context(), orchestrators.RespondOfferInput{
		OfferID:   chi.URLParam(r, "id"),
		RefereeID: sess.ProfileID,
		Price:     req.Price,
		Note:      req.Note,
	}, respondOfferDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// handleDeclineOffer handles POST /api/offers/{id}/decline. The body is optional.
func handleDeclineOffer(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req respondOfferRequest
	if r.ContentLength > 0 && !decodeOrReject(w, r, &req) {
		return
	}
	o, err := orchestrators.ExecuteDeclineOffer(r.Context(), orchestrators.RespondOfferInput{
		OfferID:   chi.URLParam(r, "id"),
		RefereeID: sess.ProfileID,
		Note:      req.Note,
	}, respondOfferDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type confirmOfferResponse struct {
	Booking    booking.Booking    `json:"booking"`
	Assignment booking.Assignment `json:"assignment"`
	ThreadID   string             `json:"thread_id"`
}

// handleConfirmOffer handles POST /api/offers/{id}/confirm.
func handleConfirmOffer(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	result, err := orchestrators.ExecuteConfirmOffer(r.Context(), orchestrators.ConfirmOfferInput{
		OfferID: chi.URLParam(r, "id"),
		ActorID: sess.ProfileID,
	}, orchestrators.ConfirmOfferDeps{
		OfferStore:        stores.Offers,
		BookingStore:      stores.Bookings,
		ThreadStore:       stores.Threads,
		AvailabilityStore: stores.Availability,
		Notifier:          app.Notifier,
		Events:            app.Events,
		GenerateID:        generateID,
		Now:               timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmOfferResponse{
		Booking:    result.Booking,
		Assignment: result.Assignment,
		ThreadID:   result.Thread.ID,
	})
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

// handleCancelBooking handles POST /api/bookings/{id}/cancel by the coach or the assigned referee.
func handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req cancelBookingRequest
	if r.ContentLength > 0 && !decodeOrReject(w, r, &req) {
		return
	}
	b, err := orchestrators.ExecuteCancelBooking(r.Context(), orchestrators.CancelBookingInput{
		BookingID:  chi.URLParam(r, "id"),
		ActorID:    sess.ProfileID,
		ActorEmail: sess.Email,
		ActorRole:  sess.Role,
		Reason:     req.Reason,
	}, orchestrators.CancelBookingDeps{
		BookingStore: stores.Bookings,
		AuditStore:   stores.Audit,
		Notifier:     app.Notifier,
		Events:       app.Events,
		Now:          timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleCompleteBooking handles POST /api/bookings/{id}/complete once the match has been played.
func handleCompleteBooking(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	b, err := orchestrators.ExecuteCompleteBooking(r.Context(), orchestrators.CompleteBookingInput{
		BookingID: chi.URLParam(r, "id"),
		ActorID:   sess.ProfileID,
		ActorRole: sess.Role,
	}, orchestrators.CompleteBookingDeps{
		BookingStore: stores.Bookings,
		Notifier:     app.Notifier,
		Events:       app.Events,
		Location:     app.Location,
		Now:          timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
