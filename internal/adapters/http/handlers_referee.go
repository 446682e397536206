package web

import (
	"net/http"

	"whistle/internal/application/orchestrators"
	"whistle/internal/application/projections"
)

type refereeProfileRequest struct {
	County            string `json:"county"`
	TravelRadiusKm    int    `json:"travel_radius_km"`
	CentralVenueOptIn bool   `json:"central_venue_opt_in"`
	Level             string `json:"level"`
}

func refereeProfileDeps() orchestrators.RefereeProfileDeps {
	return orchestrators.RefereeProfileDeps{RefereeStore: stores.Referees, Now: timeNow}
}

// handleUpdateRefereeProfile handles PUT /api/referee/profile.
func handleUpdateRefereeProfile(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req refereeProfileRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	p, err := orchestrators.ExecuteUpdateRefereeProfile(r.Context(), orchestrators.UpdateRefereeProfileInput{
		RefereeID:         sess.ProfileID,
		County:            req.County,
		TravelRadiusKm:    req.TravelRadiusKm,
		CentralVenueOptIn: req.CentralVenueOptIn,
		Level:             req.Level,
	}, refereeProfileDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type faNumberRequest struct {
	FANumber string `json:"fa_number"`
}

// handleSubmitFANumber handles POST /api/referee/fa-number. The referee returns to pending review.
func handleSubmitFANumber(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req faNumberRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	p, err := orchestrators.ExecuteSubmitFANumber(r.Context(), orchestrators.SubmitFANumberInput{
		RefereeID: sess.ProfileID,
		FANumber:  req.FANumber,
	}, refereeProfileDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleGetAvailability handles GET /api/referee/availability.
func handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	result, err := projections.QueryGetAvailability(r.Context(), sess.ProfileID, projections.GetAvailabilityDeps{
		AvailabilityStore: stores.Availability,
		Location:          app.Location,
		Now:               timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type weeklySlot struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type dateSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func setAvailabilityDeps() orchestrators.SetAvailabilityDeps {
	return orchestrators.SetAvailabilityDeps{
		AvailabilityStore: stores.Availability,
		Location:          app.Location,
		GenerateID:        generateID,
		Now:               timeNow,
	}
}

// handleSetWeeklyAvailability handles PUT /api/referee/availability/weekly.
// The submitted slots replace the whole weekly pattern.
func handleSetWeeklyAvailability(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req struct {
		Slots []weeklySlot `json:"slots"`
	}
	if !decodeOrReject(w, r, &req) {
		return
	}
	input := orchestrators.SetWeeklyAvailabilityInput{RefereeID: sess.ProfileID}
	for _, s := range req.Slots {
		input.Slots = append(input.Slots, orchestrators.WeeklySlotInput(s))
	}
	slots, err := orchestrators.ExecuteSetWeeklyAvailability(r.Context(), input, setAvailabilityDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// handleSetDateAvailability handles PUT /api/referee/availability/dates.
// The submitted slots replace all of the referee's dated slots.
func handleSetDateAvailability(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req struct {
		Slots []dateSlot `json:"slots"`
	}
	if !decodeOrReject(w, r, &req) {
		return
	}
	input := orchestrators.SetDateAvailabilityInput{RefereeID: sess.ProfileID}
	for _, s := range req.Slots {
		input.Slots = append(input.Slots, orchestrators.DateSlotInput(s))
	}
	slots, err := orchestrators.ExecuteSetDateAvailability(r.Context(), input, setAvailabilityDeps())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}
