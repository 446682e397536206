package web

import (
	"net/http"

	"github.com/gorilla/csrf"

	"whistle/internal/adapters/http/middleware"
	"whistle/internal/application/orchestrators"
	"whistle/internal/application/projections"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Postcode string `json:"postcode"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	ProfileID string `json:"profile_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FullName  string `json:"full_name"`
}

// handleCSRFToken handles GET /api/csrf for clients that submit forms.
func handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-CSRF-Token", csrf.Token(r))
	writeJSON(w, http.StatusOK, map[string]string{"token": csrf.Token(r)})
}

// handleRegister handles POST /api/auth/register and signs the new profile in.
func handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if isFormRequest(r) {
		if err := r.ParseForm(); err != nil {
			badRequest(w, "invalid form submission")
			return
		}
		req = registerRequest{
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
			Role:     r.FormValue("role"),
			FullName: r.FormValue("full_name"),
			Phone:    r.FormValue("phone"),
			Postcode: r.FormValue("postcode"),
		}
	} else if !decodeOrReject(w, r, &req) {
		return
	}

	p, err := orchestrators.ExecuteRegister(r.Context(), orchestrators.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		FullName: req.FullName,
		Phone:    req.Phone,
		Postcode: req.Postcode,
	}, orchestrators.RegisterDeps{
		ProfileStore: stores.Profiles,
		RefereeStore: stores.Referees,
		GenerateID:   generateID,
		Now:          timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	token, err := sessions.Create(p.ID, p.Email, p.Role, p.FullName)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, sessionResponse{ProfileID: p.ID, Email: p.Email, Role: p.Role, FullName: p.FullName})
}

// handleLogin handles POST /api/auth/login.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isFormRequest(r) {
		if err := r.ParseForm(); err != nil {
			badRequest(w, "invalid form submission")
			return
		}
		req = loginRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
	} else if !decodeOrReject(w, r, &req) {
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, orchestrators.LoginDeps{
		ProfileStore: stores.Profiles,
		AuditStore:   stores.Audit,
		Now:          timeNow,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	token, err := sessions.Create(result.ProfileID, result.Email, result.Role, result.FullName)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)
	writeJSON(w, http.StatusOK, sessionResponse(result))
}

// handleLogout handles POST /api/auth/logout.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleGetMe handles GET /api/me.
func handleGetMe(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	result, err := projections.QueryGetMe(r.Context(), sess.ProfileID, projections.GetMeDeps{
		ProfileStore: stores.Profiles,
		RefereeStore: stores.Referees,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type updateMeRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Postcode string `json:"postcode"`
}

// handleUpdateMe handles PUT /api/me.
func handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req updateMeRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	p, err := orchestrators.ExecuteUpdateProfile(r.Context(), orchestrators.UpdateProfileInput{
		ProfileID: sess.ProfileID,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Postcode:  req.Postcode,
	}, orchestrators.UpdateProfileDeps{ProfileStore: stores.Profiles})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// handleChangePassword handles POST /api/me/password.
// Every session of the profile is ended and a fresh one issued to the caller.
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	var req changePasswordRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.NewPassword {
		badRequest(w, "new passwords do not match")
		return
	}

	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		ProfileID:       sess.ProfileID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}, orchestrators.UpdateProfileDeps{ProfileStore: stores.Profiles})
	if err != nil {
		handleError(w, err)
		return
	}

	sessions.DeleteProfile(sess.ProfileID)
	token, err := sessions.Create(sess.ProfileID, sess.Email, sess.Role, sess.FullName)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)
	w.WriteHeader(http.StatusNoContent)
}
