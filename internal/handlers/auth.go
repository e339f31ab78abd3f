package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sagechat-backend/internal/models"
	"sagechat-backend/internal/store"
	rules "sagechat-backend/internal/validator"
)

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	type Login struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var login Login
	err := json.NewDecoder(r.Body).Decode(&login)
	if err != nil {
		a.sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	user, err := a.store.UserByUsername(r.Context(), strings.ToLower(strings.TrimSpace(login.Username)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "", http.StatusUnauthorized)
		} else {
			a.sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
		}
		return
	}

	err = bcrypt.CompareHashAndPassword(user.Password, []byte(login.Password))
	if err != nil {
		a.sugar.Debug(err)
		http.Error(w, "", http.StatusUnauthorized)
		return
	}

	err = a.store.SetUserStatus(r.Context(), user.ID, models.StatusOnline, true)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	cookie, err := a.tokens.Create(r.URL.Query().Get("rememberMe") == "true", user.ID)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &cookie)

	user.Status = models.StatusOnline
	err = json.NewEncoder(w).Encode(user)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var registerErrors = make(map[string]string)

	type Registration struct {
		Username        string `json:"username" validate:"required"`
		Name            string `json:"name" validate:"required"`
		Password        string `json:"password" validate:"eqfield=ConfirmPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}

	var registration Registration
	err := json.NewDecoder(r.Body).Decode(&registration)
	if err != nil {
		a.sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	err = a.validate.Struct(registration)
	if err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			for _, e := range validateErrs {
				registerErrors[e.Field()] = e.Tag()
			}
		} else {
			a.sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
	}

	username := strings.ToLower(strings.TrimSpace(registration.Username))
	if err := rules.Username(username); err != nil {
		registerErrors["Username"] = err.Error()
	}
	if err := rules.Password(registration.Password); err != nil {
		registerErrors["Password"] = err.Error()
	}

	if len(registerErrors) > 0 {
		// sends back 400 with the form field errors
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(registerErrors)
		if encodeErr != nil {
			a.sugar.Error(encodeErr)
			http.Error(w, "", http.StatusInternalServerError)
		}
		return
	}

	if _, err := a.store.UserByUsername(r.Context(), username); err == nil {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"Username": "taken"})
		return
	}

	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(registration.Password), 12)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Username:       username,
		Name:           strings.TrimSpace(registration.Name),
		AvatarInitials: rules.AvatarInitials(registration.Name),
		Status:         models.StatusOffline,
		Password:       passwordBytes,
	}

	created, err := a.store.CreateUser(r.Context(), user)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	err = json.NewEncoder(w).Encode(created)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	err := a.store.SetUserStatus(r.Context(), userID, models.StatusOffline, false)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	deleteJwtCookie := &http.Cookie{
		Name:     "JWT",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}
	http.SetCookie(w, deleteJwtCookie)
}

// sessionTicketTTL is how long an issued session id stays redeemable for a
// WebSocket connection.
const sessionTicketTTL = time.Minute

func sessionTicketKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session_ticket:%s", sessionID)
}

// NewSession hands the client a fresh session id to connect the WebSocket
// with. Feed subscriptions hang off the session, not the user, so two tabs
// get independent streams. The id is also stored as a one-shot ticket; only
// ids issued here can open a connection, and each at most once.
func (a *API) NewSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.NewV7()
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	err = a.kv.Set(sessionTicketKey(sessionID), "y", sessionTicketTTL)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	sessionCookie := http.Cookie{
		Name:     "session",
		Value:    sessionID.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.isHttps,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, &sessionCookie)
}
