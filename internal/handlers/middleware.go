package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type SessionIDKeyType struct{}
type UserIDKeyType struct{}

// SessionVerifier requires a session cookie backed by a live WebSocket
// connection; handlers behind it bind feed subscriptions to that session.
func (a *API) SessionVerifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionCookie, err := r.Cookie("session")
		if err != nil {
			a.sugar.Debug(err)
			switch {
			case errors.Is(err, http.ErrNoCookie):
				http.Error(w, "No session cookie was provided", http.StatusUnauthorized)
			default:
				http.Error(w, "Couldn't read session cookie", http.StatusInternalServerError)
			}
			return
		}

		sessionID, err := uuid.Parse(sessionCookie.Value)
		if err != nil {
			a.sugar.Error(err)
			http.Error(w, "Session cookie is in improper format", http.StatusBadRequest)
			return
		}

		_, exists := a.hub.GetClient(sessionID)
		if exists {
			ctx := context.WithValue(r.Context(), SessionIDKeyType{}, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		} else {
			http.Error(w, "You are not connected to websocket", http.StatusUnauthorized)
			return
		}
	})
}

// UserVerifier authenticates the JWT cookie and passes the user id down via
// context. Identity is all this core wants from auth; everything else is the
// auth collaborator's business.
func (a *API) UserVerifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwtCookie, err := r.Cookie("JWT")
		if err != nil {
			a.sugar.Debug(err)
			switch {
			case errors.Is(err, http.ErrNoCookie):
				http.Error(w, "No jwt cookie was provided", http.StatusUnauthorized)
			default:
				http.Error(w, "Couldn't read jwt cookie", http.StatusInternalServerError)
			}
			return
		}

		userToken, err := a.tokens.Verify(jwtCookie.Value)
		if err != nil {
			a.sugar.Debug(err)
			http.Error(w, "Couldn't verify JWT", http.StatusBadRequest)
			return
		}

		expired := time.Now().UTC().After(userToken.ExpiresAt.UTC())
		if expired {
			http.Error(w, "Login expired", http.StatusUnauthorized)
			return
		}

		// check if user exists, cached to spare the database on every request
		key := fmt.Sprintf("user_exists:%d", userToken.UserID)

		userFound := false

		value, err := a.kv.Get(key)
		if err != nil {
			a.sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}

		if value == "" { // user isn't cached
			_, dbErr := a.store.UserByID(r.Context(), userToken.UserID)
			if dbErr == nil {
				userFound = true
				err = a.kv.Set(key, "y", 15*time.Minute)
				if err != nil {
					a.sugar.Error(err)
					http.Error(w, "", http.StatusInternalServerError)
					return
				}
			}
		} else {
			userFound = true
		}

		// a stale JWT for a deleted user gets cleared from the client
		if !userFound {
			deleteJwtCookie := &http.Cookie{
				Name:     "JWT",
				Value:    "",
				Path:     "/",
				Expires:  time.Unix(0, 0),
				HttpOnly: true,
			}

			http.SetCookie(w, deleteJwtCookie)
			http.Error(w, "", http.StatusUnauthorized)
			return
		}

		// renew JWT and cookie
		timeSinceLast := time.Now().UTC().Sub(userToken.IssuedAt.Time)

		if timeSinceLast >= 15*time.Minute {
			updatedCookie, err := a.tokens.Create(userToken.Remember, userToken.UserID)
			if err != nil {
				a.sugar.Error(err)
				http.Error(w, "Couldn't renew cookie", http.StatusInternalServerError)
				return
			}

			http.SetCookie(w, &updatedCookie)
		}

		ctx := context.WithValue(r.Context(), UserIDKeyType{}, userToken.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(r *http.Request) int64 {
	return r.Context().Value(UserIDKeyType{}).(int64)
}

func sessionIDFrom(r *http.Request) uuid.UUID {
	return r.Context().Value(SessionIDKeyType{}).(uuid.UUID)
}
