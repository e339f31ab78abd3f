package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

func (a *API) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	sessionCookie, err := r.Cookie("session")
	if err != nil {
		http.Error(w, "No session cookie was provided", http.StatusUnauthorized)
		return
	}

	sessionID, err := uuid.Parse(sessionCookie.Value)
	if err != nil {
		http.Error(w, "Session cookie is in improper format", http.StatusBadRequest)
		return
	}

	// redeem the one-shot ticket issued by NewSession; a session id can open
	// exactly one connection
	ticket, err := a.kv.GetDel(sessionTicketKey(sessionID))
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	if ticket == "" {
		http.Error(w, "Session is unknown or already connected", http.StatusUnauthorized)
		return
	}

	a.hub.HandleClient(w, r, userID, sessionID)
}
