package handlers

import (
	"encoding/json"
	"net/http"

	"sagechat-backend/internal/membership"
	"sagechat-backend/internal/models"
)

// GetMemberList returns the full member profiles of a channel. Unlike the
// directory metadata, the member list is only visible to members.
func (a *API) GetMemberList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	channelID, ok := a.channelIDParam(w, r)
	if !ok {
		return
	}

	channel, err := a.store.Channel(r.Context(), channelID)
	if err != nil {
		a.channelError(w, err)
		return
	}
	if !membership.CanRead(userID, &channel) {
		a.channelError(w, membership.ErrNotAMember)
		return
	}

	users := []models.User{}
	for _, memberID := range channel.Members {
		user, err := a.store.UserByID(r.Context(), memberID)
		if err != nil {
			a.sugar.Error(err)
			continue
		}
		user.Password = nil
		users = append(users, user)
	}

	err = json.NewEncoder(w).Encode(users)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
}
