package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"sagechat-backend/internal/models"
	rules "sagechat-backend/internal/validator"
)

func (a *API) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	paramUserID := r.URL.Query().Get("userID")
	if paramUserID == "" {
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	var requestedUserID int64

	if paramUserID == "self" {
		requestedUserID = userID
	} else {
		var err error
		requestedUserID, err = strconv.ParseInt(paramUserID, 10, 64)
		if err != nil {
			http.Error(w, "", http.StatusBadRequest)
			return
		}
	}

	user, err := a.store.UserByID(r.Context(), requestedUserID)
	if err != nil {
		a.channelError(w, err)
		return
	}

	user.Password = nil
	err = json.NewEncoder(w).Encode(user)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
}

func (a *API) UpdateUserInfo(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	name := r.URL.Query().Get("name")
	if name != "" {
		err := a.store.UpdateUserProfile(r.Context(), userID, name, rules.AvatarInitials(name))
		if err != nil {
			a.sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
	}

	status := r.URL.Query().Get("status")
	if status != "" {
		switch status {
		case models.StatusOnline, models.StatusOffline, models.StatusAway:
		default:
			http.Error(w, "Invalid status", http.StatusBadRequest)
			return
		}

		err := a.store.SetUserStatus(r.Context(), userID, status, false)
		if err != nil {
			a.sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
	}
}
