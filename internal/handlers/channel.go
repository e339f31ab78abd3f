package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"sagechat-backend/internal/membership"
	"sagechat-backend/internal/models"
	"sagechat-backend/internal/store"
	rules "sagechat-backend/internal/validator"
)

func (a *API) CreateChannel(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type CreateChannelRequest struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	var request CreateChannelRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		a.sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	if err := rules.ChannelName(request.Name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	channel := models.Channel{
		Name:        rules.Slug(request.Name),
		DisplayName: request.Name,
		Description: request.Description,
		Icon:        "fa-hash",
		Type:        models.ChannelTypeChannel,
		CreatorID:   userID,
	}

	created, err := a.store.CreateChannel(r.Context(), channel)
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

// OpenDM returns the direct-message channel between the caller and another
// user, creating it on first use. The name is derived from the sorted id pair,
// so both sides always resolve the same channel; DMs never show up in the
// public directory listing.
func (a *API) OpenDM(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	otherID, err := strconv.ParseInt(r.URL.Query().Get("userID"), 10, 64)
	if err != nil || otherID == 0 || otherID == userID {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	other, err := a.store.UserByID(r.Context(), otherID)
	if err != nil {
		a.channelError(w, err)
		return
	}

	lowID, highID := userID, otherID
	if lowID > highID {
		lowID, highID = highID, lowID
	}
	name := fmt.Sprintf("dm-%d-%d", lowID, highID)

	channel, err := a.store.ChannelByName(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		channel, err = a.store.CreateChannel(r.Context(), models.Channel{
			Name:        name,
			DisplayName: other.Name,
			Icon:        "fa-user",
			Type:        models.ChannelTypeDM,
			CreatorID:   userID,
			Members:     []int64{otherID},
		})
	}
	if err != nil {
		a.channelError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(channel)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
}

// GetChannelList returns the directory partitioned into the channels the
// user has joined and the rest. Metadata is public, so no membership gate
// here; that's what makes preview-then-join possible.
func (a *API) GetChannelList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type ChannelList struct {
		Joined       []models.Channel `json:"joined"`
		Discoverable []models.Channel `json:"discoverable"`
	}

	list := ChannelList{
		Joined:       a.dir.ListJoined(userID),
		Discoverable: a.dir.ListDiscoverable(userID),
	}

	err := json.NewEncoder(w).Encode(list)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
}

func (a *API) SearchChannels(w http.ResponseWriter, r *http.Request) {
	results := a.dir.Search(r.URL.Query().Get("query"))

	err := json.NewEncoder(w).Encode(results)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
}

func (a *API) JoinChannel(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	channelID, ok := a.channelIDParam(w, r)
	if !ok {
		return
	}

	channel, err := a.policy.Join(r.Context(), userID, channelID)
	if err != nil {
		a.channelError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(channel)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
}

func (a *API) LeaveChannel(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	channelID, ok := a.channelIDParam(w, r)
	if !ok {
		return
	}

	_, err := a.policy.Leave(r.Context(), userID, channelID)
	if err != nil {
		a.channelError(w, err)
		return
	}
}

func (a *API) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	channelID, ok := a.channelIDParam(w, r)
	if !ok {
		return
	}

	err := a.policy.Delete(r.Context(), userID, channelID)
	if err != nil {
		a.channelError(w, err)
		return
	}
}

func (a *API) channelIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	channelID, err := strconv.ParseInt(r.URL.Query().Get("channelID"), 10, 64)
	if err != nil || channelID == 0 {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return 0, false
	}
	return channelID, true
}

// channelError maps the membership/store error taxonomy onto HTTP statuses.
func (a *API) channelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Channel not found", http.StatusNotFound)
	case errors.Is(err, membership.ErrNotAMember):
		http.Error(w, "You are not a member of this channel", http.StatusForbidden)
	case errors.Is(err, membership.ErrNotAuthorized):
		http.Error(w, "Only the creator can do this", http.StatusForbidden)
	case errors.Is(err, membership.ErrCreatorCannotLeave):
		http.Error(w, "The creator can't leave their own channel", http.StatusForbidden)
	case errors.Is(err, store.ErrTimeout):
		http.Error(w, "", http.StatusGatewayTimeout)
	default:
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
	}
}
