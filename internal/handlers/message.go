package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"sagechat-backend/internal/membership"
	"sagechat-backend/internal/models"
	"sagechat-backend/internal/timeline"
	rules "sagechat-backend/internal/validator"
)

// CreateMessage is the submit half of the send pipeline. The created message
// is not returned to the caller; like every other client, the sender sees it
// arrive through the feed, which keeps ordering and de-duplication on one
// code path.
func (a *API) CreateMessage(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type AddMessageRequest struct {
		ChannelID int64  `json:"channelID,string"`
		Text      string `json:"text"`
	}

	var request AddMessageRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		a.sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	// whitespace-only submissions are dropped, not failed
	text, err := rules.MessageText(request.Text)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	channel, err := a.store.Channel(r.Context(), request.ChannelID)
	if err != nil {
		a.channelError(w, err)
		return
	}
	if !membership.CanWrite(userID, &channel) {
		a.channelError(w, membership.ErrNotAMember)
		return
	}

	author, err := a.store.UserByID(r.Context(), userID)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	_, err = a.store.CreateMessage(r.Context(), request.ChannelID, author, text)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// GetMessageList serves the initial timeline page, ascending, and switches
// the session's live message subscription to this channel in the same
// request. The client may see a feed create for a message already in the
// page; its append-dedup handles that.
func (a *API) GetMessageList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	sessionID := sessionIDFrom(r)

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

	fetched, err := a.store.RecentMessages(r.Context(), channelID, timeline.InitialLoadLimit)
	if err != nil {
		// degrade reads to an empty page rather than hard-failing the view
		a.sugar.Error(err)
		fetched = nil
	}

	// newest-first from the store, chronological for the client
	messages := make([]models.Message, 0, len(fetched))
	for i := len(fetched) - 1; i >= 0; i-- {
		messages = append(messages, fetched[i])
	}

	err = a.hub.SubscribeMessages(sessionID, channelID)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	err = json.NewEncoder(w).Encode(messages)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
}

func (a *API) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type EditMessageRequest struct {
		MessageID int64  `json:"messageID,string"`
		Text      string `json:"text"`
	}

	var request EditMessageRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		a.sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	text, err := rules.MessageText(request.Text)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := a.store.EditMessage(r.Context(), request.MessageID, userID, text)
	if err != nil {
		a.channelError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(msg)
	if err != nil {
		a.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
}

func (a *API) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	messageID, err := strconv.ParseInt(r.URL.Query().Get("messageID"), 10, 64)
	if err != nil || messageID == 0 {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	err = a.store.DeleteMessage(r.Context(), messageID, userID)
	if err != nil {
		a.channelError(w, err)
		return
	}
}
