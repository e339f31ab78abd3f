// Package membership decides who may read, write and manage a channel, and
// owns the join/leave/delete mutations those rules gate.
package membership

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"sagechat-backend/internal/models"
)

var (
	ErrNotAMember         = errors.New("not_a_member")
	ErrNotAuthorized      = errors.New("not_authorized")
	ErrCreatorCannotLeave = errors.New("creator_cannot_leave")
)

// CanRead reports whether the user may read the channel's message history.
// Channel metadata (name, description, icon) is public regardless; this gate
// only covers messages and the full member list.
func CanRead(userID int64, channel *models.Channel) bool {
	return channel.IsMember(userID)
}

// CanWrite reports whether the user may post to the channel. Same rule as
// CanRead: member or creator.
func CanWrite(userID int64, channel *models.Channel) bool {
	return channel.IsMember(userID)
}

// CanManage is true only for the creator; it grants channel deletion.
func CanManage(userID int64, channel *models.Channel) bool {
	return channel.CreatorID == userID
}

// Store is the slice of the document store the policy mutates through.
type Store interface {
	Channel(ctx context.Context, channelID int64) (models.Channel, error)
	AddMember(ctx context.Context, channelID int64, userID int64) (models.Channel, error)
	RemoveMember(ctx context.Context, channelID int64, userID int64) (models.Channel, error)
	DeleteChannel(ctx context.Context, channelID int64) error
}

type Policy struct {
	sugar *zap.SugaredLogger
	store Store
}

func NewPolicy(sugar *zap.SugaredLogger, store Store) *Policy {
	return &Policy{
		sugar: sugar,
		store: store,
	}
}

// Join adds the user to the channel's member set. Joining a channel the user
// already belongs to is a no-op success, not an error.
func (p *Policy) Join(ctx context.Context, userID int64, channelID int64) (models.Channel, error) {
	channel, err := p.store.Channel(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}

	if channel.IsMember(userID) {
		p.sugar.Debugf("User ID [%d] already a member of channel ID [%d]", userID, channelID)
		return channel, nil
	}

	return p.store.AddMember(ctx, channelID, userID)
}

// Leave removes the user's membership. The creator can never leave; the only
// way out for them is deleting the channel.
func (p *Policy) Leave(ctx context.Context, userID int64, channelID int64) (models.Channel, error) {
	channel, err := p.store.Channel(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}

	if channel.CreatorID == userID {
		return models.Channel{}, ErrCreatorCannotLeave
	}
	if !channel.IsMember(userID) {
		return models.Channel{}, ErrNotAMember
	}

	return p.store.RemoveMember(ctx, channelID, userID)
}

// Delete removes the channel entirely. Messages cascade away with it.
func (p *Policy) Delete(ctx context.Context, userID int64, channelID int64) error {
	channel, err := p.store.Channel(ctx, channelID)
	if err != nil {
		return err
	}

	if !CanManage(userID, &channel) {
		p.sugar.Warnf("User ID [%d] tried to delete channel ID [%d] they don't own", userID, channelID)
		return ErrNotAuthorized
	}

	return p.store.DeleteChannel(ctx, channelID)
}
