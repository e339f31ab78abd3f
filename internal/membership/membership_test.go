package membership_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"sagechat-backend/internal/membership"
	"sagechat-backend/internal/models"
	"sagechat-backend/internal/store"
)

type fakeStore struct {
	channels map[int64]models.Channel
}

func newFakeStore(channels ...models.Channel) *fakeStore {
	f := &fakeStore{channels: make(map[int64]models.Channel)}
	for _, channel := range channels {
		f.channels[channel.ID] = channel
	}
	return f
}

func (f *fakeStore) Channel(ctx context.Context, channelID int64) (models.Channel, error) {
	channel, exists := f.channels[channelID]
	if !exists {
		return models.Channel{}, store.ErrNotFound
	}
	return channel, nil
}

func (f *fakeStore) AddMember(ctx context.Context, channelID int64, userID int64) (models.Channel, error) {
	channel := f.channels[channelID]
	channel.Members = append(channel.Members, userID)
	f.channels[channelID] = channel
	return channel, nil
}

func (f *fakeStore) RemoveMember(ctx context.Context, channelID int64, userID int64) (models.Channel, error) {
	channel := f.channels[channelID]
	members := []int64{}
	for _, id := range channel.Members {
		if id != userID {
			members = append(members, id)
		}
	}
	channel.Members = members
	f.channels[channelID] = channel
	return channel, nil
}

func (f *fakeStore) DeleteChannel(ctx context.Context, channelID int64) error {
	delete(f.channels, channelID)
	return nil
}

const (
	creatorID = int64(10)
	otherID   = int64(20)
)

func publicChannel() models.Channel {
	return models.Channel{
		ID:        1,
		Name:      "design-rfc",
		Type:      models.ChannelTypeChannel,
		CreatorID: creatorID,
		Members:   []int64{creatorID},
	}
}

func TestCanReadWriteGates(t *testing.T) {
	channel := publicChannel()

	if membership.CanRead(otherID, &channel) {
		t.Error("Non-member can read message history")
	}
	if membership.CanWrite(otherID, &channel) {
		t.Error("Non-member can write")
	}
	if !membership.CanRead(creatorID, &channel) || !membership.CanWrite(creatorID, &channel) {
		t.Error("Creator lost access to their own channel")
	}

	channel.Members = append(channel.Members, otherID)
	if !membership.CanRead(otherID, &channel) || !membership.CanWrite(otherID, &channel) {
		t.Error("Member can't access after join")
	}
}

func TestCanManageOnlyCreator(t *testing.T) {
	channel := publicChannel()

	if !membership.CanManage(creatorID, &channel) {
		t.Error("Creator can't manage")
	}
	if membership.CanManage(otherID, &channel) {
		t.Error("Non-creator can manage")
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	fake := newFakeStore(publicChannel())
	policy := membership.NewPolicy(zap.NewNop().Sugar(), fake)
	ctx := context.Background()

	first, err := policy.Join(ctx, otherID, 1)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if !first.IsMember(otherID) {
		t.Fatal("User not a member after join")
	}

	// joining again is a no-op success, not an error
	second, err := policy.Join(ctx, otherID, 1)
	if err != nil {
		t.Fatalf("Second join failed: %v", err)
	}
	if len(second.Members) != len(first.Members) {
		t.Errorf("Second join grew members from %d to %d", len(first.Members), len(second.Members))
	}
}

func TestLeaveThenJoinRestoresMembership(t *testing.T) {
	fake := newFakeStore(publicChannel())
	policy := membership.NewPolicy(zap.NewNop().Sugar(), fake)
	ctx := context.Background()

	if _, err := policy.Join(ctx, otherID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := policy.Leave(ctx, otherID, 1); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	channel, _ := fake.Channel(ctx, 1)
	if channel.IsMember(otherID) {
		t.Fatal("Still a member after leave")
	}

	if _, err := policy.Join(ctx, otherID, 1); err != nil {
		t.Fatalf("Re-join failed: %v", err)
	}
	channel, _ = fake.Channel(ctx, 1)
	if !channel.IsMember(otherID) {
		t.Error("Membership not restored after leave then join")
	}
}

func TestCreatorCannotLeave(t *testing.T) {
	fake := newFakeStore(publicChannel())
	policy := membership.NewPolicy(zap.NewNop().Sugar(), fake)

	_, err := policy.Leave(context.Background(), creatorID, 1)
	if !errors.Is(err, membership.ErrCreatorCannotLeave) {
		t.Errorf("Got %v, want ErrCreatorCannotLeave", err)
	}
}

func TestLeaveWithoutMembershipFails(t *testing.T) {
	fake := newFakeStore(publicChannel())
	policy := membership.NewPolicy(zap.NewNop().Sugar(), fake)

	_, err := policy.Leave(context.Background(), otherID, 1)
	if !errors.Is(err, membership.ErrNotAMember) {
		t.Errorf("Got %v, want ErrNotAMember", err)
	}
}

func TestDeleteRequiresCreator(t *testing.T) {
	fake := newFakeStore(publicChannel())
	policy := membership.NewPolicy(zap.NewNop().Sugar(), fake)
	ctx := context.Background()

	err := policy.Delete(ctx, otherID, 1)
	if !errors.Is(err, membership.ErrNotAuthorized) {
		t.Errorf("Got %v, want ErrNotAuthorized", err)
	}

	if err := policy.Delete(ctx, creatorID, 1); err != nil {
		t.Fatalf("Creator delete failed: %v", err)
	}
	if _, err := fake.Channel(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Error("Channel still exists after delete")
	}
}

func TestOperationsOnMissingChannel(t *testing.T) {
	policy := membership.NewPolicy(zap.NewNop().Sugar(), newFakeStore())

	if _, err := policy.Join(context.Background(), otherID, 99); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Got %v, want ErrNotFound", err)
	}
}
