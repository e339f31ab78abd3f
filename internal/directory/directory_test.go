package directory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"sagechat-backend/internal/directory"
	"sagechat-backend/internal/feed"
	"sagechat-backend/internal/models"
)

type fakeSource struct {
	channels []models.Channel
	err      error
}

func (f *fakeSource) Channels(ctx context.Context) ([]models.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.channels, nil
}

func testChannel(id int64, name string, creatorID int64, members ...int64) models.Channel {
	return models.Channel{
		ID:          id,
		Name:        name,
		DisplayName: name,
		Type:        models.ChannelTypeChannel,
		CreatorID:   creatorID,
		Members:     members,
		CreatedAt:   time.Now().UTC(),
	}
}

func channelEvent(t *testing.T, kind string, channel models.Channel) feed.Event {
	t.Helper()
	event, err := feed.NewEvent(kind, feed.CollectionChannels, channel.ID, channel)
	if err != nil {
		t.Fatal(err)
	}
	return event
}

func TestRefreshToleratesEmptyResult(t *testing.T) {
	dir := directory.New(zap.NewNop().Sugar(), &fakeSource{})
	dir.Refresh(context.Background())

	if got := dir.Search(""); len(got) != 0 {
		t.Errorf("Empty store produced %d channels", len(got))
	}
}

func TestRefreshFailureDegradesToEmpty(t *testing.T) {
	dir := directory.New(zap.NewNop().Sugar(), &fakeSource{err: errors.New("store down")})
	dir.Refresh(context.Background())

	if got := dir.Search(""); len(got) != 0 {
		t.Errorf("Failed refresh produced %d channels", len(got))
	}
}

func TestRenameKeepsEntryKeyedByID(t *testing.T) {
	channel := testChannel(1, "general", 10)
	dir := directory.New(zap.NewNop().Sugar(), &fakeSource{channels: []models.Channel{channel}})
	dir.Refresh(context.Background())

	renamed := channel
	renamed.Name = "general-chat"
	renamed.DisplayName = "General Chat"
	dir.Apply(channelEvent(t, feed.KindUpdate, renamed))

	got, exists := dir.Get(1)
	if !exists {
		t.Fatal("Channel vanished after rename")
	}
	if got.Name != "general-chat" {
		t.Errorf("Got name %q, want %q", got.Name, "general-chat")
	}
	if len(dir.Search("")) != 1 {
		t.Errorf("Rename duplicated or dropped the entry: %d channels", len(dir.Search("")))
	}
}

func TestApplyDeleteRemovesChannel(t *testing.T) {
	channel := testChannel(1, "doomed", 10)
	dir := directory.New(zap.NewNop().Sugar(), &fakeSource{channels: []models.Channel{channel}})
	dir.Refresh(context.Background())

	dir.Apply(channelEvent(t, feed.KindDelete, channel))

	if _, exists := dir.Get(1); exists {
		t.Error("Deleted channel still present")
	}
}

func TestPartitionJoinedAndDiscoverable(t *testing.T) {
	channels := []models.Channel{
		testChannel(1, "zebra", 10, 20),  // user 20 joined
		testChannel(2, "alpha", 20),      // user 20 created
		testChannel(3, "random", 10),     // discoverable for 20
		testChannel(4, "beta", 10),       // discoverable for 20
	}
	dir := directory.New(zap.NewNop().Sugar(), &fakeSource{channels: channels})
	dir.Refresh(context.Background())

	joined := dir.ListJoined(20)
	if len(joined) != 2 {
		t.Fatalf("Got %d joined channels, want 2", len(joined))
	}
	// alphabetical by display name
	if joined[0].Name != "alpha" || joined[1].Name != "zebra" {
		t.Errorf("Joined order wrong: %q, %q", joined[0].Name, joined[1].Name)
	}

	discoverable := dir.ListDiscoverable(20)
	if len(discoverable) != 2 {
		t.Fatalf("Got %d discoverable channels, want 2", len(discoverable))
	}
	if discoverable[0].Name != "beta" || discoverable[1].Name != "random" {
		t.Errorf("Discoverable order wrong: %q, %q", discoverable[0].Name, discoverable[1].Name)
	}
}

func TestDMChannelsAreNotListed(t *testing.T) {
	dm := testChannel(5, "dm-pair", 10, 20)
	dm.Type = models.ChannelTypeDM
	dir := directory.New(zap.NewNop().Sugar(), &fakeSource{channels: []models.Channel{dm}})
	dir.Refresh(context.Background())

	if got := len(dir.ListJoined(20)); got != 0 {
		t.Errorf("DM leaked into the public directory: %d entries", got)
	}
}

func TestSearchMatchesNameAndDescription(t *testing.T) {
	design := testChannel(1, "design-rfc", 10)
	general := testChannel(2, "general", 10)
	general.Description = "All about Design topics"
	offtopic := testChannel(3, "offtopic", 10)

	dir := directory.New(zap.NewNop().Sugar(), &fakeSource{channels: []models.Channel{design, general, offtopic}})
	dir.Refresh(context.Background())

	results := dir.Search("DESIGN")
	if len(results) != 2 {
		t.Fatalf("Got %d results, want 2", len(results))
	}

	all := dir.Search("")
	if len(all) != 3 {
		t.Errorf("Empty query returned %d channels, want all 3", len(all))
	}
}
