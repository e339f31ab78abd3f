package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"sagechat-backend/internal/feed"
	"sagechat-backend/internal/models"
)

// ChannelSource fetches every channel document from the store.
type ChannelSource interface {
	Channels(ctx context.Context) ([]models.Channel, error)
}

// Directory is the local view of all channels, kept current via the feed.
// The map is keyed by the immutable channel id; the name is just a field, so
// renaming a channel can never orphan an entry.
type Directory struct {
	sugar  *zap.SugaredLogger
	source ChannelSource

	mutex    sync.RWMutex
	channels map[int64]models.Channel
}

func New(sugar *zap.SugaredLogger, source ChannelSource) *Directory {
	return &Directory{
		sugar:    sugar,
		source:   source,
		channels: make(map[int64]models.Channel),
	}
}

// Refresh rebuilds the directory from the store. An empty result is a valid
// empty directory; a failed fetch degrades to one as well so a transient
// store error never hard-fails the listing.
func (d *Directory) Refresh(ctx context.Context) {
	fetched, err := d.source.Channels(ctx)
	if err != nil {
		d.sugar.Errorf("Refreshing channel directory: %v", err)
		fetched = nil
	}

	channels := make(map[int64]models.Channel, len(fetched))
	for _, channel := range fetched {
		channels[channel.ID] = channel
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.channels = channels
}

// Apply upserts or removes a channel from a feed event. Create and update are
// the same operation: replace the document by id.
func (d *Directory) Apply(event feed.Event) {
	if event.Collection != feed.CollectionChannels {
		return
	}

	channel, err := event.Channel()
	if err != nil {
		d.sugar.Errorf("Dropping malformed channel event: %v", err)
		return
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	switch event.Kind {
	case feed.KindCreate, feed.KindUpdate:
		d.channels[channel.ID] = channel
	case feed.KindDelete:
		delete(d.channels, channel.ID)
	}
}

func (d *Directory) Get(channelID int64) (models.Channel, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	channel, exists := d.channels[channelID]
	return channel, exists
}

// ListJoined returns the public channels the user is a member of, sorted
// alphabetically by display name.
func (d *Directory) ListJoined(userID int64) []models.Channel {
	return d.partition(userID, true)
}

// ListDiscoverable returns the public channels the user has not joined.
// Channel metadata is readable regardless of membership; this is what powers
// the preview-then-join flow.
func (d *Directory) ListDiscoverable(userID int64) []models.Channel {
	return d.partition(userID, false)
}

func (d *Directory) partition(userID int64, joined bool) []models.Channel {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	result := []models.Channel{}
	for _, channel := range d.channels {
		if channel.Type != models.ChannelTypeChannel {
			continue
		}
		if channel.IsMember(userID) == joined {
			result = append(result, channel)
		}
	}

	sortByDisplayName(result)
	return result
}

// Search matches the query case-insensitively against channel name and
// description. An empty query returns the full public directory.
func (d *Directory) Search(query string) []models.Channel {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	lowered := strings.ToLower(strings.TrimSpace(query))

	result := []models.Channel{}
	for _, channel := range d.channels {
		if channel.Type != models.ChannelTypeChannel {
			continue
		}
		if lowered == "" ||
			strings.Contains(strings.ToLower(channel.Name), lowered) ||
			strings.Contains(strings.ToLower(channel.Description), lowered) {
			result = append(result, channel)
		}
	}

	sortByDisplayName(result)
	return result
}

func sortByDisplayName(channels []models.Channel) {
	sort.Slice(channels, func(i, j int) bool {
		return strings.ToLower(channels[i].DisplayName) < strings.ToLower(channels[j].DisplayName)
	})
}
