package timeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"sagechat-backend/internal/feed"
	"sagechat-backend/internal/models"
)

// InitialLoadLimit caps how much history a fresh load pulls in; everything
// after that arrives through the feed.
const InitialLoadLimit = 50

type State int

const (
	Unloaded State = iota
	Loading
	Loaded
)

// MessageSource fetches the most recent messages of a channel, newest first.
type MessageSource interface {
	RecentMessages(ctx context.Context, channelID int64, limit int) ([]models.Message, error)
}

// Cache is the per-client message timeline. Each loaded channel holds an
// ascending, id-deduplicated message sequence. The feed is the only writer
// besides Load; there is no optimistic local insert anywhere.
type Cache struct {
	sugar  *zap.SugaredLogger
	source MessageSource

	mutex    sync.Mutex
	states   map[int64]State
	messages map[int64][]models.Message
}

func NewCache(sugar *zap.SugaredLogger, source MessageSource) *Cache {
	return &Cache{
		sugar:    sugar,
		source:   source,
		states:   make(map[int64]State),
		messages: make(map[int64][]models.Message),
	}
}

// Load replaces the channel's cache wholesale with the newest
// InitialLoadLimit messages, reversed to ascending order. A failed fetch
// degrades to an empty Loaded timeline instead of propagating, so a transient
// store error never blocks the channel view.
func (c *Cache) Load(ctx context.Context, channelID int64) []models.Message {
	c.mutex.Lock()
	c.states[channelID] = Loading
	c.mutex.Unlock()

	fetched, err := c.source.RecentMessages(ctx, channelID, InitialLoadLimit)
	if err != nil {
		c.sugar.Errorf("Loading messages for channel ID [%d]: %v", channelID, err)
		fetched = nil
	}

	// fetched is newest first, the timeline wants ascending
	messages := make([]models.Message, 0, len(fetched))
	for i := len(fetched) - 1; i >= 0; i-- {
		messages = append(messages, fetched[i])
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.states[channelID] = Loaded
	c.messages[channelID] = messages
	return append([]models.Message(nil), messages...)
}

// Apply routes a feed event into the cache. Events whose channel isn't loaded
// are dropped, not buffered.
func (c *Cache) Apply(event feed.Event) {
	if event.Collection != feed.CollectionMessages {
		return
	}

	msg, err := event.Message()
	if err != nil {
		c.sugar.Errorf("Dropping malformed message event: %v", err)
		return
	}

	switch event.Kind {
	case feed.KindCreate:
		c.Append(msg)
	case feed.KindUpdate:
		c.ApplyUpdate(msg)
	case feed.KindDelete:
		c.ApplyDelete(msg.ChannelID, msg.ID)
	}
}

// Append inserts the message unless its id is already cached. The existence
// check is what makes a feed echo racing a concurrent Load harmless.
func (c *Cache) Append(msg models.Message) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.states[msg.ChannelID] != Loaded {
		return
	}

	for _, existing := range c.messages[msg.ChannelID] {
		if existing.ID == msg.ID {
			return
		}
	}

	c.messages[msg.ChannelID] = append(c.messages[msg.ChannelID], msg)
}

// ApplyUpdate replaces the cached message's text and edit flags. Updates for
// ids not in the cache are dropped.
func (c *Cache) ApplyUpdate(msg models.Message) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached := c.messages[msg.ChannelID]
	for i := range cached {
		if cached[i].ID == msg.ID {
			cached[i].Text = msg.Text
			cached[i].Edited = msg.Edited
			cached[i].EditedAt = msg.EditedAt
			return
		}
	}
}

// ApplyDelete removes the matching entry; absent ids are a no-op.
func (c *Cache) ApplyDelete(channelID int64, messageID int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached := c.messages[channelID]
	for i := range cached {
		if cached[i].ID == messageID {
			c.messages[channelID] = append(cached[:i], cached[i+1:]...)
			return
		}
	}
}

// Messages returns a copy of the channel's timeline in ascending order.
func (c *Cache) Messages(channelID int64) []models.Message {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return append([]models.Message(nil), c.messages[channelID]...)
}

func (c *Cache) State(channelID int64) State {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.states[channelID]
}

// Evict drops a channel's timeline entirely, used when the channel itself is
// deleted.
func (c *Cache) Evict(channelID int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.states, channelID)
	delete(c.messages, channelID)
}
