// Package chat wires the sync core together for one authenticated user: the
// channel directory, the message timeline, and the subscription manager, all
// fed from the same change feed the rest of the system sees.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sagechat-backend/internal/directory"
	"sagechat-backend/internal/feed"
	"sagechat-backend/internal/membership"
	"sagechat-backend/internal/models"
	"sagechat-backend/internal/subs"
	"sagechat-backend/internal/timeline"
)

// opTimeout bounds every store round-trip so a stalled fetch or submit can't
// suspend a caller indefinitely.
const opTimeout = 10 * time.Second

// Store is the slice of the document store the engine reads and writes.
type Store interface {
	Channels(ctx context.Context) ([]models.Channel, error)
	Channel(ctx context.Context, channelID int64) (models.Channel, error)
	RecentMessages(ctx context.Context, channelID int64, limit int) ([]models.Message, error)
	CreateMessage(ctx context.Context, channelID int64, author models.User, text string) (models.Message, error)
}

type Engine struct {
	sugar  *zap.SugaredLogger
	store  Store
	broker feed.Broker
	user   models.User

	Directory *directory.Directory
	Timeline  *timeline.Cache
	subs      *subs.Manager

	mutex          sync.Mutex
	currentChannel int64
}

func NewEngine(sugar *zap.SugaredLogger, store Store, broker feed.Broker, user models.User) *Engine {
	return &Engine{
		sugar:     sugar,
		store:     store,
		broker:    broker,
		user:      user,
		Directory: directory.New(sugar, store),
		Timeline:  timeline.NewCache(sugar, store),
		subs:      subs.NewManager(sugar),
	}
}

// Start fills the directory and opens the global channel-list subscription.
// Calling it again resubscribes idempotently; the old handle is closed first.
func (e *Engine) Start(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	e.Directory.Refresh(loadCtx)

	return e.subs.Subscribe(subs.ChannelListKey, func() (*feed.Handle, error) {
		return e.broker.Subscribe(feed.ChannelTopic(), func(event feed.Event) {
			e.Directory.Apply(event)

			if event.Kind == feed.KindDelete {
				e.Timeline.Evict(event.DocumentID)
			}
		})
	})
}

// SelectChannel makes channelID the active channel: close the old message
// subscription, replace the timeline, then subscribe fresh. The feed handler
// filters on the channel id, so a late event from the previous channel can
// never land in the new timeline; the timeline's dedup-by-id covers the
// opposite race of the new subscription echoing a message the load already
// fetched.
func (e *Engine) SelectChannel(ctx context.Context, channelID int64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.currentChannel == channelID {
		return nil
	}

	channel, err := e.channel(ctx, channelID)
	if err != nil {
		return err
	}
	if !membership.CanRead(e.user.ID, &channel) {
		return membership.ErrNotAMember
	}

	if e.currentChannel != 0 {
		e.subs.Unsubscribe(subs.MessageKey(e.currentChannel))
	}

	loadCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	e.Timeline.Load(loadCtx, channelID)

	err = e.subs.Subscribe(subs.MessageKey(channelID), func() (*feed.Handle, error) {
		return e.broker.Subscribe(feed.MessageTopic(), func(event feed.Event) {
			msg, err := event.Message()
			if err != nil {
				e.sugar.Errorf("Dropping malformed message event: %v", err)
				return
			}

			// one process-wide feed carries every channel's traffic
			if msg.ChannelID != channelID {
				return
			}
			e.Timeline.Apply(event)
		})
	})
	if err != nil {
		return err
	}

	e.currentChannel = channelID
	return nil
}

// Send validates and submits a new message. Whitespace-only text is dropped
// without an error, matching the fire-and-forget input field. The message is
// not inserted locally; every client including the sender sees it through the
// feed echo, which keeps ordering and de-duplication on a single code path.
func (e *Engine) Send(ctx context.Context, channelID int64, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	channel, err := e.channel(ctx, channelID)
	if err != nil {
		return err
	}
	if !membership.CanWrite(e.user.ID, &channel) {
		return membership.ErrNotAMember
	}

	sendCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err = e.store.CreateMessage(sendCtx, channelID, e.user, trimmed)
	return err
}

// channel prefers the directory's cached view and falls back to the store for
// channels the directory hasn't seen yet.
func (e *Engine) channel(ctx context.Context, channelID int64) (models.Channel, error) {
	if channel, exists := e.Directory.Get(channelID); exists {
		return channel, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return e.store.Channel(fetchCtx, channelID)
}

// CurrentChannel returns the active channel id, zero when none is selected.
func (e *Engine) CurrentChannel() int64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.currentChannel
}

// Subscriptions exposes the handle count, occasionally useful for
// diagnostics.
func (e *Engine) Subscriptions() int {
	return e.subs.Count()
}

// Teardown closes every live subscription. Safe to call twice; used on
// logout.
func (e *Engine) Teardown() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.subs.UnsubscribeAll()
	e.currentChannel = 0
}
