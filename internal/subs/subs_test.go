package subs_test

import (
	"testing"

	"go.uber.org/zap"

	"sagechat-backend/internal/feed"
	"sagechat-backend/internal/models"
	"sagechat-backend/internal/subs"
)

func publishTo(t *testing.T, broker *feed.LocalBroker, topic string) {
	t.Helper()
	event, err := feed.NewEvent(feed.KindCreate, feed.CollectionMessages, 1, models.Message{ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	broker.Publish(topic, event)
}

func TestSubscribeReplacesHandleForSameKey(t *testing.T) {
	broker := feed.NewLocalBroker(zap.NewNop().Sugar())
	manager := subs.NewManager(zap.NewNop().Sugar())

	oldDeliveries, newDeliveries := 0, 0

	err := manager.Subscribe("key", func() (*feed.Handle, error) {
		return broker.Subscribe("topic", func(feed.Event) { oldDeliveries++ })
	})
	if err != nil {
		t.Fatal(err)
	}

	err = manager.Subscribe("key", func() (*feed.Handle, error) {
		return broker.Subscribe("topic", func(feed.Event) { newDeliveries++ })
	})
	if err != nil {
		t.Fatal(err)
	}

	publishTo(t, broker, "topic")

	if oldDeliveries != 0 {
		t.Errorf("Replaced handle still received %d events", oldDeliveries)
	}
	if newDeliveries != 1 {
		t.Errorf("New handle received %d events, want 1", newDeliveries)
	}
	if manager.Count() != 1 {
		t.Errorf("Manager tracks %d handles, want 1", manager.Count())
	}
}

func TestChannelSwitchClosesExactlyOldHandle(t *testing.T) {
	broker := feed.NewLocalBroker(zap.NewNop().Sugar())
	manager := subs.NewManager(zap.NewNop().Sugar())

	aDeliveries, bDeliveries := 0, 0

	manager.Subscribe(subs.MessageKey(1), func() (*feed.Handle, error) {
		return broker.Subscribe(feed.MessageTopic(), func(feed.Event) { aDeliveries++ })
	})

	// switch from channel 1 to channel 2
	manager.Unsubscribe(subs.MessageKey(1))
	manager.Subscribe(subs.MessageKey(2), func() (*feed.Handle, error) {
		return broker.Subscribe(feed.MessageTopic(), func(feed.Event) { bDeliveries++ })
	})

	publishTo(t, broker, feed.MessageTopic())

	if aDeliveries != 0 {
		t.Errorf("Old channel's handle received %d events after the switch", aDeliveries)
	}
	if bDeliveries != 1 {
		t.Errorf("New channel's handle received %d events, want 1", bDeliveries)
	}
	if manager.Count() != 1 {
		t.Errorf("Manager tracks %d handles after switch, want 1", manager.Count())
	}
}

func TestUnsubscribeAbsentKeyIsNoOp(t *testing.T) {
	manager := subs.NewManager(zap.NewNop().Sugar())
	manager.Unsubscribe("never-subscribed")
}

func TestUnsubscribeAllWithZeroHandles(t *testing.T) {
	manager := subs.NewManager(zap.NewNop().Sugar())
	manager.UnsubscribeAll()
	manager.UnsubscribeAll()
}

func TestUnsubscribeAllClosesEverything(t *testing.T) {
	broker := feed.NewLocalBroker(zap.NewNop().Sugar())
	manager := subs.NewManager(zap.NewNop().Sugar())

	deliveries := 0
	for _, key := range []string{subs.MessageKey(1), subs.ChannelListKey} {
		manager.Subscribe(key, func() (*feed.Handle, error) {
			return broker.Subscribe("topic", func(feed.Event) { deliveries++ })
		})
	}

	manager.UnsubscribeAll()
	publishTo(t, broker, "topic")

	if deliveries != 0 {
		t.Errorf("Closed handles received %d events", deliveries)
	}
	if manager.Count() != 0 {
		t.Errorf("Manager still tracks %d handles", manager.Count())
	}
}
