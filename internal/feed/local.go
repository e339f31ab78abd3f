package feed

import (
	"sync"

	"go.uber.org/zap"
)

// LocalBroker is the self-contained mode backend: an in-process topic map, no
// redis needed. Delivery is synchronous but happens outside the lock so a
// handler may subscribe or unsubscribe while an event is in flight.
type LocalBroker struct {
	sugar *zap.SugaredLogger

	mutex  sync.RWMutex
	nextID int64
	topics map[string]map[int64]Handler
}

func NewLocalBroker(sugar *zap.SugaredLogger) *LocalBroker {
	return &LocalBroker{
		sugar:  sugar,
		topics: make(map[string]map[int64]Handler),
	}
}

func (b *LocalBroker) Publish(topic string, event Event) error {
	b.mutex.RLock()
	handlers := make([]Handler, 0, len(b.topics[topic]))
	for _, handler := range b.topics[topic] {
		handlers = append(handlers, handler)
	}
	b.mutex.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
	return nil
}

func (b *LocalBroker) Subscribe(topic string, handler Handler) (*Handle, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.nextID++
	id := b.nextID

	subs, exists := b.topics[topic]
	if !exists {
		subs = make(map[int64]Handler)
		b.topics[topic] = subs
	}
	subs[id] = handler

	return newHandle(topic, func() error {
		b.unsubscribe(topic, id)
		return nil
	}), nil
}

func (b *LocalBroker) unsubscribe(topic string, id int64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	delete(b.topics[topic], id)

	// drop the topic once nobody listens to it anymore
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
}
