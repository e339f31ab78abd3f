package feed

import (
	"encoding/json"
	"fmt"
	"sync"

	"sagechat-backend/internal/models"
)

const (
	KindCreate = "create"
	KindUpdate = "update"
	KindDelete = "delete"
)

const (
	CollectionChannels = "channels"
	CollectionMessages = "messages"
)

// Event is the normalized envelope every broker delivers, regardless of
// backend. Payload is the full document as JSON; delete events carry the
// document as it was before removal so consumers can still filter on it.
type Event struct {
	Kind       string          `json:"kind"`
	Collection string          `json:"collection"`
	DocumentID int64           `json:"documentID,string"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEvent(kind string, collection string, documentID int64, payload any) (Event, error) {
	bytes, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		Kind:       kind,
		Collection: collection,
		DocumentID: documentID,
		Payload:    bytes,
	}, nil
}

func (e *Event) Message() (models.Message, error) {
	var msg models.Message
	err := json.Unmarshal(e.Payload, &msg)
	return msg, err
}

func (e *Event) Channel() (models.Channel, error) {
	var channel models.Channel
	err := json.Unmarshal(e.Payload, &channel)
	return channel, err
}

type Handler func(Event)

type Broker interface {
	Publish(topic string, event Event) error
	Subscribe(topic string, handler Handler) (*Handle, error)
}

// Handle is a live subscription. Close is idempotent.
type Handle struct {
	topic string
	stop  func() error

	once sync.Once
	err  error
}

func newHandle(topic string, stop func() error) *Handle {
	return &Handle{topic: topic, stop: stop}
}

func (h *Handle) Topic() string {
	return h.topic
}

func (h *Handle) Close() error {
	h.once.Do(func() {
		h.err = h.stop()
	})
	return h.err
}

// MessageTopic is the per-collection topic naming shared by all brokers.
func MessageTopic() string {
	return fmt.Sprintf("feed:%s", CollectionMessages)
}

func ChannelTopic() string {
	return fmt.Sprintf("feed:%s", CollectionChannels)
}
