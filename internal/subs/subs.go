package subs

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"sagechat-backend/internal/feed"
)

// Manager enforces at most one live feed handle per key. Keys name a concern
// ("messages:<channelID>", "channels"), not a topic: two concerns may watch
// the same topic with different filters.
type Manager struct {
	sugar *zap.SugaredLogger

	mutex   sync.Mutex
	handles map[string]*feed.Handle
}

func NewManager(sugar *zap.SugaredLogger) *Manager {
	return &Manager{
		sugar:   sugar,
		handles: make(map[string]*feed.Handle),
	}
}

func MessageKey(channelID int64) string {
	return fmt.Sprintf("messages:%d", channelID)
}

const ChannelListKey = "channels"

// Subscribe closes any existing handle for key before opening the new one, so
// switching the active channel can never leak the previous subscription. The
// open callback runs with the old handle already closed.
func (m *Manager) Subscribe(key string, open func() (*feed.Handle, error)) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if old, exists := m.handles[key]; exists {
		if err := old.Close(); err != nil {
			m.sugar.Errorf("Closing previous handle for key [%s]: %v", key, err)
		}
		delete(m.handles, key)
	}

	handle, err := open()
	if err != nil {
		return err
	}

	m.handles[key] = handle
	m.sugar.Debugf("Subscribed key [%s] on topic [%s]", key, handle.Topic())
	return nil
}

// Unsubscribe closes the handle for key if one exists. Closing an absent or
// already closed key is a no-op.
func (m *Manager) Unsubscribe(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if handle, exists := m.handles[key]; exists {
		if err := handle.Close(); err != nil {
			m.sugar.Errorf("Closing handle for key [%s]: %v", key, err)
		}
		delete(m.handles, key)
	}
}

// UnsubscribeAll tears down every tracked handle. Safe with zero handles and
// safe to call twice; used on logout and client disconnect.
func (m *Manager) UnsubscribeAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key, handle := range m.handles {
		if err := handle.Close(); err != nil {
			m.sugar.Errorf("Closing handle for key [%s]: %v", key, err)
		}
		delete(m.handles, key)
	}
}

// Count reports the number of live handles.
func (m *Manager) Count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.handles)
}
