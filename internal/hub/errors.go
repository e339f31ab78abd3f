package hub

import "errors"

// ErrNotConnected means the session has no live WebSocket, so there is
// nothing to deliver feed events to.
var ErrNotConnected = errors.New("session is not connected to hub")
