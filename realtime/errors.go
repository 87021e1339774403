package realtime

import "errors"

// Sentinel errors for the channel's connect/join lifecycle.
var (
	ErrNotConnected  = errors.New("realtime: not connected")
	ErrHandshake     = errors.New("realtime: engine.io handshake failed")
	ErrNamespaceJoin = errors.New("realtime: namespace join timed out")
	ErrClosed        = errors.New("realtime: channel closed")
)
