package gateway

import "errors"

// Sentinel errors for the gateway's start/bind lifecycle.
var (
	ErrNoModules     = errors.New("gateway: no modules to bind")
	ErrBindExhausted = errors.New("gateway: modules_connect: all payload variants rejected")
	ErrNotStarted    = errors.New("gateway: not started")
)
