package endpoint

import "errors"

var (
	ErrEndpointNotFound       = errors.New("endpoint not found")
	ErrEndpointExists         = errors.New("endpoint already registered")
	ErrWildcardTooComplicated = errors.New("wildcard too complicated")
	ErrNoProvider             = errors.New("no endpoint provider for namespace")
	ErrConnectionNotFound     = errors.New("connection not found")
	ErrConnectionsUnsupported = errors.New("endpoint does not support connections")
)
