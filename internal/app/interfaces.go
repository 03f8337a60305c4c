package app

import (
	"context"
	"errors"
	"io"
	"time"

	"wifitransfer/internal/discovery"
	"wifitransfer/pkg/types"
)

// ErrSessionCollision is returned when every generated session id was already taken
var ErrSessionCollision = errors.New("session id already in use on the network")

// Publisher advertises a session
type Publisher interface {
	Publish(sessionID string, port int, meta types.FileMetadata) (*discovery.ServiceHandle, error)
}

// Prober checks whether someone else advertises the same instance name
type Prober interface {
	Probe(ctx context.Context, name, token string, window time.Duration) (bool, error)
}

// Resolver waits for a matching advertised session
type Resolver interface {
	Watch(ctx context.Context, match func(discovery.ServiceRecord) bool) (discovery.ServiceRecord, error)
}

// Fetcher downloads a file from a sender
type Fetcher interface {
	Fetch(ctx context.Context, target discovery.Target, sink io.Writer, onProgress func(types.ProgressUpdate)) (types.FileMetadata, error)
	Close() error
}
