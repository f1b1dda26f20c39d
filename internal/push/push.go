// Package push delivers game updates to connected participants over
// their duplex channels.
package push

import (
	"context"
	"errors"
)

// ErrGone reports that the target channel has disconnected. Callers
// treat it as the seat having silently dropped: log and continue.
var ErrGone = errors.New("channel is gone")

// Pusher sends a payload to the channel with the given id.
type Pusher interface {
	Push(ctx context.Context, channelID string, payload []byte) error
}

// Func adapts a function to the Pusher interface.
type Func func(ctx context.Context, channelID string, payload []byte) error

// Push calls the function.
func (f Func) Push(ctx context.Context, channelID string, payload []byte) error {
	return f(ctx, channelID, payload)
}
