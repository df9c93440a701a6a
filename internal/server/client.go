package server

import (
	"errors"

	"github.com/lawnchairsociety/delve/internal/protocol"
)

// ErrMalformedRequest marks a request that could not be decoded. The
// connection stays usable.
var ErrMalformedRequest = errors.New("malformed generate request")

// Client abstracts the stream connection so sessions can be driven over
// WebSocket or, in tests, anything else.
type Client interface {
	// ReadRequest blocks until the next request arrives.
	ReadRequest() (protocol.GenerateRequest, error)

	// Send frames one event with its sequence number.
	Send(seq uint64, e protocol.Event) error

	Close() error

	// RemoteAddr returns the client's address for logging.
	RemoteAddr() string
}
