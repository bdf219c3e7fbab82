package gudp

import (
	"errors"
	"time"
)

// ErrFraming is returned by Decode when a datagram is too short to hold a
// GUDP header.
var ErrFraming = errors.New("gudp: datagram shorter than header")

// ErrPayloadTooLarge is returned when a payload exceeds MaxPayloadLen.
var ErrPayloadTooLarge = errors.New("gudp: payload too large")

// ErrExhaustedRetries is the terminal error of the send engine after an
// endpoint timed out MaxRetry times in a row. Once it occurs no destination
// makes further progress.
var ErrExhaustedRetries = errors.New("gudp: retransmissions exhausted")

// ErrClosed indicates an operation on a closed Socket.
var ErrClosed = errors.New("gudp: socket closed")

// ErrNoEndpoint is logged when an ACK arrives from an address with no
// send-side endpoint.
var ErrNoEndpoint = errors.New("gudp: no endpoint for address")

// Protocol constants. Tunables default from these.
const (
	// DefaultWindowSize is the number of packets a sender may have in flight.
	DefaultWindowSize = 3

	// DefaultTimeout is the retransmission timeout of the oldest outstanding
	// packet.
	DefaultTimeout = 3000 * time.Millisecond

	// DefaultMaxRetry is the number of consecutive timeouts tolerated before
	// the send engine gives up.
	DefaultMaxRetry = 7

	// DefaultDropChance is the loss probability used by RANDOM drops and the
	// per-endpoint drop flags.
	DefaultDropChance = 0.2
)

// amount of time the send engine sleeps before re-examining its endpoints
// when nobody wakes it
const sendPollInterval = 50 * time.Millisecond

// amount of time Finish waits between checks of the send-side endpoints
const finishPollInterval = 200 * time.Millisecond

// bounds of the pause after a failed read; it doubles while reads keep failing
const (
	minReadBackoff = 5 * time.Millisecond
	maxReadBackoff = 250 * time.Millisecond
)
