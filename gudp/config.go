package gudp

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"gudp.dev/gudp/pkg/thunks"
)

// Config holds the tunables of a Socket. Endpoints copy the per-endpoint
// values when they are created.
type Config struct {
	WindowSize int32
	Timeout    time.Duration
	MaxRetry   int

	// SendPollInterval bounds how long the send engine sleeps without being
	// woken. FinishPollInterval is the same for Finish.
	SendPollInterval   time.Duration
	FinishPollInterval time.Duration

	// SenderDrop applies to BSN, DATA and FIN datagrams, ReceiverDrop to ACKs.
	SenderDrop   DropMode
	ReceiverDrop DropMode

	// Per-endpoint loss flags given to every new endpoint. A flagged endpoint
	// loses each outbound datagram with probability DropChance, which is also
	// the probability used by DropRandom.
	DropSend    bool
	DropReceive bool
	DropChance  float64

	// DropSeed seeds loss simulation. Zero seeds from the clock.
	DropSeed uint64

	// InitialSeq picks the sequence number of a new transfer's BSN. Nil picks
	// uniformly over the whole int32 range.
	InitialSeq func() int32

	// Log is the parent logging context. Nil uses the logrus standard logger.
	Log *logrus.Entry
}

// DefaultConfig returns the process-wide defaults.
func DefaultConfig() *Config {
	return &Config{
		WindowSize:         DefaultWindowSize,
		Timeout:            DefaultTimeout,
		MaxRetry:           DefaultMaxRetry,
		SendPollInterval:   sendPollInterval,
		FinishPollInterval: finishPollInterval,
		SenderDrop:         DropNothing,
		ReceiverDrop:       DropNothing,
		DropChance:         DefaultDropChance,
	}
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	switch {
	case c.WindowSize < 1:
		return fmt.Errorf("window size must be positive, got %d", c.WindowSize)
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	case c.MaxRetry < 0:
		return fmt.Errorf("max retry must not be negative, got %d", c.MaxRetry)
	case c.DropChance < 0 || c.DropChance > 1:
		return fmt.Errorf("drop chance must be within [0, 1], got %f", c.DropChance)
	case c.SenderDrop < DropNothing || c.SenderDrop > DropAll:
		return fmt.Errorf("invalid sender drop mode %d", int(c.SenderDrop))
	case c.ReceiverDrop < DropNothing || c.ReceiverDrop > DropAll:
		return fmt.Errorf("invalid receiver drop mode %d", int(c.ReceiverDrop))
	}
	return nil
}

func (c *Config) initialSeq() int32 {
	if c.InitialSeq != nil {
		return c.InitialSeq()
	}
	return int32(rand.Uint32())
}

// withDefaults fills zero-valued intervals and the logger.
func (c Config) withDefaults() *Config {
	if c.SendPollInterval <= 0 {
		c.SendPollInterval = sendPollInterval
	}
	if c.FinishPollInterval <= 0 {
		c.FinishPollInterval = finishPollInterval
	}
	if c.DropSeed == 0 {
		c.DropSeed = uint64(thunks.TimeNow().UnixNano())
	}
	if c.Log == nil {
		c.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &c
}
