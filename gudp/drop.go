package gudp

import (
	"fmt"
	"net"
	"strings"

	"gudp.dev/gudp/pkg/readers"
	"gudp.dev/gudp/transport"
)

// DropMode selects which outbound datagrams are deliberately discarded to
// simulate loss. It never changes protocol state, only whether a datagram
// reaches the wire.
type DropMode int

// Drop modes.
const (
	DropNothing DropMode = iota
	DropFirstBSN
	DropFirstData
	DropFirstAck
	DropFirstFin
	DropRandom
	DropAll
)

var dropModeNames = map[DropMode]string{
	DropNothing:   "nothing",
	DropFirstBSN:  "first_bsn",
	DropFirstData: "first_data",
	DropFirstAck:  "first_ack",
	DropFirstFin:  "first_fin",
	DropRandom:    "random",
	DropAll:       "all",
}

func (d DropMode) String() string {
	if s, ok := dropModeNames[d]; ok {
		return strings.ToUpper(s)
	}
	return fmt.Sprintf("DropMode(%d)", int(d))
}

// ParseDropMode accepts the mode names case-insensitively, e.g. "first_data"
// or "RANDOM".
func ParseDropMode(s string) (DropMode, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for mode, name := range dropModeNames {
		if name == want {
			return mode, nil
		}
	}
	return DropNothing, fmt.Errorf("unknown drop mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d DropMode) MarshalText() ([]byte, error) {
	if s, ok := dropModeNames[d]; ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("invalid drop mode %d", int(d))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DropMode) UnmarshalText(b []byte) error {
	mode, err := ParseDropMode(string(b))
	if err != nil {
		return err
	}
	*d = mode
	return nil
}

// firstOf maps the FIRST_* modes to the packet type they target.
func (d DropMode) firstOf() (PacketType, bool) {
	switch d {
	case DropFirstBSN:
		return TypeBSN, true
	case DropFirstData:
		return TypeDATA, true
	case DropFirstAck:
		return TypeACK, true
	case DropFirstFin:
		return TypeFIN, true
	}
	return 0, false
}

// dropper decides the fate of each outbound datagram of one engine. It is
// guarded by the lock of the table the engine writes under.
type dropper struct {
	mode DropMode
	coin *readers.Chance
	// destinations that already lost their FIRST_* datagram
	seen map[string]bool
}

func newDropper(mode DropMode, coin *readers.Chance) *dropper {
	return &dropper{
		mode: mode,
		coin: coin,
		seen: make(map[string]bool),
	}
}

// drop reports whether a datagram of type t to addr should be discarded.
// flagged is the endpoint's own drop flag and chance its loss probability.
// Every datagram is rolled at most once, so under RANDOM a flagged endpoint
// still loses a chance fraction of its traffic.
func (d *dropper) drop(addr *net.UDPAddr, t PacketType, flagged bool, chance float64) bool {
	switch d.mode {
	case DropAll:
		return true
	case DropRandom:
		// one roll covers the endpoint flag too
		return d.coin.Hit(chance)
	default:
		if target, ok := d.mode.firstOf(); ok && target == t {
			key := transport.AddrKey(addr)
			if !d.seen[key] {
				d.seen[key] = true
				return true
			}
		}
	}
	return flagged && d.coin.Hit(chance)
}
