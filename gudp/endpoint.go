package gudp

import (
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gudp.dev/gudp/common"
)

// State is the GBN sender state of a send-side endpoint.
type State int

// Sender states. Receive-side endpoints stay in StateInit.
const (
	StateInit State = iota
	StateWait
	StateSend
	StateRcv
	StateTimeout
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateWait:
		return "WAIT"
	case StateSend:
		return "SEND"
	case StateRcv:
		return "RCV"
	case StateTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// endpoint is the control block for one direction of traffic with one remote
// address. Every field is guarded by the lock of the table that holds the
// endpoint.
type endpoint struct {
	remote *net.UDPAddr
	queue  packetQueue

	// GBN sender
	base    int32
	nextSeq int32
	last    int32

	// GBN receiver
	expectedSeq int32

	windowSize int32
	timeout    time.Duration
	maxRetry   int
	retry      int

	finished bool
	state    State
	timer    *common.Deadline

	// loss simulation
	dropSend    bool
	dropReceive bool
	chance      float64

	cfg *Config
	log *logrus.Entry
}

// newEndpoint returns an endpoint for remote with tunables taken from cfg.
// Its timer synchronizes on l, the lock of the owning table.
func newEndpoint(remote *net.UDPAddr, cfg *Config, l sync.Locker, log *logrus.Entry) *endpoint {
	ep := &endpoint{
		remote: remote,
		timer:  common.NewDeadline(l),
		cfg:    cfg,
		log:    log.WithField("remote", remote.String()),
	}
	ep.reset()
	return ep
}

// reset empties the queue and restores every parameter to its default.
func (ep *endpoint) reset() {
	ep.clear()
	ep.windowSize = ep.cfg.WindowSize
	ep.timeout = ep.cfg.Timeout
	ep.maxRetry = ep.cfg.MaxRetry
	ep.dropSend = ep.cfg.DropSend
	ep.dropReceive = ep.cfg.DropReceive
	ep.chance = ep.cfg.DropChance
	ep.state = StateInit
}

// clear empties the queue and zeroes the sequence counters.
func (ep *endpoint) clear() {
	ep.queue.Clear()
	ep.retry = 0
	ep.base = 0
	ep.nextSeq = 0
	ep.last = 0
	ep.expectedSeq = 0
	ep.finished = false
	ep.stopTimer()
}

func (ep *endpoint) enqueue(p *Packet) {
	ep.queue.PushBack(p)
}

// dequeue removes the oldest packet.
func (ep *endpoint) dequeue() *Packet {
	return ep.queue.PopFront()
}

func (ep *endpoint) peek() *Packet {
	return ep.queue.Front()
}

// lookup finds the packet with sequence number seq. The packet stays queued.
func (ep *endpoint) lookup(seq int32) *Packet {
	return ep.queue.Find(seq)
}

func (ep *endpoint) remove(p *Packet) bool {
	return ep.queue.Remove(p)
}

// removeThroughAck drops every queued packet with sequence number at most ack.
// Those packets are known to have been received.
func (ep *endpoint) removeThroughAck(ack int32) int {
	return ep.queue.RemoveThrough(ack)
}

func (ep *endpoint) empty() bool {
	return ep.queue.Len() == 0
}

// startTimer arms the retransmission timer, replacing any pending one. When it
// fires the endpoint enters StateTimeout and onFire runs, both with the table
// lock held. The timer does not re-arm itself.
func (ep *endpoint) startTimer(onFire func()) {
	ep.timer.Arm(ep.timeout, func() {
		ep.log.WithField("retry", ep.retry).Debug("timeout")
		ep.state = StateTimeout
		if onFire != nil {
			onFire()
		}
	})
}

func (ep *endpoint) stopTimer() {
	ep.timer.Stop()
}

// EndpointStats is a point-in-time copy of an endpoint's control block.
type EndpointStats struct {
	Remote      *net.UDPAddr
	Base        int32
	NextSeq     int32
	Last        int32
	ExpectedSeq int32
	WindowSize  int32
	Queued      int
	Retry       int
	Finished    bool
	State       State
}

func (ep *endpoint) stats() EndpointStats {
	return EndpointStats{
		Remote:      ep.remote,
		Base:        ep.base,
		NextSeq:     ep.nextSeq,
		Last:        ep.last,
		ExpectedSeq: ep.expectedSeq,
		WindowSize:  ep.windowSize,
		Queued:      ep.queue.Len(),
		Retry:       ep.retry,
		Finished:    ep.finished,
		State:       ep.state,
	}
}
