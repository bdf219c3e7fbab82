package gudp

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"gudp.dev/gudp/pkg/readers"
	"gudp.dev/gudp/transport"
)

// Socket provides reliable, ordered delivery of datagrams over an unreliable
// datagram socket, with independent transfers per remote address. All
// methods are safe for concurrent use.
type Socket struct {
	conn transport.UDPLike
	cfg  *Config

	send *table
	recv *table

	sender   *sender
	receiver *receiver

	group     errgroup.Group
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewSocket wraps conn and starts the send and receive engines. The Socket
// owns conn from then on and closes it in Close. A nil cfg uses
// DefaultConfig.
func NewSocket(conn transport.UDPLike, cfg *Config) (*Socket, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "gudp: invalid config")
	}
	c := cfg.withDefaults()
	c.Log = c.Log.WithField("local", conn.LocalAddr().String())

	coin := readers.NewChance(c.DropSeed)
	s := &Socket{
		conn: conn,
		cfg:  c,
		send: newTable(),
		recv: newTable(),
	}
	s.sender = newSender(conn, s.send, newDropper(c.SenderDrop, coin), c, c.Log)
	s.receiver = newReceiver(conn, s.send, s.recv, s.sender, newDropper(c.ReceiverDrop, coin), c, c.Log, s.closed.Load)

	s.group.Go(s.sender.run)
	s.group.Go(s.receiver.run)
	return s, nil
}

// LocalAddr returns the address of the underlying socket.
func (s *Socket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Send queues payload for reliable delivery to the given address and returns
// without waiting for it to be sent. The first Send to an address, or the
// first after its previous transfer completed, begins a new transfer.
func (s *Socket) Send(payload []byte, to *net.UDPAddr) error {
	if len(payload) > MaxPayloadLen {
		return errors.Wrapf(ErrPayloadTooLarge, "%d bytes", len(payload))
	}
	if s.closed.Load() {
		return ErrClosed
	}

	t := s.send
	t.m.Lock()
	defer t.m.Unlock()

	if err := s.sender.transportErr(); err != nil {
		return err
	}
	ep := t.get(to)
	if ep != nil && ep.finished && ep.empty() {
		s.sender.retire(ep)
		ep = nil
	}
	if ep == nil {
		ep = s.open(to)
	}
	ep.last++
	ep.enqueue(NewPacket(TypeDATA, ep.last, append([]byte(nil), payload...), ep.remote))
	t.cond.Broadcast()
	return nil
}

// open creates the send-side endpoint for a new transfer to addr and queues
// its BSN.
//
// +checklocks:s.send.m
func (s *Socket) open(to *net.UDPAddr) *endpoint {
	ep := newEndpoint(to, s.cfg, &s.send.m, s.cfg.Log.WithField("dir", "send"))
	isn := s.cfg.initialSeq()
	ep.base = isn
	ep.nextSeq = isn
	ep.last = isn
	ep.enqueue(NewPacket(TypeBSN, isn, nil, ep.remote))
	s.send.put(ep)
	ep.log.WithField("isn", isn).Debug("transfer opened")
	return ep
}

// Receive blocks until a payload is available and returns it with the
// address it came from. If from is non-nil only that address is considered.
// The end of a transfer is reported as io.EOF together with the sender's
// address; the next transfer from that sender may then be received. Receive
// returns ctx.Err() when ctx is done and ErrClosed once the Socket is closed.
func (s *Socket) Receive(ctx context.Context, from *net.UDPAddr) ([]byte, *net.UDPAddr, error) {
	t := s.recv
	stop := context.AfterFunc(ctx, t.broadcast)
	defer stop()

	t.m.Lock()
	defer t.m.Unlock()

	for {
		if s.closed.Load() {
			return nil, nil, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if ep := s.ready(from); ep != nil {
			p := ep.dequeue()
			switch p.Type {
			case TypeBSN:
				continue
			case TypeFIN:
				return nil, ep.remote, io.EOF
			default:
				return p.Payload, ep.remote, nil
			}
		}
		t.cond.Wait()
	}
}

// ready returns a receive-side endpoint with buffered packets.
//
// +checklocks:s.recv.m
func (s *Socket) ready(from *net.UDPAddr) *endpoint {
	if from != nil {
		if ep := s.recv.get(from); ep != nil && !ep.empty() {
			return ep
		}
		return nil
	}
	for _, ep := range s.recv.snapshot() {
		if !ep.empty() {
			return ep
		}
	}
	return nil
}

// Finish ends every open transfer and blocks until all of them, including
// data queued before the call, have been acknowledged by their receivers.
// If retransmissions to some destination are exhausted Finish only returns
// once ctx is done.
func (s *Socket) Finish(ctx context.Context) error {
	t := s.send
	stop := context.AfterFunc(ctx, t.broadcast)
	defer stop()

	t.m.Lock()
	defer t.m.Unlock()

	if s.closed.Load() {
		return ErrClosed
	}
	for _, ep := range t.snapshot() {
		if ep.finished {
			continue
		}
		ep.last++
		ep.enqueue(NewPacket(TypeFIN, ep.last, nil, ep.remote))
		ep.finished = true
		ep.log.WithField("seq", ep.last).Debug("finishing transfer")
	}
	t.cond.Broadcast()

	for {
		if err := s.sender.transportErr(); err != nil {
			return err
		}
		if s.drained() {
			return nil
		}
		if s.closed.Load() {
			return ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		t.waitTimeout(s.cfg.FinishPollInterval)
	}
}

// +checklocks:s.send.m
func (s *Socket) drained() bool {
	for _, ep := range s.send.snapshot() {
		if !ep.finished || !ep.empty() {
			return false
		}
	}
	return true
}

// Err returns the error that stopped the send engine, if any.
func (s *Socket) Err() error {
	s.send.m.Lock()
	defer s.send.m.Unlock()
	return s.sender.err
}

// SendStats reports the send-side state of the transfer to addr.
func (s *Socket) SendStats(addr *net.UDPAddr) (EndpointStats, bool) {
	return tableStats(s.send, addr)
}

// RecvStats reports the receive-side state of the transfer from addr.
func (s *Socket) RecvStats(addr *net.UDPAddr) (EndpointStats, bool) {
	return tableStats(s.recv, addr)
}

func tableStats(t *table, addr *net.UDPAddr) (EndpointStats, bool) {
	t.m.Lock()
	defer t.m.Unlock()
	ep := t.get(addr)
	if ep == nil {
		return EndpointStats{}, false
	}
	return ep.stats(), true
}

// Close stops both engines and closes the underlying socket. Queued data
// that has not been acknowledged is discarded; call Finish first to wait
// for it. Blocked Receive and Finish calls return ErrClosed.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.sender.stop()
		s.send.broadcast()
		s.recv.broadcast()

		s.recv.m.Lock()
		for _, ep := range s.recv.snapshot() {
			ep.stopTimer()
		}
		s.recv.m.Unlock()

		err = s.conn.Close()
		if werr := s.group.Wait(); werr != nil {
			s.cfg.Log.WithError(werr).Debug("engine exited with error")
		}
		s.cfg.Log.Info("socket closed")
	})
	return err
}
