package gudp

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"gudp.dev/gudp/transport"
)

// receiver is the receive engine. It reads every datagram arriving on the
// socket, feeds ACKs to the send side and buffers BSN, DATA and FIN packets
// on the receive side, acknowledging each of them.
type receiver struct {
	conn   transport.UDPLike
	send   *table
	recv   *table
	sender *sender
	drops  *dropper
	cfg    *Config
	log    *logrus.Entry

	closed func() bool
}

func newReceiver(conn transport.UDPLike, send, recv *table, s *sender, drops *dropper, cfg *Config, log *logrus.Entry, closed func() bool) *receiver {
	return &receiver{
		conn:   conn,
		send:   send,
		recv:   recv,
		sender: s,
		drops:  drops,
		cfg:    cfg,
		log:    log.WithField("engine", "receive"),
		closed: closed,
	}
}

// run reads until the connection is closed.
func (r *receiver) run() error {
	r.log.Info("receive engine started")
	defer r.log.Info("receive engine stopped")

	buf := make([]byte, MaxDatagramLen)
	var backoff time.Duration
	for {
		n, _, _, addr, err := r.conn.ReadMsgUDP(buf, nil)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || r.closed() {
				return nil
			}
			backoff = min(max(2*backoff, minReadBackoff), maxReadBackoff)
			r.log.WithError(err).WithField("backoff", backoff).Warn("read failed")
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		p, err := Decode(buf[:n], addr)
		if err != nil {
			r.log.WithError(err).WithField("from", addr).Debug("discarding datagram")
			continue
		}
		r.log.WithFields(logrus.Fields{
			"from": addr,
			"type": p.Type,
			"seq":  p.Seq,
		}).Trace("received packet")
		r.handle(p)
	}
}

func (r *receiver) handle(p *Packet) {
	switch p.Type {
	case TypeACK:
		r.handleAck(p)
	case TypeBSN:
		r.handleBSN(p)
	case TypeDATA, TypeFIN:
		r.handleData(p)
	default:
		r.log.WithField("type", p.Type).Debug("ignoring unknown packet type")
	}
}

// handleAck applies a cumulative ACK: everything below p.Seq has arrived.
func (r *receiver) handleAck(p *Packet) {
	t := r.send
	t.m.Lock()
	defer t.m.Unlock()

	ep := t.get(p.Addr)
	if ep == nil {
		r.log.WithError(ErrNoEndpoint).WithField("from", p.Addr).Debug("ignoring ack")
		return
	}
	if p.Seq < ep.base || p.Seq > ep.nextSeq {
		ep.log.WithFields(logrus.Fields{
			"ack":     p.Seq,
			"base":    ep.base,
			"nextSeq": ep.nextSeq,
		}).Trace("ignoring ack outside window")
		return
	}
	ep.removeThroughAck(p.Seq - 1)
	ep.base = p.Seq
	ep.state = StateRcv
	r.sender.visit(ep)
	t.cond.Broadcast()
}

// handleBSN opens a transfer. A BSN for a transfer that is still running is
// a retransmission and only gets acknowledged again.
func (r *receiver) handleBSN(p *Packet) {
	t := r.recv
	t.m.Lock()
	defer t.m.Unlock()

	ep := t.get(p.Addr)
	switch {
	case ep == nil:
		ep = newEndpoint(p.Addr, r.cfg, &t.m, r.cfg.Log.WithField("dir", "recv"))
		ep.expectedSeq = p.Seq + 1
		ep.enqueue(p)
		t.put(ep)
		ep.log.WithField("seq", p.Seq).Debug("transfer opened")
		t.cond.Broadcast()
	case ep.finished:
		ep.finished = false
		ep.expectedSeq = p.Seq + 1
		ep.enqueue(p)
		ep.log.WithField("seq", p.Seq).Debug("transfer reopened")
		t.cond.Broadcast()
	}
	r.ack(ep)
}

// handleData buffers DATA and FIN packets that fall inside the receive
// window. The expected sequence number advances by one per accepted packet
// whatever its position in the window, and the ACK always carries it.
func (r *receiver) handleData(p *Packet) {
	t := r.recv
	t.m.Lock()
	defer t.m.Unlock()

	ep := t.get(p.Addr)
	if ep == nil {
		r.log.WithFields(logrus.Fields{
			"from": p.Addr,
			"type": p.Type,
		}).Debug("no transfer open, dropping")
		return
	}
	if p.Seq >= ep.expectedSeq && p.Seq < ep.expectedSeq+ep.windowSize {
		ep.enqueue(p)
		ep.expectedSeq++
		if p.Type == TypeFIN {
			ep.finished = true
			ep.log.WithField("seq", p.Seq).Debug("transfer finished")
		}
		t.cond.Broadcast()
	}
	r.ack(ep)
}

// ack sends the cumulative ACK for ep. Write errors are logged; the sender
// retransmits and the next arrival triggers another ACK.
//
// +checklocks:r.recv.m
func (r *receiver) ack(ep *endpoint) {
	p := NewPacket(TypeACK, ep.expectedSeq, nil, ep.remote)
	l := ep.log.WithField("ack", p.Seq)
	if r.drops.drop(ep.remote, TypeACK, ep.dropReceive, ep.chance) {
		l.Trace("dropped ack")
		return
	}
	b, err := p.Encode()
	if err != nil {
		l.WithError(err).Warn("encoding ack")
		return
	}
	if _, _, err := r.conn.WriteMsgUDP(b, nil, ep.remote); err != nil {
		l.WithError(err).Warn("sending ack")
		return
	}
	l.Trace("sent ack")
}
