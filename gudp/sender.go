package gudp

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"gudp.dev/gudp/transport"
)

// sender is the send engine. It drives the GBN state machine of every
// send-side endpoint and puts BSN, DATA and FIN datagrams on the wire.
type sender struct {
	conn  transport.UDPLike
	table *table
	drops *dropper
	cfg   *Config
	log   *logrus.Entry

	// terminal error of the engine, nil while it runs
	// +checklocks:table.m
	err error
	// +checklocks:table.m
	stopping bool
}

func newSender(conn transport.UDPLike, t *table, drops *dropper, cfg *Config, log *logrus.Entry) *sender {
	return &sender{
		conn:  conn,
		table: t,
		drops: drops,
		cfg:   cfg,
		log:   log.WithField("engine", "send"),
	}
}

// run is the worker loop. It returns nil when stopped and the terminal error
// otherwise.
func (s *sender) run() error {
	t := s.table
	t.m.Lock()
	defer t.m.Unlock()

	s.log.Info("send engine started")
	defer s.log.Info("send engine stopped")

	for {
		if s.err != nil {
			t.cond.Broadcast()
			return s.err
		}
		if s.stopping {
			return nil
		}

		for _, ep := range t.snapshot() {
			s.visit(ep)
			if s.err != nil {
				break
			}
			if ep.finished && ep.empty() {
				s.retire(ep)
			}
		}

		// Finish waits on the same condition
		t.cond.Broadcast()
		if s.err != nil || s.stopping {
			continue
		}
		t.waitTimeout(s.cfg.SendPollInterval)
	}
}

// visit advances ep until it settles in StateWait, either because it sent
// what the window allows or because it has nothing queued. It is called from
// run and from the receive engine after an ACK, always with the table lock
// held.
//
// +checklocks:s.table.m
func (s *sender) visit(ep *endpoint) {
	if s.err != nil || s.stopping {
		return
	}
	for {
		prev := ep.state
		next, e := transition(prev, window{
			base:     ep.base,
			nextSeq:  ep.nextSeq,
			last:     ep.last,
			size:     ep.windowSize,
			retry:    ep.retry,
			maxRetry: ep.maxRetry,
			queued:   !ep.empty(),
		})
		if next != prev {
			ep.log.WithFields(logrus.Fields{
				"from": prev,
				"to":   next,
			}).Trace("transition")
		}
		if err := s.apply(ep, e); err != nil {
			s.fail(err)
			return
		}
		ep.state = next
		if next == StateWait && (prev == StateSend || e.idle) {
			return
		}
	}
}

// retire removes an endpoint whose transfer has been fully acknowledged.
//
// +checklocks:s.table.m
func (s *sender) retire(ep *endpoint) {
	ep.stopTimer()
	s.table.delete(ep)
	ep.log.WithFields(logrus.Fields{
		"base": ep.base,
		"last": ep.last,
	}).Debug("transfer complete")
}

// +checklocks:s.table.m
func (s *sender) apply(ep *endpoint, e effects) error {
	if e.fatal {
		ep.log.WithFields(logrus.Fields{
			"base":  ep.base,
			"retry": ep.retry,
		}).Error("giving up after repeated timeouts")
		return ErrExhaustedRetries
	}
	for _, seq := range e.transmit {
		p := ep.lookup(seq)
		if p == nil {
			continue
		}
		if err := s.transmit(ep, p); err != nil {
			return err
		}
	}
	switch e.timer {
	case timerArm:
		ep.startTimer(s.table.cond.Broadcast)
	case timerStop:
		ep.stopTimer()
	}
	ep.nextSeq = e.nextSeq
	if e.resetRetry {
		ep.retry = 0
	}
	if e.incRetry {
		ep.retry++
	}
	return nil
}

// +checklocks:s.table.m
func (s *sender) transmit(ep *endpoint, p *Packet) error {
	l := ep.log.WithFields(logrus.Fields{
		"type": p.Type,
		"seq":  p.Seq,
	})
	if s.drops.drop(ep.remote, p.Type, ep.dropSend, ep.chance) {
		l.Trace("dropped packet")
		return nil
	}
	b, err := p.Encode()
	if err != nil {
		return err
	}
	if _, _, err := s.conn.WriteMsgUDP(b, nil, ep.remote); err != nil {
		return errors.Wrapf(err, "gudp: write %s", p)
	}
	l.Trace("sent packet")
	return nil
}

// fail stops the engine for good. Pending timers are left to expire; nothing
// acts on them any more.
//
// +checklocks:s.table.m
func (s *sender) fail(err error) {
	if s.err == nil {
		s.err = err
	}
	s.table.cond.Broadcast()
}

// stop asks run to return and disarms every endpoint timer.
func (s *sender) stop() {
	t := s.table
	t.m.Lock()
	defer t.m.Unlock()
	s.stopping = true
	for _, ep := range t.snapshot() {
		ep.stopTimer()
	}
	t.cond.Broadcast()
}

// transportErr returns the terminal error callers should see. Exhausted
// retries are not reported here: the affected transfers simply never
// complete.
//
// +checklocks:s.table.m
func (s *sender) transportErr() error {
	if s.err == nil || errors.Is(s.err, ErrExhaustedRetries) {
		return nil
	}
	return s.err
}
