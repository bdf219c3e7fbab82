package gudp

// window is the part of a send-side endpoint the GBN transition reads.
type window struct {
	base     int32
	nextSeq  int32
	last     int32
	size     int32
	retry    int
	maxRetry int
	queued   bool
}

type timerOp int

const (
	timerKeep timerOp = iota
	// timerArm (re)starts the timer for the oldest outstanding packet.
	timerArm
	timerStop
)

// effects are the side effects of one transition. The send engine applies
// them in field order: transmissions first, then the timer, then counters.
type effects struct {
	// sequence numbers to put on the wire, in order
	transmit   []int32
	timer      timerOp
	nextSeq    int32
	resetRetry bool
	incRetry   bool
	// idle means the endpoint has nothing queued
	idle bool
	// fatal means the retry budget is spent and the engine must stop
	fatal bool
}

// transition is the GBN sender state machine. Events are recorded in the
// state before the call: an arriving ACK moves the endpoint to StateRcv, an
// expiring timer to StateTimeout, and enqueued data is observed in StateWait.
// transition does not touch the endpoint; it returns the next state and what
// to do.
func transition(s State, w window) (State, effects) {
	e := effects{nextSeq: w.nextSeq}

	switch s {
	case StateInit:
		return StateWait, e

	case StateWait:
		if w.queued {
			return StateSend, e
		}
		e.idle = true
		return StateWait, e

	case StateSend:
		for n := w.nextSeq; n < w.base+w.size && n <= w.last; n++ {
			e.transmit = append(e.transmit, n)
			// the timer only covers the oldest outstanding packet
			if w.base == n {
				e.timer = timerArm
			}
			e.nextSeq = n + 1
		}
		return StateWait, e

	case StateRcv:
		if w.base == w.nextSeq {
			e.timer = timerStop
			e.resetRetry = true
		} else {
			e.timer = timerArm
		}
		return StateSend, e

	case StateTimeout:
		if w.retry >= w.maxRetry {
			e.fatal = true
			return StateTimeout, e
		}
		for n := w.base; n < w.nextSeq; n++ {
			e.transmit = append(e.transmit, n)
		}
		e.timer = timerArm
		e.incRetry = true
		return StateSend, e
	}

	// unknown states restart the machine
	return StateInit, e
}
