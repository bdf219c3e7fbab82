package gudp

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gotest.tools/assert"
)

func newTestEndpoint(seqs ...int32) (*endpoint, *sync.Mutex) {
	var m sync.Mutex
	ep := newEndpoint(testAddr, DefaultConfig(), &m, logrus.NewEntry(logrus.StandardLogger()))
	for _, s := range seqs {
		ep.enqueue(NewPacket(TypeDATA, s, nil, testAddr))
	}
	return ep, &m
}

func queued(ep *endpoint) []int32 {
	var out []int32
	for n := ep.queue.head; n != nil; n = n.next {
		out = append(out, n.pkt.Seq)
	}
	return out
}

func TestRemoveThroughAck(t *testing.T) {
	ep, _ := newTestEndpoint(10, 11, 12, 13, 14)

	assert.Equal(t, ep.removeThroughAck(9), 0)
	assert.DeepEqual(t, queued(ep), []int32{10, 11, 12, 13, 14})

	assert.Equal(t, ep.removeThroughAck(11), 2)
	assert.DeepEqual(t, queued(ep), []int32{12, 13, 14})

	// idempotent for a repeated ack
	assert.Equal(t, ep.removeThroughAck(11), 0)
	assert.DeepEqual(t, queued(ep), []int32{12, 13, 14})

	assert.Equal(t, ep.removeThroughAck(100), 3)
	assert.Assert(t, ep.empty())
	assert.Assert(t, ep.peek() == nil)
}

func TestRemoveThroughAckNeverPassesAck(t *testing.T) {
	for ack := int32(0); ack < 8; ack++ {
		ep, _ := newTestEndpoint(1, 2, 3, 4, 5, 6)
		ep.removeThroughAck(ack)
		for _, s := range queued(ep) {
			assert.Assert(t, s > ack, "ack %d left %d", ack, s)
		}
	}
}

func TestEndpointQueueOps(t *testing.T) {
	ep, _ := newTestEndpoint(1, 2, 3)

	p := ep.lookup(2)
	assert.Assert(t, p != nil)
	assert.Equal(t, p.Seq, int32(2))
	assert.Assert(t, ep.lookup(7) == nil)

	assert.Assert(t, ep.remove(p))
	assert.Assert(t, !ep.remove(p))
	assert.DeepEqual(t, queued(ep), []int32{1, 3})

	assert.Equal(t, ep.dequeue().Seq, int32(1))
	assert.Equal(t, ep.peek().Seq, int32(3))
	assert.Equal(t, ep.queue.Len(), 1)
}

func TestEndpointReset(t *testing.T) {
	ep, m := newTestEndpoint(1, 2)
	ep.base = 1
	ep.nextSeq = 3
	ep.last = 2
	ep.expectedSeq = 9
	ep.retry = 4
	ep.finished = true
	ep.windowSize = 50
	ep.state = StateWait

	m.Lock()
	ep.startTimer(nil)
	ep.reset()
	armed := ep.timer.Armed()
	m.Unlock()

	assert.Assert(t, !armed)
	assert.Assert(t, ep.empty())
	assert.DeepEqual(t, ep.stats(), EndpointStats{
		Remote:     testAddr,
		WindowSize: DefaultWindowSize,
		State:      StateInit,
	})
}

func TestEndpointTimerSetsTimeout(t *testing.T) {
	ep, m := newTestEndpoint(1)
	ep.timeout = 10 * time.Millisecond
	fired := make(chan State, 1)

	m.Lock()
	ep.state = StateWait
	ep.startTimer(func() {
		fired <- ep.state
	})
	m.Unlock()

	select {
	case s := <-fired:
		assert.Equal(t, s, StateTimeout)
	case <-time.After(5 * time.Second):
		t.Fatal("timer never fired")
	}

	m.Lock()
	defer m.Unlock()
	assert.Assert(t, !ep.timer.Armed())
}

func TestEndpointStopTimer(t *testing.T) {
	ep, m := newTestEndpoint(1)
	ep.timeout = 10 * time.Millisecond

	m.Lock()
	ep.state = StateWait
	ep.startTimer(func() {
		t.Error("stopped timer fired")
	})
	ep.stopTimer()
	m.Unlock()

	time.Sleep(50 * time.Millisecond)
	m.Lock()
	defer m.Unlock()
	assert.Equal(t, ep.state, StateWait)
}
