package gudp

import (
	"net"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"gudp.dev/gudp/transport"
)

// table is a registry of endpoints keyed by remote address. Its lock guards
// both the membership and every field of the endpoints it holds; cond is
// broadcast whenever either changes in a way a waiter may care about.
type table struct {
	m    sync.Mutex
	cond *sync.Cond
	// +checklocks:m
	eps map[string]*endpoint
}

func newTable() *table {
	t := &table{
		eps: make(map[string]*endpoint),
	}
	t.cond = sync.NewCond(&t.m)
	return t
}

// +checklocks:t.m
func (t *table) get(addr *net.UDPAddr) *endpoint {
	return t.eps[transport.AddrKey(addr)]
}

// +checklocks:t.m
func (t *table) put(ep *endpoint) {
	t.eps[transport.AddrKey(ep.remote)] = ep
}

// +checklocks:t.m
func (t *table) delete(ep *endpoint) {
	key := transport.AddrKey(ep.remote)
	if t.eps[key] == ep {
		delete(t.eps, key)
	}
}

// snapshot returns the endpoints ordered by address key, so every pass over
// the table visits destinations in the same order.
//
// +checklocks:t.m
func (t *table) snapshot() []*endpoint {
	keys := maps.Keys(t.eps)
	slices.Sort(keys)
	out := make([]*endpoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.eps[k])
	}
	return out
}

// waitTimeout blocks on cond until a broadcast or until d elapses, whichever
// comes first.
//
// +checklocks:t.m
func (t *table) waitTimeout(d time.Duration) {
	timer := time.AfterFunc(d, t.broadcast)
	t.cond.Wait()
	timer.Stop()
}

// broadcast wakes every waiter. It takes the lock, so it must not be called
// with the lock held.
func (t *table) broadcast() {
	t.m.Lock()
	t.cond.Broadcast()
	t.m.Unlock()
}
