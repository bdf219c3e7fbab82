package transport

import (
	"fmt"
	"net"
	"sync"
)

// capacity of each in-memory receive queue, in datagrams
const memQueueLen = 1 << 12

// MemNetwork is an in-memory datagram network. Datagrams are delivered in
// order unless Filter drops them or the receiver's queue is full, in which
// case they are silently lost, as on a real UDP path. It is mainly used for
// tests.
type MemNetwork struct {
	m sync.Mutex
	// +checklocks:m
	conns map[string]*MemConn
	// +checklocks:m
	nextPort int
	// +checklocks:m
	filter func(from, to *net.UDPAddr, b []byte) bool
}

type memMsg struct {
	b    []byte
	from *net.UDPAddr
}

// MemConn is one bound address on a MemNetwork.
type MemConn struct {
	network   *MemNetwork
	addr      *net.UDPAddr
	recv      chan memMsg
	closed    chan struct{}
	closeOnce sync.Once
}

var _ UDPLike = &MemConn{}

// NewMemNetwork returns an empty network.
func NewMemNetwork() *MemNetwork {
	return &MemNetwork{
		conns:    make(map[string]*MemConn),
		nextPort: 40000,
	}
}

// SetFilter installs f to inspect every datagram before delivery. Returning
// false drops the datagram. A nil f delivers everything.
func (n *MemNetwork) SetFilter(f func(from, to *net.UDPAddr, b []byte) bool) {
	n.m.Lock()
	defer n.m.Unlock()
	n.filter = f
}

// Listen binds addr. A nil addr or a zero port picks a free port on
// 127.0.0.1.
func (n *MemNetwork) Listen(addr *net.UDPAddr) (*MemConn, error) {
	n.m.Lock()
	defer n.m.Unlock()

	if addr == nil || addr.Port == 0 {
		addr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: n.nextPort}
		n.nextPort++
	}
	key := AddrKey(addr)
	if _, ok := n.conns[key]; ok {
		return nil, fmt.Errorf("address %s already in use", key)
	}
	c := &MemConn{
		network: n,
		addr:    addr,
		recv:    make(chan memMsg, memQueueLen),
		closed:  make(chan struct{}),
	}
	n.conns[key] = c
	return c, nil
}

func (n *MemNetwork) deliver(from, to *net.UDPAddr, b []byte) {
	n.m.Lock()
	dst, ok := n.conns[AddrKey(to)]
	filter := n.filter
	n.m.Unlock()

	if !ok {
		return
	}
	if filter != nil && !filter(from, to, b) {
		return
	}
	select {
	case dst.recv <- memMsg{b: append([]byte(nil), b...), from: from}:
	default:
	}
}

func (n *MemNetwork) remove(c *MemConn) {
	n.m.Lock()
	defer n.m.Unlock()
	key := AddrKey(c.addr)
	if n.conns[key] == c {
		delete(n.conns, key)
	}
}

// ReadMsgUDP blocks until a datagram arrives or the conn is closed. Datagrams
// longer than b are truncated.
func (c *MemConn) ReadMsgUDP(b, oob []byte) (n, oobn, flags int, addr *net.UDPAddr, err error) {
	select {
	case <-c.closed:
		return 0, 0, 0, nil, net.ErrClosed
	default:
	}
	select {
	case msg := <-c.recv:
		n = copy(b, msg.b)
		return n, 0, 0, msg.from, nil
	case <-c.closed:
		return 0, 0, 0, nil, net.ErrClosed
	}
}

// WriteMsgUDP hands b to the network. Writing to an address nobody listens on
// succeeds and the datagram is lost.
func (c *MemConn) WriteMsgUDP(b, oob []byte, addr *net.UDPAddr) (n, oobn int, err error) {
	select {
	case <-c.closed:
		return 0, 0, net.ErrClosed
	default:
	}
	c.network.deliver(c.addr, addr, b)
	return len(b), 0, nil
}

// LocalAddr returns the bound address.
func (c *MemConn) LocalAddr() net.Addr {
	return c.addr
}

// UDPAddr returns the bound address as a *net.UDPAddr.
func (c *MemConn) UDPAddr() *net.UDPAddr {
	return c.addr
}

// Close unbinds the address and unblocks pending reads. Closing twice is a
// no-op.
func (c *MemConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.network.remove(c)
	})
	return nil
}
