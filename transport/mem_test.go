package transport

import (
	"errors"
	"net"
	"sync"
	"testing"

	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

func makeMemPair(t *testing.T) (n *MemNetwork, c1, c2 *MemConn) {
	n = NewMemNetwork()
	c1, err := n.Listen(nil)
	assert.NilError(t, err)
	c2, err = n.Listen(nil)
	assert.NilError(t, err)
	return n, c1, c2
}

func TestMemDelivery(t *testing.T) {
	_, c1, c2 := makeMemPair(t)
	defer c1.Close()
	defer c2.Close()

	for i := 0; i < 10; i++ {
		n, _, err := c1.WriteMsgUDP([]byte{byte(i), 1, 2}, nil, c2.UDPAddr())
		assert.NilError(t, err)
		assert.Equal(t, n, 3)
	}

	buf := make([]byte, 16)
	for i := 0; i < 10; i++ {
		n, _, _, from, err := c2.ReadMsgUDP(buf, nil)
		assert.NilError(t, err)
		assert.Equal(t, n, 3)
		assert.Equal(t, buf[0], byte(i))
		assert.Assert(t, EqualUDPAddress(from, c1.UDPAddr()))
	}
}

func TestMemTruncates(t *testing.T) {
	_, c1, c2 := makeMemPair(t)
	defer c1.Close()
	defer c2.Close()

	_, _, err := c1.WriteMsgUDP([]byte("abcdef"), nil, c2.UDPAddr())
	assert.NilError(t, err)

	buf := make([]byte, 4)
	n, _, _, _, err := c2.ReadMsgUDP(buf, nil)
	assert.NilError(t, err)
	assert.Equal(t, n, 4)
	assert.Equal(t, string(buf), "abcd")
}

func TestMemFilter(t *testing.T) {
	n, c1, c2 := makeMemPair(t)
	defer c1.Close()
	defer c2.Close()

	n.SetFilter(func(from, to *net.UDPAddr, b []byte) bool {
		return b[0]%2 == 0
	})
	for i := 0; i < 4; i++ {
		_, _, err := c1.WriteMsgUDP([]byte{byte(i)}, nil, c2.UDPAddr())
		assert.NilError(t, err)
	}

	buf := make([]byte, 1)
	_, _, _, _, err := c2.ReadMsgUDP(buf, nil)
	assert.NilError(t, err)
	assert.Equal(t, buf[0], byte(0))
	_, _, _, _, err = c2.ReadMsgUDP(buf, nil)
	assert.NilError(t, err)
	assert.Equal(t, buf[0], byte(2))
}

func TestMemUnknownDestination(t *testing.T) {
	n := NewMemNetwork()
	c, err := n.Listen(nil)
	assert.NilError(t, err)
	defer c.Close()

	nowhere := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
	written, _, err := c.WriteMsgUDP([]byte("lost"), nil, nowhere)
	assert.NilError(t, err)
	assert.Equal(t, written, 4)
}

func TestMemAddressInUse(t *testing.T) {
	n := NewMemNetwork()
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
	c, err := n.Listen(addr)
	assert.NilError(t, err)

	_, err = n.Listen(addr)
	assert.Check(t, is.ErrorContains(err, "already in use"))

	c.Close()
	c2, err := n.Listen(addr)
	assert.NilError(t, err)
	c2.Close()
}

func TestMemCloseUnblocksRead(t *testing.T) {
	_, c1, c2 := makeMemPair(t)
	defer c2.Close()

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, _, _, err := c1.ReadMsgUDP(make([]byte, 8), nil)
		assert.Check(t, errors.Is(err, net.ErrClosed))
	}()

	assert.NilError(t, c1.Close())
	assert.NilError(t, c1.Close())
	wg.Wait()

	_, _, err := c1.WriteMsgUDP([]byte("x"), nil, c2.UDPAddr())
	assert.Check(t, errors.Is(err, net.ErrClosed))
}

func TestEqualUDPAddress(t *testing.T) {
	a := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 5}
	b := &net.UDPAddr{IP: net.ParseIP("::ffff:10.0.0.1"), Port: 5}
	c := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 6}
	assert.Assert(t, EqualUDPAddress(a, b))
	assert.Assert(t, !EqualUDPAddress(a, c))
	assert.Equal(t, AddrKey(a), AddrKey(b))
}
