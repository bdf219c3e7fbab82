// Package transport provides the unreliable datagram service GUDP runs over.
package transport

import (
	"net"

	"github.com/pkg/errors"
)

// UDPLike is the datagram service used by a GUDP socket: send and receive of
// raw addressed byte blocks, with no delivery guarantees. *net.UDPConn
// implements it.
type UDPLike interface {
	ReadMsgUDP(b, oob []byte) (n, oobn, flags int, addr *net.UDPAddr, err error)
	WriteMsgUDP(b, oob []byte, addr *net.UDPAddr) (n, oobn int, err error)
	LocalAddr() net.Addr
	Close() error
}

var _ UDPLike = &net.UDPConn{}

// Listen binds a UDP socket on address, a "host:port" string.
func Listen(address string) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %q", address)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %q", address)
	}
	return conn, nil
}

// Resolve parses a "host:port" string into a UDP address.
func Resolve(address string) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %q", address)
	}
	return addr, nil
}

// EqualUDPAddress returns true if the two net.UDPAddrs have the same IP, Port,
// and Zone.
func EqualUDPAddress(a, b *net.UDPAddr) bool {
	if a.Port != b.Port {
		return false
	}
	if !a.IP.Equal(b.IP) {
		return false
	}
	if a.Zone != b.Zone {
		return false
	}
	return true
}

// AddrKey returns the identity used to key per-peer state. IPv4 and
// IPv4-mapped IPv6 forms of the same address produce the same key.
func AddrKey(a *net.UDPAddr) string {
	return a.String()
}
