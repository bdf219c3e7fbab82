package gudp

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// Version is the only GUDP protocol version.
const Version uint16 = 1

// Wire size constants.
const (
	HeaderLen      = 8
	MaxPayloadLen  = 1000
	MaxDatagramLen = HeaderLen + MaxPayloadLen
)

// header field offsets
const (
	offsetVersion = 0
	offsetType    = 2
	offsetSeq     = 4
)

// PacketType identifies the four GUDP packet kinds.
type PacketType uint16

// Packet types as they appear on the wire.
const (
	TypeDATA PacketType = 1
	TypeBSN  PacketType = 2
	TypeACK  PacketType = 3
	TypeFIN  PacketType = 4
)

func (t PacketType) String() string {
	switch t {
	case TypeDATA:
		return "DATA"
	case TypeBSN:
		return "BSN"
	case TypeACK:
		return "ACK"
	case TypeFIN:
		return "FIN"
	default:
		return fmt.Sprintf("TYPE(%d)", uint16(t))
	}
}

// Packet is a decoded GUDP datagram together with the peer it is going to or
// came from.
type Packet struct {
	Version uint16
	Type    PacketType
	Seq     int32
	Payload []byte
	Addr    *net.UDPAddr
}

// NewPacket builds a packet of the current protocol version.
func NewPacket(t PacketType, seq int32, payload []byte, addr *net.UDPAddr) *Packet {
	return &Packet{
		Version: Version,
		Type:    t,
		Seq:     seq,
		Payload: payload,
		Addr:    addr,
	}
}

func (p *Packet) String() string {
	return fmt.Sprintf("Packet{Type:%s, Seq:%d, Len:%d}", p.Type, p.Seq, len(p.Payload))
}

// Encode serializes the header and payload. The payload length is implied by
// the datagram length.
func (p *Packet) Encode() ([]byte, error) {
	if len(p.Payload) > MaxPayloadLen {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "%d bytes", len(p.Payload))
	}
	b := make([]byte, HeaderLen+len(p.Payload))
	binary.BigEndian.PutUint16(b[offsetVersion:], p.Version)
	binary.BigEndian.PutUint16(b[offsetType:], uint16(p.Type))
	binary.BigEndian.PutUint32(b[offsetSeq:], uint32(p.Seq))
	copy(b[HeaderLen:], p.Payload)
	return b, nil
}

// Decode parses a datagram received from addr. Only the length is checked;
// unknown versions and types are returned as-is.
func Decode(b []byte, addr *net.UDPAddr) (*Packet, error) {
	if len(b) < HeaderLen {
		return nil, errors.Wrapf(ErrFraming, "%d bytes", len(b))
	}
	p := &Packet{
		Version: binary.BigEndian.Uint16(b[offsetVersion:]),
		Type:    PacketType(binary.BigEndian.Uint16(b[offsetType:])),
		Seq:     int32(binary.BigEndian.Uint32(b[offsetSeq:])),
		Addr:    addr,
	}
	if len(b) > HeaderLen {
		p.Payload = append([]byte(nil), b[HeaderLen:]...)
	}
	return p, nil
}
