package gudp

import (
	"bytes"
	"math"
	"net"
	"testing"

	"github.com/pkg/errors"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

var testAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7777}

func TestPacketRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		{0x42},
		bytes.Repeat([]byte{0xab}, MaxPayloadLen),
	}
	seqs := []int32{0, 1, -1, math.MaxInt32, math.MinInt32}

	for _, typ := range []PacketType{TypeDATA, TypeBSN, TypeACK, TypeFIN} {
		for _, seq := range seqs {
			for _, payload := range payloads {
				if typ != TypeDATA && payload != nil {
					continue
				}
				p := NewPacket(typ, seq, payload, testAddr)
				b, err := p.Encode()
				assert.NilError(t, err)
				assert.Check(t, is.Len(b, HeaderLen+len(payload)))

				got, err := Decode(b, testAddr)
				assert.NilError(t, err)
				assert.DeepEqual(t, got, p)
			}
		}
	}
}

func TestPacketWireLayout(t *testing.T) {
	p := NewPacket(TypeFIN, -2, nil, testAddr)
	b, err := p.Encode()
	assert.NilError(t, err)
	assert.DeepEqual(t, b, []byte{0, 1, 0, 4, 0xff, 0xff, 0xff, 0xfe})

	p = NewPacket(TypeDATA, 0x01020304, []byte("hi"), testAddr)
	b, err = p.Encode()
	assert.NilError(t, err)
	assert.DeepEqual(t, b, []byte{0, 1, 0, 1, 1, 2, 3, 4, 'h', 'i'})
}

func TestPacketTooLarge(t *testing.T) {
	p := NewPacket(TypeDATA, 1, make([]byte, MaxPayloadLen+1), testAddr)
	_, err := p.Encode()
	assert.Check(t, errors.Is(err, ErrPayloadTooLarge))
}

func TestDecodeShortDatagram(t *testing.T) {
	for n := 0; n < HeaderLen; n++ {
		_, err := Decode(make([]byte, n), testAddr)
		assert.Check(t, errors.Is(err, ErrFraming), "length %d", n)
	}
}

func TestDecodeAcceptsUnknownFields(t *testing.T) {
	b := []byte{0, 9, 0, 77, 0, 0, 0, 5, 'x'}
	p, err := Decode(b, testAddr)
	assert.NilError(t, err)
	assert.Equal(t, p.Version, uint16(9))
	assert.Equal(t, p.Type, PacketType(77))
	assert.Equal(t, p.Seq, int32(5))
	assert.DeepEqual(t, p.Payload, []byte("x"))
	assert.Equal(t, p.Type.String(), "TYPE(77)")
}

func TestDecodeCopiesPayload(t *testing.T) {
	b := []byte{0, 1, 0, 1, 0, 0, 0, 1, 'a', 'b'}
	p, err := Decode(b, testAddr)
	assert.NilError(t, err)
	b[8] = 'z'
	assert.DeepEqual(t, p.Payload, []byte("ab"))
}
