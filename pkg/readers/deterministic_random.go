// Package readers provides seeded, reproducible randomness for loss
// simulation.
package readers

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

var iv = [aes.BlockSize]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
var mask = [aes.BlockSize]byte{0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77}

type ctrReader struct {
	stream cipher.Stream
}

// Read implements io.Reader. The output depends only on the seed and the
// total number of bytes read so far. It cannot fail.
func (c *ctrReader) Read(p []byte) (n int, err error) {
	for i := 0; i < len(p); i += len(mask) {
		chunk := p[i:]
		c.stream.XORKeyStream(chunk, mask[0:min(len(chunk), len(mask))])
	}
	return len(p), nil
}

var _ io.Reader = &ctrReader{}

// DeterministicRandomReader returns a "random" reader keyed by seed, using AES
// in CTR mode with a static IV. The output is the key stream XOR'd with 0x77.
func DeterministicRandomReader(seed uint64) io.Reader {
	return newCTRReader(seed)
}

func newCTRReader(seed uint64) *ctrReader {
	key := [16]byte{}
	binary.LittleEndian.PutUint64(key[:], seed)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		logrus.Panicf("unable to create new aes: %s", err)
	}
	return &ctrReader{
		stream: cipher.NewCTR(block, iv[:]),
	}
}

// Chance is a reproducible biased coin. It is safe for concurrent use.
type Chance struct {
	m sync.Mutex
	r *ctrReader
}

// NewChance returns a coin whose sequence of outcomes is fixed by seed.
func NewChance(seed uint64) *Chance {
	return &Chance{r: newCTRReader(seed)}
}

// Float64 returns the next value in [0, 1).
func (c *Chance) Float64() float64 {
	var buf [8]byte
	c.m.Lock()
	c.r.Read(buf[:])
	c.m.Unlock()
	// 53 bits fill the float64 mantissa exactly
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
}

// Hit returns true with probability p. p <= 0 never hits and p >= 1 always
// hits; neither consumes randomness.
func (c *Chance) Hit(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return c.Float64() < p
}
