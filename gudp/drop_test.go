package gudp

import (
	"net"
	"testing"

	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"

	"gudp.dev/gudp/pkg/readers"
)

func TestParseDropMode(t *testing.T) {
	for mode := DropNothing; mode <= DropAll; mode++ {
		got, err := ParseDropMode(mode.String())
		assert.NilError(t, err)
		assert.Equal(t, got, mode)

		b, err := mode.MarshalText()
		assert.NilError(t, err)
		var back DropMode
		assert.NilError(t, back.UnmarshalText(b))
		assert.Equal(t, back, mode)
	}

	got, err := ParseDropMode(" First_Data ")
	assert.NilError(t, err)
	assert.Equal(t, got, DropFirstData)

	_, err = ParseDropMode("sometimes")
	assert.Check(t, is.ErrorContains(err, "unknown drop mode"))
}

func TestDropFirstPerDestination(t *testing.T) {
	d := newDropper(DropFirstData, readers.NewChance(1))
	other := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8888}

	assert.Assert(t, !d.drop(testAddr, TypeBSN, false, 0))
	assert.Assert(t, d.drop(testAddr, TypeDATA, false, 0))
	assert.Assert(t, !d.drop(testAddr, TypeDATA, false, 0))
	assert.Assert(t, d.drop(other, TypeDATA, false, 0))
	assert.Assert(t, !d.drop(other, TypeDATA, false, 0))
}

func TestDropAllAndNothing(t *testing.T) {
	all := newDropper(DropAll, readers.NewChance(1))
	none := newDropper(DropNothing, readers.NewChance(1))
	for _, typ := range []PacketType{TypeBSN, TypeDATA, TypeACK, TypeFIN} {
		assert.Assert(t, all.drop(testAddr, typ, false, 0))
		assert.Assert(t, !none.drop(testAddr, typ, false, 1))
	}
}

func TestDropFlaggedEndpoint(t *testing.T) {
	d := newDropper(DropNothing, readers.NewChance(1))
	assert.Assert(t, d.drop(testAddr, TypeDATA, true, 1))
	assert.Assert(t, !d.drop(testAddr, TypeDATA, true, 0))
}

func TestDropRandomRate(t *testing.T) {
	d := newDropper(DropRandom, readers.NewChance(42))
	dropped := 0
	const n = 10000
	for i := 0; i < n; i++ {
		if d.drop(testAddr, TypeDATA, false, DefaultDropChance) {
			dropped++
		}
	}
	assert.Assert(t, dropped > n/10 && dropped < 3*n/10, "dropped %d of %d", dropped, n)
}

func TestDropRandomFlaggedRollsOnce(t *testing.T) {
	d := newDropper(DropRandom, readers.NewChance(42))
	dropped := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if d.drop(testAddr, TypeDATA, true, DefaultDropChance) {
			dropped++
		}
	}
	// stacking two rolls would lose about 36%
	rate := float64(dropped) / n
	assert.Assert(t, rate > 0.17 && rate < 0.23, "dropped %d of %d", dropped, n)
}
