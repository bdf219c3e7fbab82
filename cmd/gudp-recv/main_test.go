package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
	"gotest.tools/assert"

	"gudp.dev/gudp/gudp"
	"gudp.dev/gudp/pkg/must"
	"gudp.dev/gudp/transport"
)

func TestReceiveAllStopsAfterLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := transport.NewMemNetwork()
	c1 := must.Do(n.Listen(nil))
	c2 := must.Do(n.Listen(nil))

	src, err := gudp.NewSocket(c1, nil)
	assert.NilError(t, err)
	defer src.Close()
	dst, err := gudp.NewSocket(c2, nil)
	assert.NilError(t, err)
	defer dst.Close()

	for _, s := range []string{"hello, ", "world"} {
		assert.NilError(t, src.Send([]byte(s), c2.UDPAddr()))
	}
	assert.NilError(t, src.Finish(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var out bytes.Buffer
	assert.NilError(t, receiveAll(ctx, dst, c1.UDPAddr(), &out, 1))
	assert.Equal(t, out.String(), "hello, world")
}

func TestReceiveAllCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := transport.NewMemNetwork()
	c := must.Do(n.Listen(nil))
	sock, err := gudp.NewSocket(c, nil)
	assert.NilError(t, err)
	defer sock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	var out bytes.Buffer
	assert.NilError(t, receiveAll(ctx, sock, nil, &out, 0))
	assert.Equal(t, out.Len(), 0)
}
