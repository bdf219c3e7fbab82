package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"gudp.dev/gudp/common"
	"gudp.dev/gudp/flags"
	"gudp.dev/gudp/gudp"
	"gudp.dev/gudp/transport"
)

func main() {
	if err := run(os.Args); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f, err := flags.ParseSendArgs(args)
	if err != nil {
		return err
	}
	c, err := f.LoadConfig()
	if err != nil {
		return err
	}
	common.ConfigureLogging(c.Level())

	dst, err := transport.Resolve(f.Destination)
	if err != nil {
		return err
	}
	// the sender binds an ephemeral port unless told otherwise
	listen := f.Listen
	if listen == "" {
		listen = ":0"
	}
	conn, err := transport.Listen(listen)
	if err != nil {
		return err
	}
	log := logrus.WithField("dst", dst.String())
	sock, err := gudp.NewSocket(conn, c.SocketConfig(log))
	if err != nil {
		conn.Close()
		return err
	}
	defer sock.Close()

	in := os.Stdin
	if f.Input != "" && f.Input != "-" {
		in, err = os.Open(f.Input)
		if err != nil {
			return err
		}
		defer in.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sent, datagrams, err := sendAll(sock, in, dst)
	if err != nil {
		return err
	}
	if err := sock.Finish(ctx); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"bytes":     sent,
		"datagrams": datagrams,
	}).Info("transfer complete")
	return nil
}

// sendAll splits r into maximum-size payloads and queues them on sock.
func sendAll(sock *gudp.Socket, r io.Reader, dst *net.UDPAddr) (int64, int, error) {
	var sent int64
	var datagrams int
	buf := make([]byte, gudp.MaxPayloadLen)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if serr := sock.Send(buf[:n], dst); serr != nil {
				return sent, datagrams, serr
			}
			sent += int64(n)
			datagrams++
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return sent, datagrams, nil
		}
		if err != nil {
			return sent, datagrams, err
		}
	}
}
