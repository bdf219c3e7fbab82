package main

import (
	"bufio"
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
	f, err := flags.ParseRecvArgs(args)
	if err != nil {
		return err
	}
	c, err := f.LoadConfig()
	if err != nil {
		return err
	}
	common.ConfigureLogging(c.Level())

	var from *net.UDPAddr
	if f.From != "" {
		if from, err = transport.Resolve(f.From); err != nil {
			return err
		}
	}

	conn, err := transport.Listen(c.ListenAddress)
	if err != nil {
		return err
	}
	sock, err := gudp.NewSocket(conn, c.SocketConfig(logrus.NewEntry(logrus.StandardLogger())))
	if err != nil {
		conn.Close()
		return err
	}
	defer sock.Close()
	logrus.WithField("addr", sock.LocalAddr().String()).Info("listening")

	out := os.Stdout
	if f.Output != "" && f.Output != "-" {
		out, err = os.Create(f.Output)
		if err != nil {
			return err
		}
		defer out.Close()
	} else if common.IsTerminal(out) {
		logrus.Warn("writing received data to a terminal")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := bufio.NewWriter(out)
	err = receiveAll(ctx, sock, from, w, f.Transfers)
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	return err
}

// receiveAll copies payloads to w until limit transfers have ended or ctx is
// done. A zero limit never stops on its own.
func receiveAll(ctx context.Context, sock *gudp.Socket, from *net.UDPAddr, w io.Writer, limit int) error {
	done := 0
	var total int64
	for {
		b, addr, err := sock.Receive(ctx, from)
		switch {
		case errors.Is(err, io.EOF):
			done++
			logrus.WithFields(logrus.Fields{
				"src":   addr.String(),
				"bytes": total,
			}).Info("transfer complete")
			total = 0
			if limit > 0 && done >= limit {
				return nil
			}
			continue
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		total += int64(len(b))
	}
}
