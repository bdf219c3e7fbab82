// Package flags provides support for the gudp-send and gudp-recv CLI args.
package flags

import (
	"errors"
	"flag"
	"fmt"

	"gudp.dev/gudp/config"
	"gudp.dev/gudp/gudp"
)

// ErrMissingDestination is returned when gudp-send has no host:port.
var ErrMissingDestination = errors.New("missing destination host:port")

// ErrExcessArgs is returned when unparsed arguments remain.
var ErrExcessArgs = errors.New("excess arguments provided")

// Flags holds the CLI arguments shared by both tools. Zero values leave the
// config file setting alone.
type Flags struct {
	ConfigPath string
	Listen     string
	Verbose    bool // show debug logging

	senderDrop   *gudp.DropMode
	receiverDrop *gudp.DropMode
}

func defineFlags(fs *flag.FlagSet, f *Flags) {
	fs.StringVar(&f.ConfigPath, "C", "", "path to config (uses ~/.gudp/config.toml when unspecified)")
	fs.StringVar(&f.Listen, "l", "", "local address to bind")
	fs.BoolVar(&f.Verbose, "V", false, "display verbose log messages")
	fs.Func("drop-send", "simulate loss of outbound BSN/DATA/FIN (nothing, first_bsn, first_data, first_fin, random, all)", func(s string) error {
		m, err := gudp.ParseDropMode(s)
		f.senderDrop = &m
		return err
	})
	fs.Func("drop-ack", "simulate loss of outbound ACKs (nothing, first_ack, random, all)", func(s string) error {
		m, err := gudp.ParseDropMode(s)
		f.receiverDrop = &m
		return err
	})
}

// LoadConfig reads the config file named by the flags (or the default) and
// applies the flag overrides.
func (f *Flags) LoadConfig() (*config.Config, error) {
	c, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	f.merge(c)
	return c, nil
}

func (f *Flags) merge(c *config.Config) {
	if f.Listen != "" {
		c.ListenAddress = f.Listen
	}
	if f.Verbose {
		c.LogLevel = "debug"
	}
	if f.senderDrop != nil {
		c.SenderDrop = *f.senderDrop
	}
	if f.receiverDrop != nil {
		c.ReceiverDrop = *f.receiverDrop
	}
}

// SendFlags holds CLI arguments for gudp-send.
type SendFlags struct {
	Flags

	Destination string
	// Input names the file to send; empty or "-" reads stdin
	Input string
}

// ParseSendArgs defines and parses the flags from the command line for
// gudp-send. args[0] is the program name.
func ParseSendArgs(args []string) (*SendFlags, error) {
	f := new(SendFlags)
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	defineFlags(fs, &f.Flags)
	fs.StringVar(&f.Input, "f", "", "file to send (stdin when unspecified)")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	switch fs.NArg() {
	case 0:
		return nil, ErrMissingDestination
	case 1:
		f.Destination = fs.Arg(0)
	default:
		return nil, fmt.Errorf("%w: %v", ErrExcessArgs, fs.Args()[1:])
	}
	return f, nil
}

// RecvFlags holds CLI arguments for gudp-recv.
type RecvFlags struct {
	Flags

	// From restricts delivery to one sender
	From string
	// Output names the file to write; empty or "-" writes stdout
	Output string
	// Transfers is how many complete transfers to accept before exiting. Zero
	// means run until interrupted.
	Transfers int
}

// ParseRecvArgs defines and parses the flags from the command line for
// gudp-recv. args[0] is the program name.
func ParseRecvArgs(args []string) (*RecvFlags, error) {
	f := new(RecvFlags)
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	defineFlags(fs, &f.Flags)
	fs.StringVar(&f.From, "from", "", "only accept data from this host:port")
	fs.StringVar(&f.Output, "o", "", "file to write (stdout when unspecified)")
	fs.IntVar(&f.Transfers, "n", 1, "number of transfers to receive before exiting (0 for no limit)")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: %v", ErrExcessArgs, fs.Args())
	}
	if f.Transfers < 0 {
		return nil, fmt.Errorf("transfer count must not be negative, got %d", f.Transfers)
	}
	return f, nil
}
