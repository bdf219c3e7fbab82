// Package config contains structures for parsing GUDP tool configuration.
package config

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"gudp.dev/gudp/common"
	"gudp.dev/gudp/gudp"
	"gudp.dev/gudp/pkg/thunks"
)

// Duration is a time.Duration written as a string such as "3s" or "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config represents a parsed configuration file.
type Config struct {
	ListenAddress string `toml:"listen_address"`

	WindowSize int32    `toml:"window_size"`
	Timeout    Duration `toml:"timeout"`
	MaxRetry   int      `toml:"max_retry"`

	SenderDrop   gudp.DropMode `toml:"sender_drop"`
	ReceiverDrop gudp.DropMode `toml:"receiver_drop"`
	DropSend     bool          `toml:"drop_send"`
	DropReceive  bool          `toml:"drop_receive"`
	DropChance   float64       `toml:"drop_chance"`
	DropSeed     uint64        `toml:"drop_seed"`

	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	d := gudp.DefaultConfig()
	return &Config{
		ListenAddress: ":" + common.DefaultListenPortString,
		WindowSize:    d.WindowSize,
		Timeout:       Duration(d.Timeout),
		MaxRetry:      d.MaxRetry,
		SenderDrop:    d.SenderDrop,
		ReceiverDrop:  d.ReceiverDrop,
		DropChance:    d.DropChance,
		LogLevel:      logrus.InfoLevel.String(),
	}
}

// Load reads the TOML file at path on top of Default. An empty path reads
// DefaultPath, and a missing default file is not an error.
func Load(path string) (*Config, error) {
	c := Default()
	optional := path == ""
	if optional {
		path = DefaultPath()
	}

	f, err := fileSystem.Open(path)
	if errors.Is(err, fs.ErrNotExist) && optional {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	md, err := toml.NewDecoder(f).Decode(c)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("%s: unknown setting %q", path, undecoded[0].String())
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return c.SocketConfig(nil).Validate()
}

// Level returns the parsed log level, or Info if it does not parse.
func (c *Config) Level() logrus.Level {
	l, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// SocketConfig converts the file settings into socket tunables.
func (c *Config) SocketConfig(log *logrus.Entry) *gudp.Config {
	sc := gudp.DefaultConfig()
	sc.WindowSize = c.WindowSize
	sc.Timeout = time.Duration(c.Timeout)
	sc.MaxRetry = c.MaxRetry
	sc.SenderDrop = c.SenderDrop
	sc.ReceiverDrop = c.ReceiverDrop
	sc.DropSend = c.DropSend
	sc.DropReceive = c.DropReceive
	sc.DropChance = c.DropChance
	sc.DropSeed = c.DropSeed
	sc.Log = log
	return sc
}

var userDirectory string
var userDirectoryOnce sync.Once

func locateUserDirectory() {
	home, err := thunks.UserHomeDir()
	if err != nil {
		userDirectory = ""
		return
	}
	userDirectory = filepath.Join(home, common.UserConfigDirectory)
}

// UserDirectory returns the path to the GUDP configuration directory for the
// current user.
func UserDirectory() string {
	userDirectoryOnce.Do(locateUserDirectory)
	return userDirectory
}

// DefaultPath returns UserDirectory()/config.toml.
func DefaultPath() string {
	return filepath.Join(UserDirectory(), common.DefaultConfigFile)
}
