package common

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/assert"
)

func TestConfigureLoggingWithoutTerminal(t *testing.T) {
	std := logrus.StandardLogger()
	level, formatter, out := std.GetLevel(), std.Formatter, std.Out
	defer func() {
		logrus.SetLevel(level)
		logrus.SetFormatter(formatter)
		logrus.SetOutput(out)
	}()

	f, err := os.CreateTemp(t.TempDir(), "log")
	assert.NilError(t, err)
	defer f.Close()
	assert.Assert(t, !IsTerminal(f))

	tty := IsTerminal(os.Stderr)
	ConfigureLogging(logrus.DebugLevel)
	assert.Equal(t, logrus.GetLevel(), logrus.DebugLevel)
	tf, ok := std.Formatter.(*logrus.TextFormatter)
	assert.Assert(t, ok)
	assert.Equal(t, tf.DisableColors, !tty)
	assert.Equal(t, tf.ForceColors, tty)
}
