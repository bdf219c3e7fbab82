package config

import (
	"io/fs"
	"os"
)

// tests swap fileSystem for an fstest.MapFS
var fileSystem fs.FS = osFS{}

type osFS struct{}

// Open passes name to os.Open unchanged, so absolute paths work.
func (o osFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}
