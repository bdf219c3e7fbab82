// Package common holds small pieces shared by the GUDP library and tools.
package common

const (
	// UserConfigDirectory is the dirname of the directory holding the user
	// configuration for the GUDP tools.
	UserConfigDirectory = ".gudp"

	// DefaultConfigFile is the name of the config file inside
	// UserConfigDirectory.
	DefaultConfigFile = "config.toml"

	// DefaultListenPortString is the string version of the default port the
	// GUDP tools listen on.
	DefaultListenPortString = "7777"
)
