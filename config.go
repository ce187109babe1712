package qoitool

import (
	"runtime"

	"github.com/bodgit/qoitool/qoi"
)

// Config holds the settings shared by every Tool operation.
type Config struct {
	// Workers is the number of directories scanned concurrently
	Workers int
	// MaxPixels is the largest image, in pixels, that will be decoded.
	// Zero means qoi.DefaultMaxPixels.
	MaxPixels uint64
	// Index enables writing a sidecar index to every scanned directory
	Index bool
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Workers:   runtime.NumCPU(),
		MaxPixels: qoi.DefaultMaxPixels,
		Index:     true,
	}
}
