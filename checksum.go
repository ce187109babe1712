package qoitool

import (
	"crypto/sha1"
	"fmt"
	"hash/crc32"
)

// sha1Sum identifies an encoded file
func sha1Sum(b []byte) string {
	return fmt.Sprintf("%X", sha1.Sum(b))
}

// crcPixels identifies the decoded pixels, independent of how they were
// encoded
func crcPixels(pixels []byte) uint32 {
	return crc32.ChecksumIEEE(pixels)
}
