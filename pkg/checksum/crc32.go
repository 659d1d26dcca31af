package checksum

import (
	"fmt"
	"hash"
	"hash/crc32"
)

// AlgorithmCRC32 is the cheap default used when a checksum must be generated
// on the spot, e.g. when both sides of a copy comparison are missing one.
const AlgorithmCRC32 = "crc32"

// crc32TestDigest is the IEEE CRC32 of "foo" in the eight-character
// uppercase hex convention the acquisition tooling writes.
const crc32TestDigest = "8C736521"

// NewCRC32 returns the crc32 provider. Digests are eight uppercase hex
// characters.
func NewCRC32() Provider {
	return newChunkedProvider(AlgorithmCRC32, 8, crc32TestDigest,
		func() hash.Hash { return crc32.NewIEEE() },
		func(h hash.Hash) string {
			return fmt.Sprintf("%08X", h.(hash.Hash32).Sum32())
		})
}
