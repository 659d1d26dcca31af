package checksum

import (
	"golang.org/x/crypto/sha3"
	"encoding/hex"
	"hash"
)

// AlgorithmSHA3256 identifies SHA3-256 digests, the strong hash the
// acquisition pipeline records alongside raw data. 64 lowercase hex
// characters.
const AlgorithmSHA3256 = "sha3_256"

const sha3TestDigest = "76d3bc41c9f588f7fcd0d5bf4718f8f84b1c41b20882703100b9eb9413807c01"

// NewSHA3256 returns the sha3-256 provider
func NewSHA3256() Provider {
	return newChunkedProvider(AlgorithmSHA3256, 64, sha3TestDigest,
		func() hash.Hash { return sha3.New256() },
		func(h hash.Hash) string {
			return hex.EncodeToString(h.Sum(nil))
		})
}
