package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// AlgorithmSHA256 identifies SHA-256 digests, 64 lowercase hex characters
const AlgorithmSHA256 = "sha256"

const sha256TestDigest = "2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae"

// NewSHA256 returns the sha256 provider
func NewSHA256() Provider {
	return newChunkedProvider(AlgorithmSHA256, 64, sha256TestDigest,
		func() hash.Hash { return sha256.New() },
		func(h hash.Hash) string {
			return hex.EncodeToString(h.Sum(nil))
		})
}
