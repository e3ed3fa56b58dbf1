// Package teslahash provides the hash-ID-selectable one-way function used
// by the TESLA key-chain walk (Merkle leaf hashing in internal/merkle
// always uses SHA-256 directly). The OSNMA ICD
// allows SHA-256 as well as SHA3-224/256; SHA-256 is covered by the
// standard library, the SHA3 variants by golang.org/x/crypto/sha3.
package teslahash

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// ID identifies a hash function by its ICD hash-ID value.
type ID int

const (
	SHA256   ID = 0
	SHA3_224 ID = 2
	SHA3_256 ID = 3
)

// Sum computes the hash of data under the given function ID.
func Sum(id ID, data []byte) ([]byte, error) {
	switch id {
	case SHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case SHA3_224:
		sum := sha3.Sum224(data)
		return sum[:], nil
	case SHA3_256:
		sum := sha3.Sum256(data)
		return sum[:], nil
	default:
		return nil, fmt.Errorf("teslahash: unsupported hash-ID %d", id)
	}
}
