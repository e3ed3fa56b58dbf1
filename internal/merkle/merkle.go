// Package merkle loads the Merkle tree file used to pin OSNMA public keys
// and validates a candidate key against the pinned root, for DSM-PKR
// (public key replacement) handling.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry is one candidate key's proof: its leaf index and the sibling
// hashes needed to reconstruct the pinned root.
type Entry struct {
	KeyID    int      `yaml:"key_id"`
	Index    int      `yaml:"index"`
	Siblings []string `yaml:"siblings"`
}

// Tree is the decoded Merkle tree file: one pinned root plus a proof per
// candidate key-ID.
type Tree struct {
	RootHex string  `yaml:"root"`
	Keys    []Entry `yaml:"keys"`

	root []byte
}

// Load reads and decodes a Merkle tree file.
func Load(path string) (*Tree, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read merkle tree file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var t Tree
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("parse merkle tree file: %w", err)
	}
	root, err := hex.DecodeString(t.RootHex)
	if err != nil {
		return nil, fmt.Errorf("merkle tree root: invalid hex: %w", err)
	}
	if len(root) != sha256.Size {
		return nil, fmt.Errorf("merkle tree root: want %d bytes, got %d", sha256.Size, len(root))
	}
	t.root = root
	return &t, nil
}

func (t *Tree) entry(keyID int) (*Entry, bool) {
	for i := range t.Keys {
		if t.Keys[i].KeyID == keyID {
			return &t.Keys[i], true
		}
	}
	return nil, false
}

// Verify reconstructs the Merkle root from the candidate key's canonical
// encoding and the tree file's stored proof for keyID, and reports whether
// it matches the pinned root. The leaf hash is always SHA-256 per the ICD,
// independent of the TESLA chain's configured hash function.
func (t *Tree) Verify(keyID int, canonicalKey []byte) (bool, error) {
	entry, ok := t.entry(keyID)
	if !ok {
		return false, fmt.Errorf("merkle tree: no proof stored for key-id %d", keyID)
	}

	leaf := sha256.Sum256(canonicalKey)
	current := leaf[:]
	for level, siblingHex := range entry.Siblings {
		sibling, err := hex.DecodeString(siblingHex)
		if err != nil {
			return false, fmt.Errorf("merkle tree: key-id %d sibling %d: invalid hex: %w", keyID, level, err)
		}
		var combined []byte
		if (entry.Index>>uint(level))&1 == 0 {
			combined = append(append([]byte{}, current...), sibling...)
		} else {
			combined = append(append([]byte{}, sibling...), current...)
		}
		sum := sha256.Sum256(combined)
		current = sum[:]
	}

	return bytes.Equal(current, t.root), nil
}
