// Package kroot verifies DSM-KROOT messages against a configured ECDSA
// public key and handles DSM-PKR (public key replacement) via a pinned
// Merkle tree.
package kroot

import (
	"fmt"

	"github.com/barnettlynn/osnma/internal/teslahash"
	"github.com/barnettlynn/osnma/pkg/gst"
)

// ChainParams is everything a DSM-KROOT carries for installing a new
// TESLA chain.
type ChainParams struct {
	ChainID      int
	NMAStatus    byte
	HashID       teslahash.ID
	MACID        int
	KeySizeBytes int
	TagSizeBits  int
	MACLT        int
	GST0         gst.Epoch
	Alpha        []byte
	KROOT        []byte
}

// NMAStatusName renders the 4-bit NMA status field.
func NMAStatusName(status byte) string {
	switch status & 0x0F {
	case 0:
		return "NOMINAL"
	case 1:
		return "EOC"
	case 2:
		return "CREV"
	case 3:
		return "NPK"
	case 4:
		return "PKREV"
	case 5:
		return "NMA_U"
	default:
		return "RESERVED"
	}
}

// SignatureFailEvent reports a DSM-KROOT whose ECDSA signature did not
// validate against the configured public key.
type SignatureFailEvent struct {
	ChainID int
}

func (e *SignatureFailEvent) Error() string {
	return fmt.Sprintf("KROOT_SIGNATURE_FAIL: chain-id %d", e.ChainID)
}

// MerkleFailEvent reports a DSM-PKR whose candidate key did not
// reconstruct the pinned Merkle root.
type MerkleFailEvent struct {
	KeyID int
}

func (e *MerkleFailEvent) Error() string {
	return fmt.Sprintf("MERKLE_PROOF_FAIL: key-id %d", e.KeyID)
}
