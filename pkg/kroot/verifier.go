package kroot

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"math/big"

	"github.com/barnettlynn/osnma/internal/merkle"
)

// curveByteLen returns the field element size of an ECDSA curve, used to
// size the raw r||s signature encoding this receiver expects.
func curveByteLen(curve *ecdsa.PublicKey) int {
	return (curve.Curve.Params().BitSize + 7) / 8
}

// Verifier ECDSA-verifies DSM-KROOT messages and, once a Merkle tree is
// configured, validates DSM-PKR key replacements against the pinned root.
type Verifier struct {
	pub        *ecdsa.PublicKey
	pubKeyID   int
	merkleTree *merkle.Tree
}

// NewVerifier returns a Verifier configured with the initial trusted
// public key.
func NewVerifier(pub *ecdsa.PublicKey, keyID int) *Verifier {
	return &Verifier{pub: pub, pubKeyID: keyID}
}

// SetMerkleTree enables Merkle-pinned DSM-PKR key replacement.
func (v *Verifier) SetMerkleTree(t *merkle.Tree) {
	v.merkleTree = t
}

// PublicKey returns the currently trusted public key.
func (v *Verifier) PublicKey() *ecdsa.PublicKey {
	return v.pub
}

// VerifyKROOT parses and ECDSA-verifies a reassembled DSM-KROOT message.
// On success it returns the chain parameters to install. A signature that
// does not verify returns a *SignatureFailEvent; a message too short to
// parse returns a plain error. In either case the caller must not install
// a chain.
func (v *Verifier) VerifyKROOT(bits []byte) (*ChainParams, error) {
	sigLen := 2 * curveByteLen(v.pub)
	params, signedPart, signature, err := parseKROOT(bits, sigLen)
	if err != nil {
		return nil, err
	}

	half := len(signature) / 2
	r := new(big.Int).SetBytes(signature[:half])
	s := new(big.Int).SetBytes(signature[half:])

	digest := sha256.Sum256(signedPart)
	if !ecdsa.Verify(v.pub, digest[:], r, s) {
		return nil, &SignatureFailEvent{ChainID: params.ChainID}
	}
	return params, nil
}

// VerifyPKR parses a reassembled DSM-PKR message and, if its candidate key
// reconstructs the pinned Merkle root, installs it as the trusted public
// key and returns it. A nil Merkle tree means PKR is not configured and
// every DSM-PKR is rejected.
func (v *Verifier) VerifyPKR(bits []byte) (*ecdsa.PublicKey, error) {
	keyID, pub, canonical, err := parsePKR(bits)
	if err != nil {
		return nil, err
	}
	if v.merkleTree == nil {
		return nil, &MerkleFailEvent{KeyID: keyID}
	}

	ok, err := v.merkleTree.Verify(keyID, canonical)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MerkleFailEvent{KeyID: keyID}
	}

	v.pub = pub
	v.pubKeyID = keyID
	return pub, nil
}
