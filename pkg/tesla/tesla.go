// Package tesla implements the TESLA one-way key-chain engine: it holds
// the current chain's anchor and highest authentic key, walks newly
// disclosed keys back to that anchor, and promotes them on success.
package tesla

import (
	"bytes"
	"fmt"

	"github.com/barnettlynn/osnma/internal/teslahash"
	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/kroot"
)

// KeyChainFailEvent reports a disclosed key that failed to walk back to
// the chain's anchor or highest authentic key.
type KeyChainFailEvent struct {
	Index int64
}

func (e *KeyChainFailEvent) Error() string {
	return fmt.Sprintf("KEY_CHAIN_FAIL: index %d", e.Index)
}

// PromoteResult distinguishes a freshly promoted key from a replay of one
// already authentic.
type PromoteResult int

const (
	PromotedNew PromoteResult = iota
	PromotedDuplicate
)

// Chain holds one TESLA chain's live verification state: its parameters
// (from the installing DSM-KROOT), the anchor key at index 0, and the
// highest key proven authentic so far.
type Chain struct {
	Params kroot.ChainParams

	anchorIndex  int64
	highestIndex int64
	highestKey   []byte
	authentic    map[int64][]byte
}

// NewChain installs a chain from verified DSM-KROOT parameters. The KROOT
// itself anchors index 0.
func NewChain(params kroot.ChainParams) *Chain {
	c := &Chain{
		Params:       params,
		anchorIndex:  0,
		highestIndex: 0,
		highestKey:   params.KROOT,
		authentic:    map[int64][]byte{0: params.KROOT},
	}
	return c
}

// Index returns the chain index for a sub-frame epoch: index 0 is GST0
// itself (the KROOT), index 1 is the first disclosed key, and so on.
func (c *Chain) Index(epoch gst.Epoch) int64 {
	return gst.SubframeIndex(c.Params.GST0, epoch) + 1
}

// epochAt returns the sub-frame epoch for a given chain index, the
// inverse of Index.
func (c *Chain) epochAt(index int64) gst.Epoch {
	return c.Params.GST0.Add(int((index - 1) * gst.SubframeSeconds))
}

// HighestIndex returns the index of the highest key proven authentic.
func (c *Chain) HighestIndex() int64 { return c.highestIndex }

// Key returns the authentic key at index, if known.
func (c *Chain) Key(index int64) ([]byte, bool) {
	k, ok := c.authentic[index]
	return k, ok
}

// Promote verifies a disclosed key at the given chain index by iterating
// the chain's one-way function back toward the highest already-authentic
// key (or the anchor, for the first promotion). On success it caches every
// intermediate key walked over as authentic too.
func (c *Chain) Promote(index int64, disclosed []byte) (PromoteResult, error) {
	if index <= c.highestIndex {
		if existing, ok := c.authentic[index]; ok && bytes.Equal(existing, disclosed) {
			return PromotedDuplicate, nil
		}
		return 0, &KeyChainFailEvent{Index: index}
	}

	steps := index - c.highestIndex
	cur := append([]byte(nil), disclosed...)
	pending := map[int64][]byte{index: cur}

	for s := int64(0); s < steps; s++ {
		prevIndex := index - s - 1
		prevGST := c.epochAt(prevIndex)
		buf := append(append([]byte(nil), cur...), encodeEpoch(prevGST)...)
		buf = append(buf, c.Params.Alpha...)

		h, err := teslahash.Sum(c.Params.HashID, buf)
		if err != nil {
			return 0, err
		}
		if len(h) < c.Params.KeySizeBytes {
			return 0, fmt.Errorf("tesla: hash output shorter than key size")
		}
		cur = h[:c.Params.KeySizeBytes]
		if prevIndex > c.highestIndex {
			pending[prevIndex] = cur
		}
	}

	if !bytes.Equal(cur, c.highestKey) {
		return 0, &KeyChainFailEvent{Index: index}
	}

	for idx, key := range pending {
		c.authentic[idx] = key
	}
	c.highestIndex = index
	c.highestKey = disclosed
	return PromotedNew, nil
}

func encodeEpoch(e gst.Epoch) []byte {
	return []byte{
		byte(e.WN >> 8), byte(e.WN),
		byte(e.TOW >> 24), byte(e.TOW >> 16), byte(e.TOW >> 8), byte(e.TOW),
	}
}
