package tesla

import (
	"testing"

	"github.com/barnettlynn/osnma/internal/teslahash"
	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/kroot"
)

func testParams(gst0 gst.Epoch, anchor []byte) kroot.ChainParams {
	return kroot.ChainParams{
		ChainID:      1,
		HashID:       teslahash.SHA256,
		KeySizeBytes: 16,
		GST0:         gst0,
		Alpha:        []byte{0xAA, 0xBB, 0xCC, 0xDD},
		KROOT:        anchor,
	}
}

// buildChain derives a chain of length n backward from a fixed seed at
// index n down to the anchor at index 0, so tests can then disclose keys
// in increasing index order as the receiver observes them on the air.
func buildChain(t *testing.T, params kroot.ChainParams, n int) []([]byte) {
	t.Helper()
	keys := make([][]byte, n+1)
	seed := make([]byte, params.KeySizeBytes)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	keys[n] = seed

	gst0 := params.GST0
	for i := n; i > 0; i-- {
		prevEpoch := gst0.Add((i - 1 - 1) * gst.SubframeSeconds)
		buf := append(append([]byte(nil), keys[i]...), encodeEpoch(prevEpoch)...)
		buf = append(buf, params.Alpha...)
		h, err := teslahash.Sum(params.HashID, buf)
		if err != nil {
			t.Fatalf("Sum: %v", err)
		}
		keys[i-1] = h[:params.KeySizeBytes]
	}
	return keys
}

func TestPromoteWalksBackToAnchor(t *testing.T) {
	gst0 := gst.Epoch{WN: 1200, TOW: 0}
	params := testParams(gst0, nil)
	keys := buildChain(t, params, 3)
	params.KROOT = keys[0]

	c := NewChain(params)
	res, err := c.Promote(1, keys[1])
	if err != nil {
		t.Fatalf("Promote(1): %v", err)
	}
	if res != PromotedNew {
		t.Errorf("Promote(1) = %v, want PromotedNew", res)
	}
	if c.HighestIndex() != 1 {
		t.Errorf("HighestIndex = %d, want 1", c.HighestIndex())
	}
}

func TestPromoteSkipsMultipleIndices(t *testing.T) {
	gst0 := gst.Epoch{WN: 1200, TOW: 0}
	params := testParams(gst0, nil)
	keys := buildChain(t, params, 3)
	params.KROOT = keys[0]

	c := NewChain(params)
	res, err := c.Promote(3, keys[3])
	if err != nil {
		t.Fatalf("Promote(3): %v", err)
	}
	if res != PromotedNew {
		t.Errorf("Promote(3) = %v, want PromotedNew", res)
	}
	if k, ok := c.Key(1); !ok || string(k) != string(keys[1]) {
		t.Errorf("intermediate key 1 not cached as authentic")
	}
	if k, ok := c.Key(2); !ok || string(k) != string(keys[2]) {
		t.Errorf("intermediate key 2 not cached as authentic")
	}
}

func TestPromoteRejectsWrongKey(t *testing.T) {
	gst0 := gst.Epoch{WN: 1200, TOW: 0}
	params := testParams(gst0, nil)
	keys := buildChain(t, params, 2)
	params.KROOT = keys[0]

	c := NewChain(params)
	bogus := make([]byte, params.KeySizeBytes)
	_, err := c.Promote(1, bogus)
	if err == nil {
		t.Fatal("expected KeyChainFailEvent for a key that doesn't hash back to the anchor")
	}
	if _, ok := err.(*KeyChainFailEvent); !ok {
		t.Fatalf("expected *KeyChainFailEvent, got %T", err)
	}
}

func TestPromoteReplayIsSilentDuplicate(t *testing.T) {
	gst0 := gst.Epoch{WN: 1200, TOW: 0}
	params := testParams(gst0, nil)
	keys := buildChain(t, params, 2)
	params.KROOT = keys[0]

	c := NewChain(params)
	if _, err := c.Promote(1, keys[1]); err != nil {
		t.Fatalf("Promote(1): %v", err)
	}
	res, err := c.Promote(1, keys[1])
	if err != nil {
		t.Fatalf("replay Promote(1): %v", err)
	}
	if res != PromotedDuplicate {
		t.Errorf("replay Promote(1) = %v, want PromotedDuplicate", res)
	}
}

func TestPromoteRejectsMismatchedReplay(t *testing.T) {
	gst0 := gst.Epoch{WN: 1200, TOW: 0}
	params := testParams(gst0, nil)
	keys := buildChain(t, params, 2)
	params.KROOT = keys[0]

	c := NewChain(params)
	if _, err := c.Promote(1, keys[1]); err != nil {
		t.Fatalf("Promote(1): %v", err)
	}
	tampered := append([]byte(nil), keys[1]...)
	tampered[0] ^= 0xFF
	if _, err := c.Promote(1, tampered); err == nil {
		t.Fatal("expected KeyChainFailEvent for a replayed key with a different value")
	}
}
