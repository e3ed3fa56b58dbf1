package tag

import (
	"crypto/hmac"
	"crypto/sha256"
	"testing"

	"github.com/barnettlynn/osnma/internal/teslahash"
	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/kroot"
	"github.com/barnettlynn/osnma/pkg/navdata"
	"github.com/barnettlynn/osnma/pkg/osnmafield"
	"github.com/barnettlynn/osnma/pkg/tesla"
)

type fakeNavData struct {
	data map[int][]byte
}

func (f *fakeNavData) Lookup(prnd int, adkd navdata.ADKD, epoch gst.Epoch) ([]byte, bool) {
	d, ok := f.data[prnd]
	return d, ok
}

// newTestChain builds a forward-derived chain of indices 0 (anchor) .. n
// and returns it installed along with every disclosed key, keys[i] being
// the key for chain index i.
func newTestChain(t *testing.T, gst0 gst.Epoch, n int) (*tesla.Chain, [][]byte) {
	t.Helper()
	params := kroot.ChainParams{
		HashID:       teslahash.SHA256,
		KeySizeBytes: 16,
		GST0:         gst0,
		Alpha:        []byte{0x01, 0x02},
	}

	keys := make([][]byte, n+1)
	keys[n] = []byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
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
	params.KROOT = keys[0]

	chain := tesla.NewChain(params)
	return chain, keys
}

func TestSubmitResolvesWithHMAC(t *testing.T) {
	gst0 := gst.Epoch{WN: 1300, TOW: 0}
	chain, keys := newTestChain(t, gst0, 2)
	epoch := gst0 // authoring epoch at chain index 1

	nav := &fakeNavData{data: map[int][]byte{5: {0xAA, 0xBB}}}
	auth := NewAuthenticator(chain, 1, nav)

	p := &pending{prna: 5, prnd: 5, epoch: epoch, adkd: navdata.ADKD0, ctr: 1, nmaStatus: 0, tagLenBits: 20}
	msg := canonicalMessage(p, []byte{0xAA, 0xBB})
	h := hmac.New(sha256.New, keys[2])
	h.Write(msg)
	fullMAC := h.Sum(nil)
	tagBits := truncateMAC(fullMAC, 20)

	mack := &osnmafield.MACK{Tags: []osnmafield.TagEntry{
		{CTR: 1, Tag: tagBits, PRND: 5, ADKD: navdata.ADKD0, COP: 0},
	}}

	events := auth.Submit(5, epoch, 0, 1, 20, mack)
	if len(events) != 0 {
		t.Fatalf("expected no events before key is authentic, got %d", len(events))
	}

	if _, err := chain.Promote(2, keys[2]); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	events = auth.resolve()
	if len(events) != 1 {
		t.Fatalf("expected 1 event after key promotion, got %d", len(events))
	}
	if events[0].Outcome != OK {
		t.Errorf("Outcome = %v, want OK", events[0].Outcome)
	}
	if auth.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", auth.PendingCount())
	}
}

func TestSubmitDetectsInvalidTag(t *testing.T) {
	gst0 := gst.Epoch{WN: 1300, TOW: 0}
	chain, keys := newTestChain(t, gst0, 2)
	epoch := gst0

	nav := &fakeNavData{data: map[int][]byte{5: {0xAA, 0xBB}}}
	auth := NewAuthenticator(chain, 1, nav)

	mack := &osnmafield.MACK{Tags: []osnmafield.TagEntry{
		{CTR: 1, Tag: []byte{0xFF, 0xFF, 0xFF}, PRND: 5, ADKD: navdata.ADKD0, COP: 0},
	}}
	auth.Submit(5, epoch, 0, 1, 20, mack)
	if _, err := chain.Promote(2, keys[2]); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	events := auth.resolve()
	if len(events) != 1 || events[0].Outcome != InvalidTag {
		t.Fatalf("expected INVALID_TAG, got %+v", events)
	}
}

func TestSubmitUnknownData(t *testing.T) {
	gst0 := gst.Epoch{WN: 1300, TOW: 0}
	chain, keys := newTestChain(t, gst0, 2)
	epoch := gst0

	nav := &fakeNavData{data: map[int][]byte{}} // PRND 5 never observed
	auth := NewAuthenticator(chain, 1, nav)

	mack := &osnmafield.MACK{Tags: []osnmafield.TagEntry{
		{CTR: 1, Tag: []byte{0xFF, 0xFF, 0xFF}, PRND: 5, ADKD: navdata.ADKD0, COP: 0},
	}}
	auth.Submit(5, epoch, 0, 1, 20, mack)
	if _, err := chain.Promote(2, keys[2]); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	events := auth.resolve()
	if len(events) != 0 {
		t.Fatalf("expected the tag to remain pending without nav data, got %d events", len(events))
	}
	if auth.PendingCount() != 1 {
		t.Errorf("PendingCount = %d, want 1", auth.PendingCount())
	}

	events = auth.Evict(100)
	if len(events) != 1 || events[0].Outcome != UnknownData {
		t.Fatalf("expected UNKNOWN_DATA eviction once the key resolved but data never arrived, got %+v", events)
	}
	if auth.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0 after eviction", auth.PendingCount())
	}
}

func TestEvictReportsMissingKey(t *testing.T) {
	gst0 := gst.Epoch{WN: 1300, TOW: 0}
	chain, _ := newTestChain(t, gst0, 2)
	epoch := gst0

	nav := &fakeNavData{data: map[int][]byte{5: {0xAA}}}
	auth := NewAuthenticator(chain, 1, nav)

	mack := &osnmafield.MACK{Tags: []osnmafield.TagEntry{
		{CTR: 1, Tag: []byte{0x00, 0x00, 0x00}, PRND: 5, ADKD: navdata.ADKD0, COP: 0},
	}}
	auth.Submit(5, epoch, 0, 1, 20, mack)

	events := auth.Evict(100)
	if len(events) != 1 || events[0].Outcome != MissingKey {
		t.Fatalf("expected MISSING_KEY eviction, got %+v", events)
	}
	if auth.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0 after eviction", auth.PendingCount())
	}
}

func TestTruncateMACRightAligns(t *testing.T) {
	mac := []byte{0b10110000, 0xFF}
	got := truncateMAC(mac, 4)
	want := []byte{0b00001011}
	if got[0] != want[0] {
		t.Errorf("truncateMAC = %08b, want %08b", got[0], want[0])
	}
}
