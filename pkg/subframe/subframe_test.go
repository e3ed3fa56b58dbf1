package subframe

import (
	"testing"

	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/page"
)

func mkPage(svid, tow int) *page.Page {
	return &page.Page{SVID: svid, Epoch: gst.Epoch{WN: 1200, TOW: tow}}
}

func TestAssemblerCompletesAllSlots(t *testing.T) {
	a := NewAssembler(false)
	var sf *Subframe
	for tow := 0; tow < 30; tow += 2 {
		s, gap := a.Insert(mkPage(5, tow))
		if gap != nil {
			t.Fatalf("unexpected gap at tow=%d: %v", tow, gap)
		}
		if s != nil {
			sf = s
		}
	}
	if sf == nil {
		t.Fatal("expected a completed sub-frame")
	}
	if sf.Epoch.TOW != 0 || sf.SVID != 5 {
		t.Errorf("unexpected sub-frame identity: %+v", sf.Epoch)
	}
	for i := 0; i < SlotCount; i++ {
		if !sf.Present[i] {
			t.Errorf("slot %d should be present", i)
		}
	}
}

func TestAssemblerDropsIncompleteWithoutGaps(t *testing.T) {
	a := NewAssembler(false)
	for tow := 0; tow < 26; tow += 2 { // slots 0..12; skip slot 13
		if s, gap := a.Insert(mkPage(5, tow)); s != nil || gap != nil {
			t.Fatalf("unexpected emission mid-stream: s=%v gap=%v", s, gap)
		}
	}
	s, gap := a.Insert(mkPage(5, 28))
	if s != nil {
		t.Fatal("expected no sub-frame: slot 13 missing")
	}
	if gap == nil {
		t.Fatal("expected a gap event")
	}
}

func TestAssemblerAllowsGapsWithLastSlotPresent(t *testing.T) {
	a := NewAssembler(true)
	for tow := 2; tow < 28; tow += 2 { // skip slot 0
		a.Insert(mkPage(5, tow))
	}
	s, gap := a.Insert(mkPage(5, 28))
	if gap != nil {
		t.Fatalf("unexpected gap: %v", gap)
	}
	if s == nil {
		t.Fatal("expected a sub-frame emitted with gaps allowed")
	}
	if s.Present[0] {
		t.Error("slot 0 should be marked missing")
	}
	if !s.PresentRange(1, 14) {
		t.Error("slots 1..13 should be present")
	}
}

func TestAssemblerTieBreakFlushesOlderEpoch(t *testing.T) {
	a := NewAssembler(false)
	a.Insert(mkPage(5, 0))
	s, gap := a.Insert(mkPage(5, 30)) // next epoch's first page
	if s != nil {
		t.Fatal("new epoch's first page alone should not complete a sub-frame")
	}
	if gap == nil {
		t.Fatal("expected the older incomplete epoch to be flushed")
	}
	if gap.Epoch.TOW != 0 {
		t.Errorf("flushed epoch should be the older one, got tow=%d", gap.Epoch.TOW)
	}
}
