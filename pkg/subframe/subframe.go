// Package subframe buffers I/NAV pages into 30-second sub-frames, one ring
// of 15 page slots per satellite.
package subframe

import (
	"fmt"

	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/page"
)

// SlotCount is the number of 2-second page slots in a 30-second sub-frame.
const SlotCount = 15

// Subframe is a 30-second grouping of I/NAV pages for one satellite.
type Subframe struct {
	SVID    int
	Epoch   gst.Epoch // tow % 30 == 0
	Pages   [SlotCount]*page.Page
	Present [SlotCount]bool
}

// NavPage returns the page at the given slot, or nil if it is missing
// (only possible when the assembler ran with allow_gaps=true).
func (s *Subframe) NavPage(slot int) *page.Page {
	if slot < 0 || slot >= SlotCount {
		return nil
	}
	return s.Pages[slot]
}

// PresentRange reports whether every slot in [from, to) is present, for
// downstream extractors that must refuse to authenticate NAV-data spanning
// a missing page.
func (s *Subframe) PresentRange(from, to int) bool {
	for i := from; i < to; i++ {
		if !s.Present[i] {
			return false
		}
	}
	return true
}

// GapEvent reports an incomplete sub-frame: either silently dropped
// (allow_gaps=false) or superseded by a newer epoch's first page.
type GapEvent struct {
	SVID   int
	Epoch  gst.Epoch
	Reason string
}

func (e *GapEvent) Error() string {
	return fmt.Sprintf("sub-frame gap for SVID %d at %s: %s", e.SVID, e.Epoch, e.Reason)
}

func slotIndex(tow int) int {
	return (((tow % gst.SecondsPerWeek) + gst.SecondsPerWeek) % 30) / 2
}

type ring struct {
	sf    Subframe
	count int
}

// Assembler buffers pages per SVID and emits completed sub-frames.
type Assembler struct {
	allowGaps bool
	bySVID    map[int]*ring
}

// NewAssembler returns an Assembler with the given missing-page policy.
func NewAssembler(allowGaps bool) *Assembler {
	return &Assembler{allowGaps: allowGaps, bySVID: make(map[int]*ring)}
}

// Insert feeds one validated page into the assembler. At most one of the
// two return values is non-nil: a completed Subframe, or a GapEvent for an
// incomplete one (either dropped or superseded).
func (a *Assembler) Insert(p *page.Page) (*Subframe, *GapEvent) {
	epoch := p.Epoch.SubframeEpoch()
	slot := slotIndex(p.Epoch.TOW)

	r, ok := a.bySVID[p.SVID]
	if ok && !r.sf.Epoch.Equal(epoch) {
		if epoch.Less(r.sf.Epoch) {
			// Stale page for an epoch already superseded; drop it alone.
			return nil, &GapEvent{SVID: p.SVID, Epoch: epoch, Reason: "stale page for a superseded epoch"}
		}
		// A ring only stays in the map while incomplete (tryComplete
		// deletes it on success), so any live ring here is flushed.
		gap := &GapEvent{SVID: p.SVID, Epoch: r.sf.Epoch, Reason: "flushed incomplete: newer epoch observed"}
		delete(a.bySVID, p.SVID)
		a.insertFresh(p, epoch, slot)
		return nil, gap
	}

	if !ok {
		a.insertFresh(p, epoch, slot)
	} else if !r.sf.Present[slot] {
		r.sf.Pages[slot] = p
		r.sf.Present[slot] = true
		r.count++
	}

	if slot == SlotCount-1 {
		return a.tryComplete(p.SVID)
	}
	return nil, nil
}

func (a *Assembler) insertFresh(p *page.Page, epoch gst.Epoch, slot int) {
	r := &ring{sf: Subframe{SVID: p.SVID, Epoch: epoch}}
	r.sf.Pages[slot] = p
	r.sf.Present[slot] = true
	r.count = 1
	a.bySVID[p.SVID] = r
}

func (a *Assembler) tryComplete(svid int) (*Subframe, *GapEvent) {
	r, ok := a.bySVID[svid]
	if !ok {
		return nil, nil
	}
	complete := r.count == SlotCount
	if !complete && !a.allowGaps {
		delete(a.bySVID, svid)
		return nil, &GapEvent{SVID: svid, Epoch: r.sf.Epoch, Reason: "incomplete sub-frame, gaps not allowed"}
	}
	if !complete && !r.sf.Present[SlotCount-1] {
		// Even in gap-tolerant mode, the page that triggers completion
		// must itself be present.
		delete(a.bySVID, svid)
		return nil, &GapEvent{SVID: svid, Epoch: r.sf.Epoch, Reason: "last slot missing"}
	}
	delete(a.bySVID, svid)
	sf := r.sf
	return &sf, nil
}
