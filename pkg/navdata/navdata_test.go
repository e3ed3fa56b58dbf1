package navdata

import (
	"testing"

	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/page"
	"github.com/barnettlynn/osnma/pkg/subframe"
)

func filledSubframe(svid int) *subframe.Subframe {
	sf := &subframe.Subframe{SVID: svid, Epoch: gst.Epoch{WN: 1200, TOW: 0}}
	for i := 0; i < subframe.SlotCount; i++ {
		var p page.Page
		p.SVID = svid
		p.Epoch = gst.Epoch{WN: 1200, TOW: i * 2}
		for b := range p.Payload {
			p.Payload[b] = byte(i*10 + b)
		}
		sf.Pages[i] = &p
		sf.Present[i] = true
	}
	return sf
}

func TestExtractCompleteBlocks(t *testing.T) {
	sf := filledSubframe(3)
	blocks := Extract(sf)

	adkd0 := blocks[ADKD0]
	if !adkd0.Complete {
		t.Fatal("ADKD0 should be complete")
	}
	if len(adkd0.Bits) != dataBytes*5 {
		t.Errorf("ADKD0 length = %d, want %d", len(adkd0.Bits), dataBytes*5)
	}

	adkd12 := blocks[ADKD12]
	if adkd12.IODNAV != adkd0.IODNAV || string(adkd12.Bits) != string(adkd0.Bits) {
		t.Error("ADKD12 must share content and IOD-NAV with ADKD0")
	}

	adkd4 := blocks[ADKD4]
	if !adkd4.Complete || len(adkd4.Bits) != dataBytes {
		t.Errorf("unexpected ADKD4 block: %+v", adkd4)
	}
}

func TestExtractMarksGapsIncomplete(t *testing.T) {
	sf := filledSubframe(3)
	sf.Present[2] = false
	sf.Pages[2] = nil

	blocks := Extract(sf)
	if blocks[ADKD0].Complete {
		t.Error("ADKD0 should be incomplete when a page in its span is missing")
	}
	if !blocks[ADKD4].Complete {
		t.Error("ADKD4 should still be complete: its span does not intersect slot 2")
	}
}
