// Package navdata extracts the navigation-data bit strings that OSNMA
// authenticates (ADKD 0, 4, 12) out of an assembled sub-frame.
package navdata

import (
	"github.com/barnettlynn/osnma/pkg/page"
	"github.com/barnettlynn/osnma/pkg/subframe"
)

// ADKD identifies which navigation-data block a tag authenticates and
// which key-delay applies.
type ADKD int

const (
	ADKD0  ADKD = 0  // fast, self/cross-authenticated ephemeris + clock
	ADKD4  ADKD = 4  // timing parameters (GGTO, UTC)
	ADKD12 ADKD = 12 // slow-MAC ephemeris + clock, same content as ADKD0
)

// dataBytes is the per-page navigation-data slice: everything in the
// 240-bit payload ahead of the 40-bit OSNMA field and the CRC trailer.
const dataBytes = 22

// Slot ranges the ephemeris/clock (words 1-5) and timing (word 6) blocks
// are pulled from within a sub-frame's 15 page slots.
const (
	ephemerisFirstSlot = 0
	ephemerisLastSlot  = 5 // exclusive
	timingSlot         = 5
)

// Block is one extracted, byte-aligned navigation-data string together
// with the IOD-NAV identity tying it to a validity window.
type Block struct {
	ADKD     ADKD
	IODNAV   int
	Bits     []byte
	Complete bool // false if the source pages intersected a gap
}

// Extract pulls the ADKD=0, ADKD=4 and ADKD=12 blocks out of a sub-frame.
// ADKD=12 shares its bits and IOD-NAV with ADKD=0: the ICD authenticates
// the same ephemeris+clock content under a slower key-delay, it does not
// define a second data layout.
func Extract(sf *subframe.Subframe) map[ADKD]*Block {
	ephemeris, iod := concat(sf, ephemerisFirstSlot, ephemerisLastSlot)
	ephemerisComplete := sf.PresentRange(ephemerisFirstSlot, ephemerisLastSlot)

	timing, _ := concat(sf, timingSlot, timingSlot+1)
	timingComplete := sf.PresentRange(timingSlot, timingSlot+1)

	return map[ADKD]*Block{
		ADKD0:  {ADKD: ADKD0, IODNAV: iod, Bits: ephemeris, Complete: ephemerisComplete},
		ADKD12: {ADKD: ADKD12, IODNAV: iod, Bits: ephemeris, Complete: ephemerisComplete},
		ADKD4:  {ADKD: ADKD4, IODNAV: 0, Bits: timing, Complete: timingComplete},
	}
}

func concat(sf *subframe.Subframe, from, to int) ([]byte, int) {
	out := make([]byte, 0, (to-from)*dataBytes)
	iod := 0
	for slot := from; slot < to; slot++ {
		p := sf.NavPage(slot)
		if p == nil {
			out = append(out, make([]byte, dataBytes)...)
			continue
		}
		data := navBits(p)
		if slot == from {
			iod = int(data[0])
		}
		out = append(out, data...)
	}
	return out, iod
}

func navBits(p *page.Page) []byte {
	return p.Payload[:dataBytes]
}
