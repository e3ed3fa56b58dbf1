// Package page decodes raw Galileo I/NAV nominal pages: it validates the
// CRC-24Q checksum and even/odd half-page pairing, and exposes the 240-bit
// nominal payload together with its 40-bit OSNMA field slice.
package page

import (
	"fmt"

	"github.com/barnettlynn/osnma/pkg/gst"
)

// WordType classifies the I/NAV word carried by a half-page.
type WordType int

const (
	WordNominal WordType = iota
	WordAlert
	WordDummy
)

// PayloadBytes is the size in bytes of the 240-bit nominal page payload.
const PayloadBytes = 30

// OSNMABytes is the size in bytes of the 40-bit per-page OSNMA field.
const OSNMABytes = 5

// HalfPage is one 120-bit nominal I/NAV half-page as captured from the
// receiver, before CRC validation or pairing.
type HalfPage struct {
	SVID     int
	Epoch    gst.Epoch // GST of this half-page; the odd half is 1 s after its even half
	Even     bool
	WordType WordType
	Bits     [15]byte // 120 raw bits
}

// Page is a validated, paired nominal I/NAV page: the even and odd
// half-pages for one 2-second interval, CRC-checked and combined.
type Page struct {
	SVID    int
	Epoch   gst.Epoch // epoch of the even half-page that opens this page
	Payload [PayloadBytes]byte
	OSNMA   [OSNMABytes]byte
}

// CRCFailEvent reports a page whose CRC-24Q checksum did not validate.
// Its Error form matches the CLI's canonical event line.
type CRCFailEvent struct {
	WN, TOW int
	SVID    int
}

func (e *CRCFailEvent) Error() string {
	return fmt.Sprintf("Page CRC failed. WN: %d, TOW: %d, SVID: %d", e.WN, e.TOW, e.SVID)
}

// PairingFailEvent reports a half-page that could not be paired with its
// even/odd counterpart (lone half-page, or two half-pages of the same
// parity in a row).
type PairingFailEvent struct {
	SVID   int
	TOW    int
	Reason string
}

func (e *PairingFailEvent) Error() string {
	return fmt.Sprintf("page pairing failed for SVID %d at tow %d: %s", e.SVID, e.TOW, e.Reason)
}
