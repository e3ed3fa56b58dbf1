// Package osnmafield splits the OSNMA bits interleaved in each satellite's
// sub-frame into the HKROOT and MACK streams, reassembles multi-subframe
// DSM messages by block-ID and counter, and parses a MACK blob into its
// tag entries and disclosed key.
package osnmafield

import (
	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/subframe"
)

// FragmentBytes is the size of one sub-frame's contribution to a DSM
// message: 13 bytes (104 bits) once the NMA-header and DSM-header bytes
// are split off the 120-bit HKROOT stream.
const FragmentBytes = 13

// MACKBytes is the size of the 480-bit MACK stream assembled from one
// sub-frame (32 bits/page x 15 pages).
const MACKBytes = 60

// Field is one satellite's OSNMA material for a single sub-frame.
type Field struct {
	NMAHeader byte
	DSMHeader byte // upper nibble: DSM-ID, lower nibble: block-ID
	Fragment  [FragmentBytes]byte
	MACK      [MACKBytes]byte
}

// DSMID returns the 4-bit DSM-ID from the DSM-header.
func (f Field) DSMID() int { return int(f.DSMHeader >> 4) }

// BlockID returns the 4-bit block-ID from the DSM-header.
func (f Field) BlockID() int { return int(f.DSMHeader & 0x0F) }

// Extract pulls the per-sub-frame OSNMA field out of a satellite's 15
// pages. Missing pages (allow_gaps mode) contribute zeroed bits, per
// spec.md §4.C.
func Extract(sf *subframe.Subframe) Field {
	var f Field
	for slot := 0; slot < subframe.SlotCount; slot++ {
		p := sf.NavPage(slot)
		var hkroot byte
		var mack [4]byte
		if p != nil {
			hkroot = p.OSNMA[0]
			copy(mack[:], p.OSNMA[1:5])
		}
		switch slot {
		case 0:
			f.NMAHeader = hkroot
		case 1:
			f.DSMHeader = hkroot
		default:
			f.Fragment[slot-2] = hkroot
		}
		copy(f.MACK[slot*4:slot*4+4], mack[:])
	}
	return f
}

// DSMKind distinguishes the two DSM message kinds.
type DSMKind int

const (
	DSMKindKROOT DSMKind = iota
	DSMKindPKR
)

// kindOf classifies a DSM-ID: 0-11 carry DSM-KROOT, 12-15 carry DSM-PKR,
// per the OSNMA ICD's DSM-ID allocation.
func kindOf(dsmID int) DSMKind {
	if dsmID >= 12 {
		return DSMKindPKR
	}
	return DSMKindKROOT
}

type dsmBuffer struct {
	nb           int // block count; -1 until block 0 observed
	blocks       map[int][FragmentBytes]byte
	lastProgress gst.Epoch
}

// Reassembler accumulates DSM fragments across sub-frames, keyed by DSM-ID.
type Reassembler struct {
	buffers map[int]*dsmBuffer
}

// NewReassembler returns an empty DSM reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{buffers: make(map[int]*dsmBuffer)}
}

// Completed is a fully reassembled DSM message ready for verification.
type Completed struct {
	DSMID int
	Kind  DSMKind
	Bits  []byte
}

// Feed submits one sub-frame's HKROOT contribution. It returns a Completed
// message once every block-ID in [0, NB) has been observed; the DSM-ID's
// buffer is freed immediately after. A block-count mismatch against an
// in-progress buffer discards that buffer and starts fresh, per spec.md
// §9's conservative recommendation.
func (r *Reassembler) Feed(epoch gst.Epoch, f Field) *Completed {
	dsmID := f.DSMID()
	blockID := f.BlockID()

	buf, ok := r.buffers[dsmID]
	if !ok {
		buf = &dsmBuffer{nb: -1, blocks: make(map[int][FragmentBytes]byte)}
		r.buffers[dsmID] = buf
	}

	if blockID == 0 {
		nb := int(f.Fragment[0]>>4) + 1 // NB encoded in the top nibble of block 0
		if buf.nb != -1 && buf.nb != nb {
			buf = &dsmBuffer{nb: nb, blocks: make(map[int][FragmentBytes]byte)}
			r.buffers[dsmID] = buf
		} else {
			buf.nb = nb
		}
	}

	buf.blocks[blockID] = f.Fragment
	buf.lastProgress = epoch

	if buf.nb == -1 {
		return nil
	}
	for i := 0; i < buf.nb; i++ {
		if _, present := buf.blocks[i]; !present {
			return nil
		}
	}

	bits := make([]byte, 0, buf.nb*FragmentBytes)
	for i := 0; i < buf.nb; i++ {
		block := buf.blocks[i]
		bits = append(bits, block[:]...)
	}
	delete(r.buffers, dsmID)

	return &Completed{DSMID: dsmID, Kind: kindOf(dsmID), Bits: bits}
}

// Prune discards DSM buffers that have made no progress within one chain
// period (periodSeconds), per spec.md §4.E.
func (r *Reassembler) Prune(now gst.Epoch, periodSeconds int) {
	for id, buf := range r.buffers {
		if now.Seconds()-buf.lastProgress.Seconds() > int64(periodSeconds) {
			delete(r.buffers, id)
		}
	}
}
