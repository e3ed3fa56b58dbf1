package page

// Decoder pairs even/odd half-pages per satellite and validates the
// resulting nominal page's CRC. It holds exactly one pending half-page per
// SVID at a time, matching the ICD's strict 2-second even/odd cadence.
type Decoder struct {
	pending map[int]HalfPage
}

// NewDecoder returns a Decoder ready to accept half-pages.
func NewDecoder() *Decoder {
	return &Decoder{pending: make(map[int]HalfPage)}
}

// Accept feeds one half-page into the decoder. It returns a validated Page
// once both halves of a pair have arrived, or an error describing why a
// pairing or CRC check failed. Both returns nil when the half-page was
// accepted but is still waiting on its pair, or was a non-nominal word
// excluded from assembly.
func (d *Decoder) Accept(hp HalfPage) (*Page, error) {
	if hp.WordType != WordNominal {
		// Alert/dummy words reset any pending half for this SVID: they
		// cannot pair with a nominal half on the other side.
		delete(d.pending, hp.SVID)
		return nil, nil
	}

	prev, ok := d.pending[hp.SVID]
	if !ok {
		if !hp.Even {
			return nil, &PairingFailEvent{SVID: hp.SVID, TOW: hp.Epoch.TOW, Reason: "lone odd half-page"}
		}
		d.pending[hp.SVID] = hp
		return nil, nil
	}

	delete(d.pending, hp.SVID)

	if prev.Even == hp.Even {
		// Two half-pages of the same parity in a row: the earlier one
		// was never paired. Re-buffer the new one if it's an even half
		// so assembly can still recover on the next odd half.
		if hp.Even {
			d.pending[hp.SVID] = hp
		}
		return nil, &PairingFailEvent{SVID: hp.SVID, TOW: hp.Epoch.TOW, Reason: "duplicate parity, previous half dropped"}
	}

	even, odd := prev, hp
	if !prev.Even {
		even, odd = hp, prev
	}
	if odd.Epoch.TOW != even.Epoch.TOW+1 {
		return nil, &PairingFailEvent{SVID: hp.SVID, TOW: hp.Epoch.TOW, Reason: "non-adjacent half-pages"}
	}

	var payload [PayloadBytes]byte
	copy(payload[:15], even.Bits[:])
	copy(payload[15:], odd.Bits[:])

	if !checkCRC(payload) {
		return nil, &CRCFailEvent{WN: even.Epoch.WN, TOW: even.Epoch.TOW, SVID: even.SVID}
	}

	var osnma [OSNMABytes]byte
	// The 40-bit per-page OSNMA field occupies the last 5 bytes ahead of
	// the CRC trailer in this receiver's payload layout.
	copy(osnma[:], payload[crcLen-OSNMABytes:crcLen])

	return &Page{
		SVID:    even.SVID,
		Epoch:   even.Epoch,
		Payload: payload,
		OSNMA:   osnma,
	}, nil
}
