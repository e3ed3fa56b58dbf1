package page

import (
	"testing"

	"github.com/barnettlynn/osnma/pkg/gst"
)

func buildPair(svid int, tow int, osnmaEven, osnmaOdd byte) (HalfPage, HalfPage) {
	var even, odd HalfPage
	even.SVID, odd.SVID = svid, svid
	even.Epoch = gst.Epoch{WN: 1200, TOW: tow}
	odd.Epoch = gst.Epoch{WN: 1200, TOW: tow + 1}
	even.Even, odd.Even = true, false
	even.WordType, odd.WordType = WordNominal, WordNominal
	for i := range even.Bits {
		even.Bits[i] = byte(i) ^ osnmaEven
	}
	for i := range odd.Bits {
		odd.Bits[i] = byte(i) ^ osnmaOdd
	}
	return even, odd
}

func validPayload(even, odd HalfPage) [PayloadBytes]byte {
	var payload [PayloadBytes]byte
	copy(payload[:15], even.Bits[:])
	copy(payload[15:], odd.Bits[:])
	appendCRC(&payload)
	copy(odd.Bits[:], payload[15:])
	return payload
}

func TestDecoderPairsAndValidates(t *testing.T) {
	even, odd := buildPair(11, 0, 0xAA, 0x55)
	payload := validPayload(even, odd)
	copy(odd.Bits[:], payload[15:])

	d := NewDecoder()
	p, err := d.Accept(even)
	if err != nil || p != nil {
		t.Fatalf("accepting even half should wait: p=%v err=%v", p, err)
	}
	p, err = d.Accept(odd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected a decoded page")
	}
	if p.SVID != 11 || p.Epoch.TOW != 0 {
		t.Errorf("unexpected page identity: %+v", p)
	}
}

func TestDecoderRejectsBadCRC(t *testing.T) {
	even, odd := buildPair(3, 100, 0x01, 0x02)
	payload := validPayload(even, odd)
	payload[0] ^= 0xFF // corrupt a data bit without touching the CRC bytes
	copy(even.Bits[:], payload[:15])
	copy(odd.Bits[:], payload[15:])

	d := NewDecoder()
	if _, err := d.Accept(even); err != nil {
		t.Fatalf("unexpected error buffering even half: %v", err)
	}
	_, err := d.Accept(odd)
	if err == nil {
		t.Fatal("expected CRC failure")
	}
	if _, ok := err.(*CRCFailEvent); !ok {
		t.Fatalf("expected *CRCFailEvent, got %T", err)
	}
}

func TestDecoderLoneOddHalf(t *testing.T) {
	_, odd := buildPair(7, 200, 0, 0)
	d := NewDecoder()
	_, err := d.Accept(odd)
	if err == nil {
		t.Fatal("expected pairing failure for lone odd half")
	}
	if _, ok := err.(*PairingFailEvent); !ok {
		t.Fatalf("expected *PairingFailEvent, got %T", err)
	}
}

func TestDecoderExcludesNonNominalWords(t *testing.T) {
	even, _ := buildPair(9, 300, 0, 0)
	even.WordType = WordAlert
	d := NewDecoder()
	p, err := d.Accept(even)
	if p != nil || err != nil {
		t.Fatalf("alert word should be silently excluded, got p=%v err=%v", p, err)
	}
}
