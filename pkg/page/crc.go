package page

import crc24q "github.com/goblimey/go-crc24q"

// crcLen is the number of leading payload bytes the CRC-24Q checksum
// protects; the trailing 3 bytes carry the checksum itself.
const crcLen = PayloadBytes - 3

// checkCRC validates the trailing CRC-24Q checksum of a combined 240-bit
// page payload. Galileo I/NAV pages use the same CRC-24Q polynomial as
// RTCM3, which is why this reuses go-crc24q rather than a hand-rolled
// table.
func checkCRC(payload [PayloadBytes]byte) bool {
	want := uint32(payload[crcLen])<<16 | uint32(payload[crcLen+1])<<8 | uint32(payload[crcLen+2])
	got := crc24q.Hash(payload[:crcLen])
	return got == want
}

// appendCRC computes and writes the CRC-24Q trailer over payload[:crcLen],
// used by tests to build self-consistent fixtures.
func appendCRC(payload *[PayloadBytes]byte) {
	sum := crc24q.Hash(payload[:crcLen])
	payload[crcLen] = byte(sum >> 16)
	payload[crcLen+1] = byte(sum >> 8)
	payload[crcLen+2] = byte(sum)
}
