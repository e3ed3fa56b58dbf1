package kroot

import (
	"fmt"

	"github.com/barnettlynn/osnma/internal/teslahash"
	"github.com/barnettlynn/osnma/pkg/gst"
)

// header size, up to and including the alpha length byte.
const headerLen = 14

// parseKROOT decodes a reassembled DSM-KROOT bit string into its fields,
// the bytes that were signed (everything but the trailing signature), and
// the signature bytes themselves.
//
// Layout (byte offsets):
//
//	0      chain-ID
//	1      NMA-status
//	2      hash-ID
//	3      MAC-ID
//	4      key-size, bytes
//	5      tag-size, bits
//	6      MAC-lookup-table index
//	7-8    GST0 week number (big-endian uint16)
//	9-12   GST0 time-of-week (big-endian uint32)
//	13     alpha length, bytes
//	14..   alpha bytes
//	..     KROOT (key-size bytes)
//	..     ECDSA signature (remaining bytes)
func parseKROOT(bits []byte, sigLen int) (*ChainParams, []byte, []byte, error) {
	if len(bits) < headerLen {
		return nil, nil, nil, fmt.Errorf("DSM-KROOT too short: %d bytes", len(bits))
	}

	alphaLen := int(bits[13])
	krootOffset := headerLen + alphaLen
	keySize := int(bits[4])
	sigOffset := krootOffset + keySize
	total := sigOffset + sigLen

	if len(bits) < total {
		return nil, nil, nil, fmt.Errorf("DSM-KROOT truncated: need %d bytes, got %d", total, len(bits))
	}

	wn := int(bits[7])<<8 | int(bits[8])
	tow := int(bits[9])<<24 | int(bits[10])<<16 | int(bits[11])<<8 | int(bits[12])

	params := &ChainParams{
		ChainID:      int(bits[0]),
		NMAStatus:    bits[1],
		HashID:       teslahash.ID(bits[2]),
		MACID:        int(bits[3]),
		KeySizeBytes: keySize,
		TagSizeBits:  int(bits[5]),
		MACLT:        int(bits[6]),
		GST0:         gst.Epoch{WN: wn, TOW: tow},
		Alpha:        append([]byte(nil), bits[14:krootOffset]...),
		KROOT:        append([]byte(nil), bits[krootOffset:sigOffset]...),
	}

	signedPart := bits[:sigOffset]
	signature := bits[sigOffset:total]
	return params, signedPart, signature, nil
}
