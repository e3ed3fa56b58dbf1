package osnmafield

import (
	"fmt"

	"github.com/barnettlynn/osnma/pkg/navdata"
)

// tagInfoBits is the fixed width of a tag-info field: 8-bit PRND,
// 4-bit ADKD, 4-bit cop.
const tagInfoBits = 16

// TagEntry is one MAC tag and its tag-info, as broadcast in a MACK.
type TagEntry struct {
	CTR  int // 1-based position within the MACK
	Tag  []byte
	PRND int
	ADKD navdata.ADKD
	COP  int
}

// MACK is a parsed MACK sub-frame: a sequence of tags followed by one
// disclosed TESLA key.
type MACK struct {
	Tags         []TagEntry
	DisclosedKey []byte
}

// ParseMACK splits a 480-bit MACK blob into its tag entries and trailing
// disclosed key. tagLenBits and keyLenBits come from the MAC-lookup-table
// and the installed TESLA chain's key-size-ID respectively, so this can
// only run once a chain is installed.
func ParseMACK(mack [MACKBytes]byte, tagLenBits, keyLenBits int) (*MACK, error) {
	totalBits := MACKBytes * 8
	entryBits := tagLenBits + tagInfoBits
	if entryBits <= 0 || keyLenBits <= 0 || keyLenBits > totalBits {
		return nil, fmt.Errorf("invalid MACK layout: tagLenBits=%d keyLenBits=%d", tagLenBits, keyLenBits)
	}
	available := totalBits - keyLenBits
	n := available / entryBits
	if n < 1 {
		return nil, fmt.Errorf("MACK too small for any tag entries: tagLenBits=%d keyLenBits=%d", tagLenBits, keyLenBits)
	}

	result := &MACK{Tags: make([]TagEntry, 0, n)}
	offset := 0
	for i := 0; i < n; i++ {
		tag := getBits(mack[:], offset, tagLenBits)
		offset += tagLenBits
		prnd := int(getUint(mack[:], offset, 8))
		offset += 8
		adkd := navdata.ADKD(getUint(mack[:], offset, 4))
		offset += 4
		cop := int(getUint(mack[:], offset, 4))
		offset += 4

		result.Tags = append(result.Tags, TagEntry{
			CTR:  i + 1,
			Tag:  tag,
			PRND: prnd,
			ADKD: adkd,
			COP:  cop,
		})
	}

	result.DisclosedKey = getBits(mack[:], totalBits-keyLenBits, keyLenBits)
	return result, nil
}
