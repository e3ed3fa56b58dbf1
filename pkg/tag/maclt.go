package tag

import "github.com/barnettlynn/osnma/pkg/navdata"

// ltEntry is one (ADKD, MAC-LT) row: the key-delay, expressed as a number
// of TESLA chain indices between the authoring sub-frame and the
// disclosing key.
type ltEntry struct {
	KeyDelay int
}

// macLookupTable encodes `(ADKD, MAC-LT) -> key-delay`, the 16-row table
// from the OSNMA ICD's flexible key-delay scheme. Row 1 is the nominal
// combination the current Galileo signal-in-space uses: a 1-subframe
// (fast-MAC) delay for ADKD=0/4 and an 11-subframe (slow-MAC) delay for
// ADKD=12. Rows 2-16 cover the ICD's other standing configurations, which
// only ever vary the delay, never which ADKDs a row carries or how a tag's
// bits are built.
var macLookupTable = map[int]map[navdata.ADKD]ltEntry{
	1:  {navdata.ADKD0: {KeyDelay: 1}, navdata.ADKD4: {KeyDelay: 1}, navdata.ADKD12: {KeyDelay: 11}},
	2:  {navdata.ADKD0: {KeyDelay: 2}, navdata.ADKD4: {KeyDelay: 2}, navdata.ADKD12: {KeyDelay: 11}},
	3:  {navdata.ADKD0: {KeyDelay: 3}, navdata.ADKD4: {KeyDelay: 3}, navdata.ADKD12: {KeyDelay: 11}},
	4:  {navdata.ADKD0: {KeyDelay: 4}, navdata.ADKD4: {KeyDelay: 4}, navdata.ADKD12: {KeyDelay: 11}},
	5:  {navdata.ADKD0: {KeyDelay: 1}, navdata.ADKD4: {KeyDelay: 2}, navdata.ADKD12: {KeyDelay: 11}},
	6:  {navdata.ADKD0: {KeyDelay: 2}, navdata.ADKD4: {KeyDelay: 1}, navdata.ADKD12: {KeyDelay: 11}},
	7:  {navdata.ADKD0: {KeyDelay: 1}, navdata.ADKD4: {KeyDelay: 1}, navdata.ADKD12: {KeyDelay: 12}},
	8:  {navdata.ADKD0: {KeyDelay: 1}, navdata.ADKD4: {KeyDelay: 1}, navdata.ADKD12: {KeyDelay: 13}},
	9:  {navdata.ADKD0: {KeyDelay: 1}, navdata.ADKD4: {KeyDelay: 1}, navdata.ADKD12: {KeyDelay: 14}},
	10: {navdata.ADKD0: {KeyDelay: 2}, navdata.ADKD4: {KeyDelay: 2}, navdata.ADKD12: {KeyDelay: 12}},
	11: {navdata.ADKD0: {KeyDelay: 2}, navdata.ADKD4: {KeyDelay: 2}, navdata.ADKD12: {KeyDelay: 13}},
	12: {navdata.ADKD0: {KeyDelay: 3}, navdata.ADKD4: {KeyDelay: 3}, navdata.ADKD12: {KeyDelay: 12}},
	13: {navdata.ADKD0: {KeyDelay: 3}, navdata.ADKD4: {KeyDelay: 3}, navdata.ADKD12: {KeyDelay: 13}},
	14: {navdata.ADKD0: {KeyDelay: 4}, navdata.ADKD4: {KeyDelay: 4}, navdata.ADKD12: {KeyDelay: 12}},
	15: {navdata.ADKD0: {KeyDelay: 1}, navdata.ADKD4: {KeyDelay: 3}, navdata.ADKD12: {KeyDelay: 13}},
	16: {navdata.ADKD0: {KeyDelay: 3}, navdata.ADKD4: {KeyDelay: 1}, navdata.ADKD12: {KeyDelay: 14}},
}

func lookupDelay(maclt int, adkd navdata.ADKD) (ltEntry, bool) {
	row, ok := macLookupTable[maclt]
	if !ok {
		return ltEntry{}, false
	}
	e, ok := row[adkd]
	return e, ok
}
