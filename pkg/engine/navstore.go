package engine

import (
	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/navdata"
)

// navStore keeps recently extracted NAV-data blocks per (PRND, ADKD,
// authoring epoch) so the tag authenticator can look up "the block that
// was current at t_a for PRND" for both self- and cross-authentication.
// A block whose source pages intersected a gap is never recorded, so a
// later lookup for that epoch correctly reports UNKNOWN_DATA.
type navStore struct {
	byPRND map[int]map[navdata.ADKD]map[gst.Epoch][]byte
}

func newNavStore() *navStore {
	return &navStore{byPRND: make(map[int]map[navdata.ADKD]map[gst.Epoch][]byte)}
}

// Record stores every complete block extracted for prnd's sub-frame at
// epoch.
func (s *navStore) Record(prnd int, epoch gst.Epoch, blocks map[navdata.ADKD]*navdata.Block) {
	for adkd, b := range blocks {
		if !b.Complete {
			continue
		}
		byADKD, ok := s.byPRND[prnd]
		if !ok {
			byADKD = make(map[navdata.ADKD]map[gst.Epoch][]byte)
			s.byPRND[prnd] = byADKD
		}
		byEpoch, ok := byADKD[adkd]
		if !ok {
			byEpoch = make(map[gst.Epoch][]byte)
			byADKD[adkd] = byEpoch
		}
		byEpoch[epoch] = b.Bits
	}
}

// Lookup implements tag.NavDataLookup.
func (s *navStore) Lookup(prnd int, adkd navdata.ADKD, epoch gst.Epoch) ([]byte, bool) {
	byADKD, ok := s.byPRND[prnd]
	if !ok {
		return nil, false
	}
	byEpoch, ok := byADKD[adkd]
	if !ok {
		return nil, false
	}
	bits, ok := byEpoch[epoch]
	return bits, ok
}

// Prune drops blocks older than maxAgeSeconds relative to now, across
// every PRND and ADKD.
func (s *navStore) Prune(now gst.Epoch, maxAgeSeconds int) {
	for _, byADKD := range s.byPRND {
		for _, byEpoch := range byADKD {
			for epoch := range byEpoch {
				if now.Seconds()-epoch.Seconds() > int64(maxAgeSeconds) {
					delete(byEpoch, epoch)
				}
			}
		}
	}
}
