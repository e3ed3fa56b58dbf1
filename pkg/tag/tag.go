// Package tag implements the OSNMA tag authenticator: it holds tags
// pending their disclosing TESLA key and the navigation data they
// authenticate, and resolves each to OK/INVALID_TAG/MISSING_KEY/
// UNKNOWN_DATA exactly once.
package tag

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/navdata"
	"github.com/barnettlynn/osnma/pkg/osnmafield"
	"github.com/barnettlynn/osnma/pkg/tesla"
)

// Outcome is the terminal classification of one authentication attempt.
type Outcome int

const (
	OK Outcome = iota
	InvalidTag
	MissingKey
	UnknownData
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "OK"
	case InvalidTag:
		return "INVALID_TAG"
	case MissingKey:
		return "MISSING_KEY"
	case UnknownData:
		return "UNKNOWN_DATA"
	default:
		return "UNKNOWN"
	}
}

// AuthAttemptEvent is emitted exactly once per tag, when its state machine
// reaches RESOLVED or is evicted from the pending queue.
type AuthAttemptEvent struct {
	PRND, PRNA int
	Epoch      gst.Epoch
	ADKD       navdata.ADKD
	Outcome    Outcome
}

// String renders the canonical AuthAttempt(...) line this receiver prints.
func (e *AuthAttemptEvent) String() string {
	return fmt.Sprintf("AuthAttempt(PRND=%d, PRNA=%d, wn=%d, tow=%d, adkd=%d, outcome=%s)",
		e.PRND, e.PRNA, e.Epoch.WN, e.Epoch.TOW, e.ADKD, e.Outcome)
}

// NavDataLookup resolves the navigation-data bits a tag authenticates, as
// they stood for PRND under the given ADKD at the authoring epoch. A false
// second return means the required IOD-NAV was never fully observed.
type NavDataLookup interface {
	Lookup(prnd int, adkd navdata.ADKD, epoch gst.Epoch) ([]byte, bool)
}

type pendingState int

const (
	pendingKey pendingState = iota
	pendingData
)

type pending struct {
	prna, prnd int
	epoch      gst.Epoch
	adkd       navdata.ADKD
	ctr        int
	tagBits    []byte
	tagLenBits int
	nmaStatus  byte
	keyIndex   int64
	delay      int64
	state      pendingState
}

// Authenticator tracks pending tags from every satellite for one TESLA chain and
// resolves them as keys become authentic and navigation data is observed.
type Authenticator struct {
	chain   *tesla.Chain
	macID   int
	navData NavDataLookup
	pending []*pending
}

// NewAuthenticator returns an Authenticator bound to chain for MAC
// computation (macID selects CMAC-AES vs HMAC-SHA-256) and navData for
// resolving the NavData(PRND, ADKD, t_a) term of the canonical message.
func NewAuthenticator(chain *tesla.Chain, macID int, navData NavDataLookup) *Authenticator {
	return &Authenticator{chain: chain, macID: macID, navData: navData}
}

// Submit enqueues every tag in a freshly parsed MACK as PENDING_KEY and
// immediately attempts to resolve the whole pending queue (a previously
// queued tag's key may have become authentic in this same sub-frame).
// prna is the broadcasting satellite; the first MACK tag (tag0) is always
// self-authenticating and bound to prna's own ADKD=0 data.
func (a *Authenticator) Submit(prna int, epoch gst.Epoch, nmaStatus byte, maclt int, tagLenBits int, mack *osnmafield.MACK) []*AuthAttemptEvent {
	for i, te := range mack.Tags {
		prnd := te.PRND
		adkd := te.ADKD
		if i == 0 {
			prnd = prna
			adkd = navdata.ADKD0
		}
		delay, ok := lookupDelay(maclt, adkd)
		if !ok {
			continue
		}
		a.pending = append(a.pending, &pending{
			prna: prna, prnd: prnd, epoch: epoch, adkd: adkd,
			ctr: te.CTR, tagBits: te.Tag, tagLenBits: tagLenBits,
			nmaStatus: nmaStatus, keyIndex: a.chain.Index(epoch) + int64(delay.KeyDelay),
			delay: int64(delay.KeyDelay), state: pendingKey,
		})
	}
	return a.resolve()
}

// resolve walks the pending queue, advancing PENDING_KEY -> PENDING_DATA
// -> RESOLVED wherever the disclosing key and matching navigation data are
// both available, and leaves everything else queued.
func (a *Authenticator) resolve() []*AuthAttemptEvent {
	var events []*AuthAttemptEvent
	remaining := a.pending[:0]
	for _, p := range a.pending {
		key, haveKey := a.chain.Key(p.keyIndex)
		if !haveKey {
			remaining = append(remaining, p)
			continue
		}
		p.state = pendingData

		navData, haveData := a.navData.Lookup(p.prnd, p.adkd, p.epoch)
		if !haveData {
			remaining = append(remaining, p)
			continue
		}

		events = append(events, &AuthAttemptEvent{
			PRND: p.prnd, PRNA: p.prna, Epoch: p.epoch, ADKD: p.adkd,
			Outcome: a.verify(p, key, navData),
		})
	}
	a.pending = remaining
	return events
}

// Evict drops pending tags that have waited past 2·key-delay sub-frames
// from their authoring epoch without resolving, and reports each with the
// outcome that matches where its state machine stalled: MISSING_KEY if the
// disclosing key itself never became authentic, UNKNOWN_DATA if the key
// resolved but the navigation data it authenticates was never observed.
func (a *Authenticator) Evict(currentIndex int64) []*AuthAttemptEvent {
	var events []*AuthAttemptEvent
	remaining := a.pending[:0]
	for _, p := range a.pending {
		if currentIndex > p.keyIndex+p.delay {
			outcome := MissingKey
			if p.state == pendingData {
				outcome = UnknownData
			}
			events = append(events, &AuthAttemptEvent{
				PRND: p.prnd, PRNA: p.prna, Epoch: p.epoch, ADKD: p.adkd,
				Outcome: outcome,
			})
			continue
		}
		remaining = append(remaining, p)
	}
	a.pending = remaining
	return events
}

// PendingCount reports the number of tags still awaiting resolution, for
// Stats() reporting.
func (a *Authenticator) PendingCount() int { return len(a.pending) }

func (a *Authenticator) verify(p *pending, key, navData []byte) Outcome {
	msg := canonicalMessage(p, navData)

	var mac []byte
	switch a.macID {
	case 0:
		var err error
		mac, err = aesCMAC(key, msg)
		if err != nil {
			return InvalidTag
		}
	case 1:
		h := hmac.New(sha256.New, key)
		h.Write(msg)
		mac = h.Sum(nil)
	default:
		return InvalidTag
	}

	expected := truncateMAC(mac, p.tagLenBits)
	if subtle.ConstantTimeCompare(expected, p.tagBits) == 1 {
		return OK
	}
	return InvalidTag
}

// canonicalMessage builds m = PRND || PRNA || GST_subframe || CTR ||
// NMA_status || NavData(PRND, ADKD, t_a).
func canonicalMessage(p *pending, navData []byte) []byte {
	buf := make([]byte, 0, 9+len(navData))
	buf = append(buf, byte(p.prnd), byte(p.prna))
	buf = append(buf, encodeEpoch(p.epoch)...)
	buf = append(buf, byte(p.ctr), p.nmaStatus)
	buf = append(buf, navData...)
	return buf
}

func encodeEpoch(e gst.Epoch) []byte {
	return []byte{
		byte(e.WN >> 8), byte(e.WN),
		byte(e.TOW >> 24), byte(e.TOW >> 16), byte(e.TOW >> 8), byte(e.TOW),
	}
}

// truncateMAC takes the left-most nbits of mac (MSB-first) and
// right-aligns them into a byte slice, matching how
// (*osnmafield.MACK).Tags carries received tag bits.
func truncateMAC(mac []byte, nbits int) []byte {
	out := make([]byte, (nbits+7)/8)
	for i := 0; i < nbits; i++ {
		byteIdx := i / 8
		if byteIdx >= len(mac) {
			break
		}
		shift := uint(7 - i%8)
		v := (mac[byteIdx] >> shift) & 1

		outBit := (len(out)*8 - nbits) + i
		outByteIdx := outBit / 8
		outShift := uint(7 - outBit%8)
		out[outByteIdx] |= v << outShift
	}
	return out
}
