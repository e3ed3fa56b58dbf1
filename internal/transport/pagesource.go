package transport

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/barnettlynn/osnma/internal/sbf"
	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/page"
)

// PageSource yields successive I/NAV half-pages for the engine. Next
// returns io.EOF once the underlying source is exhausted; any other error
// is a single malformed-frame skip unless the caller decides otherwise.
type PageSource interface {
	Next() (page.HalfPage, error)
}

// NewPageSource wraps r with the page reader matching protocol, which is
// either "sbf" or "ascii" per spec.md §6.
func NewPageSource(r io.Reader, protocol string, wn int) (PageSource, error) {
	switch protocol {
	case "sbf":
		return &sbfPageSource{dmx: sbf.NewReader(r)}, nil
	case "ascii":
		return &asciiPageSource{sc: bufio.NewScanner(r), wn: wn}, nil
	default:
		return nil, fmt.Errorf("transport: unknown protocol %q (want sbf or ascii)", protocol)
	}
}

// sbfPageSource demultiplexes SBF blocks and splits each GALRawINAV
// block's already-paired 240-bit page into the even/odd synthetic
// half-pages the page decoder expects, so CRC validation and pairing are
// still exercised exactly as they would be for a live even/odd feed.
type sbfPageSource struct {
	dmx     *sbf.Reader
	pending *page.HalfPage
}

func (s *sbfPageSource) Next() (page.HalfPage, error) {
	if s.pending != nil {
		hp := *s.pending
		s.pending = nil
		return hp, nil
	}
	for {
		block, err := s.dmx.Next()
		if err != nil {
			if _, ok := err.(*sbf.CRCFailError); ok {
				continue
			}
			return page.HalfPage{}, err
		}
		if block.ID != sbf.GALRawINAVBlockID {
			continue
		}
		nav, err := sbf.ParseGALRawINAV(block.Body)
		if err != nil {
			continue
		}

		tow := int(nav.TOW / 1000)
		even := page.HalfPage{
			SVID:     int(nav.SVID),
			Epoch:    gst.Epoch{WN: int(nav.WN), TOW: tow},
			Even:     true,
			WordType: page.WordNominal,
		}
		copy(even.Bits[:], nav.Bits[:15])
		odd := page.HalfPage{
			SVID:     int(nav.SVID),
			Epoch:    gst.Epoch{WN: int(nav.WN), TOW: tow + 1},
			Even:     false,
			WordType: page.WordNominal,
		}
		copy(odd.Bits[:], nav.Bits[15:])

		s.pending = &odd
		return even, nil
	}
}

// asciiPageSource reads one hex-encoded nominal page per line, each
// prefixed with its authoring SVID and time-of-week, per spec.md §6:
//
//	<svid> <tow> <60 hex chars>
//
// and splits it into synthetic even/odd half-pages the same way the SBF
// adapter does, since the ASCII capture format records whole pages rather
// than the receiver's raw half-page stream.
type asciiPageSource struct {
	sc      *bufio.Scanner
	wn      int
	pending *page.HalfPage
}

func (a *asciiPageSource) Next() (page.HalfPage, error) {
	if a.pending != nil {
		hp := *a.pending
		a.pending = nil
		return hp, nil
	}
	for a.sc.Scan() {
		line := strings.TrimSpace(a.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return page.HalfPage{}, fmt.Errorf("transport: ascii line %q: want 3 fields, got %d", line, len(fields))
		}
		svid, err := strconv.Atoi(fields[0])
		if err != nil {
			return page.HalfPage{}, fmt.Errorf("transport: ascii svid %q: %w", fields[0], err)
		}
		tow, err := strconv.Atoi(fields[1])
		if err != nil {
			return page.HalfPage{}, fmt.Errorf("transport: ascii tow %q: %w", fields[1], err)
		}
		raw, err := hex.DecodeString(fields[2])
		if err != nil {
			return page.HalfPage{}, fmt.Errorf("transport: ascii payload %q: %w", fields[2], err)
		}
		if len(raw) != page.PayloadBytes {
			return page.HalfPage{}, fmt.Errorf("transport: ascii payload: want %d bytes, got %d", page.PayloadBytes, len(raw))
		}

		even := page.HalfPage{
			SVID:     svid,
			Epoch:    gst.Epoch{WN: a.wn, TOW: tow},
			Even:     true,
			WordType: page.WordNominal,
		}
		copy(even.Bits[:], raw[:15])
		odd := page.HalfPage{
			SVID:     svid,
			Epoch:    gst.Epoch{WN: a.wn, TOW: tow + 1},
			Even:     false,
			WordType: page.WordNominal,
		}
		copy(odd.Bits[:], raw[15:])

		a.pending = &odd
		return even, nil
	}
	if err := a.sc.Err(); err != nil {
		return page.HalfPage{}, err
	}
	return page.HalfPage{}, io.EOF
}
