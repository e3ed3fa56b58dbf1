// Package sbf demultiplexes a Septentrio Binary Format byte stream into
// blocks, validating each block's CRC-CCITT checksum, and extracts the
// GALRawINAV blocks this receiver's transport layer needs. This is the
// out-of-core-scope raw-transport adapter named in spec.md §1: the OSNMA
// engine itself never imports this package directly, only
// internal/transport does.
package sbf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// syncByte0/syncByte1 open every SBF block: the ASCII characters '$' '@'.
const (
	syncByte0 = 0x24
	syncByte1 = 0x40
	// headerLen is the sync+CRC+ID+Length header preceding the block body.
	headerLen = 8
)

// GALRawINAVBlockID is the Septentrio SBF block number carrying a single
// decoded Galileo I/NAV page (revision bits masked off).
const GALRawINAVBlockID = 4022

// blockIDMask strips the 3-bit revision number from the raw 16-bit ID
// field, per the SBF block ID encoding.
const blockIDMask = 0x1FFF

// Block is one demultiplexed, CRC-validated SBF block.
type Block struct {
	ID   uint16
	Body []byte // bytes following the 8-byte header, Length-8 of them
}

// CRCFailError reports a block whose CRC-CCITT checksum did not validate.
// The demuxer resynchronizes on the next sync sequence and continues.
type CRCFailError struct {
	ID uint16
}

func (e *CRCFailError) Error() string {
	return fmt.Sprintf("sbf: block %d CRC-CCITT check failed", e.ID)
}

// Reader demultiplexes a byte stream into SBF blocks.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for SBF block demultiplexing.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 4096)}
}

// Next scans forward to the next sync sequence and returns the following
// block. A CRC mismatch is returned as *CRCFailError once the block's
// declared length has been read; the caller should call Next again, which
// resyncs on the next sync sequence after that block. io.EOF propagates
// once the underlying reader is exhausted.
func (d *Reader) Next() (*Block, error) {
	if err := d.syncToHeader(); err != nil {
		return nil, err
	}

	header := make([]byte, headerLen-2)
	if _, err := io.ReadFull(d.r, header); err != nil {
		return nil, err
	}
	crcWant := binary.LittleEndian.Uint16(header[0:2])
	id := binary.LittleEndian.Uint16(header[2:4]) & blockIDMask
	length := binary.LittleEndian.Uint16(header[4:6])
	if length < headerLen {
		return nil, fmt.Errorf("sbf: block %d declares length %d < header size", id, length)
	}

	body := make([]byte, int(length)-headerLen)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return nil, err
	}

	crcGot := crcCCITT(header[2:])
	crcGot = crcCCITTUpdate(crcGot, body)
	if crcGot != crcWant {
		return nil, &CRCFailError{ID: id}
	}

	return &Block{ID: id, Body: body}, nil
}

// syncToHeader consumes bytes until it has just read the two sync bytes.
func (d *Reader) syncToHeader() error {
	b0, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	for {
		if b0 != syncByte0 {
			b0, err = d.r.ReadByte()
			if err != nil {
				return err
			}
			continue
		}
		b1, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if b1 == syncByte1 {
			return nil
		}
		b0 = b1
	}
}

// GALRawINAV is the decoded form of a GALRawINAV block body: a single
// already CRC-validated 240-bit nominal I/NAV page plus its GST epoch and
// authoring satellite.
type GALRawINAV struct {
	TOW  uint32 // ms, per SBF convention
	WN   uint16
	SVID uint8
	Bits [30]byte // 240-bit nominal page payload
}

// ParseGALRawINAV decodes a GALRawINAV block body. The real Septentrio
// layout carries additional Viterbi/source/channel diagnostic bytes this
// receiver has no use for and so does not model.
func ParseGALRawINAV(body []byte) (*GALRawINAV, error) {
	const fixedLen = 4 + 2 + 1 + 1 + 1 + 1 + 1 + 1 // TOW,WN,SVID,CRCPassed,Viterbi,Source,RxChannel,NAVBitsCount
	if len(body) < fixedLen+30 {
		return nil, fmt.Errorf("sbf: GALRawINAV body too short (%d bytes)", len(body))
	}
	g := &GALRawINAV{
		TOW:  binary.LittleEndian.Uint32(body[0:4]),
		WN:   binary.LittleEndian.Uint16(body[4:6]),
		SVID: body[6],
	}
	copy(g.Bits[:], body[fixedLen:fixedLen+30])
	return g, nil
}
