// Package engine drives the OSNMA pipeline end to end: it pairs and
// assembles pages into sub-frames, feeds the NAV-data extractor and OSNMA
// field parser, installs TESLA chains from verified DSM-KROOT messages,
// submits MACK tags to the authenticator, and publishes structured events
// to registered subscribers.
package engine

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/barnettlynn/osnma/pkg/gst"
	"github.com/barnettlynn/osnma/pkg/kroot"
	"github.com/barnettlynn/osnma/pkg/navdata"
	"github.com/barnettlynn/osnma/pkg/osnmafield"
	"github.com/barnettlynn/osnma/pkg/page"
	"github.com/barnettlynn/osnma/pkg/subframe"
	"github.com/barnettlynn/osnma/pkg/tag"
	"github.com/barnettlynn/osnma/pkg/tesla"
)

// dsmPeriodSeconds bounds how long a DSM buffer may sit with no progress
// before it's discarded, per spec.md §4.E ("one chain period").
const dsmPeriodSeconds = 300

// navDataMaxAgeSeconds bounds how long extracted NAV-data blocks are kept
// for cross-authentication lookups: a bit past the slow-MAC (ADKD=12,
// 11-sub-frame) disclosure window.
const navDataMaxAgeSeconds = 12 * gst.SubframeSeconds

// Subscriber receives engine events by value; it must not retain or mutate
// engine-owned state and a panic inside Notify is recovered and logged
// without interrupting processing.
type Subscriber interface {
	Notify(event any)
}

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	PagesAccepted       int
	PagesCRCFailed      int
	PagesPairingFailed  int
	SubframesCompleted  int
	SubframesGapped     int
	DSMKROOTInstalled   int
	KROOTSignatureFails int
	MerkleFails         int
	KeyChainFails       int
	TagsOK              int
	TagsInvalid         int
	TagsMissingKey      int
	TagsUnknownData     int
	PendingTags         int
}

// Config configures a new Engine.
type Config struct {
	AllowGaps bool
	Verifier  *kroot.Verifier
	// HotStartKROOT is a previously cached, reassembled DSM-KROOT bit
	// string offered to the verifier as if it had just completed live
	// reassembly. A failed signature check silently falls back to live
	// reassembly, per spec.md §4.I.
	HotStartKROOT []byte
	Logger        *slog.Logger
}

// Engine owns every piece of mutable OSNMA state: the page decoder,
// sub-frame assembler, DSM reassembly buffers, TESLA chain, NAV-data
// store, and pending-tag queue. It is meant to be driven by a single
// goroutine; concurrent calls to AcceptHalfPage are not supported.
type Engine struct {
	cfg         Config
	logger      *slog.Logger
	decoder     *page.Decoder
	assembler   *subframe.Assembler
	reassembler *osnmafield.Reassembler
	navStore    *navStore

	chain         *tesla.Chain
	chainMACLT    int
	chainTagBits  int
	authenticator *tag.Authenticator

	subscribers []Subscriber
	stats       Stats
	lastKROOT   []byte
}

// New constructs an Engine. If cfg.HotStartKROOT is set it is verified
// immediately, installing a TESLA chain before the first page is
// processed.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:         cfg,
		logger:      logger,
		decoder:     page.NewDecoder(),
		assembler:   subframe.NewAssembler(cfg.AllowGaps),
		reassembler: osnmafield.NewReassembler(),
		navStore:    newNavStore(),
	}
	if len(cfg.HotStartKROOT) > 0 && cfg.Verifier != nil {
		if params, err := cfg.Verifier.VerifyKROOT(cfg.HotStartKROOT); err == nil {
			logger.Info("hot-start KROOT accepted", "chain-id", params.ChainID)
			e.installChain(*params)
			e.lastKROOT = cfg.HotStartKROOT
		} else {
			logger.Warn("hot-start KROOT rejected, falling back to live reassembly", "error", err)
		}
	}
	return e
}

// Subscribe registers a subscriber. Engine instances are value-constructed
// per caller (via New); there is no process-wide registry.
func (e *Engine) Subscribe(s Subscriber) {
	e.subscribers = append(e.subscribers, s)
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	s := e.stats
	if e.authenticator != nil {
		s.PendingTags = e.authenticator.PendingCount()
	}
	return s
}

// LastKROOT returns the raw bit string of the most recently verified
// DSM-KROOT, or nil if none has been installed yet. Used by the CLI's
// `-s save-kroot` hot-start cache writer.
func (e *Engine) LastKROOT() []byte {
	return e.lastKROOT
}

// Run consumes half-pages from pages until the channel closes or ctx is
// cancelled. Cancellation is only observed between half-pages, never in
// the middle of assembling or authenticating one, so a sub-frame already
// in flight always runs to completion.
func (e *Engine) Run(ctx context.Context, pages <-chan page.HalfPage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case hp, ok := <-pages:
			if !ok {
				return nil
			}
			e.AcceptHalfPage(hp)
		}
	}
}

// AcceptHalfPage feeds one half-page through decode, assembly, and (on
// sub-frame completion) the full authentication pipeline.
func (e *Engine) AcceptHalfPage(hp page.HalfPage) {
	p, err := e.decoder.Accept(hp)
	if err != nil {
		switch err.(type) {
		case *page.CRCFailEvent:
			e.stats.PagesCRCFailed++
		case *page.PairingFailEvent:
			e.stats.PagesPairingFailed++
		}
		e.publish(err)
		return
	}
	if p == nil {
		return
	}
	e.stats.PagesAccepted++

	sf, gapEvent := e.assembler.Insert(p)
	if gapEvent != nil {
		e.stats.SubframesGapped++
		e.publish(gapEvent)
		return
	}
	if sf == nil {
		return
	}
	e.stats.SubframesCompleted++
	e.processSubframe(sf)
}

func (e *Engine) processSubframe(sf *subframe.Subframe) {
	blocks := navdata.Extract(sf)
	e.navStore.Record(sf.SVID, sf.Epoch, blocks)

	field := osnmafield.Extract(sf)
	if completed := e.reassembler.Feed(sf.Epoch, field); completed != nil {
		e.handleCompletedDSM(completed)
	}

	if e.chain != nil {
		if mack, err := osnmafield.ParseMACK(field.MACK, e.chainTagBits, e.chain.Params.KeySizeBytes*8); err == nil {
			if _, err := e.chain.Promote(e.chain.Index(sf.Epoch), mack.DisclosedKey); err != nil {
				e.stats.KeyChainFails++
				e.publish(err)
			}
			for _, ev := range e.authenticator.Submit(sf.SVID, sf.Epoch, field.NMAHeader, e.chainMACLT, e.chainTagBits, mack) {
				e.recordOutcome(ev)
				e.publish(ev)
			}
		}
		for _, ev := range e.authenticator.Evict(e.chain.Index(sf.Epoch)) {
			e.recordOutcome(ev)
			e.publish(ev)
		}
	}

	e.reassembler.Prune(sf.Epoch, dsmPeriodSeconds)
	e.navStore.Prune(sf.Epoch, navDataMaxAgeSeconds)
}

func (e *Engine) handleCompletedDSM(c *osnmafield.Completed) {
	switch c.Kind {
	case osnmafield.DSMKindKROOT:
		params, err := e.cfg.Verifier.VerifyKROOT(c.Bits)
		if err != nil {
			if _, ok := err.(*kroot.SignatureFailEvent); ok {
				e.stats.KROOTSignatureFails++
			}
			e.publish(err)
			return
		}
		if e.sameChain(*params) {
			// DSM-KROOT is cyclically rebroadcast throughout the stream;
			// re-reassembling the already-installed chain must not reset
			// key-chain progress or drop pending tags (spec.md §8 P3).
			return
		}
		e.installChain(*params)
		e.lastKROOT = append([]byte(nil), c.Bits...)
	case osnmafield.DSMKindPKR:
		if _, err := e.cfg.Verifier.VerifyPKR(c.Bits); err != nil {
			if _, ok := err.(*kroot.MerkleFailEvent); ok {
				e.stats.MerkleFails++
			}
			e.publish(err)
		}
	}
}

// sameChain reports whether params describe the chain already installed:
// same chain-ID, same GST0, and byte-identical KROOT. A rebroadcast
// DSM-KROOT reassembles to exactly this every time; a genuine re-key
// changes at least one of these fields.
func (e *Engine) sameChain(params kroot.ChainParams) bool {
	if e.chain == nil {
		return false
	}
	current := e.chain.Params
	return current.ChainID == params.ChainID &&
		current.GST0.Equal(params.GST0) &&
		bytes.Equal(current.KROOT, params.KROOT)
}

func (e *Engine) installChain(params kroot.ChainParams) {
	e.chain = tesla.NewChain(params)
	e.chainMACLT = params.MACLT
	e.chainTagBits = params.TagSizeBits
	e.authenticator = tag.NewAuthenticator(e.chain, params.MACID, e.navStore)
	e.stats.DSMKROOTInstalled++
}

func (e *Engine) recordOutcome(ev *tag.AuthAttemptEvent) {
	switch ev.Outcome {
	case tag.OK:
		e.stats.TagsOK++
	case tag.InvalidTag:
		e.stats.TagsInvalid++
	case tag.MissingKey:
		e.stats.TagsMissingKey++
	case tag.UnknownData:
		e.stats.TagsUnknownData++
	}
}

func (e *Engine) publish(event any) {
	if err, ok := event.(error); ok {
		e.logger.Debug("engine event", "event", err.Error())
	}
	for _, s := range e.subscribers {
		e.safeNotify(s, event)
	}
}

func (e *Engine) safeNotify(s Subscriber, event any) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("subscriber panicked", "panic", r)
		}
	}()
	s.Notify(event)
}
