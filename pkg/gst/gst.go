// Package gst implements Galileo System Time arithmetic: conversion
// between (week-number, time-of-week) and absolute seconds, and the
// sub-frame epoch rounding used throughout the OSNMA pipeline.
package gst

import "fmt"

// SecondsPerWeek is the number of seconds in one Galileo week.
const SecondsPerWeek = 7 * 24 * 3600

// SubframeSeconds is the duration of one I/NAV sub-frame.
const SubframeSeconds = 30

// Epoch is a Galileo System Time instant.
type Epoch struct {
	WN  int // week number since the Galileo epoch
	TOW int // time of week, seconds, 0..SecondsPerWeek-1
}

// String renders the epoch as "wn:tow".
func (e Epoch) String() string {
	return fmt.Sprintf("%d:%d", e.WN, e.TOW)
}

// Less reports whether e occurs strictly before o.
func (e Epoch) Less(o Epoch) bool {
	if e.WN != o.WN {
		return e.WN < o.WN
	}
	return e.TOW < o.TOW
}

// Equal reports whether e and o denote the same instant.
func (e Epoch) Equal(o Epoch) bool {
	return e.WN == o.WN && e.TOW == o.TOW
}

// Seconds returns the POSIX-style seconds elapsed since the Galileo epoch
// (1999-08-22 00:00:00 UTC), without leap-second correction.
func (e Epoch) Seconds() int64 {
	return int64(e.WN)*SecondsPerWeek + int64(e.TOW)
}

// SubframeEpoch rounds e down to the sub-frame boundary that contains it
// (tow rounded down to the nearest multiple of 30).
func (e Epoch) SubframeEpoch() Epoch {
	return Epoch{WN: e.WN, TOW: (e.TOW / SubframeSeconds) * SubframeSeconds}
}

// Add returns the epoch offset by the given number of seconds, rolling
// over the week boundary in either direction.
func (e Epoch) Add(seconds int) Epoch {
	total := e.TOW + seconds
	wn := e.WN
	for total < 0 {
		total += SecondsPerWeek
		wn--
	}
	for total >= SecondsPerWeek {
		total -= SecondsPerWeek
		wn++
	}
	return Epoch{WN: wn, TOW: total}
}

// SubframeIndex returns the number of whole sub-frames elapsed between a
// chain's GST0 anchor epoch and e. Both epochs are assumed sub-frame
// aligned; e before gst0 yields a negative index.
func SubframeIndex(gst0, e Epoch) int64 {
	return (e.Seconds() - gst0.Seconds()) / SubframeSeconds
}

// FromSeconds constructs an Epoch from an absolute Galileo-epoch second
// count, the inverse of Epoch.Seconds.
func FromSeconds(seconds int64) Epoch {
	wn := seconds / SecondsPerWeek
	tow := seconds % SecondsPerWeek
	if tow < 0 {
		tow += SecondsPerWeek
		wn--
	}
	return Epoch{WN: int(wn), TOW: int(tow)}
}
