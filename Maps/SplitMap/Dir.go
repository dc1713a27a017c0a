package SplitMap

import (
	"math/bits"
	"sync/atomic"
)

type segment = []atomic.Pointer[node]

// dir is the growable bucket directory: write-once references from bucket
// index to that bucket's sentinel, laid out as independent append-only segments so
// the table can double its bucket count without ever moving an entry.
// Segment 0 covers [0, base); segment s>=1 covers [base<<(s-1), base<<s).
// Segments are published by a single CAS on their slot and never replaced or
// freed, so a *node fetched from get stays addressable forever.
type dir struct {
	base uint //size of segment 0, power of 2.
	segs [bits.UintSize]atomic.Pointer[segment]
}

func (d *dir) locate(i uint) (uint, uint) {
	if i < d.base {
		return 0, i
	}
	s := uint(bits.Len(i / d.base))
	return s, i - d.base<<(s-1)
}

// get returns bucket i's sentinel, or nil if bucket i (or its whole segment)
// hasn't been initialized yet. It never blocks nor allocates.
func (d *dir) get(i uint) *node {
	s, off := d.locate(i)
	if seg := d.segs[s].Load(); seg != nil {
		return (*seg)[off].Load()
	}
	return nil
}

// grow makes sure the segment containing index i is allocated, publishing a
// fresh one with a single CAS when it's missing. Racing growers either win
// the CAS or observe the winner's segment; nothing is ever copied. An
// allocation failure panics before anything is published, leaving the
// directory intact.
func (d *dir) grow(i uint) *segment {
	s, _ := d.locate(i)
	for {
		if seg := d.segs[s].Load(); seg != nil {
			return seg
		}
		n := d.base
		if s > 0 {
			n = d.base << (s - 1)
		}
		seg := make(segment, n)
		if d.segs[s].CompareAndSwap(nil, &seg) {
			return &seg
		}
	}
}

// tryWire publishes sen as bucket i's sentinel, allocating the backing
// segment on demand. Entries are write-once: false means a competitor
// already wired this bucket, and the caller should use get's value instead.
func (d *dir) tryWire(i uint, sen *node) bool {
	s, off := d.locate(i)
	seg := d.segs[s].Load()
	if seg == nil {
		seg = d.grow(i)
	}
	return (*seg)[off].CompareAndSwap(nil, sen)
}
