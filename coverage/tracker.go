package coverage

import (
	"github.com/genomics-workbench/mist/contig"
	"github.com/genomics-workbench/mist/interval"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// FlushFunc receives a chromosome's completed depth array.  Ownership of the
// array passes to the callee.
type FlushFunc func(d *DepthArray) error

// Stats summarizes a Tracker's input.
type Stats struct {
	// NRecord is the number of alignments accumulated.
	NRecord int
	// NClipped is the number of alignments that extended past their
	// chromosome and were clipped.
	NClipped int
	// NSkipped is the number of alignments on chromosomes of unknown length.
	NSkipped int
	// NChromosome is the number of depth arrays allocated.
	NChromosome int
}

// Tracker folds a coordinate-sorted alignment stream into one DepthArray per
// chromosome, handing each array to a FlushFunc as soon as the stream moves
// on to the next chromosome.  It is not safe for concurrent use; the order
// of Add calls is significant.
//
// Each alignment increments the closed range [Pos, Pos+ReadLen], one
// position more than the read covers.  Gap coordinates downstream were
// validated against this, so it is kept.
type Tracker struct {
	lengths contig.Lengths
	flush   FlushFunc

	cur      *DepthArray
	curName  string
	skipping bool
	done     bool
	seen     map[string]bool
	stats    Stats
}

// NewTracker returns a Tracker that sizes arrays from lengths and hands
// them to flush.
func NewTracker(lengths contig.Lengths, flush FlushFunc) *Tracker {
	return &Tracker{
		lengths: lengths,
		flush:   flush,
		seen:    make(map[string]bool),
	}
}

// Add accumulates one alignment.
//
// An alignment on UnmappedRefName flushes the current chromosome and ends
// accumulation; later calls are no-ops.  An alignment on a chromosome with
// no known length returns a *MissingContigError once, and the rest of that
// chromosome's alignments are skipped.  A chromosome that reappears after
// the stream has moved past it is an error, since its array has already
// been flushed.
func (t *Tracker) Add(a Alignment) error {
	if t.done {
		return nil
	}
	if a.RefName == UnmappedRefName {
		t.done = true
		return t.flushCurrent()
	}
	if a.RefName != t.curName {
		if err := t.flushCurrent(); err != nil {
			return err
		}
		if t.seen[a.RefName] {
			return errors.E(errors.Invalid, "coverage: alignments are not sorted: chromosome", a.RefName, "appears again after", t.curName)
		}
		t.seen[a.RefName] = true
		t.curName = a.RefName
		length, ok := t.lengths.Len(a.RefName)
		if !ok {
			t.skipping = true
			t.stats.NSkipped++
			return &MissingContigError{RefName: a.RefName}
		}
		t.skipping = false
		t.cur = NewDepthArray(a.RefName, length)
		t.stats.NChromosome++
		log.Debug.Printf("coverage: accumulating %s (%d bases)", a.RefName, length)
	}
	if t.skipping {
		t.stats.NSkipped++
		return nil
	}
	iv := interval.Interval{Start: a.Pos, End: a.Pos + PosType(a.ReadLen)}
	if n := t.cur.AddRange(iv); n > 0 {
		t.stats.NClipped++
		log.Error.Printf("%v", &BoundsError{RefName: a.RefName, Range: iv, Length: t.cur.Len()})
	}
	t.stats.NRecord++
	return nil
}

// Close flushes the last chromosome.  It is a no-op after the stream has
// already ended.
func (t *Tracker) Close() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.flushCurrent()
}

// Abort discards the partially accumulated chromosome without flushing it.
// Arrays flushed before the call are unaffected.
func (t *Tracker) Abort() {
	if t.cur != nil {
		log.Printf("coverage: discarding partial depth array for %s", t.cur.RefName)
	}
	t.cur = nil
	t.done = true
}

// Stats returns counts accumulated so far.
func (t *Tracker) Stats() Stats {
	return t.stats
}

func (t *Tracker) flushCurrent() error {
	if t.cur == nil {
		return nil
	}
	d := t.cur
	t.cur = nil
	return t.flush(d)
}
