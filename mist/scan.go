// Package mist finds poorly covered stretches ("MIST" gaps) in and around
// exons.  A depth array for one chromosome is scanned over each exon widened
// by a margin, and every maximal run of positions whose depth is below a
// threshold becomes a Gap, classified by how it sits relative to the exon.
package mist

import (
	"github.com/genomics-workbench/mist/coverage"
	"github.com/genomics-workbench/mist/interval"
	"github.com/grailbio/base/log"
)

// MatchKind describes where a gap lies relative to its exon.
type MatchKind uint8

const (
	// Inside gaps start after the exon start and end before the exon end.
	Inside MatchKind = iota
	// Overlap gaps cover the whole exon.
	Overlap
	// Left gaps cover the exon start but not its end.
	Left
	// Right gaps cover the exon end but not its start.
	Right
)

var matchKindNames = [...]string{
	Inside:  "inside",
	Overlap: "overlap",
	Left:    "left",
	Right:   "right",
}

func (k MatchKind) String() string {
	if int(k) < len(matchKindNames) {
		return matchKindNames[k]
	}
	return "unknown"
}

// Classify returns the MatchKind of a gap found in win, the exon window
// widened by margin and clipped to the chromosome.  The gap reaches the exon
// start if it begins within margin of the window start, and the exon end if
// it ends within margin of the window end.
func Classify(gap, win interval.Interval, margin interval.PosType) MatchKind {
	isLow := gap.Start <= win.Start+margin
	isHigh := gap.End >= win.End-margin
	switch {
	case isLow && isHigh:
		return Overlap
	case isHigh:
		return Right
	case isLow:
		return Left
	}
	return Inside
}

// Gap is a maximal run of sub-threshold positions inside an exon window.
type Gap struct {
	Exon Exon
	// Interval is the run, 1-based and closed.
	interval.Interval
	Match MatchKind
}

// ScanOpts controls Scan.
type ScanOpts struct {
	// Threshold is the depth a position must reach to count as covered.
	Threshold int
	// Margin widens each exon on both sides before scanning.
	Margin int
	// MinLength drops runs shorter than this many positions.  0 keeps all.
	MinLength int
}

// Scan reports the coverage gaps of each exon on d's chromosome.  Exons on
// other chromosomes are ignored.  Windows are clipped to the chromosome;
// exons lying wholly outside it are logged and skipped.  Gaps are returned
// in exon order, and in position order within an exon.
func Scan(d *coverage.DepthArray, exons []Exon, opts ScanOpts) []Gap {
	var gaps []Gap
	bounds := d.Bounds()
	threshold := int64(opts.Threshold)
	for i := range exons {
		e := &exons[i]
		if e.Chrom != d.RefName {
			continue
		}
		if !e.Overlaps(bounds) {
			log.Error.Printf("mist: exon %s:%d-%d (%s) lies outside chromosome of length %d; skipped",
				e.Chrom, e.Start, e.End, e.ExonID, d.Len())
			continue
		}
		margin := interval.PosType(opts.Margin)
		win, _ := e.Expand(margin).Clip(bounds.Start, bounds.End)
		for pos := win.Start; pos <= win.End; pos++ {
			if int64(d.Depths[pos]) >= threshold {
				continue
			}
			run := interval.Interval{Start: pos}
			for pos <= win.End && int64(d.Depths[pos]) < threshold {
				pos++
			}
			run.End = pos - 1
			if run.Len() < opts.MinLength {
				continue
			}
			gaps = append(gaps, Gap{Exon: *e, Interval: run, Match: Classify(run, win, margin)})
		}
	}
	return gaps
}
