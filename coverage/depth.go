// Package coverage accumulates per-position read depth over whole
// chromosomes from a coordinate-sorted stream of alignments.
package coverage

import (
	"fmt"

	"github.com/genomics-workbench/mist/interval"
)

// PosType is the integer type used to represent genomic positions.
type PosType = interval.PosType

// DepthArray holds the depth of every position of one chromosome.  Depths is
// indexed by 1-based position; Depths[0] is unused, so len(Depths) is the
// chromosome length + 1.
type DepthArray struct {
	RefName string
	Depths  []uint32
}

// NewDepthArray allocates a zeroed array for a chromosome of the given
// length.
func NewDepthArray(refName string, length PosType) *DepthArray {
	return &DepthArray{
		RefName: refName,
		Depths:  make([]uint32, int(length)+1),
	}
}

// Len returns the chromosome length.
func (d *DepthArray) Len() PosType {
	return PosType(len(d.Depths) - 1)
}

// Bounds returns [1, Len()].
func (d *DepthArray) Bounds() interval.Interval {
	return interval.Interval{Start: 1, End: d.Len()}
}

// Depth returns the depth at a 1-based position, or 0 outside the array.
func (d *DepthArray) Depth(pos PosType) uint32 {
	if pos < 1 || int(pos) >= len(d.Depths) {
		return 0
	}
	return d.Depths[pos]
}

// AddRange increments every position of iv, clipped to the array bounds.
// It returns the number of positions that fell outside the array.
func (d *DepthArray) AddRange(iv interval.Interval) int {
	clipped, ok := iv.Clip(1, d.Len())
	if !ok {
		return iv.Len()
	}
	depths := d.Depths[clipped.Start : clipped.End+1]
	for i := range depths {
		depths[i]++
	}
	return iv.Len() - clipped.Len()
}

// BoundsError reports an alignment extending past the chromosome.  It is
// recovered locally by clipping.
type BoundsError struct {
	RefName string
	Range   interval.Interval
	Length  PosType
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("coverage: range %s:%d-%d exceeds chromosome length %d; clipped",
		e.RefName, e.Range.Start, e.Range.End, e.Length)
}

// MissingContigError reports a chromosome with no known length, so no depth
// array can be sized for it.
type MissingContigError struct {
	RefName string
}

func (e *MissingContigError) Error() string {
	return fmt.Sprintf("coverage: no length known for chromosome %q", e.RefName)
}
