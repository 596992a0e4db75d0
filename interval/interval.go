package interval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PosType is the type used to represent interval coordinates.  int32 should be
// wide enough for some time to come, since that's what BAM is limited to.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// Interval is a 1-based closed interval [Start, End].  It is empty when
// End < Start.
type Interval struct {
	Start PosType
	End   PosType
}

// Len returns the number of positions in the interval.
func (iv Interval) Len() int {
	if iv.End < iv.Start {
		return 0
	}
	return int(iv.End-iv.Start) + 1
}

// Empty returns whether the interval contains no positions.
func (iv Interval) Empty() bool {
	return iv.End < iv.Start
}

// Contains returns whether pos lies within the interval.
func (iv Interval) Contains(pos PosType) bool {
	return pos >= iv.Start && pos <= iv.End
}

// ContainsInterval returns whether other is a subset of iv.  An empty other
// is contained in everything.
func (iv Interval) ContainsInterval(other Interval) bool {
	return other.Empty() || (other.Start >= iv.Start && other.End <= iv.End)
}

// Overlaps returns whether the two intervals share at least one position.
func (iv Interval) Overlaps(other Interval) bool {
	return !iv.Empty() && !other.Empty() && iv.Start <= other.End && other.Start <= iv.End
}

// Expand returns the interval widened by margin positions on each side.  The
// result is not clipped; use Clip for that.  Saturates instead of
// overflowing.
func (iv Interval) Expand(margin PosType) Interval {
	start := int64(iv.Start) - int64(margin)
	end := int64(iv.End) + int64(margin)
	if start < math.MinInt32 {
		start = math.MinInt32
	}
	if end > PosTypeMax {
		end = PosTypeMax
	}
	return Interval{Start: PosType(start), End: PosType(end)}
}

// Clip intersects the interval with [lo, hi].  The second return value is
// false if nothing remains.
func (iv Interval) Clip(lo, hi PosType) (Interval, bool) {
	if iv.Start < lo {
		iv.Start = lo
	}
	if iv.End > hi {
		iv.End = hi
	}
	return iv, !iv.Empty()
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d]", iv.Start, iv.End)
}

// Region is a named interval.
type Region struct {
	RefName string
	Interval
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.RefName, r.Start, r.End)
}

// ParseRegion parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// The interval [1, PosTypeMax-1] is returned if there is no positional
// restriction.
func ParseRegion(region string) (result Region, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegion: empty region string")
		return
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		result.RefName = region
		result.Start = 1
		result.End = PosTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegion: empty contig ID")
		return
	}
	result.RefName = region[:colonPos]
	rangeStr := strings.Replace(region[colonPos+1:], ",", "", -1)
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos int64
		if pos, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			return
		}
		if pos <= 0 {
			err = fmt.Errorf("interval.ParseRegion: position %v in region string out of range", rangeStr)
			return
		}
		result.Start = PosType(pos)
		result.End = PosType(pos)
		return
	}
	var start, end int64
	if start, err = strconv.ParseInt(rangeStr[:dashPos], 10, 32); err != nil {
		return
	}
	if start <= 0 {
		err = fmt.Errorf("interval.ParseRegion: position %v in region string out of range", rangeStr[:dashPos])
		return
	}
	if end, err = strconv.ParseInt(rangeStr[dashPos+1:], 10, 32); err != nil {
		return
	}
	if end < start || end >= PosTypeMax {
		err = fmt.Errorf("interval.ParseRegion: invalid range string %v", rangeStr)
		return
	}
	result.Start = PosType(start)
	result.End = PosType(end)
	return
}

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}
