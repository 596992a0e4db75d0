package interval

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// node is a Targets tree entry.  Entries within one chromosome never
// overlap or touch, so ordering by Start alone is total.
type node Interval

// Compare implements llrb.Comparable.
func (n node) Compare(c llrb.Comparable) int {
	n2 := c.(node)
	switch {
	case n.Start < n2.Start:
		return -1
	case n.Start > n2.Start:
		return 1
	}
	return 0
}

// Targets is a set of genomic regions, usually loaded from a BED file.
// Overlapping and touching regions are merged when the set is built.
type Targets struct {
	byName map[string]*llrb.Tree
	nBases int
}

// NewTargets builds a Targets from regions in any order.
func NewTargets(regions []Region) *Targets {
	byChr := make(map[string][]Interval)
	for _, r := range regions {
		if r.Empty() {
			continue
		}
		byChr[r.RefName] = append(byChr[r.RefName], r.Interval)
	}
	t := &Targets{byName: make(map[string]*llrb.Tree, len(byChr))}
	for chr, ivs := range byChr {
		sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
		tree := &llrb.Tree{}
		cur := ivs[0]
		for _, iv := range ivs[1:] {
			// +1 merges touching intervals.
			if iv.Start <= cur.End+1 {
				if iv.End > cur.End {
					cur.End = iv.End
				}
				continue
			}
			tree.Insert(node(cur))
			t.nBases += cur.Len()
			cur = iv
		}
		tree.Insert(node(cur))
		t.nBases += cur.Len()
		t.byName[chr] = tree
	}
	return t
}

// Overlaps returns whether [iv.Start, iv.End] on refName shares at least one
// position with the set.
func (t *Targets) Overlaps(refName string, iv Interval) bool {
	tree := t.byName[refName]
	if tree == nil || iv.Empty() {
		return false
	}
	// The last region starting at or before iv.End is the only candidate,
	// since regions are disjoint and sorted.
	c := tree.Floor(node{Start: iv.End})
	if c == nil {
		return false
	}
	return c.(node).End >= iv.Start
}

// NBases returns the number of positions covered by the set.
func (t *Targets) NBases() int {
	return t.nBases
}

// ReadBED loads a BED file (0-based half-open coordinates) into a Targets.
// The entries may come in any order.
func ReadBED(reader io.Reader) (*Targets, error) {
	scanner := bufio.NewScanner(reader)
	var tokens [3][]byte
	var regions []Region
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		if len(curLine) > 0 && curLine[0] == '#' {
			continue
		}
		nToken := getTokens(tokens[:], curLine)
		if nToken != 3 {
			if nToken == 0 {
				continue
			}
			if string(tokens[0]) == "track" || string(tokens[0]) == "browser" {
				continue
			}
			return nil, fmt.Errorf("interval.ReadBED: line %d has fewer tokens than expected", lineIdx)
		}
		start0, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return nil, fmt.Errorf("interval.ReadBED: line %d: %v", lineIdx, err)
		}
		end, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return nil, fmt.Errorf("interval.ReadBED: line %d: %v", lineIdx, err)
		}
		if start0 < 0 || end < start0 || end >= PosTypeMax {
			return nil, fmt.Errorf("interval.ReadBED: invalid coordinate pair on line %d", lineIdx)
		}
		regions = append(regions, Region{
			// Must copy; tokens point into the scanner's buffer.
			RefName:  string(tokens[0]),
			Interval: Interval{Start: PosType(start0 + 1), End: PosType(end)},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	t := NewTargets(regions)
	log.Printf("BED loaded, %d base(s) covered.", t.NBases())
	return t, nil
}

// ReadBEDPath is a wrapper for ReadBED that takes a path instead of an
// io.Reader.  Gzipped files are decompressed.
func ReadBEDPath(path string) (t *Targets, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(reader); err != nil {
			return
		}
		defer gz.Close()
		reader = gz
	}
	return ReadBED(reader)
}
