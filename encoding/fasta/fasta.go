// Package fasta reads and generates FASTA indexes (.fai).  See
// http://www.htslib.org/doc/faidx.html.  Briefly, FASTA files consist of a
// number of named sequences that may be interrupted by newlines.  For example:
//
// >chr7
// ACGTAC
// GAGGAC
// GCG
// >chr8
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appear after a space are ignored.
// For example, '>chr1 A viral sequence' becomes 'chr1'.
package fasta

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// Index files consist of one tab-separated line per sequence in the associated
// FASTA file.  The format is: "<sequence name>\t<length>\t<byte
// offset>\t<bases per line>\t<bytes per line>".
// For example: "chr3\t12345\t9000\t80\t81".
var indexRegExp = regexp.MustCompile(`^(\S+)\t(\d+)\t(\d+)\t(\d+)\t(\d+)`)

type indexEntry struct {
	name      string
	length    uint64
	offset    uint64 // byte offset of the first base
	lineBase  uint64
	lineWidth uint64
}

// Index is a parsed FASTA index.
type Index struct {
	entries map[string]indexEntry
	// seqNames is ordered by file offset.
	seqNames []string
}

// ReadIndex parses a .fai index.  Sequences are ordered by their position in
// the FASTA file, whatever the order of the index lines.
func ReadIndex(index io.Reader) (*Index, error) {
	idx := &Index{entries: make(map[string]indexEntry)}
	scanner := bufio.NewScanner(index)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		matches := indexRegExp.FindStringSubmatch(line)
		if len(matches) != 6 {
			return nil, errors.Errorf("fasta.ReadIndex: invalid index line %d: %s", lineNum, line)
		}
		ent := indexEntry{name: matches[1]}
		for i, dst := range []*uint64{&ent.length, &ent.offset, &ent.lineBase, &ent.lineWidth} {
			v, err := strconv.ParseUint(matches[i+2], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "fasta.ReadIndex: line %d", lineNum)
			}
			*dst = v
		}
		if _, ok := idx.entries[ent.name]; ok {
			return nil, errors.Errorf("fasta.ReadIndex: line %d: duplicate sequence %s", lineNum, ent.name)
		}
		idx.entries[ent.name] = ent
		idx.seqNames = append(idx.seqNames, ent.name)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA index")
	}
	sort.SliceStable(idx.seqNames, func(i, j int) bool {
		return idx.entries[idx.seqNames[i]].offset < idx.entries[idx.seqNames[j]].offset
	})
	return idx, nil
}

// Len returns the length of the given sequence.
func (idx *Index) Len(seqName string) (uint64, error) {
	ent, ok := idx.entries[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found in index: %s", seqName)
	}
	return ent.length, nil
}

// SeqNames returns the names of all sequences, in the order of appearance in
// the FASTA file.
func (idx *Index) SeqNames() []string {
	return idx.seqNames
}
