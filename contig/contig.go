// Package contig provides contig-length lookup tables, built from a SAM
// header or a FASTA index (.fai).  Depth arrays are sized from these tables.
package contig

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/genomics-workbench/mist/encoding/fasta"
	"github.com/genomics-workbench/mist/interval"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Lengths looks up the length of a contig by name.
type Lengths interface {
	// Len returns the contig length, and false if the contig is unknown.
	Len(name string) (interval.PosType, bool)
}

// Table is an ordered Lengths implementation.
type Table struct {
	names   []string
	lengths map[string]interval.PosType
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{lengths: make(map[string]interval.PosType)}
}

// Add records a contig.  A repeated name must repeat the same length.
func (t *Table) Add(name string, length interval.PosType) error {
	if length < 0 {
		return errors.Errorf("contig %s: negative length %d", name, length)
	}
	if prev, ok := t.lengths[name]; ok {
		if prev != length {
			return errors.Errorf("contig %s: inconsistent lengths %d and %d", name, prev, length)
		}
		return nil
	}
	t.names = append(t.names, name)
	t.lengths[name] = length
	return nil
}

// Len implements Lengths.
func (t *Table) Len(name string) (interval.PosType, bool) {
	n, ok := t.lengths[name]
	return n, ok
}

// Names returns the contig names in the order they were added.
func (t *Table) Names() []string {
	return t.names
}

// FromSAMHeader builds a table from the @SQ lines of a SAM text header.
// Other header lines are validated by the parser but otherwise ignored.
func FromSAMHeader(text []byte) (*Table, error) {
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		return nil, err
	}
	if err := h.UnmarshalText(text); err != nil {
		return nil, errors.Wrap(err, "contig.FromSAMHeader")
	}
	return FromReferences(h.Refs())
}

// FromReferences builds a table from parsed SAM references.
func FromReferences(refs []*sam.Reference) (*Table, error) {
	t := NewTable()
	for _, ref := range refs {
		if err := t.Add(ref.Name(), interval.PosType(ref.Len())); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// FromFASTAIndex builds a table from a FASTA index, in FASTA file order.
func FromFASTAIndex(idx *fasta.Index) (*Table, error) {
	t := NewTable()
	for _, name := range idx.SeqNames() {
		n, err := idx.Len(name)
		if err != nil {
			return nil, err
		}
		if n > interval.PosTypeMax {
			return nil, errors.Errorf("contig %s is too long (%d bases)", name, n)
		}
		if err := t.Add(name, interval.PosType(n)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ReadFai builds a table from a .fai index.
func ReadFai(r io.Reader) (*Table, error) {
	idx, err := fasta.ReadIndex(r)
	if err != nil {
		return nil, err
	}
	return FromFASTAIndex(idx)
}

// ReadFASTA builds a table from FASTA data by indexing it on the fly.  This
// reads the whole file; prefer the .fai index when one exists.
func ReadFASTA(r io.Reader) (*Table, error) {
	var fai bytes.Buffer
	if err := fasta.GenerateIndex(&fai, r); err != nil {
		return nil, errors.Wrap(err, "contig.ReadFASTA")
	}
	return ReadFai(&fai)
}

// fastaSuffixes are the extensions Open treats as FASTA.
var fastaSuffixes = []string{".fa", ".fasta", ".fna"}

func isFASTA(path string) bool {
	for _, suffix := range fastaSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// Open reads a table from path: a .fai index, a FASTA file, or else a SAM
// file whose header is read up to the first alignment line.  Compressed files are
// decompressed transparently.
func Open(ctx context.Context, path string) (t *Table, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		defer func() {
			if e := u.Close(); e != nil && err == nil {
				err = e
			}
		}()
		r = u
	}
	base := strings.TrimSuffix(path, ".gz")
	if strings.HasSuffix(base, ".fai") {
		return ReadFai(r)
	}
	if isFASTA(base) {
		return ReadFASTA(r)
	}
	text, err := ReadSAMHeaderText(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	return FromSAMHeader(text)
}

// ReadSAMHeaderText returns the leading '@' lines of a SAM stream, stopping
// before the first alignment line.
func ReadSAMHeaderText(r *bufio.Reader) ([]byte, error) {
	var text []byte
	for {
		b, err := r.Peek(1)
		if err == io.EOF {
			return text, nil
		}
		if err != nil {
			return nil, err
		}
		if b[0] != '@' {
			return text, nil
		}
		line, err := r.ReadBytes('\n')
		text = append(text, line...)
		if err == io.EOF {
			if len(line) > 0 && line[len(line)-1] != '\n' {
				text = append(text, '\n')
			}
			return text, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
