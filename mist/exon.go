package mist

import (
	"context"
	"fmt"
	"io"

	"github.com/genomics-workbench/mist/interval"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// Exon is one row of the exon table.  Only Chrom and the interval are
// interpreted; the annotation fields are passed through to the gap table
// unchanged.
type Exon struct {
	Chrom string
	// Interval is 1-based and closed.
	interval.Interval
	GeneID         string
	GeneName       string
	ExonNumber     string
	ExonID         string
	TranscriptName string
	TranscriptInfo string
	GeneBiotype    string
}

// exonRow is the on-disk layout of the exon table.  Columns are matched by
// header name, so their order in the file does not matter.
type exonRow struct {
	Chrom          string `tsv:"chrom"`
	Start          int64  `tsv:"start"`
	End            int64  `tsv:"end"`
	GeneID         string `tsv:"gene_id"`
	GeneName       string `tsv:"gene_name"`
	ExonNumber     string `tsv:"exon_number"`
	ExonID         string `tsv:"exon_id"`
	TranscriptName string `tsv:"transcript_name"`
	TranscriptInfo string `tsv:"transcript_info"`
	GeneBiotype    string `tsv:"gene_biotype"`
}

// ExonTable holds exons grouped by chromosome, in file order within each
// chromosome.
type ExonTable struct {
	byChrom map[string][]Exon
	chroms  []string
	n       int
}

// Chrom returns the exons on the named chromosome.
func (t *ExonTable) Chrom(name string) []Exon {
	return t.byChrom[name]
}

// Chroms returns the chromosome names in order of first appearance.
func (t *ExonTable) Chroms() []string {
	return t.chroms
}

// Len returns the total number of exons.
func (t *ExonTable) Len() int {
	return t.n
}

func (t *ExonTable) add(e Exon) {
	if _, ok := t.byChrom[e.Chrom]; !ok {
		t.chroms = append(t.chroms, e.Chrom)
	}
	t.byChrom[e.Chrom] = append(t.byChrom[e.Chrom], e)
	t.n++
}

// Restrict drops the exons that do not overlap any region of targets, and
// returns the number dropped.
func (t *ExonTable) Restrict(targets *interval.Targets) int {
	nDropped := 0
	for _, chrom := range t.chroms {
		exons := t.byChrom[chrom]
		kept := exons[:0]
		for _, e := range exons {
			if targets.Overlaps(e.Chrom, e.Interval) {
				kept = append(kept, e)
			}
		}
		nDropped += len(exons) - len(kept)
		t.byChrom[chrom] = kept
	}
	t.n -= nDropped
	return nDropped
}

// ReadExons parses a tab-separated exon table with a header row.
func ReadExons(r io.Reader) (*ExonTable, error) {
	reader := tsv.NewReader(r)
	reader.HasHeaderRow = true
	reader.UseHeaderNames = true

	t := &ExonTable{byChrom: make(map[string][]Exon)}
	for lineNum := 2; ; lineNum++ {
		var row exonRow
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(err, "mist: reading exon table")
		}
		if row.Chrom == "" || row.Start < 1 || row.End < row.Start || row.End > interval.PosTypeMax {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("mist: exon table line %d has invalid coordinates %s:%d-%d",
				lineNum, row.Chrom, row.Start, row.End))
		}
		e := Exon{
			Chrom:          row.Chrom,
			Interval:       interval.Interval{Start: interval.PosType(row.Start), End: interval.PosType(row.End)},
			GeneID:         row.GeneID,
			GeneName:       row.GeneName,
			ExonNumber:     row.ExonNumber,
			ExonID:         row.ExonID,
			TranscriptName: row.TranscriptName,
			TranscriptInfo: row.TranscriptInfo,
			GeneBiotype:    row.GeneBiotype,
		}
		t.add(e)
	}
	return t, nil
}

// ReadExonsPath reads an exon table from a file, which may be gzip or bzip2
// compressed.
func ReadExonsPath(ctx context.Context, path string) (t *ExonTable, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if cr := compress.NewReaderPath(r, in.Name()); cr != nil {
		defer func() {
			if e := cr.Close(); e != nil && err == nil {
				err = e
			}
		}()
		r = cr
	}
	if t, err = ReadExons(r); err != nil {
		return nil, errors.E(err, path)
	}
	log.Printf("mist: read %d exons on %d chromosomes from %s", t.Len(), len(t.Chroms()), path)
	return t, nil
}
