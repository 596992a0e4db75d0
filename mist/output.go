package mist

import (
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

// Format selects the gap table encoding.
type Format int

const (
	// FormatTSV is plain tab-separated text.
	FormatTSV Format = iota
	// FormatTSVBgz is tab-separated text, bgzip-compressed.
	FormatTSVBgz
)

// ParseFormat converts a -format flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "tsv":
		return FormatTSV, nil
	case "tsv-bgz":
		return FormatTSVBgz, nil
	}
	return FormatTSV, errors.E(errors.Invalid, "mist: unknown output format", s, "(expected tsv or tsv-bgz)")
}

// Suffix returns the conventional file suffix for the format.
func (f Format) Suffix() string {
	if f == FormatTSVBgz {
		return ".tsv.gz"
	}
	return ".tsv"
}

// FormatForPath returns the format whose Suffix ends path, or FormatTSV if
// none does.
func FormatForPath(path string) Format {
	if strings.HasSuffix(path, FormatTSVBgz.Suffix()) {
		return FormatTSVBgz
	}
	return FormatTSV
}

const gapHeader = "chrom\texon_start\texon_end\tpoor_start\tpoor_end\tgene_id\tgene_name\texon_number\texon_id\ttranscript_name\ttranscript_info\tgene_biotype\tmatch"

// GapWriter writes the gap table.  The header row is written by
// NewGapWriter.
type GapWriter struct {
	w     *tsv.Writer
	bgzfW *bgzf.Writer
	n     int
}

// NewGapWriter returns a writer for the given format.  parallelism bounds the
// number of bgzip compression goroutines.
func NewGapWriter(w io.Writer, format Format, parallelism int) (*GapWriter, error) {
	gw := &GapWriter{}
	if format == FormatTSVBgz {
		gw.bgzfW = bgzf.NewWriter(w, parallelism)
		w = gw.bgzfW
	}
	gw.w = tsv.NewWriter(w)
	gw.w.WriteString(gapHeader)
	if err := gw.w.EndLine(); err != nil {
		return nil, err
	}
	return gw, nil
}

// Write appends one row per gap.
func (gw *GapWriter) Write(gaps ...Gap) error {
	for i := range gaps {
		g := &gaps[i]
		e := &g.Exon
		gw.w.WriteString(e.Chrom)
		gw.w.WriteInt64(int64(e.Start))
		gw.w.WriteInt64(int64(e.End))
		gw.w.WriteInt64(int64(g.Start))
		gw.w.WriteInt64(int64(g.End))
		gw.w.WriteString(e.GeneID)
		gw.w.WriteString(e.GeneName)
		gw.w.WriteString(e.ExonNumber)
		gw.w.WriteString(e.ExonID)
		gw.w.WriteString(e.TranscriptName)
		gw.w.WriteString(e.TranscriptInfo)
		gw.w.WriteString(e.GeneBiotype)
		gw.w.WriteString(g.Match.String())
		if err := gw.w.EndLine(); err != nil {
			return err
		}
		gw.n++
	}
	return nil
}

// Len returns the number of gaps written.
func (gw *GapWriter) Len() int {
	return gw.n
}

// Close flushes buffered output.  It does not close the underlying writer.
func (gw *GapWriter) Close() (err error) {
	err = gw.w.Flush()
	if gw.bgzfW != nil {
		if e := gw.bgzfW.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
