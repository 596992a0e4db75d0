package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/genomics-workbench/mist/contig"
	"github.com/genomics-workbench/mist/exttool"
	"github.com/genomics-workbench/mist/interval"
	"github.com/genomics-workbench/mist/pileup"
	"github.com/genomics-workbench/mist/pileup/window"
	"github.com/grailbio/base/log"
)

type viewOpts struct {
	region      string
	margin      int
	tile        int
	fastaPath   string
	contigsPath string
	samtools    string
}

func view(ctx context.Context, runner exttool.Runner, opts viewOpts, bamPath string, out io.Writer) error {
	if opts.region == "" {
		return fmt.Errorf("view: -region is required")
	}
	if opts.margin < 0 {
		return fmt.Errorf("view: -margin must be nonnegative, got %d", opts.margin)
	}
	region, err := interval.ParseRegion(opts.region)
	if err != nil {
		return err
	}
	wopts := window.Opts{Margin: opts.margin}
	if opts.contigsPath != "" {
		lengths, err := contig.Open(ctx, opts.contigsPath)
		if err != nil {
			return err
		}
		length, ok := lengths.Len(region.RefName)
		if !ok {
			return fmt.Errorf("view: contig %s not found in %s", region.RefName, opts.contigsPath)
		}
		if region.End > length {
			region.End = length
		}
		wopts.Lengths = lengths
	} else if region.End == interval.PosTypeMax-1 {
		return fmt.Errorf("view: region %s has no end; give one, or pass -contigs", opts.region)
	}

	buf := window.NewBuffer(&window.ToolSource{
		Runner:    runner,
		Samtools:  opts.samtools,
		BAMPath:   bamPath,
		FastaPath: opts.fastaPath,
	}, wopts)
	w, err := pileup.NewColumnWriter(out)
	if err != nil {
		return err
	}
	tile := int64(opts.tile)
	if tile <= 0 {
		tile = int64(region.Len())
	}
	for start := int64(region.Start); start <= int64(region.End); start += tile {
		end := start + tile - 1
		if end > int64(region.End) {
			end = int64(region.End)
		}
		cols, err := buf.Range(ctx, region.RefName, interval.PosType(start), interval.PosType(end))
		if err != nil {
			return err
		}
		if err := w.Write(cols...); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	log.Printf("view: %s: %d positions, %d samtools runs", region, region.Len(), buf.Fetches())
	return nil
}
