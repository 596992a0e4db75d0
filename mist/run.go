package mist

import (
	"bufio"
	"context"
	"io"
	"runtime"
	"strings"

	"github.com/genomics-workbench/mist/contig"
	"github.com/genomics-workbench/mist/coverage"
	"github.com/genomics-workbench/mist/exttool"
	"github.com/genomics-workbench/mist/interval"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Opts configures Run.
type Opts struct {
	// Commandline options.  An empty Format is chosen from the output path.
	Threshold   int
	Margin      int
	MinLength   int
	Samtools    string
	Region      string
	TargetsPath string
	ContigsPath string
	Format      string
	Parallelism int
}

// DefaultOpts holds the flag defaults.
var DefaultOpts = Opts{
	Threshold:   20,
	Margin:      10,
	MinLength:   0,
	Samtools:    "samtools",
	Format:      "",
	Parallelism: 0,
}

// Stats summarizes a run.
type Stats struct {
	coverage.Stats
	// NParseError is the number of malformed alignment lines skipped.
	NParseError int
	// NGap is the number of gaps written.
	NGap int
	// MissingContigs lists the chromosomes skipped for lack of a length.
	MissingContigs []string
}

// cancelCheckInterval is how many lines are read between context checks.
// The context is also checked before each chromosome is scanned.
var cancelCheckInterval = 1 << 16

// pipeline connects a SAM text stream to the tracker, and each flushed depth
// array to Scan and the gap writer.
type pipeline struct {
	ctx     context.Context
	scan    ScanOpts
	exons   *ExonTable
	lengths contig.Lengths
	out     *GapWriter

	header  strings.Builder
	tracker *coverage.Tracker
	nLine   int
	stats   Stats
}

func newPipeline(ctx context.Context, scan ScanOpts, exons *ExonTable, lengths contig.Lengths, out *GapWriter) *pipeline {
	return &pipeline{ctx: ctx, scan: scan, exons: exons, lengths: lengths, out: out}
}

// flush consumes one chromosome's depth array.
func (p *pipeline) flush(d *coverage.DepthArray) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	gaps := Scan(d, p.exons.Chrom(d.RefName), p.scan)
	log.Printf("mist: %s: %d exons, %d gaps", d.RefName, len(p.exons.Chrom(d.RefName)), len(gaps))
	return p.out.Write(gaps...)
}

// startTracker sizes depth arrays from p.lengths if set, else from the
// header collected so far.
func (p *pipeline) startTracker() error {
	lengths := p.lengths
	if lengths == nil {
		t, err := contig.FromSAMHeader([]byte(p.header.String()))
		if err != nil {
			return errors.E(errors.Invalid, err, "mist: parsing SAM header")
		}
		if len(t.Names()) == 0 {
			return errors.E(errors.Invalid, "mist: SAM header has no @SQ lines; supply contig lengths separately")
		}
		lengths = t
	}
	p.tracker = coverage.NewTracker(lengths, p.flush)
	return nil
}

func (p *pipeline) addLine(line string) error {
	p.nLine++
	if p.nLine%cancelCheckInterval == 0 {
		if err := p.ctx.Err(); err != nil {
			return err
		}
	}
	if p.tracker == nil {
		if strings.HasPrefix(line, "@") {
			p.header.WriteString(line)
			p.header.WriteByte('\n')
			return nil
		}
		if err := p.startTracker(); err != nil {
			return err
		}
	}
	if len(line) == 0 {
		return nil
	}
	a, err := coverage.ParseAlignment(line)
	if err != nil {
		p.stats.NParseError++
		log.Error.Printf("mist: line %d: %v", p.nLine, err)
		return nil
	}
	if err := p.tracker.Add(a); err != nil {
		if e, ok := err.(*coverage.MissingContigError); ok {
			p.stats.MissingContigs = append(p.stats.MissingContigs, e.RefName)
			log.Error.Printf("mist: %v; its alignments are skipped", e)
			return nil
		}
		return err
	}
	return nil
}

// finish closes the tracker, or aborts it if err is non-nil.
func (p *pipeline) finish(err error) (Stats, error) {
	if err == nil && p.tracker == nil {
		// Header-only input.
		err = p.startTracker()
	}
	if p.tracker != nil {
		if err != nil {
			p.tracker.Abort()
		} else {
			err = p.tracker.Close()
		}
		p.stats.Stats = p.tracker.Stats()
	}
	p.stats.NGap = p.out.Len()
	return p.stats, err
}

// ScanSAM reads a coordinate-sorted SAM text stream, header included, and
// writes the gaps of every exon in exons to out.  If lengths is nil, contig
// lengths come from the SAM header.
func ScanSAM(ctx context.Context, r io.Reader, exons *ExonTable, lengths contig.Lengths, scan ScanOpts, out *GapWriter) (Stats, error) {
	p := newPipeline(ctx, scan, exons, lengths, out)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 256<<20)
	var err error
	for sc.Scan() {
		if err = p.addLine(sc.Text()); err != nil {
			break
		}
	}
	if err == nil {
		err = sc.Err()
	}
	return p.finish(err)
}

// ScanBAM runs "samtools view -h" on a coordinate-sorted BAM (or CRAM) and
// scans its alignments as ScanSAM does.  A non-empty region restricts the
// alignments read; the BAM must then be indexed.
func ScanBAM(ctx context.Context, runner exttool.Runner, samtools, bamPath, region string, exons *ExonTable, lengths contig.Lengths, scan ScanOpts, out *GapWriter) (Stats, error) {
	args := []string{"view", "-h", bamPath}
	if region != "" {
		args = append(args, region)
	}
	p := newPipeline(ctx, scan, exons, lengths, out)
	err := exttool.RunLines(ctx, runner, p.addLine, samtools, args...)
	return p.finish(err)
}

// isSAMText returns whether path names a SAM text file rather than something
// samtools must decode.
func isSAMText(path string) bool {
	for _, suffix := range []string{".gz", ".bz2"} {
		path = strings.TrimSuffix(path, suffix)
	}
	return strings.HasSuffix(path, ".sam")
}

// Run loads exons (and optional targets and contig lengths), scans the
// alignments in alignPath, and writes the gap table to outPath.  SAM text
// files are read directly; anything else is decoded by samtools through
// runner.
func Run(ctx context.Context, opts Opts, runner exttool.Runner, alignPath, exonsPath, outPath string) (stats Stats, err error) {
	format := FormatForPath(outPath)
	if opts.Format != "" {
		if format, err = ParseFormat(opts.Format); err != nil {
			return stats, err
		}
	}
	if opts.Threshold < 0 || opts.Margin < 0 || opts.MinLength < 0 {
		return stats, errors.E(errors.Invalid, "mist: -threshold, -margin and -min-length must be nonnegative")
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	exons, err := ReadExonsPath(ctx, exonsPath)
	if err != nil {
		return stats, err
	}
	if opts.TargetsPath != "" {
		targets, err := interval.ReadBEDPath(opts.TargetsPath)
		if err != nil {
			return stats, err
		}
		n := exons.Restrict(targets)
		log.Printf("mist: %d exons outside %s dropped", n, opts.TargetsPath)
	}
	if opts.Region != "" {
		region, err := interval.ParseRegion(opts.Region)
		if err != nil {
			return stats, errors.E(errors.Invalid, err)
		}
		n := exons.Restrict(interval.NewTargets([]interval.Region{region}))
		log.Printf("mist: %d exons outside %s dropped", n, opts.Region)
	}
	var lengths contig.Lengths
	if opts.ContigsPath != "" {
		if lengths, err = contig.Open(ctx, opts.ContigsPath); err != nil {
			return stats, err
		}
	}

	dst, err := file.Create(ctx, outPath)
	if err != nil {
		return stats, err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	out, err := NewGapWriter(dst.Writer(ctx), format, parallelism)
	if err != nil {
		return stats, err
	}
	defer func() {
		if e := out.Close(); e != nil && err == nil {
			err = e
		}
	}()

	scan := ScanOpts{Threshold: opts.Threshold, Margin: opts.Margin, MinLength: opts.MinLength}
	if isSAMText(alignPath) {
		stats, err = scanSAMPath(ctx, alignPath, exons, lengths, scan, out)
	} else {
		stats, err = ScanBAM(ctx, runner, opts.Samtools, alignPath, opts.Region, exons, lengths, scan, out)
	}
	if err != nil {
		return stats, err
	}
	log.Printf("mist: %d alignments (%d clipped, %d skipped, %d malformed) on %d chromosomes; %d gaps written to %s",
		stats.NRecord, stats.NClipped, stats.NSkipped, stats.NParseError, stats.NChromosome, stats.NGap, outPath)
	return stats, nil
}

func scanSAMPath(ctx context.Context, path string, exons *ExonTable, lengths contig.Lengths, scan ScanOpts, out *GapWriter) (stats Stats, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return stats, err
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
	return ScanSAM(ctx, r, exons, lengths, scan, out)
}
