package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/genomics-workbench/mist/exttool"
	"github.com/genomics-workbench/mist/mist"
	"github.com/genomics-workbench/mist/pileup/window"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

// withInterrupt returns a context that is cancelled on SIGINT or SIGTERM, so
// a running samtools is killed and partial results are discarded.
func withInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigc:
			log.Printf("received %v, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigc)
	}()
	return ctx, cancel
}

func newCmdScan() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "scan",
		Short: "Report poorly covered stretches in and around exons",
		Long: `
Scan reads a coordinate-sorted alignment file, accumulates per-position depth
one chromosome at a time, and reports every maximal run of positions with
depth below -threshold inside each exon widened by -margin.

alignpath is either SAM text (.sam, optionally compressed), read directly, or
anything samtools can read (BAM, CRAM), decoded with "samtools view -h".
exonpath is a tab-separated table with a header row naming at least the
columns chrom, start, end, gene_id, gene_name, exon_number, exon_id,
transcript_name, transcript_info and gene_biotype.  Coordinates are 1-based
and closed.

Each gap is classified as "overlap" (covers the whole exon), "left" (covers
the exon start), "right" (covers the exon end) or "inside".`,
		ArgsName: "alignpath exonpath outpath",
	}
	opts := mist.DefaultOpts
	cmd.Flags.IntVar(&opts.Threshold, "threshold", opts.Threshold, "Positions with depth below this are poorly covered")
	cmd.Flags.IntVar(&opts.Margin, "margin", opts.Margin, "Number of positions scanned on each side of an exon")
	cmd.Flags.IntVar(&opts.MinLength, "min-length", opts.MinLength, "Gaps shorter than this are not reported")
	cmd.Flags.StringVar(&opts.Samtools, "samtools", opts.Samtools, "samtools executable")
	cmd.Flags.StringVar(&opts.Region, "region", opts.Region, "Restrict the scan to a region, <contig>[:<start>-<end>]; requires an indexed BAM")
	cmd.Flags.StringVar(&opts.TargetsPath, "targets", opts.TargetsPath, "BED file; only exons overlapping a target are scanned")
	cmd.Flags.StringVar(&opts.ContigsPath, "contigs", opts.ContigsPath, "SAM header or .fai file giving contig lengths, for inputs whose header lacks @SQ lines")
	cmd.Flags.StringVar(&opts.Format, "format", opts.Format, "Output format, 'tsv' or 'tsv-bgz'; by default tsv-bgz if outpath ends in .tsv.gz, else tsv")
	cmd.Flags.IntVar(&opts.Parallelism, "parallelism", opts.Parallelism, "Number of bgzip compression threads; 0 = runtime.NumCPU()")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("scan takes alignpath exonpath outpath, but got %v", argv)
		}
		ctx, cancel := withInterrupt(vcontext.Background())
		defer cancel()
		_, err := mist.Run(ctx, opts, exttool.NewGoshRunner(), argv[0], argv[1], argv[2])
		return err
	})
	return cmd
}

func newCmdView() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "view",
		Short: "Print per-position pileup counts for a region",
		Long: `
View runs "samtools mpileup" over a region of an indexed BAM and prints one
row per position (and per inserted position) with forward and reverse counts
of each base.  With -tile, the region is requested in consecutive tiles, the
way a scrolling viewer would; tiles inside the cached window are served
without re-running samtools.`,
		ArgsName: "bampath",
	}
	opts := defaultViewOpts
	cmd.Flags.StringVar(&opts.region, "region", "", "Region to print, <contig>:<start>-<end> (1-based, closed). Required")
	cmd.Flags.IntVar(&opts.margin, "margin", opts.margin, "Positions fetched on each side of a requested tile")
	cmd.Flags.IntVar(&opts.tile, "tile", opts.tile, "If positive, request the region in tiles of this many positions")
	cmd.Flags.StringVar(&opts.fastaPath, "fasta", "", "Reference FASTA, passed to samtools mpileup -f")
	cmd.Flags.StringVar(&opts.contigsPath, "contigs", "", "SAM header or .fai file giving contig lengths; fetches are clipped to them")
	cmd.Flags.StringVar(&opts.samtools, "samtools", opts.samtools, "samtools executable")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("view takes one bampath argument, but got %v", argv)
		}
		ctx, cancel := withInterrupt(vcontext.Background())
		defer cancel()
		return view(ctx, exttool.NewGoshRunner(), opts, argv[0], env.Stdout)
	})
	return cmd
}

var defaultViewOpts = viewOpts{
	margin:   window.DefaultOpts.Margin,
	samtools: "samtools",
}

// Run is the bio-mist entry point.
func Run() {
	shutdown := grail.Init()
	cmdline.HideGlobalFlagsExcept()
	root := &cmdline.Command{
		Name:     "bio-mist",
		Short:    "Coverage-gap detection and pileup inspection",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdScan(),
			newCmdView(),
		},
	}
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(root, env, os.Args[1:])
	shutdown()
	os.Exit(cmdline.ExitCode(err, env.Stderr))
}
