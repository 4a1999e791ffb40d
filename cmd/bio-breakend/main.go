package main

// bio-breakend generates putative breakend sequences for structural variant
// calling. It reads two BAM files:
//
//   - -sv-input: reads supporting putative structural variations, sorted by
//     alignment position. Soft clipped and split reads become breakend
//     evidence.
//
//   - -mate-input: discordant and one-end-anchored read pairs, sorted by the
//     position of the mapped mate.
//
// Evidence is assembled locally around each breakend. The assembled contigs
// are written to -vcf-output as single breakend records whose partner is a
// placeholder contig. Breakpoint sequences of the contigs and of long soft
// clips are written to -fastq-output, on the reference strand and without the
// anchored bases, so that they can be realigned to find the partner.
//
// Example:
//
//   bio-breakend -sv-input=sv.bam -mate-input=mate.bam -reference=hg19.fa \
//     -vcf-output=breakend.vcf.gz -fastq-output=breakend.fq.gz
//
// With -assembly-rio, the breakpoints are also saved to a recordio file, which
// -dump-assembly prints as text:
//
//   bio-breakend -dump-assembly=breakend.rio

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/breakend/breakpoint"
	"github.com/grailbio/breakend/encoding/bamprovider"
	"github.com/grailbio/breakend/encoding/fasta"
	"github.com/grailbio/breakend/encoding/fastq"
	"github.com/grailbio/breakend/encoding/vcf"
	"github.com/grailbio/breakend/evidence"
	"github.com/klauspost/compress/gzip"
)

// Collection of options set via cmdline flags
type breakendFlags struct {
	svInputPath     string
	mateInputPath   string
	vcfOutputPath   string
	fastqOutputPath string
	metricsPath     string
	referencePath   string
	assemblyRioPath string
	dumpAssembly    string
	parallelism     int
}

// fastqFile is a FASTQ writer that owns its output file. Output is gzipped
// when the path ends in ".gz".
type fastqFile struct {
	*fastq.Writer
	path string
	out  file.File
	gz   *gzip.Writer
}

func createFASTQ(ctx context.Context, path string) (*fastqFile, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	f := &fastqFile{path: path, out: out}
	w := out.Writer(ctx)
	if strings.HasSuffix(path, ".gz") {
		f.gz = gzip.NewWriter(w)
		w = f.gz
	}
	f.Writer = fastq.NewWriter(w)
	return f, nil
}

func (f *fastqFile) Close(ctx context.Context) error {
	var e errors.Once
	e.Set(f.Err())
	if f.gz != nil {
		e.Set(f.gz.Close())
	}
	e.Set(f.out.Close(ctx))
	if err := e.Err(); err != nil {
		return errors.E(err, "close", f.path)
	}
	return nil
}

// recordWriters fans breakpoint records out to several writers.
type recordWriters []breakpoint.RecordWriter

// WriteBreakpoint implements breakpoint.RecordWriter.
func (ws recordWriters) WriteBreakpoint(r vcf.Record) error {
	for _, w := range ws {
		if err := w.WriteBreakpoint(r); err != nil {
			return err
		}
	}
	return nil
}

func checkReadable(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		if _, err := file.Stat(ctx, path); err != nil {
			return errors.E(err, "input", path)
		}
	}
	return nil
}

// generateBreakpoints runs the whole pipeline. Opts.Evidence is updated from
// the metrics file, if any.
func generateBreakpoints(ctx context.Context, flags breakendFlags, opts breakpoint.Opts) (stats breakpoint.Stats, err error) {
	if flags.svInputPath == "" || flags.mateInputPath == "" || flags.vcfOutputPath == "" || flags.fastqOutputPath == "" {
		return stats, errors.E("-sv-input, -mate-input, -vcf-output and -fastq-output must be set")
	}
	inputs := []string{flags.svInputPath, flags.mateInputPath}
	if flags.metricsPath != "" {
		inputs = append(inputs, flags.metricsPath)
	}
	if flags.referencePath != "" {
		inputs = append(inputs, flags.referencePath)
	}
	if err = checkReadable(ctx, inputs...); err != nil {
		return
	}
	if flags.metricsPath != "" {
		if err = evidence.ReadInsertSizeMetrics(ctx, flags.metricsPath, &opts.Evidence); err != nil {
			return
		}
		opts.Assembly.MaxLocusSpan = 2 * opts.Evidence.MaxFragmentSize
		log.Printf("%s: max fragment size %d", flags.metricsPath, opts.Evidence.MaxFragmentSize)
	}

	providerOpts := bamprovider.ProviderOpts{Parallelism: flags.parallelism}
	ownProvider := bamprovider.NewProvider(flags.svInputPath, providerOpts)
	mateProvider := bamprovider.NewProvider(flags.mateInputPath, providerOpts)
	defer func() {
		if e := ownProvider.Close(); e != nil && err == nil {
			err = e
		}
		if e := mateProvider.Close(); e != nil && err == nil {
			err = e
		}
	}()
	header, err := ownProvider.GetHeader()
	if err != nil {
		return
	}
	if _, err = mateProvider.GetHeader(); err != nil {
		return
	}

	var ref *fasta.File
	if flags.referencePath != "" {
		if ref, err = fasta.Open(ctx, flags.referencePath); err != nil {
			return
		}
		defer func() {
			if e := ref.Close(ctx); e != nil && err == nil {
				err = e
			}
		}()
	}
	var c *breakpoint.Context
	if ref != nil {
		c, err = breakpoint.NewContext(header, ref, opts)
	} else {
		c, err = breakpoint.NewContext(header, nil, opts)
	}
	if err != nil {
		return
	}

	vcfOut, err := vcf.Create(ctx, flags.vcfOutputPath, header, c.Reference, flags.parallelism)
	if err != nil {
		return
	}
	defer func() {
		if e := vcfOut.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	fastqOut, err := createFASTQ(ctx, flags.fastqOutputPath)
	if err != nil {
		return
	}
	defer func() {
		if e := fastqOut.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	records := recordWriters{vcfOut}
	if flags.assemblyRioPath != "" {
		var refNames []string
		for _, r := range header.Refs() {
			refNames = append(refNames, r.Name())
		}
		var rio *contigWriter
		if rio, err = newContigWriter(ctx, flags.assemblyRioPath, refNames, opts); err != nil {
			return
		}
		defer func() {
			if e := rio.Close(ctx); e != nil && err == nil {
				err = e
			}
		}()
		records = append(records, rio)
	}

	own := ownProvider.NewIterator()
	mate := mateProvider.NewIterator()
	stats, err = breakpoint.Run(c,
		breakpoint.Input{Name: flags.svInputPath, Records: own},
		breakpoint.Input{Name: flags.mateInputPath, Records: mate},
		fastqOut, records)
	if e := own.Close(); e != nil && err == nil {
		err = e
	}
	if e := mate.Close(); e != nil && err == nil {
		err = e
	}
	return
}

func main() {
	opts := breakpoint.DefaultOpts
	flags := breakendFlags{}
	flag.StringVar(&flags.svInputPath, "sv-input", "", "Coordinate sorted BAM file containing reads supporting putative structural variations.")
	flag.StringVar(&flags.mateInputPath, "mate-input", "", "BAM file of discordant and one-end-anchored read pairs, sorted by the coordinate of the mapped mate.")
	flag.StringVar(&flags.vcfOutputPath, "vcf-output", "", "VCF file of directed single-ended breakpoints. A placeholder contig is output as the breakpoint partner. Bgzipped if the path ends in .gz.")
	flag.StringVar(&flags.fastqOutputPath, "fastq-output", "", "FASTQ file of reference strand breakpoint sequences, excluding anchored bases. Gzipped if the path ends in .gz.")
	flag.StringVar(&flags.metricsPath, "metrics", "", "Picard insert size metrics of the library. If empty, the default maximum fragment size is used.")
	flag.StringVar(&flags.referencePath, "reference", "", "Reference FASTA used for alignment. Indexed access is used if <reference>.fai exists.")
	flag.StringVar(&flags.assemblyRioPath, "assembly-rio", "", "If set, assembled breakpoints are also written to this recordio file.")
	flag.StringVar(&flags.dumpAssembly, "dump-assembly", "", "If set, print the breakpoints of this -assembly-rio file and exit.")
	flag.IntVar(&flags.parallelism, "parallelism", 2, "Number of (de)compression goroutines per file.")
	flag.IntVar(&opts.Filter.MinMapQ, "min-mapq", breakpoint.DefaultFilter.MinMapQ, "Minimum alignment mapq")
	flag.IntVar(&opts.Filter.MinBreakendLength, "min-breakend-realign-length", breakpoint.DefaultFilter.MinBreakendLength, "Minimum length of a breakend to be considered for realignment")
	flag.Float64Var(&opts.Filter.MinPercentIdentity, "min-percent-identity", breakpoint.DefaultFilter.MinPercentIdentity, "Minimum alignment percent identity to reference. Takes values in the range 0-100.")
	flag.Float64Var(&opts.Filter.MinBreakendQuality, "min-long-sc-base-quality", breakpoint.DefaultFilter.MinBreakendQuality, "Minimum average base quality score of soft clipped sequence")
	flag.IntVar(&opts.Assembly.K, "k", breakpoint.DefaultOpts.Assembly.K, "k-mer used for de bruijn graph construction")
	flag.IntVar(&opts.Assembly.MinKmerSupport, "min-kmer-support", breakpoint.DefaultOpts.Assembly.MinKmerSupport, "k-mers seen fewer times are treated as sequencing errors")
	flag.IntVar(&opts.Evidence.MaxFragmentSize, "max-fragment-size", breakpoint.DefaultOpts.Evidence.MaxFragmentSize, "Maximum fragment size, used when -metrics is empty")
	flag.IntVar(&opts.ProgressInterval, "progress-interval", breakpoint.DefaultOpts.ProgressInterval, "Number of evidence items between progress messages")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()
	if flags.dumpAssembly != "" {
		if err := dumpAssembly(ctx, flags.dumpAssembly, os.Stdout); err != nil {
			log.Fatalf("bio-breakend: %v", err)
		}
		return
	}
	if flags.metricsPath == "" {
		opts.Assembly.MaxLocusSpan = 2 * opts.Evidence.MaxFragmentSize
	}
	stats, err := generateBreakpoints(ctx, flags, opts)
	if err != nil {
		log.Fatalf("bio-breakend: %v", err)
	}
	log.Printf("Stats: %+v", stats)
	log.Printf("All done")
}
