package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/breakend/breakpoint"
	"github.com/grailbio/breakend/encoding/vcf"
	"github.com/grailbio/breakend/evidence"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

// readSeq has no repeated 25-mer.
const readSeq = "ACGTTGCAACGGATCCTTAGGATTACAGGCTTCCAAGTCATGCATGGACCTAGCATCGAT"

const metricsTemplate = `## htsjdk.samtools.metrics.StringHeader
# CollectInsertSizeMetrics

## METRICS CLASS	picard.analysis.InsertSizeMetrics
MEDIAN_INSERT_SIZE	MEDIAN_ABSOLUTE_DEVIATION	MIN_INSERT_SIZE	MAX_INSERT_SIZE	MEAN_INSERT_SIZE	STANDARD_DEVIATION	READ_PAIRS	PAIR_ORIENTATION	SAMPLE	LIBRARY	READ_GROUP
285	39	20	600	291.2	60.5	1000	%ORIENTATION%			
`

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	status := m.Run()
	shutdown()
	os.Exit(status)
}

func newHeader(t *testing.T) *sam.Header {
	ref, err := sam.NewReference("chr1", "", "", 100000, nil, nil)
	assert.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{ref})
	assert.NoError(t, err)
	return header
}

func newRecord(t *testing.T, header *sam.Header, name string, pos int, cigar, seq string) *sam.Record {
	c, err := sam.ParseCigar([]byte(cigar))
	assert.NoError(t, err)
	r := sam.GetFromFreePool()
	r.Name = name
	r.Ref = header.Refs()[0]
	r.Pos = pos
	r.MateRef = nil
	r.MatePos = -1
	r.MapQ = 60
	r.Cigar = c
	r.Seq = sam.NewSeq([]byte(seq))
	r.Qual = []byte(strings.Repeat("\x1e", len(seq)))
	return r
}

func writeBAM(t *testing.T, path string, header *sam.Header, recs ...*sam.Record) {
	f, err := os.Create(path)
	assert.NoError(t, err)
	w, err := bam.NewWriter(f, header, 1)
	assert.NoError(t, err)
	for _, r := range recs {
		assert.NoError(t, w.Write(r))
	}
	assert.NoError(t, w.Close())
	assert.NoError(t, f.Close())
}

// setup writes the inputs of a run to dir and returns the flags that read
// them.
func setup(t *testing.T, dir, orientation string) breakendFlags {
	header := newHeader(t)
	flags := breakendFlags{
		svInputPath:     filepath.Join(dir, "sv.bam"),
		mateInputPath:   filepath.Join(dir, "mate.bam"),
		vcfOutputPath:   filepath.Join(dir, "out.vcf"),
		fastqOutputPath: filepath.Join(dir, "out.fq.gz"),
		metricsPath:     filepath.Join(dir, "metrics.txt"),
		referencePath:   filepath.Join(dir, "ref.fa"),
		assemblyRioPath: filepath.Join(dir, "out.rio"),
		parallelism:     1,
	}
	writeBAM(t, flags.svInputPath, header,
		newRecord(t, header, "r1", 970, "30M30S", readSeq),
		newRecord(t, header, "r2", 970, "30M30S", readSeq),
		newRecord(t, header, "r3", 5000, "60M", readSeq))
	writeBAM(t, flags.mateInputPath, header)
	assert.NoError(t, ioutil.WriteFile(flags.metricsPath,
		[]byte(strings.Replace(metricsTemplate, "%ORIENTATION%", orientation, 1)), 0644))
	assert.NoError(t, ioutil.WriteFile(flags.referencePath,
		[]byte(">chr1\n"+strings.Repeat("ACGT", 25000)+"\n"), 0644))
	return flags
}

func TestGenerateBreakpoints(t *testing.T) {
	ctx := vcontext.Background()
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	flags := setup(t, tmpDir, "FR")

	stats, err := generateBreakpoints(ctx, flags, breakpoint.DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, stats.Own.Records, 3)
	expect.EQ(t, stats.Evidence, 2)
	expect.EQ(t, stats.Assembly.Contigs, 1)
	expect.EQ(t, stats.Output, breakpoint.OutputStats{Sequences: 3, Records: 1})

	// VCF: one breakend at the end of the anchoring alignment.
	data, err := ioutil.ReadFile(flags.vcfOutputPath)
	assert.NoError(t, err)
	var body []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if !strings.HasPrefix(line, "#") {
			body = append(body, line)
		}
	}
	assert.EQ(t, len(body), 1)
	cols := strings.Split(body[0], "\t")
	expect.EQ(t, cols[0], "chr1")
	expect.EQ(t, cols[1], "1000")
	expect.True(t, strings.HasPrefix(cols[2], "asm0_1000f_"))
	expect.EQ(t, cols[3], "T")
	expect.EQ(t, cols[4], "T"+readSeq[30:]+"["+vcf.PlaceholderContig+":1[")
	expect.True(t, strings.Contains(cols[7], "EVID=scf:r1,scf:r2"))

	// FASTQ: both soft clips, then the contig.
	f, err := os.Open(flags.fastqOutputPath)
	assert.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	assert.NoError(t, err)
	fq, err := ioutil.ReadAll(gz)
	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(fq), "\n"), "\n")
	assert.EQ(t, len(lines), 12)
	var ids []string
	for i := 0; i < len(lines); i += 4 {
		ids = append(ids, lines[i])
		expect.EQ(t, lines[i+1], readSeq[30:])
		expect.EQ(t, lines[i+2], "+")
		expect.EQ(t, len(lines[i+3]), 30)
	}
	expect.EQ(t, ids[:2], []string{"@scf:r1", "@scf:r2"})
	expect.EQ(t, ids[2], "@"+cols[2])

	// The recordio dump holds the same breakpoint and the options.
	cr, err := newContigReader(ctx, flags.assemblyRioPath)
	assert.NoError(t, err)
	expect.EQ(t, cr.RefNames(), []string{"chr1"})
	expect.EQ(t, cr.Opts().Evidence.MaxFragmentSize, 600)
	expect.EQ(t, cr.Opts().Assembly.MaxLocusSpan, 1200)
	var contigs []ContigRecord
	for cr.Scan() {
		contigs = append(contigs, cr.Get())
	}
	assert.NoError(t, cr.Close(ctx))
	assert.EQ(t, len(contigs), 1)
	c := contigs[0]
	expect.EQ(t, c.ID, cols[2])
	expect.EQ(t, c.Start, 1000)
	expect.EQ(t, c.Direction, evidence.Forward)
	expect.EQ(t, c.MateContig, vcf.PlaceholderContig)
	expect.EQ(t, string(c.BreakpointSeq), readSeq[30:])
	expect.EQ(t, c.EvidenceIDs, []string{"scf:r1", "scf:r2"})

	var dump strings.Builder
	assert.NoError(t, dumpAssembly(ctx, flags.assemblyRioPath, &dump))
	expect.EQ(t, dump.String(),
		cols[2]+"\tchr1\t1000\t1000\tf\t30\t"+readSeq[30:]+"\tscf:r1,scf:r2\n")
	expect.NotNil(t, dumpAssembly(ctx, flags.vcfOutputPath, &dump))
}

func TestGenerateBreakpointsErrors(t *testing.T) {
	ctx := vcontext.Background()
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	// Only FR pairs are supported.
	flags := setup(t, tmpDir, "RF")
	_, err := generateBreakpoints(ctx, flags, breakpoint.DefaultOpts)
	assert.Regexp(t, err, "RF")

	flags = setup(t, tmpDir, "FR")
	flags.mateInputPath = filepath.Join(tmpDir, "missing.bam")
	_, err = generateBreakpoints(ctx, flags, breakpoint.DefaultOpts)
	assert.Regexp(t, err, "missing.bam")

	flags = setup(t, tmpDir, "FR")
	flags.vcfOutputPath = ""
	_, err = generateBreakpoints(ctx, flags, breakpoint.DefaultOpts)
	expect.NotNil(t, err)

	flags = setup(t, tmpDir, "FR")
	opts := breakpoint.DefaultOpts
	opts.Assembly.K = 0
	_, err = generateBreakpoints(ctx, flags, opts)
	expect.NotNil(t, err)
}
