package assembly

import (
	"testing"

	"github.com/grailbio/breakend/evidence"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/testutil/h"
	"github.com/stretchr/testify/require"
)

func newTestAssembler(t *testing.T, opts Opts) *Assembler {
	a, err := NewAssembler(opts)
	assert.NoError(t, err)
	return a
}

func addAll(t *testing.T, a *Assembler, items ...evidence.DirectedEvidence) [][]*Contig {
	var result [][]*Contig
	for _, e := range items {
		contigs, err := a.Add(e)
		assert.NoError(t, err)
		result = append(result, contigs)
	}
	return result
}

func TestAssemblerLaggedEmission(t *testing.T) {
	opts := testOpts
	opts.MaxLocusSpan = 2000
	a := newTestAssembler(t, opts)
	out := addAll(t, a,
		softClip("f1", 0, 1000, evidence.Forward, forwardSeq, 10),
		softClip("f2", 0, 1000, evidence.Forward, forwardSeq, 10),
		softClip("b1", 0, 1005, evidence.Backward, backwardSeq, 10),
		softClip("b2", 0, 1005, evidence.Backward, backwardSeq, 10),
		softClip("f3", 0, 3000, evidence.Forward, forwardSeq, 10),
		softClip("g1", 1, 10, evidence.Forward, forwardSeq, 10),
	)
	expect.EQ(t, len(out[0]), 0)
	expect.EQ(t, len(out[1]), 0)

	// The forward locus closes when evidence moves past it.
	require.Equal(t, 1, len(out[2]))
	c := out[2][0]
	expect.EQ(t, c.Breakend, evidence.BreakendSummary{RefID: 0, Start: 1000, End: 1000, Direction: evidence.Forward})
	expect.EQ(t, string(c.Seq), forwardSeq)
	expect.EQ(t, string(c.BreakpointSeq()), forwardSeq[10:])
	expect.EQ(t, len(c.BreakpointQual()), 10)
	expect.That(t, c.EvidenceIDs(), h.ElementsAre("f1", "f2"))

	expect.EQ(t, len(out[3]), 0)
	require.Equal(t, 1, len(out[4]))
	c = out[4][0]
	expect.EQ(t, c.Breakend, evidence.BreakendSummary{RefID: 0, Start: 1005, End: 1005, Direction: evidence.Backward})
	// Backward contigs are reported on the reference strand, anchor last.
	expect.EQ(t, string(c.Seq), backwardSeq)
	expect.EQ(t, string(c.BreakpointSeq()), backwardSeq[:10])

	// A single read does not assemble.
	require.Equal(t, 1, len(out[5]))
	expect.True(t, out[5][0] == nil)

	final := a.EndOfEvidence()
	require.Equal(t, 1, len(final))
	expect.True(t, final[0] == nil)

	stats := a.Stats()
	expect.EQ(t, stats.Evidence, 6)
	expect.EQ(t, stats.Loci, 4)
	expect.EQ(t, stats.Contigs, 2)
	expect.EQ(t, stats.SpanLimited, 0)
}

func TestAssemblerOrderedEmission(t *testing.T) {
	a := newTestAssembler(t, testOpts)
	out := addAll(t, a,
		discordantPair("d1", 0, 100, 600, evidence.Forward, pairSeq),
		discordantPair("d2", 0, 100, 600, evidence.Forward, pairSeq),
		softClip("b1", 0, 150, evidence.Backward, backwardSeq, 10),
		softClip("b2", 0, 150, evidence.Backward, backwardSeq, 10),
		// Closes the backward locus at 150, which must wait for the
		// discordant pair locus that starts before it.
		softClip("b3", 0, 300, evidence.Backward, backwardSeq, 10),
		softClip("f1", 0, 700, evidence.Forward, forwardSeq, 10),
	)
	for i := 0; i < 5; i++ {
		expect.EQ(t, len(out[i]), 0)
	}
	got := out[5]
	require.Equal(t, 3, len(got))
	// The single read at 300 produces no contig.
	expect.True(t, got[0] == nil)
	expect.EQ(t, got[1].Breakend, evidence.BreakendSummary{RefID: 0, Start: 100, End: 600, Direction: evidence.Forward})
	expect.EQ(t, got[1].AnchorLength, 0)
	expect.That(t, got[1].EvidenceIDs(), h.ElementsAre("d1", "d2"))
	expect.EQ(t, got[2].Breakend.Start, 150)

	final := a.EndOfEvidence()
	require.Equal(t, 1, len(final))
	expect.True(t, final[0] == nil)
}

func TestAssemblerAnchoredEmissionOrder(t *testing.T) {
	a := newTestAssembler(t, testOpts)
	out := addAll(t, a,
		discordantPair("d1", 0, 100, 1100, evidence.Forward, pairSeq),
		discordantPair("d2", 0, 100, 1100, evidence.Forward, pairSeq),
		softClip("b1", 0, 500, evidence.Backward, backwardSeq, 10),
		softClip("b2", 0, 500, evidence.Backward, backwardSeq, 10),
		discordantPair("e1", 0, 600, 1400, evidence.Backward, pairSeq),
		// Joins the discordant pair locus at 100 and anchors its contig at
		// 1000.
		softClip("f1", 0, 1000, evidence.Forward, forwardSeq, 10),
		softClip("f2", 0, 1000, evidence.Forward, forwardSeq, 10),
		// Closes the loci at 100 and 500 but not the one at 600.
		softClip("y", 0, 1200, evidence.Forward, forwardSeq, 10),
	)
	for i := 0; i < 7; i++ {
		expect.EQ(t, len(out[i]), 0, "item %d", i)
	}
	// The contig at 1000 waits for the open locus at 600.
	require.Equal(t, 1, len(out[7]))
	expect.EQ(t, out[7][0].Breakend, evidence.BreakendSummary{RefID: 0, Start: 500, End: 500, Direction: evidence.Backward})

	final := a.EndOfEvidence()
	require.Equal(t, 3, len(final))
	expect.True(t, final[0] == nil)
	expect.True(t, final[1] == nil)
	c := final[2]
	expect.EQ(t, c.Breakend, evidence.BreakendSummary{RefID: 0, Start: 1000, End: 1000, Direction: evidence.Forward})
	expect.EQ(t, c.AnchorLength, 10)
	expect.That(t, c.EvidenceIDs(), h.ElementsAre("d1", "d2", "f1", "f2"))

	stats := a.Stats()
	expect.EQ(t, stats.Loci, 4)
	expect.EQ(t, stats.Contigs, 2)
	// The locus at 500 is closed but still in the window when e1 arrives.
	expect.EQ(t, stats.MaxOpenLoci, 2)
}

func TestAssemblerEmissionNonDecreasing(t *testing.T) {
	a := newTestAssembler(t, testOpts)
	var contigs []*Contig
	for _, out := range addAll(t, a,
		discordantPair("d1", 0, 100, 1100, evidence.Forward, pairSeq),
		discordantPair("d2", 0, 100, 1100, evidence.Forward, pairSeq),
		softClip("b1", 0, 500, evidence.Backward, backwardSeq, 10),
		softClip("b2", 0, 500, evidence.Backward, backwardSeq, 10),
		softClip("f1", 0, 1000, evidence.Forward, forwardSeq, 10),
		softClip("f2", 0, 1000, evidence.Forward, forwardSeq, 10),
		softClip("x", 0, 3000, evidence.Forward, forwardSeq, 10),
	) {
		contigs = append(contigs, out...)
	}
	contigs = append(contigs, a.EndOfEvidence()...)
	var starts []int
	for _, c := range contigs {
		if c != nil {
			starts = append(starts, c.Breakend.Start)
		}
	}
	expect.That(t, starts, h.ElementsAre(500, 1000))
}

func TestAssemblerAtMostOnce(t *testing.T) {
	a := newTestAssembler(t, testOpts)
	var items []evidence.DirectedEvidence
	for i, pos := range []int{10, 10, 10, 30, 30, 31, 500, 500} {
		dir := evidence.Forward
		if i%3 == 0 {
			dir = evidence.Backward
		}
		items = append(items, softClip(string(rune('a'+i)), 0, pos, dir, forwardSeq, 10))
	}
	var contigs []*Contig
	for _, out := range addAll(t, a, items...) {
		contigs = append(contigs, out...)
	}
	contigs = append(contigs, a.EndOfEvidence()...)
	seen := map[string]int{}
	prev := -1
	for _, c := range contigs {
		if c == nil {
			continue
		}
		expect.True(t, c.Breakend.Start >= prev)
		prev = c.Breakend.Start
		for _, id := range c.EvidenceIDs() {
			seen[id]++
		}
	}
	for id, n := range seen {
		expect.EQ(t, n, 1, "evidence %s", id)
	}
	expect.EQ(t, a.Stats().Loci, len(contigs))
	expect.EQ(t, a.Stats().Contigs, 1)
	expect.EQ(t, seen["b"], 1)
	expect.EQ(t, seen["c"], 1)
}

func TestAssemblerSpanLimit(t *testing.T) {
	opts := testOpts
	opts.MaxLocusSpan = 50
	a := newTestAssembler(t, opts)
	out := addAll(t, a,
		discordantPair("d1", 0, 100, 140, evidence.Forward, pairSeq),
		discordantPair("d2", 0, 130, 170, evidence.Forward, pairSeq),
	)
	expect.EQ(t, len(out[1]), 0)
	final := a.EndOfEvidence()
	// Each pair ends up in its own locus, neither of which assembles.
	expect.EQ(t, len(final), 2)
	expect.EQ(t, a.Stats().SpanLimited, 1)
	expect.EQ(t, a.Stats().Loci, 2)
}

func TestAssemblerOrderingError(t *testing.T) {
	a := newTestAssembler(t, testOpts)
	_, err := a.Add(softClip("a", 0, 500, evidence.Forward, forwardSeq, 10))
	assert.NoError(t, err)
	_, err = a.Add(softClip("b", 0, 400, evidence.Forward, forwardSeq, 10))
	oerr, ok := err.(*evidence.OrderingError)
	expect.True(t, ok)
	expect.EQ(t, oerr.Prev.Start, 500)
	expect.EQ(t, oerr.Cur.Start, 400)
}

func TestAssemblerEmpty(t *testing.T) {
	a := newTestAssembler(t, testOpts)
	expect.EQ(t, len(a.EndOfEvidence()), 0)
	expect.EQ(t, a.Stats(), Stats{})
}

func TestAssemblerAddAfterEnd(t *testing.T) {
	a := newTestAssembler(t, testOpts)
	a.EndOfEvidence()
	require.Panics(t, func() {
		a.Add(softClip("a", 0, 500, evidence.Forward, forwardSeq, 10))
	})
}

func TestNewAssemblerInvalidK(t *testing.T) {
	for _, k := range []int{0, 33} {
		opts := testOpts
		opts.K = k
		_, err := NewAssembler(opts)
		expect.NotNil(t, err)
	}
}
