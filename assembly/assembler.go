package assembly

import (
	"fmt"

	"github.com/biogo/store/llrb"
	"github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"
	"github.com/grailbio/breakend/evidence"
)

// Contig is the consensus sequence assembled at one locus.
type Contig struct {
	// ID is derived from the position and the content of the contig.
	ID string
	// Breakend is exact when the contig is anchored, otherwise it is the
	// interval covered by the locus's evidence.
	Breakend evidence.BreakendSummary
	// Seq and Qual are on the reference strand: the anchored bases come first
	// for Forward contigs and last for Backward ones. Qual is raw phred.
	Seq, Qual []byte
	// AnchorLength is the number of bases of Seq aligned to the reference.
	AnchorLength int
	// Evidence lists the items that built the locus, in arrival order.
	Evidence []evidence.DirectedEvidence
}

// BreakpointSeq returns the bases of the contig that are not anchored.
func (c *Contig) BreakpointSeq() []byte {
	if c.Breakend.Direction == evidence.Forward {
		return c.Seq[c.AnchorLength:]
	}
	return c.Seq[:len(c.Seq)-c.AnchorLength]
}

// BreakpointQual returns the qualities of BreakpointSeq.
func (c *Contig) BreakpointQual() []byte {
	if c.Breakend.Direction == evidence.Forward {
		return c.Qual[c.AnchorLength:]
	}
	return c.Qual[:len(c.Qual)-c.AnchorLength]
}

// EvidenceIDs returns the IDs of the contig's evidence.
func (c *Contig) EvidenceIDs() []string {
	ids := make([]string, len(c.Evidence))
	for i, e := range c.Evidence {
		ids[i] = e.ID()
	}
	return ids
}

// contigID formats "asm<ref>_<pos><dir>_<fingerprint>".
func contigID(bs evidence.BreakendSummary, seq []byte) string {
	return fmt.Sprintf("asm%d_%d%c_%016x", bs.RefID, bs.Start, bs.Direction.Char(), farm.Fingerprint64(seq))
}

// locus is a set of evidence for one breakend direction whose breakend
// intervals form one connected region of the reference.
type locus struct {
	bs  evidence.BreakendSummary // union of the evidence intervals
	seq uint64                   // creation order

	graph    *Graph
	evidence []evidence.DirectedEvidence
	closed   bool
}

// Compare implements llrb.Comparable.
func (l *locus) Compare(c llrb.Comparable) int {
	o := c.(*locus)
	if c := l.bs.Compare(o.bs); c != 0 {
		return c
	}
	switch {
	case l.seq < o.seq:
		return -1
	case l.seq > o.seq:
		return 1
	}
	return 0
}

// pending is an assembled contig waiting for the loci that may still produce
// a contig before it.
type pending struct {
	*Contig
	seq uint64
}

// Compare implements llrb.Comparable.
func (p *pending) Compare(c llrb.Comparable) int {
	o := c.(*pending)
	if c := p.Breakend.Compare(o.Breakend); c != 0 {
		return c
	}
	switch {
	case p.seq < o.seq:
		return -1
	case p.seq > o.seq:
		return 1
	}
	return 0
}

// Assembler groups evidence, arriving in BreakendSummary order, into loci,
// assembles each locus once no further evidence can reach it, and returns the
// contigs in the order of their breakend positions.
//
// A locus stays open while the position of incoming evidence is within the
// union of its evidence intervals. Since discordant pair intervals span the
// maximum fragment size, a locus that received one stays open until the
// stream has moved past every position the pair supports. A closed locus is
// assembled once every locus that starts before it has closed as well. The
// breakend of an anchored contig may lie downstream of its locus start, so
// contigs are held until no locus still in the window, and no evidence yet to
// come, can produce a contig at an earlier position.
type Assembler struct {
	opts Opts

	// window holds open and closed-but-unassembled loci.
	window llrb.Tree
	open   []*locus
	// held holds assembled contigs, by breakend.
	held llrb.Tree
	// active is the open locus accepting evidence, per direction. A locus
	// that reaches Opts.MaxLocusSpan stays open but is no longer active.
	active [2]*locus
	seq    uint64

	cursor  evidence.BreakendSummary
	started bool
	done    bool
	stats   Stats
}

// NewAssembler creates an Assembler. It returns an error if opts is invalid.
func NewAssembler(opts Opts) (*Assembler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Assembler{opts: opts}, nil
}

// Add adds e to the locus it belongs to. Loci that can no longer receive
// evidence are assembled and the contigs that are now first in order are
// returned, preceded by a nil element for each locus that produced no contig. e must not sort before
// the previous evidence. Add panics if called after EndOfEvidence.
func (a *Assembler) Add(e evidence.DirectedEvidence) ([]*Contig, error) {
	if a.done {
		log.Panicf("Add(%s) after EndOfEvidence", e.ID())
	}
	bs := e.Breakend()
	if a.started && bs.Compare(a.cursor) < 0 {
		return nil, &evidence.OrderingError{Stream: "assembler", Prev: a.cursor, Cur: bs}
	}
	a.started = true
	a.cursor = bs
	a.stats.Evidence++

	a.closeBefore(bs)
	result := a.emit()
	a.insert(e)
	return result, nil
}

// EndOfEvidence assembles all remaining loci and returns them like Add does.
// It must be called once, after the last Add.
func (a *Assembler) EndOfEvidence() []*Contig {
	if a.done {
		log.Panicf("EndOfEvidence called twice")
	}
	a.done = true
	for _, l := range a.open {
		l.closed = true
	}
	a.open = nil
	a.active = [2]*locus{}
	return a.emit()
}

// Stats returns the counters accumulated so far.
func (a *Assembler) Stats() Stats { return a.stats }

// closeBefore closes the open loci that evidence at bs or later cannot reach.
func (a *Assembler) closeBefore(bs evidence.BreakendSummary) {
	n := 0
	for _, l := range a.open {
		if l.bs.RefID != bs.RefID || bs.Start > l.bs.End {
			l.closed = true
			if a.active[l.bs.Direction] == l {
				a.active[l.bs.Direction] = nil
			}
			continue
		}
		a.open[n] = l
		n++
	}
	for i := n; i < len(a.open); i++ {
		a.open[i] = nil
	}
	a.open = a.open[:n]
}

// emit removes closed loci from the front of the window and assembles them,
// then releases the held contigs that no remaining locus can precede.
func (a *Assembler) emit() []*Contig {
	var result []*Contig
	for a.window.Len() > 0 {
		l := a.window.Min().(*locus)
		if !l.closed {
			break
		}
		a.window.DeleteMin()
		c := a.assemble(l)
		if c == nil {
			result = append(result, nil)
			continue
		}
		a.held.Insert(&pending{Contig: c, seq: l.seq})
	}
	// Every contig still to come starts at or after the first locus in the
	// window, or at or after the cursor if the window is empty.
	bound := a.cursor
	if a.window.Len() > 0 {
		bound = a.window.Min().(*locus).bs
	}
	for a.held.Len() > 0 {
		p := a.held.Min().(*pending)
		if !a.done && p.Breakend.Compare(bound) > 0 {
			break
		}
		a.held.DeleteMin()
		result = append(result, p.Contig)
	}
	return result
}

func (a *Assembler) insert(e evidence.DirectedEvidence) {
	bs := e.Breakend()
	l := a.active[bs.Direction]
	if l != nil && l.bs.RefID == bs.RefID && bs.Start <= l.bs.End {
		end := l.bs.End
		if bs.End > end {
			end = bs.End
		}
		if a.opts.MaxLocusSpan > 0 && end-l.bs.Start+1 > a.opts.MaxLocusSpan {
			log.Error.Printf("locus %v: span exceeds %d bases at %s, starting a new locus",
				l.bs, a.opts.MaxLocusSpan, e.ID())
			a.stats.SpanLimited++
			l = nil
		} else {
			l.bs.End = end
		}
	} else {
		l = nil
	}
	if l == nil {
		l = &locus{
			bs:    bs,
			seq:   a.seq,
			graph: NewGraph(a.opts.K),
		}
		a.seq++
		a.window.Insert(l)
		a.open = append(a.open, l)
		a.active[bs.Direction] = l
		if n := len(a.open); n > a.stats.MaxOpenLoci {
			a.stats.MaxOpenLoci = n
		}
	}
	l.graph.Add(e)
	l.evidence = append(l.evidence, e)
}

// assemble extracts the contig of a closed locus.
func (a *Assembler) assemble(l *locus) *Contig {
	a.stats.Loci++
	p := ExtractContig(l.graph, len(l.evidence), a.opts)
	if p == nil {
		log.Debug.Printf("locus %v: no contig from %d evidence, %d k-mers", l.bs, len(l.evidence), l.graph.Len())
		return nil
	}
	a.stats.Contigs++
	c := &Contig{
		Breakend:     l.bs,
		Seq:          p.Seq,
		Qual:         p.Qual,
		AnchorLength: p.AnchorLength,
		Evidence:     l.evidence,
	}
	if p.AnchorLength > 0 {
		pos := p.AnchorPos
		// The anchor of a contig never precedes its locus.
		if pos < l.bs.Start {
			log.Debug.Printf("locus %v: anchor %d before locus start", l.bs, pos)
			pos = l.bs.Start
		}
		c.Breakend.Start = pos
		c.Breakend.End = pos
	}
	if l.bs.Direction == evidence.Backward {
		c.Seq = evidence.ReverseComplement(p.Seq)
		c.Qual = evidence.Reverse(p.Qual)
	}
	c.ID = contigID(c.Breakend, c.Seq)
	log.Debug.Printf("locus %v: contig %s, %d bases, %d anchored, %d evidence",
		l.bs, c.ID, len(c.Seq), c.AnchorLength, len(c.Evidence))
	return c
}
