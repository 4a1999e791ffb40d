package breakpoint

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/breakend/assembly"
	"github.com/grailbio/breakend/encoding/vcf"
	"github.com/grailbio/breakend/evidence"
)

// SequenceWriter receives breakpoint sequences, on the reference strand and
// without their anchored bases, for realignment. qual is raw phred.
type SequenceWriter interface {
	WriteSequence(id string, seq, qual []byte) error
}

// RecordWriter receives the breakpoints of assembled contigs.
type RecordWriter interface {
	WriteBreakpoint(r vcf.Record) error
}

// OutputStats counts what the Adapter wrote and dropped.
type OutputStats struct {
	// Sequences and Records count successful writes.
	Sequences, Records int
	// EvidenceRejected counts raw evidence that did not pass the filter,
	// discordant pairs included.
	EvidenceRejected int
	// ContigsRejected counts contigs whose breakpoint sequence is too short.
	ContigsRejected int
	// NoContig counts loci that did not assemble.
	NoContig int
}

// Adapter filters contigs and raw evidence and passes the survivors to the
// writers.
type Adapter struct {
	filter  Filter
	seqs    SequenceWriter
	records RecordWriter
	stats   OutputStats
}

// NewAdapter creates an Adapter.
func NewAdapter(filter Filter, seqs SequenceWriter, records RecordWriter) *Adapter {
	return &Adapter{filter: filter, seqs: seqs, records: records}
}

// WriteEvidence writes the breakpoint sequence of e if it passes the filter.
func (a *Adapter) WriteEvidence(e evidence.DirectedEvidence) error {
	if !a.filter.AcceptEvidence(e) {
		a.stats.EvidenceRejected++
		return nil
	}
	if err := a.seqs.WriteSequence(e.ID(), evidence.BreakpointSeq(e), evidence.BreakpointQual(e)); err != nil {
		return errors.E(err, "write sequence", e.ID())
	}
	a.stats.Sequences++
	return nil
}

// WriteContigs writes the sequence and the breakpoint record of every contig
// that passes the filter. Nil contigs are skipped.
func (a *Adapter) WriteContigs(contigs []*assembly.Contig) error {
	for _, c := range contigs {
		if c == nil {
			a.stats.NoContig++
			continue
		}
		if !a.filter.AcceptContig(c) {
			a.stats.ContigsRejected++
			continue
		}
		if err := a.seqs.WriteSequence(c.ID, c.BreakpointSeq(), c.BreakpointQual()); err != nil {
			return errors.E(err, "write sequence", c.ID)
		}
		a.stats.Sequences++
		if err := a.records.WriteBreakpoint(contigRecord(c)); err != nil {
			return errors.E(err, "write breakpoint", c.ID)
		}
		a.stats.Records++
	}
	return nil
}

// Stats returns the counters accumulated so far.
func (a *Adapter) Stats() OutputStats { return a.stats }

func contigRecord(c *assembly.Contig) vcf.Record {
	return vcf.Record{
		ID:           c.ID,
		Breakend:     c.Breakend,
		MateContig:   vcf.PlaceholderContig,
		Seq:          c.BreakpointSeq(),
		AnchorLength: c.AnchorLength,
		EvidenceIDs:  c.EvidenceIDs(),
	}
}
