// Package breakpoint turns sorted alignment records into breakpoint sequences
// and records: it derives evidence, assembles it locally and writes what passes
// the filters.
package breakpoint

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/breakend/assembly"
	"github.com/grailbio/breakend/evidence"
)

// Input names a record stream.
type Input struct {
	Name    string
	Records evidence.RecordIterator
}

// Stats summarizes a Run.
type Stats struct {
	Own, Mate evidence.SourceStats
	// Evidence is the number of merged evidence items.
	Evidence int
	Assembly assembly.Stats
	Output   OutputStats
}

// Run derives evidence from own, sorted by alignment position, and mate,
// sorted by mate position, assembles it, and writes the breakpoints that pass
// c.Opts.Filter. Contigs are written as soon as their locus closes, before the
// raw evidence that closed it.
func Run(c *Context, own, mate Input, seqs SequenceWriter, records RecordWriter) (Stats, error) {
	var (
		ownSrc  = evidence.NewSource(own.Name, own.Records, evidence.OwnPosition, c.Opts.Evidence)
		mateSrc = evidence.NewSource(mate.Name, mate.Records, evidence.MatePosition, c.Opts.Evidence)
		merger  = evidence.NewMerger(own.Name, ownSrc, mate.Name, mateSrc)
		adapter = NewAdapter(c.Opts.Filter, seqs, records)
		stats   Stats
	)
	assembler, err := assembly.NewAssembler(c.Opts.Assembly)
	if err != nil {
		return stats, err
	}
	collect := func() Stats {
		stats.Own = ownSrc.Stats()
		stats.Mate = mateSrc.Stats()
		stats.Evidence = merger.Count()
		stats.Assembly = assembler.Stats()
		stats.Output = adapter.Stats()
		return stats
	}
	for merger.Scan() {
		e := merger.Evidence()
		c.Progress.Record(e)
		contigs, err := assembler.Add(e)
		if err != nil {
			return collect(), err
		}
		if err := adapter.WriteContigs(contigs); err != nil {
			return collect(), err
		}
		if err := adapter.WriteEvidence(e); err != nil {
			return collect(), err
		}
	}
	if err := merger.Err(); err != nil {
		return collect(), err
	}
	if err := adapter.WriteContigs(assembler.EndOfEvidence()); err != nil {
		return collect(), err
	}
	log.Printf("%s, %s: %d evidence, %d loci, %d contigs", own.Name, mate.Name,
		merger.Count(), assembler.Stats().Loci, assembler.Stats().Contigs)
	return collect(), nil
}
