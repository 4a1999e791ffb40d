package assembly

import (
	"fmt"
)

// Opts controls local assembly.
type Opts struct {
	// K is the k-mer length of the de Bruijn graph, in [1, MaxK].
	K int
	// MinKmerSupport is the minimum number of occurrences of a k-mer, across
	// the evidence of a locus, for it to take part in a contig. Rarer k-mers
	// are treated as sequencing errors.
	MinKmerSupport int
	// MinEvidence is the minimum number of evidence items a locus needs to
	// produce a contig.
	MinEvidence int
	// MaxLocusSpan caps the number of reference positions covered by the
	// evidence of one locus. Evidence that would stretch a locus beyond it
	// starts a new locus. Values <= 0 disable the cap.
	MaxLocusSpan int
}

// DefaultOpts sets the default values of Opts. MaxLocusSpan is twice the
// default fragment size of evidence.DefaultOpts.
var DefaultOpts = Opts{
	K:              25,
	MinKmerSupport: 2,
	MinEvidence:    2,
	MaxLocusSpan:   2000,
}

// Validate checks that the options are usable.
func (o Opts) Validate() error {
	if o.K < 1 || o.K > MaxK {
		return fmt.Errorf("k-mer length %d out of range [1, %d]", o.K, MaxK)
	}
	if o.MinKmerSupport < 1 {
		return fmt.Errorf("minimum k-mer support %d must be positive", o.MinKmerSupport)
	}
	return nil
}

// Stats counts the work done by an Assembler.
type Stats struct {
	// Evidence is the number of evidence items added.
	Evidence int
	// Loci is the number of loci emitted.
	Loci int
	// Contigs is the number of loci that produced a contig.
	Contigs int
	// SpanLimited is the number of loci that stopped accepting evidence
	// because of Opts.MaxLocusSpan.
	SpanLimited int
	// MaxOpenLoci is the largest number of loci accepting evidence at once.
	// Closed loci waiting to be assembled are not counted.
	MaxOpenLoci int
}
