package breakpoint

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/breakend/assembly"
	"github.com/grailbio/breakend/evidence"
)

// Filter holds the thresholds a breakpoint sequence must meet to be written
// for realignment. Every comparison is inclusive.
type Filter struct {
	// MinMapQ is the minimum mapping quality of raw evidence.
	MinMapQ int
	// MinBreakendLength is the minimum number of unanchored bases, for both
	// raw evidence and contigs.
	MinBreakendLength int
	// MinPercentIdentity is the minimum percent identity (0-100) of the
	// anchoring alignment of raw evidence.
	MinPercentIdentity float64
	// MinBreakendQuality is the minimum average base quality of the
	// unanchored bases of raw evidence.
	MinBreakendQuality float64
}

// DefaultFilter sets the default values of Filter.
var DefaultFilter = Filter{
	MinMapQ:            5,
	MinBreakendLength:  25,
	MinPercentIdentity: 95,
	MinBreakendQuality: 5,
}

// AcceptEvidence reports whether e is written as a raw breakpoint sequence.
// Discordant pairs never are, since none of their bases span the breakend. A
// SplitRead stands in for the SoftClip of the same clipped end, so both kinds
// are eligible.
func (f Filter) AcceptEvidence(e evidence.DirectedEvidence) bool {
	switch e.(type) {
	case *evidence.SoftClip, *evidence.SplitRead:
		return e.MapQ() >= f.MinMapQ &&
			e.BreakendLength() >= f.MinBreakendLength &&
			e.PercentIdentity() >= f.MinPercentIdentity &&
			e.AvgBreakendQuality() >= f.MinBreakendQuality
	case *evidence.DiscordantPair:
		return false
	default:
		log.Panicf("unknown evidence type %T", e)
		return false
	}
}

// AcceptContig reports whether c is written. c must not be nil.
func (f Filter) AcceptContig(c *assembly.Contig) bool {
	return len(c.BreakpointSeq()) >= f.MinBreakendLength
}

// Apply returns the items of in accepted by f, in order. It reuses the
// storage of in.
func (f Filter) Apply(in []evidence.DirectedEvidence) []evidence.DirectedEvidence {
	out := in[:0]
	for _, e := range in {
		if f.AcceptEvidence(e) {
			out = append(out, e)
		}
	}
	return out
}
