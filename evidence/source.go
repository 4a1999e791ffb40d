package evidence

import (
	"fmt"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
)

// Ordering names the sort order of the alignment records feeding a Source.
type Ordering uint8

const (
	// OwnPosition is the usual coordinate order of a sorted BAM file. It
	// yields soft clip and split read evidence.
	OwnPosition Ordering = iota
	// MatePosition is coordinate order of each record's mate (MateRef,
	// MatePos). It yields discordant pair evidence anchored by the mate.
	MatePosition
)

func (o Ordering) String() string {
	if o == MatePosition {
		return "mate-position"
	}
	return "own-position"
}

// RecordIterator iterates over sam records. bamprovider.Iterator implements
// it.
type RecordIterator interface {
	Scan() bool
	Record() *sam.Record
	Err() error
}

// Iterator iterates over evidence in ascending BreakendSummary.Compare
// order. The usage is the same as bufio.Scanner:
//
//   for it.Scan() {
//     e := it.Evidence()
//   }
//   if err := it.Err(); err != nil { ... }
type Iterator interface {
	Scan() bool
	Evidence() DirectedEvidence
	Err() error
}

// OrderingError reports input that violates the sort order a stream
// promises. It is fatal to the run.
type OrderingError struct {
	// Stream names the offending input.
	Stream string
	// Prev and Cur are the positions of two consecutive items with Cur
	// sorting before Prev.
	Prev, Cur BreakendSummary
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("%s: input is not sorted: %v follows %v", e.Stream, e.Cur, e.Prev)
}

// SourceStats counts the work done by a Source.
type SourceStats struct {
	Records  int
	Evidence int
}

type pendingEvidence struct {
	e   DirectedEvidence
	seq uint64
}

// Compare implements llrb.Comparable. Evidence at the same position keeps its
// arrival order.
func (p pendingEvidence) Compare(c llrb.Comparable) int {
	o := c.(pendingEvidence)
	if c := p.e.Breakend().Compare(o.e.Breakend()); c != 0 {
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

// Source converts a sorted stream of alignment records into evidence sorted
// by BreakendSummary.Compare. Evidence is not produced in record order
// (a forward soft clip sits at the end of its alignment and a discordant pair
// may start well before its mate), so the source holds extracted evidence in
// a buffer until no later record can produce anything that sorts before it.
type Source struct {
	name     string
	in       RecordIterator
	ordering Ordering
	opts     Opts

	pending llrb.Tree
	seq     uint64
	// bound is a lower bound on the position of evidence from records not yet
	// read.
	bound   BreakendSummary
	prevKey BreakendSummary
	started bool
	done    bool

	cur   DirectedEvidence
	err   error
	stats SourceStats
}

// NewSource creates a Source reading records from in, which must be sorted
// in the given ordering. name identifies the stream in errors.
func NewSource(name string, in RecordIterator, ordering Ordering, opts Opts) *Source {
	return &Source{
		name:     name,
		in:       in,
		ordering: ordering,
		opts:     opts,
	}
}

// recordKey is the position at which the record sorts in the input stream.
func (s *Source) recordKey(rec *sam.Record) BreakendSummary {
	ref, pos := rec.Ref, rec.Pos
	if s.ordering == MatePosition {
		ref, pos = rec.MateRef, rec.MatePos
	}
	return BreakendSummary{RefID: ref.ID(), Start: pos + 1, End: pos + 1}
}

// lowerBound returns the smallest position of any evidence extracted from a
// record with the given key.
func (s *Source) lowerBound(key BreakendSummary) BreakendSummary {
	if s.ordering == MatePosition {
		key.Start -= s.opts.MaxFragmentSize
		key.End = key.Start
	}
	return key
}

func (s *Source) add(e DirectedEvidence) {
	s.pending.Insert(pendingEvidence{e: e, seq: s.seq})
	s.seq++
}

// Scan advances to the next evidence. It returns false on end of input or
// error.
func (s *Source) Scan() bool {
	for s.err == nil {
		if min := s.pending.Min(); min != nil {
			p := min.(pendingEvidence)
			if s.done || p.e.Breakend().Compare(s.bound) < 0 {
				s.pending.DeleteMin()
				s.cur = p.e
				s.stats.Evidence++
				return true
			}
		}
		if s.done {
			return false
		}
		if !s.in.Scan() {
			if err := s.in.Err(); err != nil {
				s.err = errors.E(err, "reading", s.name)
				return false
			}
			s.done = true
			continue
		}
		rec := s.in.Record()
		s.stats.Records++
		key := s.recordKey(rec)
		if s.started && key.Compare(s.prevKey) < 0 {
			s.err = &OrderingError{Stream: s.name, Prev: s.prevKey, Cur: key}
			return false
		}
		s.started = true
		s.prevKey = key
		s.bound = s.lowerBound(key)

		switch s.ordering {
		case OwnPosition:
			for _, e := range FromRecord(rec, s.opts) {
				s.add(e)
			}
		case MatePosition:
			if e := FromMateRecord(rec, s.opts); e != nil {
				s.add(e)
			}
		default:
			log.Panicf("%s: unknown ordering %d", s.name, s.ordering)
		}
	}
	return false
}

// Evidence returns the evidence found by the last successful call to Scan.
func (s *Source) Evidence() DirectedEvidence { return s.cur }

// Err returns the first error encountered, if any.
func (s *Source) Err() error { return s.err }

// Stats returns the number of records read and evidence produced so far.
func (s *Source) Stats() SourceStats { return s.stats }
