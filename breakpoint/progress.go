package breakpoint

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/breakend/evidence"
)

// Progress logs the position of the evidence stream every interval items.
type Progress struct {
	refName  func(refID int) string
	interval int
	n        int
}

// NewProgress creates a Progress. It logs nothing if interval <= 0.
func NewProgress(refName func(refID int) string, interval int) *Progress {
	return &Progress{refName: refName, interval: interval}
}

// Record counts e, and logs its position if it is the last of an interval.
func (p *Progress) Record(e evidence.DirectedEvidence) {
	p.n++
	if p.interval <= 0 || p.n%p.interval != 0 {
		return
	}
	bs := e.Breakend()
	log.Printf("Processed %d evidence, last at %s:%d", p.n, p.refName(bs.RefID), bs.Start)
}

// Count returns the number of items recorded.
func (p *Progress) Count() int { return p.n }
