package evidence

import (
	"fmt"
	"math"
)

// Direction is the side of the reference-anchored bases on which a breakend
// lies.
type Direction uint8

const (
	// Forward breakends follow the anchor on the reference strand: the read
	// aligns up to the breakend and continues with novel sequence.
	Forward Direction = iota
	// Backward breakends precede the anchor.
	Backward
)

// Char returns 'f' or 'b'.
func (d Direction) Char() byte {
	if d == Backward {
		return 'b'
	}
	return 'f'
}

func (d Direction) String() string { return string(d.Char()) }

// BreakendSummary describes the genomic location of one side of a structural
// variant junction. Positions are 1-based and inclusive. Start==End for a
// breakend whose position is known exactly; discordant read pairs yield a
// range.
type BreakendSummary struct {
	RefID      int
	Start, End int
	Direction  Direction
}

// sortRefID maps unmapped references (-1) past every real reference, as
// coordinate-sorted BAM files do.
func sortRefID(refID int) int {
	if refID < 0 {
		return math.MaxInt32
	}
	return refID
}

// Compare orders breakends by (RefID, Start). Direction and End do not
// participate.
func (b BreakendSummary) Compare(o BreakendSummary) int {
	if c := sortRefID(b.RefID) - sortRefID(o.RefID); c != 0 {
		return c
	}
	return b.Start - o.Start
}

// Overlaps checks if b and o share the reference, direction, and at least one
// position.
func (b BreakendSummary) Overlaps(o BreakendSummary) bool {
	return b.RefID == o.RefID && b.Direction == o.Direction && b.Start <= o.End && o.Start <= b.End
}

// Exact checks if the breakend position is known to the base.
func (b BreakendSummary) Exact() bool { return b.Start == b.End }

func (b BreakendSummary) String() string {
	if b.Exact() {
		return fmt.Sprintf("%d:%d%c", b.RefID, b.Start, b.Direction.Char())
	}
	return fmt.Sprintf("%d:%d-%d%c", b.RefID, b.Start, b.End, b.Direction.Char())
}
