package evidence

// Kind enumerates the closed set of DirectedEvidence variants.
type Kind uint8

const (
	// SoftClipKind is a read whose alignment is soft clipped at the breakend.
	SoftClipKind Kind = iota
	// SplitReadKind is a soft clipped read whose clipped bases have a
	// supplementary alignment (SA tag).
	SplitReadKind
	// DiscordantPairKind is a read pair where one read is anchored near the
	// breakend and the other is unmapped or maps elsewhere.
	DiscordantPairKind
)

var kindNames = [...]string{"sc", "sr", "dp"}

func (k Kind) String() string { return kindNames[k] }

// DirectedEvidence is a read-derived signal indicating a breakend at a
// specific position and direction. The set of implementations is closed:
// *SoftClip, *SplitRead and *DiscordantPair. Code switching over evidence
// types should handle all three and panic on anything else.
//
// All accessors return data owned by the evidence; callers must not modify
// the returned slices.
type DirectedEvidence interface {
	// ID uniquely identifies the evidence within a run.
	ID() string
	Kind() Kind
	Breakend() BreakendSummary
	// MapQ is the mapping quality of the anchoring alignment.
	MapQ() int
	// PercentIdentity is the identity of the anchoring alignment to the
	// reference, in [0,100].
	PercentIdentity() float64
	// Seq is the read sequence relevant to the breakend, on the reference
	// strand. For Forward evidence the anchored bases come first, for
	// Backward evidence they come last.
	Seq() []byte
	// Qual is the phred quality (not ascii-offset) of each base in Seq.
	Qual() []byte
	// AnchorLength is the number of bases of Seq aligned to the reference.
	AnchorLength() int
	// BreakendLength is the number of bases in Seq that are not anchored.
	BreakendLength() int
	// AvgBreakendQuality is the mean base quality of the unanchored bases.
	AvgBreakendQuality() float64

	isDirectedEvidence()
}

// base holds the fields shared by every evidence kind.
type base struct {
	id        string
	bs        BreakendSummary
	mapq      int
	identity  float64
	seq, qual []byte
	anchorLen int
}

func (b *base) ID() string                { return b.id }
func (b *base) Breakend() BreakendSummary { return b.bs }
func (b *base) MapQ() int                 { return b.mapq }
func (b *base) PercentIdentity() float64  { return b.identity }
func (b *base) Seq() []byte               { return b.seq }
func (b *base) Qual() []byte              { return b.qual }
func (b *base) AnchorLength() int         { return b.anchorLen }
func (b *base) BreakendLength() int       { return len(b.seq) - b.anchorLen }

// breakpointRange returns the half-open range of unanchored bases in seq.
func (b *base) breakpointRange() (int, int) {
	if b.bs.Direction == Forward {
		return b.anchorLen, len(b.seq)
	}
	return 0, len(b.seq) - b.anchorLen
}

func (b *base) AvgBreakendQuality() float64 {
	start, limit := b.breakpointRange()
	if start == limit || len(b.qual) < limit {
		return 0
	}
	q := b.qual[start:limit]
	total := 0
	for _, v := range q {
		if v == 0xff {
			// Quality is absent from the record.
			return 0
		}
		total += int(v)
	}
	return float64(total) / float64(len(q))
}

func (b *base) isDirectedEvidence() {}

// SoftClip is a read soft clipped at the breakend.
type SoftClip struct {
	base
	// ReadName is the query name of the source record.
	ReadName string
}

// Kind implements DirectedEvidence.
func (*SoftClip) Kind() Kind { return SoftClipKind }

// SplitRead is a soft clipped read with a supplementary alignment of its
// clipped bases.
type SplitRead struct {
	base
	ReadName string
	// Remote alignment, parsed from the first SA tag entry.
	RemoteRefName string
	RemotePos     int // 1-based
	RemoteReverse bool
	RemoteMapQ    int
}

// Kind implements DirectedEvidence.
func (*SplitRead) Kind() Kind { return SplitReadKind }

// DiscordantPair is a read whose mate anchors the breakend. The breakend
// position is a range because the fragment size is known only up to
// Opts.MaxFragmentSize. Seq holds the bases of the unanchored read.
type DiscordantPair struct {
	base
	ReadName string
	// OneEndAnchored is true if the read itself is unmapped.
	OneEndAnchored bool
}

// Kind implements DirectedEvidence.
func (*DiscordantPair) Kind() Kind { return DiscordantPairKind }

// BreakpointSeq returns the unanchored bases of e, on the reference strand.
func BreakpointSeq(e DirectedEvidence) []byte {
	seq := e.Seq()
	n := e.AnchorLength()
	if e.Breakend().Direction == Forward {
		return seq[n:]
	}
	return seq[:len(seq)-n]
}

// BreakpointQual returns the qualities of BreakpointSeq(e).
func BreakpointQual(e DirectedEvidence) []byte {
	qual := e.Qual()
	n := e.AnchorLength()
	if e.Breakend().Direction == Forward {
		return qual[n:]
	}
	return qual[:len(qual)-n]
}

// Fields holds the attributes shared by all evidence kinds. It is used to
// construct evidence that does not come from a sam.Record.
type Fields struct {
	ID              string
	Breakend        BreakendSummary
	MapQ            int
	PercentIdentity float64
	// Seq and Qual are on the reference strand. Qual may be nil.
	Seq, Qual    []byte
	AnchorLength int
}

func newBase(f Fields) base {
	qual := f.Qual
	if len(qual) != len(f.Seq) {
		qual = make([]byte, len(f.Seq))
		for i := range qual {
			qual[i] = 0xff
		}
	}
	if f.AnchorLength > len(f.Seq) {
		panic(f)
	}
	return base{
		id:        f.ID,
		bs:        f.Breakend,
		mapq:      f.MapQ,
		identity:  f.PercentIdentity,
		seq:       f.Seq,
		qual:      qual,
		anchorLen: f.AnchorLength,
	}
}

// NewSoftClip creates soft clip evidence from its fields.
func NewSoftClip(f Fields, readName string) *SoftClip {
	return &SoftClip{base: newBase(f), ReadName: readName}
}

// NewSplitRead creates split read evidence. Remote alignment fields are left
// zero; callers may fill them in.
func NewSplitRead(f Fields, readName string) *SplitRead {
	return &SplitRead{base: newBase(f), ReadName: readName}
}

// NewDiscordantPair creates discordant pair evidence. f.AnchorLength must be
// zero.
func NewDiscordantPair(f Fields, readName string, oneEndAnchored bool) *DiscordantPair {
	if f.AnchorLength != 0 {
		panic(f)
	}
	return &DiscordantPair{base: newBase(f), ReadName: readName, OneEndAnchored: oneEndAnchored}
}
