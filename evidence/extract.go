package evidence

import (
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
)

// Opts controls how evidence is derived from alignment records.
type Opts struct {
	// MaxFragmentSize bounds the distance between the outer ends of a read
	// pair. A discordant pair supports a breakend anywhere between the end of
	// its anchoring read and MaxFragmentSize bases from the anchor's start. It
	// also bounds how far a source must look ahead to sort its output.
	MaxFragmentSize int
	// MinClipLength is the minimum number of soft clipped bases that yields
	// soft clip or split read evidence.
	MinClipLength int
}

// DefaultOpts sets the default values of Opts. MaxFragmentSize is normally
// replaced by the MAX_INSERT_SIZE of the library's insert size metrics.
var DefaultOpts = Opts{
	MaxFragmentSize: 1000,
	MinClipLength:   1,
}

var (
	nmTag = sam.NewTag("NM")
	mqTag = sam.NewTag("MQ")
	mcTag = sam.NewTag("MC")
	saTag = sam.NewTag("SA")
)

const ignoredFlags = sam.Secondary | sam.Supplementary | sam.Duplicate | sam.QCFail

// intTag extracts an integer-valued aux field.
func intTag(rec *sam.Record, tag sam.Tag) (int, bool) {
	aux := rec.AuxFields.Get(tag)
	if aux == nil {
		return 0, false
	}
	switch v := aux.Value().(type) {
	case int8:
		return int(v), true
	case uint8:
		return int(v), true
	case int16:
		return int(v), true
	case uint16:
		return int(v), true
	case int32:
		return int(v), true
	case uint32:
		return int(v), true
	}
	return 0, false
}

func stringTag(rec *sam.Record, tag sam.Tag) (string, bool) {
	aux := rec.AuxFields.Get(tag)
	if aux == nil {
		return "", false
	}
	s, ok := aux.Value().(string)
	return s, ok
}

// clipLengths returns the number of soft clipped bases at either end of the
// alignment. Hard clips are skipped.
func clipLengths(cigar sam.Cigar) (left, right int) {
	i, j := 0, len(cigar)-1
	for i <= j && cigar[i].Type() == sam.CigarHardClipped {
		i++
	}
	for j >= i && cigar[j].Type() == sam.CigarHardClipped {
		j--
	}
	if i <= j && cigar[i].Type() == sam.CigarSoftClipped {
		left = cigar[i].Len()
	}
	if j > i && cigar[j].Type() == sam.CigarSoftClipped {
		right = cigar[j].Len()
	}
	return left, right
}

// percentIdentity estimates the identity of the aligned bases to the
// reference from the NM tag. Records without NM are assumed to match
// perfectly.
func percentIdentity(rec *sam.Record) float64 {
	aligned := 0
	for _, op := range rec.Cigar {
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			aligned += op.Len()
		}
	}
	if aligned == 0 {
		return 0
	}
	nm, ok := intTag(rec, nmTag)
	if !ok {
		return 100
	}
	if nm > aligned {
		nm = aligned
	}
	return 100 * float64(aligned-nm) / float64(aligned)
}

func readSuffix(rec *sam.Record) string {
	switch {
	case rec.Flags&sam.Read1 != 0:
		return "/1"
	case rec.Flags&sam.Read2 != 0:
		return "/2"
	}
	return ""
}

func evidenceID(kind Kind, dir Direction, rec *sam.Record) string {
	return kind.String() + dir.String() + ":" + rec.Name + readSuffix(rec)
}

// recordQual returns rec's base qualities, or a slice of 0xff (absent) if
// the record has none.
func recordQual(rec *sam.Record, n int) []byte {
	if len(rec.Qual) == n {
		return rec.Qual
	}
	q := make([]byte, n)
	for i := range q {
		q[i] = 0xff
	}
	return q
}

// supplementary is the first entry of an SA tag:
// "rname,pos,strand,CIGAR,mapQ,NM;".
type supplementary struct {
	refName string
	pos     int
	reverse bool
	mapq    int
}

func parseSA(s string) (supplementary, bool) {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	fields := strings.Split(s, ",")
	if len(fields) < 5 {
		return supplementary{}, false
	}
	pos, err := strconv.Atoi(fields[1])
	if err != nil {
		return supplementary{}, false
	}
	mapq, err := strconv.Atoi(fields[4])
	if err != nil {
		return supplementary{}, false
	}
	return supplementary{refName: fields[0], pos: pos, reverse: fields[2] == "-", mapq: mapq}, true
}

// FromRecord extracts soft clip and split read evidence from a record of a
// coordinate-sorted alignment file. It yields up to two items, one per
// clipped end. If the record has an SA tag, the longer clip becomes a
// SplitRead.
//
// Unmapped, secondary, supplementary, duplicate and QC-failed records yield
// nothing. Supplementary alignments are represented by their primary's split
// read evidence.
func FromRecord(rec *sam.Record, opts Opts) []DirectedEvidence {
	if rec.Flags&(ignoredFlags|sam.Unmapped) != 0 || rec.Ref == nil {
		return nil
	}
	left, right := clipLengths(rec.Cigar)
	minClip := opts.MinClipLength
	if minClip < 1 {
		minClip = 1
	}
	if left < minClip && right < minClip {
		return nil
	}
	seq := rec.Seq.Expand()
	qual := recordQual(rec, len(seq))
	anchorLen := len(seq) - left - right
	if anchorLen <= 0 {
		return nil
	}
	var (
		sa    supplementary
		hasSA bool
	)
	if s, ok := stringTag(rec, saTag); ok {
		sa, hasSA = parseSA(s)
	}
	mapq := int(rec.MapQ)
	identity := percentIdentity(rec)

	newEvidence := func(dir Direction, f Fields) DirectedEvidence {
		isSplit := hasSA && ((dir == Forward && right >= left) || (dir == Backward && left > right))
		if isSplit {
			f.ID = evidenceID(SplitReadKind, dir, rec)
			e := NewSplitRead(f, rec.Name)
			e.RemoteRefName = sa.refName
			e.RemotePos = sa.pos
			e.RemoteReverse = sa.reverse
			e.RemoteMapQ = sa.mapq
			return e
		}
		f.ID = evidenceID(SoftClipKind, dir, rec)
		return NewSoftClip(f, rec.Name)
	}

	var result []DirectedEvidence
	if left >= minClip {
		pos := rec.Pos + 1
		result = append(result, newEvidence(Backward, Fields{
			Breakend:        BreakendSummary{RefID: rec.Ref.ID(), Start: pos, End: pos, Direction: Backward},
			MapQ:            mapq,
			PercentIdentity: identity,
			Seq:             seq[:len(seq)-right],
			Qual:            qual[:len(seq)-right],
			AnchorLength:    anchorLen,
		}))
	}
	if right >= minClip {
		// rec.End() is the 0-based exclusive end, i.e. the 1-based position of
		// the last aligned base.
		pos := rec.End()
		result = append(result, newEvidence(Forward, Fields{
			Breakend:        BreakendSummary{RefID: rec.Ref.ID(), Start: pos, End: pos, Direction: Forward},
			MapQ:            mapq,
			PercentIdentity: identity,
			Seq:             seq[left:],
			Qual:            qual[left:],
			AnchorLength:    anchorLen,
		}))
	}
	return result
}

// mateRefLength is the number of reference bases covered by rec's mate,
// taken from the MC tag. Without MC, the mate is assumed to be as long as rec.
func mateRefLength(rec *sam.Record) int {
	if mc, ok := stringTag(rec, mcTag); ok {
		if cigar, err := sam.ParseCigar([]byte(mc)); err == nil {
			if ref, _ := cigar.Lengths(); ref > 0 {
				return ref
			}
		}
	}
	if n := rec.Seq.Length; n > 0 {
		return n
	}
	return 1
}

// FromMateRecord extracts discordant pair evidence from a record of an
// alignment file sorted by mate coordinate. The record's mapped mate anchors
// the breakend; the record's own bases are the unanchored sequence. It
// returns nil unless the record is unmapped (one end anchored) or is not part
// of a proper pair, and its mate is mapped.
//
// Only forward-reverse (FR) pairs are supported: a mate on the forward strand
// yields a Forward breakend downstream of the mate; a mate on the reverse
// strand yields a Backward breakend upstream of it.
func FromMateRecord(rec *sam.Record, opts Opts) DirectedEvidence {
	if rec.Flags&ignoredFlags != 0 || rec.Flags&sam.Paired == 0 ||
		rec.Flags&sam.MateUnmapped != 0 || rec.MateRef == nil {
		return nil
	}
	unmapped := rec.Flags&sam.Unmapped != 0
	if !unmapped && rec.Flags&sam.ProperPair != 0 {
		return nil
	}
	seq := rec.Seq.Expand()
	if len(seq) == 0 {
		return nil
	}
	qual := recordQual(rec, len(seq))
	if rec.Flags&sam.Reverse != 0 {
		// Recover the read as sequenced.
		seq, qual = ReverseComplement(seq), Reverse(qual)
	}
	var (
		mateStart = rec.MatePos + 1
		mateEnd   = rec.MatePos + mateRefLength(rec)
		bs        = BreakendSummary{RefID: rec.MateRef.ID()}
	)
	if rec.Flags&sam.MateReverse == 0 {
		// The read lies downstream of its mate on the opposite strand.
		bs.Direction = Forward
		bs.Start = mateEnd
		bs.End = mateStart + opts.MaxFragmentSize - 1
		seq, qual = ReverseComplement(seq), Reverse(qual)
	} else {
		bs.Direction = Backward
		bs.Start = mateEnd - opts.MaxFragmentSize + 1
		bs.End = mateStart
	}
	if bs.Start < 1 {
		bs.Start = 1
	}
	if bs.End < bs.Start {
		if bs.Direction == Forward {
			bs.End = bs.Start
		} else {
			bs.Start = bs.End
		}
	}
	mapq, _ := intTag(rec, mqTag)
	return NewDiscordantPair(Fields{
		ID:       evidenceID(DiscordantPairKind, bs.Direction, rec),
		Breakend: bs,
		MapQ:     mapq,
		Seq:      seq,
		Qual:     qual,
	}, rec.Name, unmapped)
}
