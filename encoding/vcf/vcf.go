// Package vcf writes directed breakpoints as VCF 4.2 breakend records.
//
// Each record describes one side of a breakpoint. The other side is not known
// until the breakpoint sequence has been realigned, so the mate position in
// the ALT allele names PlaceholderContig.
package vcf

import (
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/tsv"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/breakend/encoding/fasta"
	"github.com/grailbio/breakend/evidence"
	"github.com/grailbio/hts/sam"
)

// PlaceholderContig is the mate contig of every breakend written by Writer.
const PlaceholderContig = "placeholder"

// Record is one directed breakpoint.
type Record struct {
	// ID is the VCF ID column.
	ID string
	// Breakend is the position of the anchored side. An interval (Start <
	// End) is written as an imprecise breakend at Start with a CIPOS range.
	Breakend evidence.BreakendSummary
	// MateContig names the contig of the other side.
	MateContig string
	// Seq holds the breakpoint bases on the reference strand, excluding the
	// anchored bases.
	Seq []byte
	// AnchorLength is the number of assembled bases aligned to the reference.
	AnchorLength int
	// EvidenceIDs lists the evidence supporting the breakpoint.
	EvidenceIDs []string
}

var infoHeader = []string{
	`##INFO=<ID=SVTYPE,Number=1,Type=String,Description="Type of structural variant">`,
	`##INFO=<ID=IMPRECISE,Number=0,Type=Flag,Description="Imprecise structural variation">`,
	`##INFO=<ID=CIPOS,Number=2,Type=Integer,Description="Confidence interval around POS for imprecise variants">`,
	`##INFO=<ID=ANCHLEN,Number=1,Type=Integer,Description="Number of assembled bases anchored to the reference">`,
	`##INFO=<ID=EVCOUNT,Number=1,Type=Integer,Description="Number of supporting evidence">`,
	`##INFO=<ID=EVID,Number=.,Type=String,Description="IDs of supporting evidence">`,
}

var columns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// Writer writes breakend records in VCF format. Not thread safe.
type Writer struct {
	w    *tsv.Writer
	refs []*sam.Reference
	ref  fasta.Fasta
	buf  []byte
}

// NewWriter writes the VCF header, with one contig line per reference in
// header, to out and returns a Writer for the records. ref supplies the REF
// column; when it is nil, or lacks a reference, REF is 'N'.
func NewWriter(out io.Writer, header *sam.Header, ref fasta.Fasta) (*Writer, error) {
	w := &Writer{w: tsv.NewWriter(out), refs: header.Refs(), ref: ref}
	w.w.WriteString("##fileformat=VCFv4.2")
	if err := w.w.EndLine(); err != nil {
		return nil, err
	}
	for _, r := range w.refs {
		w.w.WriteString(fmt.Sprintf("##contig=<ID=%s,length=%d>", r.Name(), r.Len()))
		if err := w.w.EndLine(); err != nil {
			return nil, err
		}
	}
	for _, line := range infoHeader {
		w.w.WriteString(line)
		if err := w.w.EndLine(); err != nil {
			return nil, err
		}
	}
	for _, col := range columns {
		w.w.WriteString(col)
	}
	return w, w.w.EndLine()
}

// alt formats the breakend allele: "t<seq>[mate:1[" for Forward and
// "]mate:1]<seq>t" for Backward, where t is the reference base.
func (w *Writer) alt(refBase byte, r Record) []byte {
	mate := r.MateContig
	if mate == "" {
		mate = PlaceholderContig
	}
	buf := w.buf[:0]
	if r.Breakend.Direction == evidence.Forward {
		buf = append(buf, refBase)
		buf = append(buf, r.Seq...)
		buf = append(buf, '[')
		buf = append(buf, mate...)
		buf = append(buf, ":1["...)
	} else {
		buf = append(buf, ']')
		buf = append(buf, mate...)
		buf = append(buf, ":1]"...)
		buf = append(buf, r.Seq...)
		buf = append(buf, refBase)
	}
	w.buf = buf
	return buf
}

// WriteBreakpoint writes one record.
func (w *Writer) WriteBreakpoint(r Record) error {
	bs := r.Breakend
	if bs.RefID < 0 || bs.RefID >= len(w.refs) {
		return fmt.Errorf("vcf: breakpoint %s: reference %d not in header", r.ID, bs.RefID)
	}
	refName := w.refs[bs.RefID].Name()
	refBase := fasta.Base(w.ref, refName, bs.Start)

	var info strings.Builder
	info.WriteString("SVTYPE=BND")
	if bs.End > bs.Start {
		fmt.Fprintf(&info, ";IMPRECISE;CIPOS=0,%d", bs.End-bs.Start)
	}
	if r.AnchorLength > 0 {
		fmt.Fprintf(&info, ";ANCHLEN=%d", r.AnchorLength)
	}
	fmt.Fprintf(&info, ";EVCOUNT=%d", len(r.EvidenceIDs))
	if len(r.EvidenceIDs) > 0 {
		info.WriteString(";EVID=")
		info.WriteString(strings.Join(r.EvidenceIDs, ","))
	}

	w.w.WriteString(refName)
	w.w.WriteInt64(int64(bs.Start))
	w.w.WriteString(r.ID)
	w.w.WriteString(string(refBase))
	w.w.WriteString(gunsafe.BytesToString(w.alt(refBase, r)))
	w.w.WriteString(".")
	w.w.WriteString(".")
	w.w.WriteString(info.String())
	return w.w.EndLine()
}

// Flush writes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
