// Package fastq writes breakpoint sequences in FASTQ format.
package fastq

import (
	"io"

	gunsafe "github.com/grailbio/base/unsafe"
)

var newline = []byte{'\n'}

const (
	// qualOffset is the ascii offset of FASTQ (sanger) base qualities.
	qualOffset = 33
	// maxQual is the largest phred value representable as a printable
	// character.
	maxQual = '~' - qualOffset
	// missingQual marks a base whose quality is not available in the
	// alignment record.
	missingQual = 0xff
)

// Writer is a FASTQ file writer.
type Writer struct {
	w    io.Writer
	err  error
	qbuf []byte
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteSequence writes one read named id. qual holds raw phred values, one
// per base of seq; missing (0xff) qualities are written as zero.
func (w *Writer) WriteSequence(id string, seq, qual []byte) error {
	if len(qual) != len(seq) {
		qual = nil
	}
	w.qbuf = w.qbuf[:0]
	for i := range seq {
		q := byte(0)
		if qual != nil && qual[i] != missingQual {
			q = qual[i]
			if q > maxQual {
				q = maxQual
			}
		}
		w.qbuf = append(w.qbuf, q+qualOffset)
	}
	w.writeln("@" + id)
	w.writeln(gunsafe.BytesToString(seq))
	w.writeln("+")
	w.writeln(gunsafe.BytesToString(w.qbuf))
	return w.err
}

// Err returns the first error encountered by the writer.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, line)
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}
