package fasta

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	perrors "github.com/pkg/errors"
)

// faiRecord is one line of a faidx index: the sequence name, its length in
// bases, the byte offset of its first base, and the number of bases and bytes
// per line.
type faiRecord struct {
	Name      string
	Length    int64
	Offset    int64
	LineBases int64
	LineWidth int64
}

// GenerateIndex generates an index (*.fai) from FASTA.  The index can be later
// passed to NewIndexed() to random-access the FASTA file quickly.
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w     = tsv.NewWriter(out)
		r     = bufio.NewReader(in)
		rec   faiRecord
		open  bool
		nByte int64
	)
	flush := func() error {
		w.WriteString(rec.Name)
		w.WriteInt64(rec.Length)
		w.WriteInt64(rec.Offset)
		w.WriteInt64(rec.LineBases)
		w.WriteInt64(rec.LineWidth)
		return w.EndLine()
	}
	for {
		fullLine, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return errors.E(err, "reading FASTA")
		}
		nByte += int64(len(fullLine))
		if line := bytes.TrimRight(fullLine, "\r\n"); len(line) > 0 {
			if line[0] == '>' {
				if open {
					if e := flush(); e != nil {
						return e
					}
				}
				rec = faiRecord{Name: seqName(string(line)), Offset: nByte}
				open = true
			} else if !open {
				return errors.E("malformed FASTA file: sequence before the first header")
			} else {
				if rec.LineWidth == 0 {
					rec.LineWidth = int64(len(fullLine))
					rec.LineBases = int64(len(line))
				}
				rec.Length += int64(len(line))
			}
		}
		if err == io.EOF {
			break
		}
	}
	if !open {
		return errors.E("empty FASTA file")
	}
	if err := flush(); err != nil {
		return err
	}
	return w.Flush()
}

func readIndex(index io.Reader) ([]faiRecord, error) {
	r := tsv.NewReader(index)
	var recs []faiRecord
	for {
		var rec faiRecord
		if err := r.Read(&rec); err != nil {
			if err == io.EOF {
				return recs, nil
			}
			return nil, perrors.Wrap(err, "couldn't read FASTA index")
		}
		if rec.LineBases <= 0 || rec.LineWidth < rec.LineBases {
			return nil, perrors.Errorf("invalid FASTA index line for %s", rec.Name)
		}
		recs = append(recs, rec)
	}
}

type indexedFasta struct {
	seqs     map[string]faiRecord
	seqNames []string

	mu  sync.Mutex
	r   io.ReadSeeker
	buf []byte
}

// NewIndexed creates a Fasta that reads sequences from fasta on demand,
// using the faidx index read from index.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Fasta, error) {
	recs, err := readIndex(index)
	if err != nil {
		return nil, err
	}
	f := &indexedFasta{seqs: make(map[string]faiRecord, len(recs)), r: fasta}
	for _, rec := range recs {
		f.seqs[rec.Name] = rec
		f.seqNames = append(f.seqNames, rec.Name)
	}
	return f, nil
}

// Get implements Fasta.Get().
func (f *indexedFasta) Get(seqName string, start, end uint64) (string, error) {
	rec, ok := f.seqs[seqName]
	if !ok {
		return "", perrors.Errorf("sequence not found in index: %s", seqName)
	}
	if err := checkRange(seqName, start, end, uint64(rec.Length)); err != nil {
		return "", err
	}
	// Byte offsets of the first and one past the last requested base.
	byteOff := func(pos int64) int64 {
		return rec.Offset + pos/rec.LineBases*rec.LineWidth + pos%rec.LineBases
	}
	first, last := byteOff(int64(start)), byteOff(int64(end)-1)+1

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.r.Seek(first, io.SeekStart); err != nil {
		return "", perrors.Wrapf(err, "seek %s:%d", seqName, start)
	}
	n := int(last - first)
	if cap(f.buf) < n {
		f.buf = make([]byte, n)
	}
	f.buf = f.buf[:n]
	if _, err := io.ReadFull(f.r, f.buf); err != nil {
		return "", perrors.Wrapf(err, "read %s:%d-%d", seqName, start, end)
	}
	seq := make([]byte, 0, end-start)
	for _, b := range f.buf {
		if b != '\n' && b != '\r' {
			seq = append(seq, b)
		}
	}
	return string(seq), nil
}

// Len implements Fasta.Len().
func (f *indexedFasta) Len(seqName string) (uint64, error) {
	rec, ok := f.seqs[seqName]
	if !ok {
		return 0, perrors.Errorf("sequence not found in index: %s", seqName)
	}
	return uint64(rec.Length), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *indexedFasta) SeqNames() []string {
	return f.seqNames
}
