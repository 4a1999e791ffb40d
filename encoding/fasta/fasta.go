// Package fasta reads reference sequences from FASTA files, either loaded in
// memory or accessed through a samtools faidx index
// (http://www.htslib.org/doc/faidx.html).
//
// A sequence name is the text between '>' and the first space of the header
// line, so '>chr1 A viral sequence' names "chr1".
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Longest line accepted by New.
const maxLineLength = 1 << 28

// Fasta represents FASTA-formatted data, consisting of a set of named
// sequences.
type Fasta interface {
	// Get returns a substring of the given sequence name at the given
	// coordinates, which are treated as a 0-based half-open interval
	// [start, end). Get is thread-safe.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the given sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns the names of all sequences, in the order of appearance in
	// the FASTA file.
	SeqNames() []string
}

type memFasta struct {
	seqs     map[string]string
	seqNames []string
}

func seqName(header string) string {
	return strings.SplitN(header[1:], " ", 2)[0]
}

// New reads all the FASTA data from r into memory.
func New(r io.Reader) (Fasta, error) {
	f := &memFasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, maxLineLength)
	var (
		name    string
		started bool
		seq     strings.Builder
	)
	add := func() {
		f.seqs[name] = seq.String()
		f.seqNames = append(f.seqNames, name)
		seq.Reset()
	}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if started {
				add()
			}
			name, started = seqName(line), true
			continue
		}
		if !started {
			return nil, errors.Errorf("malformed FASTA file: sequence before the first header")
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA data")
	}
	if started {
		add()
	}
	return f, nil
}

func checkRange(seqName string, start, end, length uint64) error {
	if end <= start {
		return errors.Errorf("start must be less than end")
	}
	if end > length {
		return errors.Errorf("end is past end of sequence %s: %d", seqName, length)
	}
	return nil
}

// Get implements Fasta.Get().
func (f *memFasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if err := checkRange(seqName, start, end, uint64(len(s))); err != nil {
		return "", err
	}
	return s[start:end], nil
}

// Len implements Fasta.Len().
func (f *memFasta) Len(seqName string) (uint64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return uint64(len(s)), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *memFasta) SeqNames() []string {
	return f.seqNames
}

// Base returns the base at the 1-based position pos of seqName, upper-cased,
// or 'N' if f is nil or the position is not in the reference.
func Base(f Fasta, seqName string, pos int) byte {
	if f == nil || pos < 1 {
		return 'N'
	}
	s, err := f.Get(seqName, uint64(pos-1), uint64(pos))
	if err != nil || len(s) != 1 {
		return 'N'
	}
	b := s[0]
	if b >= 'a' && b <= 'z' {
		b -= 'a' - 'A'
	}
	return b
}
