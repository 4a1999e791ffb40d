package bamprovider

import (
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// BAMProvider implements Provider for BAM files. The BAM file may be an S3
// URL, in which case the data will be read from S3. Otherwise the data will be
// read from the local filesystem.
type BAMProvider struct {
	// Path of the *.bam file. Must be nonempty.
	Path string
	// Parallelism is the number of decompression goroutines per iterator.
	Parallelism int
	err         errors.Once

	mu      sync.Mutex
	nActive int
	header  *sam.Header
}

type bamIterator struct {
	provider *BAMProvider
	in       file.File
	reader   *bam.Reader

	active bool
	err    error
	next   *sam.Record
	n      int
}

// GetHeader implements the Provider interface.
func (b *BAMProvider) GetHeader() (*sam.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.header != nil {
		return b.header, nil
	}

	ctx := vcontext.Background()
	reader, err := file.Open(ctx, b.Path)
	if err != nil {
		err = errors.E(err, "open", b.Path)
		b.err.Set(err)
		return nil, err
	}
	defer reader.Close(ctx)
	bamReader, err := bam.NewReader(reader.Reader(ctx), 1)
	if err != nil {
		err = errors.E(err, "read header", b.Path)
		b.err.Set(err)
		return nil, err
	}
	defer bamReader.Close()
	b.header = bamReader.Header()
	return b.header, nil
}

// Close implements the Provider interface.
func (b *BAMProvider) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nActive > 0 {
		vlog.Fatalf("%d iterators still active for %+v", b.nActive, b)
	}
	return b.err.Err()
}

// NewIterator implements the Provider interface. If the file cannot be
// opened, the returned iterator yields no records and reports the error.
func (b *BAMProvider) NewIterator() Iterator {
	parallelism := b.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.Path)
	if err != nil {
		err = errors.E(err, "open", b.Path)
		b.err.Set(err)
		return &errIterator{err}
	}
	reader, err := bam.NewReader(in.Reader(ctx), parallelism)
	if err != nil {
		err = errors.E(err, "read header", b.Path)
		b.err.Set(err)
		in.Close(ctx) // nolint: errcheck
		return &errIterator{err}
	}
	b.mu.Lock()
	b.nActive++
	b.mu.Unlock()
	vlog.VI(1).Infof("%v: opened iterator, parallelism %d", b.Path, parallelism)
	return &bamIterator{provider: b, in: in, reader: reader, active: true}
}

func (b *BAMProvider) freeIterator(i *bamIterator) {
	if !i.active {
		vlog.Fatal(i)
	}
	i.active = false
	i.internalClose()
	b.mu.Lock()
	b.nActive--
	if b.nActive < 0 {
		vlog.Fatalf("Negative active count for %+v", b)
	}
	b.mu.Unlock()
}

func (i *bamIterator) Scan() bool {
	if !i.active {
		vlog.Fatal("Reusing iterator")
	}
	if i.err != nil {
		return false
	}
	i.next, i.err = i.reader.Read()
	if i.err != nil {
		if i.err == io.EOF {
			vlog.VI(1).Infof("%v: read %d records", i.provider.Path, i.n)
		} else {
			i.err = errors.E(i.err, "read", i.provider.Path)
		}
		return false
	}
	i.n++
	return true
}

func (i *bamIterator) Record() *sam.Record {
	return i.next
}

// Err implements the Iterator interface.
func (i *bamIterator) Err() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Close implements the Iterator interface.
func (i *bamIterator) Close() error {
	err := i.Err()
	i.provider.freeIterator(i)
	return err
}

func (i *bamIterator) internalClose() {
	if i.reader != nil {
		if err := i.reader.Close(); err != nil && i.err == nil {
			i.err = err
		}
		i.reader = nil
	}
	if i.in != nil {
		if err := i.in.Close(vcontext.Background()); err != nil && i.err == nil {
			i.err = err
		}
		i.in = nil
	}
	i.provider.err.Set(i.Err())
}
