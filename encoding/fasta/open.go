package fasta

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// File is a Fasta backed by a file, local or S3.
type File struct {
	Fasta
	in file.File
}

// Open opens the FASTA file at path. If path+".fai" exists, sequences are read
// on demand through the index; otherwise the whole file is loaded into memory.
// The caller must call Close.
func Open(ctx context.Context, path string) (*File, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	if idx, err := file.Open(ctx, path+".fai"); err == nil {
		fa, err := NewIndexed(in.Reader(ctx), idx.Reader(ctx))
		if e := idx.Close(ctx); e != nil && err == nil {
			err = e
		}
		if err != nil {
			in.Close(ctx) // nolint: errcheck
			return nil, errors.E(err, "read index", path+".fai")
		}
		return &File{Fasta: fa, in: in}, nil
	}
	fa, err := New(in.Reader(ctx))
	if e := in.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return nil, errors.E(err, "read", path)
	}
	return &File{Fasta: fa}, nil
}

// Close releases the underlying file, if it is still open.
func (f *File) Close(ctx context.Context) error {
	if f.in == nil {
		return nil
	}
	err := f.in.Close(ctx)
	f.in = nil
	return err
}
