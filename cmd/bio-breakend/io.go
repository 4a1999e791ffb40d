package main

// This file defines contigWriter and contigReader. contigWriter dumps the
// breakpoints of assembled contigs into a recordio file, and contigReader
// reads them back for -dump-assembly, so that the contigs can be inspected
// without assembling again.

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/breakend/breakpoint"
	"github.com/grailbio/breakend/encoding/vcf"
	"github.com/grailbio/breakend/evidence"
)

const (
	// <fileVersionHeader, fileVersion> is stored in a recordio header.
	fileVersionHeader = "breakendversion"
	fileVersion       = "BREAKEND_V1"
)

// ContigRecord is one record of the dump.
type ContigRecord struct {
	ID            string
	RefID         int
	Start, End    int
	Direction     evidence.Direction
	MateContig    string
	BreakpointSeq []byte
	AnchorLength  int
	EvidenceIDs   []string
}

// contigFileTrailer is stored in the trailer section of the recordio file.
type contigFileTrailer struct {
	// Opts is the list of options used to generate the contigs.
	Opts breakpoint.Opts
	// RefNames are the reference names of the input, indexed by RefID.
	RefNames []string
}

type contigWriter struct {
	path     string
	out      file.File
	w        recordio.Writer
	opts     breakpoint.Opts
	refNames []string
	n        int
}

func newContigWriter(ctx context.Context, path string, refNames []string, opts breakpoint.Opts) (*contigWriter, error) {
	recordiozstd.Init()
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(fileVersionHeader, fileVersion)
	w.AddHeader(recordio.KeyTrailer, true)
	return &contigWriter{path: path, out: out, w: w, opts: opts, refNames: refNames}, nil
}

// WriteBreakpoint implements breakpoint.RecordWriter.
func (w *contigWriter) WriteBreakpoint(r vcf.Record) error {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(ContigRecord{
		ID:            r.ID,
		RefID:         r.Breakend.RefID,
		Start:         r.Breakend.Start,
		End:           r.Breakend.End,
		Direction:     r.Breakend.Direction,
		MateContig:    r.MateContig,
		BreakpointSeq: r.Seq,
		AnchorLength:  r.AnchorLength,
		EvidenceIDs:   r.EvidenceIDs,
	}); err != nil {
		return err
	}
	w.w.Append(b.Bytes())
	w.n++
	return nil
}

// Close writes the trailer and closes the file. It must be called exactly
// once, after writing all the contigs.
func (w *contigWriter) Close(ctx context.Context) error {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(contigFileTrailer{Opts: w.opts, RefNames: w.refNames}); err != nil {
		return err
	}
	w.w.SetTrailer(b.Bytes())
	var e errors.Once
	e.Set(w.w.Finish())
	e.Set(w.out.Close(ctx))
	if err := e.Err(); err != nil {
		return errors.E(err, "close", w.path)
	}
	return nil
}

// contigReader reads a file created by contigWriter.
type contigReader struct {
	path    string
	in      file.File
	r       recordio.Scanner
	trailer contigFileTrailer
	c       ContigRecord // last record read by Scan.
	err     error
}

func newContigReader(ctx context.Context, path string) (*contigReader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	recordiozstd.Init()
	r := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	cr := &contigReader{path: path, in: in, r: r}
	fail := func(err error) (*contigReader, error) {
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(err, path)
	}
	versionFound := false
	for _, kv := range r.Header() {
		if kv.Key == fileVersionHeader {
			if v, _ := kv.Value.(string); v != fileVersion {
				return fail(errors.E(fmt.Sprintf("contig file version mismatch, got %v, expect %v", kv.Value, fileVersion)))
			}
			versionFound = true
			break
		}
	}
	if !versionFound {
		if err := r.Err(); err != nil {
			return fail(err)
		}
		return fail(errors.E(fileVersionHeader + " not found"))
	}
	if err := gob.NewDecoder(bytes.NewReader(r.Trailer())).Decode(&cr.trailer); err != nil {
		return fail(err)
	}
	return cr, nil
}

// Opts returns the options written in the file.
func (r *contigReader) Opts() breakpoint.Opts { return r.trailer.Opts }

// RefNames returns the reference names written in the file.
func (r *contigReader) RefNames() []string { return r.trailer.RefNames }

// Scan reads the next contig.
//
// REQUIRES: Close hasn't been called.
func (r *contigReader) Scan() bool {
	if r.err != nil || !r.r.Scan() {
		return false
	}
	r.c = ContigRecord{}
	if err := gob.NewDecoder(bytes.NewReader(r.r.Get().([]byte))).Decode(&r.c); err != nil {
		r.err = errors.E(err, "decode", r.path)
		return false
	}
	return true
}

// Get yields the current contig.
//
// REQUIRES: Last Scan call returned true.
func (r *contigReader) Get() ContigRecord { return r.c }

// Close closes the reader and returns any error encountered. It must be
// called exactly once.
func (r *contigReader) Close(ctx context.Context) error {
	var e errors.Once
	e.Set(r.err)
	e.Set(r.r.Err())
	e.Set(r.in.Close(ctx))
	return e.Err()
}

// dumpAssembly prints the contigs of the file at path to out, one per line:
// ID, contig, start, end, direction, anchor length, breakpoint sequence and
// evidence IDs.
func dumpAssembly(ctx context.Context, path string, out io.Writer) (err error) {
	r, err := newContigReader(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := r.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	refNames := r.RefNames()
	w := tsv.NewWriter(out)
	for r.Scan() {
		c := r.Get()
		refName := "*"
		if c.RefID >= 0 && c.RefID < len(refNames) {
			refName = refNames[c.RefID]
		}
		w.WriteString(c.ID)
		w.WriteString(refName)
		w.WriteInt64(int64(c.Start))
		w.WriteInt64(int64(c.End))
		w.WriteString(c.Direction.String())
		w.WriteInt64(int64(c.AnchorLength))
		w.WriteBytes(c.BreakpointSeq)
		w.WriteString(strings.Join(c.EvidenceIDs, ","))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
