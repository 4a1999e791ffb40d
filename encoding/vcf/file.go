package vcf

import (
	"context"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/breakend/encoding/fasta"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/hts/sam"
)

// FileWriter is a Writer that owns its output file, local or S3. Output is
// bgzf-compressed when the path ends in ".gz".
type FileWriter struct {
	*Writer
	path string
	out  file.File
	bgzf *bgzf.Writer
}

// Create creates path and writes the VCF header to it. parallelism is the
// number of bgzf compression goroutines.
func Create(ctx context.Context, path string, header *sam.Header, ref fasta.Fasta, parallelism int) (*FileWriter, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	fw := &FileWriter{path: path, out: out}
	w := out.Writer(ctx)
	if strings.HasSuffix(path, ".gz") {
		fw.bgzf = bgzf.NewWriter(w, parallelism)
		w = fw.bgzf
	}
	if fw.Writer, err = NewWriter(w, header, ref); err != nil {
		out.Close(ctx) // nolint: errcheck
		return nil, errors.E(err, "write header", path)
	}
	return fw, nil
}

// Close flushes the records and closes the file.
func (w *FileWriter) Close(ctx context.Context) error {
	var err errors.Once
	err.Set(w.Flush())
	if w.bgzf != nil {
		err.Set(w.bgzf.Close())
	}
	err.Set(w.out.Close(ctx))
	if e := err.Err(); e != nil {
		return errors.E(e, "close", w.path)
	}
	return nil
}
