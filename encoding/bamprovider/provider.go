package bamprovider

import (
	"strings"

	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// ProviderOpts defines options for NewProvider.
type ProviderOpts struct {
	// Parallelism is the number of goroutines used to decompress each BAM
	// stream. Values <= 0 mean 1.
	Parallelism int
}

// Provider allows reading a BAM file sequentially. A provider may hand out
// several iterators over the same file, each reading it from the start.
// Thread safe.
type Provider interface {
	// GetHeader returns the header for the provided BAM data.  The callee
	// must not modify the returned header object.
	//
	// REQUIRES: Close has not been called.
	GetHeader() (*sam.Header, error)

	// NewIterator returns an iterator over every record of the file, in file
	// order.
	//
	// REQUIRES: Close has not been called.
	NewIterator() Iterator

	// Close must be called exactly once. It returns any error encountered
	// by the provider, or any iterator created by the provider.
	//
	// REQUIRES: All the iterators created by NewIterator have been closed.
	Close() error
}

// Iterator iterates over sam.Records in file order. Thread compatible.
type Iterator interface {
	// Scan returns where there are any records remaining in the iterator,
	// and if so, advances the iterator to the next record. If the iterator
	// reaches the end of the file, Scan() returns false.  If an error
	// occurs, Scan() returns false and the error can be retrieved by
	// calling Err().
	//
	// REQUIRES: Close has not been called.
	Scan() bool

	// Record returns the current record in the iterator. This must be
	// called only after a call to Scan() returns true.
	//
	// REQUIRES: Close has not been called.
	Record() *sam.Record

	// Err returns the error encoutered during iteration, or nil if no error
	// occurred.  An io.EOF error will be translated to nil.
	Err() error

	// Close must be called exactly once. It returns the value of Err().
	Close() error
}

func mergeOpts(optList []ProviderOpts) ProviderOpts {
	opts := ProviderOpts{Parallelism: 1}
	for _, o := range optList {
		if o.Parallelism > 0 {
			opts.Parallelism = o.Parallelism
		}
	}
	return opts
}

// NewProvider creates a Provider for the BAM file at "path", which may be a
// local pathname or an S3 URL.
func NewProvider(path string, optList ...ProviderOpts) Provider {
	opts := mergeOpts(optList)
	if !strings.HasSuffix(path, ".bam") {
		vlog.VI(1).Infof("%v: no .bam suffix, reading as BAM anyway", path)
	}
	return &BAMProvider{Path: path, Parallelism: opts.Parallelism}
}

// errIterator is returned by NewIterator when the file cannot be read.
type errIterator struct{ err error }

func (i *errIterator) Scan() bool          { return false }
func (i *errIterator) Record() *sam.Record { return nil }
func (i *errIterator) Err() error          { return i.err }
func (i *errIterator) Close() error        { return i.err }
