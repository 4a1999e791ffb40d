package breakpoint

import (
	"fmt"

	"github.com/grailbio/breakend/assembly"
	"github.com/grailbio/breakend/encoding/fasta"
	"github.com/grailbio/breakend/evidence"
	"github.com/grailbio/hts/sam"
)

// Opts configures a Run.
type Opts struct {
	Evidence evidence.Opts
	Assembly assembly.Opts
	Filter   Filter
	// ProgressInterval is the number of evidence items between progress
	// messages. Zero disables them.
	ProgressInterval int
}

// DefaultOpts sets the default values of Opts.
var DefaultOpts = Opts{
	Evidence:         evidence.DefaultOpts,
	Assembly:         assembly.DefaultOpts,
	Filter:           DefaultFilter,
	ProgressInterval: 1000000,
}

// Context is the state shared by the stages of one Run: the sequence
// dictionary of the inputs, the reference, the options and progress.
type Context struct {
	Header *sam.Header
	// Reference is optional. When set, it must contain every reference of
	// Header.
	Reference fasta.Fasta
	Opts      Opts
	Progress  *Progress
}

// NewContext creates a Context. It checks that opts are valid and that
// reference, if not nil, matches header.
func NewContext(header *sam.Header, reference fasta.Fasta, opts Opts) (*Context, error) {
	if err := opts.Assembly.Validate(); err != nil {
		return nil, err
	}
	if opts.Evidence.MaxFragmentSize <= 0 {
		return nil, fmt.Errorf("MaxFragmentSize must be positive, got %d", opts.Evidence.MaxFragmentSize)
	}
	if reference != nil {
		for _, ref := range header.Refs() {
			n, err := reference.Len(ref.Name())
			if err != nil {
				return nil, fmt.Errorf("reference does not match the input: %v", err)
			}
			if int(n) != ref.Len() {
				return nil, fmt.Errorf("reference %s has length %d, input header says %d", ref.Name(), n, ref.Len())
			}
		}
	}
	c := &Context{Header: header, Reference: reference, Opts: opts}
	c.Progress = NewProgress(c.RefName, opts.ProgressInterval)
	return c, nil
}

// RefName returns the name of the reference refID, or "*" if it is not in
// the header.
func (c *Context) RefName(refID int) string {
	refs := c.Header.Refs()
	if refID < 0 || refID >= len(refs) {
		return "*"
	}
	return refs[refID].Name()
}
