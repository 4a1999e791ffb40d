package breakpoint_test

import (
	"strings"
	"testing"

	"github.com/grailbio/breakend/breakpoint"
	"github.com/grailbio/breakend/evidence"
	"github.com/stretchr/testify/assert"
)

// softClip creates forward soft clip evidence with anchorLen anchored bases
// followed by clipLen clipped bases of quality qual.
func softClip(id string, mapq, anchorLen, clipLen int, identity float64, qual byte) evidence.DirectedEvidence {
	n := anchorLen + clipLen
	q := make([]byte, n)
	for i := range q {
		q[i] = qual
	}
	return evidence.NewSoftClip(evidence.Fields{
		ID:              id,
		Breakend:        evidence.BreakendSummary{RefID: 0, Start: 1000, End: 1000, Direction: evidence.Forward},
		MapQ:            mapq,
		PercentIdentity: identity,
		Seq:             []byte(strings.Repeat("A", n)),
		Qual:            q,
		AnchorLength:    anchorLen,
	}, id)
}

func TestFilterThresholds(t *testing.T) {
	f := breakpoint.DefaultFilter
	tests := []struct {
		e    evidence.DirectedEvidence
		want bool
	}{
		{softClip("pass", 5, 30, 25, 95, 5), true},
		{softClip("mapq", 4, 30, 25, 95, 5), false},
		{softClip("len", 5, 30, 24, 95, 5), false},
		{softClip("identity", 5, 30, 25, 94.9, 5), false},
		{softClip("qual", 5, 30, 25, 95, 4), false},
		{softClip("high", 60, 30, 70, 100, 40), true},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, f.AcceptEvidence(test.e), test.e.ID())
	}
}

func TestFilterEvidenceKinds(t *testing.T) {
	f := breakpoint.Filter{}
	fields := evidence.Fields{
		ID:              "x",
		Breakend:        evidence.BreakendSummary{RefID: 0, Start: 10, End: 500, Direction: evidence.Forward},
		MapQ:            60,
		PercentIdentity: 100,
		Seq:             []byte("ACGT"),
		Qual:            []byte{30, 30, 30, 30},
	}
	// Discordant pairs are never written, even with no thresholds.
	assert.False(t, f.AcceptEvidence(evidence.NewDiscordantPair(fields, "p", false)))

	fields.Breakend.End = 10
	fields.AnchorLength = 2
	assert.True(t, f.AcceptEvidence(evidence.NewSplitRead(fields, "s")))
	assert.True(t, f.AcceptEvidence(evidence.NewSoftClip(fields, "c")))
}

func TestFilterApplyIdempotent(t *testing.T) {
	f := breakpoint.DefaultFilter
	items := []evidence.DirectedEvidence{
		softClip("a", 60, 30, 30, 100, 30),
		softClip("b", 0, 30, 30, 100, 30),
		softClip("c", 60, 30, 30, 100, 30),
		softClip("d", 60, 30, 10, 100, 30),
	}
	once := f.Apply(items)
	assert.Equal(t, []string{"a", "c"}, ids(once))
	twice := f.Apply(append([]evidence.DirectedEvidence(nil), once...))
	assert.Equal(t, ids(once), ids(twice))
	assert.Empty(t, f.Apply(nil))
}

func ids(items []evidence.DirectedEvidence) []string {
	var r []string
	for _, e := range items {
		r = append(r, e.ID())
	}
	return r
}
