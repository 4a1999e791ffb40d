package evidence_test

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/grailbio/breakend/evidence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func softClipAt(id string, refID, pos int) evidence.DirectedEvidence {
	return evidence.NewSoftClip(evidence.Fields{
		ID:           id,
		Breakend:     evidence.BreakendSummary{RefID: refID, Start: pos, End: pos, Direction: evidence.Forward},
		Seq:          []byte("ACGTAAAA"),
		AnchorLength: 4,
	}, id)
}

func pairAt(id string, refID, start, end int) evidence.DirectedEvidence {
	return evidence.NewDiscordantPair(evidence.Fields{
		ID:       id,
		Breakend: evidence.BreakendSummary{RefID: refID, Start: start, End: end, Direction: evidence.Backward},
		Seq:      []byte("ACGT"),
	}, id, true)
}

func ids(items []evidence.DirectedEvidence) []string {
	var result []string
	for _, e := range items {
		result = append(result, e.ID())
	}
	return result
}

func TestMerger(t *testing.T) {
	own := &sliceIterator{items: []evidence.DirectedEvidence{
		softClipAt("s1", 0, 10),
		softClipAt("s2", 0, 50),
		softClipAt("s3", 1, 5),
	}}
	mate := &sliceIterator{items: []evidence.DirectedEvidence{
		pairAt("d1", 0, 1, 300),
		pairAt("d2", 0, 50, 400),
		pairAt("d3", 2, 1, 10),
	}}
	m := evidence.NewMerger("own", own, "mate", mate)
	got := drain(t, m)
	// Ties go to the first stream.
	assert.Equal(t, []string{"d1", "s1", "s2", "d2", "s3", "d3"}, ids(got))
	assert.Equal(t, 6, m.Count())
}

func TestMergerOneSided(t *testing.T) {
	own := &sliceIterator{}
	mate := &sliceIterator{items: []evidence.DirectedEvidence{pairAt("d1", 0, 1, 300)}}
	got := drain(t, evidence.NewMerger("own", own, "mate", mate))
	assert.Equal(t, []string{"d1"}, ids(got))

	got = drain(t, evidence.NewMerger("own", &sliceIterator{}, "mate", &sliceIterator{}))
	assert.Equal(t, 0, len(got))
}

func TestMergerOrderingError(t *testing.T) {
	own := &sliceIterator{items: []evidence.DirectedEvidence{
		softClipAt("s1", 0, 10),
	}}
	mate := &sliceIterator{items: []evidence.DirectedEvidence{
		pairAt("d1", 0, 100, 300),
		pairAt("d2", 0, 20, 300),
	}}
	m := evidence.NewMerger("own", own, "mate", mate)
	var got []string
	for m.Scan() {
		got = append(got, m.Evidence().ID())
	}
	oerr, ok := m.Err().(*evidence.OrderingError)
	require.True(t, ok, "got %v", m.Err())
	assert.Equal(t, "mate", oerr.Stream)
	assert.Equal(t, 100, oerr.Prev.Start)
	assert.Equal(t, 20, oerr.Cur.Start)
	assert.Equal(t, []string{"s1", "d1"}, got)
}

// randomStream returns n evidence items sorted by breakend, with many ties.
func randomStream(r *rand.Rand, prefix string, n int, pair bool) []evidence.DirectedEvidence {
	type key struct{ ref, pos int }
	keys := make([]key, n)
	for i := range keys {
		keys[i] = key{r.Intn(3), 1 + r.Intn(20)}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ref != keys[j].ref {
			return keys[i].ref < keys[j].ref
		}
		return keys[i].pos < keys[j].pos
	})
	items := make([]evidence.DirectedEvidence, n)
	for i, k := range keys {
		id := fmt.Sprintf("%s%d", prefix, i)
		if pair {
			items[i] = pairAt(id, k.ref, k.pos, k.pos+r.Intn(100))
		} else {
			items[i] = softClipAt(id, k.ref, k.pos)
		}
	}
	return items
}

func TestMergerRandomInterleavings(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for iter := 0; iter < 500; iter++ {
		own := randomStream(r, "s", r.Intn(15), false)
		mate := randomStream(r, "d", r.Intn(15), true)
		m := evidence.NewMerger("own", &sliceIterator{items: own}, "mate", &sliceIterator{items: mate})
		got := drain(t, m)

		want := append(ids(own), ids(mate)...)
		assert.ElementsMatch(t, want, ids(got), "iter %d", iter)
		assert.Equal(t, len(want), m.Count())
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1].Breakend(), got[i].Breakend()
			require.True(t, prev.Compare(cur) <= 0, "iter %d: %v before %v", iter, prev, cur)
			if prev.Compare(cur) == 0 && got[i-1].ID()[0] == 'd' {
				require.Equal(t, byte('d'), got[i].ID()[0], "iter %d: own evidence after mate evidence at %v", iter, cur)
			}
		}
	}
}
