package assembly

import (
	"github.com/grailbio/base/simd"
	"github.com/grailbio/breakend/evidence"
)

type node struct {
	// count is the number of occurrences of the k-mer across evidence.
	count int
	// anchorCount is the number of occurrences in which every base of the
	// k-mer was aligned to the reference.
	anchorCount int
	// anchorPos is the reference position of the last base of the first
	// anchored occurrence. Valid iff anchorCount > 0.
	anchorPos int
	// succ lists the distinct k-mers that followed this one, in insertion
	// order.
	succ []Kmer
}

func (n *node) addSucc(km Kmer) {
	for _, s := range n.succ {
		if s == km {
			return
		}
	}
	n.succ = append(n.succ, km)
}

// Graph is a de Bruijn graph of the evidence at one locus. Sequences are
// added in breakend frame: anchored bases first, followed by the novel bases
// that cross the breakend. Forward evidence is in breakend frame as is;
// backward evidence is reverse complemented.
type Graph struct {
	k     int
	nodes map[Kmer]*node
	kz    *kmerizer
	frame []byte
}

// NewGraph creates an empty graph of k-mers of length k.
func NewGraph(k int) *Graph {
	return &Graph{
		k:     k,
		nodes: make(map[Kmer]*node),
		kz:    newKmerizer(k),
	}
}

// K returns the k-mer length.
func (g *Graph) K() int { return g.k }

// Len returns the number of distinct k-mers.
func (g *Graph) Len() int { return len(g.nodes) }

// breakendFrame returns e's sequence with the anchored bases first. The
// result may alias internal storage and is valid until the next call.
func (g *Graph) breakendFrame(e evidence.DirectedEvidence) []byte {
	seq := e.Seq()
	if e.Breakend().Direction == evidence.Forward {
		return seq
	}
	simd.ResizeUnsafe(&g.frame, len(seq))
	evidence.ReverseComplementTo(g.frame, seq)
	return g.frame
}

// refPos returns the reference position of the base at offset i of the
// breakend frame of e. Only meaningful for i < e.AnchorLength().
func refPos(e evidence.DirectedEvidence, i int) int {
	bs := e.Breakend()
	// The last anchored base sits at the breakend.
	dist := e.AnchorLength() - 1 - i
	if bs.Direction == evidence.Forward {
		return bs.Start - dist
	}
	return bs.Start + dist
}

// Add inserts the k-mers of e.
func (g *Graph) Add(e evidence.DirectedEvidence) {
	seq := g.breakendFrame(e)
	anchorLen := e.AnchorLength()
	g.kz.Reset(seq)
	var (
		prev    *node
		prevPos = -2
	)
	for g.kz.Scan() {
		km := g.kz.Get()
		n := g.nodes[km.kmer]
		if n == nil {
			n = &node{}
			g.nodes[km.kmer] = n
		}
		n.count++
		if last := km.pos + g.k - 1; last < anchorLen {
			if n.anchorCount == 0 {
				n.anchorPos = refPos(e, last)
			}
			n.anchorCount++
		}
		if prev != nil && prevPos == km.pos-1 {
			prev.addSucc(km.kmer)
		}
		prev, prevPos = n, km.pos
	}
}
