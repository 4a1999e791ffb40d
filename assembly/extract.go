package assembly

import (
	"sort"
)

// maxContigQuality caps the per-base quality of assembled contigs.
const maxContigQuality = 40

// Path is the best-supported walk through a Graph, in breakend frame.
type Path struct {
	Kmers []Kmer
	// Seq is the first k-mer followed by the last base of each following
	// k-mer.
	Seq []byte
	// Qual is the phred quality of each base of Seq: the smallest support of
	// the k-mers covering the base, capped at 40.
	Qual []byte
	// AnchorLength is the number of leading bases of Seq aligned to the
	// reference. Zero if the path does not start at an anchored k-mer.
	AnchorLength int
	// AnchorPos is the reference position of the last anchored base. Valid
	// iff AnchorLength > 0.
	AnchorPos int
}

// dag is the graph restricted to well-supported k-mers, with cycles broken.
type dag struct {
	kmers []Kmer // ascending
	succ  map[Kmer][]Kmer
	// order lists kmers so that every edge goes from a later to an earlier
	// element (DFS post order).
	order []Kmer
	// pred is the number of predecessors; anchorPred counts only anchored
	// predecessors.
	pred, anchorPred map[Kmer]int
}

const (
	white = iota
	gray
	black
)

// buildDAG drops k-mers with support below minSupport and removes the back
// edges found by a depth-first search that visits k-mers in ascending order.
func buildDAG(g *Graph, minSupport int) *dag {
	d := &dag{
		succ:       make(map[Kmer][]Kmer),
		pred:       make(map[Kmer]int),
		anchorPred: make(map[Kmer]int),
	}
	for km, n := range g.nodes {
		if n.count >= minSupport {
			d.kmers = append(d.kmers, km)
		}
	}
	sort.Slice(d.kmers, func(i, j int) bool { return d.kmers[i] < d.kmers[j] })

	keptSucc := func(km Kmer) []Kmer {
		var r []Kmer
		for _, s := range g.nodes[km].succ {
			if n := g.nodes[s]; n.count >= minSupport {
				r = append(r, s)
			}
		}
		sort.Slice(r, func(i, j int) bool { return r[i] < r[j] })
		return r
	}

	type frame struct {
		km   Kmer
		succ []Kmer
		next int
	}
	color := make(map[Kmer]int, len(d.kmers))
	for _, root := range d.kmers {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack := []frame{{km: root, succ: keptSucc(root)}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.succ) {
				color[top.km] = black
				d.order = append(d.order, top.km)
				stack = stack[:len(stack)-1]
				continue
			}
			s := top.succ[top.next]
			top.next++
			switch color[s] {
			case gray:
				// Back edge; dropping it breaks the cycle.
				continue
			case white:
				color[s] = gray
				d.succ[top.km] = append(d.succ[top.km], s)
				stack = append(stack, frame{km: s, succ: keptSucc(s)})
			case black:
				d.succ[top.km] = append(d.succ[top.km], s)
			}
		}
	}
	for _, km := range d.kmers {
		anchored := g.nodes[km].anchorCount > 0
		for _, s := range d.succ[km] {
			d.pred[s]++
			if anchored {
				d.anchorPred[s]++
			}
		}
	}
	return d
}

// ExtractContig finds the best-supported path through g. nEvidence is the
// number of evidence items that built g. It returns nil if there is too
// little evidence, no k-mer is well supported, or the best path does not
// extend beyond the anchored bases.
func ExtractContig(g *Graph, nEvidence int, opts Opts) *Path {
	if nEvidence < opts.MinEvidence || g.Len() == 0 {
		return nil
	}
	d := buildDAG(g, opts.MinKmerSupport)
	if len(d.kmers) == 0 {
		return nil
	}

	// best[v] is the total support of the heaviest path starting at v.
	best := make(map[Kmer]int, len(d.kmers))
	next := make(map[Kmer]Kmer, len(d.kmers))
	hasNext := make(map[Kmer]bool, len(d.kmers))
	for _, km := range d.order {
		b := 0
		for _, s := range d.succ[km] {
			// Successors are ascending, so ties go to the smaller k-mer.
			if !hasNext[km] || best[s] > b {
				b = best[s]
				next[km] = s
				hasNext[km] = true
			}
		}
		best[km] = g.nodes[km].count + b
	}

	pickStart := func(ok func(Kmer) bool) (Kmer, bool) {
		var (
			start Kmer
			found bool
		)
		for _, km := range d.kmers {
			if ok(km) && (!found || best[km] > best[start]) {
				start, found = km, true
			}
		}
		return start, found
	}
	start, found := pickStart(func(km Kmer) bool {
		return g.nodes[km].anchorCount > 0 && d.anchorPred[km] == 0
	})
	if !found {
		start, found = pickStart(func(km Kmer) bool { return d.pred[km] == 0 })
	}
	if !found {
		start, _ = pickStart(func(Kmer) bool { return true })
	}

	p := &Path{Kmers: []Kmer{start}}
	for km := start; hasNext[km]; {
		km = next[km]
		p.Kmers = append(p.Kmers, km)
	}

	leading := 0
	for _, km := range p.Kmers {
		if g.nodes[km].anchorCount == 0 {
			break
		}
		leading++
	}
	if leading == len(p.Kmers) {
		return nil
	}
	if leading > 0 {
		p.AnchorLength = g.k - 1 + leading
		p.AnchorPos = g.nodes[p.Kmers[leading-1]].anchorPos
	}

	n := len(p.Kmers) + g.k - 1
	p.Seq = make([]byte, n)
	p.Kmers[0].Decode(p.Seq[:g.k])
	for i, km := range p.Kmers[1:] {
		p.Seq[g.k+i] = km.LastBase()
	}
	p.Qual = make([]byte, n)
	for i := range p.Qual {
		// K-mers j covering base i satisfy j <= i < j+k.
		lo, hi := i-g.k+1, i
		if lo < 0 {
			lo = 0
		}
		if hi >= len(p.Kmers) {
			hi = len(p.Kmers) - 1
		}
		q := maxContigQuality
		for j := lo; j <= hi; j++ {
			if c := g.nodes[p.Kmers[j]].count; c < q {
				q = c
			}
		}
		p.Qual[i] = byte(q)
	}
	return p
}
