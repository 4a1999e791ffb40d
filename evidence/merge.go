package evidence

// Merger interleaves two sorted evidence streams into one stream sorted by
// BreakendSummary.Compare. On ties, evidence from the first stream is
// produced first. Each input is checked for order as it is consumed; a
// violation stops the merge with an *OrderingError.
type Merger struct {
	in    [2]mergeInput
	cur   DirectedEvidence
	err   error
	count int
}

type mergeInput struct {
	name    string
	it      Iterator
	head    DirectedEvidence
	prev    BreakendSummary
	started bool
	done    bool
}

// fill loads the next evidence of the input into head, if head is empty.
func (m *mergeInput) fill() error {
	if m.head != nil || m.done {
		return nil
	}
	if !m.it.Scan() {
		m.done = true
		return m.it.Err()
	}
	m.head = m.it.Evidence()
	bs := m.head.Breakend()
	if m.started && bs.Compare(m.prev) < 0 {
		return &OrderingError{Stream: m.name, Prev: m.prev, Cur: bs}
	}
	m.started = true
	m.prev = bs
	return nil
}

// NewMerger creates a Merger. ownName and mateName identify the streams in
// errors. Typically own is a Source over the coordinate-sorted file and mate
// is a Source over the mate-sorted file.
func NewMerger(ownName string, own Iterator, mateName string, mate Iterator) *Merger {
	return &Merger{in: [2]mergeInput{
		{name: ownName, it: own},
		{name: mateName, it: mate},
	}}
}

// Scan advances to the next evidence in merged order.
func (m *Merger) Scan() bool {
	if m.err != nil {
		return false
	}
	for i := range m.in {
		if err := m.in[i].fill(); err != nil {
			m.err = err
			return false
		}
	}
	pick := -1
	for i := range m.in {
		if m.in[i].head == nil {
			continue
		}
		if pick < 0 || m.in[i].head.Breakend().Compare(m.in[pick].head.Breakend()) < 0 {
			pick = i
		}
	}
	if pick < 0 {
		return false
	}
	m.cur, m.in[pick].head = m.in[pick].head, nil
	m.count++
	return true
}

// Evidence returns the evidence found by the last successful call to Scan.
func (m *Merger) Evidence() DirectedEvidence { return m.cur }

// Err returns the first error encountered, if any.
func (m *Merger) Err() error { return m.err }

// Count returns the number of items produced so far.
func (m *Merger) Count() int { return m.count }
