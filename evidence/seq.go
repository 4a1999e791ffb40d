package evidence

var complementTable [256]byte

func init() {
	for i := range complementTable {
		complementTable[i] = 'N'
	}
	for _, p := range []string{"AT", "CG", "GC", "TA", "at", "cg", "gc", "ta", "NN", "nn"} {
		complementTable[p[0]] = p[1]
	}
}

// ReverseComplement returns a new slice containing the reverse complement of
// seq. Bases other than ACGTN (in either case) become 'N'.
func ReverseComplement(seq []byte) []byte {
	dst := make([]byte, len(seq))
	ReverseComplementTo(dst, seq)
	return dst
}

// ReverseComplementTo writes the reverse complement of src to dst, which must
// have the same length.
func ReverseComplementTo(dst, src []byte) {
	if len(dst) != len(src) {
		panic("ReverseComplementTo: length mismatch")
	}
	for i, b := range src {
		dst[len(src)-1-i] = complementTable[b]
	}
}

// Reverse returns a new slice with the elements of b in reverse order. It is
// used for quality strings that accompany ReverseComplement.
func Reverse(b []byte) []byte {
	dst := make([]byte, len(b))
	for i, v := range b {
		dst[len(b)-1-i] = v
	}
	return dst
}
