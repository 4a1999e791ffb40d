package assembly

const (
	invalidKmerBits = uint8(255)
	// MaxK is the longest k-mer that fits in a Kmer.
	MaxK = 32
)

var (
	asciiToKmerMap [256]uint8
	kmerBases      = [4]byte{'A', 'C', 'G', 'T'}
)

func init() {
	for i := range asciiToKmerMap {
		asciiToKmerMap[i] = invalidKmerBits
	}
	for bits, ch := range kmerBases {
		asciiToKmerMap[ch] = uint8(bits)
		asciiToKmerMap[ch|0x20] = uint8(bits) // lowercase
	}
}

// Kmer is a compact encoding of a sequence of ACGT, up to 32 bases. The last
// base occupies the lowest two bits.
type Kmer uint64

// LastBase returns the last base of the k-mer as an uppercase letter.
func (km Kmer) LastBase() byte { return kmerBases[km&3] }

// Decode writes the len(dst) bases of km to dst.
func (km Kmer) Decode(dst []byte) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = kmerBases[km&3]
		km >>= 2
	}
}

// EncodeKmer encodes seq, which must be no longer than MaxK. It returns false
// if seq contains a base other than ACGT.
func EncodeKmer(seq []byte) (Kmer, bool) {
	var km Kmer
	for _, ch := range seq {
		b := asciiToKmerMap[ch]
		if b == invalidKmerBits {
			return 0, false
		}
		km = (km << 2) | Kmer(b)
	}
	return km, true
}

type kmerAtPos struct {
	// pos is the offset of the first base of the k-mer in the sequence.
	pos  int
	kmer Kmer
}

// kmerizer enumerates the k-mers of a sequence. K-mers that contain a base
// other than ACGT are skipped.
type kmerizer struct {
	kmerLength int
	mask       Kmer

	seq []byte
	// si is the index of the next base to consume.
	si int
	// run is the number of consecutive valid bases ending at si-1, capped at
	// kmerLength.
	run int
	cur kmerAtPos
}

func newKmerizer(kmerLength int) *kmerizer {
	k := &kmerizer{kmerLength: kmerLength, mask: ^Kmer(0)}
	if kmerLength < MaxK {
		k.mask = ^(^Kmer(0) << Kmer(kmerLength*2 /*2==#bits per base*/))
	}
	return k
}

func (k *kmerizer) Reset(seq []byte) {
	k.seq = seq
	k.si = 0
	k.run = 0
	k.cur = kmerAtPos{}
}

func (k *kmerizer) Scan() bool {
	for k.si < len(k.seq) {
		bits := asciiToKmerMap[k.seq[k.si]]
		k.si++
		if bits == invalidKmerBits {
			k.run = 0
			continue
		}
		k.cur.kmer = ((k.cur.kmer << 2) | Kmer(bits)) & k.mask
		if k.run < k.kmerLength {
			k.run++
		}
		if k.run == k.kmerLength {
			k.cur.pos = k.si - k.kmerLength
			return true
		}
	}
	return false
}

func (k *kmerizer) Get() kmerAtPos { return k.cur }
