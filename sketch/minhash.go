package sketch

import "sort"

// MinHash is a bottom-k sketch: it retains the k smallest distinct hash
// values seen, which approximates a uniform sample of the input k-mer set.
type MinHash struct {
	size int
	heap []uint64 // max-heap of the smallest values seen
	seen map[uint64]struct{}
}

// NewMinHash creates a sketch that retains up to size values.
func NewMinHash(size int) *MinHash {
	return &MinHash{
		size: size,
		heap: make([]uint64, 0, size),
		seen: make(map[uint64]struct{}, size),
	}
}

// Add offers a hash value to the sketch.
func (mh *MinHash) Add(hv uint64) {
	if _, ok := mh.seen[hv]; ok {
		return
	}
	if len(mh.heap) < mh.size {
		mh.seen[hv] = struct{}{}
		mh.heap = append(mh.heap, hv)
		mh.siftUp(len(mh.heap) - 1)
		return
	}
	if hv >= mh.heap[0] {
		return
	}
	delete(mh.seen, mh.heap[0])
	mh.seen[hv] = struct{}{}
	mh.heap[0] = hv
	mh.siftDown(0)
}

// Len returns the number of values currently retained.
func (mh *MinHash) Len() int { return len(mh.heap) }

// Values returns the retained hash values in ascending order.
func (mh *MinHash) Values() []uint64 {
	out := make([]uint64, len(mh.heap))
	copy(out, mh.heap)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (mh *MinHash) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if mh.heap[i] <= mh.heap[p] {
			return
		}
		mh.heap[i], mh.heap[p] = mh.heap[p], mh.heap[i]
		i = p
	}
}

func (mh *MinHash) siftDown(i int) {
	n := len(mh.heap)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		big := l
		if r := l + 1; r < n && mh.heap[r] > mh.heap[l] {
			big = r
		}
		if mh.heap[big] <= mh.heap[i] {
			return
		}
		mh.heap[i], mh.heap[big] = mh.heap[big], mh.heap[i]
		i = big
	}
}
