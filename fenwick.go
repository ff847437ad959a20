package relstore

// fenwickTree is a binary indexed tree over a fixed number of buckets,
// supporting O(log n) point updates and prefix-sum queries (§4.8). Index 0
// is bucket 0; internally it is stored 1-indexed.
type fenwickTree struct {
	tree []int
	n    int
}

func newFenwickTree(n int) *fenwickTree {
	return &fenwickTree{tree: make([]int, n+1), n: n}
}

// add increments bucket i by delta.
func (f *fenwickTree) add(i, delta int) {
	for i++; i <= f.n; i += i & (-i) {
		f.tree[i] += delta
	}
}

// prefixSum returns the sum of buckets [0, i], inclusive. prefixSum(-1) is 0.
func (f *fenwickTree) prefixSum(i int) int {
	if i < 0 {
		return 0
	}
	if i >= f.n {
		i = f.n - 1
	}
	sum := 0
	for i++; i > 0; i -= i & (-i) {
		sum += f.tree[i]
	}
	return sum
}

// rangeSum returns the sum of buckets [lo, hi], inclusive.
func (f *fenwickTree) rangeSum(lo, hi int) int {
	if hi < lo {
		return 0
	}
	return f.prefixSum(hi) - f.prefixSum(lo-1)
}

// total returns the sum of every bucket.
func (f *fenwickTree) total() int {
	return f.prefixSum(f.n - 1)
}
