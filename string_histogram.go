package relstore

// StringHistogram estimates selectivity over a STRING column by mapping
// each string to an integer key — its first 4 bytes, big-endian,
// zero-padded if shorter — and delegating entirely to an IntHistogram
// over that key space.
type StringHistogram struct {
	inner *IntHistogram
}

// stringToKey maps s to its IntHistogram key: the first 4 bytes of s
// interpreted big-endian, short strings zero-padded on the right.
func stringToKey(s string) int32 {
	var buf [4]byte
	copy(buf[:], s)
	return int32(uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]))
}

// NewStringHistogram builds a StringHistogram with the given number of
// buckets, spanning the full key space so that any string maps into a
// valid bucket regardless of the corpus actually observed.
func NewStringHistogram(buckets int) (*StringHistogram, error) {
	inner, err := NewIntHistogram(buckets, minStringKey, maxStringKey)
	if err != nil {
		return nil, err
	}
	return &StringHistogram{inner: inner}, nil
}

// minStringKey and maxStringKey bound the key range stringToKey maps
// into. maxStringKey stops one short of the true int32 maximum so that
// IntHistogram's max+1 sentinel computation never overflows int32.
const (
	minStringKey = int32(-1 << 31)
	maxStringKey = int32(1<<31 - 2)
)

// AddValue records one occurrence of s.
func (h *StringHistogram) AddValue(s string) {
	h.inner.addValue(stringToKey(s))
}

// EstimateSelectivity returns the fraction of recorded strings for which
// `value op s` holds, in [0, 1].
func (h *StringHistogram) EstimateSelectivity(op BoolOp, s string) float64 {
	return h.inner.estimateSelectivity(op, stringToKey(s))
}
