package relstore

// Operator is a tuple-at-a-time producer over a child iterator. The core
// implements only Insert, Delete, and the two Aggregate operators;
// Project/Filter/OrderBy/join mechanics are external collaborators (§1).
type Operator interface {
	Descriptor() *TupleDesc
	Iterator(tid TxnId) (func() (*Tuple, error), error)
}
