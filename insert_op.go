package relstore

// InsertOp mirrors DeleteOp for inserts: it drains its child on the first
// call, inserting each tuple into insertFile via the buffer pool, then
// emits a single one-column "count" tuple (§4.7).
type InsertOp struct {
	insertFile AccessMethod
	child      Operator
	bp         *BufferPool
}

// NewInsertOp constructs an insert operator that adds every tuple
// produced by child into insertFile.
func NewInsertOp(bp *BufferPool, insertFile AccessMethod, child Operator) *InsertOp {
	return &InsertOp{insertFile: insertFile, child: child, bp: bp}
}

// Descriptor is a one-column descriptor with an integer field named
// "count".
func (i *InsertOp) Descriptor() *TupleDesc {
	return NewTupleDesc([]FieldKind{IntKind}, []string{"count"})
}

// Iterator inserts every tuple from the child iterator via
// BufferPool.InsertTuple, re-raising TxnAbortedError unchanged, then
// yields a single (count) tuple.
func (i *InsertOp) Iterator(tid TxnId) (func() (*Tuple, error), error) {
	done := false
	return func() (*Tuple, error) {
		if done {
			return nil, nil
		}
		done = true

		childIter, err := i.child.Iterator(tid)
		if err != nil {
			return nil, err
		}

		count := 0
		for {
			t, err := childIter()
			if err != nil {
				return nil, err
			}
			if t == nil {
				break
			}
			if err := i.bp.InsertTuple(tid, i.insertFile, t); err != nil {
				return nil, err
			}
			count++
		}

		return NewTuple(i.Descriptor(), []Field{IntField{Value: int32(count)}})
	}, nil
}
