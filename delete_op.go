package relstore

// DeleteOp reads its child to exhaustion on the first call of its
// returned iterator, deleting each tuple via the buffer pool, then emits
// a single one-column "count" tuple and reports end-of-stream thereafter
// (§4.7).
type DeleteOp struct {
	deleteFile AccessMethod
	child      Operator
	bp         *BufferPool
}

// NewDeleteOp constructs a delete operator that removes every tuple
// produced by child from deleteFile.
func NewDeleteOp(bp *BufferPool, deleteFile AccessMethod, child Operator) *DeleteOp {
	return &DeleteOp{deleteFile: deleteFile, child: child, bp: bp}
}

// Descriptor is a one-column descriptor with an integer field named
// "count".
func (d *DeleteOp) Descriptor() *TupleDesc {
	return NewTupleDesc([]FieldKind{IntKind}, []string{"count"})
}

// Iterator deletes every tuple from the child iterator via
// BufferPool.DeleteTuple, re-raising TxnAbortedError unchanged, then
// yields a single (count) tuple.
func (d *DeleteOp) Iterator(tid TxnId) (func() (*Tuple, error), error) {
	done := false
	return func() (*Tuple, error) {
		if done {
			return nil, nil
		}
		done = true

		childIter, err := d.child.Iterator(tid)
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
			if err := d.bp.DeleteTuple(tid, d.deleteFile, t); err != nil {
				return nil, err
			}
			count++
		}

		return NewTuple(d.Descriptor(), []Field{IntField{Value: int32(count)}})
	}, nil
}
