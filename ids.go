package relstore

import (
	"hash/fnv"
	"path/filepath"
	"sync/atomic"
)

// PageId is the stable, value-equatable identity of a page within a file.
type PageId struct {
	TableId int
	PageNo  int
}

// TxnId is an opaque, monotonically increasing transaction identifier
// created by an external Transaction facade. It carries no mutable state
// inside the core.
type TxnId int64

var nextTxnId int64

// NewTxnId mints a fresh, process-unique TxnId.
func NewTxnId() TxnId {
	return TxnId(atomic.AddInt64(&nextTxnId, 1))
}

// TableIdForPath derives a deterministic tableId from a heap file's
// absolute path, stable across process runs for the same file (per §6).
func TableIdForPath(path string) int {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(abs))
	return int(h.Sum32())
}
