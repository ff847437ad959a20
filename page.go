package relstore

// Page is the unit cached by the BufferPool. HeapPage is the only
// implementation the core ships, but the interface keeps the BufferPool
// independent of the access method's on-disk representation.
type Page interface {
	isDirty() bool
	setDirty(tid TxnId, dirty bool)
	dirtiedBy() (TxnId, bool)
	getFile() AccessMethod
	// getPageData produces an exact PageSize byte image suitable for a
	// writePage/readPage round trip.
	getPageData() ([]byte, error)
}

// AccessMethod is the contract the BufferPool requires of a table's
// storage layer (§6). HeapFile is the only implementation in this core;
// a catalog maps tableId -> AccessMethod for callers that need to resolve
// one from an id.
type AccessMethod interface {
	TableId() int
	Descriptor() *TupleDesc
	NumPages() int
	readPage(pageNo int) (Page, error)
	writePage(p Page) error
	insertTuple(tid TxnId, t *Tuple) ([]Page, error)
	deleteTuple(tid TxnId, t *Tuple) ([]Page, error)
	// Iterator returns a lazy, finite, restartable sequence of tuples
	// scanned under tid.
	Iterator(tid TxnId) (func() (*Tuple, error), error)
}

// Catalog maps a tableId to the AccessMethod responsible for it. The core
// requires this as an injected dependency (§9 Design Notes): it never
// reaches for a process-wide singleton internally.
type Catalog interface {
	AccessMethodFor(tableId int) (AccessMethod, bool)
}
