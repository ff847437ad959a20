package relstore

import (
	"fmt"
	"sync"
)

// heldKey indexes a lock a transaction holds, by the page and the mode
// it was granted in.
type heldKey struct {
	tid TxnId
	pid PageId
}

// BufferPool caches pages read from disk, bounded by a fixed page
// capacity, and is the primary mechanism through which strict two-phase
// locking is enforced: every page access is routed through a per-page
// pageLock, with cycle detection delegated to a shared WaitForGraph.
type BufferPool struct {
	mu       sync.Mutex
	maxPages int

	pages map[PageId]Page
	locks map[PageId]*pageLock
	held  map[heldKey]lockMode

	txnLocks map[TxnId]map[PageId]struct{}
	active   map[TxnId]struct{}

	wfg *WaitForGraph
}

// NewBufferPool creates a BufferPool capped at numPages cached pages.
func NewBufferPool(numPages int) (*BufferPool, error) {
	if numPages <= 0 {
		return nil, fmt.Errorf("buffer pool must hold at least one page")
	}
	return &BufferPool{
		maxPages: numPages,
		pages:    make(map[PageId]Page),
		locks:    make(map[PageId]*pageLock),
		held:     make(map[heldKey]lockMode),
		txnLocks: make(map[TxnId]map[PageId]struct{}),
		active:   make(map[TxnId]struct{}),
		wfg:      NewWaitForGraph(),
	}, nil
}

func (bp *BufferPool) lockFor(pid PageId) *pageLock {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	l, ok := bp.locks[pid]
	if !ok {
		l = newPageLock(pid, bp.wfg)
		bp.locks[pid] = l
	}
	return l
}

// BeginTransaction registers tid as active. Returns an error if tid is
// already running.
func (bp *BufferPool) BeginTransaction(tid TxnId) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if _, ok := bp.active[tid]; ok {
		return fmt.Errorf("transaction %d already running", tid)
	}
	bp.active[tid] = struct{}{}
	bp.txnLocks[tid] = make(map[PageId]struct{})
	return nil
}

func (bp *BufferPool) recordHeld(tid TxnId, pid PageId, mode lockMode) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	// A shared request on a page tid already holds exclusively is a no-op
	// at the lock, so it must not downgrade the recorded mode either.
	k := heldKey{tid, pid}
	if bp.held[k] != lockExclusive {
		bp.held[k] = mode
	}
	if bp.txnLocks[tid] == nil {
		bp.txnLocks[tid] = make(map[PageId]struct{})
	}
	bp.txnLocks[tid][pid] = struct{}{}
}

// GetPage retrieves pid from file on behalf of tid, acquiring the
// corresponding page lock in the requested permission first (this may
// block, and may return TxnAbortedError if granting the lock would close
// a wait-for cycle). If the page is not cached, ensures capacity (evicting
// a clean page if full) and loads it via the access method.
func (bp *BufferPool) GetPage(tid TxnId, file AccessMethod, pageNo int, perm RWPerm) (Page, error) {
	pid := PageId{TableId: file.TableId(), PageNo: pageNo}
	lock := bp.lockFor(pid)

	mode := permToMode(perm)
	var err error
	if mode == lockExclusive {
		err = lock.acquireExclusive(tid)
	} else {
		err = lock.acquireShared(tid)
	}
	if err != nil {
		return nil, err
	}
	bp.recordHeld(tid, pid, mode)

	bp.mu.Lock()
	if pg, ok := bp.pages[pid]; ok {
		bp.mu.Unlock()
		return pg, nil
	}
	if err := bp.ensureCapacityLocked(); err != nil {
		bp.mu.Unlock()
		return nil, err
	}
	bp.mu.Unlock()

	pg, err := file.readPage(pageNo)
	if err != nil {
		return nil, err
	}

	bp.mu.Lock()
	bp.pages[pid] = pg
	bp.mu.Unlock()
	return pg, nil
}

// ensureCapacityLocked evicts a clean page if the cache is full. Callers
// must hold bp.mu.
func (bp *BufferPool) ensureCapacityLocked() error {
	if len(bp.pages) < bp.maxPages {
		return nil
	}
	for pid, pg := range bp.pages {
		if !pg.isDirty() {
			delete(bp.pages, pid)
			return nil
		}
	}
	return DbException{CacheFull, "all cached pages are dirty"}
}

// InsertTuple delegates to file.insertTuple and installs the resulting
// pages in the cache, marked dirty by tid.
func (bp *BufferPool) InsertTuple(tid TxnId, file AccessMethod, t *Tuple) error {
	pages, err := file.insertTuple(tid, t)
	if err != nil {
		return err
	}
	return bp.adoptDirtied(tid, pages)
}

// DeleteTuple delegates to file.deleteTuple and installs the resulting
// pages in the cache, marked dirty by tid.
func (bp *BufferPool) DeleteTuple(tid TxnId, file AccessMethod, t *Tuple) error {
	pages, err := file.deleteTuple(tid, t)
	if err != nil {
		return err
	}
	return bp.adoptDirtied(tid, pages)
}

func (bp *BufferPool) adoptDirtied(tid TxnId, pages []Page) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, pg := range pages {
		pg.setDirty(tid, true)
		hp, ok := pg.(*heapPage)
		if !ok {
			continue
		}
		if _, cached := bp.pages[hp.pid]; cached {
			continue
		}
		// Only a page that is not yet cached needs room made for it.
		if err := bp.ensureCapacityLocked(); err != nil {
			return err
		}
		bp.pages[hp.pid] = pg
	}
	return nil
}

// TransactionComplete ends tid's transaction. On commit, every page tid
// holds exclusively is flushed (FORCE) then marked clean. On abort, every
// page tid holds exclusively is evicted from the cache so the next read
// sees the unmodified on-disk image (NO STEAL makes this sufficient; no
// dirty page of tid was ever written). All of tid's locks are released
// and its bookkeeping dropped. Idempotent.
func (bp *BufferPool) TransactionComplete(tid TxnId, commit bool) error {
	bp.mu.Lock()
	pids, ok := bp.txnLocks[tid]
	if !ok {
		bp.mu.Unlock()
		return nil
	}
	var exclusivePages []PageId
	for pid := range pids {
		if bp.held[heldKey{tid, pid}] == lockExclusive {
			exclusivePages = append(exclusivePages, pid)
		}
	}
	bp.mu.Unlock()

	var firstErr error
	for _, pid := range exclusivePages {
		bp.mu.Lock()
		pg, cached := bp.pages[pid]
		bp.mu.Unlock()
		if !cached {
			continue
		}
		if commit {
			if err := pg.getFile().writePage(pg); err != nil && firstErr == nil {
				firstErr = err
			}
			pg.setDirty(tid, false)
		} else {
			bp.mu.Lock()
			delete(bp.pages, pid)
			bp.mu.Unlock()
		}
	}

	bp.mu.Lock()
	for pid := range pids {
		delete(bp.held, heldKey{tid, pid})
	}
	delete(bp.txnLocks, tid)
	delete(bp.active, tid)
	locks := make([]*pageLock, 0, len(pids))
	for pid := range pids {
		if l, ok := bp.locks[pid]; ok {
			locks = append(locks, l)
		}
	}
	bp.mu.Unlock()

	for _, l := range locks {
		l.release(tid)
	}
	return firstErr
}

// CommitTransaction is a convenience wrapper over TransactionComplete.
func (bp *BufferPool) CommitTransaction(tid TxnId) error {
	return bp.TransactionComplete(tid, true)
}

// AbortTransaction is a convenience wrapper over TransactionComplete.
func (bp *BufferPool) AbortTransaction(tid TxnId) {
	_ = bp.TransactionComplete(tid, false)
}

// FlushAllPages writes every dirty cached page through its access method
// and marks it clean. Exposed for tests and shutdown; callers must ensure
// this is not invoked while a NO STEAL window for an in-flight transaction
// is still open (i.e., outside of normal operation).
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	pages := make([]Page, 0, len(bp.pages))
	for _, pg := range bp.pages {
		pages = append(pages, pg)
	}
	bp.mu.Unlock()

	for _, pg := range pages {
		if pg.isDirty() {
			if err := pg.getFile().writePage(pg); err != nil {
				return err
			}
			pg.setDirty(0, false)
		}
	}
	return nil
}

// FlushPage writes a single cached page through its access method, if
// present and dirty.
func (bp *BufferPool) FlushPage(pid PageId) error {
	bp.mu.Lock()
	pg, ok := bp.pages[pid]
	bp.mu.Unlock()
	if !ok || !pg.isDirty() {
		return nil
	}
	if err := pg.getFile().writePage(pg); err != nil {
		return err
	}
	pg.setDirty(0, false)
	return nil
}
