package relstore

import "sync"

// RWPerm is the permission requested when reading or locking a page.
type RWPerm int

const (
	ReadPerm RWPerm = iota
	WritePerm
)

type lockMode int

const (
	lockFree lockMode = iota
	lockShared
	lockExclusive
)

func permToMode(perm RWPerm) lockMode {
	if perm == WritePerm {
		return lockExclusive
	}
	return lockShared
}

// pageLock is the per-page reader/writer lock BufferPool routes every
// page access through (§4.3). It is created on first request and
// retained for the process lifetime. Transitions preserve: at most one
// exclusive holder; no shared holder while exclusive is held; and an
// upgrade from shared to exclusive is atomic (the holder never drops its
// shared grant before acquiring the exclusive one).
type pageLock struct {
	mu   sync.Mutex
	cond *sync.Cond

	pid PageId
	wfg *WaitForGraph

	excHolder        *TxnId
	sharedHolders    map[TxnId]struct{}
	exclusiveWaiters int // writer preference: pending exclusive requests block new shared grants
}

func newPageLock(pid PageId, wfg *WaitForGraph) *pageLock {
	l := &pageLock{
		pid:           pid,
		wfg:           wfg,
		sharedHolders: make(map[TxnId]struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *pageLock) holdsShared(tid TxnId) bool {
	_, ok := l.sharedHolders[tid]
	return ok
}

func (l *pageLock) holdsExclusive(tid TxnId) bool {
	return l.excHolder != nil && *l.excHolder == tid
}

// acquireShared grants immediately if free or already shared (and no
// exclusive waiter is queued ahead, per writer preference), is a no-op if
// tid already holds shared or exclusive, and otherwise waits -- checking
// for deadlock before every wait -- until granted or aborted.
func (l *pageLock) acquireShared(tid TxnId) error {
	for {
		l.wfg.mu.Lock()
		l.mu.Lock()

		if l.holdsExclusive(tid) || l.holdsShared(tid) {
			l.mu.Unlock()
			l.wfg.mu.Unlock()
			return nil
		}

		if l.excHolder == nil && l.exclusiveWaiters == 0 {
			l.sharedHolders[tid] = struct{}{}
			l.wfg.recordHolderLocked(l, tid, lockShared)
			l.wfg.clearWaitLocked(tid)
			l.mu.Unlock()
			l.wfg.mu.Unlock()
			return nil
		}

		if l.wfg.wouldDeadlockLocked(tid, l, lockShared) {
			l.mu.Unlock()
			l.wfg.mu.Unlock()
			return TxnAbortedError{Tid: tid}
		}
		l.wfg.recordWaitLocked(tid, l, lockShared)
		l.wfg.mu.Unlock()
		// l.mu stays held continuously into Wait, so no wakeup can be
		// missed between recording the edge and sleeping on it.
		l.cond.Wait()
		l.mu.Unlock()
	}
}

// acquireExclusive grants immediately if free, or if tid is the sole
// shared holder (the atomic upgrade path, sound only from sharedCount ==
// 1 per §9), is a no-op if tid already holds exclusive, and otherwise
// waits as a writer, checking for deadlock before every wait.
func (l *pageLock) acquireExclusive(tid TxnId) error {
	registeredWaiter := false
	defer func() {
		if registeredWaiter {
			l.mu.Lock()
			l.exclusiveWaiters--
			l.mu.Unlock()
		}
	}()

	for {
		l.wfg.mu.Lock()
		l.mu.Lock()

		if l.holdsExclusive(tid) {
			l.mu.Unlock()
			l.wfg.mu.Unlock()
			return nil
		}

		soleSharer := len(l.sharedHolders) == 1 && l.holdsShared(tid)
		if l.excHolder == nil && (len(l.sharedHolders) == 0 || soleSharer) {
			delete(l.sharedHolders, tid)
			t := tid
			l.excHolder = &t
			l.wfg.removeHolderLocked(l, tid)
			l.wfg.recordHolderLocked(l, tid, lockExclusive)
			l.wfg.clearWaitLocked(tid)
			l.mu.Unlock()
			l.wfg.mu.Unlock()
			return nil
		}

		if l.wfg.wouldDeadlockLocked(tid, l, lockExclusive) {
			l.mu.Unlock()
			l.wfg.mu.Unlock()
			return TxnAbortedError{Tid: tid}
		}
		if !registeredWaiter {
			l.exclusiveWaiters++
			registeredWaiter = true
		}
		l.wfg.recordWaitLocked(tid, l, lockExclusive)
		l.wfg.mu.Unlock()
		l.cond.Wait()
		l.mu.Unlock()
	}
}

// release removes tid from holders and wakes every waiter on the lock's
// single condition; each re-checks its own grant predicate. Writer
// preference comes from that predicate: a shared request is not granted
// while an exclusive request is queued. Fairness between multiple
// exclusive waiters is left to however the woken goroutines are scheduled.
func (l *pageLock) release(tid TxnId) {
	l.wfg.mu.Lock()
	l.mu.Lock()
	if l.excHolder != nil && *l.excHolder == tid {
		l.excHolder = nil
	}
	delete(l.sharedHolders, tid)
	l.wfg.removeHolderLocked(l, tid)
	l.mu.Unlock()
	l.wfg.mu.Unlock()

	l.mu.Lock()
	l.cond.Broadcast()
	l.mu.Unlock()
}
