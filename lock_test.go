package relstore

import (
	"sync"
	"testing"
	"time"
)

// TestLockSharedReentrantAndConcurrent covers the ordering guarantees of
// §4.3: multiple transactions may hold a page shared at once, and a
// transaction's own re-request of a lock it already holds is a no-op.
func TestLockSharedReentrantAndConcurrent(t *testing.T) {
	wfg := NewWaitForGraph()
	lock := newPageLock(PageId{TableId: 1, PageNo: 0}, wfg)

	tid1, tid2 := NewTxnId(), NewTxnId()
	if err := lock.acquireShared(tid1); err != nil {
		t.Fatalf("tid1 acquireShared: %v", err)
	}
	if err := lock.acquireShared(tid2); err != nil {
		t.Fatalf("tid2 acquireShared: %v", err)
	}
	if err := lock.acquireShared(tid1); err != nil {
		t.Fatalf("tid1 re-acquireShared (reentrant) should be a no-op: %v", err)
	}
	if len(lock.sharedHolders) != 2 {
		t.Fatalf("expected 2 shared holders, got %d", len(lock.sharedHolders))
	}
}

// TestLockAtomicUpgradeFromSoleSharer covers §9's Open Question
// decision: a transaction that is the sole shared holder may upgrade to
// exclusive without releasing its grant first.
func TestLockAtomicUpgradeFromSoleSharer(t *testing.T) {
	wfg := NewWaitForGraph()
	lock := newPageLock(PageId{TableId: 1, PageNo: 0}, wfg)
	tid := NewTxnId()

	if err := lock.acquireShared(tid); err != nil {
		t.Fatalf("acquireShared: %v", err)
	}
	if err := lock.acquireExclusive(tid); err != nil {
		t.Fatalf("acquireExclusive (upgrade): %v", err)
	}
	if !lock.holdsExclusive(tid) {
		t.Fatalf("expected tid to hold exclusive after upgrade")
	}
	if lock.holdsShared(tid) {
		t.Fatalf("expected the shared grant to be cleared after upgrade")
	}
}

// TestWaitForGraphDetectsDeadlock covers property 8 and scenario S5: two
// transactions each hold one page shared and want the other's page
// exclusively, forming a cycle. Exactly one must be aborted; the other
// must complete once the aborted transaction releases its locks.
func TestWaitForGraphDetectsDeadlock(t *testing.T) {
	wfg := NewWaitForGraph()
	lockA := newPageLock(PageId{TableId: 1, PageNo: 0}, wfg)
	lockB := newPageLock(PageId{TableId: 1, PageNo: 1}, wfg)

	tid1, tid2 := NewTxnId(), NewTxnId()
	if err := lockA.acquireShared(tid1); err != nil {
		t.Fatalf("tid1 acquireShared(A): %v", err)
	}
	if err := lockB.acquireShared(tid2); err != nil {
		t.Fatalf("tid2 acquireShared(B): %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan struct {
		tid TxnId
		err error
	}, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		err := lockB.acquireExclusive(tid1)
		results <- struct {
			tid TxnId
			err error
		}{tid1, err}
	}()
	go func() {
		defer wg.Done()
		err := lockA.acquireExclusive(tid2)
		results <- struct {
			tid TxnId
			err error
		}{tid2, err}
	}()

	first := <-results
	if !IsTxnAborted(first.err) {
		t.Fatalf("expected the first resolved transaction to be the deadlock victim, got err=%v", first.err)
	}

	// The victim releases its locks, which must unblock the survivor.
	lockA.release(first.tid)
	lockB.release(first.tid)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("survivor never unblocked after the victim released its locks")
	}

	second := <-results
	if second.err != nil {
		t.Fatalf("expected the survivor to succeed, got %v", second.err)
	}
}

// TestLockWriterPreference covers the writer-preference ordering: once
// an exclusive request is queued, a later shared request must not be
// granted ahead of it.
func TestLockWriterPreference(t *testing.T) {
	wfg := NewWaitForGraph()
	lock := newPageLock(PageId{TableId: 1, PageNo: 0}, wfg)

	reader, writer, lateReader := NewTxnId(), NewTxnId(), NewTxnId()
	if err := lock.acquireShared(reader); err != nil {
		t.Fatalf("reader acquireShared: %v", err)
	}

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- lock.acquireExclusive(writer)
	}()
	time.Sleep(50 * time.Millisecond) // let the writer queue

	lateReaderDone := make(chan error, 1)
	go func() {
		lateReaderDone <- lock.acquireShared(lateReader)
	}()
	time.Sleep(50 * time.Millisecond)

	select {
	case err := <-lateReaderDone:
		t.Fatalf("late reader should have queued behind the writer, got err=%v", err)
	default:
	}

	lock.release(reader)

	select {
	case err := <-writerDone:
		if err != nil {
			t.Fatalf("writer acquireExclusive: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("writer never granted after the reader released")
	}

	lock.release(writer)
	select {
	case err := <-lateReaderDone:
		if err != nil {
			t.Fatalf("late reader acquireShared: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("late reader never granted after the writer released")
	}
}
