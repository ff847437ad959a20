package relstore

import "sync"

// waitEdge records that a transaction is blocked wanting lock in mode.
type waitEdge struct {
	lock *pageLock
	mode lockMode
}

// WaitForGraph tracks, for every blocked transaction, the lock and mode it
// is waiting on, and for every lock, the set of (TxnId, mode) holders.
// Both maps are protected by a single mutex (§4.4): the check-then-insert
// of a new wait edge must be one critical section, or two transactions
// racing to close the same cycle could both slip through undetected.
type WaitForGraph struct {
	mu      sync.Mutex
	waiting map[TxnId]waitEdge
	holders map[*pageLock]map[TxnId]lockMode
}

// NewWaitForGraph constructs an empty graph.
func NewWaitForGraph() *WaitForGraph {
	return &WaitForGraph{
		waiting: make(map[TxnId]waitEdge),
		holders: make(map[*pageLock]map[TxnId]lockMode),
	}
}

// conflicts reports whether a holder granted in heldMode blocks a new
// request in wantMode. Any pair containing exclusive conflicts; two
// shared requests never do.
func conflicts(wantMode, heldMode lockMode) bool {
	return wantMode == lockExclusive || heldMode == lockExclusive
}

// wouldDeadlockLocked performs the DFS described in §4.4, starting from
// the lock/mode tid is about to wait on. Callers must hold g.mu.
func (g *WaitForGraph) wouldDeadlockLocked(tid TxnId, lock *pageLock, mode lockMode) bool {
	visited := make(map[TxnId]bool)
	var dfs func(curLock *pageLock, curMode lockMode, top bool) bool
	dfs = func(curLock *pageLock, curMode lockMode, top bool) bool {
		for h, hmode := range g.holders[curLock] {
			if !conflicts(curMode, hmode) {
				continue
			}
			if h == tid {
				// tid's own grant on the lock it is requesting (the upgrade
				// case) is not a wait edge; reaching tid further along the
				// search closes a cycle.
				if top {
					continue
				}
				return true
			}
			if visited[h] {
				continue
			}
			visited[h] = true
			if edge, ok := g.waiting[h]; ok {
				if dfs(edge.lock, edge.mode, false) {
					return true
				}
			}
		}
		return false
	}
	return dfs(lock, mode, true)
}

// recordWaitLocked inserts tid's wait edge. Callers must hold g.mu and
// must already have confirmed (under the same critical section) that
// this edge does not close a cycle.
func (g *WaitForGraph) recordWaitLocked(tid TxnId, lock *pageLock, mode lockMode) {
	g.waiting[tid] = waitEdge{lock: lock, mode: mode}
}

// clearWaitLocked removes tid's wait edge, if any (called once a grant
// succeeds).
func (g *WaitForGraph) clearWaitLocked(tid TxnId) {
	delete(g.waiting, tid)
}

// recordHolderLocked adds tid as a holder of lock in mode.
func (g *WaitForGraph) recordHolderLocked(lock *pageLock, tid TxnId, mode lockMode) {
	set, ok := g.holders[lock]
	if !ok {
		set = make(map[TxnId]lockMode)
		g.holders[lock] = set
	}
	set[tid] = mode
}

// removeHolderLocked drops tid from lock's holder set.
func (g *WaitForGraph) removeHolderLocked(lock *pageLock, tid TxnId) {
	set, ok := g.holders[lock]
	if !ok {
		return
	}
	delete(set, tid)
	if len(set) == 0 {
		delete(g.holders, lock)
	}
}
