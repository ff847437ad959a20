package relstore

import (
	"bytes"
	"fmt"
	"sync"
)

// heapPage is a slotted page: a little-endian bitmap header (one bit per
// slot, 1 = occupied) followed by N fixed-width tuple slots. Unused slots
// are zeroed. See §6 for the exact on-disk layout this codec must
// reproduce byte-for-byte on a decode(encode(p)) round trip.
type heapPage struct {
	sync.Mutex

	pid      PageId
	desc     *TupleDesc
	numSlots int
	header   []byte // headerBytes long; bit i%8 of byte i/8 set iff slot i occupied
	slots    [][]byte
	file     *HeapFile
	dirtyBy  *TxnId
}

// numSlotsFor computes N = floor((PageSize*8) / (tupleBytes*8 + 1)).
func numSlotsFor(desc *TupleDesc) int {
	tupleBits := desc.bytesPerTuple() * 8
	return (PageSize * 8) / (tupleBits + 1)
}

func headerBytesFor(numSlots int) int {
	return (numSlots + 7) / 8
}

// newHeapPage constructs an empty page for pid of file f.
func newHeapPage(desc *TupleDesc, pid PageId, f *HeapFile) *heapPage {
	n := numSlotsFor(desc)
	return &heapPage{
		pid:      pid,
		desc:     desc,
		numSlots: n,
		header:   make([]byte, headerBytesFor(n)),
		slots:    make([][]byte, n),
		file:     f,
	}
}

// decodeHeapPage builds a heapPage from an exact PageSize byte image.
func decodeHeapPage(desc *TupleDesc, pid PageId, f *HeapFile, data []byte) (*heapPage, error) {
	if len(data) != PageSize {
		return nil, DbException{IOError, fmt.Sprintf("expected %d bytes, got %d", PageSize, len(data))}
	}
	p := newHeapPage(desc, pid, f)
	headerLen := len(p.header)
	copy(p.header, data[:headerLen])

	tupWidth := desc.bytesPerTuple()
	offset := headerLen
	for i := 0; i < p.numSlots; i++ {
		if p.isSlotUsed(i) {
			slotBytes := make([]byte, tupWidth)
			copy(slotBytes, data[offset:offset+tupWidth])
			p.slots[i] = slotBytes
		}
		offset += tupWidth
	}
	return p, nil
}

// getPageData serializes the page to an exact PageSize byte image.
func (p *heapPage) getPageData() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(p.header)
	tupWidth := p.desc.bytesPerTuple()
	for i := 0; i < p.numSlots; i++ {
		if p.slots[i] != nil {
			buf.Write(p.slots[i])
		} else {
			buf.Write(make([]byte, tupWidth))
		}
	}
	if buf.Len() > PageSize {
		return nil, DbException{IOError, "encoded page exceeds PageSize"}
	}
	buf.Write(make([]byte, PageSize-buf.Len()))
	return buf.Bytes(), nil
}

// getNumEmptySlots counts the cleared header bits over the first
// numSlots slots.
func (p *heapPage) getNumEmptySlots() int {
	count := 0
	for i := 0; i < p.numSlots; i++ {
		if !p.isSlotUsed(i) {
			count++
		}
	}
	return count
}

func (p *heapPage) isSlotUsed(i int) bool {
	return p.header[i/8]&(1<<uint(i%8)) != 0
}

func (p *heapPage) markSlot(i int, used bool) {
	if used {
		p.header[i/8] |= 1 << uint(i%8)
	} else {
		p.header[i/8] &^= 1 << uint(i%8)
	}
}

// insertTuple finds the lowest unoccupied slot, writes t's encoded field
// bytes into it, sets the slot bit, and stamps t's RecordId.
func (p *heapPage) insertTuple(t *Tuple) (RecordId, error) {
	if !t.Desc.Equals(p.desc) {
		return RecordId{}, DbException{SchemaMismatch, "tuple descriptor does not match page descriptor"}
	}
	for i := 0; i < p.numSlots; i++ {
		if !p.isSlotUsed(i) {
			buf := new(bytes.Buffer)
			if err := t.writeTo(buf); err != nil {
				return RecordId{}, err
			}
			p.slots[i] = buf.Bytes()
			p.markSlot(i, true)
			rid := RecordId{Pid: p.pid, SlotNo: i}
			t.Rid = &rid
			return rid, nil
		}
	}
	return RecordId{}, DbException{NoSpace, "page has no free slots"}
}

// deleteTuple clears the slot named by rid.
func (p *heapPage) deleteTuple(rid RecordId) error {
	if rid.Pid != p.pid {
		return DbException{NotFound, "record id does not belong to this page"}
	}
	if rid.SlotNo < 0 || rid.SlotNo >= p.numSlots || !p.isSlotUsed(rid.SlotNo) {
		return DbException{NotFound, "slot is not occupied"}
	}
	p.slots[rid.SlotNo] = nil
	p.markSlot(rid.SlotNo, false)
	return nil
}

// iterator returns a finite sequence of occupied tuples in ascending slot
// order; restartable by a fresh call.
func (p *heapPage) iterator() func() (*Tuple, error) {
	i := 0
	return func() (*Tuple, error) {
		for i < p.numSlots {
			slot := i
			i++
			if !p.isSlotUsed(slot) {
				continue
			}
			buf := bytes.NewBuffer(p.slots[slot])
			t, err := readTupleFrom(buf, p.desc)
			if err != nil {
				return nil, fmt.Errorf("decode tuple at slot %d: %w", slot, err)
			}
			rid := RecordId{Pid: p.pid, SlotNo: slot}
			t.Rid = &rid
			return t, nil
		}
		return nil, nil
	}
}

func (p *heapPage) isDirty() bool {
	return p.dirtyBy != nil
}

func (p *heapPage) setDirty(tid TxnId, dirty bool) {
	if dirty {
		t := tid
		p.dirtyBy = &t
	} else {
		p.dirtyBy = nil
	}
}

func (p *heapPage) dirtiedBy() (TxnId, bool) {
	if p.dirtyBy == nil {
		return 0, false
	}
	return *p.dirtyBy, true
}

func (p *heapPage) getFile() AccessMethod {
	return p.file
}

func (p *heapPage) PageNo() int {
	return p.pid.PageNo
}
