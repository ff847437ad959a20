package relstore

import (
	"testing"

	"github.com/d4l3k/messagediff"
)

func testDesc() *TupleDesc {
	return NewTupleDesc([]FieldKind{IntKind, StringKind}, []string{"id", "name"})
}

func TestHeapPageCodecRoundTrip(t *testing.T) {
	desc := testDesc()
	pid := PageId{TableId: 1, PageNo: 0}
	p := newHeapPage(desc, pid, nil)

	for i := 0; i < 5; i++ {
		tup, err := NewTuple(desc, []Field{IntField{Value: int32(i)}, NewStringField("row")})
		if err != nil {
			t.Fatalf("NewTuple: %v", err)
		}
		if _, err := p.insertTuple(tup); err != nil {
			t.Fatalf("insertTuple: %v", err)
		}
	}

	data, err := p.getPageData()
	if err != nil {
		t.Fatalf("getPageData: %v", err)
	}
	if len(data) != PageSize {
		t.Fatalf("expected %d bytes, got %d", PageSize, len(data))
	}

	decoded, err := decodeHeapPage(desc, pid, nil, data)
	if err != nil {
		t.Fatalf("decodeHeapPage: %v", err)
	}

	iter1 := p.iterator()
	iter2 := decoded.iterator()
	for {
		t1, err := iter1()
		if err != nil {
			t.Fatalf("iter1: %v", err)
		}
		t2, err := iter2()
		if err != nil {
			t.Fatalf("iter2: %v", err)
		}
		if (t1 == nil) != (t2 == nil) {
			t.Fatalf("iterator length mismatch: %v vs %v", t1, t2)
		}
		if t1 == nil {
			break
		}
		if !t1.Equals(t2) {
			diff, equal := messagediff.PrettyDiff(t1, t2)
			if !equal {
				t.Fatalf("round-trip mismatch: %s", diff)
			}
		}
	}
}

func TestHeapPageBitmapHeaderSize(t *testing.T) {
	desc := NewTupleDesc([]FieldKind{IntKind}, []string{"x"})
	n := numSlotsFor(desc)
	if n <= 0 {
		t.Fatalf("expected positive slot count, got %d", n)
	}
	headerBytes := headerBytesFor(n)
	if headerBytes != (n+7)/8 {
		t.Fatalf("header size mismatch: got %d, want %d", headerBytes, (n+7)/8)
	}
}

func TestHeapPageInsertFillsThenErrors(t *testing.T) {
	desc := NewTupleDesc([]FieldKind{IntKind}, []string{"x"})
	pid := PageId{TableId: 1, PageNo: 0}
	p := newHeapPage(desc, pid, nil)

	n := p.numSlots
	for i := 0; i < n; i++ {
		tup, _ := NewTuple(desc, []Field{IntField{Value: int32(i)}})
		if _, err := p.insertTuple(tup); err != nil {
			t.Fatalf("insertTuple %d: %v", i, err)
		}
	}
	if p.getNumEmptySlots() != 0 {
		t.Fatalf("expected 0 empty slots, got %d", p.getNumEmptySlots())
	}

	extra, _ := NewTuple(desc, []Field{IntField{Value: 999}})
	if _, err := p.insertTuple(extra); err == nil {
		t.Fatalf("expected NoSpace error inserting into a full page")
	}
}

func TestHeapPageDeleteFreesSlot(t *testing.T) {
	desc := testDesc()
	pid := PageId{TableId: 1, PageNo: 0}
	p := newHeapPage(desc, pid, nil)

	tup, _ := NewTuple(desc, []Field{IntField{Value: 7}, NewStringField("a")})
	rid, err := p.insertTuple(tup)
	if err != nil {
		t.Fatalf("insertTuple: %v", err)
	}
	before := p.getNumEmptySlots()
	if err := p.deleteTuple(rid); err != nil {
		t.Fatalf("deleteTuple: %v", err)
	}
	if p.getNumEmptySlots() != before+1 {
		t.Fatalf("expected an empty slot to be freed")
	}
	if err := p.deleteTuple(rid); err == nil {
		t.Fatalf("expected NotFound deleting an already-empty slot")
	}
}
