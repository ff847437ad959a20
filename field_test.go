package relstore

import (
	"bytes"
	"testing"
)

func TestIntFieldWriteReadRoundTrip(t *testing.T) {
	f := IntField{Value: -12345}
	buf := new(bytes.Buffer)
	if err := f.writeTo(buf); err != nil {
		t.Fatalf("writeTo: %v", err)
	}
	if buf.Len() != f.encodedLen() {
		t.Fatalf("encoded %d bytes, want %d", buf.Len(), f.encodedLen())
	}
	got, err := readIntField(buf)
	if err != nil {
		t.Fatalf("readIntField: %v", err)
	}
	if got != f {
		t.Fatalf("round trip mismatch: got %v, want %v", got, f)
	}
}

func TestStringFieldWriteReadRoundTrip(t *testing.T) {
	f := NewStringField("hello world")
	buf := new(bytes.Buffer)
	if err := f.writeTo(buf); err != nil {
		t.Fatalf("writeTo: %v", err)
	}
	if buf.Len() != f.encodedLen() {
		t.Fatalf("encoded %d bytes, want %d", buf.Len(), f.encodedLen())
	}
	got, err := readStringField(buf)
	if err != nil {
		t.Fatalf("readStringField: %v", err)
	}
	if got.Value != f.Value {
		t.Fatalf("round trip mismatch: got %q, want %q", got.Value, f.Value)
	}
}

func TestStringFieldTruncatesOversizedInput(t *testing.T) {
	long := make([]byte, StringFieldLen+50)
	for i := range long {
		long[i] = 'a'
	}
	f := NewStringField(string(long))
	if len(f.Value) != StringFieldLen {
		t.Fatalf("expected truncation to %d bytes, got %d", StringFieldLen, len(f.Value))
	}
}

func TestTupleDescEqualsIgnoresNames(t *testing.T) {
	a := NewTupleDesc([]FieldKind{IntKind, StringKind}, []string{"id", "name"})
	b := NewTupleDesc([]FieldKind{IntKind, StringKind}, []string{"other", "different"})
	c := NewTupleDesc([]FieldKind{StringKind, IntKind}, []string{"id", "name"})
	if !a.Equals(b) {
		t.Fatalf("expected descriptors with matching kinds but different names to be equal")
	}
	if a.Equals(c) {
		t.Fatalf("expected descriptors with different kind order to differ")
	}
}

func TestNewTupleRejectsSchemaMismatch(t *testing.T) {
	desc := NewTupleDesc([]FieldKind{IntKind}, []string{"x"})
	if _, err := NewTuple(desc, []Field{NewStringField("oops")}); err == nil {
		t.Fatalf("expected a schema mismatch error")
	}
	if _, err := NewTuple(desc, []Field{IntField{Value: 1}, IntField{Value: 2}}); err == nil {
		t.Fatalf("expected an arity mismatch error")
	}
}

func TestTupleEquals(t *testing.T) {
	desc := testDesc()
	a, _ := NewTuple(desc, []Field{IntField{Value: 1}, NewStringField("x")})
	b, _ := NewTuple(desc, []Field{IntField{Value: 1}, NewStringField("x")})
	c, _ := NewTuple(desc, []Field{IntField{Value: 2}, NewStringField("x")})
	if !a.Equals(b) {
		t.Fatalf("expected equal tuples to compare equal")
	}
	if a.Equals(c) {
		t.Fatalf("expected differing tuples to compare unequal")
	}
}
