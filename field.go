package relstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FieldKind is the type of a field in a tuple.
type FieldKind int

const (
	IntKind FieldKind = iota
	StringKind
)

func (k FieldKind) String() string {
	switch k {
	case IntKind:
		return "INT"
	case StringKind:
		return "STRING"
	}
	return "UNKNOWN"
}

// StringFieldLen is the fixed, zero-padded width of a STRING field's
// content, per §6's on-disk page format.
const StringFieldLen = 128

// BoolOp is a comparator used by predicates, filters, and histogram
// selectivity estimation.
type BoolOp int

const (
	OpEq BoolOp = iota
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op BoolOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return "?"
}

// Field is the sum-type value container the core consumes; IntField and
// StringField are its two variants.
type Field interface {
	Kind() FieldKind
	// EvalPred compares the receiver to other using op.
	EvalPred(other Field, op BoolOp) (bool, error)
	// encodedLen returns the fixed on-disk width of the field's kind.
	encodedLen() int
	writeTo(b *bytes.Buffer) error
}

// IntField is a signed 32-bit integer field value.
type IntField struct {
	Value int32
}

func (f IntField) Kind() FieldKind { return IntKind }

func (f IntField) EvalPred(other Field, op BoolOp) (bool, error) {
	o, ok := other.(IntField)
	if !ok {
		return false, fmt.Errorf("cannot compare IntField to %T", other)
	}
	switch op {
	case OpEq:
		return f.Value == o.Value, nil
	case OpNeq:
		return f.Value != o.Value, nil
	case OpLt:
		return f.Value < o.Value, nil
	case OpLe:
		return f.Value <= o.Value, nil
	case OpGt:
		return f.Value > o.Value, nil
	case OpGe:
		return f.Value >= o.Value, nil
	}
	return false, fmt.Errorf("unknown BoolOp %v", op)
}

func (f IntField) encodedLen() int { return 4 }

func (f IntField) writeTo(b *bytes.Buffer) error {
	return binary.Write(b, binary.BigEndian, f.Value)
}

func readIntField(b *bytes.Buffer) (IntField, error) {
	var v int32
	if err := binary.Read(b, binary.BigEndian, &v); err != nil {
		return IntField{}, fmt.Errorf("read int field: %w", err)
	}
	return IntField{Value: v}, nil
}

// StringField is a variable-content, fixed-width (StringFieldLen) string
// field value. Values longer than StringFieldLen are truncated at
// construction by NewStringField.
type StringField struct {
	Value string
}

// NewStringField truncates s to StringFieldLen bytes if needed.
func NewStringField(s string) StringField {
	if len(s) > StringFieldLen {
		s = s[:StringFieldLen]
	}
	return StringField{Value: s}
}

func (f StringField) Kind() FieldKind { return StringKind }

func (f StringField) EvalPred(other Field, op BoolOp) (bool, error) {
	o, ok := other.(StringField)
	if !ok {
		return false, fmt.Errorf("cannot compare StringField to %T", other)
	}
	switch op {
	case OpEq:
		return f.Value == o.Value, nil
	case OpNeq:
		return f.Value != o.Value, nil
	case OpLt:
		return f.Value < o.Value, nil
	case OpLe:
		return f.Value <= o.Value, nil
	case OpGt:
		return f.Value > o.Value, nil
	case OpGe:
		return f.Value >= o.Value, nil
	}
	return false, fmt.Errorf("unknown BoolOp %v", op)
}

// encodedLen is the 4-byte big-endian length prefix plus the padded content.
func (f StringField) encodedLen() int { return 4 + StringFieldLen }

func (f StringField) writeTo(b *bytes.Buffer) error {
	if err := binary.Write(b, binary.BigEndian, int32(len(f.Value))); err != nil {
		return err
	}
	padded := make([]byte, StringFieldLen)
	copy(padded, f.Value)
	_, err := b.Write(padded)
	return err
}

func readStringField(b *bytes.Buffer) (StringField, error) {
	var length int32
	if err := binary.Read(b, binary.BigEndian, &length); err != nil {
		return StringField{}, fmt.Errorf("read string field length: %w", err)
	}
	content := make([]byte, StringFieldLen)
	if _, err := b.Read(content); err != nil {
		return StringField{}, fmt.Errorf("read string field content: %w", err)
	}
	if length < 0 || int(length) > StringFieldLen {
		return StringField{}, fmt.Errorf("corrupt string field length %d", length)
	}
	return StringField{Value: string(content[:length])}, nil
}

// FieldDesc names and types a single TupleDesc column.
type FieldDesc struct {
	Kind FieldKind
	Name string
}

// TupleDesc is the immutable schema of a Tuple: an ordered list of typed,
// optionally named fields.
type TupleDesc struct {
	Fields []FieldDesc
}

// NewTupleDesc builds a TupleDesc from a parallel list of kinds and names.
// A name may be "" if unavailable.
func NewTupleDesc(kinds []FieldKind, names []string) *TupleDesc {
	fields := make([]FieldDesc, len(kinds))
	for i, k := range kinds {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		fields[i] = FieldDesc{Kind: k, Name: name}
	}
	return &TupleDesc{Fields: fields}
}

// Equals reports whether two descriptors have identical arity and field
// kinds (names are not compared, matching the arity/type-mismatch contract
// used by HeapPage.insertTuple in §4.1).
func (d *TupleDesc) Equals(other *TupleDesc) bool {
	if len(d.Fields) != len(other.Fields) {
		return false
	}
	for i := range d.Fields {
		if d.Fields[i].Kind != other.Fields[i].Kind {
			return false
		}
	}
	return true
}

// bytesPerTuple returns the fixed on-disk width of a tuple with this
// descriptor, used to compute the heap page's slot count.
func (d *TupleDesc) bytesPerTuple() int {
	width := 0
	for _, f := range d.Fields {
		switch f.Kind {
		case IntKind:
			width += 4
		case StringKind:
			width += 4 + StringFieldLen
		}
	}
	return width
}

// RecordId identifies a tuple's slot within a specific page.
type RecordId struct {
	Pid    PageId
	SlotNo int
}

// Tuple owns a TupleDesc reference, an arity-matching slice of Field
// values, and an optional RecordId set once the tuple has been placed on a
// page.
type Tuple struct {
	Desc   *TupleDesc
	Fields []Field
	Rid    *RecordId
}

// NewTuple constructs a Tuple, validating that fields matches desc's
// arity and per-field kinds.
func NewTuple(desc *TupleDesc, fields []Field) (*Tuple, error) {
	if len(fields) != len(desc.Fields) {
		return nil, DbException{SchemaMismatch, fmt.Sprintf("expected %d fields, got %d", len(desc.Fields), len(fields))}
	}
	for i, f := range fields {
		if f.Kind() != desc.Fields[i].Kind {
			return nil, DbException{SchemaMismatch, fmt.Sprintf("field %d: expected %v, got %v", i, desc.Fields[i].Kind, f.Kind())}
		}
	}
	return &Tuple{Desc: desc, Fields: fields}, nil
}

func (t *Tuple) writeTo(b *bytes.Buffer) error {
	for _, f := range t.Fields {
		if err := f.writeTo(b); err != nil {
			return err
		}
	}
	return nil
}

func readTupleFrom(b *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	fields := make([]Field, len(desc.Fields))
	for i, fd := range desc.Fields {
		switch fd.Kind {
		case IntKind:
			v, err := readIntField(b)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		case StringKind:
			v, err := readStringField(b)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		}
	}
	return &Tuple{Desc: desc, Fields: fields}, nil
}

// Equals compares two tuples for equality of descriptor arity/kinds and
// field values; record identity is ignored.
func (t *Tuple) Equals(other *Tuple) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !t.Desc.Equals(other.Desc) || len(t.Fields) != len(other.Fields) {
		return false
	}
	for i := range t.Fields {
		eq, err := t.Fields[i].EvalPred(other.Fields[i], OpEq)
		if err != nil || !eq {
			return false
		}
	}
	return true
}
