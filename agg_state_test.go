package relstore

import "testing"

func groupedDesc() *TupleDesc {
	return NewTupleDesc([]FieldKind{StringKind, IntKind}, []string{"dept", "salary"})
}

// TestIntAggregatorGroupedAvg covers scenario S3: AVG grouped by a
// string field over an exact arithmetic mean.
func TestIntAggregatorGroupedAvg(t *testing.T) {
	desc := groupedDesc()
	rows := []*Tuple{
		mustTuple(t, desc, NewStringField("eng"), IntField{Value: 100}),
		mustTuple(t, desc, NewStringField("eng"), IntField{Value: 200}),
		mustTuple(t, desc, NewStringField("sales"), IntField{Value: 50}),
	}
	child := &sliceOperator{desc: desc, rows: rows}
	agg := NewIntAggregator(child, 0, "dept", 1, "avgSalary", AggAvg)

	iter, err := agg.Iterator(NewTxnId())
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}

	results := map[string]int32{}
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		if tup == nil {
			break
		}
		results[tup.Fields[0].(StringField).Value] = tup.Fields[1].(IntField).Value
	}

	if results["eng"] != 150 {
		t.Fatalf("eng avg = %d, want 150", results["eng"])
	}
	if results["sales"] != 50 {
		t.Fatalf("sales avg = %d, want 50", results["sales"])
	}
}

// TestIntAggregatorUngroupedMinMaxSum covers COUNT/SUM/MIN/MAX with
// NO_GROUPING (groupField < 0).
func TestIntAggregatorUngroupedMinMaxSum(t *testing.T) {
	desc := NewTupleDesc([]FieldKind{IntKind}, []string{"v"})
	rows := []*Tuple{
		mustTuple(t, desc, IntField{Value: 5}),
		mustTuple(t, desc, IntField{Value: -3}),
		mustTuple(t, desc, IntField{Value: 42}),
	}

	cases := []struct {
		op   AggOp
		want int32
	}{
		{AggSum, 44},
		{AggMin, -3},
		{AggMax, 42},
		{AggCount, 3},
	}
	for _, c := range cases {
		child := &sliceOperator{desc: desc, rows: rows}
		agg := NewIntAggregator(child, -1, "", 0, "result", c.op)
		iter, err := agg.Iterator(NewTxnId())
		if err != nil {
			t.Fatalf("Iterator: %v", err)
		}
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		if tup == nil {
			t.Fatalf("op %v: expected a result tuple", c.op)
		}
		if got := tup.Fields[0].(IntField).Value; got != c.want {
			t.Fatalf("op %v = %d, want %d", c.op, got, c.want)
		}
		if next, err := iter(); err != nil || next != nil {
			t.Fatalf("op %v: expected end-of-stream after the single result", c.op)
		}
	}
}

// TestStringAggregatorCountsPerGroup covers the COUNT-only string
// aggregator, grouped by an int field.
func TestStringAggregatorCountsPerGroup(t *testing.T) {
	desc := NewTupleDesc([]FieldKind{IntKind, StringKind}, []string{"team", "name"})
	rows := []*Tuple{
		mustTuple(t, desc, IntField{Value: 1}, NewStringField("a")),
		mustTuple(t, desc, IntField{Value: 1}, NewStringField("b")),
		mustTuple(t, desc, IntField{Value: 2}, NewStringField("c")),
	}
	child := &sliceOperator{desc: desc, rows: rows}
	agg := NewStringAggregator(child, 0, "team", "count")

	iter, err := agg.Iterator(NewTxnId())
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	counts := map[int32]int32{}
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		if tup == nil {
			break
		}
		counts[tup.Fields[0].(IntField).Value] = tup.Fields[1].(IntField).Value
	}
	if counts[1] != 2 {
		t.Fatalf("team 1 count = %d, want 2", counts[1])
	}
	if counts[2] != 1 {
		t.Fatalf("team 2 count = %d, want 1", counts[2])
	}
}

func mustTuple(t *testing.T, desc *TupleDesc, fields ...Field) *Tuple {
	t.Helper()
	tup, err := NewTuple(desc, fields)
	if err != nil {
		t.Fatalf("NewTuple: %v", err)
	}
	return tup
}
