package relstore

import "math"

// AggOp names an aggregate function (§4.6).
type AggOp int

const (
	AggCount AggOp = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

// intAccum is the per-group running state of an integer aggregate:
// count of rows seen and an accumulator whose meaning depends on op
// (running sum for SUM/AVG, running extreme for MIN/MAX, unused for
// COUNT).
type intAccum struct {
	count int
	acc   int64
}

func newIntAccum(op AggOp) intAccum {
	switch op {
	case AggMin:
		return intAccum{acc: math.MaxInt32}
	case AggMax:
		return intAccum{acc: math.MinInt32}
	default:
		return intAccum{}
	}
}

func (a *intAccum) add(op AggOp, v int32) {
	a.count++
	switch op {
	case AggSum, AggAvg:
		a.acc += int64(v)
	case AggMin:
		if int64(v) < a.acc {
			a.acc = int64(v)
		}
	case AggMax:
		if int64(v) > a.acc {
			a.acc = int64(v)
		}
	case AggCount:
	}
}

func (a *intAccum) result(op AggOp) int32 {
	switch op {
	case AggCount:
		return int32(a.count)
	case AggSum, AggMin, AggMax:
		return int32(a.acc)
	case AggAvg:
		return int32(a.acc / int64(a.count))
	}
	return 0
}

// ungrouped is the singleton group key used when no group-by field is
// in effect.
var ungrouped = IntField{Value: 0}

// IntAggregator groups its child's tuples by an optional group-by field
// and applies an integer aggregate (COUNT, SUM, AVG, MIN, or MAX) to an
// aggregate field within each group (§4.6). Grouping is disabled by
// passing a negative groupField.
type IntAggregator struct {
	child      Operator
	groupField int
	aggField   int
	op         AggOp
	groupName  string
	aggName    string
}

// NewIntAggregator builds an integer aggregator. groupField < 0 means
// NO_GROUPING.
func NewIntAggregator(child Operator, groupField int, groupName string, aggField int, aggName string, op AggOp) *IntAggregator {
	return &IntAggregator{
		child:      child,
		groupField: groupField,
		aggField:   aggField,
		op:         op,
		groupName:  groupName,
		aggName:    aggName,
	}
}

// Descriptor is (groupVal, aggVal) when grouped, or (aggVal) when
// ungrouped.
func (a *IntAggregator) Descriptor() *TupleDesc {
	if a.groupField < 0 {
		return NewTupleDesc([]FieldKind{IntKind}, []string{a.aggName})
	}
	groupKind := a.child.Descriptor().Fields[a.groupField].Kind
	return NewTupleDesc([]FieldKind{groupKind, IntKind}, []string{a.groupName, a.aggName})
}

// Iterator materializes the full group table on first call (the child
// must be exhausted to produce any result), then replays it as a
// finite, restartable sequence in unspecified order.
func (a *IntAggregator) Iterator(tid TxnId) (func() (*Tuple, error), error) {
	childIter, err := a.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	groups := make(map[Field]*intAccum)
	var order []Field
	for {
		t, err := childIter()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		key := Field(ungrouped)
		if a.groupField >= 0 {
			key = t.Fields[a.groupField]
		}
		acc, ok := groups[key]
		if !ok {
			v := newIntAccum(a.op)
			acc = &v
			groups[key] = acc
			order = append(order, key)
		}
		acc.add(a.op, t.Fields[a.aggField].(IntField).Value)
	}

	desc := a.Descriptor()
	idx := 0
	return func() (*Tuple, error) {
		if idx >= len(order) {
			return nil, nil
		}
		key := order[idx]
		idx++
		acc := groups[key]
		if a.groupField < 0 {
			return NewTuple(desc, []Field{IntField{Value: acc.result(a.op)}})
		}
		return NewTuple(desc, []Field{key, IntField{Value: acc.result(a.op)}})
	}, nil
}

// StringAggregator groups its child's tuples by an optional group-by
// field and supports only COUNT over a string-valued aggregate field
// (§4.6).
type StringAggregator struct {
	child      Operator
	groupField int
	groupName  string
	aggName    string
}

// NewStringAggregator builds a COUNT-only string aggregator.
// groupField < 0 means NO_GROUPING.
func NewStringAggregator(child Operator, groupField int, groupName string, aggName string) *StringAggregator {
	return &StringAggregator{child: child, groupField: groupField, groupName: groupName, aggName: aggName}
}

// Descriptor is (groupVal, count) when grouped, or (count) when
// ungrouped.
func (a *StringAggregator) Descriptor() *TupleDesc {
	if a.groupField < 0 {
		return NewTupleDesc([]FieldKind{IntKind}, []string{a.aggName})
	}
	groupKind := a.child.Descriptor().Fields[a.groupField].Kind
	return NewTupleDesc([]FieldKind{groupKind, IntKind}, []string{a.groupName, a.aggName})
}

// Iterator materializes per-group counts on first call, then replays
// them as a finite, restartable sequence in unspecified order.
func (a *StringAggregator) Iterator(tid TxnId) (func() (*Tuple, error), error) {
	childIter, err := a.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	counts := make(map[Field]int)
	var order []Field
	for {
		t, err := childIter()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		key := Field(StringField{Value: ""})
		if a.groupField >= 0 {
			key = t.Fields[a.groupField]
		}
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}

	desc := a.Descriptor()
	idx := 0
	return func() (*Tuple, error) {
		if idx >= len(order) {
			return nil, nil
		}
		key := order[idx]
		idx++
		if a.groupField < 0 {
			return NewTuple(desc, []Field{IntField{Value: int32(counts[key])}})
		}
		return NewTuple(desc, []Field{key, IntField{Value: int32(counts[key])}})
	}, nil
}
