package relstore

import (
	"fmt"
	"log"
	"math"

	boom "github.com/tylertreat/BoomFilters"
)

// Stats is the interface the join planner's cost model consumes for a
// single table.
type Stats interface {
	EstimateScanCost() float64
	EstimateCardinality(selectivity float64) int
	EstimateSelectivity(field string, op BoolOp, value Field) (float64, error)
}

// TableStats holds the per-column histograms and page/tuple counts used
// to cost a scan and estimate predicate selectivity and result
// cardinality, without re-scanning the base table.
type TableStats struct {
	basePages int
	baseTups  int
	histogram map[string]any
	desc      *TupleDesc

	// distinctValues holds, per column, a Count-Min Sketch of how often
	// each value was observed — an independent check on cardinality
	// estimates that does not depend on histogram bucketing.
	distinctValues map[string]*boom.CountMinSketch
}

// ComputeTableStats scans file twice under its own transaction: once for
// each INT column's min/max, then again to build an IntHistogram or
// StringHistogram per column plus a supplementary Count-Min Sketch of
// per-value occurrence counts. It then records basePages and baseTups.
func ComputeTableStats(bp *BufferPool, file AccessMethod) (*TableStats, error) {
	tid := NewTxnId()
	if err := bp.BeginTransaction(tid); err != nil {
		return nil, err
	}
	defer bp.CommitTransaction(tid)

	desc := file.Descriptor()
	mins, maxs, err := tableMinMax(tid, file)
	if err != nil {
		return nil, err
	}

	hists := make(map[string]any, len(desc.Fields))
	sketches := make(map[string]*boom.CountMinSketch, len(desc.Fields))
	for i, f := range desc.Fields {
		sketches[f.Name] = boom.NewCountMinSketch(0.001, 0.999)
		switch f.Kind {
		case IntKind:
			h, err := NewIntHistogram(NumHistBins, int32(mins[i]), int32(maxs[i]))
			if err != nil {
				return nil, err
			}
			hists[f.Name] = h
		case StringKind:
			h, err := NewStringHistogram(NumHistBins)
			if err != nil {
				return nil, err
			}
			hists[f.Name] = h
		default:
			return nil, fmt.Errorf("unexpected field kind %v", f.Kind)
		}
	}

	iter, err := file.Iterator(tid)
	if err != nil {
		return nil, err
	}

	baseTups := 0
	for t, err := iter(); ; t, err = iter() {
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		for i, f := range desc.Fields {
			switch f.Kind {
			case IntKind:
				v := t.Fields[i].(IntField).Value
				hists[f.Name].(*IntHistogram).addValue(v)
				sketches[f.Name].Add(encodeInt32(v))
			case StringKind:
				v := t.Fields[i].(StringField).Value
				hists[f.Name].(*StringHistogram).AddValue(v)
				sketches[f.Name].Add([]byte(v))
			}
		}
		baseTups++
	}

	return &TableStats{
		basePages:      file.NumPages(),
		baseTups:       baseTups,
		histogram:      hists,
		desc:           desc,
		distinctValues: sketches,
	}, nil
}

func encodeInt32(v int32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// tableMinMax scans file once to find the per-column min/max of every
// INT field, used to size each IntHistogram's bucket range. Columns with
// no rows default to [0, 0].
func tableMinMax(tid TxnId, file AccessMethod) ([]int64, []int64, error) {
	desc := file.Descriptor()
	mins := make([]int64, len(desc.Fields))
	maxs := make([]int64, len(desc.Fields))
	for i := range mins {
		mins[i] = math.MaxInt32
		maxs[i] = math.MinInt32
	}

	iter, err := file.Iterator(tid)
	if err != nil {
		return nil, nil, err
	}
	for t, err := iter(); ; t, err = iter() {
		if err != nil {
			return nil, nil, err
		}
		if t == nil {
			break
		}
		for i, f := range desc.Fields {
			if f.Kind == IntKind {
				v := int64(t.Fields[i].(IntField).Value)
				if v < mins[i] {
					mins[i] = v
				}
				if v > maxs[i] {
					maxs[i] = v
				}
			}
		}
	}
	for i := range mins {
		if mins[i] > maxs[i] {
			mins[i] = 0
			maxs[i] = 0
		}
	}
	return mins, maxs, nil
}

// EstimateScanCost returns the cost of a full sequential scan: one
// IOCostPerPage charge per page, assuming nothing is cached.
func (t *TableStats) EstimateScanCost() float64 {
	return float64(t.basePages) * IOCostPerPage
}

// EstimateCardinality returns the expected row count after applying a
// predicate of the given selectivity to the base table.
func (t *TableStats) EstimateCardinality(selectivity float64) int {
	return int(float64(t.baseTups) * selectivity)
}

// EstimateSelectivity looks up field's histogram and delegates to it.
// value's kind must match the field's.
func (t *TableStats) EstimateSelectivity(field string, op BoolOp, value Field) (float64, error) {
	hist, ok := t.histogram[field]
	if !ok {
		log.Printf("relstore: no histogram for field %s, assuming selectivity 1.0", field)
		return 1.0, nil
	}

	switch h := hist.(type) {
	case *IntHistogram:
		v, ok := value.(IntField)
		if !ok {
			return 1.0, fmt.Errorf("field %q is INT, value %T is not an IntField", field, value)
		}
		return h.estimateSelectivity(op, v.Value), nil
	case *StringHistogram:
		v, ok := value.(StringField)
		if !ok {
			return 1.0, fmt.Errorf("field %q is STRING, value %T is not a StringField", field, value)
		}
		return h.EstimateSelectivity(op, v.Value), nil
	}
	return 1.0, fmt.Errorf("unexpected histogram type for field %q", field)
}

// ApproxDistinctValues returns the Count-Min Sketch estimate of how many
// times value has been observed in column field — an independent
// cross-check on histogram-derived cardinality, not used by the planner
// directly.
func (t *TableStats) ApproxDistinctValues(field string, value Field) uint64 {
	sketch, ok := t.distinctValues[field]
	if !ok {
		return 0
	}
	switch v := value.(type) {
	case IntField:
		return sketch.Count(encodeInt32(v.Value))
	case StringField:
		return sketch.Count([]byte(v.Value))
	}
	return 0
}
