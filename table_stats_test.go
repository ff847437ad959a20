package relstore

import "testing"

func TestComputeTableStatsScanCostAndCardinality(t *testing.T) {
	bp, err := NewBufferPool(DefaultPages)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	hf := newTestHeapFile(t, bp)
	insertN(t, bp, hf, 50)

	ts, err := ComputeTableStats(bp, hf)
	if err != nil {
		t.Fatalf("ComputeTableStats: %v", err)
	}
	if ts.EstimateScanCost() <= 0 {
		t.Fatalf("expected positive scan cost, got %v", ts.EstimateScanCost())
	}
	if card := ts.EstimateCardinality(1.0); card != 50 {
		t.Fatalf("EstimateCardinality(1.0) = %d, want 50", card)
	}
	if card := ts.EstimateCardinality(0.5); card != 25 {
		t.Fatalf("EstimateCardinality(0.5) = %d, want 25", card)
	}
}

func TestComputeTableStatsSelectivityByField(t *testing.T) {
	bp, err := NewBufferPool(DefaultPages)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	hf := newTestHeapFile(t, bp)
	insertN(t, bp, hf, 100)

	ts, err := ComputeTableStats(bp, hf)
	if err != nil {
		t.Fatalf("ComputeTableStats: %v", err)
	}

	sel, err := ts.EstimateSelectivity("id", OpEq, IntField{Value: 50})
	if err != nil {
		t.Fatalf("EstimateSelectivity: %v", err)
	}
	if sel <= 0 || sel > 1 {
		t.Fatalf("EstimateSelectivity(id=50) = %v, want in (0,1]", sel)
	}

	if _, err := ts.EstimateSelectivity("name", OpEq, IntField{Value: 1}); err == nil {
		t.Fatalf("expected a type mismatch error for an IntField against the STRING column")
	}
}

func TestComputeTableStatsApproxDistinctValues(t *testing.T) {
	bp, err := NewBufferPool(DefaultPages)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	hf := newTestHeapFile(t, bp)
	insertN(t, bp, hf, 10)

	ts, err := ComputeTableStats(bp, hf)
	if err != nil {
		t.Fatalf("ComputeTableStats: %v", err)
	}
	if got := ts.ApproxDistinctValues("id", IntField{Value: 3}); got == 0 {
		t.Fatalf("expected the Count-Min Sketch to report at least one occurrence of id=3")
	}
}
