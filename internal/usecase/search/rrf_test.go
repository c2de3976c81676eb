package search

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestFuseRRF_SingleList(t *testing.T) {
	fused := fuseRRF([]string{"a", "b", "c"})

	if len(fused) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(fused))
	}
	// 1-based rank r contributes 1/(60+r).
	if !almostEqual(fused[0].Score, 1.0/61) {
		t.Errorf("rank 1 score = %v, want 1/61", fused[0].Score)
	}
	if !almostEqual(fused[1].Score, 1.0/62) {
		t.Errorf("rank 2 score = %v, want 1/62", fused[1].Score)
	}
	if fused[0].UUID != "a" || fused[1].UUID != "b" || fused[2].UUID != "c" {
		t.Errorf("single-list fusion must preserve order: %v", fused)
	}
}

func TestFuseRRF_TwoLists(t *testing.T) {
	// b appears in both lists and must outrank the single-list leaders.
	fused := fuseRRF(
		[]string{"a", "b"},
		[]string{"b", "c"},
	)

	if fused[0].UUID != "b" {
		t.Fatalf("expected b first, got %v", fused)
	}
	wantB := 1.0/62 + 1.0/61
	if !almostEqual(fused[0].Score, wantB) {
		t.Errorf("b score = %v, want %v", fused[0].Score, wantB)
	}

	// a and c both scored 1/61 and 1/62; a was seen first.
	if fused[1].UUID != "a" || fused[2].UUID != "c" {
		t.Errorf("expected a then c, got %v", fused)
	}
}

func TestFuseRRF_TieKeepsFirstSeenOrder(t *testing.T) {
	// Same ranks in disjoint lists produce exact ties; first-seen id wins.
	fused := fuseRRF(
		[]string{"x"},
		[]string{"y"},
	)
	if fused[0].UUID != "x" || fused[1].UUID != "y" {
		t.Errorf("tie order broken: %v", fused)
	}
	if !almostEqual(fused[0].Score, fused[1].Score) {
		t.Errorf("expected tie, got %v vs %v", fused[0].Score, fused[1].Score)
	}
}

func TestFuseRRF_Empty(t *testing.T) {
	if fused := fuseRRF(); len(fused) != 0 {
		t.Errorf("expected no results, got %v", fused)
	}
	if fused := fuseRRF(nil, []string{}); len(fused) != 0 {
		t.Errorf("expected no results for empty lists, got %v", fused)
	}
}
