package vector

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func TestMatrixIndex_AddSearch(t *testing.T) {
	idx, err := NewMatrixIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, []int{0, 1, 2}, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 0 || results[1].ID != 1 {
		t.Errorf("order = %d,%d, want 0,1", results[0].ID, results[1].ID)
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("top score = %f, want 1", results[0].Score)
	}
}

func TestMatrixIndex_MinScore(t *testing.T) {
	idx, _ := NewMatrixIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []int{0, 1}, [][]float32{{1, 0}, {0, 1}})

	results, err := idx.Search(ctx, []float32{1, 0}, 10, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != 0 {
		t.Fatalf("expected only segment 0 above threshold, got %+v", results)
	}
}

func TestMatrixIndex_NormalizesRows(t *testing.T) {
	idx, _ := NewMatrixIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []int{7}, [][]float32{{3, 4}})
	results, _ := idx.Search(ctx, []float32{3, 4}, 1, 0)
	if len(results) != 1 || math.Abs(results[0].Score-1) > 1e-6 {
		t.Fatalf("expected cosine 1 for identical direction, got %+v", results)
	}
}

func TestMatrixIndex_DimensionErrors(t *testing.T) {
	if _, err := NewMatrixIndex(0); err == nil {
		t.Error("expected error for zero dimension")
	}
	idx, _ := NewMatrixIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []int{0}, [][]float32{{1, 0, 0}}); err == nil {
		t.Error("expected dimension mismatch on Add")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1, 0); err == nil {
		t.Error("expected dimension mismatch on Search")
	}
}

func TestMatrixIndex_SaveLoad(t *testing.T) {
	idx, _ := NewMatrixIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []int{4, 9}, [][]float32{{1, 0}, {0, 1}})

	path := filepath.Join(t.TempDir(), "sub", "matrix.bin")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadMatrixIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 || loaded.Dimensions() != 2 {
		t.Fatalf("loaded size=%d dim=%d", loaded.Size(), loaded.Dimensions())
	}
	results, _ := loaded.Search(ctx, []float32{0, 1}, 1, 0)
	if len(results) != 1 || results[0].ID != 9 {
		t.Fatalf("expected id 9, got %+v", results)
	}
}
