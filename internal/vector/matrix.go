package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/enfance/pkg/utils"
)

// MatrixIndex holds one unit-norm row per segment and answers queries by brute-force inner
// product. The corpus is small (a few thousand segments) so exhaustive search stays fast.
type MatrixIndex struct {
	dimensions int
	ids        []int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMatrixIndex creates an empty index with the given dimension.
func NewMatrixIndex(dimensions int) (*MatrixIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MatrixIndex{
		dimensions: dimensions,
		ids:        make([]int, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// NewMatrixIndexFromRows builds an index where row i belongs to segment i.
func NewMatrixIndexFromRows(rows [][]float32) (*MatrixIndex, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("embedding matrix is empty")
	}
	m, err := NewMatrixIndex(len(rows[0]))
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(rows))
	for i := range rows {
		ids[i] = i
	}
	if err := m.Add(context.Background(), ids, rows); err != nil {
		return nil, err
	}
	return m, nil
}

// Add appends vectors with the given segment IDs. Vectors are copied and normalized.
func (m *MatrixIndex) Add(ctx context.Context, ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		utils.NormalizeL2(vec)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns up to k segments by descending cosine similarity, keeping only scores
// >= minScore. Ties keep row order.
func (m *MatrixIndex) Search(ctx context.Context, query []float32, k int, minScore float64) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	q := make([]float32, len(query))
	copy(q, query)
	utils.NormalizeL2(q)

	results := make([]*VectorResult, 0, k)
	for i, vec := range m.vectors {
		score := InnerProduct(q, vec)
		if score < minScore {
			continue
		}
		results = append(results, &VectorResult{ID: m.ids[i], Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Save persists the index to path. Directory is created if needed. Format: dimension (4), n (4),
// then per vector: id (4), vector (dimension*4 bytes), little endian.
func (m *MatrixIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range m.ids {
		if err := binary.Write(f, binary.LittleEndian, uint32(id)); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// LoadMatrixIndex reads an index written by Save.
func LoadMatrixIndex(path string) (*MatrixIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	m, err := NewMatrixIndex(int(dim))
	if err != nil {
		return nil, err
	}
	m.ids = make([]int, 0, n)
	m.vectors = make([][]float32, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var id uint32
		if err := binary.Read(f, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		m.ids = append(m.ids, int(id))
		m.vectors = append(m.vectors, bytesToFloat32Slice(buf))
	}
	return m, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Dimensions returns the vector dimension.
func (m *MatrixIndex) Dimensions() int {
	return m.dimensions
}

// Size returns the number of vectors in the index.
func (m *MatrixIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}
