package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/hyperjump/ragbench/pkg/utils"
)

// File layout, little-endian: magic "RAGV", version (4), dimension (4), n (4), then per
// vector: idLen (4), id bytes, vector (dimension*4 bytes).
var fileMagic = [4]byte{'R', 'A', 'G', 'V'}

const fileVersion uint32 = 1

// headerSize is the magic plus version, dimensions and count.
const headerSize = 16

// ErrCorrupt is returned when an index file cannot be decoded.
var ErrCorrupt = errors.New("corrupt vector index file")

// MemoryIndex is an in-memory vector index using brute-force cosine search.
// Vectors are L2-normalized on insert, so inner product equals cosine similarity.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// Add appends vectors with the given IDs.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
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

// Search returns up to k IDs ordered by descending cosine similarity to query.
// Ties keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	q := make([]float32, len(query))
	copy(q, query)
	utils.NormalizeL2(q)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	results := make([]*VectorResult, len(m.ids))
	for i, vec := range m.vectors {
		results[i] = &VectorResult{ID: m.ids[i], Score: utils.Dot(q, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Save writes the index to path, replacing any existing file.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := m.encode(w); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync index file: %w", err)
	}
	return f.Close()
}

func (m *MemoryIndex) encode(w io.Writer) error {
	header := []uint32{fileVersion, uint32(m.dimensions), uint32(len(m.ids))}
	if _, err := w.Write(fileMagic[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, id := range m.ids {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(id))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := io.WriteString(w, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// LoadMemoryIndex reads an index written by Save.
func LoadMemoryIndex(path string) (*MemoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index file: %w", err)
	}
	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != fileMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}
	version, dim, n := header[0], header[1], header[2]
	if version != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}
	m, err := NewMemoryIndex(int(dim))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	// Every entry needs at least an id length and a vector, so the header's counts
	// must fit in what remains of the file before anything is allocated from them.
	remaining := st.Size() - headerSize
	vecBytes := int64(dim) * 4
	if int64(n)*(4+vecBytes) > remaining {
		return nil, fmt.Errorf("%w: %d entries of dimension %d exceed file size %d", ErrCorrupt, n, dim, st.Size())
	}
	buf := make([]byte, vecBytes)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return nil, fmt.Errorf("%w: read id len: %v", ErrCorrupt, err)
		}
		remaining -= 4 + vecBytes
		if int64(idLen) > remaining {
			return nil, fmt.Errorf("%w: id length %d exceeds file size", ErrCorrupt, idLen)
		}
		remaining -= int64(idLen)
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBytes); err != nil {
			return nil, fmt.Errorf("%w: read id: %v", ErrCorrupt, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: read vector: %v", ErrCorrupt, err)
		}
		m.ids = append(m.ids, string(idBytes))
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

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the vector size.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
