package flat

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Metric selects how similarity between vectors is computed.
// One metric is fixed per index instance for its whole lifetime.
type Metric string

const (
	// MetricInnerProduct scores by raw inner product (higher = closer).
	MetricInnerProduct Metric = "ip"

	// MetricL2 scores by squared Euclidean distance, normalised to a
	// similarity via 1/(1+distance) so that higher still means closer.
	MetricL2 Metric = "l2"
)

// Valid reports whether the metric is a known value.
func (m Metric) Valid() bool {
	return m == MetricInnerProduct || m == MetricL2
}

// Blob format constants.
const (
	magic         = "QVIX"
	formatVersion = 1
)

const headerSize = 4 + 2 + 1 + 4 + 4 // magic + version + metric + dimension + count

// metricCodes maps metrics to their single-byte blob encoding.
var metricCodes = map[Metric]byte{
	MetricInnerProduct: 0,
	MetricL2:           1,
}

// Index is a flat exact nearest-neighbour index.
type Index struct {
	mu        sync.RWMutex
	dimension int
	metric    Metric
	data      []float32 // packed vectors, count = len(data)/dimension
}

// New creates an empty index with the given dimension and metric.
func New(dimension int, metric Metric) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("flat: dimension must be positive: %w", domain.ErrInvalidInput)
	}
	if !metric.Valid() {
		return nil, fmt.Errorf("flat: unknown metric %q: %w", metric, domain.ErrInvalidInput)
	}
	return &Index{
		dimension: dimension,
		metric:    metric,
	}, nil
}

// Open loads a persisted index blob from path. The configured dimension
// and metric must match the blob header; any mismatch or malformed blob
// returns domain.ErrIndexCorrupt. A missing file returns the underlying
// fs.ErrNotExist so callers can treat it as "no index".
func Open(path string, dimension int, metric Metric) (*Index, error) {
	idx, err := New(dimension, metric)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index blob: %w", err)
	}

	if err := idx.decode(data); err != nil {
		return nil, err
	}
	return idx, nil
}

// decode validates and loads a blob into the index.
func (idx *Index) decode(blob []byte) error {
	if len(blob) < headerSize {
		return fmt.Errorf("flat: blob shorter than header: %w", domain.ErrIndexCorrupt)
	}
	if string(blob[:4]) != magic {
		return fmt.Errorf("flat: bad magic: %w", domain.ErrIndexCorrupt)
	}
	version := binary.LittleEndian.Uint16(blob[4:6])
	if version != formatVersion {
		return fmt.Errorf("flat: unsupported format version %d: %w", version, domain.ErrIndexCorrupt)
	}
	if blob[6] != metricCodes[idx.metric] {
		return fmt.Errorf("flat: persisted metric does not match configured %q: %w", idx.metric, domain.ErrIndexCorrupt)
	}
	dimension := int(binary.LittleEndian.Uint32(blob[7:11]))
	if dimension != idx.dimension {
		return fmt.Errorf("flat: persisted dimension %d does not match configured %d: %w",
			dimension, idx.dimension, domain.ErrIndexCorrupt)
	}
	count := int(binary.LittleEndian.Uint32(blob[11:15]))

	payload := blob[headerSize:]
	want := count * dimension * 4
	if len(payload) != want {
		return fmt.Errorf("flat: payload size %d does not match count %d: %w",
			len(payload), count, domain.ErrIndexCorrupt)
	}

	data := make([]float32, count*dimension)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}

	idx.mu.Lock()
	idx.data = data
	idx.mu.Unlock()
	return nil
}

// Append inserts a vector and returns its position.
func (idx *Index) Append(_ context.Context, vector []float32) (int, error) {
	if len(vector) != idx.dimension {
		return 0, fmt.Errorf("flat: vector dimension %d, index dimension %d: %w",
			len(vector), idx.dimension, domain.ErrInvalidInput)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	position := len(idx.data) / idx.dimension
	idx.data = append(idx.data, vector...)
	return position, nil
}

// Search finds the k nearest neighbours to the query vector,
// ordered by descending similarity.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("flat: query dimension %d, index dimension %d: %w",
			len(query), idx.dimension, domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	count := len(idx.data) / idx.dimension
	if count == 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, count)
	for i := 0; i < count; i++ {
		vec := idx.data[i*idx.dimension : (i+1)*idx.dimension]
		hits[i] = driven.VectorHit{Position: i, Score: idx.score(query, vec)}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if k > count {
		k = count
	}
	return hits[:k], nil
}

// score computes the similarity between two vectors under the
// configured metric.
func (idx *Index) score(query, vec []float32) float64 {
	switch idx.metric {
	case MetricL2:
		var dist float64
		for i := range query {
			d := float64(query[i]) - float64(vec[i])
			dist += d * d
		}
		return 1 / (1 + dist)
	default: // MetricInnerProduct
		var dot float64
		for i := range query {
			dot += float64(query[i]) * float64(vec[i])
		}
		return dot
	}
}

// Count returns the total number of stored vectors.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.data) / idx.dimension
}

// Dimension returns the configured vector dimension.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Metric returns the similarity metric identifier.
func (idx *Index) Metric() string {
	return string(idx.metric)
}

// Clear resets the index to zero vectors.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.data = nil
}

// Save persists the index to path as a single blob. The blob is written
// to a temporary file and renamed into place so a failed write never
// leaves a truncated index behind.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	count := len(idx.data) / idx.dimension
	blob := make([]byte, headerSize+len(idx.data)*4)
	copy(blob[:4], magic)
	binary.LittleEndian.PutUint16(blob[4:6], formatVersion)
	blob[6] = metricCodes[idx.metric]
	binary.LittleEndian.PutUint32(blob[7:11], uint32(idx.dimension))
	binary.LittleEndian.PutUint32(blob[11:15], uint32(count))
	for i, f := range idx.data {
		binary.LittleEndian.PutUint32(blob[headerSize+i*4:], math.Float32bits(f))
	}
	idx.mu.RUnlock()

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	if err := os.WriteFile(tmp, blob, 0600); err != nil {
		return fmt.Errorf("writing index blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming index blob: %w", err)
	}
	return nil
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}
