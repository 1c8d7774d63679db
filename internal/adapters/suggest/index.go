package suggest

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/admit/internal/domain/scoring"
)

//go:embed migrations/0001_vectors.sql
var vectorsSchema string

type entry struct {
	vec      []float32
	norm     float64
	metadata map[string]string
}

// Index stores one vector per person in sqlite and keeps a copy in memory
// for brute-force cosine search.
type Index struct {
	db *sql.DB

	mu      sync.RWMutex
	entries map[string]entry
}

// OpenIndex opens the vector file at path and loads it into memory.
func OpenIndex(ctx context.Context, path string) (*Index, error) {
	const op = "suggest.open_index"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, vectorsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: schema: %w", op, err)
	}
	ix := &Index{db: db, entries: make(map[string]entry)}
	if err := ix.load(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ix, nil
}

func (ix *Index) load(ctx context.Context) error {
	rows, err := ix.db.QueryContext(ctx, `SELECT person_id, dims, vector, metadata FROM profile_vectors`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   string
			dims int
			blob []byte
			md   string
		)
		if err := rows.Scan(&id, &dims, &blob, &md); err != nil {
			return err
		}
		vec, err := decodeVector(blob, dims)
		if err != nil {
			return fmt.Errorf("person %s: %w", id, err)
		}
		var meta map[string]string
		if err := json.Unmarshal([]byte(md), &meta); err != nil {
			return fmt.Errorf("person %s: metadata: %w", id, err)
		}
		ix.entries[id] = entry{vec: vec, norm: norm(vec), metadata: meta}
	}
	return rows.Err()
}

// Upsert stores vec for personID, replacing any previous vector.
func (ix *Index) Upsert(ctx context.Context, personID string, vec []float32, metadata map[string]string) error {
	if len(vec) == 0 {
		return ErrEmptyEmbedding
	}
	md, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	if _, err := ix.db.ExecContext(ctx,
		`INSERT INTO profile_vectors (person_id, dims, vector, metadata, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(person_id) DO UPDATE SET dims = excluded.dims, vector = excluded.vector,
		     metadata = excluded.metadata, updated_at = excluded.updated_at`,
		personID, len(vec), encodeVector(vec), string(md), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("suggest.upsert: %w", err)
	}
	cp := append([]float32(nil), vec...)
	ix.mu.Lock()
	ix.entries[personID] = entry{vec: cp, norm: norm(cp), metadata: metadata}
	ix.mu.Unlock()
	return nil
}

// Len returns the number of indexed people.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Query returns the topK people most similar to vec, best first. Scores are
// cosine similarities clamped to [0,1]; vectors of another dimension are
// skipped.
func (ix *Index) Query(vec []float32, topK int) []scoring.Suggestion {
	qn := norm(vec)
	ix.mu.RLock()
	out := make([]scoring.Suggestion, 0, len(ix.entries))
	for id, e := range ix.entries {
		if len(e.vec) != len(vec) || e.norm == 0 || qn == 0 {
			continue
		}
		var dot float64
		for i := range vec {
			dot += float64(vec[i]) * float64(e.vec[i])
		}
		md := make(map[string]any, len(e.metadata))
		for k, v := range e.metadata {
			md[k] = v
		}
		out = append(out, scoring.Suggestion{PersonID: id, Score: clamp(dot / (qn * e.norm)), Metadata: md})
	}
	ix.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PersonID < out[j].PersonID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// Close closes the sqlite file.
func (ix *Index) Close() error { return ix.db.Close() }

func encodeVector(vec []float32) []byte {
	b := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func decodeVector(b []byte, dims int) ([]float32, error) {
	if len(b) != 4*dims {
		return nil, fmt.Errorf("vector has %d bytes, want %d", len(b), 4*dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return vec, nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
