package rag

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("passages")

type boltEntry struct {
	Passage Passage   `json:"passage"`
	Vector  []float32 `json:"vector"`
}

// BoltIndex is a VectorIndex backed by a single bbolt file. The full set
// of entries is mirrored in memory so searches never touch disk; Add
// writes through to the file. Suited to the catalog's scale, where the
// whole index fits comfortably in memory but should survive restarts.
type BoltIndex struct {
	db *bolt.DB

	mu       sync.RWMutex
	dims     int
	vectors  [][]float32
	passages []Passage
}

// OpenBoltIndex opens or creates the index file at path and loads all
// stored entries into memory.
func OpenBoltIndex(path string) (*BoltIndex, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bolt index: create directory: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("bolt index: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt index: create bucket: %w", err)
	}

	idx := &BoltIndex{db: db}
	if err := idx.load(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (b *BoltIndex) load() error {
	return b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).ForEach(func(_, v []byte) error {
			var e boltEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("bolt index: decode entry: %w", err)
			}
			if b.dims == 0 {
				b.dims = len(e.Vector)
			}
			b.vectors = append(b.vectors, e.Vector)
			b.passages = append(b.passages, e.Passage)
			return nil
		})
	})
}

// Add persists passages with their embeddings and updates the in-memory
// mirror. Vectors are normalized before storage.
func (b *BoltIndex) Add(_ context.Context, passages []Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return NewError(ClassDimensionMismatch,
			"bolt index: passages and vectors length mismatch")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Validate the whole batch before committing dims, so a rejected Add
	// leaves the index unchanged.
	dims := b.dims
	for _, v := range vectors {
		if dims == 0 {
			if len(v) == 0 {
				return NewError(ClassDimensionMismatch, "bolt index: zero-length vector")
			}
			dims = len(v)
		}
		if len(v) != dims {
			return NewError(ClassDimensionMismatch, "bolt index: vector dimensionality mismatch")
		}
	}
	b.dims = dims

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		normalized[i] = Normalize(v)
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for i := range passages {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)
			data, err := json.Marshal(boltEntry{Passage: passages[i], Vector: normalized[i]})
			if err != nil {
				return err
			}
			if err := bucket.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt index: add: %w", err)
	}

	b.vectors = append(b.vectors, normalized...)
	b.passages = append(b.passages, passages...)
	return nil
}

// Search ranks the cached entries by cosine similarity.
func (b *BoltIndex) Search(_ context.Context, vector []float32, topK int) ([]ScoredPassage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.vectors) == 0 {
		return nil, nil
	}
	if len(vector) != b.dims {
		return nil, NewError(ClassDimensionMismatch, "bolt index: query vector dimensionality mismatch")
	}
	return rankCosine(b.passages, b.vectors, vector, topK), nil
}

// Count returns the number of stored passages.
func (b *BoltIndex) Count(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.passages), nil
}

// Clear drops all entries from the file and the in-memory mirror.
func (b *BoltIndex) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(boltBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(boltBucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("bolt index: clear: %w", err)
	}
	b.dims = 0
	b.vectors = nil
	b.passages = nil
	return nil
}

// Close closes the underlying file.
func (b *BoltIndex) Close() error {
	return b.db.Close()
}
