package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
	"loanqa/internal/domain"
)

var (
	bucketMeta    = []byte("meta")
	bucketDocs    = []byte("docs")
	bucketChunks  = []byte("chunks")
	bucketVectors = []byte("vectors")
	keyManifest   = []byte("manifest")
)

// BoltStore is the on-disk vector index. Chunks and vectors share a
// big-endian sequence key, so iterating a bucket yields insertion order.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) a writable store. Used by the index builder.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketMeta, bucketDocs, bucketChunks, bucketVectors} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// OpenBoltStore opens an existing store read-only. Any failure is a load error.
func OpenBoltStore(path string) (*BoltStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: index not found at %s (run 'loanqa index' first)", domain.ErrLoad, path)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory, not an index file", domain.ErrLoad, path)
	}

	db, err := bbolt.Open(path, 0400, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read index %s: %v", domain.ErrLoad, path, err)
	}
	return &BoltStore{db: db}, nil
}

type docMeta struct {
	Path    string `json:"path"`
	ModTime int64  `json:"mod_time"`
	Kind    string `json:"kind"`
	Pages   int    `json:"pages"`
}

type storedChunk struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Page   int    `json:"page,omitempty"`
	Text   string `json:"text"`
}

type storedVector struct {
	Vector []float32 `json:"v"`
}

func (s *BoltStore) PutDoc(doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(docMeta{
			Path:    doc.Path,
			ModTime: doc.ModTime.Unix(),
			Kind:    doc.Kind,
			Pages:   doc.Pages,
		})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Put([]byte(doc.ID), data)
	})
}

func (s *BoltStore) ListDocs() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs = append(docs, domain.Document{
				ID:      string(k),
				Path:    meta.Path,
				ModTime: time.Unix(meta.ModTime, 0),
				Kind:    meta.Kind,
				Pages:   meta.Pages,
			})
			return nil
		})
	})
	return docs, err
}

// AppendChunks stores chunks and their vectors after everything already in
// the store, in one transaction.
func (s *BoltStore) AppendChunks(chunks []domain.TextChunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		chunkBucket := tx.Bucket(bucketChunks)
		vectorBucket := tx.Bucket(bucketVectors)

		for _, c := range chunks {
			if len(c.Vector) == 0 {
				return fmt.Errorf("chunk %s has no vector", c.ID)
			}
			seq, err := chunkBucket.NextSequence()
			if err != nil {
				return err
			}
			key := seqKey(seq)

			chunkData, err := json.Marshal(storedChunk{ID: c.ID, Source: c.Source, Page: c.Page, Text: c.Content})
			if err != nil {
				return err
			}
			if err := chunkBucket.Put(key, chunkData); err != nil {
				return err
			}

			vecData, err := json.Marshal(storedVector{Vector: c.Vector})
			if err != nil {
				return err
			}
			if err := vectorBucket.Put(key, vecData); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats counts documents and chunks.
func (s *BoltStore) Stats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketDocs); b != nil {
			stats.TotalDocs = b.Stats().KeyN
		}
		b := tx.Bucket(bucketChunks)
		if b == nil {
			return nil
		}
		totalLen := 0
		err := b.ForEach(func(_, v []byte) error {
			var c storedChunk
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			stats.TotalChunks++
			totalLen += len(c.Text)
			return nil
		})
		if stats.TotalChunks > 0 {
			stats.AvgChunkLen = float64(totalLen) / float64(stats.TotalChunks)
		}
		return err
	})
	return stats, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
