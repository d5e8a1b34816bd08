package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"loanqa/internal/adapter/memstore"
	"loanqa/internal/domain"
)

// LoadIndex opens the index at path read-only, validates it against expect
// and copies it into memory. The file is closed before returning. Every
// failure wraps domain.ErrLoad, including damaged pages that bbolt reports
// by panicking.
func LoadIndex(path string, expect Expectation) (idx *memstore.VectorIndex, manifest *Manifest, err error) {
	defer func() {
		if r := recover(); r != nil {
			idx, manifest, err = nil, nil, corruptIndex(path, r)
		}
	}()

	st, err := OpenBoltStore(path)
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()

	manifest, err = st.ReadManifest()
	if err != nil {
		return nil, nil, err
	}
	if err := manifest.Check(expect); err != nil {
		return nil, nil, err
	}

	chunks, err := st.loadChunks(manifest.Dimension)
	if err != nil {
		return nil, nil, err
	}
	if len(chunks) != manifest.ChunkCount {
		return nil, nil, fmt.Errorf("%w: manifest lists %d chunks, found %d", domain.ErrLoad, manifest.ChunkCount, len(chunks))
	}

	idx, err = memstore.NewVectorIndex(manifest.Dimension, memstore.Metric(manifest.Metric), chunks)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}
	return idx, manifest, nil
}

// loadChunks reads chunks and vectors in key order, requiring a vector of
// the given dimension for every chunk.
func (s *BoltStore) loadChunks(dimension int) ([]domain.TextChunk, error) {
	var chunks []domain.TextChunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		chunkBucket := tx.Bucket(bucketChunks)
		vectorBucket := tx.Bucket(bucketVectors)
		if chunkBucket == nil || vectorBucket == nil {
			return fmt.Errorf("%w: index is missing chunk or vector data", domain.ErrLoad)
		}
		if cn, vn := chunkBucket.Stats().KeyN, vectorBucket.Stats().KeyN; cn != vn {
			return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrLoad, cn, vn)
		}

		cc := chunkBucket.Cursor()
		vc := vectorBucket.Cursor()
		ck, cv := cc.First()
		vk, vv := vc.First()
		for ; ck != nil; ck, cv = cc.Next() {
			if vk == nil || !bytes.Equal(ck, vk) {
				return fmt.Errorf("%w: chunk %x has no matching vector", domain.ErrLoad, ck)
			}

			var sc storedChunk
			if err := json.Unmarshal(cv, &sc); err != nil {
				return fmt.Errorf("%w: corrupt chunk %x: %v", domain.ErrLoad, ck, err)
			}
			var sv storedVector
			if err := json.Unmarshal(vv, &sv); err != nil {
				return fmt.Errorf("%w: corrupt vector %x: %v", domain.ErrLoad, vk, err)
			}
			if len(sv.Vector) != dimension {
				return fmt.Errorf("%w: chunk %s has dimension %d, expected %d", domain.ErrLoad, sc.ID, len(sv.Vector), dimension)
			}

			chunks = append(chunks, domain.TextChunk{
				ID:      sc.ID,
				Source:  sc.Source,
				Page:    sc.Page,
				Content: sc.Text,
				Vector:  sv.Vector,
			})
			vk, vv = vc.Next()
		}
		return nil
	})
	return chunks, err
}

// Inspect reads the manifest and stats of an index without validating it
// against an embedder.
func Inspect(path string) (manifest *Manifest, stats domain.Stats, docs []domain.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			manifest, stats, docs, err = nil, domain.Stats{}, nil, corruptIndex(path, r)
		}
	}()

	st, err := OpenBoltStore(path)
	if err != nil {
		return nil, domain.Stats{}, nil, err
	}
	defer st.Close()

	manifest, err = st.ReadManifest()
	if err != nil {
		return nil, domain.Stats{}, nil, err
	}
	stats, err = st.Stats()
	if err != nil {
		return manifest, stats, nil, fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}
	docs, err = st.ListDocs()
	if err != nil {
		return manifest, stats, nil, fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}
	return manifest, stats, docs, nil
}

// corruptIndex converts a panic raised while reading path into a load error.
func corruptIndex(path string, r any) error {
	return fmt.Errorf("%w: corrupt index %s: %v", domain.ErrLoad, path, r)
}
