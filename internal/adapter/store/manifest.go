package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"loanqa/config"
	"loanqa/internal/domain"
)

// Magic identifies a loanqa index file.
const Magic = "loanqa-vector-index"

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// Manifest describes how an index was built. It is written last, so a
// partially written index has none and is rejected.
type Manifest struct {
	Magic          string    `json:"magic"`
	SchemaVersion  int       `json:"schema_version"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	Metric         string    `json:"metric"`
	ChunkCount     int       `json:"chunk_count"`
	DocCount       int       `json:"doc_count"`
	BuildID        string    `json:"build_id"`
	BuiltAt        time.Time `json:"built_at"`
	ConfigHash     string    `json:"config_hash"`
}

// Expectation is what the running process requires of an index.
type Expectation struct {
	EmbeddingModel string
	Dimension      int
}

// Check fails closed on any mismatch between the manifest and expect.
func (m *Manifest) Check(expect Expectation) error {
	switch {
	case m.Magic != Magic:
		return fmt.Errorf("%w: not a loanqa index (magic %q)", domain.ErrLoad, m.Magic)
	case m.SchemaVersion > CurrentSchemaVersion:
		return fmt.Errorf("%w: index created by newer version (v%d > v%d)", domain.ErrLoad, m.SchemaVersion, CurrentSchemaVersion)
	case m.SchemaVersion < CurrentSchemaVersion:
		return fmt.Errorf("%w: index schema v%d is no longer supported, rebuild with 'loanqa index'", domain.ErrLoad, m.SchemaVersion)
	case m.EmbeddingModel != expect.EmbeddingModel:
		return fmt.Errorf("%w: index built with embedding model %q, configured model is %q",
			domain.ErrLoad, m.EmbeddingModel, expect.EmbeddingModel)
	case m.Dimension != expect.Dimension:
		return fmt.Errorf("%w: index dimension %d does not match embedder dimension %d",
			domain.ErrLoad, m.Dimension, expect.Dimension)
	}
	return nil
}

func (s *BoltStore) WriteManifest(m Manifest) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyManifest, data)
	})
}

// ReadManifest returns the stored manifest. A missing or unreadable manifest is a load error.
func (s *BoltStore) ReadManifest() (*Manifest, error) {
	var m Manifest
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return fmt.Errorf("%w: index has no metadata", domain.ErrLoad)
		}
		data := b.Get(keyManifest)
		if data == nil {
			return fmt.Errorf("%w: index has no manifest (incomplete build?)", domain.ErrLoad)
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("%w: corrupt manifest: %v", domain.ErrLoad, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ComputeConfigHash computes a hash of index-relevant configuration.
// Changes to this hash indicate the index should be rebuilt.
func ComputeConfigHash(build config.BuildConfig, embeddingModel string, dimension int) string {
	relevant := struct {
		ChunkTokens  int    `json:"chunk_tokens"`
		ChunkOverlap int    `json:"chunk_overlap"`
		Metric       string `json:"metric"`
		EmbModel     string `json:"emb_model"`
		Dimension    int    `json:"dimension"`
	}{
		ChunkTokens:  build.ChunkTokens,
		ChunkOverlap: build.ChunkOverlap,
		Metric:       build.Metric,
		EmbModel:     embeddingModel,
		Dimension:    dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
