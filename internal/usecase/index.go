package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"loanqa/config"
	"loanqa/internal/adapter/store"
	"loanqa/internal/domain"
	"loanqa/internal/port"
)

// IndexUseCase builds the vector index artifact from a directory of documents.
type IndexUseCase struct {
	walker    port.FileWalker
	extractor port.SectionExtractor
	chunker   port.Chunker
	embedder  port.Embedder
	build     config.BuildConfig
	batchSize int
	logger    *slog.Logger
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(
	walker port.FileWalker,
	extractor port.SectionExtractor,
	chunker port.Chunker,
	embedder port.Embedder,
	build config.BuildConfig,
	batchSize int,
	logger *slog.Logger,
) *IndexUseCase {
	if batchSize <= 0 {
		batchSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexUseCase{
		walker:    walker,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		build:     build,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	FilesIndexed  int
	FilesSkipped  int
	ChunksCreated int
	Manifest      *store.Manifest
	Errors        []string
}

// ProgressFunc is called after each embedded batch.
type ProgressFunc func(done, total int)

// Build indexes the documents under root and writes the index to outPath.
// The file is written next to outPath and renamed into place at the end, so
// a failed build never leaves a half-written index behind.
func (u *IndexUseCase) Build(ctx context.Context, root, outPath string, progress ProgressFunc) (*IndexResult, error) {
	result := &IndexResult{}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no documents found under %s", root)
	}

	var docs []domain.Document
	var chunks []domain.TextChunk
	for _, file := range files {
		doc, sections, err := u.extractor.Extract(file)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to read %s: %v", file.Path, err))
			continue
		}
		if len(sections) == 0 {
			result.FilesSkipped++
			continue
		}

		for _, section := range sections {
			sectionChunks, err := u.chunker.Chunk(section)
			if err != nil {
				return nil, fmt.Errorf("failed to chunk %s: %w", file.Path, err)
			}
			chunks = append(chunks, sectionChunks...)
		}
		docs = append(docs, doc)
		result.FilesIndexed++
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text could be extracted from %d files", len(files))
	}

	u.logger.Info("documents chunked", "files", result.FilesIndexed, "chunks", len(chunks))

	if err := u.embed(ctx, chunks, progress); err != nil {
		return nil, err
	}

	manifest := store.Manifest{
		Magic:          store.Magic,
		SchemaVersion:  store.CurrentSchemaVersion,
		EmbeddingModel: u.embedder.ModelName(),
		Dimension:      u.embedder.Dimension(),
		Metric:         u.build.Metric,
		ChunkCount:     len(chunks),
		DocCount:       len(docs),
		BuildID:        uuid.NewString(),
		BuiltAt:        time.Now().UTC(),
		ConfigHash:     store.ComputeConfigHash(u.build, u.embedder.ModelName(), u.embedder.Dimension()),
	}
	if err := u.write(outPath, docs, chunks, manifest); err != nil {
		return nil, err
	}

	result.ChunksCreated = len(chunks)
	result.Manifest = &manifest
	return result, nil
}

// embed fills in chunk vectors batch by batch.
func (u *IndexUseCase) embed(ctx context.Context, chunks []domain.TextChunk, progress ProgressFunc) error {
	dim := u.embedder.Dimension()
	for i := 0; i < len(chunks); i += u.batchSize {
		end := i + u.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j := range texts {
			texts[j] = chunks[i+j].Content
		}

		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
		}
		for j, v := range vectors {
			if len(v) != dim {
				return fmt.Errorf("embedder returned dimension %d, expected %d", len(v), dim)
			}
			chunks[i+j].Vector = v
		}

		if progress != nil {
			progress(end, len(chunks))
		}
	}
	return nil
}

func (u *IndexUseCase) write(outPath string, docs []domain.Document, chunks []domain.TextChunk, manifest store.Manifest) (err error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale %s: %w", tmpPath, err)
	}

	st, err := store.NewBoltStore(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create index store: %w", err)
	}
	closed := false
	defer func() {
		if err != nil {
			if !closed {
				st.Close()
			}
			os.Remove(tmpPath)
		}
	}()

	for _, doc := range docs {
		if err = st.PutDoc(doc); err != nil {
			return fmt.Errorf("failed to store document: %w", err)
		}
	}
	for i := 0; i < len(chunks); i += u.batchSize {
		end := i + u.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err = st.AppendChunks(chunks[i:end]); err != nil {
			return fmt.Errorf("failed to store chunks: %w", err)
		}
	}
	if err = st.WriteManifest(manifest); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	closed = true
	if err = st.Close(); err != nil {
		return fmt.Errorf("failed to close index store: %w", err)
	}
	if err = os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("failed to move index into place: %w", err)
	}
	return nil
}
