package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"loanqa/config"
	"loanqa/internal/adapter/analyzer"
	"loanqa/internal/adapter/embedding"
	"loanqa/internal/adapter/store"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding loanqa.yaml and the index")
	query := flag.String("q", "", "Query to test")
	queriesFile := flag.String("f", "", "File with one query per line")
	topK := flag.Int("k", 4, "Number of results")
	flag.Parse()

	queries := readQueries(*query, *queriesFile)
	if len(queries) == 0 {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\" [-f queries.txt]")
		fmt.Println("\nReports:")
		fmt.Println("  1. Index header (model, dimension, chunk count)")
		fmt.Println("  2. Top matches and similarity per query")
		fmt.Println("  3. Embedding and search latency")
		os.Exit(1)
	}

	root, err := filepath.Abs(*dir)
	if err != nil {
		fail("Invalid directory", err)
	}
	cfg, err := config.LoadFromDir(root)
	if err != nil {
		fail("Error loading config", err)
	}
	cfg = cfg.Resolve(root)

	creds, err := config.ResolveEmbeddingCredentials(cfg.Secrets, cfg.Embedding)
	if err != nil {
		fail("Error resolving credentials", err)
	}
	embedder, err := embedding.New(cfg.Embedding, creds, analyzer.NewTokenizer(true))
	if err != nil {
		fail("Embedder init failed", err)
	}

	idx, manifest, err := store.LoadIndex(cfg.Index.Path(), store.Expectation{
		EmbeddingModel: embedder.ModelName(),
		Dimension:      embedder.Dimension(),
	})
	if err != nil {
		fail("Error loading index", err)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Index:     %s\n", cfg.Index.Path())
	fmt.Printf("Chunks:    %d\n", idx.Len())
	fmt.Printf("Model:     %s (%s)\n", manifest.EmbeddingModel, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d, metric %s\n", manifest.Dimension, manifest.Metric)
	fmt.Println()

	ctx := context.Background()
	var embedTimes, searchTimes []time.Duration
	var top1Total float64

	for _, q := range queries {
		fmt.Printf("Query: %q\n", q)
		fmt.Println(strings.Repeat("-", 70))

		start := time.Now()
		vecs, err := embedder.Embed(ctx, []string{q})
		if err != nil {
			fail("Embedding error", err)
		}
		embedTimes = append(embedTimes, time.Since(start))

		start = time.Now()
		results, err := idx.Search(vecs[0], *topK)
		if err != nil {
			fail("Search error", err)
		}
		searchTimes = append(searchTimes, time.Since(start))

		for i, r := range results {
			preview := strings.ReplaceAll(r.Chunk.Content, "\n", " ")
			if runes := []rune(preview); len(runes) > 150 {
				preview = string(runes[:150]) + "..."
			}
			fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating(r.Score), r.Score, location(r.Chunk.Source, r.Chunk.Page))
			fmt.Printf("   %s\n", preview)
		}
		if len(results) > 0 {
			top1Total += results[0].Score
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS (%d queries):\n", len(queries))
	fmt.Printf("  Average top-1 similarity: %.3f\n", top1Total/float64(len(queries)))
	fmt.Printf("  Embed latency  p50 %s  max %s\n", percentile(embedTimes, 0.5), percentile(embedTimes, 1))
	fmt.Printf("  Search latency p50 %s  max %s\n", percentile(searchTimes, 0.5), percentile(searchTimes, 1))
}

func readQueries(query, path string) []string {
	var queries []string
	if strings.TrimSpace(query) != "" {
		queries = append(queries, strings.TrimSpace(query))
	}
	if path == "" {
		return queries
	}
	f, err := os.Open(path)
	if err != nil {
		fail("Error reading queries", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			queries = append(queries, line)
		}
	}
	return queries
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}

func location(source string, page int) string {
	source = filepath.Base(source)
	if page > 0 {
		return fmt.Sprintf("%s p.%d", source, page)
	}
	return source
}

func percentile(ds []time.Duration, p float64) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), ds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	i := int(p*float64(len(sorted))+0.5) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i].Round(time.Microsecond)
}

func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
