// Package ingest runs the background pipeline that turns a snapshot's
// pre-chunked sources into stored embedding vectors.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/storage"
	"github.com/veldt-labs/corpora/internal/telemetry"
)

// ChunkStore lists and opens the chunk files of a source location.
type ChunkStore interface {
	ListChunkFiles(ctx context.Context, location string) ([]string, error)
	OpenChunkFile(ctx context.Context, location, key string) (io.ReadCloser, error)
}

// Embedder produces embedding vectors for batches of chunk text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter persists embedded chunks for a snapshot.
type VectorWriter interface {
	InsertBatch(ctx context.Context, vectors []*domain.KnowledgeVector) error
	DeleteBySource(ctx context.Context, snapshotID, sourceID string) error
}

// StatusRecorder records the terminal ingestion outcome of one source.
type StatusRecorder interface {
	RecordSourceStatus(ctx context.Context, snapshotID, sourceID string, status domain.SourceStatus) error
}

// Config tunes the pipeline's concurrency and retry behavior.
type Config struct {
	Workers       int
	BatchSize     int
	MaxRetries    int
	RetryBackoff  time.Duration
	SourceTimeout time.Duration
}

// Pipeline ingests snapshot sources concurrently. Each source is processed
// in isolation: one source failing never stops the others, and its failure
// is recorded on the snapshot instead of propagating.
type Pipeline struct {
	chunks   ChunkStore
	embedder Embedder
	vectors  VectorWriter
	statuses StatusRecorder
	cfg      Config

	wg sync.WaitGroup
}

func NewPipeline(chunks ChunkStore, embedder Embedder, vectors VectorWriter, statuses StatusRecorder, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 5 * time.Minute
	}
	return &Pipeline{
		chunks:   chunks,
		embedder: embedder,
		vectors:  vectors,
		statuses: statuses,
		cfg:      cfg,
	}
}

// Start launches ingestion for the snapshot and returns immediately. The
// fan-out is bounded by Workers; sources beyond that wait their turn.
func (p *Pipeline) Start(snapshot *domain.KnowledgeSnapshot) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(snapshot)
	}()
}

// Wait blocks until all in-flight snapshot ingestions finish. Used during
// shutdown.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) run(snapshot *domain.KnowledgeSnapshot) {
	snapshotID := snapshot.SnapshotID()
	log.Printf("ingest: starting snapshot %s with %d sources (%d workers)",
		snapshotID, len(snapshot.Sources), p.cfg.Workers)

	type job struct {
		sourceID string
		source   domain.KnowledgeSource
	}

	jobs := make(chan job)
	var workers sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for j := range jobs {
				p.ingestSource(snapshotID, j.sourceID, j.source)
			}
		}()
	}

	for id, src := range snapshot.Sources {
		jobs <- job{sourceID: id, source: src}
	}
	close(jobs)
	workers.Wait()

	log.Printf("ingest: snapshot %s complete", snapshotID)
}

// ingestSource processes one source end to end and records its terminal
// status. Transient failures are retried with exponential backoff before
// the source is marked failed.
func (p *Pipeline) ingestSource(snapshotID, sourceID string, src domain.KnowledgeSource) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.SourceTimeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "Pipeline.ingestSource", telemetry.SpanAttributes{
		SnapshotID: snapshotID,
		SourceID:   sourceID,
		Operation:  "ingest_source",
	})
	defer span.End()

	operation := func() error {
		// A retry may follow a partial insert; clear the source's vectors
		// so the snapshot never ends up with duplicates.
		err := p.vectors.DeleteBySource(ctx, snapshotID, sourceID)
		if err == nil {
			err = p.processSource(ctx, snapshotID, sourceID, src)
		}
		if err != nil && !domain.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.RetryBackoff

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.cfg.MaxRetries)), ctx))

	status := domain.StatusSucceeded()
	if err != nil {
		span.SetError(err)
		log.Printf("ingest: source %s in snapshot %s failed: %v", sourceID, snapshotID, err)
		status = domain.StatusFailed(err.Error())
	}

	// Recording runs on a fresh context so a source timeout cannot leave
	// the snapshot stuck in pending.
	recordCtx, recordCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer recordCancel()
	if recordErr := p.statuses.RecordSourceStatus(recordCtx, snapshotID, sourceID, status); recordErr != nil {
		log.Printf("ingest: recording status for source %s in snapshot %s failed: %v", sourceID, snapshotID, recordErr)
	}
}

func (p *Pipeline) processSource(ctx context.Context, snapshotID, sourceID string, src domain.KnowledgeSource) error {
	files, err := p.chunks.ListChunkFiles(ctx, src.Location)
	if err != nil {
		return fmt.Errorf("listing chunk files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no chunk files found at %s", src.Location)
	}

	totalChunks := 0
	totalSkipped := 0
	for _, file := range files {
		chunks, skipped, err := p.readChunkFile(ctx, src.Location, file)
		if err != nil {
			return fmt.Errorf("reading chunk file %s: %w", file, err)
		}
		totalChunks += len(chunks)
		totalSkipped += skipped

		if err := p.embedAndStore(ctx, snapshotID, sourceID, file, chunks); err != nil {
			return err
		}
	}

	if totalSkipped > 0 {
		log.Printf("ingest: source %s skipped %d malformed chunk lines", sourceID, totalSkipped)
	}
	log.Printf("ingest: source %s in snapshot %s stored %d chunks from %d files",
		sourceID, snapshotID, totalChunks, len(files))
	return nil
}

func (p *Pipeline) readChunkFile(ctx context.Context, location, file string) ([]domain.Chunk, int, error) {
	body, err := p.chunks.OpenChunkFile(ctx, location, file)
	if err != nil {
		return nil, 0, err
	}
	defer body.Close()
	return storage.DecodeChunks(body)
}

func (p *Pipeline) embedAndStore(ctx context.Context, snapshotID, sourceID, file string, chunks []domain.Chunk) error {
	now := time.Now().UTC()
	for start := 0; start < len(chunks); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch: %w", err)
		}

		vectors := make([]*domain.KnowledgeVector, len(batch))
		for i, c := range batch {
			vectors[i] = &domain.KnowledgeVector{
				ID:         uuid.NewString(),
				SnapshotID: snapshotID,
				SourceID:   sourceID,
				Content:    c.Text,
				Embedding:  embeddings[i],
				ChunkFile:  file,
				ChunkIndex: start + i,
				CreatedAt:  now,
			}
		}

		if err := p.vectors.InsertBatch(ctx, vectors); err != nil {
			return fmt.Errorf("storing vectors: %w", err)
		}
	}
	return nil
}
