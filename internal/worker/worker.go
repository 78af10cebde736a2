// Package worker runs the asynchronous indexing loop: claim a job,
// extract and chunk the document, embed, index, repeat.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hfarouk/docdex/internal/chunker"
	"github.com/hfarouk/docdex/internal/embeddings"
	"github.com/hfarouk/docdex/internal/extract"
	"github.com/hfarouk/docdex/internal/queue"
	"github.com/hfarouk/docdex/internal/store"
	"github.com/hfarouk/docdex/internal/vectorindex"
)

// Worker polls the job queue and indexes one document at a time. Run
// several workers for parallelism; the queue's atomic claim keeps them
// from sharing a job.
type Worker struct {
	store    *store.Store
	queue    *queue.Queue
	index    *vectorindex.Manager
	embedder embeddings.Embedder
	chunk    chunker.Options
	poll     time.Duration
	log      *slog.Logger
}

// New wires a worker from already-constructed collaborators.
func New(st *store.Store, q *queue.Queue, index *vectorindex.Manager,
	embedder embeddings.Embedder, chunk chunker.Options, poll time.Duration, log *slog.Logger) *Worker {
	if chunk.EmbedModel == "" {
		chunk.EmbedModel = embedder.Name()
	}
	return &Worker{
		store:    st,
		queue:    q,
		index:    index,
		embedder: embedder,
		chunk:    chunk,
		poll:     poll,
		log:      log,
	}
}

// Run polls until the context is cancelled. Job failures are recorded
// and the loop moves on; only context cancellation stops it.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started", "poll", w.poll)
	for {
		worked, err := w.RunOnce(ctx)
		if err != nil {
			return err
		}
		if worked {
			continue
		}
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping")
			return ctx.Err()
		case <-time.After(w.poll):
		}
	}
}

// RunOnce reclaims expired leases and processes at most one job.
// Reports whether a job was processed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	reclaimed, err := w.queue.ReclaimExpired(ctx)
	if err != nil {
		return false, err
	}
	if reclaimed > 0 {
		w.log.Warn("reclaimed expired jobs", "count", reclaimed)
	}

	job, err := w.queue.Claim(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	log := w.log.With("job", job.ID, "document", job.DocumentID)
	log.Info("processing job", "type", job.JobType)

	if err := w.processJob(ctx, job); err != nil {
		log.Error("job failed", "error", err)
		if ferr := w.queue.Fail(ctx, job.ID, err.Error()); ferr != nil {
			return true, ferr
		}
		// The document is marked FAILED too, so its state is visible
		// without digging through the job table.
		if serr := w.store.UpdateDocumentStatus(ctx, job.DocumentID, store.StatusFailed, 0, err.Error()); serr != nil {
			return true, serr
		}
		return true, nil
	}

	if err := w.queue.Complete(ctx, job.ID); err != nil {
		return true, err
	}
	log.Info("job done")
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *queue.Job) error {
	if job.JobType != queue.JobTypeIndexDocument {
		return fmt.Errorf("unknown job type: %s", job.JobType)
	}

	if err := w.store.UpdateDocumentStatus(ctx, job.DocumentID, store.StatusProcessing, 0, ""); err != nil {
		return err
	}
	doc, err := w.store.GetDocument(ctx, job.DocumentID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", job.DocumentID, err)
	}

	extractor, err := extract.ForFile(doc.StoragePath)
	if err != nil {
		return err
	}
	pages, err := extractor.Pages(doc.StoragePath)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", doc.OriginalName, err)
	}

	chunks := chunker.MakeChunks(pages, w.chunk)
	if len(chunks) == 0 {
		// Nothing to index, but the document itself is fine.
		return w.store.UpdateDocumentStatus(ctx, job.DocumentID, store.StatusIndexed, len(pages), "")
	}

	ids, err := w.store.InsertChunks(ctx, job.DocumentID, chunks)
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := w.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vecs) != len(ids) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(ids))
	}

	if err := w.index.Add(ids, vecs); err != nil {
		return fmt.Errorf("indexing vectors: %w", err)
	}

	return w.store.UpdateDocumentStatus(ctx, job.DocumentID, store.StatusIndexed, len(pages), "")
}
