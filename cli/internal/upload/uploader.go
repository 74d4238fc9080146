package upload

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"nuxthub/cli/internal/assets"
	"nuxthub/shared"
)

var logger = shared.PackageLogger("upload", "⬆️  UPLOAD")

// DefaultConcurrency is the number of batches in flight per wave.
const DefaultConcurrency = 5

// Target stores one batch of content-addressed files. Implementations must be idempotent.
type Target interface {
	UploadBatch(ctx context.Context, batch []assets.FileArtifact) error
}

// Finalizer is implemented by targets that need a closing call once every batch is stored.
type Finalizer interface {
	Finalize(ctx context.Context, hashes []string) error
}

// Progress is reported after every successful batch. Counts are cumulative.
type Progress struct {
	FilesUploaded int
	BytesUploaded int64
	TotalFiles    int
	TotalBytes    int64
}

type ProgressFunc func(Progress)

type Uploader struct {
	target        Target
	maxBatchBytes int64
	concurrency   int
	retry         RetryPolicy
}

type Option func(*Uploader)

func WithMaxBatchBytes(n int64) Option {
	return func(u *Uploader) { u.maxBatchBytes = n }
}

func WithConcurrency(n int) Option {
	return func(u *Uploader) { u.concurrency = n }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(u *Uploader) { u.retry = p }
}

func New(target Target, opts ...Option) *Uploader {
	u := &Uploader{
		target:        target,
		maxBatchBytes: DefaultMaxBatchBytes,
		concurrency:   DefaultConcurrency,
		retry:         DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.concurrency < 1 {
		u.concurrency = 1
	}
	return u
}

// Upload sends files in waves of concurrent batches. Each wave completes
// before the next starts; the first batch to exhaust its retries aborts the
// upload and no further batches are attempted.
func (u *Uploader) Upload(ctx context.Context, files []assets.FileArtifact, onProgress ProgressFunc) error {
	if len(files) == 0 {
		return nil
	}
	batches := Partition(files, u.maxBatchBytes)
	logger.Debug("Uploading %d files in %d batches (%d concurrent)", len(files), len(batches), u.concurrency)

	var (
		mu       sync.Mutex
		progress = Progress{TotalFiles: len(files), TotalBytes: assets.TotalSize(files)}
	)

	for start := 0; start < len(batches); start += u.concurrency {
		end := min(start+u.concurrency, len(batches))

		g, gctx := errgroup.WithContext(ctx)
		for _, batch := range batches[start:end] {
			batch := batch
			g.Go(func() error {
				attempts, err := u.retry.Do(gctx, func(ctx context.Context) error {
					return u.target.UploadBatch(ctx, batch)
				})
				if err != nil {
					return &shared.UploadError{Paths: batchPaths(batch), Attempts: attempts, Err: err}
				}

				mu.Lock()
				defer mu.Unlock()
				progress.FilesUploaded += len(batch)
				progress.BytesUploaded += assets.TotalSize(batch)
				if onProgress != nil {
					onProgress(progress)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if f, ok := u.target.(Finalizer); ok {
		hashes := make([]string, 0, len(files))
		for _, file := range files {
			hashes = append(hashes, file.Hash)
		}
		if _, err := u.retry.Do(ctx, func(ctx context.Context) error {
			return f.Finalize(ctx, hashes)
		}); err != nil {
			return fmt.Errorf("finalize upload: %w", err)
		}
	}
	return nil
}

func batchPaths(batch []assets.FileArtifact) []string {
	out := make([]string, 0, len(batch))
	for _, f := range batch {
		out = append(out, f.Path)
	}
	return out
}
