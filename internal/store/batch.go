package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"rtcwstats/internal/constants"
)

// Batcher chunks large write sets to the store's per-request ceiling and
// resubmits only the unprocessed remainder of a partially accepted chunk,
// backing off exponentially with jitter between attempts.
type Batcher struct {
	writer      BatchWriter
	chunkSize   int
	maxAttempts uint64
	baseBackoff time.Duration
	logger      zerolog.Logger
}

type BatcherOption func(*Batcher)

// WithChunkSize overrides the per-request item ceiling.
func WithChunkSize(n int) BatcherOption {
	return func(b *Batcher) { b.chunkSize = n }
}

// WithMaxAttempts bounds retries of an unprocessed subset.
func WithMaxAttempts(n uint64) BatcherOption {
	return func(b *Batcher) { b.maxAttempts = n }
}

// WithBaseBackoff sets the first retry delay; tests inject a tiny value.
func WithBaseBackoff(d time.Duration) BatcherOption {
	return func(b *Batcher) { b.baseBackoff = d }
}

func NewBatcher(writer BatchWriter, logger zerolog.Logger, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		writer:      writer,
		chunkSize:   constants.BatchChunkSize,
		maxAttempts: constants.BatchMaxAttempts,
		baseBackoff: constants.BatchBaseBackoff,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PutAll writes every record, chunked and retried.
func (b *Batcher) PutAll(ctx context.Context, recs []Record) error {
	for start := 0; start < len(recs); start += b.chunkSize {
		end := start + b.chunkSize
		if end > len(recs) {
			end = len(recs)
		}
		if err := b.writeChunk(ctx, recs[start:end], nil); err != nil {
			return fmt.Errorf("batch put chunk at %d: %w", start, err)
		}
	}
	return nil
}

// DeleteAll deletes every key, chunked and retried.
func (b *Batcher) DeleteAll(ctx context.Context, keys []Key) error {
	for start := 0; start < len(keys); start += b.chunkSize {
		end := start + b.chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := b.writeChunk(ctx, nil, keys[start:end]); err != nil {
			return fmt.Errorf("batch delete chunk at %d: %w", start, err)
		}
	}
	return nil
}

func (b *Batcher) writeChunk(ctx context.Context, puts []Record, deletes []Key) error {
	backoff := retry.WithMaxRetries(b.maxAttempts, retry.NewExponential(b.baseBackoff))
	backoff = retry.WithJitterPercent(10, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		leftPuts, leftDeletes, err := b.writer.WriteBatch(ctx, puts, deletes)
		if err != nil {
			b.logger.Warn().Err(err).Int("puts", len(puts)).Int("deletes", len(deletes)).Msg("batch write failed, retrying")
			return retry.RetryableError(err)
		}
		if len(leftPuts) == 0 && len(leftDeletes) == 0 {
			return nil
		}
		b.logger.Warn().
			Int("unprocessed_puts", len(leftPuts)).
			Int("unprocessed_deletes", len(leftDeletes)).
			Msg("store accepted chunk partially, resubmitting remainder")
		puts = leftPuts
		deletes = leftDeletes
		return retry.RetryableError(fmt.Errorf("store left %d puts and %d deletes unprocessed", len(leftPuts), len(leftDeletes)))
	})
}
