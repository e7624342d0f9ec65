package googlecloud

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/datastore"
)

// Common Datastore errors for easier handling in services.
var (
	ErrNotFound   = errors.New("entity not found")
	ErrInvalidKey = errors.New("invalid key")
)

// WrapDatastoreError converts Datastore-specific errors to domain errors.
func WrapDatastoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return ErrNotFound
	}
	return err
}

// IsNotFoundError checks if an error is a not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, datastore.ErrNoSuchEntity)
}

// --- Retry Logic ---

// RetryConfig holds configuration for retry operations.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// DefaultRetryConfig returns sensible defaults for retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     2 * time.Second,
	}
}

// WithRetry executes fn with exponential backoff. Invalid keys and missing
// entities are returned at once.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	wait := cfg.InitialWait

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrInvalidKey) || IsNotFoundError(err) {
			return err
		}
		lastErr = err

		// Don't wait after the last attempt
		if attempt < cfg.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
			if wait > cfg.MaxWait {
				wait = cfg.MaxWait
			}
		}
	}
	return lastErr
}

// --- Versioning ---

// VersionedEntity is an interface for entities carrying a save counter.
type VersionedEntity interface {
	GetVersion() int64
	SetVersion(int64)
}

// --- Upsert Pattern ---

// UpsertReport creates or replaces a report, keeping its creation time and
// bumping its version.
func (c *Client) UpsertReport(ctx context.Context, report *ReportEntity) error {
	if report.Path == "" {
		return ErrInvalidKey
	}

	key := reportKey(report.Path)

	_, err := c.ds.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing ReportEntity
		err := tx.Get(key, &existing)

		now := time.Now()
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			report.CreatedAt = now
			bumpVersion(report, 0)
		} else if err != nil {
			return err
		} else {
			report.CreatedAt = existing.CreatedAt
			bumpVersion(report, existing.GetVersion())
		}
		report.UpdatedAt = now

		_, err = tx.Put(key, report)
		return err
	})

	return err
}

func bumpVersion(e VersionedEntity, from int64) {
	e.SetVersion(from + 1)
}
