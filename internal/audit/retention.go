package audit

import (
	"context"
	"fmt"
	"time"

	"uniledger/internal/domain"
)

// RetentionPolicy configures the two optional sweep behaviors from
// spec.md §4.3 "Retention and rotation". Zero values disable each half
// independently.
type RetentionPolicy struct {
	// MaxAge prunes entries older than this on every sweep. Zero disables
	// time-based pruning.
	MaxAge time.Duration
	// MaxSizeBytes rotates the durable log to a timestamped archive once
	// its size exceeds this budget. Zero disables size-based rotation.
	MaxSizeBytes int64
}

// Sweep applies policy once: prune first, then rotate if still over
// budget. Neither operation rewrites any entry's integrityHash — prune
// deletes rows outright and rotate moves the whole log verbatim, so the
// chain within the retained/archived entries stays verifiable.
func (l *Log) Sweep(ctx context.Context, policy RetentionPolicy) error {
	if policy.MaxAge > 0 {
		cutoff := time.Now().UTC().Add(-policy.MaxAge).Unix()
		if _, err := l.store.Prune(ctx, cutoff); err != nil {
			return fmt.Errorf("prune audit log: %w", err)
		}
	}

	if policy.MaxSizeBytes > 0 {
		size, err := l.store.SizeBytes(ctx)
		if err != nil {
			return fmt.Errorf("measure audit log size: %w", err)
		}
		if size > policy.MaxSizeBytes {
			archiveName := time.Now().UTC().Format("20060102T150405Z")
			if err := l.store.Rotate(ctx, archiveName); err != nil {
				return fmt.Errorf("rotate audit log: %w", err)
			}
			// Rotation truncates storage; rehydrate the tail from the now-empty log.
			l.mu.Lock()
			l.nextSequence = 1
			l.lastIntegrityHash = domain.AuditRoot
			l.mu.Unlock()
		}
	}
	return nil
}
