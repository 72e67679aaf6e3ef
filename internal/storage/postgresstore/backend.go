package postgresstore

import (
	"fmt"

	"uniledger/internal/storage"
)

// Backend composes the gorm-backed Store with the direct-SQL SQLAudit
// into a single storage.Backend, so a deployment pointed at
// DATABASE_URL gets one relational database serving every subsystem
// even though the audit log's contiguous-sequence invariant is easier
// to guarantee with a hand-written INSERT than through gorm's
// higher-level query builder.
type Backend struct {
	*Store
	*SQLAudit
}

// OpenBackend opens both halves against the same dsn and pairs them.
func OpenBackend(dsn string) (*Backend, error) {
	store, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	audit, err := OpenSQLAudit(dsn)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	return &Backend{Store: store, SQLAudit: audit}, nil
}

// Close closes both underlying connections. Store and SQLAudit each
// hold their own *sql.DB, so both must be closed explicitly; embedding
// alone would leave Close ambiguous between them.
func (b *Backend) Close() error {
	storeErr := b.Store.Close()
	auditErr := b.SQLAudit.Close()
	if storeErr != nil {
		return storeErr
	}
	return auditErr
}

var _ storage.Backend = (*Backend)(nil)
