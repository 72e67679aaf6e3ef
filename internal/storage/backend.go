// Package storage defines the durable persistence contract every
// subsystem (mempool, audit log, wallet registry/nonce store,
// transaction store) is built against. Two concrete backends satisfy
// it: a file-based KV store (internal/storage/leveldbstore) and a
// relational store (internal/storage/postgresstore). Neither subsystem
// package imports a concrete backend directly — only this interface.
package storage

import (
	"context"
	"errors"

	"uniledger/internal/domain"
)

// ErrNotFound is returned by Get-style lookups that miss.
var ErrNotFound = errors.New("storage: not found")

// KV is the minimal durable key-value contract the mempool snapshot,
// wallet registry and nonce store are built on.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Scan returns every value whose key has the given prefix.
	Scan(ctx context.Context, prefix string) ([][]byte, error)
}

// AuditStore is the append-only contract the Audit Log is built on.
// Append stores the entry under the Sequence the Audit Log already
// assigned to it; it does not assign sequences itself.
type AuditStore interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	Tail(ctx context.Context) (domain.AuditEntry, bool, error)
	// ScanAll returns every entry in the log. Named distinctly from
	// KV.Scan (prefix scan) since a single backend type satisfies both
	// interfaces and Go does not allow overloading a method name with
	// a different signature on the same receiver.
	ScanAll(ctx context.Context) ([]domain.AuditEntry, error)
	// Prune deletes entries with Timestamp before cutoffUnix and
	// reports how many rows were removed.
	Prune(ctx context.Context, cutoffUnix int64) (int, error)
	// SizeBytes reports the approximate durable size of the log, used
	// by the size-rotation policy.
	SizeBytes(ctx context.Context) (int64, error)
	// Rotate archives the current log under archiveName and starts a
	// fresh one.
	Rotate(ctx context.Context, archiveName string) error
}

// TransactionStore is the upsert/query contract for admitted
// transactions (distinct from the in-memory mempool, which is the
// priority-ordered working set; this is the durable record used for
// GET /transactions filtering).
type TransactionStore interface {
	Upsert(ctx context.Context, tx domain.Transaction) error
	Query(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
}

// TransactionFilter mirrors the GET /transactions query parameters.
type TransactionFilter struct {
	PatientID string
	Type      string
	Priority  string
	Status    string
	Limit     int
}

// ReferenceStore exposes the read-only providers/patients/validators
// directory.
type ReferenceStore interface {
	Providers(ctx context.Context) ([]domain.Provider, error)
	Patients(ctx context.Context) ([]domain.Patient, error)
	Validators(ctx context.Context) ([]domain.Validator, error)
}

// Backend bundles every durable contract a deployment needs. A single
// implementation may satisfy all of them (leveldbstore.Store does), or
// a deployment may compose them from different concrete stores (e.g.
// postgresstore.Store for everything plus a dedicated SQL audit store).
type Backend interface {
	KV
	AuditStore
	TransactionStore
	ReferenceStore
	Close() error
}
