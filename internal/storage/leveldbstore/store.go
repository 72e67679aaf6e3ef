// Package leveldbstore is the default file-based storage backend,
// grounded on the teacher's core/storage/storage.go: a goleveldb
// instance keyed by entity-prefixed strings ("wallet:", "nonce:",
// "audit:", "tx:", "mempool:snapshot", ...), generalized from the
// teacher's single "block:"/"height:" prefix pair.
package leveldbstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"uniledger/internal/domain"
	"uniledger/internal/storage"
)

const (
	prefixWallet      = "wallet:"
	prefixNonce       = "nonce:"
	prefixAudit       = "audit:"
	prefixAuditTail   = "audit-tail"
	prefixTx          = "tx:"
	mempoolSnapshotKey = "mempool:snapshot"
	prefixProvider    = "ref:provider:"
	prefixPatient     = "ref:patient:"
	prefixValidator   = "ref:validator:"
)

// Store is a goleveldb-backed implementation of storage.Backend.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the LevelDB database rooted at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

var _ storage.Backend = (*Store)(nil)

// --- KV ---

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	return s.db.Put([]byte(key), value, nil)
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Delete([]byte(key), nil)
}

func (s *Store) Scan(_ context.Context, prefix string) ([][]byte, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var out [][]byte
	for iter.Next() {
		v := make([]byte, len(iter.Value()))
		copy(v, iter.Value())
		out = append(out, v)
	}
	return out, iter.Error()
}

// --- AuditStore ---

// auditTailState tracks nextSequence/lastIntegrityHash so Tail() is O(1)
// instead of a full scan; written in the same batch as every Append and
// deleted by Rotate.
type auditTailState struct {
	NextSequence     int64  `json:"nextSequence"`
	LastIntegrityHash string `json:"lastIntegrityHash"`
}

func auditKey(seq int64) string {
	// Zero-padded so lexicographic iteration order matches sequence order.
	return fmt.Sprintf("%s%020d", prefixAudit, seq)
}

func (s *Store) Append(ctx context.Context, entry domain.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte(auditKey(entry.Sequence)), data)

	tail := auditTailState{NextSequence: entry.Sequence + 1, LastIntegrityHash: entry.IntegrityHash}
	tailData, err := json.Marshal(tail)
	if err != nil {
		return fmt.Errorf("marshal audit tail: %w", err)
	}
	batch.Put([]byte(prefixAuditTail), tailData)

	return s.db.Write(batch, nil)
}

func (s *Store) Tail(_ context.Context, ) (domain.AuditEntry, bool, error) {
	raw, err := s.db.Get([]byte(prefixAuditTail), nil)
	if err == leveldb.ErrNotFound {
		return domain.AuditEntry{}, false, nil
	}
	if err != nil {
		return domain.AuditEntry{}, false, err
	}
	var tail auditTailState
	if err := json.Unmarshal(raw, &tail); err != nil {
		return domain.AuditEntry{}, false, fmt.Errorf("unmarshal audit tail: %w", err)
	}
	if tail.NextSequence <= 1 {
		return domain.AuditEntry{}, false, nil
	}
	entryData, err := s.db.Get([]byte(auditKey(tail.NextSequence-1)), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return domain.AuditEntry{}, false, nil
		}
		return domain.AuditEntry{}, false, err
	}
	var entry domain.AuditEntry
	if err := json.Unmarshal(entryData, &entry); err != nil {
		return domain.AuditEntry{}, false, fmt.Errorf("unmarshal audit entry: %w", err)
	}
	return entry, true, nil
}

func (s *Store) ScanAll(ctx context.Context) ([]domain.AuditEntry, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixAudit)), nil)
	defer iter.Release()

	var out []domain.AuditEntry
	for iter.Next() {
		key := iter.Key()
		if bytes.Equal(key, []byte(prefixAuditTail)) {
			continue
		}
		var entry domain.AuditEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal audit entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, iter.Error()
}

func (s *Store) Prune(ctx context.Context, cutoffUnix int64) (int, error) {
	entries, err := s.ScanAll(ctx)
	if err != nil {
		return 0, err
	}
	batch := new(leveldb.Batch)
	removed := 0
	for _, e := range entries {
		if e.Timestamp.Unix() < cutoffUnix {
			batch.Delete([]byte(auditKey(e.Sequence)))
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.db.Write(batch, nil)
}

func (s *Store) SizeBytes(ctx context.Context) (int64, error) {
	entries, err := s.ScanAll(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return 0, err
		}
		total += int64(len(data))
	}
	return total, nil
}

func (s *Store) Rotate(ctx context.Context, archiveName string) error {
	entries, err := s.ScanAll(ctx)
	if err != nil {
		return err
	}
	archive := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		archive = append(archive, data)
	}
	archiveData, err := json.Marshal(archive)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte("archive:"+archiveName), archiveData)
	for _, e := range entries {
		batch.Delete([]byte(auditKey(e.Sequence)))
	}
	batch.Delete([]byte(prefixAuditTail))
	return s.db.Write(batch, nil)
}

// --- TransactionStore ---

func (s *Store) Upsert(_ context.Context, tx domain.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	return s.db.Put([]byte(prefixTx+tx.ID), data, nil)
}

func (s *Store) Query(ctx context.Context, filter storage.TransactionFilter) ([]domain.Transaction, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixTx)), nil)
	defer iter.Release()

	var out []domain.Transaction
	for iter.Next() {
		var tx domain.Transaction
		if err := json.Unmarshal(iter.Value(), &tx); err != nil {
			return nil, fmt.Errorf("unmarshal transaction: %w", err)
		}
		if !matchesFilter(tx, filter) {
			continue
		}
		out = append(out, tx)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, iter.Error()
}

func matchesFilter(tx domain.Transaction, f storage.TransactionFilter) bool {
	if f.PatientID != "" {
		pid, _ := tx.PatientID()
		if pid != f.PatientID {
			return false
		}
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Priority != "" {
		want, err := strconv.Atoi(f.Priority)
		if err == nil && int(tx.Tier) != want {
			return false
		}
	}
	return true
}

// --- ReferenceStore ---

func (s *Store) Providers(ctx context.Context) ([]domain.Provider, error) {
	raws, err := s.Scan(ctx, prefixProvider)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Provider, 0, len(raws))
	for _, raw := range raws {
		var p domain.Provider
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) Patients(ctx context.Context) ([]domain.Patient, error) {
	raws, err := s.Scan(ctx, prefixPatient)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Patient, 0, len(raws))
	for _, raw := range raws {
		var p domain.Patient
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) Validators(ctx context.Context) ([]domain.Validator, error) {
	raws, err := s.Scan(ctx, prefixValidator)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Validator, 0, len(raws))
	for _, raw := range raws {
		var v domain.Validator
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SeedReference loads the read-only directory (providers, patients,
// validators) into storage in one batch. No startup path in this
// repository calls it. Mutating the directory afterward is out of scope
// (spec.md §3).
func (s *Store) SeedReference(ctx context.Context, providers []domain.Provider, patients []domain.Patient, validators []domain.Validator) error {
	batch := new(leveldb.Batch)
	for _, p := range providers {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		batch.Put([]byte(prefixProvider+p.ID), data)
	}
	for _, p := range patients {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		batch.Put([]byte(prefixPatient+p.ID), data)
	}
	for _, v := range validators {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		batch.Put([]byte(prefixValidator+v.ID), data)
	}
	return s.db.Write(batch, nil)
}

// MempoolSnapshotKey is exported so the mempool package can Get/Put it
// through the plain KV contract without this package needing to know
// about domain.MempoolSnapshot's JSON shape.
const MempoolSnapshotKey = mempoolSnapshotKey
