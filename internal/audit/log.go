// Package audit is the Append-only Audit Log: every entry binds the
// previous entry's integrity hash, forming a tamper-evident chain
// (spec.md §3, §4.3). Sequences are assigned here, serialized behind a
// single mutex so hash-chain construction is never interleaved; queries
// read straight from storage and are never blocked by an append.
//
// Canonical hashing is grounded on the teacher's core/block/merkle.go
// (sha256 over a deterministic byte sequence) and
// finalize_event_tx.go's MarshalCanonical pattern (an explicit mirror
// struct with a fixed field order; encoding/json writes struct fields in
// declaration order and map keys in sorted order, so the metadata map
// needs no separate sorting pass).
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"uniledger/internal/domain"
	"uniledger/internal/storage"
)

// ErrMissingField is returned, wrapped with the field name, when Record's
// input lacks one of action, actorId, actorType, resource or outcome.
var ErrMissingField = fmt.Errorf("audit: missing required field")

// Log is the Audit Log component. It owns the append-serialization
// lock and the in-memory tail (nextSequence, lastIntegrityHash),
// rehydrated from storage at construction.
type Log struct {
	mu sync.Mutex

	store storage.AuditStore

	nextSequence      int64
	lastIntegrityHash string
}

// Open constructs a Log bound to store and rehydrates its tail from the
// last stored entry, so lastIntegrityHash/nextSequence survive restart
// without any process-level global (spec.md §5 "Global state").
func Open(ctx context.Context, store storage.AuditStore) (*Log, error) {
	l := &Log{store: store}

	tail, ok, err := store.Tail(ctx)
	if err != nil {
		return nil, fmt.Errorf("read audit tail: %w", err)
	}
	if !ok {
		l.nextSequence = 1
		l.lastIntegrityHash = domain.AuditRoot
		return l, nil
	}
	l.nextSequence = tail.Sequence + 1
	l.lastIntegrityHash = tail.IntegrityHash
	return l, nil
}

// Record validates input, assigns the next sequence and hash-chain
// fields, appends durably, and returns the canonical entry.
func (l *Log) Record(ctx context.Context, input domain.AuditEntryInput) (domain.AuditEntry, error) {
	if err := validateInput(input); err != nil {
		return domain.AuditEntry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	channel := input.Channel
	if channel == "" {
		channel = domain.DefaultChannel
	}
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	entry := domain.AuditEntry{
		Sequence:  l.nextSequence,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    input.Action,
		ActorID:   input.ActorID,
		ActorType: input.ActorType,
		Resource:  input.Resource,
		Outcome:   input.Outcome,
		PatientID: input.PatientID,
		IPAddress: input.IPAddress,
		BlockHash: input.BlockHash,
		Details:   input.Details,
		Metadata:  input.Metadata,
		Tags:      tags,
		Channel:   channel,
		PrevHash:  l.lastIntegrityHash,
	}
	entry.IntegrityHash = IntegrityHash(entry)

	if err := l.store.Append(ctx, entry); err != nil {
		return domain.AuditEntry{}, fmt.Errorf("append audit entry: %w", err)
	}

	l.nextSequence++
	l.lastIntegrityHash = entry.IntegrityHash

	return entry, nil
}

func validateInput(in domain.AuditEntryInput) error {
	switch {
	case in.Action == "":
		return fmt.Errorf("%w: action", ErrMissingField)
	case in.ActorID == "":
		return fmt.Errorf("%w: actorId", ErrMissingField)
	case in.ActorType == "":
		return fmt.Errorf("%w: actorType", ErrMissingField)
	case in.Resource == "":
		return fmt.Errorf("%w: resource", ErrMissingField)
	case in.Outcome == "":
		return fmt.Errorf("%w: outcome", ErrMissingField)
	}
	return nil
}

// canonicalEntry mirrors AuditEntry's hashed field set with sorted
// metadata and a fixed key order, so two processes computing the hash
// for logically identical fields always agree.
type canonicalEntry struct {
	PrevHash  string            `json:"prevHash"`
	Sequence  int64             `json:"sequence"`
	Timestamp string            `json:"timestamp"`
	Action    string            `json:"action"`
	ActorID   string            `json:"actorId"`
	ActorType string            `json:"actorType"`
	Resource  string            `json:"resource"`
	Outcome   string            `json:"outcome"`
	PatientID string            `json:"patientId"`
	IPAddress string            `json:"ipAddress"`
	BlockHash string            `json:"blockHash"`
	Details   string            `json:"details"`
	Metadata  map[string]string `json:"metadata"`
	Tags      []string          `json:"tags"`
	Channel   string            `json:"channel"`
}

// IntegrityHash computes entry's integrity hash per spec.md §4.3: SHA-256
// of the canonical JSON serialization of the hashed field set. Exported
// so callers (chain verification, tests) can recompute and compare.
func IntegrityHash(e domain.AuditEntry) string {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	sortedTags := append([]string{}, tags...)
	sort.Strings(sortedTags)

	c := canonicalEntry{
		PrevHash:  e.PrevHash,
		Sequence:  e.Sequence,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:    e.Action,
		ActorID:   e.ActorID,
		ActorType: e.ActorType,
		Resource:  e.Resource,
		Outcome:   e.Outcome,
		PatientID: e.PatientID,
		IPAddress: e.IPAddress,
		BlockHash: e.BlockHash,
		Details:   e.Details,
		Metadata:  metadata,
		Tags:      sortedTags,
		Channel:   e.Channel,
	}
	// encoding/json sorts map keys by default, giving a stable byte
	// sequence across processes without a hand-rolled key sort here.
	data, err := json.Marshal(c)
	if err != nil {
		// Every field is a concrete, marshalable type; this cannot fail.
		panic(fmt.Sprintf("audit: canonical marshal: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChain recomputes every entry's integrityHash and checks the
// prevHash linkage, returning the index of the first broken entry (or
// -1 if the whole chain verifies).
func VerifyChain(entries []domain.AuditEntry) int {
	prev := domain.AuditRoot
	for i, e := range entries {
		if e.PrevHash != prev {
			return i
		}
		if IntegrityHash(e) != e.IntegrityHash {
			return i
		}
		prev = e.IntegrityHash
	}
	return -1
}
