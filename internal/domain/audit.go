package domain

import "time"

// AuditOutcome is free-form in storage but these are the recognized
// values; anything else is operator-defined (spec.md Open Questions).
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailed  AuditOutcome = "failed"
	OutcomeBlocked AuditOutcome = "blocked"
)

// AuditEntry is one append-only row in the tamper-evident log. Sequence
// is assigned by the Audit Log before the entry is appended to storage;
// PrevHash binds it to the previous entry's
// IntegrityHash, forming the chain.
type AuditEntry struct {
	Sequence      int64             `json:"sequence"`
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Action        string            `json:"action"`
	ActorID       string            `json:"actorId"`
	ActorType     string            `json:"actorType"`
	Resource      string            `json:"resource"`
	Outcome       string            `json:"outcome"`
	PatientID     string            `json:"patientId,omitempty"`
	IPAddress     string            `json:"ipAddress,omitempty"`
	BlockHash     string            `json:"blockHash,omitempty"`
	Details       string            `json:"details,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Tags          []string          `json:"tags"`
	Channel       string            `json:"channel"`
	PrevHash      string            `json:"prevHash"`
	IntegrityHash string            `json:"integrityHash"`
}

// AuditRoot is the literal prevHash of the very first audit entry.
const AuditRoot = "AUDIT_ROOT"

// DefaultChannel is used when an audit record omits a channel.
const DefaultChannel = "system"

// AuditEntryInput is the caller-supplied subset of fields for record().
// Sequence/PrevHash/IntegrityHash/Timestamp/ID are assigned by the log.
type AuditEntryInput struct {
	Action    string
	ActorID   string
	ActorType string
	Resource  string
	Outcome   string
	PatientID string
	IPAddress string
	BlockHash string
	Details   string
	Metadata  map[string]string
	Tags      []string
	Channel   string
}

// AuditFilter composes query predicates with logical AND (spec.md §4.3).
type AuditFilter struct {
	ActorID   string
	ActorType string
	PatientID string
	Resource  string
	Action    string
	Outcome   string
	From      *time.Time
	To        *time.Time
	Tags      []string
	Search    string
}

// AuditDirection selects pagination order by sequence.
type AuditDirection string

const (
	DirectionDesc AuditDirection = "desc"
	DirectionAsc  AuditDirection = "asc"
)

// AuditQuery is the paginated filtered scan request.
type AuditQuery struct {
	Filter    AuditFilter
	Limit     int
	Cursor    string
	Direction AuditDirection
}

// AuditQueryResult is the paginated filtered scan response.
type AuditQueryResult struct {
	Entries        []AuditEntry `json:"entries"`
	TotalMatches   int          `json:"totalMatches"`
	NextCursor     string       `json:"nextCursor,omitempty"`
	PreviousCursor string       `json:"previousCursor,omitempty"`
	HasMore        bool         `json:"hasMore"`
}
