package domain

import "time"

// Tier is one of {1,2,3}; determines mempool queue, capacity and
// downstream inclusion ordering.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// Tier capacities are fixed by spec, never configurable.
const (
	Tier1Capacity = 100
	Tier2Capacity = 2000
	Tier3Capacity = 8000
)

// Transaction is a signed clinical event awaiting admission to the
// mempool. Id is unique across the ledger; Tier, once admitted, is
// consistent with the PriorityBreakdown recorded at admission time.
type Transaction struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Tier      Tier      `json:"tier"`
	Priority  float64   `json:"priority"`
	Payload   Payload   `json:"payload"`
	Signature string    `json:"signature,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PatientID returns payload.patientId when it is a string.
func (t Transaction) PatientID() (string, bool) { return t.Payload.StringField("patientId") }

// Provider returns payload.provider when it is a string.
func (t Transaction) Provider() (string, bool) { return t.Payload.StringField("provider") }

// PriorityBreakdown holds the five-number scoring vector produced by
// the Context Engine. Invariant: Priority = clamp01(0.45*Criticality +
// 0.35*Sensitivity + 0.10*Resources + 0.10*Compliance).
type PriorityBreakdown struct {
	Criticality float64 `json:"criticality"`
	Sensitivity float64 `json:"sensitivity"`
	Resources   float64 `json:"resources"`
	Compliance  float64 `json:"compliance"`
	Priority    float64 `json:"priority"`
}

// MempoolEntry references a Transaction by value, plus the tier it was
// admitted into, the breakdown that produced its priority, and the
// admission timestamp.
type MempoolEntry struct {
	Transaction  Transaction       `json:"transaction"`
	Tier         Tier              `json:"tier"`
	Priority     float64           `json:"priority"`
	Breakdown    PriorityBreakdown `json:"breakdown"`
	AdmittedAt   time.Time         `json:"admittedAt"`
}

// MempoolSnapshot is the durable projection of mempool state: three
// ordered sequences, each sorted by priority descending.
type MempoolSnapshot struct {
	Tier1 []MempoolEntry `json:"tier1"`
	Tier2 []MempoolEntry `json:"tier2"`
	Tier3 []MempoolEntry `json:"tier3"`
}

// MempoolStats is the current sizes/capacities/validator-count view fed
// back into the Context Engine and surfaced at /health and /metrics.
type MempoolStats struct {
	Tier1Size         int `json:"tier1Size"`
	Tier2Size         int `json:"tier2Size"`
	Tier3Size         int `json:"tier3Size"`
	Tier1Capacity     int `json:"tier1Capacity"`
	Tier2Capacity     int `json:"tier2Capacity"`
	Tier3Capacity     int `json:"tier3Capacity"`
	ValidatorsOnline  int `json:"validatorsOnline"`
	ValidatorsTotal   int `json:"validatorsTotal"`
}

// TotalSize is the sum of all three tier sizes.
func (s MempoolStats) TotalSize() int { return s.Tier1Size + s.Tier2Size + s.Tier3Size }

// TotalCapacity is the sum of all three tier capacities.
func (s MempoolStats) TotalCapacity() int {
	return s.Tier1Capacity + s.Tier2Capacity + s.Tier3Capacity
}
