// Package postgresstore is the relational storage backend option,
// grounded on dgdraganov-fethcher's internal/db (gorm.io/gorm +
// gorm.io/driver/postgres) for wallets/transactions/reference rows, and
// on a direct database/sql + github.com/lib/pq path for the audit log,
// whose rows are written with a plain INSERT carrying the sequence the
// Audit Log assigned (primary key on sequence) rather than a generic ORM
// Create.
package postgresstore

import "time"

// WalletRow is the gorm model backing the wallets table.
type WalletRow struct {
	ID                string `gorm:"primaryKey"`
	Address           string
	NormalizedAddress string `gorm:"uniqueIndex"`
	Family            string
	Label             string
	PublicKey         string
	MetadataJSON      string
	RolesJSON         string
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastSeenAt        *time.Time
}

func (WalletRow) TableName() string { return "wallets" }

// TransactionRow is the gorm model backing the transactions table.
type TransactionRow struct {
	ID          string `gorm:"primaryKey"`
	Type        string
	Tier        int
	Priority    float64
	PayloadJSON string
	Signature   string
	CreatedAt   time.Time
}

func (TransactionRow) TableName() string { return "transactions" }

// ProviderRow/PatientRow/ValidatorRow back the read-only reference
// directory tables.
type ProviderRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Specialty string
}

func (ProviderRow) TableName() string { return "providers" }

type PatientRow struct {
	ID                string `gorm:"primaryKey"`
	FullName          string
	DOB               time.Time
	PrimaryProviderID string
}

func (PatientRow) TableName() string { return "patients" }

type ValidatorRow struct {
	ID             string `gorm:"primaryKey"`
	Tier           int
	Reputation     float64
	BlocksProposed int
	Uptime         float64
	LastSeen       time.Time
}

func (ValidatorRow) TableName() string { return "validators" }

// KVRow backs the generic KV contract (nonce records, mempool snapshot)
// as a plain key/value table when running against Postgres.
type KVRow struct {
	Key   string `gorm:"primaryKey"`
	Value []byte
}

func (KVRow) TableName() string { return "kv_store" }
