package postgresstore

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"uniledger/internal/domain"
	"uniledger/internal/storage"
)

// Store is the gorm-backed relational implementation of everything in
// storage.Backend except the audit log, which is handled by SQLAudit
// (lib/pq, direct SQL) and composed alongside a Store by the caller.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the domain tables, the way
// fethcher's internal/db.NewGormDB + MigrateModels does.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := db.AutoMigrate(&WalletRow{}, &TransactionRow{}, &ProviderRow{}, &PatientRow{}, &ValidatorRow{}, &KVRow{}); err != nil {
		return nil, fmt.Errorf("migrate tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- KV (nonces, mempool snapshot) backed by kv_store ---

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var row KVRow
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return row.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	row := KVRow{Key: key, Value: value}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&KVRow{}).Error
}

func (s *Store) Scan(ctx context.Context, prefix string) ([][]byte, error) {
	var rows []KVRow
	if err := s.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Value)
	}
	return out, nil
}

// --- TransactionStore ---

func (s *Store) Upsert(ctx context.Context, tx domain.Transaction) error {
	payload, err := json.Marshal(tx.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	row := TransactionRow{
		ID:          tx.ID,
		Type:        tx.Type,
		Tier:        int(tx.Tier),
		Priority:    tx.Priority,
		PayloadJSON: string(payload),
		Signature:   tx.Signature,
		CreatedAt:   tx.CreatedAt,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Store) Query(ctx context.Context, filter storage.TransactionFilter) ([]domain.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&TransactionRow{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.PatientID != "" {
		q = q.Where("payload_json LIKE ?", "%\""+filter.PatientID+"\"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []TransactionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		var payload domain.Payload
		if err := json.Unmarshal([]byte(r.PayloadJSON), &payload); err != nil {
			return nil, err
		}
		out = append(out, domain.Transaction{
			ID: r.ID, Type: r.Type, Tier: domain.Tier(r.Tier), Priority: r.Priority,
			Payload: payload, Signature: r.Signature, CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// --- ReferenceStore ---

func (s *Store) Providers(ctx context.Context) ([]domain.Provider, error) {
	var rows []ProviderRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Provider, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Provider{ID: r.ID, Name: r.Name, Specialty: r.Specialty})
	}
	return out, nil
}

func (s *Store) Patients(ctx context.Context) ([]domain.Patient, error) {
	var rows []PatientRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Patient, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Patient{ID: r.ID, FullName: r.FullName, DOB: r.DOB, PrimaryProviderID: r.PrimaryProviderID})
	}
	return out, nil
}

func (s *Store) Validators(ctx context.Context) ([]domain.Validator, error) {
	var rows []ValidatorRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Validator, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Validator{
			ID: r.ID, Tier: r.Tier, Reputation: r.Reputation,
			BlocksProposed: r.BlocksProposed, Uptime: r.Uptime, LastSeen: r.LastSeen,
		})
	}
	return out, nil
}

// WalletRowFromProfile/ProfileFromRow convert between the domain type
// and the gorm row, used by the wallet registry when wired against
// Postgres instead of the KV-generic encoding leveldbstore uses.
func WalletRowFromProfile(w domain.WalletProfile) (WalletRow, error) {
	metaJSON, err := json.Marshal(w.Metadata)
	if err != nil {
		return WalletRow{}, err
	}
	rolesJSON, err := json.Marshal(w.Roles)
	if err != nil {
		return WalletRow{}, err
	}
	return WalletRow{
		ID: w.ID, Address: w.Address, NormalizedAddress: w.NormalizedAddress,
		Family: string(w.Family), Label: w.Label, PublicKey: w.PublicKey,
		MetadataJSON: string(metaJSON), RolesJSON: string(rolesJSON),
		Status: string(w.Status), CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt,
		LastSeenAt: w.LastSeenAt,
	}, nil
}

func ProfileFromRow(r WalletRow) (domain.WalletProfile, error) {
	var meta map[string]string
	if r.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(r.MetadataJSON), &meta); err != nil {
			return domain.WalletProfile{}, err
		}
	}
	var roles []string
	if r.RolesJSON != "" {
		if err := json.Unmarshal([]byte(r.RolesJSON), &roles); err != nil {
			return domain.WalletProfile{}, err
		}
	}
	return domain.WalletProfile{
		ID: r.ID, Address: r.Address, NormalizedAddress: r.NormalizedAddress,
		Family: domain.WalletFamily(r.Family), Label: r.Label, PublicKey: r.PublicKey,
		Metadata: meta, Roles: roles, Status: domain.WalletStatus(r.Status),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, LastSeenAt: r.LastSeenAt,
	}, nil
}
