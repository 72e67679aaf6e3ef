package postgresstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver

	"uniledger/internal/domain"
	"uniledger/internal/storage"
)

// SQLAudit is a direct database/sql + lib/pq implementation of
// storage.AuditStore. It exists separately from Store because the
// audit log's sequence is written with a plain INSERT of the value the
// Audit Log assigned, into a BIGSERIAL primary-key column that rejects a
// duplicate sequence, rather than through gorm's generic Create path.
type SQLAudit struct {
	db *sql.DB
}

const createAuditTable = `
CREATE TABLE IF NOT EXISTS audit_log (
	sequence       BIGSERIAL PRIMARY KEY,
	id             TEXT NOT NULL,
	ts             TIMESTAMPTZ NOT NULL,
	action         TEXT NOT NULL,
	actor_id       TEXT NOT NULL,
	actor_type     TEXT NOT NULL,
	resource       TEXT NOT NULL,
	outcome        TEXT NOT NULL,
	patient_id     TEXT,
	ip_address     TEXT,
	block_hash     TEXT,
	details        TEXT,
	metadata_json  TEXT,
	tags_json      TEXT,
	channel        TEXT NOT NULL,
	prev_hash      TEXT NOT NULL,
	integrity_hash TEXT NOT NULL
)`

// OpenSQLAudit opens a raw database/sql connection against dsn and
// ensures the audit_log table exists.
func OpenSQLAudit(dsn string) (*SQLAudit, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(createAuditTable); err != nil {
		return nil, fmt.Errorf("create audit_log table: %w", err)
	}
	return &SQLAudit{db: db}, nil
}

func (a *SQLAudit) Append(ctx context.Context, entry domain.AuditEntry) error {
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return err
	}
	tagsJSON, err := json.Marshal(entry.Tags)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO audit_log
			(sequence, id, ts, action, actor_id, actor_type, resource, outcome,
			 patient_id, ip_address, block_hash, details, metadata_json, tags_json,
			 channel, prev_hash, integrity_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err = a.db.ExecContext(ctx, q,
		entry.Sequence, entry.ID, entry.Timestamp, entry.Action, entry.ActorID, entry.ActorType,
		entry.Resource, entry.Outcome, entry.PatientID, entry.IPAddress, entry.BlockHash,
		entry.Details, string(metaJSON), string(tagsJSON), entry.Channel, entry.PrevHash, entry.IntegrityHash)
	return err
}

func (a *SQLAudit) Tail(ctx context.Context) (domain.AuditEntry, bool, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audit_log ORDER BY sequence DESC LIMIT 1`)
	entry, err := scanAuditRow(row)
	if err == sql.ErrNoRows {
		return domain.AuditEntry{}, false, nil
	}
	if err != nil {
		return domain.AuditEntry{}, false, err
	}
	return entry, true, nil
}

func (a *SQLAudit) ScanAll(ctx context.Context) ([]domain.AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT `+auditColumns+` FROM audit_log ORDER BY sequence ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		entry, err := scanAuditRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (a *SQLAudit) Prune(ctx context.Context, cutoffUnix int64) (int, error) {
	res, err := a.db.ExecContext(ctx, `DELETE FROM audit_log WHERE ts < to_timestamp($1)`, cutoffUnix)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (a *SQLAudit) SizeBytes(ctx context.Context) (int64, error) {
	var size int64
	err := a.db.QueryRowContext(ctx, `SELECT pg_total_relation_size('audit_log')`).Scan(&size)
	return size, err
}

func (a *SQLAudit) Rotate(ctx context.Context, archiveName string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	archiveTable := fmt.Sprintf("audit_log_archive_%s", archiveName)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (LIKE audit_log INCLUDING ALL)`, archiveTable)); err != nil {
		return fmt.Errorf("create archive table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %q SELECT * FROM audit_log`, archiveTable)); err != nil {
		return fmt.Errorf("copy into archive: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `TRUNCATE audit_log`); err != nil {
		return fmt.Errorf("truncate audit_log: %w", err)
	}
	return tx.Commit()
}

func (a *SQLAudit) Close() error { return a.db.Close() }

const auditColumns = `sequence, id, ts, action, actor_id, actor_type, resource, outcome,
	patient_id, ip_address, block_hash, details, metadata_json, tags_json,
	channel, prev_hash, integrity_hash`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditRow(row *sql.Row) (domain.AuditEntry, error)   { return scanAudit(row) }
func scanAuditRows(rows *sql.Rows) (domain.AuditEntry, error) { return scanAudit(rows) }

func scanAudit(s rowScanner) (domain.AuditEntry, error) {
	var e domain.AuditEntry
	var metaJSON, tagsJSON string
	var patientID, ipAddress, blockHash, details sql.NullString

	err := s.Scan(&e.Sequence, &e.ID, &e.Timestamp, &e.Action, &e.ActorID, &e.ActorType,
		&e.Resource, &e.Outcome, &patientID, &ipAddress, &blockHash, &details,
		&metaJSON, &tagsJSON, &e.Channel, &e.PrevHash, &e.IntegrityHash)
	if err != nil {
		return domain.AuditEntry{}, err
	}

	e.PatientID = patientID.String
	e.IPAddress = ipAddress.String
	e.BlockHash = blockHash.String
	e.Details = details.String

	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			return domain.AuditEntry{}, err
		}
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
			return domain.AuditEntry{}, err
		}
	}
	return e, nil
}

var _ storage.AuditStore = (*SQLAudit)(nil)
