package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"uniledger/internal/domain"
)

// csvColumns is the fixed export column order (spec.md §6).
var csvColumns = []string{
	"sequence", "id", "timestamp", "action", "actorId", "actorType",
	"resource", "outcome", "patientId", "ipAddress", "blockHash",
	"channel", "tags", "details",
}

// ExportCSV renders every entry matching filter as CSV with the fixed
// column order; encoding/csv handles quoting of commas, quotes and
// newlines (RFC 4180), which is exactly the quoting rule spec.md §6
// asks for. No third-party CSV library is used here: none of the
// retrieved example repos exercise CSV export, and encoding/csv is the
// idiomatic, complete implementation of the dialect spec.md requires.
func (l *Log) ExportCSV(ctx context.Context, filter domain.AuditFilter) (string, error) {
	entries, err := l.store.ScanAll(ctx)
	if err != nil {
		return "", fmt.Errorf("scan audit log: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Sequence < entries[j].Sequence })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvColumns); err != nil {
		return "", err
	}

	for _, e := range entries {
		if !matches(e, filter) {
			continue
		}
		row := []string{
			strconv.FormatInt(e.Sequence, 10),
			e.ID,
			e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			e.Action,
			e.ActorID,
			e.ActorType,
			e.Resource,
			e.Outcome,
			e.PatientID,
			e.IPAddress,
			e.BlockHash,
			e.Channel,
			strings.Join(e.Tags, "|"),
			e.Details,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
