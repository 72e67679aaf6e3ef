package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"uniledger/internal/domain"
	"uniledger/internal/storage/leveldbstore"
)

func newTestLog(t *testing.T) (*Log, func()) {
	t.Helper()
	dir := t.TempDir()
	store, err := leveldbstore.Open(dir)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	l, err := Open(context.Background(), store)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l, func() { store.Close() }
}

func minimalInput(action string) domain.AuditEntryInput {
	return domain.AuditEntryInput{
		Action:    action,
		ActorID:   "actor-1",
		ActorType: "wallet",
		Resource:  "transaction",
		Outcome:   string(domain.OutcomeSuccess),
	}
}

func TestRecordBuildsHashChain(t *testing.T) {
	l, cleanup := newTestLog(t)
	defer cleanup()
	ctx := context.Background()

	e1, err := l.Record(ctx, minimalInput("submit"))
	if err != nil {
		t.Fatal(err)
	}
	e2, err := l.Record(ctx, minimalInput("finalize"))
	if err != nil {
		t.Fatal(err)
	}
	e3, err := l.Record(ctx, minimalInput("revoke"))
	if err != nil {
		t.Fatal(err)
	}

	if e1.Sequence != 1 || e2.Sequence != 2 || e3.Sequence != 3 {
		t.Fatalf("expected sequences 1,2,3, got %d,%d,%d", e1.Sequence, e2.Sequence, e3.Sequence)
	}
	if e1.PrevHash != domain.AuditRoot {
		t.Errorf("expected entry 1 prevHash = AUDIT_ROOT, got %s", e1.PrevHash)
	}
	if e2.PrevHash != e1.IntegrityHash {
		t.Errorf("entry 2 prevHash should equal entry 1 integrityHash")
	}
	if e3.PrevHash != e2.IntegrityHash {
		t.Errorf("entry 3 prevHash should equal entry 2 integrityHash")
	}

	for i, e := range []domain.AuditEntry{e1, e2, e3} {
		if recomputed := IntegrityHash(e); recomputed != e.IntegrityHash {
			t.Errorf("entry %d: recomputed hash %s != stored %s", i+1, recomputed, e.IntegrityHash)
		}
	}

	all, err := l.store.ScanAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if idx := VerifyChain(sortedBySequence(all)); idx != -1 {
		t.Errorf("expected full chain to verify, broke at index %d", idx)
	}
}

func TestRecordRejectsMissingFields(t *testing.T) {
	l, cleanup := newTestLog(t)
	defer cleanup()

	_, err := l.Record(context.Background(), domain.AuditEntryInput{})
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestQueryPagination(t *testing.T) {
	l, cleanup := newTestLog(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		if _, err := l.Record(ctx, minimalInput(fmt.Sprintf("action-%d", i))); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	res1, err := l.Query(ctx, domain.AuditQuery{Limit: 100, Direction: domain.DirectionDesc})
	if err != nil {
		t.Fatal(err)
	}
	if len(res1.Entries) != 100 || !res1.HasMore || res1.TotalMatches != 250 {
		t.Fatalf("page1: got %d entries hasMore=%v total=%d", len(res1.Entries), res1.HasMore, res1.TotalMatches)
	}

	res2, err := l.Query(ctx, domain.AuditQuery{Limit: 100, Direction: domain.DirectionDesc, Cursor: res1.NextCursor})
	if err != nil {
		t.Fatal(err)
	}
	if len(res2.Entries) != 100 || !res2.HasMore || res2.TotalMatches != 250 {
		t.Fatalf("page2: got %d entries hasMore=%v total=%d", len(res2.Entries), res2.HasMore, res2.TotalMatches)
	}

	res3, err := l.Query(ctx, domain.AuditQuery{Limit: 100, Direction: domain.DirectionDesc, Cursor: res2.NextCursor})
	if err != nil {
		t.Fatal(err)
	}
	if len(res3.Entries) != 50 || res3.HasMore || res3.TotalMatches != 250 {
		t.Fatalf("page3: got %d entries hasMore=%v total=%d", len(res3.Entries), res3.HasMore, res3.TotalMatches)
	}
	if res3.NextCursor != "" {
		t.Errorf("expected no next cursor on final page, got %q", res3.NextCursor)
	}
}

func TestQueryFilterByActorAndOutcome(t *testing.T) {
	l, cleanup := newTestLog(t)
	defer cleanup()
	ctx := context.Background()

	in := minimalInput("submit")
	in.ActorID = "wallet-a"
	l.Record(ctx, in)

	in2 := minimalInput("submit")
	in2.ActorID = "wallet-b"
	in2.Outcome = string(domain.OutcomeFailed)
	l.Record(ctx, in2)

	res, err := l.Query(ctx, domain.AuditQuery{Filter: domain.AuditFilter{ActorID: "wallet-a", Outcome: string(domain.OutcomeSuccess)}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Entries) != 1 || res.Entries[0].ActorID != "wallet-a" {
		t.Fatalf("expected 1 entry for wallet-a, got %+v", res.Entries)
	}
}

func TestExportCSVFixedColumns(t *testing.T) {
	l, cleanup := newTestLog(t)
	defer cleanup()
	ctx := context.Background()

	in := minimalInput("submit")
	in.Tags = []string{"stat", "cardiac"}
	in.Details = `contains, a comma and "quotes"`
	if _, err := l.Record(ctx, in); err != nil {
		t.Fatal(err)
	}

	out, err := l.ExportCSV(ctx, domain.AuditFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Fatal("expected non-empty CSV")
	}
	if want := "sequence,id,timestamp,action,actorId,actorType,resource,outcome,patientId,ipAddress,blockHash,channel,tags,details"; !containsLine(out, want) {
		t.Errorf("expected header line %q in:\n%s", want, out)
	}
}

func containsLine(s, line string) bool {
	for _, l := range splitLines(s) {
		if l == line {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, trimCR(s[start:i]))
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, trimCR(s[start:]))
	}
	return out
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

func sortedBySequence(entries []domain.AuditEntry) []domain.AuditEntry {
	out := append([]domain.AuditEntry{}, entries...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Sequence < out[j-1].Sequence; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func TestSweepPrunesOldEntries(t *testing.T) {
	l, cleanup := newTestLog(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := l.Record(ctx, minimalInput("old")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if err := l.Sweep(ctx, RetentionPolicy{MaxAge: time.Millisecond}); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	res, err := l.Query(ctx, domain.AuditQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalMatches != 0 {
		t.Errorf("expected pruned entry to be gone, got %d remaining", res.TotalMatches)
	}
}
