package mempool

import (
	"context"
	"testing"
	"time"

	"uniledger/internal/domain"
	"uniledger/internal/storage/leveldbstore"
)

func newTestMempool(t *testing.T) (*Mempool, func()) {
	t.Helper()
	dir := t.TempDir()
	store, err := leveldbstore.Open(dir)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	mp := New(store, leveldbstore.MempoolSnapshotKey)
	return mp, func() { store.Close() }
}

func txWithPriority(id string, priority float64) (domain.Transaction, domain.PriorityBreakdown) {
	tx := domain.Transaction{
		ID:        id,
		Type:      "lab_result",
		Payload:   domain.Payload{},
		CreatedAt: time.Now().UTC(),
	}
	return tx, domain.PriorityBreakdown{Priority: priority}
}

func TestAddAssignsTierFromPriority(t *testing.T) {
	mp, cleanup := newTestMempool(t)
	defer cleanup()

	tx, bd := txWithPriority("tx-1", 0.90)
	entry, evicted, err := mp.Add(context.Background(), tx, bd)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if evicted != nil {
		t.Fatalf("unexpected eviction: %+v", evicted)
	}
	if entry.Tier != domain.Tier1 {
		t.Errorf("expected Tier1, got %v", entry.Tier)
	}
}

func TestAddSortsByPriorityDescending(t *testing.T) {
	mp, cleanup := newTestMempool(t)
	defer cleanup()
	ctx := context.Background()

	lo, loBD := txWithPriority("tx-lo", 0.62)
	hi, hiBD := txWithPriority("tx-hi", 0.78)
	if _, _, err := mp.Add(ctx, lo, loBD); err != nil {
		t.Fatal(err)
	}
	if _, _, err := mp.Add(ctx, hi, hiBD); err != nil {
		t.Fatal(err)
	}

	entries := mp.ByTier(domain.Tier2, 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Transaction.ID != "tx-hi" {
		t.Errorf("expected tx-hi first, got %s", entries[0].Transaction.ID)
	}
}

func TestAddEvictsLowestPriorityAtCapacity(t *testing.T) {
	mp, cleanup := newTestMempool(t)
	defer cleanup()
	ctx := context.Background()

	// Tier1 capacity is 100; fill it with ascending priorities so the
	// first entry is the lowest and gets evicted by the 101st add.
	for i := 0; i < domain.Tier1Capacity; i++ {
		tx, bd := txWithPriority(indexedID(i), 0.85+float64(i)*0.0001)
		if _, _, err := mp.Add(ctx, tx, bd); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	newTx, newBD := txWithPriority("tx-newest", 0.999)
	entry, evicted, err := mp.Add(ctx, newTx, newBD)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if entry.Transaction.ID != "tx-newest" {
		t.Fatalf("expected new entry to be admitted, got %s", entry.Transaction.ID)
	}
	if evicted == nil {
		t.Fatal("expected an eviction at capacity")
	}
	if evicted.Entry.Transaction.ID != indexedID(0) {
		t.Errorf("expected lowest-priority entry evicted, got %s", evicted.Entry.Transaction.ID)
	}

	stats, _ := mp.Stats()
	if stats.Tier1Size != domain.Tier1Capacity {
		t.Errorf("expected tier1 size to stay at capacity %d, got %d", domain.Tier1Capacity, stats.Tier1Size)
	}
}

func TestRemoveAndFlush(t *testing.T) {
	mp, cleanup := newTestMempool(t)
	defer cleanup()
	ctx := context.Background()

	tx1, bd1 := txWithPriority("tx-a", 0.50)
	tx2, bd2 := txWithPriority("tx-b", 0.55)
	mp.Add(ctx, tx1, bd1)
	mp.Add(ctx, tx2, bd2)

	ok, err := mp.Remove(ctx, "tx-a")
	if err != nil || !ok {
		t.Fatalf("Remove tx-a: ok=%v err=%v", ok, err)
	}
	if _, found := mp.Get("tx-a"); found {
		t.Error("tx-a should be gone")
	}

	n, err := mp.Flush(ctx, []string{"tx-b", "does-not-exist"})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 flushed, got %d", n)
	}
}

func TestLoadRehydratesFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := leveldbstore.Open(dir)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	defer store.Close()

	mp := New(store, leveldbstore.MempoolSnapshotKey)
	tx, bd := txWithPriority("tx-durable", 0.30)
	if _, _, err := mp.Add(context.Background(), tx, bd); err != nil {
		t.Fatal(err)
	}

	reloaded := New(store, leveldbstore.MempoolSnapshotKey)
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, found := reloaded.Get("tx-durable"); !found {
		t.Error("expected durable entry to survive reload")
	}
}

func indexedID(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return "tx-" + string(letters[i%26]) + string(rune('0'+i/26))
}
