// Package mempool is the Tiered Mempool: three priority-ordered queues
// (Tier1/2/3) with fixed capacities, each sorted by priority descending.
// Admission picks a tier from the Context Engine's breakdown, evicts the
// lowest-priority entry when a tier is full, and persists a full
// snapshot after every mutation so a restart resumes from the same
// state (spec.md §4.2, §8 properties 2-4).
//
// Grounded on the teacher's core/mempool/mempool.go (single FIFO pool +
// expired_tx_pool.go's archive-on-evict pattern), generalized from one
// FIFO queue to three priority-ordered tiers and from in-memory-only to
// snapshot-persisted.
package mempool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"uniledger/internal/contextengine"
	"uniledger/internal/domain"
	"uniledger/internal/storage"
)

// Evicted is returned alongside a successful Add when admitting the new
// entry forced the lowest-priority entry out of its tier.
type Evicted struct {
	Entry  domain.MempoolEntry
	Reason string
}

// Mempool holds the three tiers in memory, mirrored to snapshotKey in
// kv after every mutation.
type Mempool struct {
	mu sync.Mutex

	kv          storage.KV
	snapshotKey string

	tiers map[domain.Tier][]domain.MempoolEntry
	index map[string]domain.Tier

	validatorsTotal  int
	validatorsOnline int
}

// capacities maps each tier to its fixed admission limit.
var capacities = map[domain.Tier]int{
	domain.Tier1: domain.Tier1Capacity,
	domain.Tier2: domain.Tier2Capacity,
	domain.Tier3: domain.Tier3Capacity,
}

// New builds an empty Mempool bound to kv under snapshotKey. Call Load
// once at startup to rehydrate from a prior snapshot.
func New(kv storage.KV, snapshotKey string) *Mempool {
	return &Mempool{
		kv:          kv,
		snapshotKey: snapshotKey,
		tiers: map[domain.Tier][]domain.MempoolEntry{
			domain.Tier1: {}, domain.Tier2: {}, domain.Tier3: {},
		},
		index: make(map[string]domain.Tier),
	}
}

// Load rehydrates tier state from the durable snapshot. A missing
// snapshot is not an error: the pool simply starts empty.
func (m *Mempool) Load(ctx context.Context) error {
	raw, err := m.kv.Get(ctx, m.snapshotKey)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load mempool snapshot: %w", err)
	}

	var snap domain.MempoolSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("unmarshal mempool snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tiers[domain.Tier1] = snap.Tier1
	m.tiers[domain.Tier2] = snap.Tier2
	m.tiers[domain.Tier3] = snap.Tier3
	m.index = make(map[string]domain.Tier)
	for tier, entries := range m.tiers {
		for _, e := range entries {
			m.index[e.Transaction.ID] = tier
		}
	}
	return nil
}

// SetValidatorCounts feeds the availability half of the resources score
// (spec.md §4.1 step 4). ledgerd calls it once at startup, counting a
// validator as online when the reference directory shows it seen within
// the last five minutes.
func (m *Mempool) SetValidatorCounts(online, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validatorsOnline = online
	m.validatorsTotal = total
}

// Stats implements contextengine.StatsProvider.
func (m *Mempool) Stats() (domain.MempoolStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsLocked(), true
}

func (m *Mempool) statsLocked() domain.MempoolStats {
	return domain.MempoolStats{
		Tier1Size:        len(m.tiers[domain.Tier1]),
		Tier2Size:        len(m.tiers[domain.Tier2]),
		Tier3Size:        len(m.tiers[domain.Tier3]),
		Tier1Capacity:    domain.Tier1Capacity,
		Tier2Capacity:    domain.Tier2Capacity,
		Tier3Capacity:    domain.Tier3Capacity,
		ValidatorsOnline: m.validatorsOnline,
		ValidatorsTotal:  m.validatorsTotal,
	}
}

var _ contextengine.StatsProvider = (*Mempool)(nil)

// Add admits tx into the tier its breakdown/hint resolve to, keeping
// that tier sorted by priority descending. If the tier is already at
// capacity, the lowest-priority entry (the new one included) is
// evicted. The mutation is applied in memory, persisted, and rolled
// back in memory if persistence fails — callers never observe a state
// that wasn't durably written.
func (m *Mempool) Add(ctx context.Context, tx domain.Transaction, breakdown domain.PriorityBreakdown) (domain.MempoolEntry, *Evicted, error) {
	tier := contextengine.TierForPriority(breakdown.Priority, tx.Tier)

	entry := domain.MempoolEntry{
		Transaction: tx,
		Tier:        tier,
		Priority:    breakdown.Priority,
		Breakdown:   breakdown,
		AdmittedAt:  time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	before := cloneTiers(m.tiers)
	beforeIndex := cloneIndex(m.index)

	if existingTier, ok := m.index[tx.ID]; ok {
		m.removeLocked(tx.ID, existingTier)
	}

	list := append(m.tiers[tier], entry)
	sortByPriorityDesc(list)
	m.tiers[tier] = list
	m.index[tx.ID] = tier

	var evicted *Evicted
	if cap := capacities[tier]; len(m.tiers[tier]) > cap {
		victim := m.tiers[tier][len(m.tiers[tier])-1]
		m.tiers[tier] = m.tiers[tier][:len(m.tiers[tier])-1]
		delete(m.index, victim.Transaction.ID)
		evicted = &Evicted{Entry: victim, Reason: "tier_capacity"}
	}

	if err := m.persistLocked(ctx); err != nil {
		m.tiers = before
		m.index = beforeIndex
		return domain.MempoolEntry{}, nil, fmt.Errorf("persist mempool after add: %w", err)
	}

	return entry, evicted, nil
}

// Remove deletes id from whichever tier holds it. ok is false if id was
// not present.
func (m *Mempool) Remove(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tier, ok := m.index[id]
	if !ok {
		return false, nil
	}

	before := cloneTiers(m.tiers)
	beforeIndex := cloneIndex(m.index)

	m.removeLocked(id, tier)

	if err := m.persistLocked(ctx); err != nil {
		m.tiers = before
		m.index = beforeIndex
		return false, fmt.Errorf("persist mempool after remove: %w", err)
	}
	return true, nil
}

// Flush removes every id in ids in a single persisted mutation,
// returning how many were actually present.
func (m *Mempool) Flush(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := cloneTiers(m.tiers)
	beforeIndex := cloneIndex(m.index)

	removed := 0
	for _, id := range ids {
		if tier, ok := m.index[id]; ok {
			m.removeLocked(id, tier)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}

	if err := m.persistLocked(ctx); err != nil {
		m.tiers = before
		m.index = beforeIndex
		return 0, fmt.Errorf("persist mempool after flush: %w", err)
	}
	return removed, nil
}

func (m *Mempool) removeLocked(id string, tier domain.Tier) {
	list := m.tiers[tier]
	for i, e := range list {
		if e.Transaction.ID == id {
			m.tiers[tier] = append(list[:i], list[i+1:]...)
			break
		}
	}
	delete(m.index, id)
}

// ByTier returns up to limit entries from tier, highest priority first.
// limit<=0 means "all".
func (m *Mempool) ByTier(tier domain.Tier, limit int) []domain.MempoolEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.tiers[tier]
	if limit <= 0 || limit >= len(list) {
		out := make([]domain.MempoolEntry, len(list))
		copy(out, list)
		return out
	}
	out := make([]domain.MempoolEntry, limit)
	copy(out, list[:limit])
	return out
}

// Get returns the entry for id across all tiers.
func (m *Mempool) Get(id string) (domain.MempoolEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tier, ok := m.index[id]
	if !ok {
		return domain.MempoolEntry{}, false
	}
	for _, e := range m.tiers[tier] {
		if e.Transaction.ID == id {
			return e, true
		}
	}
	return domain.MempoolEntry{}, false
}

// Snapshot returns a deep-enough copy of current tier state for
// external callers (e.g. CSV/JSON export, CLI listing).
func (m *Mempool) Snapshot() domain.MempoolSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return domain.MempoolSnapshot{
		Tier1: append([]domain.MempoolEntry{}, m.tiers[domain.Tier1]...),
		Tier2: append([]domain.MempoolEntry{}, m.tiers[domain.Tier2]...),
		Tier3: append([]domain.MempoolEntry{}, m.tiers[domain.Tier3]...),
	}
}

func (m *Mempool) persistLocked(ctx context.Context) error {
	snap := domain.MempoolSnapshot{
		Tier1: m.tiers[domain.Tier1],
		Tier2: m.tiers[domain.Tier2],
		Tier3: m.tiers[domain.Tier3],
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return m.kv.Put(ctx, m.snapshotKey, data)
}

func sortByPriorityDesc(entries []domain.MempoolEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority > entries[j].Priority
	})
}

func cloneTiers(src map[domain.Tier][]domain.MempoolEntry) map[domain.Tier][]domain.MempoolEntry {
	dst := make(map[domain.Tier][]domain.MempoolEntry, len(src))
	for tier, list := range src {
		dst[tier] = append([]domain.MempoolEntry{}, list...)
	}
	return dst
}

func cloneIndex(src map[string]domain.Tier) map[string]domain.Tier {
	dst := make(map[string]domain.Tier, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
