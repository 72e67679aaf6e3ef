package contextengine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniledger/internal/domain"
)

func txWith(typ string, payload map[string]any) domain.Transaction {
	p := make(domain.Payload, len(payload))
	for k, v := range payload {
		p[k] = domain.ValueFromAny(v)
	}
	return domain.Transaction{Type: typ, Payload: p}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func TestCalculatePriority_CriticalCardiacCase(t *testing.T) {
	engine := New(nil)
	tx := txWith("Emergency Record", map[string]any{
		"chiefComplaint": "Cardiac Arrest, stat",
		"severity":       "Cardiac Arrest",
	})

	bd := engine.CalculatePriority(tx)

	assert.Equal(t, 0.95, bd.Criticality)
	assert.Equal(t, 0.95, bd.Sensitivity)
	assert.Equal(t, 0.50, bd.Resources)
	assert.Equal(t, 0.10, bd.Compliance)
	assert.Equal(t, 0.82, round2(bd.Priority))

	tier := TierForPriority(bd.Priority, 0)
	assert.Equal(t, domain.Tier2, tier)
}

func TestCalculatePriority_RoutineLab(t *testing.T) {
	engine := New(nil)
	tx := txWith("Lab Result", map[string]any{
		"testType": "CBC",
		"status":   "Normal",
		"notes":    "routine",
	})

	bd := engine.CalculatePriority(tx)

	assert.Equal(t, 0.50, bd.Criticality)
	assert.Equal(t, 0.40, bd.Sensitivity)
	assert.Equal(t, 0.50, bd.Resources)
	assert.Equal(t, 0.10, bd.Compliance)
	assert.InDelta(t, 0.425, bd.Priority, 1e-9)

	tier := TierForPriority(bd.Priority, 0)
	assert.Equal(t, domain.Tier3, tier)
}

type fakeStats struct {
	stats domain.MempoolStats
	ok    bool
}

func (f fakeStats) Stats() (domain.MempoolStats, bool) { return f.stats, f.ok }

func TestCalculatePriority_ResourcesFallsBackWithoutStats(t *testing.T) {
	engine := New(fakeStats{ok: false})
	tx := txWith("Routine Checkup", nil)
	bd := engine.CalculatePriority(tx)
	assert.Equal(t, 0.50, bd.Resources)
}

func TestCalculatePriority_ResourcesFromStats(t *testing.T) {
	stats := domain.MempoolStats{
		Tier1Size: 50, Tier1Capacity: 100,
		Tier2Size: 0, Tier2Capacity: 2000,
		Tier3Size: 0, Tier3Capacity: 8000,
		ValidatorsOnline: 8, ValidatorsTotal: 10,
	}
	engine := New(fakeStats{stats: stats, ok: true})
	tx := txWith("Routine Checkup", nil)
	bd := engine.CalculatePriority(tx)

	utilization := 50.0 / (100 + 2000 + 8000)
	availability := 8.0 / 10.0
	want := clamp01(0.20 + 0.60*availability - 0.50*utilization)
	require.InDelta(t, want, bd.Resources, 1e-9)
}

func TestTierForPriority(t *testing.T) {
	assert.Equal(t, domain.Tier1, TierForPriority(0.86, 0))
	assert.Equal(t, domain.Tier2, TierForPriority(0.70, 0))
	assert.Equal(t, domain.Tier3, TierForPriority(0.10, 0))
	assert.Equal(t, domain.Tier1, TierForPriority(0.10, domain.Tier1))
}
