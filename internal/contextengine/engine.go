// Package contextengine scores an inbound Transaction on clinical
// criticality, temporal sensitivity, resource pressure and regulatory
// compliance, producing the PriorityBreakdown the mempool tiers on.
//
// CalculatePriority is pure with respect to its Transaction argument;
// the only live input is a single read of the current mempool stats,
// taken once per call via the StatsProvider.
package contextengine

import (
	"strings"

	"uniledger/internal/domain"
)

// StatsProvider supplies the current mempool occupancy snapshot used by
// the resources score. A nil provider, or one that returns ok=false,
// falls back to resources=0.5 (spec.md §4.1 step 4).
type StatsProvider interface {
	Stats() (domain.MempoolStats, bool)
}

// keywordScore is one entry in an ordered keyword table; first match
// wins, so table order is the tie-break.
type keywordScore struct {
	keywords []string
	score    float64
}

var criticalityTable = []keywordScore{
	{[]string{"cardiac arrest"}, 0.95},
	{[]string{"stroke"}, 0.93},
	{[]string{"sepsis", "trauma"}, 0.90},
	{[]string{"prescription"}, 0.65},
	{[]string{"lab", "diagnostic"}, 0.50},
	{[]string{"routine", "checkup"}, 0.35},
}

const defaultCriticality = 0.40

var sensitivityTable = []keywordScore{
	{[]string{"stat"}, 0.95},
	{[]string{"urgent"}, 0.80},
	{[]string{"routine"}, 0.40},
}

const defaultSensitivity = 0.50

var complianceTable = []keywordScore{
	{[]string{"controlled substance"}, 0.50},
	{[]string{"prescription"}, 0.30},
}

const defaultCompliance = 0.10

const defaultResources = 0.50

// Engine computes priority breakdowns. It holds no mutable state beyond
// an optional stats provider.
type Engine struct {
	stats StatsProvider
}

// New builds a Context Engine. provider may be nil, in which case
// resources always falls back to 0.5.
func New(provider StatsProvider) *Engine {
	return &Engine{stats: provider}
}

// CalculatePriority implements spec.md §4.1's algorithm. It never fails.
func (e *Engine) CalculatePriority(tx domain.Transaction) domain.PriorityBreakdown {
	searchText := strings.ToLower(tx.Type + " " + tx.Payload.FlattenedText())
	payloadText := strings.ToLower(tx.Payload.FlattenedText())

	crit := scoreKeywords(searchText, criticalityTable, defaultCriticality)
	sens := scoreKeywords(payloadText, sensitivityTable, defaultSensitivity)
	res := e.scoreResources()
	comp := scoreKeywords(payloadText, complianceTable, defaultCompliance)

	priority := clamp01(0.45*crit + 0.35*sens + 0.10*res + 0.10*comp)

	return domain.PriorityBreakdown{
		Criticality: crit,
		Sensitivity: sens,
		Resources:   res,
		Compliance:  comp,
		Priority:    priority,
	}
}

func (e *Engine) scoreResources() float64 {
	if e == nil || e.stats == nil {
		return defaultResources
	}
	stats, ok := e.stats.Stats()
	if !ok {
		return defaultResources
	}

	totalCapacity := stats.TotalCapacity()
	var utilization float64
	if totalCapacity > 0 {
		utilization = float64(stats.TotalSize()) / float64(totalCapacity)
	}

	var availability float64 = 1
	if stats.ValidatorsTotal > 0 {
		availability = float64(stats.ValidatorsOnline) / float64(stats.ValidatorsTotal)
	}

	return clamp01(0.20 + 0.60*availability - 0.50*utilization)
}

func scoreKeywords(text string, table []keywordScore, fallback float64) float64 {
	for _, entry := range table {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.score
			}
		}
	}
	return fallback
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// TierForPriority implements the hinted-tier-with-priority-override
// assignment from spec.md §4.2: tier = 1 if hint==1 or priority >= 0.85;
// else 2 if hint==2 or priority >= 0.60; else 3. A hint of 0 means "no
// hint supplied".
func TierForPriority(priority float64, hint domain.Tier) domain.Tier {
	if hint == domain.Tier1 || priority >= 0.85 {
		return domain.Tier1
	}
	if hint == domain.Tier2 || priority >= 0.60 {
		return domain.Tier2
	}
	return domain.Tier3
}
