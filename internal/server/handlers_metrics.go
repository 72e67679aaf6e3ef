package server

import (
	"net/http"

	"uniledger/internal/domain"
)

// metricsResponse matches spec.md §6's /metrics row. totalBlocks is
// read from chain state maintained by the out-of-scope block producer
// (spec.md §9 Open Questions); this core has no such collaborator
// wired in, so it is always reported as 0 rather than invented.
type metricsResponse struct {
	ValidatorsActive        int              `json:"validatorsActive"`
	CurrentTPS              float64          `json:"currentTps"`
	NetworkLatencyMillis    float64          `json:"networkLatency"`
	TotalBlocks             int              `json:"totalBlocks"`
	TPSTrend                [24]float64      `json:"tpsTrend"`
	TransactionDistribution [3]int           `json:"transactionDistribution"`
	ValidatorScores         []validatorScore `json:"validatorScores"`
}

type validatorScore struct {
	ID         string  `json:"id"`
	Reputation float64 `json:"reputation"`
}

// handleMetrics reports a point-in-time operational snapshot derived
// from the mempool and reference directory. There is no time-series
// store behind tpsTrend, so it is reconstructed as a flat line at the
// current rate — a deployment that wants real history should sample
// this endpoint itself.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	ctx := r.Context()

	stats, _ := s.deps.Mempool.Stats()

	validators, _ := s.deps.Backend.Validators(ctx)
	scores := topValidatorScores(validators, 5)

	currentTPS := estimateTPS(stats)

	var trend [24]float64
	for i := range trend {
		trend[i] = currentTPS
	}

	resp := metricsResponse{
		ValidatorsActive:        stats.ValidatorsOnline,
		CurrentTPS:              currentTPS,
		NetworkLatencyMillis:    0,
		TotalBlocks:             0,
		TPSTrend:                trend,
		TransactionDistribution: [3]int{stats.Tier1Size, stats.Tier2Size, stats.Tier3Size},
		ValidatorScores:         scores,
	}

	respond(w, http.StatusOK, resp)
}

// estimateTPS is a coarse proxy: admitted-but-unconfirmed transactions
// per second of nominal block time, since there is no live throughput
// counter in this core (no block producer is wired in).
func estimateTPS(stats domain.MempoolStats) float64 {
	total := stats.TotalSize()
	if total == 0 {
		return 0
	}
	return float64(total) / 10.0
}

func topValidatorScores(validators []domain.Validator, limit int) []validatorScore {
	scores := make([]validatorScore, 0, len(validators))
	for _, v := range validators {
		scores = append(scores, validatorScore{ID: v.ID, Reputation: v.Reputation})
	}
	for i := 0; i < len(scores); i++ {
		for j := i + 1; j < len(scores); j++ {
			if scores[j].Reputation > scores[i].Reputation {
				scores[i], scores[j] = scores[j], scores[i]
			}
		}
	}
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}
