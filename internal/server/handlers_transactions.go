package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"uniledger/internal/contextengine"
	"uniledger/internal/domain"
	"uniledger/internal/storage"
	"uniledger/internal/validation"
)

const (
	defaultTransactionLimit = 100
	maxTransactionLimit     = 1000
)

type listTransactionsResponse struct {
	Transactions []domain.Transaction      `json:"transactions"`
	Snapshot     domain.MempoolSnapshot    `json:"snapshot"`
	Stats        domain.MempoolStats       `json:"stats"`
}

// handleListTransactions implements GET /transactions: filtered AND
// query over the durable transaction store, plus the live mempool
// snapshot/stats (spec.md §6). patientId and type are applied by both
// backends. priority is applied only by the file-based backend, and only
// when it is an integer tier number; status is not applied by either.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()

	limit := defaultTransactionLimit
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}

	filter := storage.TransactionFilter{
		PatientID: q.Get("patientId"),
		Type:      q.Get("type"),
		Priority:  q.Get("priority"),
		Status:    q.Get("status"),
		Limit:     limit,
	}

	transactions, err := s.deps.Backend.Query(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	stats, _ := s.deps.Mempool.Stats()

	respond(w, http.StatusOK, listTransactionsResponse{
		Transactions: transactions,
		Snapshot:     s.deps.Mempool.Snapshot(),
		Stats:        stats,
	})
}

type submitTransactionResponse struct {
	Transaction domain.Transaction         `json:"transaction"`
	Breakdown   domain.PriorityBreakdown   `json:"breakdown"`
	Tier        domain.Tier                `json:"tier"`
	Evicted     *domain.MempoolEntry       `json:"evicted,omitempty"`
	Stats       domain.MempoolStats        `json:"stats"`
}

var priorityHints = map[string]domain.Tier{
	"Tier-1": domain.Tier1,
	"Tier-2": domain.Tier2,
	"Tier-3": domain.Tier3,
}

// handleSubmitTransaction implements POST /transactions: validate the
// request envelope, score it through the context engine, admit it to
// the mempool, and durably record it. A capacity eviction is reported
// back rather than treated as a failure (spec.md §7, Capacity kind).
func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	ctx := r.Context()

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unable to read request body", nil)
		return
	}

	req, err := validation.ValidateTransactionRequest(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "request failed validation", err.Error())
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	payload := make(domain.Payload, len(req.Payload)+2)
	for k, v := range req.Payload {
		payload[k] = domain.ValueFromAny(v)
	}
	if req.PatientID != "" {
		payload["patientId"] = domain.NewScalar(req.PatientID)
	}
	if req.Provider != "" {
		payload["provider"] = domain.NewScalar(req.Provider)
	}

	tx := domain.Transaction{
		ID:        id,
		Type:      req.Type,
		Tier:      priorityHints[req.Priority],
		Payload:   payload,
		Signature: req.Signature,
		CreatedAt: time.Now().UTC(),
	}

	breakdown := s.deps.Engine.CalculatePriority(tx)
	tx.Priority = breakdown.Priority
	tx.Tier = contextengine.TierForPriority(breakdown.Priority, tx.Tier)

	entry, evicted, err := s.deps.Mempool.Add(ctx, tx, breakdown)
	if err != nil {
		s.auditTransactionOutcome(ctx, r, tx, req, domain.OutcomeFailed, err.Error())
		respondError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	if err := s.deps.Backend.Upsert(ctx, tx); err != nil {
		s.auditTransactionOutcome(ctx, r, tx, req, domain.OutcomeFailed, err.Error())
		respondError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	s.auditTransactionOutcome(ctx, r, tx, req, domain.OutcomeSuccess, "")

	stats, _ := s.deps.Mempool.Stats()

	var evictedEntry *domain.MempoolEntry
	if evicted != nil {
		evictedEntry = &evicted.Entry
	}

	respond(w, http.StatusCreated, submitTransactionResponse{
		Transaction: entry.Transaction,
		Breakdown:   breakdown,
		Tier:        tx.Tier,
		Evicted:     evictedEntry,
		Stats:       stats,
	})
}

// auditTransactionOutcome records a best-effort audit entry for a
// submission attempt. Failures to audit are logged but never change
// the HTTP response: per-request failures never mutate the audit chain
// unless the caller explicitly records them (spec.md §7 Policy), and
// the caller here chooses to record every submission attempt.
func (s *Server) auditTransactionOutcome(ctx context.Context, r *http.Request, tx domain.Transaction, req validation.TransactionRequest, outcome domain.AuditOutcome, details string) {
	_, err := s.deps.Audit.Record(ctx, buildAuditInput(r, tx, req, outcome, details))
	if err != nil {
		s.deps.Log.Warnw("failed to record audit entry for transaction submission", "txId", tx.ID, "error", err)
	}
}

func buildAuditInput(r *http.Request, tx domain.Transaction, req validation.TransactionRequest, outcome domain.AuditOutcome, details string) domain.AuditEntryInput {
	actorID := req.ActorID
	if actorID == "" {
		actorID = "anonymous"
	}
	actorType := req.ActorType
	if actorType == "" {
		actorType = "api-client"
	}

	var marshaledPayload string
	if b, err := json.Marshal(tx.Payload); err == nil {
		marshaledPayload = string(b)
	}
	if details == "" {
		details = marshaledPayload
	}

	return domain.AuditEntryInput{
		Action:    "transaction.submit",
		ActorID:   actorID,
		ActorType: actorType,
		Resource:  "transaction:" + tx.ID,
		Outcome:   string(outcome),
		PatientID: req.PatientID,
		IPAddress: clientIP(r),
		Details:   details,
		Channel:   "http",
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
