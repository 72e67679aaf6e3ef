package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"uniledger/internal/domain"
	"uniledger/internal/storage"
)

const nonceKeyPrefix = "nonce:"

// DefaultNonceTTL is the challenge lifetime NewAuth uses when it is
// given a ttl <= 0 (spec.md §4.4).
const DefaultNonceTTL = 300 * time.Second

// nonceStore holds at most one active WalletNonceRecord per normalized
// address. Issue and verify hold the store's single mutex for every
// address, so two verifies can never consume the same nonce (spec.md §5).
type nonceStore struct {
	mu sync.Mutex
	kv storage.KV
}

func newNonceStore(kv storage.KV) *nonceStore {
	return &nonceStore{kv: kv}
}

func nonceKey(normalizedAddress string) string {
	return nonceKeyPrefix + normalizedAddress
}

func (s *nonceStore) put(ctx context.Context, record domain.WalletNonceRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal nonce record: %w", err)
	}
	return s.kv.Put(ctx, nonceKey(record.NormalizedAddress), data)
}

func (s *nonceStore) get(ctx context.Context, normalizedAddress string) (domain.WalletNonceRecord, bool, error) {
	raw, err := s.kv.Get(ctx, nonceKey(normalizedAddress))
	if err == storage.ErrNotFound {
		return domain.WalletNonceRecord{}, false, nil
	}
	if err != nil {
		return domain.WalletNonceRecord{}, false, fmt.Errorf("get nonce record: %w", err)
	}
	var record domain.WalletNonceRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.WalletNonceRecord{}, false, fmt.Errorf("unmarshal nonce record: %w", err)
	}
	return record, true, nil
}

func (s *nonceStore) delete(ctx context.Context, normalizedAddress string) error {
	return s.kv.Delete(ctx, nonceKey(normalizedAddress))
}

func newNonceValue() string {
	return "CAMTC-" + uuid.NewString()
}

// buildChallengeMessage follows spec.md §4.4's fixed multi-line format.
func buildChallengeMessage(address, nonce string, issuedAt time.Time) string {
	return fmt.Sprintf(
		"uniledger authentication challenge\nSign this message to authenticate\nWallet: %s\nNonce: %s\nTimestamp: %s",
		address, nonce, issuedAt.UTC().Format(time.RFC3339),
	)
}
