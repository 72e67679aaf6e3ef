// Package wallet is the Wallet Registry and Wallet Auth components
// (spec.md §4.4, §4.5): a durable keyed map from normalized address to
// WalletProfile, plus nonce issuance and signature verification backed
// by the verify subpackage. Grounded on the teacher's core/wallet and
// core/auth packages (SignatureVerifier, key providers, the
// Authorizer's audit-on-failure pattern), generalized from a single
// hardcoded signer/verifier pair to a registry of many wallets across
// two signature families.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"uniledger/internal/domain"
	"uniledger/internal/storage"
)

const registryKeyPrefix = "wallet:"

// Registry is the durable wallet directory. register() is idempotent
// by normalized address; readers take the read lock and read through kv,
// writers take the single write lock (spec.md §5).
type Registry struct {
	mu sync.RWMutex
	kv storage.KV
}

// NewRegistry builds a Registry over kv. No separate Load step is
// needed: entries are read through kv on demand, keyed individually.
func NewRegistry(kv storage.KV) *Registry {
	return &Registry{kv: kv}
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func registryKey(normalizedAddress string) string {
	return registryKeyPrefix + normalizedAddress
}

// Lookup returns the profile for address, if registered.
func (r *Registry) Lookup(ctx context.Context, address string) (domain.WalletProfile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	raw, err := r.kv.Get(ctx, registryKey(normalize(address)))
	if err == storage.ErrNotFound {
		return domain.WalletProfile{}, false, nil
	}
	if err != nil {
		return domain.WalletProfile{}, false, fmt.Errorf("lookup wallet: %w", err)
	}
	var profile domain.WalletProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.WalletProfile{}, false, fmt.Errorf("unmarshal wallet profile: %w", err)
	}
	return profile, true, nil
}

// Register is idempotent by normalized address: a second call with the
// same address updates label/metadata/publicKey on the existing
// profile rather than creating a duplicate. External-signer wallets
// may be registered with no public key (one is never needed — the
// address itself is recovered from the signature); custom-keypair
// wallets require one.
func (r *Registry) Register(ctx context.Context, input domain.WalletRegistration) (domain.WalletProfile, error) {
	if input.Family == domain.FamilyCustomKeypair && input.PublicKey == "" {
		return domain.WalletProfile{}, fmt.Errorf("wallet: custom-keypair registration requires a public key")
	}

	normalized := normalize(input.Address)

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok, err := r.lookupLocked(ctx, normalized)
	if err != nil {
		return domain.WalletProfile{}, err
	}

	now := time.Now().UTC()
	if ok {
		if existing.Family != input.Family {
			return domain.WalletProfile{}, fmt.Errorf("wallet: %s is already registered under family %s", input.Address, existing.Family)
		}
		if input.Label != "" {
			existing.Label = input.Label
		}
		if input.PublicKey != "" {
			existing.PublicKey = input.PublicKey
		}
		if input.Metadata != nil {
			existing.Metadata = input.Metadata
		}
		existing.UpdatedAt = now
		if err := r.putLocked(ctx, existing); err != nil {
			return domain.WalletProfile{}, err
		}
		return existing, nil
	}

	profile := domain.WalletProfile{
		ID:                normalized,
		Address:           input.Address,
		NormalizedAddress: normalized,
		Family:            input.Family,
		Label:             input.Label,
		PublicKey:         input.PublicKey,
		Metadata:          input.Metadata,
		Roles:             domain.DefaultRoles(),
		Status:            domain.StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := r.putLocked(ctx, profile); err != nil {
		return domain.WalletProfile{}, err
	}
	return profile, nil
}

// All returns every registered wallet profile, used by /health's wallet
// count and by operator tooling; not on any hot path.
func (r *Registry) All(ctx context.Context) ([]domain.WalletProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	raws, err := r.kv.Scan(ctx, registryKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan wallet registry: %w", err)
	}
	profiles := make([]domain.WalletProfile, 0, len(raws))
	for _, raw := range raws {
		var profile domain.WalletProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			return nil, fmt.Errorf("unmarshal wallet profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// Touch updates lastSeenAt to now.
func (r *Registry) Touch(ctx context.Context, normalizedAddress string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok, err := r.lookupLocked(ctx, normalizedAddress)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("wallet: %s is not registered", normalizedAddress)
	}
	now := time.Now().UTC()
	profile.LastSeenAt = &now
	profile.UpdatedAt = now
	return r.putLocked(ctx, profile)
}

// SetStatus transitions a wallet among {active, revoked, suspended}.
func (r *Registry) SetStatus(ctx context.Context, normalizedAddress string, status domain.WalletStatus) (domain.WalletProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok, err := r.lookupLocked(ctx, normalizedAddress)
	if err != nil {
		return domain.WalletProfile{}, err
	}
	if !ok {
		return domain.WalletProfile{}, fmt.Errorf("wallet: %s is not registered", normalizedAddress)
	}
	profile.Status = status
	profile.UpdatedAt = time.Now().UTC()
	if err := r.putLocked(ctx, profile); err != nil {
		return domain.WalletProfile{}, err
	}
	return profile, nil
}

func (r *Registry) lookupLocked(ctx context.Context, normalizedAddress string) (domain.WalletProfile, bool, error) {
	raw, err := r.kv.Get(ctx, registryKey(normalizedAddress))
	if err == storage.ErrNotFound {
		return domain.WalletProfile{}, false, nil
	}
	if err != nil {
		return domain.WalletProfile{}, false, fmt.Errorf("lookup wallet: %w", err)
	}
	var profile domain.WalletProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.WalletProfile{}, false, fmt.Errorf("unmarshal wallet profile: %w", err)
	}
	return profile, true, nil
}

func (r *Registry) putLocked(ctx context.Context, profile domain.WalletProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal wallet profile: %w", err)
	}
	return r.kv.Put(ctx, registryKey(profile.NormalizedAddress), data)
}
