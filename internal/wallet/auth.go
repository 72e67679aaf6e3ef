package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"uniledger/internal/domain"
	"uniledger/internal/storage"
	"uniledger/internal/wallet/verify"
)

// Sentinel errors for verify()'s distinct failure modes (spec.md §4.4).
var (
	ErrUnknownWallet     = fmt.Errorf("wallet: unknown wallet")
	ErrNoActiveNonce     = fmt.Errorf("wallet: no active nonce")
	ErrNonceExpired      = fmt.Errorf("wallet: nonce expired")
	ErrSignatureInvalid  = fmt.Errorf("wallet: signature invalid")
	ErrFamilyMismatch    = fmt.Errorf("wallet: declared family does not match registered family")
	ErrPublicKeyRequired = fmt.Errorf("wallet: custom-keypair wallet requires a public key on first sight")
)

// Auth is the Wallet Auth component: issueNonce/verify layered over a
// Registry and a per-address nonce store, both backed by the same KV.
type Auth struct {
	registry *Registry
	nonces   *nonceStore
	ttl      time.Duration
}

// NewAuth builds a Wallet Auth component. ttl<=0 selects DefaultNonceTTL.
func NewAuth(kv storage.KV, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &Auth{
		registry: NewRegistry(kv),
		nonces:   newNonceStore(kv),
		ttl:      ttl,
	}
}

// Registry exposes the underlying wallet directory for handlers that
// need register()/touch()/setStatus() directly.
func (a *Auth) Registry() *Registry { return a.registry }

// IssueNonce resolves or auto-creates the wallet (an unknown
// custom-keypair wallet is created only when a public key is supplied)
// and stores a fresh single-use challenge keyed by normalized address,
// replacing any still-active one for that address.
func (a *Auth) IssueNonce(ctx context.Context, address string, opts domain.NonceIssueOptions) (domain.NonceChallenge, error) {
	normalized := normalize(address)

	profile, ok, err := a.registry.Lookup(ctx, address)
	if err != nil {
		return domain.NonceChallenge{}, err
	}

	switch {
	case ok && opts.Family != "" && profile.Family != opts.Family:
		return domain.NonceChallenge{}, ErrFamilyMismatch

	case !ok && opts.Family == domain.FamilyCustomKeypair && opts.CustomPublicKey == "":
		return domain.NonceChallenge{}, ErrPublicKeyRequired

	case !ok:
		family := opts.Family
		if family == "" {
			family = domain.FamilyExternalSigner
		}
		profile, err = a.registry.Register(ctx, domain.WalletRegistration{
			Address:   address,
			Family:    family,
			Label:     opts.Label,
			PublicKey: opts.CustomPublicKey,
			Metadata:  opts.Metadata,
		})
		if err != nil {
			return domain.NonceChallenge{}, err
		}
	}

	issuedAt := time.Now().UTC()
	nonceValue := newNonceValue()
	message := buildChallengeMessage(profile.Address, nonceValue, issuedAt)
	expiresAt := issuedAt.Add(a.ttl)

	record := domain.WalletNonceRecord{
		Address:           profile.Address,
		NormalizedAddress: normalized,
		Nonce:             nonceValue,
		Message:           message,
		Family:            profile.Family,
		IssuedAt:          issuedAt,
		ExpiresAt:         expiresAt,
		Context:           opts.Context,
	}

	a.nonces.mu.Lock()
	defer a.nonces.mu.Unlock()
	if err := a.nonces.put(ctx, record); err != nil {
		return domain.NonceChallenge{}, err
	}

	return domain.NonceChallenge{
		Nonce:     nonceValue,
		Message:   message,
		ExpiresAt: expiresAt,
		Wallet:    profile,
	}, nil
}

// Verify looks up the active nonce for address, checks expiry,
// verifies signature under the wallet's family, and on success
// consumes the nonce and touches the wallet's lastSeenAt.
func (a *Auth) Verify(ctx context.Context, address, signature string) (domain.VerifyResult, error) {
	normalized := normalize(address)

	profile, ok, err := a.registry.Lookup(ctx, address)
	if err != nil {
		return domain.VerifyResult{}, err
	}
	if !ok {
		return domain.VerifyResult{}, ErrUnknownWallet
	}

	a.nonces.mu.Lock()
	defer a.nonces.mu.Unlock()

	record, ok, err := a.nonces.get(ctx, normalized)
	if err != nil {
		return domain.VerifyResult{}, err
	}
	if !ok {
		return domain.VerifyResult{}, ErrNoActiveNonce
	}
	if time.Now().UTC().After(record.ExpiresAt) {
		return domain.VerifyResult{}, ErrNonceExpired
	}

	valid, err := verifySignatureForFamily(profile, record.Message, signature)
	if err != nil {
		return domain.VerifyResult{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if !valid {
		return domain.VerifyResult{}, ErrSignatureInvalid
	}

	if err := a.nonces.delete(ctx, normalized); err != nil {
		return domain.VerifyResult{}, fmt.Errorf("consume nonce: %w", err)
	}
	if err := a.registry.Touch(ctx, normalized); err != nil {
		return domain.VerifyResult{}, fmt.Errorf("touch wallet: %w", err)
	}

	verifiedAt := time.Now().UTC()
	return domain.VerifyResult{
		Wallet:       profile,
		VerifiedAt:   verifiedAt,
		SessionToken: sessionToken(profile.ID, record.Nonce, verifiedAt),
		Proof:        proofHash(signature, record.Message),
	}, nil
}

func verifySignatureForFamily(profile domain.WalletProfile, message, signature string) (bool, error) {
	switch profile.Family {
	case domain.FamilyExternalSigner:
		return verify.ExternalSigner(profile.NormalizedAddress, message, signature)
	case domain.FamilyCustomKeypair:
		return verify.CustomKeypair(profile.Metadata["scheme"], profile.PublicKey, message, signature)
	default:
		return false, fmt.Errorf("unrecognized wallet family %q", profile.Family)
	}
}

// sessionToken = sha256(wallet.id + ":" + nonce + ":" + verifiedAt).
func sessionToken(walletID, nonce string, verifiedAt time.Time) string {
	sum := sha256.Sum256([]byte(walletID + ":" + nonce + ":" + verifiedAt.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}

// proofHash = sha256(signature + ":" + message).
func proofHash(signature, message string) string {
	sum := sha256.Sum256([]byte(signature + ":" + message))
	return hex.EncodeToString(sum[:])
}
