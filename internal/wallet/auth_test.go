package wallet

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"uniledger/internal/domain"
	"uniledger/internal/storage/leveldbstore"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func newTestAuth(t *testing.T, ttl time.Duration) (*Auth, func()) {
	t.Helper()
	dir := t.TempDir()
	store, err := leveldbstore.Open(dir)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	return NewAuth(store, ttl), func() { store.Close() }
}

func TestExternalSignerChallengeVerifyRoundTrip(t *testing.T) {
	a, cleanup := newTestAuth(t, 0)
	defer cleanup()
	ctx := context.Background()

	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	address := ethcrypto.PubkeyToAddress(priv.PublicKey).Hex()

	challenge, err := a.IssueNonce(ctx, address, domain.NonceIssueOptions{Family: domain.FamilyExternalSigner})
	if err != nil {
		t.Fatalf("IssueNonce: %v", err)
	}
	if challenge.Wallet.Family != domain.FamilyExternalSigner {
		t.Fatalf("expected auto-created external-signer wallet, got %v", challenge.Wallet.Family)
	}

	digest := personalSignDigestForTest(challenge.Message)
	sig, err := ethcrypto.Sign(digest, priv)
	if err != nil {
		t.Fatal(err)
	}
	sig[64] += 27
	sigHex := "0x" + hex.EncodeToString(sig)

	result, err := a.Verify(ctx, address, sigHex)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.SessionToken == "" || result.Proof == "" {
		t.Fatal("expected non-empty session token and proof")
	}

	// Nonce is single-use: a second verify with the same signature must fail.
	if _, err := a.Verify(ctx, address, sigHex); err != ErrNoActiveNonce {
		t.Fatalf("expected ErrNoActiveNonce on reuse, got %v", err)
	}
}

func TestVerifyUnknownWallet(t *testing.T) {
	a, cleanup := newTestAuth(t, 0)
	defer cleanup()

	_, err := a.Verify(context.Background(), "0xdoesnotexist", "0xdeadbeef")
	if err != ErrUnknownWallet {
		t.Fatalf("expected ErrUnknownWallet, got %v", err)
	}
}

func TestVerifyExpiredNonce(t *testing.T) {
	a, cleanup := newTestAuth(t, time.Millisecond)
	defer cleanup()
	ctx := context.Background()

	priv, _ := ethcrypto.GenerateKey()
	address := ethcrypto.PubkeyToAddress(priv.PublicKey).Hex()

	if _, err := a.IssueNonce(ctx, address, domain.NonceIssueOptions{Family: domain.FamilyExternalSigner}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	_, err := a.Verify(ctx, address, "0xdeadbeef")
	if err != ErrNonceExpired {
		t.Fatalf("expected ErrNonceExpired, got %v", err)
	}
}

func TestCustomKeypairRequiresPublicKeyOnFirstSight(t *testing.T) {
	a, cleanup := newTestAuth(t, 0)
	defer cleanup()

	_, err := a.IssueNonce(context.Background(), "wallet-1", domain.NonceIssueOptions{Family: domain.FamilyCustomKeypair})
	if err != ErrPublicKeyRequired {
		t.Fatalf("expected ErrPublicKeyRequired, got %v", err)
	}
}

func TestIssueNonceRejectsFamilyMismatch(t *testing.T) {
	a, cleanup := newTestAuth(t, 0)
	defer cleanup()
	ctx := context.Background()

	priv, _ := ethcrypto.GenerateKey()
	address := ethcrypto.PubkeyToAddress(priv.PublicKey).Hex()

	if _, err := a.IssueNonce(ctx, address, domain.NonceIssueOptions{Family: domain.FamilyExternalSigner}); err != nil {
		t.Fatal(err)
	}
	_, err := a.IssueNonce(ctx, address, domain.NonceIssueOptions{Family: domain.FamilyCustomKeypair})
	if err != ErrFamilyMismatch {
		t.Fatalf("expected ErrFamilyMismatch, got %v", err)
	}
}

// personalSignDigestForTest mirrors verify.personalSignDigest without
// exporting it from that package just for tests.
func personalSignDigestForTest(message string) []byte {
	prefixed := "\x19Ethereum Signed Message:\n" + itoa(len(message)) + message
	return ethcrypto.Keccak256([]byte(prefixed))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
