package domain

import "time"

// WalletFamily determines which signature scheme binds an address.
type WalletFamily string

const (
	FamilyExternalSigner WalletFamily = "external-signer"
	FamilyCustomKeypair  WalletFamily = "custom-keypair"
)

// WalletStatus is the lifecycle state of a registered wallet.
type WalletStatus string

const (
	StatusActive    WalletStatus = "active"
	StatusRevoked   WalletStatus = "revoked"
	StatusSuspended WalletStatus = "suspended"
)

// WalletProfile is a registered address and its authentication metadata.
// NormalizedAddress (lowercased, trimmed) is unique across the registry.
type WalletProfile struct {
	ID                string            `json:"id"`
	Address           string            `json:"address"`
	NormalizedAddress string            `json:"normalizedAddress"`
	Family            WalletFamily      `json:"family"`
	Label             string            `json:"label,omitempty"`
	PublicKey         string            `json:"publicKey,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Roles             []string          `json:"roles"`
	Status            WalletStatus      `json:"status"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	LastSeenAt        *time.Time        `json:"lastSeenAt,omitempty"`
}

// DefaultRoles is the default role list assigned on registration.
func DefaultRoles() []string { return []string{"clinician"} }

// WalletRegistration is the caller-supplied input to register().
type WalletRegistration struct {
	Address   string
	Family    WalletFamily
	Label     string
	PublicKey string
	Metadata  map[string]string
}

// WalletNonceRecord is a single-use, time-bounded challenge issued to an
// address. At most one active record per NormalizedAddress.
type WalletNonceRecord struct {
	Address           string            `json:"address"`
	NormalizedAddress string            `json:"normalizedAddress"`
	Nonce             string            `json:"nonce"`
	Message           string            `json:"message"`
	Family            WalletFamily      `json:"family"`
	IssuedAt          time.Time         `json:"issuedAt"`
	ExpiresAt         time.Time         `json:"expiresAt"`
	Context           map[string]string `json:"context,omitempty"`
}

// NonceIssueOptions is the caller-supplied input to issueNonce().
type NonceIssueOptions struct {
	Family        WalletFamily
	Label         string
	Metadata      map[string]string
	CustomPublicKey string
	Context       map[string]string
}

// NonceChallenge is the response to issueNonce().
type NonceChallenge struct {
	Nonce     string
	Message   string
	ExpiresAt time.Time
	Wallet    WalletProfile
}

// VerifyResult is the response to verify().
type VerifyResult struct {
	Wallet        WalletProfile
	VerifiedAt    time.Time
	SessionToken  string
	Proof         string
}
