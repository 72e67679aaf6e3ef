// Package verify implements the two wallet signature families from
// spec.md §4.4: external-signer (secp256k1 / EIP-191 personal-sign,
// grounded on ardanlabs-blockchain's foundation/blockchain/signature
// package — same go-ethereum crypto primitives, standard Ethereum
// prefix instead of Ardan's custom stamp) and custom-keypair (Ed25519 /
// RSA-PSS, grounded on the teacher's core/wallet/signature_verifier.go
// and core/auth/key_provider.go, generalized from a fixed in-memory key
// map to per-wallet stored keys with a scheme switch).
package verify

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SchemeEd25519 and SchemeRSAPSS are the recognized custom-keypair
// schemes; ed25519 is the default when metadata.scheme is absent.
const (
	SchemeEd25519 = "ed25519"
	SchemeRSAPSS  = "rsa-pss"
)

// ErrSignatureInvalid is returned (wrapped with context) when no public
// key can be recovered from an external-signer signature. A signature
// that decodes but does not match is reported as false with a nil error.
var ErrSignatureInvalid = fmt.Errorf("verify: signature invalid")

// decodeSignature accepts hex (optionally 0x-prefixed) or base64 per
// spec.md §4.4.
func decodeSignature(sig string) ([]byte, error) {
	trimmed := strings.TrimPrefix(sig, "0x")
	if raw, err := hex.DecodeString(trimmed); err == nil {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(sig); err == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("verify: signature is neither valid hex nor base64")
}

func decodeKeyMaterial(key string) ([]byte, error) {
	trimmed := strings.TrimPrefix(key, "0x")
	if raw, err := hex.DecodeString(trimmed); err == nil {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(key); err == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("verify: public key is neither valid hex nor base64")
}

// personalSignDigest reproduces the EIP-191 personal_sign prefix:
// keccak256("\x19Ethereum Signed Message:\n" + len(message) + message).
func personalSignDigest(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return ethcrypto.Keccak256([]byte(prefixed))
}

// ExternalSigner recovers the signing address from an EIP-191
// personal-sign signature and compares it (case-insensitively) to the
// wallet's normalized address.
func ExternalSigner(normalizedAddress, message, signature string) (bool, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return false, err
	}
	if len(sig) != 65 {
		return false, fmt.Errorf("verify: expected 65-byte signature, got %d", len(sig))
	}

	// go-ethereum's SigToPub expects the recovery id in the last byte as
	// 0/1; some signers (MetaMask et al.) emit 27/28.
	sigCopy := append([]byte{}, sig...)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27
	}

	digest := personalSignDigest(message)
	pubKey, err := ethcrypto.SigToPub(digest, sigCopy)
	if err != nil {
		return false, fmt.Errorf("%w: recover public key: %v", ErrSignatureInvalid, err)
	}

	recovered := strings.ToLower(ethcrypto.PubkeyToAddress(*pubKey).Hex())
	return recovered == strings.ToLower(normalizedAddress), nil
}

// CustomKeypair verifies message against signature using publicKey
// under the scheme named in metadata (default ed25519).
func CustomKeypair(scheme, publicKey, message, signature string) (bool, error) {
	if scheme == "" {
		scheme = SchemeEd25519
	}

	sig, err := decodeSignature(signature)
	if err != nil {
		return false, err
	}
	key, err := decodeKeyMaterial(publicKey)
	if err != nil {
		return false, err
	}

	switch scheme {
	case SchemeEd25519:
		if len(key) != ed25519.PublicKeySize {
			return false, fmt.Errorf("verify: expected %d-byte ed25519 key, got %d", ed25519.PublicKeySize, len(key))
		}
		return ed25519.Verify(ed25519.PublicKey(key), []byte(message), sig), nil

	case SchemeRSAPSS:
		pub, err := parseRSAPublicKey(key)
		if err != nil {
			return false, err
		}
		digest := sha256.Sum256([]byte(message))
		err = rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, nil)
		return err == nil, nil

	default:
		return false, fmt.Errorf("verify: unrecognized custom-keypair scheme %q", scheme)
	}
}

func parseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	if pub, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return pub, nil
	}
	any, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("verify: parse rsa public key: %w", err)
	}
	pub, ok := any.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("verify: key is not an RSA public key")
	}
	return pub, nil
}
