package verify

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestExternalSignerRoundTrip(t *testing.T) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	address := ethcrypto.PubkeyToAddress(priv.PublicKey).Hex()

	message := "CAMTC system\nSign this message to authenticate\nWallet: " + address + "\nNonce: CAMTC-abc\nTimestamp: 2026-01-01T00:00:00Z"
	digest := personalSignDigest(message)

	sig, err := ethcrypto.Sign(digest, priv)
	if err != nil {
		t.Fatal(err)
	}
	sig[64] += 27

	ok, err := ExternalSigner(address, message, "0x"+hex.EncodeToString(sig))
	if err != nil {
		t.Fatalf("ExternalSigner: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestExternalSignerRejectsWrongAddress(t *testing.T) {
	priv, _ := ethcrypto.GenerateKey()
	otherAddress := "0x0000000000000000000000000000000000000001"

	message := "hello"
	digest := personalSignDigest(message)
	sig, _ := ethcrypto.Sign(digest, priv)
	sig[64] += 27

	ok, err := ExternalSigner(otherAddress, message, "0x"+hex.EncodeToString(sig))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected mismatch to fail verification")
	}
}

func TestCustomKeypairEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	message := "authenticate me"
	sig := ed25519.Sign(priv, []byte(message))

	ok, err := CustomKeypair("", hex.EncodeToString(pub), message, hex.EncodeToString(sig))
	if err != nil {
		t.Fatalf("CustomKeypair: %v", err)
	}
	if !ok {
		t.Fatal("expected ed25519 signature to verify")
	}
}

func TestCustomKeypairRSAPSS(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	message := "authenticate me"
	digest := sha256.Sum256([]byte(message))
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], nil)
	if err != nil {
		t.Fatal(err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := CustomKeypair(SchemeRSAPSS, hex.EncodeToString(pubDER), message, hex.EncodeToString(sig))
	if err != nil {
		t.Fatalf("CustomKeypair: %v", err)
	}
	if !ok {
		t.Fatal("expected rsa-pss signature to verify")
	}
}

func TestCustomKeypairRejectsTamperedMessage(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	sig := ed25519.Sign(priv, []byte("original"))

	ok, err := CustomKeypair("", hex.EncodeToString(pub), "tampered", hex.EncodeToString(sig))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected tampered message to fail verification")
	}
}
