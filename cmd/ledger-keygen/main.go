// Command ledger-keygen generates an Ed25519 or RSA-PSS keypair for a
// custom-keypair wallet (spec.md §4.4) and, given a --message, signs it
// so the output can be fed directly to `ledgerctl wallet verify`.
//
// Adapted from the teacher's generate_wallet.go (ed25519.GenerateKey +
// base64 printing) and core/crypto.go's GenerateAndSaveKeypair, merged
// with core/signer.go's sign-and-print shape; generalized from the
// teacher's single hardcoded Ed25519 node-identity key to an operator
// tool covering both custom-keypair schemes verify.CustomKeypair
// recognizes.
package main

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
)

func main() {
	scheme := flag.String("scheme", "ed25519", "keypair scheme: ed25519|rsa-pss")
	message := flag.String("message", "", "optional message to sign with the generated private key")
	flag.Parse()

	switch *scheme {
	case "ed25519":
		generateEd25519(*message)
	case "rsa-pss":
		generateRSAPSS(*message)
	default:
		fmt.Fprintf(os.Stderr, "unrecognized scheme %q (want ed25519 or rsa-pss)\n", *scheme)
		os.Exit(1)
	}
}

func generateEd25519(message string) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate ed25519 keypair: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("scheme: ed25519\n")
	fmt.Printf("publicKey (base64): %s\n", base64.StdEncoding.EncodeToString(pub))
	fmt.Printf("privateKey (base64, keep secret): %s\n", base64.StdEncoding.EncodeToString(priv))

	if message != "" {
		sig := ed25519.Sign(priv, []byte(message))
		fmt.Printf("message: %s\n", message)
		fmt.Printf("signature (base64): %s\n", base64.StdEncoding.EncodeToString(sig))
	}
}

func generateRSAPSS(message string) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate rsa keypair: %v\n", err)
		os.Exit(1)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal rsa public key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("scheme: rsa-pss\n")
	fmt.Printf("publicKey (base64, PKIX DER): %s\n", base64.StdEncoding.EncodeToString(pubDER))
	privDER := x509.MarshalPKCS1PrivateKey(priv)
	fmt.Printf("privateKey (base64, PKCS1 DER, keep secret): %s\n", base64.StdEncoding.EncodeToString(privDER))

	if message != "" {
		digest := sha256.Sum256([]byte(message))
		sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sign message: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("message: %s\n", message)
		fmt.Printf("signature (base64): %s\n", base64.StdEncoding.EncodeToString(sig))
	}
}
