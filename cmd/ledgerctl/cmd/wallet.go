package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type walletProfile struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Family  string `json:"family"`
	Status  string `json:"status"`
}

type challengeResponse struct {
	Nonce     string        `json:"nonce"`
	Message   string        `json:"message"`
	ExpiresAt string        `json:"expiresAt"`
	Wallet    walletProfile `json:"wallet"`
}

type verifyResponse struct {
	Success      bool          `json:"success"`
	Wallet       walletProfile `json:"wallet"`
	VerifiedAt   string        `json:"verifiedAt"`
	SessionToken string        `json:"sessionToken"`
	Proof        string        `json:"proof"`
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet challenge/verify operations",
}

var walletChallengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Request a single-use nonce challenge for an address",
	Run: func(cmd *cobra.Command, args []string) {
		address, _ := cmd.Flags().GetString("address")
		family, _ := cmd.Flags().GetString("family")
		publicKey, _ := cmd.Flags().GetString("public-key")
		if address == "" {
			fmt.Println("--address is required")
			return
		}

		req := map[string]any{
			"address":         address,
			"type":            family,
			"customPublicKey": publicKey,
		}

		var resp challengeResponse
		exitOnError(newClient().Post("/wallet/challenge", req, &resp))

		if output == "json" {
			b, _ := json.MarshalIndent(resp, "", "  ")
			fmt.Println(string(b))
			return
		}
		fmt.Printf("Nonce: %s\n", resp.Nonce)
		fmt.Printf("Message to sign: %s\n", resp.Message)
		fmt.Printf("Expires at: %s\n", resp.ExpiresAt)
	},
}

var walletVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Submit a signature for the active nonce and verify it",
	Run: func(cmd *cobra.Command, args []string) {
		address, _ := cmd.Flags().GetString("address")
		signature, _ := cmd.Flags().GetString("signature")
		if address == "" || signature == "" {
			fmt.Println("--address and --signature are required")
			return
		}

		req := map[string]any{"address": address, "signature": signature}

		var resp verifyResponse
		exitOnError(newClient().Post("/wallet/verify", req, &resp))

		if output == "json" {
			b, _ := json.MarshalIndent(resp, "", "  ")
			fmt.Println(string(b))
			return
		}
		fmt.Printf("Verified: %v\n", resp.Success)
		fmt.Printf("Session token: %s\n", resp.SessionToken)
	},
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletChallengeCmd)
	walletCmd.AddCommand(walletVerifyCmd)

	walletChallengeCmd.Flags().String("address", "", "wallet address (required)")
	walletChallengeCmd.Flags().String("family", "external-signer", "wallet family: external-signer|custom-keypair")
	walletChallengeCmd.Flags().String("public-key", "", "public key, required on first sight of a custom-keypair wallet")

	walletVerifyCmd.Flags().String("address", "", "wallet address (required)")
	walletVerifyCmd.Flags().String("signature", "", "signature over the challenge message (required)")
}
