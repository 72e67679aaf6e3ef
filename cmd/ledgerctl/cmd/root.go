// Package cmd holds ledgerctl's cobra command tree, grounded on
// unicare-cli/cmd/root.go's rootCmd + init()-registers-subcommand
// pattern.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"uniledger/cmd/ledgerctl/client"
)

var (
	serverURL string
	token     string
	output    string
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Command-line client for a ledgerd node",
	Long:  "ledgerctl queries and drives a running ledgerd node's HTTP API: health, mempool, transactions, audit log and wallet auth.",
}

// Execute runs the root command, exiting non-zero on error, matching
// unicare-cli's Execute().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080/api", "ledgerd API base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token for admin-gated routes")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "plain", "output format: plain|json")
}

func newClient() *client.Client {
	return client.New(serverURL, token)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
