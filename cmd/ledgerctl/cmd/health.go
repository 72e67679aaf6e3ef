package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type healthResponse struct {
	Status         string  `json:"status"`
	UptimeSeconds  int64   `json:"uptimeSeconds"`
	NetworkID      string  `json:"networkId"`
	Version        string  `json:"version"`
	WalletCount    int     `json:"walletCount"`
	ProviderCount  int     `json:"providerCount"`
	PatientCount   int     `json:"patientCount"`
	ValidatorCount int     `json:"validatorCount"`
	CPULoadPercent float64 `json:"cpuLoadPercent"`
	Mempool        struct {
		Tier1Size        int `json:"tier1Size"`
		Tier2Size        int `json:"tier2Size"`
		Tier3Size        int `json:"tier3Size"`
		Tier1Capacity    int `json:"tier1Capacity"`
		Tier2Capacity    int `json:"tier2Capacity"`
		Tier3Capacity    int `json:"tier3Capacity"`
		ValidatorsOnline int `json:"validatorsOnline"`
		ValidatorsTotal  int `json:"validatorsTotal"`
	} `json:"mempool"`
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query node health summary",
	Run: func(cmd *cobra.Command, args []string) {
		var health healthResponse
		exitOnError(newClient().Get("/health", nil, &health))

		if output == "json" {
			b, _ := json.MarshalIndent(health, "", "  ")
			fmt.Println(string(b))
			return
		}

		fmt.Printf("Status: %s\n", health.Status)
		fmt.Printf("Network: %s\n", health.NetworkID)
		fmt.Printf("Version: %s\n", health.Version)
		fmt.Printf("Uptime: %ds\n", health.UptimeSeconds)
		fmt.Printf("CPU Load: %.2f%%\n", health.CPULoadPercent)
		fmt.Printf("Wallets: %d  Providers: %d  Patients: %d  Validators: %d\n",
			health.WalletCount, health.ProviderCount, health.PatientCount, health.ValidatorCount)
		fmt.Printf("Mempool: tier1=%d/%d tier2=%d/%d tier3=%d/%d validators=%d/%d\n",
			health.Mempool.Tier1Size, health.Mempool.Tier1Capacity,
			health.Mempool.Tier2Size, health.Mempool.Tier2Capacity,
			health.Mempool.Tier3Size, health.Mempool.Tier3Capacity,
			health.Mempool.ValidatorsOnline, health.Mempool.ValidatorsTotal)
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
