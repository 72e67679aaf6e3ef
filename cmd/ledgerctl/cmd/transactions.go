package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type submitTransactionRequest struct {
	Type       string                 `json:"type"`
	PatientID  string                 `json:"patientId"`
	Provider   string                 `json:"provider"`
	ProviderID string                 `json:"providerId,omitempty"`
	Priority   string                 `json:"priority"`
	Signature  string                 `json:"signature,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	ActorID    string                 `json:"actorId,omitempty"`
	ActorType  string                 `json:"actorType,omitempty"`
	Details    string                 `json:"details,omitempty"`
}

type submitTransactionResponse struct {
	Transaction transactionView   `json:"transaction"`
	Breakdown   priorityBreakdown `json:"breakdown"`
	Tier        int               `json:"tier"`
	Evicted     *mempoolEntry     `json:"evicted,omitempty"`
}

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Transaction operations",
}

var transactionSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a transaction for admission to the mempool",
	Run: func(cmd *cobra.Command, args []string) {
		typ, _ := cmd.Flags().GetString("type")
		patientID, _ := cmd.Flags().GetString("patient")
		provider, _ := cmd.Flags().GetString("provider")
		priority, _ := cmd.Flags().GetString("priority")
		signature, _ := cmd.Flags().GetString("signature")
		actorID, _ := cmd.Flags().GetString("actor")
		details, _ := cmd.Flags().GetString("details")

		if typ == "" || patientID == "" || provider == "" || priority == "" {
			fmt.Println("--type, --patient, --provider and --priority are required")
			return
		}

		req := submitTransactionRequest{
			Type:      typ,
			PatientID: patientID,
			Provider:  provider,
			Priority:  priority,
			Signature: signature,
			ActorID:   actorID,
			Details:   details,
		}

		var resp submitTransactionResponse
		exitOnError(newClient().Post("/transactions", req, &resp))

		if output == "json" {
			b, _ := json.MarshalIndent(resp, "", "  ")
			fmt.Println(string(b))
			return
		}

		fmt.Printf("Admitted %s into Tier-%d (priority %.3f)\n", resp.Transaction.ID, resp.Tier, resp.Breakdown.Priority)
		if resp.Evicted != nil {
			fmt.Printf("Evicted %s to make room\n", resp.Evicted.Transaction.ID)
		}
	},
}

func init() {
	rootCmd.AddCommand(txCmd)
	txCmd.AddCommand(transactionSubmitCmd)
	transactionSubmitCmd.Flags().String("type", "", "transaction type (required)")
	transactionSubmitCmd.Flags().String("patient", "", "patient ID (required)")
	transactionSubmitCmd.Flags().String("provider", "", "provider name (required)")
	transactionSubmitCmd.Flags().String("priority", "", "priority hint: Tier-1|Tier-2|Tier-3 (required)")
	transactionSubmitCmd.Flags().String("signature", "", "transaction signature")
	transactionSubmitCmd.Flags().String("actor", "", "actor ID recorded in the audit entry")
	transactionSubmitCmd.Flags().String("details", "", "free-form details recorded in the audit entry")
}
