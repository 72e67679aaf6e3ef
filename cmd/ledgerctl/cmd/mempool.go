package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

type priorityBreakdown struct {
	Criticality float64 `json:"criticality"`
	Sensitivity float64 `json:"sensitivity"`
	Resources   float64 `json:"resources"`
	Compliance  float64 `json:"compliance"`
	Priority    float64 `json:"priority"`
}

type mempoolEntry struct {
	Transaction transactionView   `json:"transaction"`
	Tier        int               `json:"tier"`
	Priority    float64           `json:"priority"`
	Breakdown   priorityBreakdown `json:"breakdown"`
}

type transactionView struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Tier      int                    `json:"tier"`
	Priority  float64                `json:"priority"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt string                 `json:"createdAt"`
}

type mempoolSnapshot struct {
	Tier1 []mempoolEntry `json:"tier1"`
	Tier2 []mempoolEntry `json:"tier2"`
	Tier3 []mempoolEntry `json:"tier3"`
}

type listTransactionsResponse struct {
	Transactions []transactionView `json:"transactions"`
	Snapshot     mempoolSnapshot   `json:"snapshot"`
}

var mempoolCmd = &cobra.Command{
	Use:   "mempool",
	Short: "Query the current tiered mempool contents",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		q := url.Values{}
		if limit > 0 {
			q.Set("limit", fmt.Sprintf("%d", limit))
		}

		var resp listTransactionsResponse
		exitOnError(newClient().Get("/transactions", q, &resp))

		if output == "json" {
			b, _ := json.MarshalIndent(resp.Snapshot, "", "  ")
			fmt.Println(string(b))
			return
		}

		printTier := func(name string, entries []mempoolEntry) {
			fmt.Printf("%s (%d):\n", name, len(entries))
			for i, e := range entries {
				fmt.Printf("  %d. %s | type=%s priority=%.3f\n", i+1, e.Transaction.ID, e.Transaction.Type, e.Priority)
			}
		}
		printTier("Tier-1", resp.Snapshot.Tier1)
		printTier("Tier-2", resp.Snapshot.Tier2)
		printTier("Tier-3", resp.Snapshot.Tier3)
	},
}

func init() {
	rootCmd.AddCommand(mempoolCmd)
	mempoolCmd.Flags().Int("limit", 0, "max durable transactions to fetch (0 = server default)")
}
