package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/nexuschat/pkg/llm/openrouter"
)

func init() {
	rootCmd.AddCommand(modelsCmd)
}

var modelsCmd = &cobra.Command{
	Use:   "models [filter]",
	Short: "List gateway models, free models first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		client := openrouter.New(cfg.Gateway.BaseURL)
		models, err := client.ListModels(context.Background())
		if err != nil {
			return fmt.Errorf("fetch model catalog: %w", err)
		}

		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		filtered := openrouter.FilterModels(models, query)
		if len(filtered) == 0 {
			fmt.Println("No models match.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCONTEXT\tPRICE")
		for _, m := range filtered {
			price := m.Pricing.Prompt
			if m.Free() {
				price = "FREE"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.ID, m.Name, m.ContextLength, price)
		}
		return w.Flush()
	},
}
