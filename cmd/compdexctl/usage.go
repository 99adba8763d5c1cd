package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/compdex/internal/domain/usage"
	compdex "github.com/kailas-cloud/compdex/pkg/sdk"
)

func newUsageCmd(root *rootFlags) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show guideline interpreter token usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := usage.ParsePeriod(period)
			if err != nil {
				return err
			}
			client, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			r := client.Usage(cmd.Context(), p)
			return newPrinter(cmd.OutOrStdout(), root.output).print(r, func() tableData {
				return usageTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "month", "day or month")
	return cmd
}

func usageTable(r compdex.UsageReport) tableData {
	limit, remaining := "unlimited", "unlimited"
	if r.Budget.TokensLimit > 0 {
		limit = strconv.FormatInt(r.Budget.TokensLimit, 10)
		remaining = strconv.FormatInt(r.Budget.TokensRemaining, 10)
	}
	return tableData{
		headers: []string{"Period", "From", "Tokens", "Limit", "Remaining", "Resets"},
		rows: [][]string{{
			string(r.Period),
			r.PeriodStart.Format("2006-01-02"),
			strconv.FormatInt(r.Tokens, 10),
			limit,
			remaining,
			r.Budget.ResetsAt.Format("2006-01-02 15:04 MST"),
		}},
	}
}
