package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	compdex "github.com/kailas-cloud/compdex/pkg/sdk"
)

func newHealthCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check storage and providers",
		Long: `Runs every health check. Exits non-zero when any check fails, so the
command can gate scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			h := client.Health(cmd.Context())
			if err := newPrinter(cmd.OutOrStdout(), root.output).print(h, func() tableData {
				return healthTable(h)
			}); err != nil {
				return err
			}
			if !h.OK() {
				return fmt.Errorf("%s: failing %v", h.Status, h.Failing())
			}
			return nil
		},
	}
}

func healthTable(h compdex.HealthStatus) tableData {
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name, h.Checks[name]}
	}
	return tableData{headers: []string{"Check", "Result"}, rows: rows}
}
