package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	compdex "github.com/kailas-cloud/compdex/pkg/sdk"
)

func newGuidelinesCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "guidelines",
		Aliases: []string{"gl"},
		Short:   "Manage selection guidelines",
	}
	cmd.AddCommand(
		newGuidelinesListCmd(root),
		newGuidelinesAddCmd(root),
		newGuidelinesInstructCmd(root),
		newGuidelinesRemoveCmd(root),
	)
	return cmd
}

func newGuidelinesListCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List guidelines in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			list, err := client.Guidelines().List(cmd.Context())
			if err != nil {
				return err
			}
			if list == nil {
				list = []compdex.Guideline{}
			}
			return newPrinter(cmd.OutOrStdout(), root.output).print(list, func() tableData {
				return guidelinesTable(list)
			})
		},
	}
}

func newGuidelinesAddCmd(root *rootFlags) *cobra.Command {
	var (
		description string
		criteria    []string
		priority    float64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a structured guideline",
		Example: `  compdexctl guidelines add --criteria max_distance_miles=1 --priority 2
  compdexctl guidelines add -d "same bedrooms" --criteria bedrooms_exact_match=true`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			crit, err := parseCriteria(criteria)
			if err != nil {
				return err
			}
			client, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			g, err := client.Guidelines().Add(cmd.Context(), description, crit, priority)
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), root.output).print(g, func() tableData {
				return guidelinesTable([]compdex.Guideline{g})
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&description, "description", "d", "", "free-text description")
	f.StringArrayVar(&criteria, "criteria", nil, "criterion as key=value (repeatable)")
	f.Float64VarP(&priority, "priority", "p", compdex.PriorityNormal, "priority; 2 and above filters candidates")
	return cmd
}

func newGuidelinesInstructCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "instruct <text>",
		Short:   "Add a guideline from a plain-language instruction",
		Example: `  compdexctl guidelines instruct "must be within 1 mile"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			g, err := client.Guidelines().Instruct(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout(), root.output)
			if g.IsInert() {
				p.note("Instruction not understood; stored without criteria.")
			}
			return p.print(g, func() tableData { return guidelinesTable([]compdex.Guideline{g}) })
		},
	}
}

func newGuidelinesRemoveCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the guideline at index (see list)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index must be an integer, got %q", args[0])
			}
			client, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			g, err := client.Guidelines().Remove(cmd.Context(), index)
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout(), root.output)
			p.note("Removed guideline %d.", index)
			return p.print(g, func() tableData { return guidelinesTable([]compdex.Guideline{g}) })
		},
	}
}

// parseCriteria reads key=value pairs. true/false become flags.
func parseCriteria(pairs []string) (compdex.Criteria, error) {
	crit := make(compdex.Criteria, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("criterion must be key=value, got %q", pair)
		}
		key := compdex.CriterionKey(strings.TrimSpace(k))
		if b, err := strconv.ParseBool(v); err == nil {
			crit[key] = 0
			if b {
				crit[key] = 1
			}
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("criterion %s: %q is neither a number nor true/false", k, v)
		}
		crit[key] = n
	}
	return crit, nil
}

func guidelinesTable(list []compdex.Guideline) tableData {
	t := tableData{headers: []string{"#", "Priority", "Description", "Criteria"}}
	for i, g := range list {
		t.rows = append(t.rows, []string{
			strconv.Itoa(i),
			strconv.FormatFloat(g.Priority, 'f', 1, 64),
			g.Description,
			formatCriteria(g.Criteria),
		})
	}
	return t
}

func formatCriteria(c compdex.Criteria) string {
	if len(c) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		key := compdex.CriterionKey(k)
		if key.IsFlag() {
			parts[i] = fmt.Sprintf("%s=%t", k, c.Flag(key))
			continue
		}
		parts[i] = k + "=" + strconv.FormatFloat(c[key], 'f', -1, 64)
	}
	return strings.Join(parts, " ")
}
