package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/compdex/internal/domain/scoring"
	compdex "github.com/kailas-cloud/compdex/pkg/sdk"
)

func newFeedbackCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <selection-id> <quality> [candidate-id...]",
		Short: "Rate a selection from 0 (useless) to 1 (perfect)",
		Long: `Rates the comparables of a previous find. Without candidate ids every
ranked comparable counts as accepted. When learning is enabled the scoring
weights move toward the features of the accepted comparables.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quality, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("quality must be a number, got %q", args[1])
			}
			client, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			rec, err := client.RecordFeedback(cmd.Context(), args[0], quality, args[2:]...)
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout(), root.output)
			p.note("Recorded feedback %s for %d comparables.", rec.ID, len(rec.CandidateIDs))
			if p.format == formatTable {
				return nil
			}
			return p.print(rec, nil)
		},
	}
}

func newTrainCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Recompute weights by replaying the feedback log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			sum, err := client.Train(cmd.Context())
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout(), root.output)
			p.note("Replayed %d feedback records.", sum.Records)
			return p.print(sum, func() tableData { return weightsTable(sum.Before, sum.After) })
		},
	}
}

func newWeightsCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "weights",
		Short: "Show the current scoring weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			w, err := client.Weights(cmd.Context())
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), root.output).print(w, func() tableData {
				return weightsTable(nil, w)
			})
		},
	}
}

// weightsTable lists features in canonical order, with a before column
// when before is set.
func weightsTable(before, after compdex.Weights) tableData {
	t := tableData{headers: []string{"Feature", "Weight"}}
	if before != nil {
		t.headers = []string{"Feature", "Before", "After"}
	}
	for _, f := range scoring.Features {
		row := []string{string(f)}
		if before != nil {
			row = append(row, strconv.FormatFloat(before[f], 'f', 4, 64))
		}
		row = append(row, strconv.FormatFloat(after[f], 'f', 4, 64))
		t.rows = append(t.rows, row)
	}
	return t
}
