package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	compdex "github.com/kailas-cloud/compdex/pkg/sdk"
)

// findOutput is what find prints in JSON and YAML.
type findOutput struct {
	compdex.Result
	Valuation *compdex.Valuation `json:"valuation,omitempty"`
}

func newFindCmd(root *rootFlags) *cobra.Command {
	var (
		q        compdex.Query
		radius   float64
		maxAge   int
		minScore float64
		maxComps int
		estimate bool
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find comparable sales for a subject property",
		Example: `  compdexctl find --parcel 0123-456
  compdexctl find --street "1 Oak St" --city Austin --state TX --max-comps 5 --estimate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			var opts []compdex.SearchOption
			if radius > 0 {
				opts = append(opts, compdex.Radius(radius))
			}
			if maxAge > 0 {
				opts = append(opts, compdex.MaxAgeDays(maxAge))
			}
			if cmd.Flags().Changed("min-score") {
				opts = append(opts, compdex.MinScore(minScore))
			}
			if maxComps > 0 {
				opts = append(opts, compdex.MaxComps(maxComps))
			}

			res, err := client.FindComparables(cmd.Context(), q, opts...)
			if err != nil {
				return err
			}
			out := findOutput{Result: res}
			if estimate {
				v := client.Estimate(&res.Subject, res.Comparables)
				out.Valuation = &v
			}

			p := newPrinter(cmd.OutOrStdout(), root.output)
			p.note("Subject %s (%s), selection %s", res.Subject.ID, formatAddress(res.Subject.Address), res.SelectionID)
			if len(res.Comparables) == 0 {
				p.note("No comparables scored %.2f or better.", res.MinScore)
			}
			if err := p.print(out, func() tableData { return comparablesTable(res.Comparables) }); err != nil {
				return err
			}
			if out.Valuation != nil {
				p.note("%s", formatValuation(out.Valuation))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&q.ParcelID, "parcel", "", "parcel id")
	f.StringVar(&q.Address.Street, "street", "", "street address")
	f.StringVar(&q.Address.City, "city", "", "city")
	f.StringVar(&q.Address.State, "state", "", "state code")
	f.StringVar(&q.Address.Zip, "zip", "", "zip code")
	f.Float64Var(&radius, "radius", 0, "search radius in miles")
	f.IntVar(&maxAge, "max-age-days", 0, "ignore sales older than this")
	f.Float64Var(&minScore, "min-score", 0, "minimum similarity score (0 keeps every candidate)")
	f.IntVar(&maxComps, "max-comps", 0, "maximum number of comparables")
	f.BoolVar(&estimate, "estimate", false, "also estimate the subject's value")
	return cmd
}

var usd = message.NewPrinter(language.AmericanEnglish)

func comparablesTable(comps []compdex.Comparable) tableData {
	t := tableData{headers: []string{"#", "ID", "Address", "Score", "Miles", "Sale Price", "Sale Date", "Reasons"}}
	for i, c := range comps {
		miles, price, date := "-", "-", "-"
		if c.Result.DistanceMiles != nil {
			miles = strconv.FormatFloat(*c.Result.DistanceMiles, 'f', 2, 64)
		}
		if c.Property.SalePrice != nil {
			price = usd.Sprintf("$%.0f", *c.Property.SalePrice)
		}
		if c.Property.SaleDate != nil {
			date = c.Property.SaleDate.Format("2006-01-02")
		}
		t.rows = append(t.rows, []string{
			strconv.Itoa(i + 1),
			c.Property.ID,
			formatAddress(c.Property.Address),
			strconv.FormatFloat(c.Result.Score, 'f', 3, 64),
			miles,
			price,
			date,
			strings.Join(c.Result.Reasons, "; "),
		})
	}
	return t
}

func formatAddress(a compdex.Address) string {
	var parts []string
	for _, s := range []string{a.Street, a.City, strings.TrimSpace(a.State + " " + a.Zip)} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func formatValuation(v *compdex.Valuation) string {
	if v.CompCount == 0 {
		return "No estimate: no comparables."
	}
	s := usd.Sprintf("Estimate $%.0f (%s, %d comps, confidence %s %.2f)",
		v.Estimate, v.Method, v.CompCount, v.Confidence, v.ConfidenceScore)
	if v.AdjustedEstimate != nil {
		s += usd.Sprintf(", adjusted $%.0f", *v.AdjustedEstimate)
	}
	if v.DeviationFromList != nil {
		s += fmt.Sprintf(", %+.1f%% vs list", *v.DeviationFromList)
	}
	return s
}
