package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// format selects how command results are printed.
type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatYAML  format = "yaml"
)

func parseFormat(s string) (format, error) {
	f := format(strings.ToLower(s))
	switch f {
	case formatTable, formatJSON, formatYAML, "":
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q: must be one of table, json, yaml", s)
	}
}

// detectFormat picks the explicit format, else a table on a terminal and
// JSON for pipes.
func detectFormat(explicit string, w io.Writer) format {
	if f, err := parseFormat(explicit); err == nil && f != "" {
		return f
	}
	if file, ok := w.(*os.File); ok && (isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())) {
		return formatTable
	}
	return formatJSON
}

// tableData is a rendered table.
type tableData struct {
	headers []string
	rows    [][]string
}

// printer writes structured values or a table, depending on the format.
type printer struct {
	w      io.Writer
	format format
}

func newPrinter(w io.Writer, explicit string) *printer {
	return &printer{w: w, format: detectFormat(explicit, w)}
}

// print writes value as JSON or YAML, or table() as a table.
func (p *printer) print(value any, table func() tableData) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case formatYAML:
		// Round-trip through JSON so the field names match the API.
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderTable(p.w, table())
	}
}

// note writes a line that only appears in table output.
func (p *printer) note(msg string, args ...any) {
	if p.format == formatTable {
		fmt.Fprintf(p.w, msg+"\n", args...)
	}
}

func renderTable(w io.Writer, data tableData) error {
	t := tablewriter.NewTable(w)
	headers := make([]any, len(data.headers))
	for i, h := range data.headers {
		headers[i] = h
	}
	t.Header(headers...)
	for _, row := range data.rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := t.Append(cells...); err != nil {
			return err
		}
	}
	return t.Render()
}
