// Package outwriter has output and writer logic.
package outwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/cistat/core/flatten"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
)

// sectionTable is one report section flattened to a table.
type sectionTable struct {
	Title string
	Table *flatten.Table
}

// WriteReport outputs the report, dispatching based on the output format configured.
func WriteReport(report *schema.Report, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON")
	}

	tables, err := flattenSections(report)
	if err != nil {
		return err
	}

	switch cfg.Output {
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVSections(w, tables)
		}, "Wrote CSV")
	case schema.TableOut:
		width := maxCellWidth(cfg, maxColumns(tables))
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTableSections(w, tables, width)
		}, "Wrote table")
	case schema.XLSXOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeXLSXSections(w, tables)
		}, "Wrote spreadsheet")
	default:
		// Default to delimited text
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTextSections(w, tables, cfg.Delimiter)
		}, "Wrote table")
	}
}

// flattenSections flattens the rows of every section against its own column set.
func flattenSections(report *schema.Report) ([]sectionTable, error) {
	out := make([]sectionTable, 0, len(report.Sections))
	for _, s := range report.Sections {
		records, err := flatten.RecordsFromAny(s.Rows)
		if err != nil {
			return nil, fmt.Errorf("flattening section %q: %w", s.Title, err)
		}
		out = append(out, sectionTable{Title: s.Title, Table: flatten.Flatten(records)})
	}
	return out, nil
}

func maxColumns(tables []sectionTable) int {
	n := 0
	for _, t := range tables {
		n = max(n, len(t.Table.Columns))
	}
	return n
}

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
