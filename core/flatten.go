package core

import (
	"fmt"
	"io"
	"os"

	"github.com/huangsam/cistat/core/flatten"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/outwriter"
	"github.com/huangsam/cistat/schema"
)

// ExecuteFlatten flattens a JSON array of records read from cfg.FlattenInput,
// or stdin when it is empty or "-", and writes the table.
func ExecuteFlatten(cfg *contract.Config) error {
	in := io.Reader(os.Stdin)
	if cfg.FlattenInput != "" && cfg.FlattenInput != "-" {
		f, err := os.Open(cfg.FlattenInput)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}
	report, err := BuildFlattenReport(in)
	if err != nil {
		return err
	}
	return outwriter.WriteReport(report, cfg)
}

// BuildFlattenReport parses a JSON array of objects into a report with one
// untitled section. Key order of the input is kept.
func BuildFlattenReport(r io.Reader) (*schema.Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	value, err := flatten.Parse(data)
	if err != nil {
		return nil, err
	}
	records, err := flatten.Records(value)
	if err != nil {
		return nil, err
	}

	report := &schema.Report{Title: "Flattened records"}
	section := report.AddSection("")
	for _, rec := range records {
		section.Rows = append(section.Rows, rec)
	}
	return report, nil
}
