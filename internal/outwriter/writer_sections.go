package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/cistat/internal/contract"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/xuri/excelize/v2"
)

// writeHeading writes the "# Title" line of a section. Untitled sections have none.
func writeHeading(w io.Writer, title string) error {
	if title == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "# %s\n", title)
	return err
}

// writeTextSections writes every section as a delimited table without quoting.
func writeTextSections(w io.Writer, tables []sectionTable, delim string) error {
	for _, s := range tables {
		if err := writeHeading(w, s.Title); err != nil {
			return err
		}
		if err := s.Table.Render(w, delim); err != nil {
			return err
		}
	}
	return nil
}

// writeCSVSections writes every section as an RFC 4180 block. Blocks after the
// first are separated by an empty line.
func writeCSVSections(w io.Writer, tables []sectionTable) error {
	for i, s := range tables {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := writeHeading(w, s.Title); err != nil {
			return err
		}
		if len(s.Table.Columns) == 0 {
			continue
		}
		if err := writeCSVWithHeader(w, s.Table.Columns, func(cw *csv.Writer) error {
			return cw.WriteAll(s.Table.Rows)
		}); err != nil {
			return err
		}
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// writeTableSections renders every section with tablewriter, truncating cells to maxWidth.
func writeTableSections(w io.Writer, tables []sectionTable, maxWidth int) error {
	for _, s := range tables {
		if err := writeHeading(w, s.Title); err != nil {
			return err
		}
		if len(s.Table.Columns) == 0 {
			continue
		}

		table := tablewriter.NewWriter(w)
		table.Header(truncateAll(s.Table.Columns, maxWidth))
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})

		data := make([][]string, len(s.Table.Rows))
		for i, row := range s.Table.Rows {
			data[i] = truncateAll(row, maxWidth)
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	return nil
}

func truncateAll(cells []string, maxWidth int) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = contract.TruncateCell(c, maxWidth)
	}
	return out
}

// maxSheetName is the longest worksheet name Excel accepts.
const maxSheetName = 31

// writeXLSXSections writes one worksheet per section.
func writeXLSXSections(w io.Writer, tables []sectionTable) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	defaultSheet := f.GetSheetName(0)
	used := make(map[string]bool)
	for i, s := range tables {
		name := uniqueSheetName(sheetName(s.Title, i), used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to name worksheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create worksheet %q: %w", name, err)
		}

		if len(s.Table.Columns) == 0 {
			continue
		}
		if err := setSheetRow(f, name, 1, s.Table.Columns); err != nil {
			return err
		}
		for r, row := range s.Table.Rows {
			if err := setSheetRow(f, name, r+2, row); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func setSheetRow(f *excelize.File, sheet string, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %q: %w", row, sheet, err)
	}
	return nil
}

// sheetName turns a section title into a valid worksheet name.
func sheetName(title string, index int) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}

// uniqueSheetName suffixes a name already in use. Excel compares names case-insensitively.
func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
