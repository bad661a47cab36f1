package outwriter

import (
	"os"

	"github.com/huangsam/cistat/internal/contract"
	"golang.org/x/term"
)

// Bounds of a single table cell.
const (
	minCellWidth = 8
	maxCellCap   = 60
)

// getTerminalWidth returns the configured width override, else the detected
// terminal width, else 80.
func getTerminalWidth(cfg *contract.Config) int {
	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		// Fallback to conservative default if terminal size can't be detected
		return 80
	}
	return detectedWidth
}

// maxCellWidth splits the terminal width evenly across columns, leaving room
// for the borders and padding tablewriter adds around every cell.
func maxCellWidth(cfg *contract.Config, columns int) int {
	if columns <= 0 {
		return maxCellCap
	}
	available := (getTerminalWidth(cfg) - 1) / columns
	available -= 3 // "| " before and " " after each cell
	return min(max(available, minCellWidth), maxCellCap)
}
