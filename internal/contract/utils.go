package contract

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
)

// Color variables for console output.
var (
	FatalColor = color.New(color.FgRed, color.Bold) // FatalColor marks errors that end the program.
	WarnColor  = color.New(color.FgYellow)          // WarnColor marks skipped data and failed groups.
	InfoColor  = color.New(color.FgCyan)            // InfoColor marks progress headings.
	DebugColor = color.New(color.FgHiBlack)         // DebugColor marks upstream requests.
)

var debugEnabled atomic.Bool

// SetDebug toggles debug logging.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether debug logging is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetColors toggles colored console output.
func SetColors(enabled bool) {
	color.NoColor = !enabled
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = FatalColor.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = WarnColor.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// LogInfo logs a progress message to stderr.
func LogInfo(format string, args ...any) {
	_, _ = InfoColor.Fprintf(os.Stderr, format+"\n", args...)
}

// LogDebug logs a message to stderr when debug logging is on.
func LogDebug(format string, args ...any) {
	if !DebugEnabled() {
		return
	}
	_, _ = DebugColor.Fprintf(os.Stderr, format+"\n", args...)
}

// TruncateCell truncates a table cell to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 to leave room for the "..." suffix and at least one character.
func TruncateCell(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
