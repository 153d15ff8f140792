package main

import (
	"fmt"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// stderrLine prints one marker-prefixed line to stderr, keeping stdout free
// for machine-readable output (JSON, JSONL exports).
func stderrLine(color, marker, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, marker+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { stderrLine(colorGreen, "✓", format, args...) }

func printError(format string, args ...any) { stderrLine(colorRed, "✗", format, args...) }

func printWarning(format string, args ...any) { stderrLine(colorYellow, "⚠", format, args...) }

func printStep(format string, args ...any) { stderrLine(colorCyan, "→", format, args...) }

// printStatus prints an indented "Label: value" line used by `status` and
// `metrics`.
func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// statusColor maps a generation status to its list-output color.
func statusColor(status string) string {
	switch status {
	case "completed":
		return colorGreen
	case "failed":
		return colorRed
	case "queued", "paused":
		return colorYellow
	default:
		// generating, processing
		return colorCyan
	}
}

// shortID truncates UUIDs to their first segment for list output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
