package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"chromaflow/internal/workflow"
)

const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
	ansiGray    = "\x1b[90m"
)

// statusColor mirrors the stage colours of the dashboard.
func statusColor(status workflow.Status) string {
	switch status {
	case workflow.StatusUnreceived:
		return ansiGray
	case workflow.StatusReceived:
		return ansiBlue
	case workflow.StatusBlasting:
		return ansiYellow
	case workflow.StatusShopSorting:
		return ansiMagenta
	case workflow.StatusPainting:
		return ansiRed
	case workflow.StatusPacking:
		return ansiCyan
	case workflow.StatusAwaitingShipment, workflow.StatusShipped:
		return ansiGreen
	default:
		return ""
	}
}

func renderStatus(status workflow.Status, colorize bool) string {
	label := status.String()
	if !colorize {
		return label
	}
	if color := statusColor(status); color != "" {
		return color + label + ansiReset
	}
	return label
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
