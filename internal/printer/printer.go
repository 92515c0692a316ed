// Package printer formats user-facing CLI output: colored status lines
// and aligned summary tables.
package printer

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed, color.Bold)
	cyan  = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix.
func Success(format string, a ...any) {
	green.Printf("✓ "+format+"\n", a...)
}

// Info prints an informational message in the default color.
func Info(format string, a ...any) {
	fmt.Printf(format+"\n", a...)
}

// Header prints a section header in cyan.
func Header(format string, a ...any) {
	cyan.Printf(format+"\n", a...)
}

// Fail prints an error message in red to stderr and returns a simple
// error for Cobra (which has SilenceErrors set).
func Fail(format string, a ...any) error {
	red.Fprintf(os.Stderr, "✗ "+format+"\n", a...)
	return fmt.Errorf(format, a...)
}

// Table prints rows as an aligned table with a header row.
func Table(header []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	printRow(w, header)
	for _, row := range rows {
		printRow(w, row)
	}
	w.Flush()
}

func printRow(w *tabwriter.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, f)
	}
	fmt.Fprintln(w)
}
