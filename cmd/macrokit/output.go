package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/macrokit/macrokit/pkg/macro"
)

const timeRounding = 10 * time.Millisecond

// Color palette for CLI output.
var (
	mintGreen  = lipgloss.Color("#A8E6CF") // success states
	salmonPink = lipgloss.Color("#FFB3BA") // failure states
	mutedGray  = lipgloss.Color("#6B7280") // labels and secondary text
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedGray)
)

// printResult renders a finished play to stdout.
func printResult(result macro.MacroResult) {
	if result.Success {
		fmt.Println(successStyle.Render("OK"))
	} else {
		msg := result.Code.String()
		if result.Message != "" {
			msg += ": " + result.Message
		}
		fmt.Println(failureStyle.Render(msg))
	}

	fmt.Printf("%s %s\n", labelStyle.Render("run:"), result.RunID)
	fmt.Printf("%s %s\n", labelStyle.Render("time:"), result.Runtime.Round(timeRounding))

	if result.Extract != "" {
		fmt.Println(labelStyle.Render("extract:"))
		for _, field := range strings.Split(result.Extract, macro.ExtractDelimiter) {
			fmt.Printf("  %s\n", field)
		}
	}
}

// printMacroList renders store contents for the list subcommand.
func printMacroList(root string, names []string) {
	fmt.Printf("%s %s\n", labelStyle.Render("macros in"), root)
	if len(names) == 0 {
		fmt.Println(labelStyle.Render("  (none)"))
		return
	}
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
}
