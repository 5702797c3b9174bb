package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uiverify/internal/report"
	"uiverify/internal/scenarios"
)

var listFlags struct {
	vars     []string
	markdown bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in scenarios with their injected and interacted step counts",
	RunE:  runList,
}

func init() {
	f := listCmd.Flags()
	f.StringArrayVar(&listFlags.vars, "var", nil, "Override a scenario variable (key=value, repeatable)")
	f.BoolVar(&listFlags.markdown, "markdown", false, "Print as a Markdown table")
}

func runList(cmd *cobra.Command, _ []string) error {
	vars, err := parseVars(listFlags.vars)
	if err != nil {
		return err
	}
	scs, err := scenarios.LoadAll(vars)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.Plan(scs, report.ModeFor(listFlags.markdown)))
	fmt.Fprintf(out, "\nStates: %v\n", scenarios.States())
	return nil
}
