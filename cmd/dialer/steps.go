package main

import (
	"fmt"

	"outreach-dialer/internal/steps"

	"github.com/spf13/cobra"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "Inspect the agent step machine",
}

var stepsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every step with its allowed successors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := make([]steps.Description, 0, len(steps.States()))
		for _, s := range steps.States() {
			d, _ := steps.Describe(s)
			out = append(out, d)
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var stepsCurrent string

var stepsGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the transition graph as nodes and edges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		current := steps.State(stepsCurrent)
		if current != "" && !steps.Known(current) {
			return fmt.Errorf("unknown step %q", stepsCurrent)
		}
		return printJSON(cmd.OutOrStdout(), steps.BuildTransitionGraph(current))
	},
}

var stepsCheckCmd = &cobra.Command{
	Use:   "check <from> <to>",
	Short: "Report whether a transition is allowed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok := steps.IsValidTransition(steps.State(args[0]), steps.State(args[1]))
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %t\n", args[0], args[1], ok)
		return nil
	},
}

func init() {
	stepsGraphCmd.Flags().StringVar(&stepsCurrent, "current", "", "Highlight this step and its outgoing edges")

	stepsCmd.AddCommand(stepsListCmd, stepsGraphCmd, stepsCheckCmd)
	rootCmd.AddCommand(stepsCmd)
}
