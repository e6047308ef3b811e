package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dncCmd = &cobra.Command{
	Use:   "dnc",
	Short: "Manage the do-not-call list",
}

var dncReason string

var dncAddCmd = &cobra.Command{
	Use:   "add <phone-number>",
	Short: "Block a number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.deps.Close()

		if err := rt.deps.DNC.Add(ctx, args[0], dncReason); err != nil {
			return fmt.Errorf("failed to add number: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "blocked %s\n", args[0])
		return nil
	},
}

var dncRemoveCmd = &cobra.Command{
	Use:   "remove <phone-number>",
	Short: "Unblock a number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.deps.Close()

		if err := rt.deps.DNC.Remove(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to remove number: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "unblocked %s\n", args[0])
		return nil
	},
}

var dncCheckCmd = &cobra.Command{
	Use:   "check <phone-number>",
	Short: "Report whether a number is blocked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.deps.Close()

		blocked, err := rt.deps.DNC.IsBlocked(ctx, args[0])
		if err != nil {
			return fmt.Errorf("dnc check failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s blocked: %t\n", args[0], blocked)
		return nil
	},
}

func init() {
	dncAddCmd.Flags().StringVar(&dncReason, "reason", "", "Why the number is blocked")

	dncCmd.AddCommand(dncAddCmd, dncRemoveCmd, dncCheckCmd)
	rootCmd.AddCommand(dncCmd)
}
