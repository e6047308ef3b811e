package main

import (
	"errors"
	"fmt"

	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/steps"
	"outreach-dialer/internal/telephony"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <provider-call-id>",
	Short: "Poll the provider for a call and store the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var endCmd = &cobra.Command{
	Use:   "end <provider-call-id>",
	Short: "Hang up a live call",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnd,
}

var numbersCmd = &cobra.Command{
	Use:   "numbers",
	Short: "List phone numbers owned at the provider",
	Args:  cobra.NoArgs,
	RunE:  runNumbers,
}

func init() {
	rootCmd.AddCommand(statusCmd, endCmd, numbersCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.deps.Close()

	providerCallID := args[0]
	details, err := rt.deps.Provider.GetCallStatus(ctx, providerCallID)
	if err != nil {
		return fmt.Errorf("status lookup failed: %w", err)
	}

	tracked := true
	if err := rt.deps.Calls.UpdateByProviderCallID(ctx, providerCallID, telephony.PatchFromDetails(details)); err != nil {
		if !errors.Is(err, calls.ErrNotFound) {
			return fmt.Errorf("failed to store call status: %w", err)
		}
		tracked = false
	}

	return printJSON(cmd.OutOrStdout(), map[string]any{
		"provider_call_id": providerCallID,
		"details":          details,
		"tracked":          tracked,
		"next_step":        steps.ForCallStatus(details.Status),
	})
}

func runEnd(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.deps.Close()

	res := rt.deps.Provider.EndCall(ctx, args[0])
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("end call failed: %s", res.Error)
	}
	return nil
}

func runNumbers(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.deps.Close()

	numbers, err := rt.deps.Provider.GetPhoneNumbers(ctx)
	if err != nil {
		return fmt.Errorf("phone number lookup failed: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), numbers)
}
