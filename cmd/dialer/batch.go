package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"outreach-dialer/internal/dialer"
	"outreach-dialer/internal/telephony"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Dial every lead in a CSV file",
	Long:  "Dial leads from a CSV file with lead_id and phone_number columns, pausing --delay between placed calls. Ctrl-C stops before the next call; calls already placed are not aborted.",
	RunE:  runBatch,
}

var (
	batchLeadsFile     string
	batchScriptID      string
	batchDelay         time.Duration
	batchAssistantFile string
)

func init() {
	batchCmd.Flags().StringVar(&batchLeadsFile, "leads", "", "Path to leads CSV (required)")
	batchCmd.Flags().StringVar(&batchScriptID, "script", "", "Script id attached to every call")
	batchCmd.Flags().DurationVar(&batchDelay, "delay", -1, "Pause between calls (default DIALER_DEFAULT_DELAY)")
	batchCmd.Flags().StringVar(&batchAssistantFile, "assistant", "", "Path to assistant config JSON")
	_ = batchCmd.MarkFlagRequired("leads")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	f, err := os.Open(batchLeadsFile)
	if err != nil {
		return fmt.Errorf("failed to open leads file: %w", err)
	}
	defer f.Close()

	leads, err := readLeadsCSV(f)
	if err != nil {
		return err
	}

	var assistant telephony.AssistantConfig
	if batchAssistantFile != "" {
		assistant, err = readAssistant(batchAssistantFile)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.deps.Close()

	delay := batchDelay
	if delay < 0 {
		delay = rt.cfg.Dialer.DefaultDelay
	}

	res, runErr := rt.deps.Dialer.Run(ctx, dialer.Job{
		Leads:     leads,
		ScriptID:  batchScriptID,
		Delay:     delay,
		Assistant: assistant,
	})
	if runErr != nil && res.BatchID == "" {
		return runErr
	}
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("batch interrupted: %w", runErr)
	}
	return nil
}

// readLeadsCSV reads a header row naming lead_id and phone_number (any order, extra
// columns ignored) followed by one lead per row. Blank rows are skipped.
func readLeadsCSV(r io.Reader) ([]dialer.Lead, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("leads file is empty")
		}
		return nil, fmt.Errorf("failed to read leads header: %w", err)
	}
	idCol, phoneCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lead_id", "leadid", "id":
			idCol = i
		case "phone_number", "phonenumber", "phone":
			phoneCol = i
		}
	}
	if idCol < 0 || phoneCol < 0 {
		return nil, errors.New("leads header must name lead_id and phone_number columns")
	}

	var out []dialer.Lead
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("leads line %d: %w", line, err)
		}
		if len(rec) <= idCol || len(rec) <= phoneCol {
			if strings.TrimSpace(strings.Join(rec, "")) == "" {
				continue
			}
			return nil, fmt.Errorf("leads line %d: missing columns", line)
		}
		id, phone := strings.TrimSpace(rec[idCol]), strings.TrimSpace(rec[phoneCol])
		if id == "" && phone == "" {
			continue
		}
		out = append(out, dialer.Lead{LeadID: id, PhoneNumber: phone})
	}
	if len(out) == 0 {
		return nil, errors.New("leads file has no leads")
	}
	return out, nil
}

func readAssistant(path string) (telephony.AssistantConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return telephony.AssistantConfig{}, fmt.Errorf("failed to read assistant file: %w", err)
	}
	var bag map[string]any
	if err := json.Unmarshal(raw, &bag); err != nil {
		return telephony.AssistantConfig{}, fmt.Errorf("assistant file is not a JSON object: %w", err)
	}
	return telephony.DecodeAssistantConfig(bag)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// commandContext returns cmd's context, or Background when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
