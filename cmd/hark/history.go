package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/gregiteen/ai-devices/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the latency of recent requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if historyLimit <= 0 {
			return errors.New("limit must be positive")
		}
		return withRuntime(func(rt *runtime) error {
			records, err := rt.store.RecentLatency(historyLimit)
			if err != nil {
				return err
			}
			out, err := formatHistory(newHistory(records), historyFormat)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var (
	historyLimit  int
	historyFormat string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of requests to list")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "output format: text, json, or yaml")
	rootCmd.AddCommand(historyCmd)
}

// historyEntry is the printable form of one stored request.
type historyEntry struct {
	Session   string            `json:"session" yaml:"session"`
	StartedAt time.Time         `json:"startedAt" yaml:"startedAt"`
	Outcome   string            `json:"outcome" yaml:"outcome"`
	Latency   map[string]string `json:"latency" yaml:"latency"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
}

func newHistory(records []store.LatencyRecord) []historyEntry {
	entries := make([]historyEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, historyEntry{
			Session:   r.SessionID,
			StartedAt: r.StartedAt.UTC(),
			Outcome:   r.Outcome,
			Latency:   latencyMap(r.Report, r.Recorded),
			Error:     r.Error,
		})
	}
	return entries
}

func formatHistory(entries []historyEntry, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal json: %w", err)
		}
		return string(data) + "\n", nil
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return "", fmt.Errorf("marshal yaml: %w", err)
		}
		return string(data), nil
	case "text", "":
		if len(entries) == 0 {
			return "no requests recorded\n", nil
		}
		var b strings.Builder
		for _, e := range entries {
			fmt.Fprintf(&b, "%s  %-9s  %s\n", e.StartedAt.Local().Format(time.DateTime), e.Outcome, latencyLine(e.Latency))
		}
		return b.String(), nil
	}
	return "", fmt.Errorf("unknown format %q", format)
}
