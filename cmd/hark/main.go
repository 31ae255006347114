// Command hark is a terminal client for a voice-assistant backend. It sends
// prompts, renders the streamed response, and keeps the feature toggles.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gregiteen/ai-devices/internal/app"
	"github.com/gregiteen/ai-devices/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "hark",
	Short:         "Talk to the assistant from your terminal",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runTUI,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive prompt",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, cfg.Log.Path)
	if err != nil {
		return err
	}
	defer rt.Close()

	m := app.New(app.Options{
		Settings: rt.settings,
		Reducer:  rt.reducer,
		Action:   rt.action,
		Features: cfg.Features,
		MinWidth: cfg.UI.MinWidth,
		Logger:   rt.logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
