package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gregiteen/ai-devices/internal/config"
	"github.com/gregiteen/ai-devices/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the saved feature toggles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(func(rt *runtime) error {
			printSettings(cmd.OutOrStdout(), rt)
			return nil
		})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <name>",
	Short: "Flip one feature toggle (tts, internet, photos, ludicrous, rabbit)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(rt *runtime) error {
			if _, err := toggleSetting(rt, args[0]); err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), rt)
			return nil
		})
	},
}

func init() {
	settingsCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(settingsCmd)
}

func withRuntime(fn func(rt *runtime) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Settings changes never play audio; the speech cue still runs.
	cfg.Audio.Player = ""
	rt, err := newRuntime(cfg, "stderr")
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

// toggleSetting flips the named toggle if this client offers it.
func toggleSetting(rt *runtime, raw string) (bool, error) {
	name, err := settings.ParseName(raw)
	if err != nil {
		return false, err
	}
	if !rt.cfg.Features.Available(name) {
		return false, fmt.Errorf("toggle %s is not available", name)
	}
	if rt.settings.Disabled(name) {
		return false, fmt.Errorf("toggle %s is held off while ludicrous mode is on", name)
	}
	return rt.settings.Toggle(name), nil
}

func printSettings(w io.Writer, rt *runtime) {
	snap := rt.settings.Snapshot()
	for _, n := range settings.Names {
		if !rt.cfg.Features.Available(n) {
			continue
		}
		state := "off"
		if snap.Get(n) {
			state = "on"
		}
		if rt.settings.Disabled(n) {
			state += " (ludicrous)"
		}
		fmt.Fprintf(w, "%-18s %s\n", n, state)
	}
}
