package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gregiteen/ai-devices/internal/config"
	"github.com/gregiteen/ai-devices/internal/remote"
	"github.com/gregiteen/ai-devices/internal/stream"
)

var askCmd = &cobra.Command{
	Use:   "ask [text]",
	Short: "Send one prompt and print the final response",
	Long: `Ask submits a single text or audio prompt, follows the response stream to
the end, and prints what the display would show together with the latency of
each stage.`,
	Args: cobra.ArbitraryArgs,
	RunE: runAsk,
}

var (
	askAudioPath string
	askFormat    string
	askNoAudio   bool
)

func init() {
	askCmd.Flags().StringVar(&askAudioPath, "audio", "", "audio file to send instead of or along with text")
	askCmd.Flags().StringVarP(&askFormat, "format", "f", "text", "output format: text, json, or yaml")
	askCmd.Flags().BoolVar(&askNoAudio, "no-audio", false, "do not play response audio")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" && askAudioPath == "" {
		return errors.New("nothing to ask: pass text or --audio")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if askNoAudio {
		cfg.Audio.Player = ""
	}
	rt, err := newRuntime(cfg, "stderr")
	if err != nil {
		return err
	}
	defer rt.Close()

	req := remote.NewSubmit(text, rt.settings.Snapshot(), rt.gating())
	if askAudioPath != "" {
		if err := attachAudio(&req, askAudioPath); err != nil {
			return err
		}
	}

	comp, err := ask(cmd.Context(), rt.reducer, rt.action, req)
	if err != nil {
		return err
	}
	if rt.player != nil {
		rt.player.Wait()
	}

	out, err := formatAnswer(newAnswer(comp), askFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// ask runs one request through r.
func ask(ctx context.Context, r *stream.Reducer, action remote.Action, req remote.Request) (stream.Completion, error) {
	return r.Do(ctx, func(ctx context.Context) (stream.Source, error) {
		s, err := action.Submit(ctx, req)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func attachAudio(req *remote.Request, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	req.Audio = data
	req.MimeType = mime.TypeByExtension(filepath.Ext(path))
	if req.MimeType == "" {
		req.MimeType = "application/octet-stream"
	}
	return nil
}
