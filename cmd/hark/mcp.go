package main

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/gregiteen/ai-devices/internal/config"
	"github.com/gregiteen/ai-devices/internal/remote"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the protocol, so logs go to the file and audio stays off.
	cfg.Audio.Player = ""
	rt, err := newRuntime(cfg, cfg.Log.Path)
	if err != nil {
		return err
	}
	defer rt.Close()

	return server.ServeStdio(newMCPServer(rt))
}

func newMCPServer(rt *runtime) *server.MCPServer {
	s := server.NewMCPServer("hark", "0.1.0", server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Send a prompt to the assistant and return the final response"),
		mcp.WithString("text", mcp.Required(), mcp.Description("The prompt")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		// Tool calls run concurrently; each gets its own session.
		submit := remote.NewSubmit(text, rt.settings.Snapshot(), rt.gating())
		comp, err := ask(ctx, rt.newReducer(), rt.action, submit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := formatAnswer(newAnswer(comp), "json")
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("settings",
		mcp.WithDescription("Show the feature toggles, optionally flipping one first"),
		mcp.WithString("toggle", mcp.Description("Toggle to flip: tts, internet, photos, ludicrous, rabbit")),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if name := req.GetString("toggle", ""); name != "" {
			if _, err := toggleSetting(rt, name); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		data, err := json.Marshal(rt.settings.Snapshot())
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	})

	return s
}
