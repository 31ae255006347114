package app

import (
	"fmt"
	"os"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gregiteen/ai-devices/internal/remote"
	"github.com/gregiteen/ai-devices/internal/stream"
)

// TestLiveTUIFlow exercises a full prompt against a running backend.
// Skipped if the backend isn't running.
func TestLiveTUIFlow(t *testing.T) {
	sockPath := remote.SocketPath()
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Skip("backend not running")
	}

	m := newTestModel(&remote.SocketAction{Network: "unix", Address: sockPath}, nil)
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	fmt.Println("=== Initial View ===")
	fmt.Println(m.View())

	m, cmd := submitText(m, "what time is it")
	m = drain(t, m, cmd)

	if m.snap.State != stream.StateCompleted {
		t.Errorf("state = %s, want completed", m.snap.State)
	}
	fmt.Println("=== Final View ===")
	fmt.Println(m.View())
}
