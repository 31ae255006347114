package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"
)

// TestLiveSubmit sends a text request to a running backend and prints the
// fragment stream. Skipped if the backend socket doesn't exist.
func TestLiveSubmit(t *testing.T) {
	sockPath := SocketPath()
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Skip("backend not running (no socket at", sockPath, ")")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &SocketAction{Network: "unix", Address: sockPath}
	s, err := a.Submit(ctx, NewSubmit("what time is it", defaultSnapshot(), Gating{}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer s.Close()

	for i := 0; ; i++ {
		raw, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Printf("done after %d fragments\n", i)
			return
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		fmt.Printf("fragment %d: %d channels\n", i, len(raw))
	}
}
