package store

import (
	"fmt"
	"os"
	"testing"

	"github.com/gregiteen/ai-devices/internal/config"
)

// TestLiveDatabase opens the real hark database and prints recent latency.
// Skipped if the database doesn't exist.
func TestLiveDatabase(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Skip("config unavailable:", err)
	}
	dbPath := cfg.Store.Path
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Skip("database not found at", dbPath)
	}

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	snap, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	fmt.Printf("Settings: %+v\n", snap)

	recs, err := s.RecentLatency(5)
	if err != nil {
		t.Fatalf("RecentLatency: %v", err)
	}
	for _, r := range recs {
		fmt.Printf("%s %s total=%s outcome=%s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.SessionID, r.Report.Total, r.Outcome)
	}
}
