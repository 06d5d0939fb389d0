package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeSource struct {
	steps uint64
	trail []float32
	reads int
}

func (f *fakeSource) Steps() uint64 { return f.steps }
func (f *fakeSource) Time() float32 { return float32(f.steps) / 60 }
func (f *fakeSource) ReadTrail() ([]float32, error) {
	f.reads++
	return f.trail, nil
}

func TestCollectorBoundaries(t *testing.T) {
	outDir := t.TempDir()
	snapDir := t.TempDir()

	om, err := NewOutputManager(outDir)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}

	src := &fakeSource{trail: []float32{1, 0, 0, 0, 0, 0, 0, 0}}
	c := NewCollector(CollectorOptions{
		StatsEvery:    10,
		SnapshotEvery: 25,
		SnapshotDir:   snapDir,
		Header:        SnapshotHeader{Width: 2, Height: 1, Depth: 1, Channels: 4},
		Output:        om,
		Perf:          NewPerfCollector(4),
	})

	// Steps advance by 4 per frame; boundaries at 10, 20, 30... and 25, 50.
	for i := 0; i < 13; i++ {
		src.steps += 4
		if err := c.Observe(src); err != nil {
			t.Fatalf("Observe failed at step %d: %v", src.steps, err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// 52 steps: stats at 12, 20, 32, 40, 52 -> 5 rows.
	data, err := os.ReadFile(filepath.Join(outDir, "stats.csv"))
	if err != nil {
		t.Fatalf("reading stats.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 {
		t.Errorf("expected header + 5 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "step,") {
		t.Errorf("expected header to start with step, got %q", lines[0])
	}

	if c.Snapshots() != 2 {
		t.Errorf("expected 2 snapshots, got %d", c.Snapshots())
	}
	if _, err := os.Stat(filepath.Join(snapDir, SnapshotName(28))); err != nil {
		t.Errorf("expected snapshot at step 28: %v", err)
	}

	if got := c.Last(); got.Step != 52 || got.Coverage != 0.5 {
		t.Errorf("expected last stats at step 52 with coverage 0.5, got %+v", got)
	}
}

func TestCollectorDisabled(t *testing.T) {
	src := &fakeSource{steps: 1000}
	c := NewCollector(CollectorOptions{SnapshotEvery: 5})
	if err := c.Observe(src); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if src.reads != 0 {
		t.Errorf("expected no trail reads when disabled, got %d", src.reads)
	}
}
