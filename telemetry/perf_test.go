package telemetry

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCollector(window int) (*PerfCollector, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	pc := NewPerfCollector(window)
	pc.now = clock.now
	return pc, clock
}

// runFrame records one frame of steps sub-steps with the given stage costs
// and telemetry cost.
func runFrame(pc *PerfCollector, clock *fakeClock, steps int, agents, diffuse, telemetry time.Duration) {
	pc.StartTick()
	for i := 0; i < steps; i++ {
		pc.StartPhase(PhaseAgents)
		clock.advance(agents)
		pc.StartPhase(PhaseDiffuse)
		clock.advance(diffuse)
		pc.StartPhase(PhaseSwap)
	}
	pc.StartPhase(PhaseTelemetry)
	clock.advance(telemetry)
	pc.EndTick()
}

func TestPerfCollectorPerStepPhases(t *testing.T) {
	pc, clock := newTestCollector(10)

	for i := 0; i < 3; i++ {
		runFrame(pc, clock, 4, 2*time.Millisecond, 20*time.Millisecond, time.Millisecond)
	}
	s := pc.Stats()

	if s.StepsPerFrame != 4 {
		t.Errorf("expected 4 steps per frame, got %v", s.StepsPerFrame)
	}
	// 4 * (2 + 20) + 1 = 89ms per frame.
	if s.AvgFrame != 89*time.Millisecond {
		t.Errorf("expected 89ms frames, got %v", s.AvgFrame)
	}
	if s.AvgStep != 22*time.Millisecond {
		t.Errorf("expected 22ms steps, got %v", s.AvgStep)
	}

	tests := []struct {
		phase string
		avg   time.Duration
		pct   float64
	}{
		{PhaseAgents, 2 * time.Millisecond, 800.0 / 89},
		{PhaseDiffuse, 20 * time.Millisecond, 8000.0 / 89},
		{PhaseTelemetry, time.Millisecond, 100.0 / 89},
	}
	for _, tt := range tests {
		if got := s.PhaseAvg[tt.phase]; got != tt.avg {
			t.Errorf("%s: expected %v per step, got %v", tt.phase, tt.avg, got)
		}
		if got := s.PhasePct[tt.phase]; got < tt.pct-1e-9 || got > tt.pct+1e-9 {
			t.Errorf("%s: expected %.3f%%, got %.3f%%", tt.phase, tt.pct, got)
		}
	}

	// Swap took no time and is left out.
	if _, ok := s.PhaseAvg[PhaseSwap]; ok {
		t.Errorf("expected zero-time swap phase to be omitted")
	}

	want := 12 * float64(time.Second) / float64(3*89*time.Millisecond)
	if s.StepsPerSecond < want-1e-6 || s.StepsPerSecond > want+1e-6 {
		t.Errorf("expected %.3f steps/s, got %.3f", want, s.StepsPerSecond)
	}
}

func TestPerfCollectorWindowDropsOldFrames(t *testing.T) {
	pc, clock := newTestCollector(2)

	runFrame(pc, clock, 1, 50*time.Millisecond, 0, 0)
	runFrame(pc, clock, 2, time.Millisecond, time.Millisecond, 0)
	runFrame(pc, clock, 2, time.Millisecond, time.Millisecond, 0)
	s := pc.Stats()

	if s.MaxFrame != 4*time.Millisecond {
		t.Errorf("expected the 50ms frame to have left the window, max %v", s.MaxFrame)
	}
	if s.StepsPerFrame != 2 {
		t.Errorf("expected 2 steps per frame, got %v", s.StepsPerFrame)
	}
}

func TestPerfCollectorPausedFrame(t *testing.T) {
	pc, clock := newTestCollector(4)

	// A paused frame runs telemetry but no steps.
	runFrame(pc, clock, 0, 0, 0, 3*time.Millisecond)
	s := pc.Stats()

	if s.AvgStep != 0 || s.StepsPerSecond != 0 {
		t.Errorf("expected no step timing without steps, got %v and %v", s.AvgStep, s.StepsPerSecond)
	}
	if s.PhaseAvg[PhaseTelemetry] != 3*time.Millisecond {
		t.Errorf("expected 3ms telemetry per frame, got %v", s.PhaseAvg[PhaseTelemetry])
	}
}

func TestPerfCollectorEmptyStats(t *testing.T) {
	s := NewPerfCollector(10).Stats()

	if s.AvgFrame != 0 {
		t.Errorf("expected zero frame time, got %v", s.AvgFrame)
	}
	if s.PhaseAvg == nil || s.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollectorFrameGap(t *testing.T) {
	pc, clock := newTestCollector(10)

	pc.RecordFrame()
	clock.advance(16 * time.Millisecond)
	pc.RecordFrame()
	s := pc.Stats()

	if s.FrameGap != 16*time.Millisecond {
		t.Errorf("expected 16ms gap, got %v", s.FrameGap)
	}
	if s.FPS != 62.5 {
		t.Errorf("expected 62.5 fps, got %v", s.FPS)
	}
}

func TestPerfStatsRow(t *testing.T) {
	s := PerfStats{
		AvgFrame: 2 * time.Millisecond,
		AvgStep:  500 * time.Microsecond,
		PhaseAvg: map[string]time.Duration{
			PhaseAgents:    300 * time.Microsecond,
			PhaseDiffuse:   150 * time.Microsecond,
			PhaseSwap:      50 * time.Microsecond,
			PhaseTelemetry: time.Millisecond,
		},
	}

	row := s.Row(120)
	if row.Step != 120 || row.FrameUS != 2000 || row.StepUS != 500 {
		t.Errorf("unexpected frame columns: %+v", row)
	}
	if row.AgentsUS != 300 || row.DiffuseUS != 150 || row.SwapUS != 50 || row.TelemetryUS != 1000 {
		t.Errorf("unexpected phase columns: %+v", row)
	}
	if row.OccupancyUS != 0 || row.ProjectUS != 0 {
		t.Errorf("expected absent phases to be zero, got %+v", row)
	}
}
