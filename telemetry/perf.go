package telemetry

import (
	"log/slog"
	"time"
)

// Phase names. The first five are the stages of one simulation step and
// run StepsPerFrame times per frame; telemetry runs once per frame.
const (
	PhaseAgents    = "agents"
	PhaseDiffuse   = "diffuse"
	PhaseOccupancy = "occupancy"
	PhaseSwap      = "swap"
	PhaseProject   = "project"
	PhaseTelemetry = "telemetry"
)

const numPhases = 6

// Phases lists the phases in dispatch order.
var Phases = []string{
	PhaseAgents, PhaseDiffuse, PhaseOccupancy, PhaseSwap, PhaseProject, PhaseTelemetry,
}

// phaseIndex maps a phase name to its slot in frameSample.phases.
func phaseIndex(phase string) int {
	for i, p := range Phases {
		if p == phase {
			return i
		}
	}
	return -1
}

// frameSample is the timing of one frame: its wall time, the number of
// steps it ran and the time spent in each phase across those steps.
type frameSample struct {
	total  time.Duration
	steps  int
	phases [numPhases]time.Duration
}

// PerfCollector times frames and their step phases over a ring of recent
// frames. A step is counted each time the agents phase starts, since every
// step opens with it.
type PerfCollector struct {
	now func() time.Time

	ring   []frameSample
	next   int
	filled int

	cur        frameSample
	frameStart time.Time
	phaseStart time.Time
	phase      int

	lastFrame time.Time
	frameGap  time.Duration
}

// NewPerfCollector keeps the last window frames; window < 1 means 60.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		now:   time.Now,
		ring:  make([]frameSample, window),
		phase: -1,
	}
}

// StartTick opens a frame.
func (p *PerfCollector) StartTick() {
	p.frameStart = p.now()
	p.cur = frameSample{}
	p.phase = -1
}

// StartPhase closes the running phase and opens the named one. Unknown
// names close the running phase without opening a new one.
func (p *PerfCollector) StartPhase(phase string) {
	t := p.now()
	p.closePhase(t)
	p.phase = phaseIndex(phase)
	p.phaseStart = t
	if p.phase == 0 {
		p.cur.steps++
	}
}

func (p *PerfCollector) closePhase(t time.Time) {
	if p.phase >= 0 {
		p.cur.phases[p.phase] += t.Sub(p.phaseStart)
	}
	p.phase = -1
}

// EndTick closes the frame and pushes it into the ring.
func (p *PerfCollector) EndTick() {
	t := p.now()
	p.closePhase(t)
	p.cur.total = t.Sub(p.frameStart)
	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.filled = min(p.filled+1, len(p.ring))
}

// RecordFrame measures the gap between presented frames.
func (p *PerfCollector) RecordFrame() {
	t := p.now()
	if !p.lastFrame.IsZero() {
		p.frameGap = t.Sub(p.lastFrame)
	}
	p.lastFrame = t
}

// PerfStats aggregates the frames in the window.
type PerfStats struct {
	AvgFrame time.Duration // simulation time per frame
	MaxFrame time.Duration
	AvgStep  time.Duration // step phases only, per step

	StepsPerFrame  float64
	StepsPerSecond float64

	// PhaseAvg is the mean time of a phase per step; telemetry is per frame.
	PhaseAvg map[string]time.Duration
	// PhasePct is the share of frame time spent in a phase.
	PhasePct map[string]float64

	FrameGap time.Duration // between presented frames
	FPS      float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg: make(map[string]time.Duration),
		PhasePct: make(map[string]float64),
		FrameGap: p.frameGap,
	}
	if p.frameGap > 0 {
		s.FPS = float64(time.Second) / float64(p.frameGap)
	}
	if p.filled == 0 {
		return s
	}

	var total time.Duration
	var phases [numPhases]time.Duration
	steps := 0
	for _, f := range p.ring[:p.filled] {
		total += f.total
		s.MaxFrame = max(s.MaxFrame, f.total)
		steps += f.steps
		for i, d := range f.phases {
			phases[i] += d
		}
	}

	frames := p.filled
	s.AvgFrame = total / time.Duration(frames)
	s.StepsPerFrame = float64(steps) / float64(frames)
	if total > 0 {
		s.StepsPerSecond = float64(steps) * float64(time.Second) / float64(total)
	}

	var stepTotal time.Duration
	for i, name := range Phases {
		if phases[i] == 0 {
			continue
		}
		per := frames
		if name != PhaseTelemetry {
			per = steps
			stepTotal += phases[i]
		}
		if per > 0 {
			s.PhaseAvg[name] = phases[i] / time.Duration(per)
		}
		if total > 0 {
			s.PhasePct[name] = float64(phases[i]) / float64(total) * 100
		}
	}
	if steps > 0 {
		s.AvgStep = stepTotal / time.Duration(steps)
	}
	return s
}

// LogStats logs the window through slog.
func (s PerfStats) LogStats() {
	slog.Info("perf", "perf", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("frame_us", s.AvgFrame.Microseconds()),
		slog.Int64("max_frame_us", s.MaxFrame.Microseconds()),
		slog.Int64("step_us", s.AvgStep.Microseconds()),
		slog.Float64("steps_per_frame", s.StepsPerFrame),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, name := range Phases {
		if d, ok := s.PhaseAvg[name]; ok {
			attrs = append(attrs, slog.Int64(name+"_us", d.Microseconds()))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfRow is one perf.csv record. Step phase columns are microseconds per
// step; telemetry is microseconds per frame.
type PerfRow struct {
	Step           int64   `csv:"step"`
	FrameUS        int64   `csv:"frame_us"`
	MaxFrameUS     int64   `csv:"max_frame_us"`
	StepUS         int64   `csv:"step_us"`
	StepsPerFrame  float64 `csv:"steps_per_frame"`
	StepsPerSecond float64 `csv:"steps_per_sec"`
	FPS            float64 `csv:"fps"`
	AgentsUS       int64   `csv:"agents_us"`
	DiffuseUS      int64   `csv:"diffuse_us"`
	OccupancyUS    int64   `csv:"occupancy_us"`
	SwapUS         int64   `csv:"swap_us"`
	ProjectUS      int64   `csv:"project_us"`
	TelemetryUS    int64   `csv:"telemetry_us"`
}

// Row flattens the stats for perf.csv.
func (s PerfStats) Row(step int64) PerfRow {
	us := func(name string) int64 { return s.PhaseAvg[name].Microseconds() }
	return PerfRow{
		Step:           step,
		FrameUS:        s.AvgFrame.Microseconds(),
		MaxFrameUS:     s.MaxFrame.Microseconds(),
		StepUS:         s.AvgStep.Microseconds(),
		StepsPerFrame:  s.StepsPerFrame,
		StepsPerSecond: s.StepsPerSecond,
		FPS:            s.FPS,
		AgentsUS:       us(PhaseAgents),
		DiffuseUS:      us(PhaseDiffuse),
		OccupancyUS:    us(PhaseOccupancy),
		SwapUS:         us(PhaseSwap),
		ProjectUS:      us(PhaseProject),
		TelemetryUS:    us(PhaseTelemetry),
	}
}
