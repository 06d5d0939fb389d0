package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/slime/agents"
	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/device"
	"github.com/pthm-cable/slime/sim"
	"github.com/pthm-cable/slime/telemetry"
)

func TestParamVectorNormalize(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: expected %f, got %f", pv.Specs[i].Name, def[i], back[i])
		}
	}
}

func TestParamVectorClamp(t *testing.T) {
	pv := NewParamVector()
	v := pv.DefaultVector()
	v[0] = -5
	v[5] = 100
	c := pv.Clamp(v)
	if c[0] != pv.Specs[0].Min {
		t.Errorf("expected %s clamped to %f, got %f", pv.Specs[0].Name, pv.Specs[0].Min, c[0])
	}
	if c[5] != pv.Specs[5].Max {
		t.Errorf("expected %s clamped to %f, got %f", pv.Specs[5].Name, pv.Specs[5].Max, c[5])
	}
}

func TestParamVectorConfigRoundtrip(t *testing.T) {
	pv := NewParamVector()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	v := []float64{30, 10, 45, 12, 2, 0.5}
	pv.ApplyToConfig(cfg, v)
	got := pv.ExtractFromConfig(cfg)
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("%s: expected %f, got %f", pv.Specs[i].Name, v[i], got[i])
		}
	}

	var p sim.Params
	pv.Apply(&p, v)
	if p.MoveSpeed != 30 || p.DecaySpeed != 0.5 {
		t.Errorf("expected move 30 and decay 0.5, got %f and %f", p.MoveSpeed, p.DecaySpeed)
	}
}

func TestComputeFitness(t *testing.T) {
	fe := &FitnessEvaluator{target: 0.4}

	tests := []struct {
		name  string
		stats telemetry.FieldStats
		want  float64
	}{
		{"on target with veins", telemetry.FieldStats{Coverage: 0.4, Mean: 1, StdDev: 2}, 0},
		{"on target as fog", telemetry.FieldStats{Coverage: 0.4, Mean: 1, StdDev: 0.5}, contrastWeight * 0.5},
		{"empty field", telemetry.FieldStats{}, 0.16 + contrastWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fe.computeFitness(tt.stats)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestEvaluateSmallGrid(t *testing.T) {
	base := sim.Config{
		Variant: sim.Variant{Dims: 2, Policy: agents.PolicyUniform, Species: 1},
		Extent:  device.Extent2D(32, 32),
		Agents:  300,
		Shaders: sim.DefaultShaders("assets/shaders"),
		Params:  sim.DefaultParams(),
	}
	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, base, 20, 1.0/60, []int64{1, 2}, 0.3, 1)

	f := fe.Evaluate(pv.DefaultVector())
	if f >= failedRunFitness {
		t.Fatalf("expected runs to succeed, got fitness %f", f)
	}
	if cov := fe.LastStats().Coverage; cov <= 0 || cov > 1 {
		t.Errorf("expected coverage in (0, 1], got %f", cov)
	}
}
