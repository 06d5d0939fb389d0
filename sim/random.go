package sim

import "math"

// pcg is the PCG-RXS-M-XS hash. The shader assets use the same function so
// both backends draw the same numbers for the same inputs.
func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// hashRand is a per-invocation random stream seeded from the agent index,
// the step counter and the simulation time.
type hashRand struct {
	state uint32
}

func newHashRand(index, step uint32, time float32) hashRand {
	return hashRand{state: pcg(index ^ pcg(step^pcg(math.Float32bits(time))))}
}

// next returns a value in [0, 1].
func (r *hashRand) next() float32 {
	r.state = pcg(r.state)
	return float32(r.state) / math.MaxUint32
}
