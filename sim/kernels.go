package sim

import (
	"math"

	"github.com/pthm-cable/slime/agents"
	"github.com/pthm-cable/slime/device/cpu"
)

// Library returns the CPU implementations of the compute kernels, keyed by
// the base names of their shader assets.
func Library() cpu.Library {
	return cpu.Library{
		"agent.comp": {
			Local:    LocalAgents,
			Uniforms: agentUniforms,
			Run:      func(ctx *cpu.Context, id [3]int) { runAgent(ctx, id, false) },
		},
		"agent3d.comp": {
			Local:    LocalAgents,
			Uniforms: agentUniforms,
			Run:      func(ctx *cpu.Context, id [3]int) { runAgent(ctx, id, true) },
		},
		"diffuse.comp": {
			Local:    LocalField2D,
			Uniforms: diffuseUniforms,
			Run:      func(ctx *cpu.Context, id [3]int) { runDiffuse(ctx, id, false) },
		},
		"diffuse3d.comp": {
			Local:    LocalField3D,
			Uniforms: diffuseUniforms,
			Run:      func(ctx *cpu.Context, id [3]int) { runDiffuse(ctx, id, true) },
		},
		"occupancy.comp": {
			Local:    LocalField2D,
			Uniforms: occupancyUniforms,
			Run:      runOccupancy,
		},
		"project.comp": {
			Local:    LocalField2D,
			Uniforms: projectUniforms,
			Run:      runProject,
		},
	}
}

// NewCPUDevice returns a CPU device loaded with Library.
func NewCPUDevice(workers int) *cpu.Device {
	return cpu.New(Library(), workers)
}

func bounds(ctx *cpu.Context) [3]int {
	b := ctx.IVec3(LocBounds)
	return [3]int{int(b[0]), int(b[1]), max(int(b[2]), 1)}
}

func wrapCell(v, size int) int {
	v %= size
	if v < 0 {
		v += size
	}
	return v
}

// sense sums dot(trail, weight) over the sensor window centred distance
// cells along dir.
func sense(trail *cpu.Image, b [3]int, pos, dir [3]float32, distance float32, size int, weight [4]float32, is3D bool) float32 {
	cx := int(math.Floor(float64(pos[0] + dir[0]*distance)))
	cy := int(math.Floor(float64(pos[1] + dir[1]*distance)))
	cz := 0
	zs := 0
	if is3D {
		cz = int(math.Floor(float64(pos[2] + dir[2]*distance)))
		zs = size
	}

	var sum float32
	for dz := -zs; dz <= zs; dz++ {
		z := wrapCell(cz+dz, b[2])
		for dy := -size; dy <= size; dy++ {
			y := wrapCell(cy+dy, b[1])
			for dx := -size; dx <= size; dx++ {
				x := wrapCell(cx+dx, b[0])
				c := trail.Load(x, y, z)
				sum += c[0]*weight[0] + c[1]*weight[1] + c[2]*weight[2] + c[3]*weight[3]
			}
		}
	}
	return sum
}

// steer returns the heading change for the three sensor readings.
func steer(forward, left, right, r, turn float32) float32 {
	switch {
	case forward > left && forward > right:
		return 0
	case forward < left && forward < right:
		return (r - 0.5) * 2 * turn
	case right > left:
		return -r * turn
	case left > right:
		return r * turn
	}
	return 0
}

func wrapAngle(a float32) float32 {
	const tau = 2 * math.Pi
	a = float32(math.Mod(float64(a), tau))
	if a < 0 {
		a += tau
	}
	return a
}

func runAgent(ctx *cpu.Context, id [3]int, is3D bool) {
	i := id[0]
	list := cpu.Storage[agents.Agent](ctx, SlotAgents)
	if i >= int(ctx.Int(LocAgentCount)) || i >= len(list) {
		return
	}
	a := &list[i]
	b := bounds(ctx)

	dt := ctx.Float(LocDT)
	moveSpeed := ctx.Float(LocMoveSpeed)
	turn := ctx.Float(LocTurnAmount) * dt
	trailWeight := ctx.Float(LocTrailWeight)
	scale := ctx.Float(LocAgentScale)
	if !(scale > 0) {
		scale = MaxDepositScale
	}
	spacing := ctx.Float(LocSenseSpacing) * math.Pi / 180
	distance := ctx.Float(LocSenseDistance)
	size := max(int(ctx.Int(LocSenseSize)), 0)
	walls := ctx.Int(LocAgentWalls) != 0 && !is3D

	trail := ctx.Image(SlotTrail)
	deposit := ctx.Image(SlotDeposit)
	rng := newHashRand(uint32(i), uint32(ctx.Int(LocStep)), ctx.Float(LocTime))

	pos := [3]float32{a.Position[0], a.Position[1], a.Position[2]}
	if !is3D {
		pos[2] = 0
	}
	theta, phi := a.Heading[0], a.Heading[1]
	var weight [4]float32
	for c := range weight {
		weight[c] = a.Mask[c]*2 - 1
	}

	probe := func(t, p float32) float32 {
		return sense(trail, b, pos, agents.Direction(t, p, is3D), distance, size, weight, is3D)
	}
	forward := probe(theta, phi)
	left := probe(theta+spacing, phi)
	right := probe(theta-spacing, phi)
	theta = wrapAngle(theta + steer(forward, left, right, rng.next(), turn))
	if is3D {
		up := probe(a.Heading[0], phi+spacing)
		down := probe(a.Heading[0], phi-spacing)
		phi += steer(forward, up, down, rng.next(), turn)
		phi = float32(math.Max(-math.Pi/2, math.Min(math.Pi/2, float64(phi))))
	}

	dir := agents.Direction(theta, phi, is3D)
	step := moveSpeed * dt
	next := [3]float32{
		agents.Wrap(pos[0]+dir[0]*step, b[0]),
		agents.Wrap(pos[1]+dir[1]*step, b[1]),
		0,
	}
	if is3D {
		next[2] = agents.Wrap(pos[2]+dir[2]*step, b[2])
	}

	if walls && !tryMove(ctx, uint32(i+1), pos, next) {
		next = pos
		theta = rng.next() * 2 * math.Pi
	}

	a.Position[0], a.Position[1], a.Position[2] = next[0], next[1], next[2]
	a.Heading[0], a.Heading[1] = theta, phi

	x, y, z := int(next[0]), int(next[1]), int(next[2])
	for c := 0; c < 4; c++ {
		if amt := depositAmount(trailWeight, dt, a.Mask[c], scale); amt > 0 {
			deposit.AtomicAdd(x*4+c, y, z, amt)
		}
	}
}

// tryMove claims the destination cell for the agent with occupancy id self.
// Moves within the current cell always succeed. A move into a wall or a
// cell claimed by another agent fails and leaves occupancy untouched.
func tryMove(ctx *cpu.Context, self uint32, from, to [3]float32) bool {
	fx, fy := int(from[0]), int(from[1])
	tx, ty := int(to[0]), int(to[1])
	if fx == tx && fy == ty {
		return true
	}
	walls := ctx.Image(SlotWalls)
	occ := ctx.Image(SlotOccupancy)
	if walls.LoadUint(tx, ty, 0) != 0 {
		return false
	}
	if prev := occ.AtomicCompSwap(tx, ty, 0, 0, self); prev != 0 && prev != self {
		return false
	}
	occ.AtomicCompSwap(fx, fy, 0, self, 0)
	return true
}

func runDiffuse(ctx *cpu.Context, id [3]int, is3D bool) {
	b := bounds(ctx)
	x, y, z := id[0], id[1], id[2]
	if x >= b[0] || y >= b[1] || z >= b[2] {
		return
	}

	trail := ctx.Image(SlotTrail)
	out := ctx.Image(SlotDiffused)
	deposit := ctx.Image(SlotDeposit)
	var walls *cpu.Image
	if ctx.Int(LocDiffuseWalls) != 0 && !is3D {
		walls = ctx.Image(SlotWalls)
	}

	if walls != nil && walls.LoadUint(x, y, z) != 0 {
		out.Store(x, y, z, [4]float32{})
		return
	}

	scale := float64(ctx.Float(LocDiffuseScale))
	if !(scale > 0) {
		scale = MaxDepositScale
	}
	folded := func(x, y, z int) [4]float32 {
		v := trail.Load(x, y, z)
		for c := range v {
			v[c] += float32(float64(deposit.LoadUint(x*4+c, y, z)) / scale)
		}
		return v
	}

	value := folded(x, y, z)
	r := max(int(ctx.Int(LocBlurRadius)), 0)
	rz := 0
	if is3D {
		rz = r
	}

	var sum [4]float32
	var count float32
	for nz := max(z-rz, 0); nz <= min(z+rz, b[2]-1); nz++ {
		for ny := max(y-r, 0); ny <= min(y+r, b[1]-1); ny++ {
			for nx := max(x-r, 0); nx <= min(x+r, b[0]-1); nx++ {
				if walls != nil && walls.LoadUint(nx, ny, nz) != 0 {
					continue
				}
				n := folded(nx, ny, nz)
				for c := range sum {
					sum[c] += n[c]
				}
				count++
			}
		}
	}

	dt := ctx.Float(LocDT)
	blend := float32(math.Min(math.Max(float64(ctx.Float(LocDiffuseSpeed)*dt), 0), 1))
	decay := 1 - ctx.Float(LocDecaySpeed)*dt

	var result [4]float32
	for c := range result {
		blurred := sum[c] / count
		v := (value[c] + (blurred-value[c])*blend) * decay
		if !(v > 0) {
			v = 0
		}
		result[c] = v
	}
	out.Store(x, y, z, result)
}

func runOccupancy(ctx *cpu.Context, id [3]int) {
	b := bounds(ctx)
	x, y := id[0], id[1]
	if x >= b[0] || y >= b[1] {
		return
	}

	walls := ctx.Image(SlotWalls)
	occ := ctx.Image(SlotOccupancy)
	occupant := ctx.Image(SlotOccupant)

	if walls.LoadUint(x, y, 0) != 0 {
		occ.StoreUint(x, y, 0, 0)
		occupant.Store(x, y, 0, WallColor)
		return
	}

	list := cpu.Storage[agents.Agent](ctx, SlotAgents)
	n := min(int(ctx.Int(LocOccupancyAgents)), len(list))
	if o := int(occ.LoadUint(x, y, 0)); o > 0 && o <= n {
		occupant.Store(x, y, 0, list[o-1].Color)
		return
	}
	occupant.Store(x, y, 0, [4]float32{})
}

func runProject(ctx *cpu.Context, id [3]int) {
	b := bounds(ctx)
	x, y := id[0], id[1]
	if x >= b[0] || y >= b[1] {
		return
	}

	trail := ctx.Image(SlotTrail)
	var m [4]float32
	for z := 0; z < b[2]; z++ {
		v := trail.Load(x, y, z)
		for c := range m {
			m[c] = max(m[c], v[c])
		}
	}
	ctx.Image(SlotProjection).Store(x, y, 0, m)
}
