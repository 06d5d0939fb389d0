// Package sim runs the physarum simulation: agents sense and deposit into a
// trail field, the field is blurred and decayed into a second buffer, and
// the result is copied back as the next step's input. Every stage is one
// compute dispatch followed by a barrier.
package sim

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/slime/agents"
	"github.com/pthm-cable/slime/device"
	"github.com/pthm-cable/slime/telemetry"
)

// PhaseTimer receives the name of each stage as it starts.
// telemetry.PerfCollector satisfies it.
type PhaseTimer interface {
	StartPhase(phase string)
}

// WallColor is the occupant colour of wall cells.
var WallColor = [4]float32{0.35, 0.35, 0.4, 1}

// Engine owns the fields, the agent store and the kernels of one
// simulation.
type Engine struct {
	dev     device.Device
	variant Variant
	extent  device.Extent
	count   int
	params  Params

	agentBuf device.Buffer

	trail      device.Field
	diffused   device.Field
	deposit    device.Field
	zero       device.Field
	walls      device.Field
	occupancy  device.Field
	occupant   device.Field
	projection device.Field

	agentKernel     device.Kernel
	diffuseKernel   device.Kernel
	occupancyKernel device.Kernel
	projectKernel   device.Kernel

	// wallMask mirrors the walls field on the host.
	wallMask []uint32

	time  float32
	steps uint64
	timer PhaseTimer
}

// New builds a simulation on dev. Any failure here is a configuration or
// asset error; the partially built engine is released before returning.
func New(dev device.Device, cfg Config) (_ *Engine, err error) {
	v := cfg.Variant
	if err := v.Validate(); err != nil {
		return nil, err
	}

	extent := cfg.Extent
	if v.Dims == 2 {
		extent.D = 1
	}
	if (v.Policy != agents.PolicyImage || cfg.Image == nil) && extent.Empty() {
		return nil, fmt.Errorf("%w: empty field %v", ErrInvalidVariant, extent)
	}
	if v.Dims == 3 && extent.D < 2 {
		return nil, fmt.Errorf("%w: field %v is not 3D", ErrInvalidVariant, extent)
	}

	e := &Engine{dev: dev, variant: v, params: cfg.Params.Sanitize()}
	defer func() {
		if err != nil {
			e.Unload()
		}
	}()

	// Image seeding decides the extent, so walls are built after spawn for
	// that policy and before spawn otherwise.
	var pop *agents.Population
	if v.Policy == agents.PolicyImage {
		img := cfg.Image
		if img == nil {
			img = agents.NoiseImage(extent.W, extent.H, v.Species, cfg.Seed)
		}
		pop, err = agents.Spawn(agents.Options{
			Count: cfg.Agents, Policy: v.Policy, Species: v.Species,
			Image: img, Seed: cfg.Seed,
		})
		if err != nil {
			return nil, fmt.Errorf("spawning agents: %w", err)
		}
		extent = pop.Extent
	}
	e.extent = extent

	if v.Walls {
		e.wallMask = borderMask(extent, cfg.WallBorder)
	}

	if pop == nil {
		opts := agents.Options{
			Extent: extent, Count: cfg.Agents, Policy: v.Policy,
			Species: v.Species, Seed: cfg.Seed,
		}
		if v.Walls {
			opts.Walls = e.isWall
		}
		pop, err = agents.Spawn(opts)
		if err != nil {
			return nil, fmt.Errorf("spawning agents: %w", err)
		}
	}
	e.count = len(pop.Agents)

	if err := e.allocate(pop); err != nil {
		return nil, err
	}
	if err := e.loadKernels(cfg.Shaders); err != nil {
		return nil, err
	}
	e.bind()

	slog.Info("simulation ready",
		"size", extent.String(),
		"agents", e.count,
		"variant", v.String(),
		"device", dev.Name(),
	)
	return e, nil
}

func borderMask(e device.Extent, border int) []uint32 {
	mask := make([]uint32, e.Cells())
	if border <= 0 {
		return mask
	}
	for y := 0; y < e.H; y++ {
		for x := 0; x < e.W; x++ {
			if x < border || y < border || x >= e.W-border || y >= e.H-border {
				mask[y*e.W+x] = 1
			}
		}
	}
	return mask
}

func (e *Engine) isWall(x, y, _ int) bool {
	if e.wallMask == nil || x < 0 || y < 0 || x >= e.extent.W || y >= e.extent.H {
		return false
	}
	return e.wallMask[y*e.extent.W+x] != 0
}

func (e *Engine) newField(ext device.Extent, f device.Format, what string) (device.Field, error) {
	field, err := e.dev.NewField(ext, f)
	if err != nil {
		return nil, fmt.Errorf("allocating %s field: %w", what, err)
	}
	return field, nil
}

func (e *Engine) allocate(pop *agents.Population) error {
	var err error
	ext := e.extent
	accum := device.Extent{W: ext.W * 4, H: ext.H, D: ext.D}

	if e.trail, err = e.newField(ext, device.FormatRGBA32F, "trail"); err != nil {
		return err
	}
	if e.diffused, err = e.newField(ext, device.FormatRGBA32F, "diffused"); err != nil {
		return err
	}
	if e.deposit, err = e.newField(accum, device.FormatR32UI, "deposit"); err != nil {
		return err
	}
	if e.zero, err = e.newField(accum, device.FormatR32UI, "deposit clear"); err != nil {
		return err
	}
	if pop.Trail != nil {
		if err := e.trail.WriteFloats(device.Origin{}, ext, pop.Trail); err != nil {
			return fmt.Errorf("seeding trail: %w", err)
		}
	}

	if e.variant.Walls {
		if e.walls, err = e.newField(ext, device.FormatR32UI, "walls"); err != nil {
			return err
		}
		if e.occupancy, err = e.newField(ext, device.FormatR32UI, "occupancy"); err != nil {
			return err
		}
		if e.occupant, err = e.newField(ext, device.FormatRGBA32F, "occupant"); err != nil {
			return err
		}
		if err := e.walls.WriteUints(device.Origin{}, ext, e.wallMask); err != nil {
			return fmt.Errorf("writing walls: %w", err)
		}
		if err := e.occupancy.WriteUints(device.Origin{}, ext, initialOccupancy(pop.Agents, ext, e.isWall)); err != nil {
			return fmt.Errorf("writing occupancy: %w", err)
		}
	}

	if e.variant.Dims == 3 {
		if e.projection, err = e.newField(device.Extent2D(ext.W, ext.H), device.FormatRGBA32F, "projection"); err != nil {
			return err
		}
	}

	if e.agentBuf, err = device.Upload(e.dev, pop.Agents); err != nil {
		return fmt.Errorf("uploading agents: %w", err)
	}
	return nil
}

// initialOccupancy claims each agent's spawn cell; the first agent in a
// cell owns it.
func initialOccupancy(list []agents.Agent, ext device.Extent, wall func(x, y, z int) bool) []uint32 {
	occ := make([]uint32, ext.Cells())
	for i, a := range list {
		x, y := int(a.Position[0]), int(a.Position[1])
		if x < 0 || y < 0 || x >= ext.W || y >= ext.H || wall(x, y, 0) {
			continue
		}
		if c := y*ext.W + x; occ[c] == 0 {
			occ[c] = uint32(i + 1)
		}
	}
	return occ
}

func (e *Engine) loadKernel(path string, uniforms map[string]int32, local [3]int, groups device.Groups) (device.Kernel, error) {
	k, err := e.dev.LoadKernel(path)
	if err != nil {
		return nil, fmt.Errorf("loading kernel %s: %w", path, err)
	}
	if !k.Valid() {
		k.Unload()
		return nil, fmt.Errorf("loading kernel %s: %w", path, device.ErrInvalidKernel)
	}
	if err := checkBindings(k, uniforms); err != nil {
		k.Unload()
		return nil, err
	}
	if got := k.LocalSize(); got != local {
		k.Unload()
		return nil, fmt.Errorf("%w: %s local size %v, expected %v", device.ErrInvalidKernel, path, got, local)
	}
	k.SetWorkGroups(groups)
	return k, nil
}

func (e *Engine) loadKernels(s Shaders) error {
	ext := e.extent
	agentGroups := device.GroupsFor(e.count, LocalAgents[0])
	plane := device.GroupsForExtent(device.Extent2D(ext.W, ext.H), LocalField2D)

	var err error
	if e.variant.Dims == 3 {
		volume := device.GroupsForExtent(ext, LocalField3D)
		if e.agentKernel, err = e.loadKernel(s.Agent3D, agentUniforms, LocalAgents, agentGroups); err != nil {
			return err
		}
		if e.diffuseKernel, err = e.loadKernel(s.Diffuse3D, diffuseUniforms, LocalField3D, volume); err != nil {
			return err
		}
		if e.projectKernel, err = e.loadKernel(s.Project, projectUniforms, LocalField2D, plane); err != nil {
			return err
		}
	} else {
		if e.agentKernel, err = e.loadKernel(s.Agent, agentUniforms, LocalAgents, agentGroups); err != nil {
			return err
		}
		if e.diffuseKernel, err = e.loadKernel(s.Diffuse, diffuseUniforms, LocalField2D, plane); err != nil {
			return err
		}
	}
	if e.variant.Walls {
		if e.occupancyKernel, err = e.loadKernel(s.Occupancy, occupancyUniforms, LocalField2D, plane); err != nil {
			return err
		}
	}
	return nil
}

// bind attaches every resource to its slot once; bindings persist across
// steps. Constant uniforms are set here too.
func (e *Engine) bind() {
	e.agentBuf.BindStorage(SlotAgents)
	e.trail.BindImage(SlotTrail)
	e.diffused.BindImage(SlotDiffused)
	e.deposit.BindImage(SlotDeposit)
	if e.variant.Walls {
		e.walls.BindImage(SlotWalls)
		e.occupancy.BindImage(SlotOccupancy)
		e.occupant.BindImage(SlotOccupant)
	}
	if e.projection != nil {
		e.projection.BindImage(SlotProjection)
	}

	bounds := [3]int32{int32(e.extent.W), int32(e.extent.H), int32(e.extent.D)}
	walls := int32(0)
	if e.variant.Walls {
		walls = 1
	}

	e.agentKernel.SetIVec3(LocBounds, bounds)
	e.agentKernel.SetInt(LocAgentCount, int32(e.count))
	e.agentKernel.SetInt(LocSpeciesCount, int32(e.variant.Species))
	e.agentKernel.SetInt(LocAgentWalls, walls)

	e.diffuseKernel.SetIVec3(LocBounds, bounds)
	e.diffuseKernel.SetInt(LocDiffuseWalls, walls)

	if e.occupancyKernel != nil {
		e.occupancyKernel.SetIVec3(LocBounds, bounds)
		e.occupancyKernel.SetInt(LocOccupancyAgents, int32(e.count))
	}
	if e.projectKernel != nil {
		e.projectKernel.SetIVec3(LocBounds, bounds)
	}
}

// SetPhaseTimer installs a stage timer; nil disables timing.
func (e *Engine) SetPhaseTimer(t PhaseTimer) { e.timer = t }

func (e *Engine) phase(name string) {
	if e.timer != nil {
		e.timer.StartPhase(name)
	}
}

// Update advances one frame of length dt, split into StepsPerFrame
// sub-steps. dt <= 0 (a paused frame) does nothing.
func (e *Engine) Update(dt float32) {
	if !(dt > 0) {
		return
	}
	k := max(e.params.StepsPerFrame, 1)
	sub := dt / float32(k)
	for i := 0; i < k; i++ {
		e.Step(sub)
	}
}

// Step runs one simulation step: agents, diffuse, occupancy (walls only),
// swap, and projection (3D only). dt <= 0 does nothing.
func (e *Engine) Step(dt float32) {
	if !(dt > 0) || e.agentKernel == nil {
		return
	}
	p := e.params.Sanitize()
	e.time += dt
	e.steps++
	scale := depositScale(e.count, p.TrailWeight, dt)

	e.phase(telemetry.PhaseAgents)
	k := e.agentKernel
	k.SetFloat(LocDT, dt)
	k.SetFloat(LocTime, e.time)
	k.SetInt(LocStep, int32(uint32(e.steps)))
	k.SetFloat(LocMoveSpeed, p.MoveSpeed)
	k.SetFloat(LocTurnAmount, p.TurnAmount)
	k.SetFloat(LocTrailWeight, p.TrailWeight)
	k.SetFloat(LocSenseSpacing, p.SenseSpacing)
	k.SetFloat(LocSenseDistance, p.SenseDistance)
	k.SetInt(LocSenseSize, p.SenseSize)
	k.SetFloat(LocAgentScale, scale)
	k.DispatchAndWait()

	e.phase(telemetry.PhaseDiffuse)
	k = e.diffuseKernel
	k.SetFloat(LocDT, dt)
	k.SetFloat(LocTime, e.time)
	k.SetFloat(LocDiffuseSpeed, p.DiffuseSpeed)
	k.SetFloat(LocDecaySpeed, p.DecaySpeed)
	k.SetInt(LocBlurRadius, p.BlurRadius)
	k.SetFloat(LocDiffuseScale, scale)
	k.DispatchAndWait()

	if e.occupancyKernel != nil {
		e.phase(telemetry.PhaseOccupancy)
		e.occupancyKernel.DispatchAndWait()
	}

	e.phase(telemetry.PhaseSwap)
	e.mustCopy(e.trail, e.diffused)
	e.mustCopy(e.deposit, e.zero)

	if e.projectKernel != nil {
		e.phase(telemetry.PhaseProject)
		e.projectKernel.DispatchAndWait()
	}
}

// mustCopy copies between fields the engine allocated with matching shapes;
// a failure is a programming error.
func (e *Engine) mustCopy(dst, src device.Field) {
	if err := dst.CopyFrom(src); err != nil {
		panic(fmt.Sprintf("sim: swap copy failed: %v", err))
	}
}

// Paint writes a square of wall cells (or clears it when erase is set)
// centred on the grid cell (x, y). The box is clamped to the field; a box
// with no cells left writes nothing.
func (e *Engine) Paint(x, y, radius int, erase bool) error {
	if !e.variant.Walls {
		return ErrNoWalls
	}
	if radius < 0 {
		return nil
	}

	x0, y0 := max(x-radius, 0), max(y-radius, 0)
	x1, y1 := min(x+radius+1, e.extent.W), min(y+radius+1, e.extent.H)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	value := uint32(1)
	if erase {
		value = 0
	}
	region := device.Extent2D(x1-x0, y1-y0)
	data := make([]uint32, region.Cells())
	for i := range data {
		data[i] = value
	}
	for yy := y0; yy < y1; yy++ {
		for xx := x0; xx < x1; xx++ {
			e.wallMask[yy*e.extent.W+xx] = value
		}
	}
	return e.walls.WriteUints(device.Origin{X: x0, Y: y0}, region, data)
}

// Params returns the live parameter set for the debug panel.
func (e *Engine) Params() *Params { return &e.params }

// Variant returns the construction variant.
func (e *Engine) Variant() Variant { return e.variant }

// Extent returns the field size.
func (e *Engine) Extent() device.Extent { return e.extent }

// AgentCount returns the number of agents.
func (e *Engine) AgentCount() int { return e.count }

// Time returns the simulated seconds so far.
func (e *Engine) Time() float32 { return e.time }

// Steps returns the number of completed steps.
func (e *Engine) Steps() uint64 { return e.steps }

// Trail returns the current trail field.
func (e *Engine) Trail() device.Field { return e.trail }

// Occupant returns the occupant colour field, nil without walls.
func (e *Engine) Occupant() device.Field { return e.occupant }

// Occupancy returns the occupancy field, nil without walls.
func (e *Engine) Occupancy() device.Field { return e.occupancy }

// Walls returns the wall field, nil without walls.
func (e *Engine) Walls() device.Field { return e.walls }

// Display returns the handle the renderer should sample: the trail for 2D
// fields and its projection for 3D fields.
func (e *Engine) Display() device.Handle {
	if e.projection != nil {
		return e.projection.Handle()
	}
	return e.trail.Handle()
}

// DisplayField returns the field behind Display.
func (e *Engine) DisplayField() device.Field {
	if e.projection != nil {
		return e.projection
	}
	return e.trail
}

// IsWall reports whether the cell is painted as wall.
func (e *Engine) IsWall(x, y int) bool { return e.isWall(x, y, 0) }

// ReadTrail copies the current trail field to the host.
func (e *Engine) ReadTrail() ([]float32, error) {
	dst := make([]float32, e.extent.Cells()*4)
	if err := e.trail.ReadFloats(dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// ReadAgents copies the agent store to the host. Debug and test use only.
func (e *Engine) ReadAgents() ([]agents.Agent, error) {
	return device.Download[agents.Agent](e.agentBuf)
}

// Unload releases every device resource. Safe to call more than once.
func (e *Engine) Unload() {
	for _, k := range []*device.Kernel{&e.agentKernel, &e.diffuseKernel, &e.occupancyKernel, &e.projectKernel} {
		if *k != nil {
			(*k).Unload()
			*k = nil
		}
	}
	for _, f := range []*device.Field{
		&e.trail, &e.diffused, &e.deposit, &e.zero,
		&e.walls, &e.occupancy, &e.occupant, &e.projection,
	} {
		if *f != nil {
			(*f).Unload()
			*f = nil
		}
	}
	if e.agentBuf != nil {
		e.agentBuf.Unload()
		e.agentBuf = nil
	}
}

// depositAmount converts a per-channel deposit to accumulator units at the
// step's scale.
func depositAmount(weight, dt, mask, scale float32) uint32 {
	v := float64(weight) * float64(dt) * float64(mask) * float64(scale)
	if !(v > 0) {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(math.Round(v))
}
