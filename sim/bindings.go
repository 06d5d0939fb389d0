package sim

import (
	"fmt"
	"math"

	"github.com/pthm-cable/slime/device"
)

// Image slots. Kernels declare the same bindings in their layout qualifiers.
const (
	SlotTrail      uint32 = 0
	SlotDiffused   uint32 = 1
	SlotDeposit    uint32 = 2
	SlotWalls      uint32 = 3
	SlotOccupancy  uint32 = 4
	SlotOccupant   uint32 = 5
	SlotProjection uint32 = 6
)

// SlotAgents is the storage buffer slot of the agent store.
const SlotAgents uint32 = 0

// Uniform locations shared by every kernel.
const (
	LocBounds int32 = 0
	LocDT     int32 = 1
	LocTime   int32 = 2
)

// Agent kernel uniforms.
const (
	LocAgentCount    int32 = 3
	LocMoveSpeed     int32 = 4
	LocTurnAmount    int32 = 5
	LocTrailWeight   int32 = 6
	LocSenseSpacing  int32 = 7
	LocSenseDistance int32 = 8
	LocSenseSize     int32 = 9
	LocSpeciesCount  int32 = 10
	LocAgentWalls    int32 = 11
	LocStep          int32 = 12
	LocAgentScale    int32 = 13
)

// Diffuse kernel uniforms.
const (
	LocDiffuseSpeed int32 = 3
	LocDecaySpeed   int32 = 4
	LocBlurRadius   int32 = 5
	LocDiffuseWalls int32 = 6
	LocDiffuseScale int32 = 7
)

// Occupancy kernel uniforms.
const (
	LocOccupancyAgents int32 = 1
)

// Local work-group sizes.
var (
	LocalAgents  = [3]int{128, 1, 1}
	LocalField2D = [3]int{8, 8, 1}
	LocalField3D = [3]int{4, 4, 4}
)

// MaxDepositScale is the finest fixed-point resolution of the deposit
// accumulator: units per 1.0 of trail intensity.
const MaxDepositScale = 65536

// depositScale picks the accumulator resolution for one step so that every
// agent depositing its full amount into a single cell still fits in a
// uint32. Rounding adds at most half a unit per agent, which the count
// subtracted from the budget covers.
func depositScale(count int, weight, dt float32) float32 {
	d := float64(weight) * float64(dt)
	if count <= 0 || !(d > 0) {
		return MaxDepositScale
	}
	s := math.Floor((math.MaxUint32 - float64(count)) / (float64(count) * d))
	return float32(min(max(s, 1), MaxDepositScale))
}

// Uniform names as declared in the shader assets. Used to check that a
// loaded kernel agrees with the locations above.
var (
	agentUniforms = map[string]int32{
		"bounds": LocBounds, "dt": LocDT, "time": LocTime,
		"agentCount": LocAgentCount, "moveSpeed": LocMoveSpeed,
		"turnAmount": LocTurnAmount, "trailWeight": LocTrailWeight,
		"senseSpacing": LocSenseSpacing, "senseDistance": LocSenseDistance,
		"senseSize": LocSenseSize, "speciesCount": LocSpeciesCount,
		"wallsEnabled": LocAgentWalls, "step": LocStep,
		"depositScale": LocAgentScale,
	}
	diffuseUniforms = map[string]int32{
		"bounds": LocBounds, "dt": LocDT, "time": LocTime,
		"diffuseSpeed": LocDiffuseSpeed, "decaySpeed": LocDecaySpeed,
		"blurRadius": LocBlurRadius, "wallsEnabled": LocDiffuseWalls,
		"depositScale": LocDiffuseScale,
	}
	occupancyUniforms = map[string]int32{
		"bounds": LocBounds, "agentCount": LocOccupancyAgents,
	}
	projectUniforms = map[string]int32{
		"bounds": LocBounds,
	}
)

// checkBindings verifies that every uniform the kernel exposes sits at its
// fixed location. Uniforms the compiler optimised away resolve to -1 and
// are accepted; a uniform at a different location is an error.
func checkBindings(k device.Kernel, want map[string]int32) error {
	for name, loc := range want {
		got := k.Location(name)
		if got != -1 && got != loc {
			return fmt.Errorf("%w: %s uniform %q at location %d, expected %d",
				device.ErrInvalidKernel, k.Path(), name, got, loc)
		}
	}
	return nil
}
