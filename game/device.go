package game

import (
	"fmt"

	"github.com/pthm-cable/slime/device"
	"github.com/pthm-cable/slime/device/gpu"
	"github.com/pthm-cable/slime/sim"
)

// Device names accepted by OpenDevice.
const (
	DeviceGPU = "gpu"
	DeviceCPU = "cpu"
)

// OpenDevice creates the compute backend by name. The GPU backend needs a
// current GL 4.3 context, so the window must already be open.
func OpenDevice(name string, workers int) (device.Device, error) {
	switch name {
	case DeviceGPU:
		if err := gpu.Init(); err != nil {
			return nil, err
		}
		return gpu.New(), nil
	case DeviceCPU:
		return sim.NewCPUDevice(workers), nil
	default:
		return nil, fmt.Errorf("unknown device %q", name)
	}
}
