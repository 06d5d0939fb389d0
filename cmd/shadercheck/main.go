// Shader check tool - compiles every shader asset in a hidden GL context.
//
// Usage: go run ./cmd/shadercheck -config config.yaml
package main

import (
	"flag"
	"fmt"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/device/gpu"
	"github.com/pthm-cable/slime/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize raylib with hidden window for the GL context
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(64, 64, "Shader Check")
	defer rl.CloseWindow()

	if err := gpu.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	dev := gpu.New()
	fmt.Printf("Device: %s\n", dev.Name())

	failed := 0
	for _, path := range sim.ShadersFrom(cfg.Shaders).All() {
		k, err := dev.LoadKernel(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		local := k.LocalSize()
		fmt.Printf("ok   %s (local %dx%dx%d)\n", path, local[0], local[1], local[2])
		k.Unload()
	}

	display := cfg.Shaders.Path(cfg.Shaders.Display)
	shader := rl.LoadShader("", display)
	if shader.ID == 0 {
		fmt.Fprintf(os.Stderr, "FAIL %s: display shader did not link\n", display)
		failed++
	} else {
		fmt.Printf("ok   %s\n", display)
		rl.UnloadShader(shader)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d shader(s) failed\n", failed)
		os.Exit(1)
	}
}
