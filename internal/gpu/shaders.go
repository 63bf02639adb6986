// Package gpu wires the compositing pipelines to the wgpu HAL: shader
// compilation, atlas array textures with incremental upload, and the
// instanced quad and multiplexed shape render pipelines.
package gpu

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Embedded WGSL shader sources, compiled in at build time.

//go:embed shaders/quad.wgsl
var quadShaderSource string

//go:embed shaders/shape.wgsl
var shapeShaderSource string

// QuadShaderSource returns the WGSL source of the instanced quad shader.
func QuadShaderSource() string { return quadShaderSource }

// ShapeShaderSource returns the WGSL source of the multiplexed shape shader.
func ShapeShaderSource() string { return shapeShaderSource }

// ValidateShaders compiles every embedded shader without creating GPU
// objects. Useful as an init-time sanity check and in tests.
func ValidateShaders() error {
	for _, s := range []struct {
		name   string
		source string
	}{
		{"quad", quadShaderSource},
		{"shape", shapeShaderSource},
	} {
		if s.source == "" {
			return fmt.Errorf("%s shader source is empty", s.name)
		}
		if _, err := compileToSPIRV(s.source); err != nil {
			return fmt.Errorf("%s shader: %w", s.name, err)
		}
	}
	return nil
}

// compileToSPIRV compiles WGSL source to SPIR-V words.
// SPIR-V is little-endian 32-bit words.
func compileToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, errors.New("SPIR-V output is not word aligned")
	}

	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// newShaderModule compiles WGSL through naga and creates a SPIR-V
// shader module.
func newShaderModule(device hal.Device, label, wgslSource string) (hal.ShaderModule, error) {
	spirvCode, err := compileToSPIRV(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: spirvCode,
		},
	})
}
