// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/naga"
	whal "github.com/gogpu/wgpu/hal"
)

// CompileWGSL compiles WGSL source to SPIR-V words for shader module
// creation. SPIR-V is little-endian 32-bit words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader: %w", err)
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// CreateShaderModule compiles WGSL and creates a wgpu shader module on
// the device. Pass callbacks use this to build pipelines against the
// raw device.
func (d *Device) CreateShaderModule(label, source string) (whal.ShaderModule, error) {
	words, err := CompileWGSL(source)
	if err != nil {
		return nil, err
	}
	module, err := d.raw.CreateShaderModule(&whal.ShaderModuleDescriptor{
		Label:  label,
		Source: whal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %q: %w", label, err)
	}
	return module, nil
}
