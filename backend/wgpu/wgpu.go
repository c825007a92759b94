// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu drives real GPUs through the gogpu wgpu HAL.
//
// The wgpu HAL exposes a single WebGPU-style queue and tracks resource
// hazards internally, so queue ownership transfers are no-ops here and
// layout transitions map to texture usage transitions. The device
// reports UnifiedQueue; the scheduler folds compute and transfer passes
// onto the graphics timeline.
package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	whal "github.com/gogpu/wgpu/hal"

	// Register the Vulkan backend via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/framegraph/backend"
)

func init() {
	backend.Register(backend.BackendWgpu, func() backend.Backend { return &wgpuBackend{} })
}

type wgpuBackend struct {
	instance whal.Instance
	device   *Device
}

func (*wgpuBackend) Name() string { return backend.BackendWgpu }

// Open creates an instance, picks the best adapter, and opens a device.
// Discrete GPUs win over integrated, integrated over software.
func (b *wgpuBackend) Open() (*backend.Opened, error) {
	wb, ok := whal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not compiled in: %w", backend.ErrBackendNotAvailable)
	}

	instance, err := wb.CreateInstance(&whal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: no adapters: %w", backend.ErrBackendNotAvailable)
	}

	var selected *whal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		for i := range adapters {
			if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
				selected = &adapters[i]
				break
			}
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open adapter %q: %w", selected.Info.Name, err)
	}

	b.instance = instance
	b.device = newDevice(openDev.Device, openDev.Queue)
	return &backend.Opened{Device: b.device, Allocator: b.device.Allocator()}, nil
}

func (b *wgpuBackend) Close() {
	if b.device != nil {
		b.device.raw.Destroy()
		b.device = nil
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
}
