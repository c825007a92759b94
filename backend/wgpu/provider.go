// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	whal "github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/backend"
)

// OpenShared adapts a device shared by a windowing stack (for example
// gogpu.App.GPUContextProvider()) instead of creating a standalone
// device. The provider must expose the underlying HAL device and queue
// via HalDevice() and HalQueue().
//
// Devices opened this way are not owned by the frame graph; closing the
// provider's application tears them down.
func OpenShared(provider gpucontext.DeviceProvider) (*backend.Opened, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(whal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not a wgpu hal.Device")
	}
	queue, ok := hp.HalQueue().(whal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not a wgpu hal.Queue")
	}

	dev := newDevice(device, queue)
	return &backend.Opened{Device: dev, Allocator: dev.Allocator()}, nil
}
