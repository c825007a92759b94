// Copyright 2026 The gogpu Authors. All rights reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package backend provides the device backend registry.
//
// A backend knows how to open a hal.Device on one platform. Backends
// register themselves at init time, usually via a blank import:
//
//	import _ "github.com/gogpu/framegraph/backend/sim"
//
// and callers pick one explicitly or take the best available:
//
//	opened, err := backend.OpenDefault()
//	if err != nil {
//		return err
//	}
//	exec := framegraph.NewExecutor(opened.Device, opened.Allocator)
//
// Two backends ship with the module: "wgpu" drives real GPUs through
// the gogpu wgpu HAL, and "sim" is an in-memory device used by tests
// and headless tools.
package backend
