// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package hal defines the capability interfaces the frame graph compiles
// against.
//
// The core never talks to a concrete graphics API. It consumes a narrow
// surface: create images and buffers, bind them to device memory, record
// pipeline barriers and render passes, and submit command buffers to
// queues. Native backends (Vulkan, Metal, DX12, OpenGL via gogpu/wgpu, or
// the in-memory simulation backend) implement these interfaces and are
// selected through the backend registry.
//
// Wire types that map one-to-one onto WebGPU concepts (texture formats,
// texture and buffer usage flags) are taken from github.com/gogpu/gputypes
// so that resources declared here can be handed to any gogpu-ecosystem
// device without conversion. Synchronization types (pipeline stages,
// access masks, image layouts, queue ownership) follow the explicit-API
// model because the frame graph's whole job is to compute them.
package hal
