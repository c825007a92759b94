// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"github.com/gogpu/gputypes"
)

// Formats and usage flags are the gputypes definitions. Backends built on
// gogpu/wgpu consume them directly; other backends convert in one place.
type (
	// TextureFormat specifies the pixel format of an image.
	TextureFormat = gputypes.TextureFormat

	// TextureUsage is a bitmask of allowed image uses.
	TextureUsage = gputypes.TextureUsage

	// BufferUsage is a bitmask of allowed buffer uses.
	BufferUsage = gputypes.BufferUsage
)

// Extent3D is the size of an image in texels.
type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// QueueKind identifies an independent execution queue.
type QueueKind uint8

const (
	// QueueGraphics executes render passes and draws.
	QueueGraphics QueueKind = iota
	// QueueCompute executes compute dispatches.
	QueueCompute
	// QueueTransfer executes copies and blits.
	QueueTransfer

	// NumQueueKinds is the number of queue kinds.
	NumQueueKinds
)

var queueKindNames = [...]string{
	QueueGraphics: "graphics",
	QueueCompute:  "compute",
	QueueTransfer: "transfer",
}

// String returns the queue kind name.
func (k QueueKind) String() string {
	if int(k) < len(queueKindNames) {
		return queueKindNames[k]
	}
	return "unknown"
}

// PipelineStage is a bitmask of pipeline stages, used as the source and
// destination scopes of a barrier.
type PipelineStage uint32

// Pipeline stages, in rough pipeline order.
const (
	StageTopOfPipe PipelineStage = 1 << iota
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageBottomOfPipe
)

var stageNames = map[PipelineStage]string{
	StageTopOfPipe:             "top-of-pipe",
	StageDrawIndirect:          "draw-indirect",
	StageVertexInput:           "vertex-input",
	StageVertexShader:          "vertex-shader",
	StageFragmentShader:        "fragment-shader",
	StageEarlyFragmentTests:    "early-fragment-tests",
	StageLateFragmentTests:     "late-fragment-tests",
	StageColorAttachmentOutput: "color-attachment-output",
	StageComputeShader:         "compute-shader",
	StageTransfer:              "transfer",
	StageBottomOfPipe:          "bottom-of-pipe",
}

// String returns a "|"-joined list of the set stages.
func (s PipelineStage) String() string {
	return maskString(uint32(s), stageNames, maskBits[PipelineStage]())
}

// Access is a bitmask of memory access types, used in barrier access
// scopes.
type Access uint32

// Access types.
const (
	AccessIndirectCommandRead Access = 1 << iota
	AccessIndexRead
	AccessVertexAttributeRead
	AccessUniformRead
	AccessShaderRead
	AccessShaderWrite
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthStencilRead
	AccessDepthStencilWrite
	AccessTransferRead
	AccessTransferWrite
)

// writeAccessMask covers every access type that modifies memory.
const writeAccessMask = AccessShaderWrite | AccessColorAttachmentWrite |
	AccessDepthStencilWrite | AccessTransferWrite

// IsWrite reports whether any write access bit is set.
func (a Access) IsWrite() bool { return a&writeAccessMask != 0 }

var accessNames = map[Access]string{
	AccessIndirectCommandRead:  "indirect-command-read",
	AccessIndexRead:            "index-read",
	AccessVertexAttributeRead:  "vertex-attribute-read",
	AccessUniformRead:          "uniform-read",
	AccessShaderRead:           "shader-read",
	AccessShaderWrite:          "shader-write",
	AccessColorAttachmentRead:  "color-attachment-read",
	AccessColorAttachmentWrite: "color-attachment-write",
	AccessDepthStencilRead:     "depth-stencil-read",
	AccessDepthStencilWrite:    "depth-stencil-write",
	AccessTransferRead:         "transfer-read",
	AccessTransferWrite:        "transfer-write",
}

// String returns a "|"-joined list of the set access types.
func (a Access) String() string {
	return maskString(uint32(a), accessNames, maskBits[Access]())
}

// ImageLayout is the layout an image must be in for a given use.
// Backends without explicit layouts (WebGPU-style) may ignore transitions.
type ImageLayout uint8

// Image layouts.
const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresent
)

var layoutNames = [...]string{
	LayoutUndefined:              "undefined",
	LayoutGeneral:                "general",
	LayoutColorAttachment:        "color-attachment",
	LayoutDepthStencilAttachment: "depth-stencil-attachment",
	LayoutShaderReadOnly:         "shader-read-only",
	LayoutTransferSrc:            "transfer-src",
	LayoutTransferDst:            "transfer-dst",
	LayoutPresent:                "present",
}

// String returns the layout name.
func (l ImageLayout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "unknown"
}

// MemoryClass partitions device memory by residency requirements.
// Resources may alias only within the same class.
type MemoryClass uint8

const (
	// MemoryDeviceLocal is fast memory private to the GPU.
	MemoryDeviceLocal MemoryClass = iota
	// MemoryHostVisible is mappable memory used for staging.
	MemoryHostVisible
)

var memoryClassNames = [...]string{
	MemoryDeviceLocal: "device-local",
	MemoryHostVisible: "host-visible",
}

// String returns the memory class name.
func (c MemoryClass) String() string {
	if int(c) < len(memoryClassNames) {
		return memoryClassNames[c]
	}
	return "unknown"
}

// LoadOp selects what happens to an attachment at the start of its first
// render pass use.
type LoadOp uint8

// Load operations.
const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

// Limits describes backend capabilities the scheduler must respect.
type Limits struct {
	// MaxColorAttachments is the largest attachment set one subpass
	// group may carry.
	MaxColorAttachments int

	// MaxBufferSize is the largest single buffer allocation in bytes.
	MaxBufferSize uint64

	// UnifiedQueue is set by backends that expose a single hardware
	// queue; the executor then serializes all queue streams onto it.
	UnifiedQueue bool
}

// DefaultLimits returns conservative limits matching WebGPU defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxColorAttachments: 8,
		MaxBufferSize:       256 << 20,
	}
}

// FormatBytesPerTexel returns the byte size of one texel, used to estimate
// image memory footprints before backend allocation. Unknown formats
// report 4, the most common case.
func FormatBytesPerTexel(f TextureFormat) uint64 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatDepth24PlusStencil8:
		return 4
	default:
		return 4
	}
}

// maskBits returns the ordered single-bit values of a 32-bit mask type.
func maskBits[T ~uint32]() []T {
	bits := make([]T, 0, 32)
	for i := 0; i < 32; i++ {
		bits = append(bits, T(1)<<i)
	}
	return bits
}

func maskString[T ~uint32](v uint32, names map[T]string, bits []T) string {
	if v == 0 {
		return "none"
	}
	s := ""
	for _, b := range bits {
		if v&uint32(b) == 0 {
			continue
		}
		name, ok := names[b]
		if !ok {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += name
	}
	if s == "" {
		return "unknown"
	}
	return s
}
