// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import "errors"

// ErrOutOfDeviceMemory is returned by Allocator.Allocate when the device
// cannot satisfy the request. The frame is aborted; the caller may retry
// after freeing memory elsewhere.
var ErrOutOfDeviceMemory = errors.New("hal: out of device memory")

// Resource handles are opaque to the frame graph. Each backend returns
// its own concrete types and type-asserts them back in its methods; the
// executor only stores and forwards them.
type (
	// Image is an opaque backend image handle.
	Image any

	// Buffer is an opaque backend buffer handle.
	Buffer any

	// Memory is an opaque device memory handle returned by an Allocator.
	Memory any

	// Fence is a host-visible completion marker for a submission.
	Fence any

	// Semaphore orders submissions across queues on the device timeline.
	Semaphore any

	// CommandBuffer is a finished recording ready for submission.
	CommandBuffer any
)

// ImageDescriptor describes an image to create. Creation does not
// allocate memory; the image must be bound via BindImageMemory before use.
type ImageDescriptor struct {
	Label  string
	Size   Extent3D
	Format TextureFormat
	Usage  TextureUsage
}

// BufferDescriptor describes a buffer to create. As with images, memory
// is bound separately.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// MemoryRequirements reports what a created resource needs from its
// backing allocation.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	Class     MemoryClass
}

// Allocator hands out device memory. Implementations decide placement;
// the frame graph only asks for size, alignment and class.
type Allocator interface {
	// Allocate returns backing memory, or an error wrapping
	// ErrOutOfDeviceMemory when the device is exhausted.
	Allocate(size, alignment uint64, class MemoryClass) (Memory, error)

	// Free releases memory obtained from Allocate.
	Free(Memory)
}

// Barrier is one synchronization command. Stage masks order execution;
// access masks make writes visible; the optional image fields request a
// layout transition. SrcQueue/DstQueue differ only for queue ownership
// transfers.
type Barrier struct {
	SrcStage  PipelineStage
	DstStage  PipelineStage
	SrcAccess Access
	DstAccess Access

	// Image transition, nil Image for a pure memory barrier.
	Image     Image
	OldLayout ImageLayout
	NewLayout ImageLayout

	// Queue ownership transfer.
	SrcQueue QueueKind
	DstQueue QueueKind
}

// ColorAttachment binds an image as a render target.
type ColorAttachment struct {
	Image  Image
	Load   LoadOp
	ClearR float64
	ClearG float64
	ClearB float64
	ClearA float64
}

// DepthStencilAttachment binds an image as the depth/stencil target.
type DepthStencilAttachment struct {
	Image      Image
	Load       LoadOp
	ClearDepth float64
}

// RenderPassDescriptor starts a render pass over an attachment set.
type RenderPassDescriptor struct {
	Label        string
	Colors       []ColorAttachment
	DepthStencil *DepthStencilAttachment
}

// CommandEncoder records commands for one queue's stream. A single
// encoder must not be used from more than one goroutine; the executor
// creates one encoder per queue.
type CommandEncoder interface {
	// Begin starts recording. Label is a debug name for the stream.
	Begin(label string) error

	// PipelineBarrier records a synchronization command.
	PipelineBarrier(b *Barrier)

	// ReleaseOwnership records the source-queue half of a queue
	// ownership transfer.
	ReleaseOwnership(b *Barrier)

	// AcquireOwnership records the destination-queue half of a queue
	// ownership transfer.
	AcquireOwnership(b *Barrier)

	// BeginRenderPass starts a render pass; draws recorded by pass
	// callbacks land inside it.
	BeginRenderPass(desc *RenderPassDescriptor)

	// EndRenderPass ends the current render pass.
	EndRenderPass()

	// End finishes recording and returns the command buffer.
	End() (CommandBuffer, error)
}

// Queue accepts finished command buffers for device execution.
type Queue interface {
	// Kind reports which logical queue this is.
	Kind() QueueKind

	// Submit enqueues buffers. The submission waits for the wait
	// semaphores, signals the signal semaphores, and signals fence
	// (if non-nil) when all buffers retire.
	Submit(buffers []CommandBuffer, waits, signals []Semaphore, fence Fence) error
}

// Device is the capability set the executor needs from a backend.
type Device interface {
	// Limits reports scheduling-relevant capabilities.
	Limits() Limits

	// Queue returns the queue of the given kind. Backends with a
	// single hardware queue return the same queue for every kind and
	// set Limits().UnifiedQueue.
	Queue(kind QueueKind) Queue

	CreateImage(desc *ImageDescriptor) (Image, error)
	DestroyImage(Image)

	CreateBuffer(desc *BufferDescriptor) (Buffer, error)
	DestroyBuffer(Buffer)

	// Memory requirements of a created but unbound resource.
	ImageMemoryRequirements(Image) MemoryRequirements
	BufferMemoryRequirements(Buffer) MemoryRequirements

	// BindImageMemory attaches backing memory at offset.
	BindImageMemory(img Image, mem Memory, offset uint64) error

	// BindBufferMemory attaches backing memory at offset.
	BindBufferMemory(buf Buffer, mem Memory, offset uint64) error

	CreateCommandEncoder(kind QueueKind) (CommandEncoder, error)

	// FreeCommandBuffer releases a submitted command buffer after its
	// fence signaled.
	FreeCommandBuffer(CommandBuffer)

	CreateFence() (Fence, error)
	DestroyFence(Fence)

	// WaitFence blocks until the fence signals or timeoutNanos passes.
	// It reports whether the fence signaled.
	WaitFence(f Fence, timeoutNanos uint64) (bool, error)

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(Semaphore)
}
