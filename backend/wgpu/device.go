// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	whal "github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/hal"
)

// Device adapts a wgpu HAL device to the frame graph device interface.
//
// wgpu allocates texture and buffer memory at creation, so the binding
// step is a no-op and the allocator only accounts sizes. Aliasing stays
// a scheduling-level optimization on this backend.
type Device struct {
	raw   whal.Device
	queue *Queue
	alloc *Allocator
}

func newDevice(raw whal.Device, rawQueue whal.Queue) *Device {
	d := &Device{raw: raw}
	d.queue = &Queue{dev: d, raw: rawQueue}
	d.alloc = &Allocator{}
	return d
}

// Raw returns the underlying wgpu HAL device for callers that need to
// create pipelines or bind groups directly.
func (d *Device) Raw() whal.Device { return d.raw }

// Allocator returns the device's accounting allocator.
func (d *Device) Allocator() *Allocator { return d.alloc }

func (d *Device) Limits() hal.Limits {
	limits := hal.DefaultLimits()
	limits.UnifiedQueue = true
	return limits
}

// Queue returns the single wgpu queue regardless of kind.
func (d *Device) Queue(kind hal.QueueKind) hal.Queue { return d.queue }

// Image wraps a wgpu texture with its lazily created default view.
type Image struct {
	Tex  whal.Texture
	dev  *Device
	desc hal.ImageDescriptor

	viewOnce sync.Once
	view     whal.TextureView
	viewErr  error

	external bool
}

// WrapTexture makes an existing wgpu texture importable into a graph.
// The frame graph never destroys wrapped textures.
func WrapTexture(d *Device, tex whal.Texture, format hal.TextureFormat, width, height uint32) *Image {
	return &Image{
		Tex: tex,
		dev: d,
		desc: hal.ImageDescriptor{
			Format: format,
			Size:   hal.Extent3D{Width: width, Height: height, Depth: 1},
		},
		external: true,
	}
}

// View returns the image's default full view, creating it on first use.
func (im *Image) View() (whal.TextureView, error) {
	im.viewOnce.Do(func() {
		im.view, im.viewErr = im.dev.raw.CreateTextureView(im.Tex, &whal.TextureViewDescriptor{
			Label: im.desc.Label,
		})
	})
	return im.view, im.viewErr
}

// Buffer wraps a wgpu buffer.
type Buffer struct {
	Buf  whal.Buffer
	desc hal.BufferDescriptor
}

func (d *Device) CreateImage(desc *hal.ImageDescriptor) (hal.Image, error) {
	tex, err := d.raw.CreateTexture(&whal.TextureDescriptor{
		Label: desc.Label,
		Size: whal.Extent3D{
			Width:              desc.Size.Width,
			Height:             desc.Size.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	return &Image{Tex: tex, dev: d, desc: *desc}, nil
}

func (d *Device) DestroyImage(img hal.Image) {
	im := img.(*Image)
	if im.external {
		return
	}
	if im.view != nil {
		d.raw.DestroyTextureView(im.view)
	}
	d.raw.DestroyTexture(im.Tex)
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	buf, err := d.raw.CreateBuffer(&whal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	return &Buffer{Buf: buf, desc: *desc}, nil
}

func (d *Device) DestroyBuffer(buf hal.Buffer) {
	d.raw.DestroyBuffer(buf.(*Buffer).Buf)
}

func (d *Device) ImageMemoryRequirements(img hal.Image) hal.MemoryRequirements {
	desc := &img.(*Image).desc
	size := uint64(desc.Size.Width) * uint64(desc.Size.Height) *
		uint64(hal.FormatBytesPerTexel(desc.Format))
	return hal.MemoryRequirements{Size: size, Alignment: 1, Class: hal.MemoryDeviceLocal}
}

func (d *Device) BufferMemoryRequirements(buf hal.Buffer) hal.MemoryRequirements {
	return hal.MemoryRequirements{
		Size:      buf.(*Buffer).desc.Size,
		Alignment: 1,
		Class:     hal.MemoryDeviceLocal,
	}
}

// BindImageMemory is a no-op: wgpu backs textures at creation.
func (d *Device) BindImageMemory(img hal.Image, mem hal.Memory, offset uint64) error { return nil }

// BindBufferMemory is a no-op: wgpu backs buffers at creation.
func (d *Device) BindBufferMemory(buf hal.Buffer, mem hal.Memory, offset uint64) error { return nil }

func (d *Device) CreateCommandEncoder(kind hal.QueueKind) (hal.CommandEncoder, error) {
	raw, err := d.raw.CreateCommandEncoder(&whal.CommandEncoderDescriptor{
		Label: "framegraph",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	return &Encoder{dev: d, raw: raw}, nil
}

func (d *Device) FreeCommandBuffer(cb hal.CommandBuffer) {
	d.raw.FreeCommandBuffer(cb.(whal.CommandBuffer))
}

// Fence wraps a wgpu fence.
type Fence struct {
	raw whal.Fence
}

func (d *Device) CreateFence() (hal.Fence, error) {
	raw, err := d.raw.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	return &Fence{raw: raw}, nil
}

func (d *Device) DestroyFence(f hal.Fence) {
	d.raw.DestroyFence(f.(*Fence).raw)
}

func (d *Device) WaitFence(f hal.Fence, timeoutNanos uint64) (bool, error) {
	return d.raw.Wait(f.(*Fence).raw, 1, time.Duration(timeoutNanos))
}

// Semaphore is a token. The single wgpu queue executes submissions in
// order, which subsumes cross-queue semaphores.
type Semaphore struct{}

func (d *Device) CreateSemaphore() (hal.Semaphore, error) { return &Semaphore{}, nil }
func (d *Device) DestroySemaphore(hal.Semaphore)          {}

// Encoder adapts a wgpu command encoder. Pass callbacks may assert the
// framegraph encoder to *Encoder and use RenderPass or Raw for draws
// and dispatches.
type Encoder struct {
	dev *Device
	raw whal.CommandEncoder
	rp  whal.RenderPassEncoder

	// First recording failure; surfaced by End.
	err error
}

// Raw returns the wgpu command encoder.
func (e *Encoder) Raw() whal.CommandEncoder { return e.raw }

// RenderPass returns the open render pass encoder, or nil outside one.
func (e *Encoder) RenderPass() whal.RenderPassEncoder { return e.rp }

func (e *Encoder) Begin(label string) error {
	if err := e.raw.BeginEncoding(label); err != nil {
		return fmt.Errorf("wgpu: begin encoding %q: %w", label, err)
	}
	return nil
}

// PipelineBarrier maps an image layout transition onto a wgpu texture
// usage transition. Pure memory barriers are dropped: the wgpu HAL
// synchronizes buffer hazards internally.
func (e *Encoder) PipelineBarrier(b *hal.Barrier) {
	if b.Image == nil {
		return
	}
	im := b.Image.(*Image)
	e.raw.TransitionTextures([]whal.TextureBarrier{{
		Texture: im.Tex,
		Usage: whal.TextureUsageTransition{
			OldUsage: layoutUsage(b.OldLayout),
			NewUsage: layoutUsage(b.NewLayout),
		},
	}})
}

// ReleaseOwnership is a no-op on the unified queue.
func (e *Encoder) ReleaseOwnership(b *hal.Barrier) {}

// AcquireOwnership applies the layout transition half; ownership itself
// does not exist on a single queue.
func (e *Encoder) AcquireOwnership(b *hal.Barrier) {
	e.PipelineBarrier(b)
}

// BeginRenderPass opens a render pass over the bound attachments. A
// failed attachment view poisons the encoder: no pass is opened and
// End returns the error, so the frame never submits a pass recorded
// against fewer attachments than planned.
func (e *Encoder) BeginRenderPass(desc *hal.RenderPassDescriptor) {
	if e.err != nil {
		return
	}
	rpDesc := &whal.RenderPassDescriptor{Label: desc.Label}
	for _, c := range desc.Colors {
		view, err := c.Image.(*Image).View()
		if err != nil {
			e.err = fmt.Errorf("wgpu: render pass %q color view: %w", desc.Label, err)
			return
		}
		rpDesc.ColorAttachments = append(rpDesc.ColorAttachments, whal.RenderPassColorAttachment{
			View:    view,
			LoadOp:  loadOp(c.Load),
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: c.ClearR, G: c.ClearG, B: c.ClearB, A: c.ClearA,
			},
		})
	}
	if desc.DepthStencil != nil {
		view, err := desc.DepthStencil.Image.(*Image).View()
		if err != nil {
			e.err = fmt.Errorf("wgpu: render pass %q depth view: %w", desc.Label, err)
			return
		}
		rpDesc.DepthStencilAttachment = &whal.RenderPassDepthStencilAttachment{
			View:              view,
			DepthLoadOp:       loadOp(desc.DepthStencil.Load),
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   float32(desc.DepthStencil.ClearDepth),
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpDiscard,
			StencilClearValue: 0,
		}
	}
	e.rp = e.raw.BeginRenderPass(rpDesc)
}

func (e *Encoder) EndRenderPass() {
	if e.rp != nil {
		e.rp.End()
		e.rp = nil
	}
}

func (e *Encoder) End() (hal.CommandBuffer, error) {
	if e.err != nil {
		return nil, e.err
	}
	cmdBuf, err := e.raw.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	return cmdBuf, nil
}

// Queue adapts the wgpu queue. Waits and signals are dropped: a single
// in-order queue already provides that ordering.
type Queue struct {
	dev *Device
	raw whal.Queue
}

func (q *Queue) Kind() hal.QueueKind { return hal.QueueGraphics }

func (q *Queue) Submit(buffers []hal.CommandBuffer, waits, signals []hal.Semaphore, fence hal.Fence) error {
	raw := make([]whal.CommandBuffer, len(buffers))
	for i, cb := range buffers {
		raw[i] = cb.(whal.CommandBuffer)
	}
	var rawFence whal.Fence
	if fence != nil {
		rawFence = fence.(*Fence).raw
	}
	if err := q.raw.Submit(raw, rawFence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	return nil
}

// Allocator accounts sizes only; wgpu owns placement.
type Allocator struct {
	mu    sync.Mutex
	inUse uint64
}

// Memory is an accounting token.
type Memory struct {
	Size uint64
}

func (a *Allocator) Allocate(size, alignment uint64, class hal.MemoryClass) (hal.Memory, error) {
	a.mu.Lock()
	a.inUse += size
	a.mu.Unlock()
	return &Memory{Size: size}, nil
}

func (a *Allocator) Free(mem hal.Memory) {
	m := mem.(*Memory)
	a.mu.Lock()
	a.inUse -= m.Size
	a.mu.Unlock()
}

// InUse reports bytes currently accounted to live frames.
func (a *Allocator) InUse() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// layoutUsage maps a frame graph image layout to the wgpu texture usage
// that stands in for it.
func layoutUsage(l hal.ImageLayout) gputypes.TextureUsage {
	switch l {
	case hal.LayoutColorAttachment, hal.LayoutDepthStencilAttachment:
		return gputypes.TextureUsageRenderAttachment
	case hal.LayoutShaderReadOnly:
		return gputypes.TextureUsageTextureBinding
	case hal.LayoutTransferSrc:
		return gputypes.TextureUsageCopySrc
	case hal.LayoutTransferDst:
		return gputypes.TextureUsageCopyDst
	case hal.LayoutGeneral:
		return gputypes.TextureUsageStorageBinding
	case hal.LayoutPresent:
		return gputypes.TextureUsageRenderAttachment
	default:
		return 0
	}
}

func loadOp(op hal.LoadOp) gputypes.LoadOp {
	switch op {
	case hal.LoadOpClear, hal.LoadOpDontCare:
		return gputypes.LoadOpClear
	default:
		return gputypes.LoadOpLoad
	}
}
