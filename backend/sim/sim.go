// Copyright 2026 The gogpu Authors. All rights reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package sim implements an in-memory hal.Device. It executes nothing:
// commands are recorded into a typed op log that tests and headless
// tools inspect. Fences signal on submit, memory comes from a
// budgeted counter, and the queue log preserves submission order.
package sim

import (
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/hal"
)

func init() {
	backend.Register(backend.BackendSim, func() backend.Backend { return &simBackend{} })
}

type simBackend struct{}

func (*simBackend) Name() string { return backend.BackendSim }

func (*simBackend) Open() (*backend.Opened, error) {
	dev := NewDevice(Options{})
	return &backend.Opened{Device: dev, Allocator: dev.Allocator()}, nil
}

func (*simBackend) Close() {}

// Options configures a simulated device.
type Options struct {
	// MemoryBudget caps the allocator; Allocate fails with
	// hal.ErrOutOfDeviceMemory once in-use memory would exceed it.
	// Zero means unlimited.
	MemoryBudget uint64

	// Unified collapses all queue kinds onto the graphics queue, the
	// way single-queue hardware behaves.
	Unified bool
}

// OpKind discriminates log entries.
type OpKind int

const (
	OpBegin OpKind = iota
	OpBarrier
	OpRelease
	OpAcquire
	OpBeginRenderPass
	OpEndRenderPass
	OpEnd
)

var opNames = [...]string{
	OpBegin:           "begin",
	OpBarrier:         "barrier",
	OpRelease:         "release",
	OpAcquire:         "acquire",
	OpBeginRenderPass: "begin-render-pass",
	OpEndRenderPass:   "end-render-pass",
	OpEnd:             "end",
}

func (k OpKind) String() string {
	if int(k) < len(opNames) {
		return opNames[k]
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Op is one recorded command.
type Op struct {
	Kind    OpKind
	Label   string
	Barrier hal.Barrier              // OpBarrier, OpRelease, OpAcquire
	Pass    hal.RenderPassDescriptor // OpBeginRenderPass
}

// Submission is one queue submit: its command buffer ops and semaphore
// lists, in the order the executor issued them.
type Submission struct {
	Queue   hal.QueueKind
	Ops     []Op
	Waits   []hal.Semaphore
	Signals []hal.Semaphore
}

// Device is the simulated device. Safe for concurrent use.
type Device struct {
	opts   Options
	limits hal.Limits
	alloc  *Allocator

	mu          sync.Mutex
	submissions []Submission
	liveImages  int
	liveBuffers int
}

// NewDevice creates a simulated device.
func NewDevice(opts Options) *Device {
	limits := hal.DefaultLimits()
	limits.UnifiedQueue = opts.Unified
	d := &Device{opts: opts, limits: limits}
	d.alloc = &Allocator{dev: d, budget: opts.MemoryBudget}
	return d
}

// Allocator returns the device's budgeted allocator.
func (d *Device) Allocator() *Allocator { return d.alloc }

// Submissions returns a copy of the submit log.
func (d *Device) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.submissions...)
}

// Ops returns every recorded op across submissions, flattened in
// submission order.
func (d *Device) Ops() []Op {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ops []Op
	for _, s := range d.submissions {
		ops = append(ops, s.Ops...)
	}
	return ops
}

// LiveImages reports images created and not yet destroyed.
func (d *Device) LiveImages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveImages
}

// LiveBuffers reports buffers created and not yet destroyed.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveBuffers
}

func (d *Device) Limits() hal.Limits { return d.limits }

func (d *Device) Queue(kind hal.QueueKind) hal.Queue {
	if d.limits.UnifiedQueue {
		kind = hal.QueueGraphics
	}
	return &queue{dev: d, kind: kind}
}

// Image is a simulated image.
type Image struct {
	Desc  hal.ImageDescriptor
	Mem   hal.Memory
	Bound bool
}

// Buffer is a simulated buffer.
type Buffer struct {
	Desc  hal.BufferDescriptor
	Mem   hal.Memory
	Bound bool
}

func (d *Device) CreateImage(desc *hal.ImageDescriptor) (hal.Image, error) {
	d.mu.Lock()
	d.liveImages++
	d.mu.Unlock()
	return &Image{Desc: *desc}, nil
}

func (d *Device) DestroyImage(img hal.Image) {
	d.mu.Lock()
	d.liveImages--
	d.mu.Unlock()
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	d.mu.Lock()
	d.liveBuffers++
	d.mu.Unlock()
	return &Buffer{Desc: *desc}, nil
}

func (d *Device) DestroyBuffer(buf hal.Buffer) {
	d.mu.Lock()
	d.liveBuffers--
	d.mu.Unlock()
}

const simAlignment = 256

func (d *Device) ImageMemoryRequirements(img hal.Image) hal.MemoryRequirements {
	im := img.(*Image)
	size := uint64(im.Desc.Size.Width) * uint64(im.Desc.Size.Height) *
		uint64(hal.FormatBytesPerTexel(im.Desc.Format))
	return hal.MemoryRequirements{Size: size, Alignment: simAlignment, Class: hal.MemoryDeviceLocal}
}

func (d *Device) BufferMemoryRequirements(buf hal.Buffer) hal.MemoryRequirements {
	return hal.MemoryRequirements{
		Size:      buf.(*Buffer).Desc.Size,
		Alignment: simAlignment,
		Class:     hal.MemoryDeviceLocal,
	}
}

func (d *Device) BindImageMemory(img hal.Image, mem hal.Memory, offset uint64) error {
	im := img.(*Image)
	if mem == nil {
		return fmt.Errorf("sim: bind image %q: nil memory", im.Desc.Label)
	}
	im.Mem = mem
	im.Bound = true
	return nil
}

func (d *Device) BindBufferMemory(buf hal.Buffer, mem hal.Memory, offset uint64) error {
	b := buf.(*Buffer)
	if mem == nil {
		return fmt.Errorf("sim: bind buffer %q: nil memory", b.Desc.Label)
	}
	b.Mem = mem
	b.Bound = true
	return nil
}

func (d *Device) CreateCommandEncoder(kind hal.QueueKind) (hal.CommandEncoder, error) {
	return &encoder{}, nil
}

func (d *Device) FreeCommandBuffer(hal.CommandBuffer) {}

// Fence signals on submit; the simulation has no asynchronous work.
type Fence struct {
	mu       sync.Mutex
	signaled bool
}

func (d *Device) CreateFence() (hal.Fence, error) { return &Fence{}, nil }
func (d *Device) DestroyFence(hal.Fence)          {}

func (d *Device) WaitFence(f hal.Fence, timeoutNanos uint64) (bool, error) {
	fence := f.(*Fence)
	fence.mu.Lock()
	defer fence.mu.Unlock()
	return fence.signaled, nil
}

// Semaphore is a simulated semaphore; submission order stands in for
// GPU-side waits.
type Semaphore struct{ id int }

func (d *Device) CreateSemaphore() (hal.Semaphore, error) { return &Semaphore{}, nil }
func (d *Device) DestroySemaphore(hal.Semaphore)          {}

type commandBuffer struct {
	ops []Op
}

type encoder struct {
	ops   []Op
	ended bool
}

func (e *encoder) Begin(label string) error {
	e.ops = append(e.ops, Op{Kind: OpBegin, Label: label})
	return nil
}

func (e *encoder) PipelineBarrier(b *hal.Barrier) {
	e.ops = append(e.ops, Op{Kind: OpBarrier, Barrier: *b})
}

func (e *encoder) ReleaseOwnership(b *hal.Barrier) {
	e.ops = append(e.ops, Op{Kind: OpRelease, Barrier: *b})
}

func (e *encoder) AcquireOwnership(b *hal.Barrier) {
	e.ops = append(e.ops, Op{Kind: OpAcquire, Barrier: *b})
}

func (e *encoder) BeginRenderPass(desc *hal.RenderPassDescriptor) {
	e.ops = append(e.ops, Op{Kind: OpBeginRenderPass, Label: desc.Label, Pass: *desc})
}

func (e *encoder) EndRenderPass() {
	e.ops = append(e.ops, Op{Kind: OpEndRenderPass})
}

func (e *encoder) End() (hal.CommandBuffer, error) {
	if e.ended {
		return nil, fmt.Errorf("sim: encoder ended twice")
	}
	e.ended = true
	e.ops = append(e.ops, Op{Kind: OpEnd})
	return &commandBuffer{ops: e.ops}, nil
}

type queue struct {
	dev  *Device
	kind hal.QueueKind
}

func (q *queue) Kind() hal.QueueKind { return q.kind }

func (q *queue) Submit(buffers []hal.CommandBuffer, waits, signals []hal.Semaphore, fence hal.Fence) error {
	sub := Submission{
		Queue:   q.kind,
		Waits:   append([]hal.Semaphore(nil), waits...),
		Signals: append([]hal.Semaphore(nil), signals...),
	}
	for _, cb := range buffers {
		sub.Ops = append(sub.Ops, cb.(*commandBuffer).ops...)
	}

	q.dev.mu.Lock()
	q.dev.submissions = append(q.dev.submissions, sub)
	q.dev.mu.Unlock()

	if fence != nil {
		f := fence.(*Fence)
		f.mu.Lock()
		f.signaled = true
		f.mu.Unlock()
	}
	return nil
}

// Allocator serves device memory from a budget counter.
type Allocator struct {
	dev    *Device
	budget uint64

	mu    sync.Mutex
	inUse uint64
}

// Memory is a simulated allocation.
type Memory struct {
	Size  uint64
	Class hal.MemoryClass
}

func (a *Allocator) Allocate(size, alignment uint64, class hal.MemoryClass) (hal.Memory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.budget > 0 && a.inUse+size > a.budget {
		return nil, fmt.Errorf("sim: %d bytes requested, %d of %d in use: %w",
			size, a.inUse, a.budget, hal.ErrOutOfDeviceMemory)
	}
	a.inUse += size
	return &Memory{Size: size, Class: class}, nil
}

func (a *Allocator) Free(mem hal.Memory) {
	m := mem.(*Memory)
	a.mu.Lock()
	a.inUse -= m.Size
	a.mu.Unlock()
}

// InUse reports currently allocated bytes.
func (a *Allocator) InUse() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}
