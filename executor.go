// Copyright 2026 The gogpu Authors. All rights reserved.
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/framegraph/hal"
)

// FrameState tracks a frame through the executor. Transitions are
// strictly forward: Compiled, Allocating, Recording, Submitted,
// Retired.
type FrameState uint32

const (
	FrameCompiled FrameState = iota
	FrameAllocating
	FrameRecording
	FrameSubmitted
	FrameRetired
)

var frameStateNames = [...]string{
	FrameCompiled:   "Compiled",
	FrameAllocating: "Allocating",
	FrameRecording:  "Recording",
	FrameSubmitted:  "Submitted",
	FrameRetired:    "Retired",
}

func (s FrameState) String() string {
	if int(s) < len(frameStateNames) {
		return frameStateNames[s]
	}
	return fmt.Sprintf("FrameState(%d)", uint32(s))
}

// Executor runs compiled plans on a device. It owns the epoch counter
// that gates destruction of per-frame resources behind fence
// completion.
//
// An Executor is safe for concurrent use, but frames of the same plan
// must not overlap unless the caller externally synchronizes imported
// resources.
type Executor struct {
	device hal.Device
	alloc  hal.Allocator
	epochs epochs
}

// NewExecutor binds an executor to a device and an allocator.
func NewExecutor(device hal.Device, alloc hal.Allocator) *Executor {
	return &Executor{device: device, alloc: alloc}
}

// Drain runs every frame teardown still gated on an unobserved epoch.
// A cancelled fence wait leaves its frame's resources queued here; call
// Drain once the device is idle, typically at shutdown.
func (e *Executor) Drain() {
	e.epochs.drain()
}

// Frame is one execution of a plan: its transient resources, command
// buffers, and completion fences.
type Frame struct {
	exec *Executor
	plan *Plan

	state atomic.Uint32
	epoch Epoch

	memory     []hal.Memory // per allocation
	images     []hal.Image  // per resource, nil for buffers
	buffers    []hal.Buffer // per resource, nil for images
	semaphores []hal.Semaphore

	// Per-group recorded command buffers and their submit lists.
	recorded []hal.CommandBuffer
	waits    [][]hal.Semaphore
	signals  [][]hal.Semaphore

	fences [hal.NumQueueKinds]hal.Fence
}

// State returns the frame's current state.
func (f *Frame) State() FrameState {
	return FrameState(f.state.Load())
}

func (f *Frame) setState(s FrameState) {
	f.state.Store(uint32(s))
	Logger().Debug("framegraph: frame state", "state", s)
}

// Execute runs a plan to completion: allocate transient resources,
// record and submit command buffers, wait for the fences, and retire.
// The context bounds the fence wait.
//
// On any failure the frame is torn down and the error is returned;
// pass callback failures are wrapped in PassExecutionError.
func (e *Executor) Execute(ctx context.Context, plan *Plan) error {
	_, err := e.ExecuteFrame(ctx, plan)
	return err
}

// ExecuteFrame is Execute but returns the frame, letting the caller
// inspect its state after the run.
func (e *Executor) ExecuteFrame(ctx context.Context, plan *Plan) (*Frame, error) {
	f := &Frame{exec: e, plan: plan}
	f.setState(FrameCompiled)

	if err := f.allocate(); err != nil {
		f.destroyNow()
		return f, err
	}
	if err := f.record(); err != nil {
		f.destroyNow()
		return f, err
	}
	if err := f.submit(); err != nil {
		f.destroyNow()
		return f, err
	}
	return f, f.wait(ctx)
}

// allocate creates transient images and buffers and binds aliased
// groups of them to shared memory blocks. A device out-of-memory
// frees everything created so far before returning.
func (f *Frame) allocate() error {
	f.setState(FrameAllocating)

	plan, dev := f.plan, f.exec.device
	f.images = make([]hal.Image, len(plan.resources))
	f.buffers = make([]hal.Buffer, len(plan.resources))
	f.memory = make([]hal.Memory, len(plan.Allocations))

	for id := range plan.resources {
		res := &plan.resources[id]
		if res.imported != nil {
			f.images[id] = res.imported.Image
		}
	}

	for ai := range plan.Allocations {
		a := &plan.Allocations[ai]

		var size, align uint64
		for _, rid := range a.Occupants {
			res := &plan.resources[rid]
			var req hal.MemoryRequirements
			switch res.kind {
			case ResourceImage:
				img, err := dev.CreateImage(&hal.ImageDescriptor{
					Label:  res.image.Label,
					Size:   hal.Extent3D{Width: res.image.Width, Height: res.image.Height, Depth: 1},
					Format: res.image.Format,
					Usage:  res.image.Usage,
				})
				if err != nil {
					return fmt.Errorf("framegraph: create image %q: %w", res.label(), err)
				}
				f.images[rid] = img
				req = dev.ImageMemoryRequirements(img)
			case ResourceBuffer:
				buf, err := dev.CreateBuffer(&hal.BufferDescriptor{
					Label: res.buffer.Label,
					Size:  res.buffer.Size,
					Usage: res.buffer.Usage,
				})
				if err != nil {
					return fmt.Errorf("framegraph: create buffer %q: %w", res.label(), err)
				}
				f.buffers[rid] = buf
				req = dev.BufferMemoryRequirements(buf)
			}
			size = max(size, req.Size)
			align = max(align, req.Alignment)
		}

		mem, err := f.exec.alloc.Allocate(size, align, a.Class)
		if err != nil {
			return fmt.Errorf("framegraph: allocation %d (%d bytes): %w", ai, size, err)
		}
		f.memory[ai] = mem

		// Aliased occupants all bind at offset 0; their lifetimes are
		// disjoint by construction.
		for _, rid := range a.Occupants {
			res := &plan.resources[rid]
			switch res.kind {
			case ResourceImage:
				if err := dev.BindImageMemory(f.images[rid], mem, 0); err != nil {
					return fmt.Errorf("framegraph: bind image %q: %w", res.label(), err)
				}
			case ResourceBuffer:
				if err := dev.BindBufferMemory(f.buffers[rid], mem, 0); err != nil {
					return fmt.Errorf("framegraph: bind buffer %q: %w", res.label(), err)
				}
			}
		}
	}

	f.semaphores = make([]hal.Semaphore, plan.SemaphoreCount)
	for i := range f.semaphores {
		sem, err := dev.CreateSemaphore()
		if err != nil {
			return fmt.Errorf("framegraph: create semaphore: %w", err)
		}
		f.semaphores[i] = sem
	}
	return nil
}

// record encodes one command buffer per group. Queues record
// concurrently; within a queue, groups record in schedule order so
// callbacks observe a deterministic sequence.
func (f *Frame) record() error {
	f.setState(FrameRecording)

	plan := f.plan
	f.recorded = make([]hal.CommandBuffer, len(plan.Groups))
	f.waits = make([][]hal.Semaphore, len(plan.Groups))
	f.signals = make([][]hal.Semaphore, len(plan.Groups))

	// Sync points bucketed by the group whose buffer carries them.
	pre := make([][]int, len(plan.Groups))  // barriers and acquires before the group
	post := make([][]int, len(plan.Groups)) // releases and exit transitions after it
	for si := range plan.Syncs {
		sp := &plan.Syncs[si]
		switch {
		case sp.Transfer && sp.Release:
			post[sp.SrcGroup] = append(post[sp.SrcGroup], si)
		case sp.DstGroup == len(plan.Groups):
			post[sp.SrcGroup] = append(post[sp.SrcGroup], si)
		default:
			pre[sp.DstGroup] = append(pre[sp.DstGroup], si)
		}
	}

	var perQueue [hal.NumQueueKinds][]int
	for gi := range plan.Groups {
		q := plan.Groups[gi].Queue
		perQueue[q] = append(perQueue[q], gi)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for q := range perQueue {
		groups := perQueue[q]
		if len(groups) == 0 {
			continue
		}
		wg.Add(1)
		go func(groups []int) {
			defer wg.Done()
			for _, gi := range groups {
				if err := f.recordGroup(gi, pre[gi], post[gi]); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
			}
		}(groups)
	}
	wg.Wait()
	return firstErr
}

func (f *Frame) recordGroup(gi int, pre, post []int) error {
	plan, dev := f.plan, f.exec.device
	group := &plan.Groups[gi]

	enc, err := dev.CreateCommandEncoder(group.Queue)
	if err != nil {
		return fmt.Errorf("framegraph: create encoder: %w", err)
	}
	label := fmt.Sprintf("group-%d", gi)
	if err := enc.Begin(label); err != nil {
		return fmt.Errorf("framegraph: begin %s: %w", label, err)
	}

	for _, si := range pre {
		sp := &plan.Syncs[si]
		for _, b := range f.barriers(sp) {
			if sp.Transfer {
				enc.AcquireOwnership(&b)
			} else {
				enc.PipelineBarrier(&b)
			}
		}
		if sp.Transfer && sp.Semaphore >= 0 {
			f.waits[gi] = append(f.waits[gi], f.semaphores[sp.Semaphore])
		}
	}

	graphics := len(group.Colors) > 0 || group.Depth >= 0
	if graphics {
		enc.BeginRenderPass(f.renderPassDescriptor(gi))
	}
	for _, pid := range group.Passes {
		p := &plan.passes[pid]
		if p.fn == nil {
			continue
		}
		pc := &PassContext{frame: f, pass: p, enc: enc}
		if err := p.fn(pc); err != nil {
			return &PassExecutionError{Pass: pid, Name: p.name, Err: err}
		}
	}
	if graphics {
		enc.EndRenderPass()
	}

	for _, si := range post {
		sp := &plan.Syncs[si]
		for _, b := range f.barriers(sp) {
			if sp.Transfer {
				enc.ReleaseOwnership(&b)
			} else {
				enc.PipelineBarrier(&b)
			}
		}
		if sp.Transfer && sp.Semaphore >= 0 {
			f.signals[gi] = append(f.signals[gi], f.semaphores[sp.Semaphore])
		}
	}

	cb, err := enc.End()
	if err != nil {
		return fmt.Errorf("framegraph: end %s: %w", label, err)
	}
	f.recorded[gi] = cb
	return nil
}

// barriers expands a sync point into hal barriers: one per layout
// transition, or a single memory-only barrier when there is none.
func (f *Frame) barriers(sp *SyncPoint) []hal.Barrier {
	base := hal.Barrier{
		SrcStage:  sp.SrcStage,
		DstStage:  sp.DstStage,
		SrcAccess: sp.SrcAccess,
		DstAccess: sp.DstAccess,
	}
	if sp.Transfer {
		base.SrcQueue = sp.SrcQueue
		base.DstQueue = sp.DstQueue
	}
	if len(sp.Transitions) == 0 {
		return []hal.Barrier{base}
	}
	out := make([]hal.Barrier, 0, len(sp.Transitions))
	for _, t := range sp.Transitions {
		b := base
		b.Image = f.images[t.Resource]
		b.OldLayout = t.Old
		b.NewLayout = t.New
		out = append(out, b)
	}
	return out
}

func (f *Frame) renderPassDescriptor(gi int) *hal.RenderPassDescriptor {
	plan := f.plan
	group := &plan.Groups[gi]

	desc := &hal.RenderPassDescriptor{Label: fmt.Sprintf("group-%d", gi)}
	for _, rid := range group.Colors {
		res := &plan.resources[rid]
		att := hal.ColorAttachment{Image: f.images[rid], Load: hal.LoadOpLoad}
		if res.transient() && f.firstUseGroup(rid) == gi {
			att.Load = res.image.Load
			att.ClearR = res.image.ClearR
			att.ClearG = res.image.ClearG
			att.ClearB = res.image.ClearB
			att.ClearA = res.image.ClearA
		}
		desc.Colors = append(desc.Colors, att)
	}
	if group.Depth >= 0 {
		rid := ResourceID(group.Depth)
		res := &plan.resources[rid]
		att := &hal.DepthStencilAttachment{Image: f.images[rid], Load: hal.LoadOpLoad}
		if res.transient() && f.firstUseGroup(rid) == gi {
			att.Load = res.image.Load
			att.ClearDepth = res.image.ClearR
		}
		desc.DepthStencil = att
	}
	return desc
}

// firstUseGroup returns the group containing the resource's first
// scheduled access, or -1 if unused.
func (f *Frame) firstUseGroup(rid ResourceID) int {
	lt := f.plan.Lifetimes[rid]
	if lt.Last < lt.First {
		return -1
	}
	return f.plan.groupOf[f.plan.Order[lt.First]]
}

// submit hands each group's command buffer to its queue in schedule
// order, with the cross-queue semaphores collected during recording.
// The last submission on each queue carries the frame fence for that
// queue.
func (f *Frame) submit() error {
	plan, dev := f.plan, f.exec.device

	var lastOnQueue [hal.NumQueueKinds]int
	for q := range lastOnQueue {
		lastOnQueue[q] = -1
	}
	for gi := range plan.Groups {
		lastOnQueue[plan.Groups[gi].Queue] = gi
	}

	f.epoch = f.exec.epochs.next()

	for gi := range plan.Groups {
		q := plan.Groups[gi].Queue
		var fence hal.Fence
		if lastOnQueue[q] == gi {
			fc, err := dev.CreateFence()
			if err != nil {
				return fmt.Errorf("framegraph: create fence: %w", err)
			}
			f.fences[q] = fc
			fence = fc
		}
		err := dev.Queue(q).Submit(
			[]hal.CommandBuffer{f.recorded[gi]},
			f.waits[gi], f.signals[gi], fence)
		if err != nil {
			return fmt.Errorf("framegraph: submit group %d: %w", gi, err)
		}
	}

	f.setState(FrameSubmitted)

	// Destruction waits for this frame's epoch.
	f.exec.epochs.retire(f.epoch, f.destroyNow)
	return nil
}

// wait blocks until every queue fence signals, then retires the frame.
func (f *Frame) wait(ctx context.Context) error {
	dev := f.exec.device
	for q := range f.fences {
		fence := f.fences[q]
		if fence == nil {
			continue
		}
		if err := waitFence(ctx, dev, fence); err != nil {
			return err
		}
	}
	f.setState(FrameRetired)
	f.exec.epochs.complete(f.epoch)
	return nil
}

const fenceWaitSlice = 50 * time.Millisecond

func waitFence(ctx context.Context, dev hal.Device, fence hal.Fence) error {
	for {
		ok, err := dev.WaitFence(fence, uint64(fenceWaitSlice.Nanoseconds()))
		if err != nil {
			return fmt.Errorf("framegraph: wait fence: %w", err)
		}
		if ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// destroyNow tears down everything the frame created. Called directly
// on pre-submit failure, or via the epoch queue after the fences
// signal.
func (f *Frame) destroyNow() {
	dev := f.exec.device
	for id := range f.images {
		if f.images[id] != nil && f.plan.resources[id].transient() {
			dev.DestroyImage(f.images[id])
		}
	}
	for id := range f.buffers {
		if f.buffers[id] != nil {
			dev.DestroyBuffer(f.buffers[id])
		}
	}
	for _, mem := range f.memory {
		if mem != nil {
			f.exec.alloc.Free(mem)
		}
	}
	for _, cb := range f.recorded {
		if cb != nil {
			dev.FreeCommandBuffer(cb)
		}
	}
	for _, sem := range f.semaphores {
		if sem != nil {
			dev.DestroySemaphore(sem)
		}
	}
	for _, fence := range f.fences {
		if fence != nil {
			dev.DestroyFence(fence)
		}
	}
}

// PassContext is handed to pass callbacks during recording. It exposes
// the group's command encoder and the physical resources behind the
// pass's declared accesses.
type PassContext struct {
	frame *Frame
	pass  *pass
	enc   hal.CommandEncoder
}

// Encoder returns the command encoder the pass records into. For
// graphics passes a render pass is already open on it.
func (pc *PassContext) Encoder() hal.CommandEncoder { return pc.enc }

// Image resolves a declared image to its physical handle.
func (pc *PassContext) Image(id ResourceID) hal.Image { return pc.frame.images[id] }

// Buffer resolves a declared buffer to its physical handle.
func (pc *PassContext) Buffer(id ResourceID) hal.Buffer { return pc.frame.buffers[id] }

// Pass returns the executing pass's id.
func (pc *PassContext) Pass() PassID { return pc.pass.id }

// Name returns the executing pass's label.
func (pc *PassContext) Name() string { return pc.pass.label() }
