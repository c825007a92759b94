package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/hal"
)

// ResourceID is a handle to a logical resource declared on a Builder.
// IDs are assigned in declaration order starting at 0.
type ResourceID uint32

// ResourceKind distinguishes images from buffers.
type ResourceKind uint8

const (
	// ResourceImage is a 2D image (texture or attachment).
	ResourceImage ResourceKind = iota
	// ResourceBuffer is a linear buffer.
	ResourceBuffer
)

var resourceKindNames = [...]string{
	ResourceImage:  "image",
	ResourceBuffer: "buffer",
}

// String returns the resource kind name.
func (k ResourceKind) String() string {
	if int(k) < len(resourceKindNames) {
		return resourceKindNames[k]
	}
	return "unknown"
}

// ImageDesc declares a transient image. No GPU allocation happens at
// declaration; the lifetime analyzer may alias its memory with other
// transient resources whose lifetimes do not overlap.
type ImageDesc struct {
	// Label is an optional debug name.
	Label string

	Format hal.TextureFormat
	Width  uint32
	Height uint32
	Usage  hal.TextureUsage

	// Memory selects the memory class; the zero value is device-local.
	Memory hal.MemoryClass

	// Load selects what happens at the image's first attachment use in
	// the schedule. The zero value loads existing contents.
	Load hal.LoadOp

	// Clear color applied when Load is LoadOpClear.
	ClearR, ClearG, ClearB, ClearA float64
}

// BufferDesc declares a transient buffer.
type BufferDesc struct {
	// Label is an optional debug name.
	Label string

	Size  uint64
	Usage hal.BufferUsage

	// Memory selects the memory class; the zero value is device-local.
	Memory hal.MemoryClass
}

// ImportedImage declares an externally owned image (typically a
// swapchain backbuffer). Imported resources are never aliased and carry
// fixed layouts at the graph edges.
type ImportedImage struct {
	// Label is an optional debug name.
	Label string

	Image  hal.Image
	Format hal.TextureFormat
	Width  uint32
	Height uint32

	// InitialLayout is the layout the image is in when the frame
	// starts; the planner emits a transition to the first use.
	InitialLayout hal.ImageLayout

	// FinalLayout is the layout the image must be left in after its
	// last use (LayoutPresent for backbuffers).
	FinalLayout hal.ImageLayout
}

// resource is one row of the logical resource table. Immutable after
// Compile starts.
type resource struct {
	id       ResourceID
	kind     ResourceKind
	image    ImageDesc
	buffer   BufferDesc
	imported *ImportedImage

	// accesses lists every (pass, access index) touching this
	// resource, in pass declaration order. Filled by AddPass.
	accesses []accessRef
}

// accessRef points into a pass's access list.
type accessRef struct {
	pass   PassID
	access int
}

func (r *resource) label() string {
	switch {
	case r.imported != nil && r.imported.Label != "":
		return r.imported.Label
	case r.kind == ResourceImage && r.image.Label != "":
		return r.image.Label
	case r.kind == ResourceBuffer && r.buffer.Label != "":
		return r.buffer.Label
	}
	return fmt.Sprintf("%s-%d", r.kind, r.id)
}

// byteSize estimates the backing size used for aliasing decisions. The
// backend's reported requirements take precedence at execution time.
func (r *resource) byteSize() uint64 {
	if r.kind == ResourceBuffer {
		return r.buffer.Size
	}
	d := r.image
	return uint64(d.Width) * uint64(d.Height) * hal.FormatBytesPerTexel(d.Format)
}

// memoryClass returns the declared memory class.
func (r *resource) memoryClass() hal.MemoryClass {
	if r.kind == ResourceBuffer {
		return r.buffer.Memory
	}
	return r.image.Memory
}

// transient reports whether the resource is graph-owned and may be
// aliased.
func (r *resource) transient() bool { return r.imported == nil }
