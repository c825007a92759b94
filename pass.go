package framegraph

import "github.com/gogpu/framegraph/hal"

// PassID is a handle to a registered pass. IDs are assigned in
// declaration order starting at 0 and serve as the deterministic
// tie-break during scheduling.
type PassID uint32

// PassKind is the capability a pass requires, which selects its queue.
type PassKind uint8

const (
	// PassGraphics runs inside a render pass on the graphics queue.
	PassGraphics PassKind = iota
	// PassCompute dispatches on the compute queue.
	PassCompute
	// PassTransfer copies on the transfer queue.
	PassTransfer
)

var passKindNames = [...]string{
	PassGraphics: "graphics",
	PassCompute:  "compute",
	PassTransfer: "transfer",
}

// String returns the pass kind name.
func (k PassKind) String() string {
	if int(k) < len(passKindNames) {
		return passKindNames[k]
	}
	return "unknown"
}

// queue returns the queue kind a pass of this kind executes on.
func (k PassKind) queue() hal.QueueKind {
	switch k {
	case PassCompute:
		return hal.QueueCompute
	case PassTransfer:
		return hal.QueueTransfer
	default:
		return hal.QueueGraphics
	}
}

// AccessMode is how a pass touches a resource.
type AccessMode uint8

const (
	// AccessRead only reads the resource.
	AccessRead AccessMode = iota
	// AccessWrite overwrites the resource; prior contents are not read.
	AccessWrite
	// AccessReadWrite reads and modifies the resource.
	AccessReadWrite
)

var accessModeNames = [...]string{
	AccessRead:      "read",
	AccessWrite:     "write",
	AccessReadWrite: "read-write",
}

// String returns the access mode name.
func (m AccessMode) String() string {
	if int(m) < len(accessModeNames) {
		return accessModeNames[m]
	}
	return "unknown"
}

// reads/writes report the hazard-relevant halves of the mode.
func (m AccessMode) reads() bool  { return m == AccessRead || m == AccessReadWrite }
func (m AccessMode) writes() bool { return m == AccessWrite || m == AccessReadWrite }

// Access declares one resource use by a pass: the mode, the pipeline
// stage and access mask the use happens at, and (for images) the layout
// the image must be in.
type Access struct {
	Resource ResourceID
	Mode     AccessMode
	Stage    hal.PipelineStage
	Access   hal.Access
	Layout   hal.ImageLayout
}

// Common access declarations. These cover the usual stage/access/layout
// combinations; build an Access literal for anything unusual.

// WriteColor declares a color attachment write.
func WriteColor(r ResourceID) Access {
	return Access{
		Resource: r,
		Mode:     AccessWrite,
		Stage:    hal.StageColorAttachmentOutput,
		Access:   hal.AccessColorAttachmentWrite,
		Layout:   hal.LayoutColorAttachment,
	}
}

// WriteDepth declares a depth attachment write.
func WriteDepth(r ResourceID) Access {
	return Access{
		Resource: r,
		Mode:     AccessWrite,
		Stage:    hal.StageEarlyFragmentTests | hal.StageLateFragmentTests,
		Access:   hal.AccessDepthStencilWrite,
		Layout:   hal.LayoutDepthStencilAttachment,
	}
}

// SampleTexture declares a fragment-shader sampled read.
func SampleTexture(r ResourceID) Access {
	return Access{
		Resource: r,
		Mode:     AccessRead,
		Stage:    hal.StageFragmentShader,
		Access:   hal.AccessShaderRead,
		Layout:   hal.LayoutShaderReadOnly,
	}
}

// ReadUniform declares a uniform buffer read visible to all shader
// stages of the pass.
func ReadUniform(r ResourceID) Access {
	return Access{
		Resource: r,
		Mode:     AccessRead,
		Stage:    hal.StageVertexShader | hal.StageFragmentShader,
		Access:   hal.AccessUniformRead,
	}
}

// ReadStorage declares a compute-shader storage read.
func ReadStorage(r ResourceID) Access {
	return Access{
		Resource: r,
		Mode:     AccessRead,
		Stage:    hal.StageComputeShader,
		Access:   hal.AccessShaderRead,
		Layout:   hal.LayoutGeneral,
	}
}

// WriteStorage declares a compute-shader storage write.
func WriteStorage(r ResourceID) Access {
	return Access{
		Resource: r,
		Mode:     AccessWrite,
		Stage:    hal.StageComputeShader,
		Access:   hal.AccessShaderWrite,
		Layout:   hal.LayoutGeneral,
	}
}

// TransferSrc declares a copy source read.
func TransferSrc(r ResourceID) Access {
	return Access{
		Resource: r,
		Mode:     AccessRead,
		Stage:    hal.StageTransfer,
		Access:   hal.AccessTransferRead,
		Layout:   hal.LayoutTransferSrc,
	}
}

// TransferDst declares a copy destination write.
func TransferDst(r ResourceID) Access {
	return Access{
		Resource: r,
		Mode:     AccessWrite,
		Stage:    hal.StageTransfer,
		Access:   hal.AccessTransferWrite,
		Layout:   hal.LayoutTransferDst,
	}
}

// PassFunc records a pass's GPU work. It receives the bound physical
// resources and the queue's command encoder through the PassContext.
// Returning an error aborts the remainder of the frame.
type PassFunc func(pc *PassContext) error

// pass is one row of the pass registry. Immutable after Compile starts.
type pass struct {
	id       PassID
	name     string
	kind     PassKind
	accesses []Access
	fn       PassFunc
}

func (p *pass) label() string {
	if p.name != "" {
		return p.name
	}
	return passKindNames[p.kind]
}

// colorAttachmentCount counts distinct color attachment writes, checked
// against the backend attachment limit during grouping.
func (p *pass) colorAttachmentCount() int {
	n := 0
	for _, a := range p.accesses {
		if a.Layout == hal.LayoutColorAttachment && a.Mode.writes() {
			n++
		}
	}
	return n
}
