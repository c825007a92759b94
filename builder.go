package framegraph

// Builder accumulates resource declarations and pass registrations, then
// compiles them into a Plan. It is the explicit mutable context of the
// build phase; Compile reads it without modifying it, so a builder can
// be compiled repeatedly (against different limits, or after further
// declarations).
//
// Builder is not safe for concurrent use.
type Builder struct {
	resources []resource
	passes    []pass
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// DeclareImage declares a transient image and returns its handle.
func (b *Builder) DeclareImage(desc ImageDesc) ResourceID {
	id := ResourceID(len(b.resources))
	b.resources = append(b.resources, resource{
		id:    id,
		kind:  ResourceImage,
		image: desc,
	})
	return id
}

// DeclareBuffer declares a transient buffer and returns its handle.
func (b *Builder) DeclareBuffer(desc BufferDesc) ResourceID {
	id := ResourceID(len(b.resources))
	b.resources = append(b.resources, resource{
		id:     id,
		kind:   ResourceBuffer,
		buffer: desc,
	})
	return id
}

// ImportImage declares an externally owned image. The executor binds the
// provided handle directly; the image is excluded from aliasing and the
// planner honors its initial and final layouts.
func (b *Builder) ImportImage(desc ImportedImage) ResourceID {
	id := ResourceID(len(b.resources))
	imp := desc
	b.resources = append(b.resources, resource{
		id:       id,
		kind:     ResourceImage,
		imported: &imp,
	})
	return id
}

// AddPass registers a pass with its declared resource accesses and
// execution callback. Pass IDs are assigned in declaration order.
//
// Fails with ErrUnknownResource if an access references an undeclared
// resource, or ErrInvalidAccess if the pass declares conflicting access
// modes to the same resource (declare a single AccessReadWrite instead).
func (b *Builder) AddPass(kind PassKind, accesses []Access, fn PassFunc) (PassID, error) {
	return b.AddNamedPass("", kind, accesses, fn)
}

// AddNamedPass is AddPass with a debug name used in plan dumps and
// execution errors.
func (b *Builder) AddNamedPass(name string, kind PassKind, accesses []Access, fn PassFunc) (PassID, error) {
	id := PassID(len(b.passes))

	seen := make(map[ResourceID]AccessMode, len(accesses))
	for _, a := range accesses {
		if int(a.Resource) >= len(b.resources) {
			return 0, &UnknownResourceError{Pass: id, Resource: a.Resource}
		}
		if prev, ok := seen[a.Resource]; ok {
			// Two declarations for one resource conflict unless both
			// are plain reads.
			if prev != AccessRead || a.Mode != AccessRead {
				return 0, &InvalidAccessError{Pass: id, Resource: a.Resource}
			}
			continue
		}
		seen[a.Resource] = a.Mode
	}

	p := pass{
		id:       id,
		name:     name,
		kind:     kind,
		accesses: append([]Access(nil), accesses...),
		fn:       fn,
	}
	b.passes = append(b.passes, p)

	for i, a := range p.accesses {
		res := &b.resources[a.Resource]
		res.accesses = append(res.accesses, accessRef{pass: id, access: i})
	}

	return id, nil
}

// PassCount returns the number of registered passes.
func (b *Builder) PassCount() int { return len(b.passes) }

// ResourceCount returns the number of declared resources.
func (b *Builder) ResourceCount() int { return len(b.resources) }
