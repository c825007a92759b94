package framegraph

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/hal"
)

func nopPass(*PassContext) error { return nil }

func testImage(label string) ImageDesc {
	return ImageDesc{
		Label:  label,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Width:  64,
		Height: 64,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
		Load:   hal.LoadOpClear,
	}
}

func testBuffer(label string, size uint64) BufferDesc {
	return BufferDesc{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageStorage,
	}
}

func TestBuilderDeclare(t *testing.T) {
	b := NewBuilder()

	img := b.DeclareImage(testImage("color"))
	buf := b.DeclareBuffer(testBuffer("readback", 1024))

	if img == buf {
		t.Error("distinct declarations share an id")
	}
	if b.ResourceCount() != 2 {
		t.Errorf("ResourceCount = %d, want 2", b.ResourceCount())
	}
	if b.PassCount() != 0 {
		t.Errorf("PassCount = %d, want 0", b.PassCount())
	}
}

func TestBuilderAddPass(t *testing.T) {
	b := NewBuilder()
	img := b.DeclareImage(testImage("color"))

	p0, err := b.AddNamedPass("draw", PassGraphics, []Access{WriteColor(img)}, nopPass)
	if err != nil {
		t.Fatalf("AddNamedPass: %v", err)
	}
	p1, err := b.AddNamedPass("post", PassGraphics, []Access{SampleTexture(img)}, nopPass)
	if err != nil {
		t.Fatalf("AddNamedPass: %v", err)
	}

	if p0 != 0 || p1 != 1 {
		t.Errorf("pass ids = %d, %d, want declaration order 0, 1", p0, p1)
	}
}

func TestBuilderUnknownResource(t *testing.T) {
	b := NewBuilder()

	_, err := b.AddPass(PassGraphics, []Access{WriteColor(ResourceID(42))}, nopPass)
	if !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("err = %v, want ErrUnknownResource", err)
	}

	var ue *UnknownResourceError
	if !errors.As(err, &ue) {
		t.Fatalf("err %T is not *UnknownResourceError", err)
	}
	if ue.Resource != 42 {
		t.Errorf("Resource = %d, want 42", ue.Resource)
	}
	if b.PassCount() != 0 {
		t.Error("failed AddPass mutated the registry")
	}
}

func TestBuilderConflictingAccess(t *testing.T) {
	b := NewBuilder()
	img := b.DeclareImage(testImage("color"))

	_, err := b.AddPass(PassGraphics, []Access{
		WriteColor(img),
		SampleTexture(img),
	}, nopPass)
	if !errors.Is(err, ErrInvalidAccess) {
		t.Fatalf("err = %v, want ErrInvalidAccess", err)
	}
	if b.PassCount() != 0 {
		t.Error("failed AddPass mutated the registry")
	}
}

func TestBuilderDuplicateReadsAllowed(t *testing.T) {
	b := NewBuilder()
	buf := b.DeclareBuffer(testBuffer("params", 256))

	_, err := b.AddPass(PassCompute, []Access{
		ReadUniform(buf),
		ReadStorage(buf),
	}, nopPass)
	if err != nil {
		t.Fatalf("two reads of one resource rejected: %v", err)
	}
}

func TestBuilderImportImage(t *testing.T) {
	b := NewBuilder()
	id := b.ImportImage(ImportedImage{
		Label:         "backbuffer",
		Image:         struct{}{},
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Width:         800,
		Height:        600,
		InitialLayout: hal.LayoutUndefined,
		FinalLayout:   hal.LayoutPresent,
	})

	if b.resources[id].transient() {
		t.Error("imported image reported transient")
	}
}
