package hal

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestQueueKindString(t *testing.T) {
	tests := []struct {
		kind QueueKind
		want string
	}{
		{QueueGraphics, "graphics"},
		{QueueCompute, "compute"},
		{QueueTransfer, "transfer"},
		{QueueKind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("QueueKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPipelineStageString(t *testing.T) {
	tests := []struct {
		stage PipelineStage
		want  string
	}{
		{0, "none"},
		{StageTopOfPipe, "top-of-pipe"},
		{StageColorAttachmentOutput, "color-attachment-output"},
		{StageVertexShader | StageFragmentShader, "vertex-shader|fragment-shader"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("stage %b String() = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestAccessIsWrite(t *testing.T) {
	tests := []struct {
		access Access
		want   bool
	}{
		{AccessShaderRead, false},
		{AccessUniformRead | AccessIndexRead, false},
		{AccessShaderWrite, true},
		{AccessColorAttachmentWrite, true},
		{AccessDepthStencilWrite, true},
		{AccessTransferWrite, true},
		{AccessShaderRead | AccessTransferWrite, true},
		{0, false},
	}
	for _, tt := range tests {
		if got := tt.access.IsWrite(); got != tt.want {
			t.Errorf("Access(%v).IsWrite() = %v, want %v", tt.access, got, tt.want)
		}
	}
}

func TestImageLayoutString(t *testing.T) {
	if got := LayoutColorAttachment.String(); got != "color-attachment" {
		t.Errorf("LayoutColorAttachment.String() = %q", got)
	}
	if got := LayoutUndefined.String(); got != "undefined" {
		t.Errorf("LayoutUndefined.String() = %q", got)
	}
}

func TestFormatBytesPerTexel(t *testing.T) {
	tests := []struct {
		format TextureFormat
		want   uint64
	}{
		{gputypes.TextureFormatR8Unorm, 1},
		{gputypes.TextureFormatRGBA8Unorm, 4},
		{gputypes.TextureFormatBGRA8Unorm, 4},
		{gputypes.TextureFormatDepth24PlusStencil8, 4},
	}
	for _, tt := range tests {
		if got := FormatBytesPerTexel(tt.format); got != tt.want {
			t.Errorf("FormatBytesPerTexel(%v) = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()
	if l.MaxColorAttachments != 8 {
		t.Errorf("MaxColorAttachments = %d, want 8", l.MaxColorAttachments)
	}
	if l.UnifiedQueue {
		t.Error("default limits report a unified queue")
	}
}
