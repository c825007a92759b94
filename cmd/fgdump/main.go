// Command fgdump compiles a demo frame graph and prints the resulting
// plan: pass schedule, subpass groups, barriers and aliased
// allocations. With -run it also executes the plan on the simulated
// backend and prints the recorded command stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/sim"
	"github.com/gogpu/framegraph/hal"
)

func main() {
	var (
		graph   = flag.String("graph", "deferred", "demo graph: deferred or async")
		width   = flag.Uint("width", 1920, "render target width")
		height  = flag.Uint("height", 1080, "render target height")
		run     = flag.Bool("run", false, "execute the plan on the simulated backend")
		unified = flag.Bool("unified", false, "compile for a single-queue backend")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	b := framegraph.NewBuilder()
	switch *graph {
	case "deferred":
		declareDeferred(b, uint32(*width), uint32(*height))
	case "async":
		declareAsync(b, uint32(*width), uint32(*height))
	default:
		log.Fatalf("unknown graph %q", *graph)
	}

	limits := hal.DefaultLimits()
	limits.UnifiedQueue = *unified
	plan, err := b.Compile(framegraph.CompileOptions{Limits: limits})
	if err != nil {
		log.Fatalf("compile: %v", err)
	}
	fmt.Print(plan.String())

	if !*run {
		return
	}

	dev := sim.NewDevice(sim.Options{Unified: *unified})
	exec := framegraph.NewExecutor(dev, dev.Allocator())
	if err := exec.Execute(context.Background(), plan); err != nil {
		log.Fatalf("execute: %v", err)
	}

	fmt.Println()
	for i, sub := range dev.Submissions() {
		fmt.Printf("submit %d [%s] waits=%d signals=%d\n", i, sub.Queue, len(sub.Waits), len(sub.Signals))
		for _, op := range sub.Ops {
			fmt.Printf("  %s", op.Kind)
			if op.Label != "" {
				fmt.Printf(" %q", op.Label)
			}
			if op.Kind == sim.OpBarrier || op.Kind == sim.OpRelease || op.Kind == sim.OpAcquire {
				fmt.Printf(" %s -> %s", op.Barrier.OldLayout, op.Barrier.NewLayout)
			}
			fmt.Println()
		}
	}
}

func attachment(label string, w, h uint32) framegraph.ImageDesc {
	return framegraph.ImageDesc{
		Label:  label,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Width:  w,
		Height: h,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
		Load:   hal.LoadOpClear,
	}
}

// declareDeferred builds a classic deferred pipeline: G-buffer fill,
// lighting, then tonemap.
func declareDeferred(b *framegraph.Builder, w, h uint32) {
	albedo := b.DeclareImage(attachment("albedo", w, h))
	normal := b.DeclareImage(attachment("normal", w, h))
	depth := b.DeclareImage(framegraph.ImageDesc{
		Label:  "depth",
		Format: gputypes.TextureFormatDepth24PlusStencil8,
		Width:  w,
		Height: h,
		Usage:  gputypes.TextureUsageRenderAttachment,
		Load:   hal.LoadOpClear,
	})
	lit := b.DeclareImage(attachment("lit", w, h))
	final := b.DeclareImage(attachment("final", w, h))

	addPass(b, "gbuffer", framegraph.PassGraphics, []framegraph.Access{
		framegraph.WriteColor(albedo),
		framegraph.WriteColor(normal),
		framegraph.WriteDepth(depth),
	})
	addPass(b, "lighting", framegraph.PassGraphics, []framegraph.Access{
		framegraph.SampleTexture(albedo),
		framegraph.SampleTexture(normal),
		framegraph.WriteColor(lit),
	})
	addPass(b, "tonemap", framegraph.PassGraphics, []framegraph.Access{
		framegraph.SampleTexture(lit),
		framegraph.WriteColor(final),
	})
}

// declareAsync adds a compute pass feeding the graphics queue, which
// forces a queue ownership transfer on multi-queue backends.
func declareAsync(b *framegraph.Builder, w, h uint32) {
	particles := b.DeclareBuffer(framegraph.BufferDesc{
		Label: "particles",
		Size:  1 << 20,
		Usage: gputypes.BufferUsageStorage,
	})
	final := b.DeclareImage(attachment("final", w, h))

	addPass(b, "simulate", framegraph.PassCompute, []framegraph.Access{
		framegraph.WriteStorage(particles),
	})
	addPass(b, "draw", framegraph.PassGraphics, []framegraph.Access{
		framegraph.ReadStorage(particles),
		framegraph.WriteColor(final),
	})
}

func addPass(b *framegraph.Builder, name string, kind framegraph.PassKind, accesses []framegraph.Access) {
	_, err := b.AddNamedPass(name, kind, accesses, func(*framegraph.PassContext) error { return nil })
	if err != nil {
		log.Fatalf("declare %s: %v", name, err)
	}
}
