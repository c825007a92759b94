// Package framegraph compiles declarative rendering work into an
// executable, synchronized plan.
//
// # Overview
//
// A caller describes a frame as a set of passes with declared reads and
// writes of logical images and buffers. From that description the
// compiler derives everything an explicit graphics API needs but a
// declarative one omits:
//
//   - a valid execution order respecting data dependencies
//   - lifetime-scoped allocation and aliasing of transient resources
//   - the barriers, layout transitions and queue ownership transfers
//     required for correctness, with redundant synchronization removed
//
// # Usage
//
//	b := framegraph.NewBuilder()
//	gbuf := b.DeclareImage(framegraph.ImageDesc{
//	    Format: gputypes.TextureFormatRGBA8Unorm,
//	    Width:  1920, Height: 1080,
//	    Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
//	})
//	_, err := b.AddPass(framegraph.PassGraphics, []framegraph.Access{
//	    framegraph.WriteColor(gbuf),
//	}, drawGeometry)
//	plan, err := b.Compile(framegraph.DefaultCompileOptions())
//
// Compilation is deterministic: the same declarations always produce an
// identical plan, down to barrier placement and allocation assignment.
// A plan is executed by an Executor bound to a backend selected through
// the backend registry (see the backend and hal packages).
//
// # Architecture
//
//	declarations -> dependency graph -> schedule -> lifetimes -> sync plan
//	                                                                 |
//	caller <- frame results <- executor <- compiled Plan <------------+
//
// All compile-time failures (invalid access, unknown resource, cyclic
// dependency, unschedulable graph, missing queue transfer) are fatal to
// that compile and carry the resource and pass identities needed to fix
// the description. Runtime failures abort only the in-flight frame; the
// plan and registries remain valid for retry.
package framegraph
