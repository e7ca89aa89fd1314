// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/liveview/gpucore"
)

// Target renders the quad of one pipeline variant to the surface of a
// Context. It implements gpucore.Target.
//
// Target is not safe for concurrent use; liveview.Engine serializes every
// call under its state lock. No method waits for the GPU.
type Target struct {
	ctx     *Context
	desc    PipelineDescriptor
	res     *resources
	texSize gpucore.Size
}

var _ gpucore.Target = (*Target)(nil)

// NewTarget builds the pipeline described by desc on ctx, with a frame
// texture of exactly texSize.
func NewTarget(ctx *Context, desc PipelineDescriptor, texSize gpucore.Size) (*Target, error) {
	if ctx == nil || ctx.device == nil {
		return nil, ErrReleased
	}
	res, err := buildResources(ctx.device, ctx.queue, desc, ctx.config.Format, texSize)
	if err != nil {
		return nil, err
	}

	slogger().Debug("wgpu: render target created",
		"pipeline", desc.Label,
		"texture", texSize.String(),
		"format", ctx.config.Format.String())

	return &Target{
		ctx:     ctx,
		desc:    desc,
		res:     res,
		texSize: texSize,
	}, nil
}

// SetLogger sets the backend logger. liveview.NewEngine calls it with the
// engine's logger.
func (t *Target) SetLogger(l *slog.Logger) { SetLogger(l) }

// Configure reconfigures the surface.
func (t *Target) Configure(cfg gpucore.SurfaceConfig) error {
	if t.res == nil {
		return ErrReleased
	}
	return t.ctx.configure(cfg)
}

// Config returns the current surface configuration.
func (t *Target) Config() gpucore.SurfaceConfig { return t.ctx.config }

// TextureSize returns the frame texture dimensions.
func (t *Target) TextureSize() gpucore.Size { return t.texSize }

// UploadFrame writes img into the frame texture through the queue.
func (t *Target) UploadFrame(img *gpucore.Image) error {
	if t.res == nil {
		return ErrReleased
	}
	if !img.Valid() || img.Size() != t.texSize {
		return fmt.Errorf("%w: image %s, texture %s", ErrInvalidDimensions, img.Size(), t.texSize)
	}
	return t.ctx.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: t.res.texture,
			Aspect:  gputypes.TextureAspectAll,
		},
		img.Pix,
		&wgpu.ImageDataLayout{
			BytesPerRow:  uint32(img.Stride()),
			RowsPerImage: uint32(img.Height),
		},
		&wgpu.Extent3D{
			Width:              uint32(img.Width),
			Height:             uint32(img.Height),
			DepthOrArrayLayers: 1,
		},
	)
}

// WriteThresholds writes the threshold uniform block.
func (t *Target) WriteThresholds(th gpucore.Thresholds) error {
	if t.res == nil {
		return ErrReleased
	}
	return t.ctx.queue.WriteBuffer(t.res.uniform, 0, th.Bytes())
}

// Present acquires the next surface texture, clears it to transparent,
// draws the quad, submits and presents. Submission is not awaited.
func (t *Target) Present() error {
	if t.res == nil {
		return ErrReleased
	}

	st, err := t.acquire()
	if err != nil {
		return err
	}
	if err := t.draw(st); err != nil {
		t.ctx.surface.DiscardTexture()
		return err
	}
	if err := t.ctx.surface.Present(st); err != nil {
		return fmt.Errorf("wgpu: present: %w", err)
	}
	return nil
}

// acquire gets the current surface texture. A failed acquisition usually
// means the surface is outdated, so it reconfigures and retries once.
func (t *Target) acquire() (*wgpu.SurfaceTexture, error) {
	st, suboptimal, err := t.ctx.surface.GetCurrentTexture()
	if err == nil {
		if suboptimal {
			slogger().Debug("wgpu: surface texture suboptimal")
		}
		return st, nil
	}

	slogger().Warn("wgpu: surface acquire failed, reconfiguring", "err", err)
	if cerr := t.ctx.configure(t.ctx.config); cerr != nil {
		return nil, fmt.Errorf("%w: %w", ErrSurfaceLost, cerr)
	}
	st, _, err = t.ctx.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSurfaceLost, err)
	}
	return st, nil
}

// draw records and submits the single render pass of a frame.
func (t *Target) draw(st *wgpu.SurfaceTexture) error {
	view, err := st.CreateView(nil)
	if err != nil {
		return fmt.Errorf("wgpu: surface view: %w", err)
	}
	defer view.Release()

	encoder, err := t.ctx.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: t.desc.Label + "_frame",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}

	pass, err := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: t.desc.Label + "_pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("wgpu: begin render pass: %w", err)
	}

	pass.SetPipeline(t.res.pipeline)
	pass.SetBindGroup(textureGroup, t.res.groups[textureGroup], nil)
	pass.SetBindGroup(thresholdGroup, t.res.groups[thresholdGroup], nil)
	pass.SetVertexBuffer(0, t.res.vertices, 0)
	pass.SetIndexBuffer(t.res.indices, gputypes.IndexFormatUint16, 0)
	pass.DrawIndexed(QuadIndexCount, 1, 0, 0, 0)
	if err := pass.End(); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("wgpu: end render pass: %w", err)
	}

	cmd, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("wgpu: finish encoder: %w", err)
	}
	if _, err := t.ctx.queue.Submit(cmd); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	return nil
}

// Release frees the pipeline resources and the context.
// Release is idempotent.
func (t *Target) Release() {
	if t.res != nil {
		t.res.release()
		t.res = nil
	}
	if t.ctx != nil {
		t.ctx.Release()
	}
}
