package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/liveview/gpucore"
)

// quadIndices draws the quad as two counter-clockwise triangles.
var quadIndices = []uint16{0, 1, 2, 2, 3, 0}

// QuadIndexCount is the number of indices drawn per frame.
const QuadIndexCount = 6

// VertexLayout describes one interleaved vertex buffer.
type VertexLayout struct {
	// Stride is the byte stride per vertex.
	Stride uint64
	// Attributes are the per-vertex attributes at locations 0 and 1.
	Attributes []gputypes.VertexAttribute
}

// buffer converts the layout to a wgpu vertex buffer layout.
func (l VertexLayout) buffer() []wgpu.VertexBufferLayout {
	return []wgpu.VertexBufferLayout{{
		ArrayStride: l.Stride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  l.Attributes,
	}}
}

// PipelineDescriptor parameterizes the render pipeline and the resources
// bound to it. TexturedQuad and ColoredQuad are the two predefined variants.
type PipelineDescriptor struct {
	// Label prefixes every GPU object label.
	Label string

	// Shader is the WGSL source with vs_main and fs_main entry points.
	Shader string

	// Vertex describes the vertex buffer layout.
	Vertex VertexLayout

	// Vertices is the interleaved data of the 4 quad corners.
	Vertices []float32

	// Textured binds the frame texture and sampler as group 0.
	Textured bool

	// Thresholds binds the threshold uniform as group 1.
	Thresholds bool
}

// TexturedQuad returns the full-window quad sampling the frame texture.
// Vertex layout: position (vec3<f32>) at location 0, uv (vec2<f32>) at
// location 1, 20 bytes per vertex.
func TexturedQuad() PipelineDescriptor {
	return PipelineDescriptor{
		Label:  "textured_quad",
		Shader: texturedShaderSource,
		Vertex: VertexLayout{
			Stride: 20,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
			},
		},
		Vertices: []float32{
			// x, y, z, u, v
			-1, -1, 0, 0, 1,
			1, -1, 0, 1, 1,
			1, 1, 0, 1, 0,
			-1, 1, 0, 0, 0,
		},
		Textured:   true,
		Thresholds: true,
	}
}

// ColoredQuad returns the full-window quad with per-corner colors.
// Vertex layout: position (vec3<f32>) at location 0, color (vec3<f32>) at
// location 1, 24 bytes per vertex.
func ColoredQuad() PipelineDescriptor {
	return PipelineDescriptor{
		Label:  "colored_quad",
		Shader: coloredShaderSource,
		Vertex: VertexLayout{
			Stride: 24,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			},
		},
		Vertices: []float32{
			// x, y, z, r, g, b
			-1, -1, 0, 0.2, 0.0, 1.0,
			1, -1, 0, 0.0, 0.8, 0.4,
			1, 1, 0, 1.0, 0.6, 0.0,
			-1, 1, 0, 0.9, 0.1, 0.3,
		},
		Thresholds: true,
	}
}

// Validate checks the descriptor and its shader. The shader is validated
// by naga and its @group/@binding declarations must match Textured and
// Thresholds.
func (d PipelineDescriptor) Validate() (*ShaderInfo, error) {
	if d.Vertex.Stride == 0 || d.Vertex.Stride%4 != 0 {
		return nil, fmt.Errorf("wgpu: %s: invalid vertex stride %d", d.Label, d.Vertex.Stride)
	}
	if len(d.Vertex.Attributes) == 0 {
		return nil, fmt.Errorf("wgpu: %s: no vertex attributes", d.Label)
	}
	floats := d.Vertex.Stride / 4
	if uint64(len(d.Vertices)) != 4*floats {
		return nil, fmt.Errorf("wgpu: %s: %d vertex floats, want %d (4 corners x %d)",
			d.Label, len(d.Vertices), 4*floats, floats)
	}

	info, err := ReflectShader(d.Shader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Label, err)
	}
	if err := info.CheckLayout(d.Textured, d.Thresholds); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Label, err)
	}
	return info, nil
}

// vertexBytes encodes the vertex data little-endian.
func (d PipelineDescriptor) vertexBytes() []byte {
	buf := make([]byte, len(d.Vertices)*4)
	for i, f := range d.Vertices {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// indexBytes encodes quadIndices little-endian.
func indexBytes() []byte {
	buf := make([]byte, len(quadIndices)*2)
	for i, idx := range quadIndices {
		binary.LittleEndian.PutUint16(buf[i*2:], idx)
	}
	return buf
}

// resources are the GPU objects the frame render operation reads.
type resources struct {
	shader     *wgpu.ShaderModule
	layouts    [2]*wgpu.BindGroupLayout
	groups     [2]*wgpu.BindGroup
	pipeLayout *wgpu.PipelineLayout
	pipeline   *wgpu.RenderPipeline

	vertices *wgpu.Buffer
	indices  *wgpu.Buffer
	uniform  *wgpu.Buffer

	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

// buildResources creates the pipeline for desc together with the quad
// geometry, the frame texture (texSize, RGBA8Unorm), its sampler and the
// threshold uniform. Group indices are fixed: a pipeline without a texture
// still binds an empty group 0.
func buildResources(device *wgpu.Device, queue *wgpu.Queue, desc PipelineDescriptor,
	format gputypes.TextureFormat, texSize gpucore.Size) (*resources, error) {
	if texSize.Width < 1 || texSize.Height < 1 {
		return nil, fmt.Errorf("%w: frame texture %s", ErrInvalidDimensions, texSize)
	}
	if _, err := desc.Validate(); err != nil {
		return nil, err
	}

	r := &resources{}
	ok := false
	defer func() {
		if !ok {
			r.release()
		}
	}()

	var err error
	r.shader, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label + "_shader",
		WGSL:  desc.Shader,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module: %w", err)
	}

	if err := r.createTexture(device, desc.Label, texSize); err != nil {
		return nil, err
	}
	if err := r.createBuffers(device, queue, desc); err != nil {
		return nil, err
	}
	if err := r.createBindGroups(device, desc); err != nil {
		return nil, err
	}

	r.pipeLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + "_pipeline_layout",
		BindGroupLayouts: r.layouts[:],
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	r.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + "_pipeline",
		Layout: r.pipeLayout,
		Vertex: wgpu.VertexState{
			Module:     r.shader,
			EntryPoint: vertexEntryPoint,
			Buffers:    desc.Vertex.buffer(),
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.DefaultMultisampleState(),
		Fragment: &wgpu.FragmentState{
			Module:     r.shader,
			EntryPoint: fragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     &premulBlend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create render pipeline: %w", err)
	}

	ok = true
	return r, nil
}

func (r *resources) createTexture(device *wgpu.Device, label string, size gpucore.Size) error {
	var err error
	r.texture, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label + "_frame_texture",
		Size: wgpu.Extent3D{
			Width:              uint32(size.Width),
			Height:             uint32(size.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create frame texture %s: %w", size, err)
	}
	r.view, err = device.CreateTextureView(r.texture, nil)
	if err != nil {
		return fmt.Errorf("wgpu: create frame texture view: %w", err)
	}
	r.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        label + "_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create sampler: %w", err)
	}
	return nil
}

func (r *resources) createBuffers(device *wgpu.Device, queue *wgpu.Queue, desc PipelineDescriptor) error {
	vdata := desc.vertexBytes()
	idata := indexBytes()

	var err error
	r.vertices, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label + "_vertices",
		Size:  uint64(len(vdata)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create vertex buffer: %w", err)
	}
	r.indices, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label + "_indices",
		Size:  uint64(len(idata)),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create index buffer: %w", err)
	}
	r.uniform, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label + "_thresholds",
		Size:  gpucore.ThresholdsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create threshold buffer: %w", err)
	}

	if err := queue.WriteBuffer(r.vertices, 0, vdata); err != nil {
		return fmt.Errorf("wgpu: write vertices: %w", err)
	}
	if err := queue.WriteBuffer(r.indices, 0, idata); err != nil {
		return fmt.Errorf("wgpu: write indices: %w", err)
	}
	return queue.WriteBuffer(r.uniform, 0, gpucore.DefaultThresholds().Bytes())
}

// bindGroupLayoutEntries returns the layout entries of both groups.
func bindGroupLayoutEntries(desc PipelineDescriptor) [2][]wgpu.BindGroupLayoutEntry {
	var entries [2][]wgpu.BindGroupLayoutEntry
	if desc.Textured {
		entries[textureGroup] = []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler: &gputypes.SamplerBindingLayout{
					Type: gputypes.SamplerBindingTypeFiltering,
				},
			},
		}
	}
	if desc.Thresholds {
		entries[thresholdGroup] = []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: gpucore.ThresholdsSize,
			},
		}}
	}
	return entries
}

func (r *resources) createBindGroups(device *wgpu.Device, desc PipelineDescriptor) error {
	layouts := bindGroupLayoutEntries(desc)
	names := [2]string{"frame", "thresholds"}

	for g := range r.layouts {
		var err error
		r.layouts[g], err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_%s_layout", desc.Label, names[g]),
			Entries: layouts[g],
		})
		if err != nil {
			return fmt.Errorf("wgpu: create bind group layout %d: %w", g, err)
		}

		var entries []wgpu.BindGroupEntry
		switch {
		case g == textureGroup && desc.Textured:
			entries = []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: r.view},
				{Binding: 1, Sampler: r.sampler},
			}
		case g == thresholdGroup && desc.Thresholds:
			entries = []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: r.uniform, Size: gpucore.ThresholdsSize},
			}
		}
		r.groups[g], err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s_%s_group", desc.Label, names[g]),
			Layout:  r.layouts[g],
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("wgpu: create bind group %d: %w", g, err)
		}
	}
	return nil
}

// release frees every created object in reverse creation order.
// Safe to call on partially built resources.
func (r *resources) release() {
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	if r.pipeLayout != nil {
		r.pipeLayout.Release()
	}
	for g := len(r.groups) - 1; g >= 0; g-- {
		if r.groups[g] != nil {
			r.groups[g].Release()
		}
		if r.layouts[g] != nil {
			r.layouts[g].Release()
		}
	}
	for _, b := range []*wgpu.Buffer{r.uniform, r.indices, r.vertices} {
		if b != nil {
			b.Release()
		}
	}
	if r.sampler != nil {
		r.sampler.Release()
	}
	if r.view != nil {
		r.view.Release()
	}
	if r.texture != nil {
		r.texture.Release()
	}
	if r.shader != nil {
		r.shader.Release()
	}
	*r = resources{}
}
