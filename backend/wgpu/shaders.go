package wgpu

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Embedded WGSL shader sources.

//go:embed shaders/textured.wgsl
var texturedShaderSource string

//go:embed shaders/colored.wgsl
var coloredShaderSource string

// Entry points every quad shader must define.
const (
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "fs_main"
)

// Binding groups used by the quad pipelines.
const (
	textureGroup   = 0
	thresholdGroup = 1
)

// BindingKind classifies a reflected resource binding.
type BindingKind int

const (
	BindingOther BindingKind = iota
	BindingUniform
	BindingTexture
	BindingSampler
)

// String returns the kind name.
func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingTexture:
		return "texture"
	case BindingSampler:
		return "sampler"
	default:
		return "other"
	}
}

// ShaderBinding is one @group/@binding declaration of a shader.
type ShaderBinding struct {
	Name    string
	Group   uint32
	Binding uint32
	Kind    BindingKind
}

// ShaderInfo is what validation learned about a WGSL module.
type ShaderInfo struct {
	// VertexEntryPoints and FragmentEntryPoints list entry point names by stage.
	VertexEntryPoints   []string
	FragmentEntryPoints []string

	// Bindings are sorted by group, then binding.
	Bindings []ShaderBinding
}

// ReflectShader parses, lowers and validates WGSL source with naga and
// returns its entry points and resource bindings.
func ReflectShader(source string) (*ShaderInfo, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: empty source", ErrShaderInvalid)
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderInvalid, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderInvalid, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderInvalid, err)
	}
	if len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i := range verrs {
			errs[i] = verrs[i]
		}
		return nil, fmt.Errorf("%w: %w", ErrShaderInvalid, errors.Join(errs...))
	}

	info := &ShaderInfo{}
	for _, ep := range module.EntryPoints {
		switch ep.Stage {
		case ir.StageVertex:
			info.VertexEntryPoints = append(info.VertexEntryPoints, ep.Name)
		case ir.StageFragment:
			info.FragmentEntryPoints = append(info.FragmentEntryPoints, ep.Name)
		}
	}
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		info.Bindings = append(info.Bindings, ShaderBinding{
			Name:    gv.Name,
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Kind:    bindingKind(module, gv),
		})
	}
	sort.Slice(info.Bindings, func(i, j int) bool {
		a, b := info.Bindings[i], info.Bindings[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Binding < b.Binding
	})
	return info, nil
}

func bindingKind(m *ir.Module, gv ir.GlobalVariable) BindingKind {
	switch gv.Space {
	case ir.SpaceUniform:
		return BindingUniform
	case ir.SpaceHandle:
		if int(gv.Type) >= len(m.Types) {
			return BindingOther
		}
		switch m.Types[gv.Type].Inner.(type) {
		case ir.ImageType, *ir.ImageType:
			return BindingTexture
		case ir.SamplerType, *ir.SamplerType:
			return BindingSampler
		}
	}
	return BindingOther
}

// HasEntryPoints reports whether the shader defines vs_main and fs_main.
func (s *ShaderInfo) HasEntryPoints() bool {
	return slices.Contains(s.VertexEntryPoints, vertexEntryPoint) &&
		slices.Contains(s.FragmentEntryPoints, fragmentEntryPoint)
}

// Binding returns the declaration at group/binding, if any.
func (s *ShaderInfo) Binding(group, binding uint32) (ShaderBinding, bool) {
	for _, b := range s.Bindings {
		if b.Group == group && b.Binding == binding {
			return b, true
		}
	}
	return ShaderBinding{}, false
}

// CheckLayout verifies that the shader declares exactly the resources the
// pipeline binds: texture at (0,0) and sampler at (0,1) when textured, the
// threshold uniform at (1,0) when thresholded, and nothing else.
func (s *ShaderInfo) CheckLayout(textured, thresholds bool) error {
	if !s.HasEntryPoints() {
		return fmt.Errorf("%w: missing %s or %s entry point",
			ErrShaderInvalid, vertexEntryPoint, fragmentEntryPoint)
	}

	want := map[[2]uint32]BindingKind{}
	if textured {
		want[[2]uint32{textureGroup, 0}] = BindingTexture
		want[[2]uint32{textureGroup, 1}] = BindingSampler
	}
	if thresholds {
		want[[2]uint32{thresholdGroup, 0}] = BindingUniform
	}

	for _, b := range s.Bindings {
		kind, ok := want[[2]uint32{b.Group, b.Binding}]
		if !ok || kind != b.Kind {
			return fmt.Errorf("%w: unexpected %s %q at @group(%d) @binding(%d)",
				ErrBindingLayout, b.Kind, b.Name, b.Group, b.Binding)
		}
	}
	for slot, kind := range want {
		if _, ok := s.Binding(slot[0], slot[1]); !ok {
			return fmt.Errorf("%w: no %s at @group(%d) @binding(%d)",
				ErrBindingLayout, kind, slot[0], slot[1])
		}
	}
	return nil
}
