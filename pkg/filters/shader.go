package filters

import (
	"embed"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

//go:embed shaders/*.kage
var shaderFS embed.FS

var shaderFiles = map[Kind]string{
	KindBloom:     "shaders/bloom.kage",
	KindChromatic: "shaders/chromatic.kage",
	KindCRT:       "shaders/crt.kage",
	KindScanline:  "shaders/scanline.kage",
}

// ShaderSource 返回内置 Kage 着色器源码
func ShaderSource(kind Kind) ([]byte, error) {
	path, ok := shaderFiles[kind]
	if !ok {
		return nil, fmt.Errorf("no shader for filter %s", kind)
	}
	src, err := shaderFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader %s: %w", path, err)
	}
	return src, nil
}

// NewShaderFactory 返回编译内置 Kage 着色器的滤镜工厂
func NewShaderFactory() Factory {
	return func(kind Kind) (Filter, error) {
		src, err := ShaderSource(kind)
		if err != nil {
			return nil, err
		}
		shader, err := ebiten.NewShader(src)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s shader: %w", kind, err)
		}
		return &shaderFilter{
			kind:     kind,
			shader:   shader,
			uniforms: make(map[string]any),
		}, nil
	}
}

// shaderFilter 基于 DrawRectShader 的全屏滤镜
type shaderFilter struct {
	kind     Kind
	shader   *ebiten.Shader
	uniforms map[string]any
}

func (f *shaderFilter) Kind() Kind { return f.kind }

func (f *shaderFilter) Apply(dst, src *ebiten.Image) {
	if f.shader == nil {
		return
	}
	b := src.Bounds()
	op := &ebiten.DrawRectShaderOptions{}
	op.Images[0] = src
	op.Uniforms = f.uniforms
	dst.DrawRectShader(b.Dx(), b.Dy(), f.shader, op)
}

// SetUniform Kage 的 float 使用 float32，这里统一转换
func (f *shaderFilter) SetUniform(name string, value any) {
	switch v := value.(type) {
	case float64:
		f.uniforms[name] = float32(v)
	case int:
		f.uniforms[name] = float32(v)
	case []float64:
		vs := make([]float32, len(v))
		for i := range v {
			vs[i] = float32(v[i])
		}
		f.uniforms[name] = vs
	default:
		f.uniforms[name] = value
	}
}

func (f *shaderFilter) Resize(width, height int) {
	f.uniforms[UniformResolution] = []float32{float32(width), float32(height)}
}

func (f *shaderFilter) Dispose() {
	if f.shader != nil {
		f.shader.Deallocate()
		f.shader = nil
	}
}
