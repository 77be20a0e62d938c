// Package filters 管理作用于整个游戏画面的后处理滤镜链。
//
// 滤镜链的组成随着着色器档位变化：
//
//	bloom（采样数 > 0）→ 色差（档位允许或有瞬时强度）→ CRT（用户开启且档位允许）或独立扫描线
//
// 最低档位（OFF）时目标表面收到 nil，完全跳过后处理。
package filters

import (
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// Kind 滤镜种类
type Kind int

const (
	KindBloom Kind = iota
	KindChromatic
	KindCRT
	KindScanline
)

// AllKinds Init 时按此顺序构建滤镜实例
var AllKinds = []Kind{KindBloom, KindChromatic, KindCRT, KindScanline}

// String 返回滤镜名称
func (k Kind) String() string {
	switch k {
	case KindBloom:
		return "bloom"
	case KindChromatic:
		return "chromatic"
	case KindCRT:
		return "crt"
	case KindScanline:
		return "scanline"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Filter 单个后处理滤镜
type Filter interface {
	Kind() Kind
	// Apply 读取 src 并把处理结果写入 dst，两者尺寸相同
	Apply(dst, src *ebiten.Image)
	SetUniform(name string, value any)
	Resize(width, height int)
	Dispose()
}

// Factory 按种类创建滤镜
type Factory func(kind Kind) (Filter, error)

// Target 挂载滤镜列表的目标表面
//
// 列表为 nil 表示不做任何后处理（连一次拷贝都不做）。
type Target interface {
	SetFilters(filters []Filter)
	Filters() []Filter
}

// 统一使用的 uniform 名称
const (
	UniformSamples           = "Samples"
	UniformIntensity         = "Intensity"
	UniformThreshold         = "Threshold"
	UniformRadius            = "Radius"
	UniformStrength          = "Strength"
	UniformTime              = "Time"
	UniformScroll            = "Scroll"
	UniformScanlineIntensity = "ScanlineIntensity"
	UniformNoise             = "Noise"
	UniformVignette          = "Vignette"
	UniformResolution        = "Resolution"
)

var (
	// ErrNoTarget Init 时没有提供目标表面
	ErrNoTarget = errors.New("filters: nil target")
	// ErrNoFactory 没有提供滤镜工厂
	ErrNoFactory = errors.New("filters: nil factory")
)
