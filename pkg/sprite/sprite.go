// Package sprite 提供按实体类别划分的精灵对象池。
//
// 每帧开始时 ReleaseAll 把所有精灵归还为空闲，随后批量渲染器重新 Acquire。
// 精灵只在第一次需要时创建，之后一直复用，直到显式 Trim 或 Destroy。
package sprite

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// Sprite GPU 批量渲染使用的精灵状态
//
// 锚点在贴图中心；Rotation 为弧度。
type Sprite struct {
	Texture  *ebiten.Image
	X, Y     float64
	Rotation float64
	ScaleX   float64
	ScaleY   float64
	Alpha    float64
	Tint     color.RGBA
	Additive bool // 加法混合（发光效果）
	Visible  bool
	Depth    int
}

// Neutral 中性色调（不改变贴图颜色）
var Neutral = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Reset 把所有视觉属性恢复为默认值
// 复用精灵时必须调用，否则上一个实体的旋转/色调/缩放会泄漏到新实体
func (s *Sprite) Reset() {
	*s = Sprite{
		ScaleX:  1,
		ScaleY:  1,
		Alpha:   1,
		Tint:    Neutral,
		Visible: true,
	}
}

// SetScale 统一缩放
func (s *Sprite) SetScale(scale float64) {
	s.ScaleX = scale
	s.ScaleY = scale
}

func newSprite() *Sprite {
	s := &Sprite{}
	s.Reset()
	return s
}

// Pooled 池中的精灵句柄
//
// 句柄在整个生命周期内只属于一个池（PoolID），Active 表示本帧已被占用。
type Pooled struct {
	Sprite *Sprite
	Active bool
	PoolID string
	slot   int
}

// Slot 句柄在池中的槽位
func (p *Pooled) Slot() int {
	return p.slot
}
