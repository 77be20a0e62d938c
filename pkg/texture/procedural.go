package texture

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// 内置的贴图形状（Key.Type）
const (
	ShapeOrb     = "orb"     // 实心圆 + 光晕
	ShapeRing    = "ring"    // 空心圆环
	ShapeGlow    = "glow"    // 柔和光斑（粒子）
	ShapeDiamond = "diamond" // 菱形（拾取物）
	ShapeBolt    = "bolt"    // 细长矩形（子弹）
	ShapeSquare  = "square"
)

// 内置的状态（Key.State）
const (
	StateNormal = "normal"
	StateHit    = "hit"   // 受击闪白
	StateDying  = "dying" // 暗淡
)

// BodyFraction 形状主体直径占贴图边长的比例，其余部分是光晕
const BodyFraction = 0.6

// Palette 霓虹配色，Key.Style 取其中的名称
var Palette = map[string]color.RGBA{
	"cyan":    {0x00, 0xf0, 0xff, 0xff},
	"magenta": {0xff, 0x2a, 0xd4, 0xff},
	"lime":    {0x7d, 0xff, 0x3a, 0xff},
	"yellow":  {0xff, 0xe6, 0x3a, 0xff},
	"orange":  {0xff, 0x8c, 0x1a, 0xff},
	"red":     {0xff, 0x3a, 0x4a, 0xff},
	"violet":  {0x9b, 0x5c, 0xff, 0xff},
	"white":   {0xff, 0xff, 0xff, 0xff},
}

// StyleColor 返回风格对应的颜色，未知风格返回白色
func StyleColor(style string) color.RGBA {
	if c, ok := Palette[style]; ok {
		return c
	}
	return Palette["white"]
}

// ProceduralGenerator 用 vector 绘制霓虹风格的占位贴图
//
// 贴图边长固定为 Size，形状绘制在中心，外圈留给光晕。
type ProceduralGenerator struct {
	Size      int
	GlowRings int // 光晕层数，0 表示无光晕

	pixel *ebiten.Image
}

// NewProceduralGenerator 创建默认生成器
func NewProceduralGenerator() *ProceduralGenerator {
	return &ProceduralGenerator{Size: 32, GlowRings: 3}
}

// Generate 实现 Generator
func (g *ProceduralGenerator) Generate(key Key) (*ebiten.Image, error) {
	size := g.Size
	if size <= 0 {
		size = 32
	}
	img := ebiten.NewImage(size, size)
	c := stateColor(StyleColor(key.Style), key.State)

	cx := float32(size) / 2
	cy := float32(size) / 2
	// 动画帧只做轻微的脉动
	pulse := float32(1 + 0.06*math.Sin(float64(key.Frame)*math.Pi/4))
	r := float32(size) * BodyFraction / 2 * pulse

	switch key.Type {
	case ShapeOrb:
		g.drawGlow(img, cx, cy, r, c)
		vector.DrawFilledCircle(img, cx, cy, r, c, true)
		vector.DrawFilledCircle(img, cx-r*0.3, cy-r*0.3, r*0.25, withAlpha(Palette["white"], 0.6), true)
	case ShapeRing:
		g.drawGlow(img, cx, cy, r, c)
		vector.StrokeCircle(img, cx, cy, r, float32(size)*0.08, c, true)
	case ShapeGlow:
		for i := 4; i >= 1; i-- {
			f := float32(i) / 4
			vector.DrawFilledCircle(img, cx, cy, float32(size)/2*f, withAlpha(c, 0.25*(1-float64(f))+0.1), true)
		}
	case ShapeDiamond:
		g.drawGlow(img, cx, cy, r, c)
		g.drawDiamond(img, cx, cy, r, c)
	case ShapeBolt:
		w := float32(size) * 0.7
		h := float32(size) * 0.2
		vector.DrawFilledRect(img, cx-w/2, cy-h*1.5, w, h*3, withAlpha(c, 0.3), true)
		vector.DrawFilledRect(img, cx-w/2, cy-h/2, w, h, c, true)
	case ShapeSquare:
		g.drawGlow(img, cx, cy, r, c)
		vector.DrawFilledRect(img, cx-r, cy-r, r*2, r*2, c, true)
		vector.StrokeRect(img, cx-r, cy-r, r*2, r*2, 1, Palette["white"], true)
	default:
		img.Deallocate()
		return nil, fmt.Errorf("unknown texture shape %q", key.Type)
	}
	return img, nil
}

func (g *ProceduralGenerator) drawGlow(img *ebiten.Image, cx, cy, r float32, c color.RGBA) {
	if g.GlowRings <= 0 {
		return
	}
	maxR := float32(img.Bounds().Dx()) / 2
	for i := g.GlowRings; i >= 1; i-- {
		gr := r + (maxR-r)*float32(i)/float32(g.GlowRings)
		vector.DrawFilledCircle(img, cx, cy, gr, withAlpha(c, 0.12), true)
	}
}

// drawDiamond 菱形：旋转 45° 的正方形
func (g *ProceduralGenerator) drawDiamond(dst *ebiten.Image, cx, cy, r float32, c color.RGBA) {
	if g.pixel == nil {
		g.pixel = ebiten.NewImage(1, 1)
		g.pixel.Fill(Palette["white"])
	}
	side := float64(r) * math.Sqrt2

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(-0.5, -0.5)
	op.GeoM.Scale(side, side)
	op.GeoM.Rotate(math.Pi / 4)
	op.GeoM.Translate(float64(cx), float64(cy))
	op.ColorScale.ScaleWithColor(c)
	dst.DrawImage(g.pixel, op)
}

func stateColor(c color.RGBA, state string) color.RGBA {
	switch state {
	case StateHit:
		return color.RGBA{
			R: uint8((int(c.R) + 255) / 2),
			G: uint8((int(c.G) + 255) / 2),
			B: uint8((int(c.B) + 255) / 2),
			A: c.A,
		}
	case StateDying:
		return withAlpha(c, 0.45)
	default:
		return c
	}
}

// withAlpha 返回预乘 alpha 后的颜色
func withAlpha(c color.RGBA, a float64) color.RGBA {
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R) * a),
		G: uint8(float64(c.G) * a),
		B: uint8(float64(c.B) * a),
		A: uint8(float64(c.A) * a),
	}
}
