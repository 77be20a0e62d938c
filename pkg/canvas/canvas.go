// Package canvas 即时模式渲染器：用 vector 逐个绘制对象
//
// canvas2d 模式下绘制全部对象；webgl/hybrid 模式下只绘制批量渲染器交回的 Fallback。
// 与批量渲染器共用 render.Camera 和 texture 调色板，两条路径画出的位置和颜色一致。
package canvas

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/decker502/neonsnake/pkg/entity"
	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/render"
	"github.com/decker502/neonsnake/pkg/texture"
)

// maxGlowRings 辉光最多几圈
const maxGlowRings = 3

// maxGridLines 单方向最多绘制的网格线数，缩得很小时不再加密
const maxGridLines = 160

// Input 一帧要绘制的对象
type Input struct {
	Entities    []entity.Entity
	Projectiles []entity.Projectile
	Particles   []entity.Particle
	Settings    quality.Settings
	Time        float64 // 秒，用于拾取物脉动
}

// Stats 最近一次 Draw 的统计
type Stats struct {
	Entities    int
	Projectiles int
	Particles   int
	Culled      int // 在视口外
	Dropped     int // 坐标非法
	Skipped     int // 超出粒子预算
	DrawCalls   int
}

// Renderer 即时模式渲染器
type Renderer struct {
	// GridSpacing 背景网格间距（世界单位），<= 0 时不画网格
	GridSpacing float64
	GridColor   color.RGBA

	face  text.Face
	stats Stats
}

// NewRenderer 创建渲染器，face 为 nil 时文字粒子使用调试字体
func NewRenderer(face text.Face) *Renderer {
	return &Renderer{
		GridSpacing: 64,
		GridColor:   color.RGBA{0x1a, 0x14, 0x3a, 0xff},
		face:        face,
	}
}

// Stats 最近一次 Draw 的统计
func (r *Renderer) Stats() Stats {
	return r.stats
}

// DrawBackground 绘制背景网格，返回绘制调用数
//
// 必须在批量渲染提交之前调用，否则网格会盖住精灵。
func (r *Renderer) DrawBackground(dst *ebiten.Image, cam render.Camera, s quality.Settings) int {
	if r.GridSpacing <= 0 {
		return 0
	}
	x0, y0 := cam.ScreenToWorld(0, 0)
	x1, y1 := cam.ScreenToWorld(cam.ViewW, cam.ViewH)
	spacing := r.GridSpacing
	for (x1-x0)/spacing > maxGridLines || (y1-y0)/spacing > maxGridLines {
		spacing *= 2
	}

	clr := r.GridColor
	if s.GlowIntensity > 0 {
		clr = lighten(clr, 0.15*s.GlowIntensity)
	}
	calls := 0
	for x := math.Floor(x0/spacing) * spacing; x <= x1; x += spacing {
		sx, _ := cam.WorldToScreen(x, 0)
		vector.StrokeLine(dst, float32(sx), 0, float32(sx), float32(cam.ViewH), 1, clr, false)
		calls++
	}
	for y := math.Floor(y0/spacing) * spacing; y <= y1; y += spacing {
		_, sy := cam.WorldToScreen(0, y)
		vector.StrokeLine(dst, 0, float32(sy), float32(cam.ViewW), float32(sy), 1, clr, false)
		calls++
	}
	return calls
}

// Draw 绘制实体、子弹、粒子（按此顺序叠放），返回绘制调用数
func (r *Renderer) Draw(dst *ebiten.Image, cam render.Camera, in Input) int {
	r.stats = Stats{}
	p := painter{dst: dst, cam: cam, settings: in.Settings, rings: GlowRings(in.Settings)}

	for _, e := range in.Entities {
		if e == nil || !e.Valid() {
			r.stats.Dropped++
			continue
		}
		if !p.entityVisible(e) {
			r.stats.Culled++
			continue
		}
		p.entity(e, in.Time)
		r.stats.Entities++
	}

	for _, pr := range in.Projectiles {
		if !pr.Valid() {
			r.stats.Dropped++
			continue
		}
		if pr.Kind != entity.ProjectileLightning && !cam.Visible(pr.X, pr.Y, pr.Radius*3) {
			r.stats.Culled++
			continue
		}
		p.projectile(pr)
		r.stats.Projectiles++
	}

	limit := in.Settings.ParticleLimit
	for _, pt := range in.Particles {
		if !pt.Valid() {
			r.stats.Dropped++
			continue
		}
		if r.stats.Particles >= limit {
			r.stats.Skipped++
			continue
		}
		if !cam.Visible(pt.X, pt.Y, pt.Size) {
			r.stats.Culled++
			continue
		}
		p.particle(pt, r.face)
		r.stats.Particles++
	}

	r.stats.DrawCalls = p.calls
	return p.calls
}

// GlowRings 画质对应的辉光圈数
func GlowRings(s quality.Settings) int {
	if s.GlowIntensity <= 0 || s.ShadowBlur <= 0 {
		return 0
	}
	n := 1 + int(s.ShadowBlur/6)
	if n > maxGlowRings {
		n = maxGlowRings
	}
	return n
}

// painter 单帧绘制上下文，统计 vector 调用次数
type painter struct {
	dst      *ebiten.Image
	cam      render.Camera
	settings quality.Settings
	rings    int
	calls    int
}

func (p *painter) screen(x, y float64) (float32, float32) {
	sx, sy := p.cam.WorldToScreen(x, y)
	return float32(sx), float32(sy)
}

func (p *painter) length(v float64) float32 {
	return float32(v * p.cam.Scale())
}

func (p *painter) entityVisible(e entity.Entity) bool {
	switch v := e.(type) {
	case entity.Beam:
		mx, my := (v.From.X+v.To.X)/2, (v.From.Y+v.To.Y)/2
		half := math.Hypot(v.To.X-v.From.X, v.To.Y-v.From.Y) / 2
		return p.cam.Visible(mx, my, half+v.Width)
	case entity.SnakeSegment:
		return p.cam.Visible(v.X, v.Y, v.Radius+p.settings.ShadowBlur)
	}
	pt := entity.Position(e)
	return p.cam.Visible(pt.X, pt.Y, radiusOf(e)+p.settings.ShadowBlur)
}

func radiusOf(e entity.Entity) float64 {
	switch v := e.(type) {
	case entity.Enemy:
		return v.Radius
	case entity.XPOrb:
		return v.Radius
	case entity.Pickup:
		return v.Radius
	}
	return 0
}

func (p *painter) circle(x, y, r float64, c color.RGBA) {
	sx, sy := p.screen(x, y)
	vector.DrawFilledCircle(p.dst, sx, sy, p.length(r), c, true)
	p.calls++
}

// glow 在 (x, y) 外围画 rings 圈渐隐的描边
func (p *painter) glow(x, y, r float64, c color.RGBA) {
	if p.rings == 0 {
		return
	}
	sx, sy := p.screen(x, y)
	for i := 1; i <= p.rings; i++ {
		gr := r + p.settings.ShadowBlur*float64(i)/float64(p.rings)
		a := 0.35 * p.settings.GlowIntensity / float64(i)
		vector.StrokeCircle(p.dst, sx, sy, p.length(gr), 2, fade(c, a), true)
		p.calls++
	}
}

func (p *painter) line(x0, y0, x1, y1, width float64, c color.RGBA) {
	sx0, sy0 := p.screen(x0, y0)
	sx1, sy1 := p.screen(x1, y1)
	w := p.length(width)
	if w < 1 {
		w = 1
	}
	vector.StrokeLine(p.dst, sx0, sy0, sx1, sy1, w, c, true)
	p.calls++
}

// polygon 以 (x, y) 为中心、r 为外接圆半径的正多边形描边
func (p *painter) polygon(x, y, r, angle float64, sides int, width float64, c color.RGBA) {
	px, py := x+r*math.Cos(angle), y+r*math.Sin(angle)
	for i := 1; i <= sides; i++ {
		a := angle + 2*math.Pi*float64(i)/float64(sides)
		nx, ny := x+r*math.Cos(a), y+r*math.Sin(a)
		p.line(px, py, nx, ny, width, c)
		px, py = nx, ny
	}
}

func (p *painter) entity(e entity.Entity, t float64) {
	switch v := e.(type) {
	case entity.SnakeSegment:
		p.segment(v)
	case entity.Enemy:
		c := texture.StyleColor(styleOr(v.Style, "magenta"))
		switch {
		case v.Dying:
			c = fade(c, 0.45)
		case v.HitFlash > 0.5:
			c = lighten(c, 0.5)
		}
		p.glow(v.X, v.Y, v.Radius, c)
		switch v.Shape {
		case texture.ShapeOrb, texture.ShapeRing, texture.ShapeGlow:
			p.circle(v.X, v.Y, v.Radius*0.7, c)
			sx, sy := p.screen(v.X, v.Y)
			vector.StrokeCircle(p.dst, sx, sy, p.length(v.Radius), 1.5, c, true)
			p.calls++
		default:
			p.circle(v.X, v.Y, v.Radius*0.5, fade(c, 0.6))
			p.polygon(v.X, v.Y, v.Radius*math.Sqrt2, v.Angle+math.Pi/4, 4, 2, c)
		}
	case entity.XPOrb:
		c := texture.StyleColor("lime")
		p.glow(v.X, v.Y, v.Radius, c)
		p.circle(v.X, v.Y, v.Radius, c)
	case entity.Pickup:
		c := texture.StyleColor(styleOr(v.Style, "yellow"))
		pulse := 1 + 0.15*math.Sin(t*4+v.Phase)
		p.glow(v.X, v.Y, v.Radius*pulse, c)
		p.polygon(v.X, v.Y, v.Radius*pulse, 0, 4, 2, c)
	case entity.Beam:
		c := texture.StyleColor(styleOr(v.Style, "cyan"))
		if p.rings > 0 {
			p.line(v.From.X, v.From.Y, v.To.X, v.To.Y, v.Width+p.settings.ShadowBlur, fade(c, 0.25*p.settings.GlowIntensity))
		}
		p.line(v.From.X, v.From.Y, v.To.X, v.To.Y, v.Width, c)
	}
}

// segment 蛇身一节：拖尾残影（受 TrailLength 限制）在下，本体在上
func (p *painter) segment(s entity.SnakeSegment) {
	c := texture.StyleColor(styleOr(s.Style, "cyan"))
	trail := s.Trail
	if len(trail) > p.settings.TrailLength {
		trail = trail[:p.settings.TrailLength]
	}
	for i := len(trail) - 1; i >= 0; i-- {
		pt := trail[i]
		if !pt.Valid() {
			continue
		}
		f := 1 - float64(i+1)/float64(len(trail)+1)
		p.circle(pt.X, pt.Y, s.Radius*(0.5+0.5*f), fade(c, 0.5*f))
	}
	p.glow(s.X, s.Y, s.Radius, c)
	p.circle(s.X, s.Y, s.Radius, c)
}

func (p *painter) projectile(pr entity.Projectile) {
	c := texture.StyleColor(render.ProjectileStyle(pr))
	switch pr.Kind {
	case entity.ProjectileLightning:
		path := pr.Path
		if len(path) < 2 {
			path = []entity.Point{pr.Point, {X: pr.X + pr.VX, Y: pr.Y + pr.VY}}
		}
		for i := 1; i < len(path); i++ {
			a, b := path[i-1], path[i]
			if p.rings > 0 {
				p.line(a.X, a.Y, b.X, b.Y, 4, fade(c, 0.3*p.settings.GlowIntensity))
			}
			p.line(a.X, a.Y, b.X, b.Y, 1.5, lighten(c, 0.4))
		}
	case entity.ProjectileOrb:
		p.glow(pr.X, pr.Y, pr.Radius, c)
		p.circle(pr.X, pr.Y, pr.Radius, c)
	default:
		// 子弹沿速度方向画成短线
		dx, dy := pr.VX, pr.VY
		if l := math.Hypot(dx, dy); l > 0 {
			dx, dy = dx/l, dy/l
		} else {
			dx, dy = 1, 0
		}
		half := pr.Radius * 1.5
		p.line(pr.X-dx*half, pr.Y-dy*half, pr.X+dx*half, pr.Y+dy*half, pr.Radius, c)
	}
}

func (p *painter) particle(pt entity.Particle, face text.Face) {
	c := fade(texture.StyleColor(styleOr(pt.Style, "white")), pt.Alpha())
	if pt.Kind == entity.ParticleText {
		p.text(pt, face, c)
		return
	}
	if p.settings.ParticleComplexity == quality.ComplexityLow {
		sx, sy := p.screen(pt.X, pt.Y)
		s := p.length(pt.Size)
		vector.DrawFilledRect(p.dst, sx-s/2, sy-s/2, s, s, c, false)
		p.calls++
		return
	}
	switch pt.Kind {
	case entity.ParticleSpark:
		dx, dy := pt.VX, pt.VY
		if l := math.Hypot(dx, dy); l > 0 {
			dx, dy = dx/l*pt.Size, dy/l*pt.Size
		}
		p.line(pt.X-dx, pt.Y-dy, pt.X+dx, pt.Y+dy, 1, c)
	case entity.ParticleSmoke:
		p.circle(pt.X, pt.Y, pt.Size, fade(c, 0.45))
	default:
		p.circle(pt.X, pt.Y, pt.Size, c)
	}
}

func (p *painter) text(pt entity.Particle, face text.Face, c color.RGBA) {
	sx, sy := p.screen(pt.X, pt.Y)
	if face == nil {
		ebitenutil.DebugPrintAt(p.dst, pt.Text, int(sx), int(sy))
		p.calls++
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(sx), float64(sy))
	op.ColorScale.ScaleWithColor(c)
	op.PrimaryAlign = text.AlignCenter
	op.SecondaryAlign = text.AlignCenter
	text.Draw(p.dst, pt.Text, face, op)
	p.calls++
}

func styleOr(style, fallback string) string {
	if style == "" {
		return fallback
	}
	return style
}

// fade 按 a 缩放预乘颜色
func fade(c color.RGBA, a float64) color.RGBA {
	a = math.Max(0, math.Min(1, a))
	return color.RGBA{
		R: uint8(float64(c.R) * a),
		G: uint8(float64(c.G) * a),
		B: uint8(float64(c.B) * a),
		A: uint8(float64(c.A) * a),
	}
}

// lighten 向白色混合 t
func lighten(c color.RGBA, t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	mix := func(v uint8) uint8 {
		return uint8(float64(v) + (float64(c.A)-float64(v))*t)
	}
	return color.RGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: c.A}
}
