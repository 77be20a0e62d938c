package render

import (
	"math"

	"github.com/decker502/neonsnake/pkg/entity"
	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/sprite"
	"github.com/decker502/neonsnake/pkg/texture"
)

// EntityRenderer 把实体快照转换为精灵
type EntityRenderer struct {
	batchRenderer
	trailLength int
}

// NewEntityRenderer 创建实体渲染器
func NewEntityRenderer() *EntityRenderer {
	return &EntityRenderer{
		batchRenderer: batchRenderer{name: "EntityRenderer", depth: 0},
		trailLength:   quality.SettingsFor(quality.LevelHigh).TrailLength,
	}
}

// SetQuality 更新拖尾长度
func (r *EntityRenderer) SetQuality(s quality.Settings) {
	r.trailLength = s.TrailLength
}

// Render 渲染实体，激光束总是回退
func (r *EntityRenderer) Render(entities []entity.Entity) Result[entity.Entity] {
	if !r.initialized {
		return notHandled(entities)
	}
	res := Result[entity.Entity]{Handled: true}
	for _, e := range entities {
		if e == nil || !e.Valid() {
			res.Dropped++
			continue
		}
		if !entity.Batchable(e) {
			res.Fallback = append(res.Fallback, e)
			continue
		}
		n, ok := r.renderEntity(e)
		res.Sprites += n
		if !ok {
			res.Fallback = append(res.Fallback, e)
			continue
		}
		res.Rendered++
	}
	return res
}

// renderEntity 返回占用的精灵数，以及实体本身是否画成功
func (r *EntityRenderer) renderEntity(e entity.Entity) (int, bool) {
	switch v := e.(type) {
	case entity.SnakeSegment:
		return r.renderSegment(v)
	case entity.Enemy:
		state := texture.StateNormal
		if v.Dying {
			state = texture.StateDying
		} else if v.HitFlash > 0.5 {
			state = texture.StateHit
		}
		shape := v.Shape
		if shape == "" {
			shape = texture.ShapeSquare
		}
		return placed(r.place(placement{
			key:      texture.Key{Type: shape, Style: styleOr(v.Style, "magenta"), State: state},
			x:        v.X,
			y:        v.Y,
			diameter: v.Radius * 2,
			rotation: v.Angle,
			alpha:    1,
			tint:     sprite.Neutral,
		}))
	case entity.XPOrb:
		return placed(r.place(placement{
			key:      texture.Key{Type: texture.ShapeGlow, Style: "lime", State: texture.StateNormal},
			x:        v.X,
			y:        v.Y,
			diameter: v.Radius * 2,
			alpha:    1,
			tint:     sprite.Neutral,
			additive: true,
		}))
	case entity.Pickup:
		return placed(r.place(placement{
			key:      texture.Key{Type: texture.ShapeDiamond, Style: styleOr(v.Style, "yellow"), State: texture.StateNormal},
			x:        v.X,
			y:        v.Y,
			diameter: v.Radius * 2,
			rotation: v.Phase,
			alpha:    0.75 + 0.25*math.Sin(v.Phase),
			tint:     sprite.Neutral,
		}))
	case entity.Beam:
		return 0, false
	default:
		return 0, false
	}
}

func (r *EntityRenderer) renderSegment(s entity.SnakeSegment) (int, bool) {
	style := styleOr(s.Style, "cyan")
	key := texture.Key{Type: texture.ShapeOrb, Style: style, State: texture.StateNormal}

	// 本体放不下时整条回退，拖尾不能单独留在批量路径上
	if !r.place(placement{
		key:      key,
		x:        s.X,
		y:        s.Y,
		diameter: s.Radius * 2,
		rotation: s.Angle,
		alpha:    1,
		tint:     sprite.Neutral,
	}) {
		return 0, false
	}
	n := 1

	// 拖尾是加法混合，后端在同一层级内把它画在本体之后
	trail := s.Trail
	if len(trail) > r.trailLength {
		trail = trail[:r.trailLength]
	}
	for i := len(trail) - 1; i >= 0; i-- {
		pt := trail[i]
		if !pt.Valid() {
			continue
		}
		fade := 1 - float64(i+1)/float64(len(trail)+1)
		if r.place(placement{
			key:      key,
			x:        pt.X,
			y:        pt.Y,
			diameter: s.Radius * 2 * (0.5 + 0.5*fade),
			alpha:    0.5 * fade,
			tint:     sprite.Neutral,
			additive: true,
		}) {
			n++
		}
	}
	return n, true
}

func placed(ok bool) (int, bool) {
	if ok {
		return 1, true
	}
	return 0, false
}

func styleOr(style, fallback string) string {
	if style == "" {
		return fallback
	}
	return style
}
