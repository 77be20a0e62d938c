package render

import (
	"github.com/decker502/neonsnake/pkg/entity"
	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/sprite"
	"github.com/decker502/neonsnake/pkg/texture"
)

// ParticleRenderer 把粒子快照转换为精灵
type ParticleRenderer struct {
	batchRenderer
	limit      int
	complexity quality.Complexity
}

// NewParticleRenderer 创建粒子渲染器，预算取 HIGH 画质
func NewParticleRenderer() *ParticleRenderer {
	s := quality.SettingsFor(quality.LevelHigh)
	return &ParticleRenderer{
		batchRenderer: batchRenderer{name: "ParticleRenderer", depth: 2},
		limit:         s.ParticleLimit,
		complexity:    s.ParticleComplexity,
	}
}

// SetQuality 更新粒子预算和贴图复杂度
func (r *ParticleRenderer) SetQuality(s quality.Settings) {
	r.limit = s.ParticleLimit
	r.complexity = s.ParticleComplexity
}

// Limit 当前粒子预算
func (r *ParticleRenderer) Limit() int {
	return r.limit
}

// Render 渲染粒子，超出预算的粒子直接跳过（不回退）
func (r *ParticleRenderer) Render(particles []entity.Particle) Result[entity.Particle] {
	if !r.initialized {
		return notHandled(particles)
	}
	res := Result[entity.Particle]{Handled: true}
	for _, p := range particles {
		if !p.Valid() {
			res.Dropped++
			continue
		}
		if !p.Batchable() {
			res.Fallback = append(res.Fallback, p)
			continue
		}
		if res.Rendered >= r.limit {
			res.Skipped++
			continue
		}
		if !r.place(r.placement(p)) {
			res.Fallback = append(res.Fallback, p)
			continue
		}
		res.Rendered++
		res.Sprites++
	}
	return res
}

func (r *ParticleRenderer) placement(p entity.Particle) placement {
	style := p.Style
	if style == "" {
		style = "white"
	}
	key := texture.Key{Type: texture.ShapeGlow, Style: style, State: texture.StateNormal}
	switch {
	case r.complexity == quality.ComplexityLow:
		key.Type = texture.ShapeSquare
	case p.Kind == entity.ParticleSpark:
		key.Type = texture.ShapeOrb
	case p.Kind == entity.ParticleSmoke:
		key.State = texture.StateDying
	}
	return placement{
		key:      key,
		x:        p.X,
		y:        p.Y,
		diameter: p.Size * 2,
		rotation: p.Rotation,
		alpha:    p.Alpha(),
		tint:     sprite.Neutral,
		additive: p.Additive || p.Kind == entity.ParticleGlow,
	}
}
