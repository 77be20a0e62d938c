package render

import (
	"math"

	"github.com/decker502/neonsnake/pkg/entity"
	"github.com/decker502/neonsnake/pkg/sprite"
	"github.com/decker502/neonsnake/pkg/texture"
)

// ProjectileRenderer 把子弹快照转换为精灵
type ProjectileRenderer struct {
	batchRenderer
}

// NewProjectileRenderer 创建子弹渲染器
func NewProjectileRenderer() *ProjectileRenderer {
	return &ProjectileRenderer{
		batchRenderer: batchRenderer{name: "ProjectileRenderer", depth: 1},
	}
}

// Render 渲染子弹，闪电链总是回退
func (r *ProjectileRenderer) Render(projectiles []entity.Projectile) Result[entity.Projectile] {
	if !r.initialized {
		return notHandled(projectiles)
	}
	res := Result[entity.Projectile]{Handled: true}
	for _, p := range projectiles {
		if !p.Valid() {
			res.Dropped++
			continue
		}
		if !p.Batchable() || !r.place(projectilePlacement(p)) {
			res.Fallback = append(res.Fallback, p)
			continue
		}
		res.Rendered++
		res.Sprites++
	}
	return res
}

// ProjectileStyle 子弹颜色：未指定时友方青色、敌方红色
func ProjectileStyle(p entity.Projectile) string {
	if p.Style != "" {
		return p.Style
	}
	if p.Friendly {
		return "cyan"
	}
	return "red"
}

func projectilePlacement(p entity.Projectile) placement {
	pl := placement{
		key:      texture.Key{Type: texture.ShapeOrb, Style: ProjectileStyle(p), State: texture.StateNormal},
		x:        p.X,
		y:        p.Y,
		diameter: p.Radius * 2,
		alpha:    1,
		tint:     sprite.Neutral,
	}
	if p.Kind == entity.ProjectileBullet {
		pl.key.Type = texture.ShapeBolt
		pl.rotation = math.Atan2(p.VY, p.VX)
		pl.additive = true
	}
	return pl
}
