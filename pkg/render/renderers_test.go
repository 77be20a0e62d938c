package render

import (
	"errors"
	"math"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/neonsnake/pkg/entity"
	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/sprite"
	"github.com/decker502/neonsnake/pkg/texture"
)

func newTestResources(t *testing.T) (*sprite.Pool, *texture.Cache) {
	t.Helper()
	cache, err := texture.NewCache(testGenerator, texture.Limits{})
	if err != nil {
		t.Fatal(err)
	}
	return sprite.NewPool("test", 0), cache
}

// TestRendererBeforeInit 测试未初始化时返回未处理且不占用精灵
func TestRendererBeforeInit(t *testing.T) {
	ps := []entity.Particle{{Size: 2}, {Size: 3}}
	res := NewParticleRenderer().Render(ps)
	if res.Handled || len(res.Fallback) != 2 || res.Rendered != 0 {
		t.Errorf("未初始化: %+v", res.Stats())
	}

	es := []entity.Entity{entity.Enemy{Radius: 4}}
	if r := NewEntityRenderer().Render(es); r.Handled || len(r.Fallback) != 1 {
		t.Errorf("实体未初始化: %+v", r.Stats())
	}
}

// TestParticleRendererBudgetAndFallback 测试粒子预算、文字回退和非法坐标
func TestParticleRendererBudgetAndFallback(t *testing.T) {
	pool, cache := newTestResources(t)
	r := NewParticleRenderer()
	if err := r.Init(pool, cache); err != nil {
		t.Fatal(err)
	}
	s := quality.SettingsFor(quality.LevelPotato)
	s.ParticleLimit = 3
	r.SetQuality(s)

	ps := []entity.Particle{
		{Point: entity.Point{X: 1}, Size: 2, Life: 1, MaxLife: 1},
		{Point: entity.Point{X: math.NaN()}, Size: 2},
		{Point: entity.Point{X: 2}, Size: 2, Kind: entity.ParticleText, Text: "12"},
		{Point: entity.Point{X: 3}, Size: 2},
		{Point: entity.Point{X: 4}, Size: 2},
		{Point: entity.Point{X: 5}, Size: 2},
		{Point: entity.Point{X: 6}, Style: "broken", Size: 2},
	}
	res := r.Render(ps)

	if !res.Handled {
		t.Fatal("应为已处理")
	}
	if res.Rendered != 3 || res.Dropped != 1 || res.Skipped != 2 {
		t.Errorf("Rendered/Dropped/Skipped = %d/%d/%d, want 3/1/2", res.Rendered, res.Dropped, res.Skipped)
	}
	if len(res.Fallback) != 1 || res.Fallback[0].Kind != entity.ParticleText {
		t.Errorf("Fallback = %+v, want 仅文字粒子", res.Fallback)
	}
	if got := pool.Stats().Active; got != res.Rendered {
		t.Errorf("活跃精灵 %d != 渲染数 %d", got, res.Rendered)
	}
}

// TestProjectileRendererLightningFallback 测试闪电总是回退
func TestProjectileRendererLightningFallback(t *testing.T) {
	pool, cache := newTestResources(t)
	r := NewProjectileRenderer()
	r.Init(pool, cache)

	ps := []entity.Projectile{
		{Point: entity.Point{X: 1, Y: 1}, VX: 0, VY: 5, Radius: 2, Friendly: true},
		{Point: entity.Point{X: 2, Y: 2}, Radius: 2, Kind: entity.ProjectileOrb},
		{Kind: entity.ProjectileLightning, Path: []entity.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}},
		{Point: entity.Point{X: math.Inf(-1)}, Radius: 2},
	}
	res := r.Render(ps)
	if res.Rendered != 2 || res.Dropped != 1 || len(res.Fallback) != 1 {
		t.Errorf("Stats = %+v", res.Stats())
	}
	if res.Fallback[0].Kind != entity.ProjectileLightning {
		t.Error("回退的应是闪电")
	}

	// 子弹按速度方向旋转
	bullet := pool.Active()[0].Sprite
	if math.Abs(bullet.Rotation-math.Pi/2) > 1e-9 {
		t.Errorf("子弹旋转 = %v, want π/2", bullet.Rotation)
	}
	if !bullet.Additive || bullet.Depth != 1 {
		t.Errorf("子弹 Additive=%v Depth=%d", bullet.Additive, bullet.Depth)
	}
	if ProjectileStyle(entity.Projectile{}) != "red" || ProjectileStyle(entity.Projectile{Friendly: true}) != "cyan" {
		t.Error("默认子弹颜色错误")
	}
}

// TestEntityRendererVariants 测试各实体类型及拖尾
func TestEntityRendererVariants(t *testing.T) {
	pool, cache := newTestResources(t)
	r := NewEntityRenderer()
	r.Init(pool, cache)
	s := quality.SettingsFor(quality.LevelLow)
	s.TrailLength = 2
	r.SetQuality(s)

	es := []entity.Entity{
		entity.SnakeSegment{
			Point:  entity.Point{X: 10, Y: 10},
			Radius: 6,
			Trail:  []entity.Point{{X: 8, Y: 10}, {X: 6, Y: 10}, {X: 4, Y: 10}},
		},
		entity.Enemy{Point: entity.Point{X: 30, Y: 30}, Radius: 8, HitFlash: 1},
		entity.XPOrb{Point: entity.Point{X: 5, Y: 5}, Radius: 3, Value: 10},
		entity.Pickup{Point: entity.Point{X: 7, Y: 7}, Radius: 5},
		entity.Beam{From: entity.Point{X: 0, Y: 0}, To: entity.Point{X: 50, Y: 0}, Width: 4},
		entity.Enemy{Point: entity.Point{X: math.NaN()}},
		nil,
	}
	res := r.Render(es)

	if res.Rendered != 4 {
		t.Errorf("Rendered = %d, want 4", res.Rendered)
	}
	if res.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", res.Dropped)
	}
	if len(res.Fallback) != 1 || res.Fallback[0].Kind() != entity.KindBeam {
		t.Errorf("Fallback = %v, want 仅激光", res.Fallback)
	}
	// 蛇身 1 + 拖尾 2 + 敌人 + 经验球 + 拾取物
	if res.Sprites != 6 || pool.Stats().Active != 6 {
		t.Errorf("Sprites = %d, 活跃 = %d, want 6", res.Sprites, pool.Stats().Active)
	}
	if !cache.Contains(texture.Key{Type: texture.ShapeSquare, Style: "magenta", State: texture.StateHit}) {
		t.Error("受击敌人应使用 hit 贴图")
	}
}

// TestSegmentHeadFailureLeavesNoTrail 测试蛇身本体贴图不可用时拖尾也不进入批量路径
func TestSegmentHeadFailureLeavesNoTrail(t *testing.T) {
	calls := 0
	flaky := func(key texture.Key) (*ebiten.Image, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("first upload failed")
		}
		return ebiten.NewImage(10, 10), nil
	}
	cache, err := texture.NewCache(flaky, texture.Limits{})
	if err != nil {
		t.Fatal(err)
	}
	pool := sprite.NewPool("test", 0)
	r := NewEntityRenderer()
	r.Init(pool, cache)
	s := quality.SettingsFor(quality.LevelLow)
	s.TrailLength = 2
	r.SetQuality(s)

	es := []entity.Entity{entity.SnakeSegment{
		Point:  entity.Point{X: 10, Y: 10},
		Radius: 6,
		Trail:  []entity.Point{{X: 8, Y: 10}, {X: 6, Y: 10}},
	}}

	res := r.Render(es)
	if len(res.Fallback) != 1 || res.Rendered != 0 {
		t.Fatalf("本体失败: Rendered = %d, Fallback = %d; want 0/1", res.Rendered, len(res.Fallback))
	}
	if res.Sprites != 0 || pool.Stats().Active != 0 {
		t.Errorf("回退的蛇身不应占用精灵: Sprites = %d, 活跃 = %d", res.Sprites, pool.Stats().Active)
	}

	// 下一帧贴图可用，本体和拖尾一起走批量路径
	pool.ReleaseAll()
	res = r.Render(es)
	if res.Rendered != 1 || len(res.Fallback) != 0 || res.Sprites != 3 {
		t.Errorf("恢复后: Rendered = %d, Fallback = %d, Sprites = %d; want 1/0/3",
			res.Rendered, len(res.Fallback), res.Sprites)
	}
}

// TestRendererSpriteScale 测试精灵缩放使形状主体等于世界尺寸
func TestRendererSpriteScale(t *testing.T) {
	pool, cache := newTestResources(t)
	r := NewProjectileRenderer()
	r.Init(pool, cache)
	r.Render([]entity.Projectile{{Radius: 3, Kind: entity.ProjectileOrb}})

	s := pool.Active()[0].Sprite
	// 贴图 10px，主体占 60% → 6px；直径 6 → 缩放 1
	if math.Abs(s.ScaleX-1) > 1e-9 || s.ScaleX != s.ScaleY {
		t.Errorf("Scale = (%v,%v), want 1", s.ScaleX, s.ScaleY)
	}
}

// TestRendererDoubleInit 测试重复初始化
func TestRendererDoubleInit(t *testing.T) {
	pool, cache := newTestResources(t)
	r := NewEntityRenderer()
	if err := r.Init(nil, cache); err == nil {
		t.Error("缺少池时应返回错误")
	}
	if err := r.Init(pool, cache); err != nil {
		t.Fatal(err)
	}
	if err := r.Init(nil, nil); err != nil {
		t.Error("重复初始化应为空操作")
	}
	r.Destroy()
	if r.IsInitialized() {
		t.Error("销毁后应为未初始化")
	}
}
