package entity

// ParticleKind 粒子类型
type ParticleKind int

const (
	ParticleSpark ParticleKind = iota
	ParticleGlow
	ParticleSmoke
	// ParticleText 伤害数字，内容每帧不同，不走 GPU 批量渲染
	ParticleText
)

// Particle 粒子快照
type Particle struct {
	Point
	VX, VY   float64
	Life     float64 // 剩余寿命（秒）
	MaxLife  float64
	Size     float64
	Rotation float64
	Style    string
	Kind     ParticleKind
	Additive bool
	Text     string // 仅 ParticleText 使用
}

// Alpha 按剩余寿命线性淡出
func (p Particle) Alpha() float64 {
	if p.MaxLife <= 0 {
		return 1
	}
	a := p.Life / p.MaxLife
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// Valid 坐标和尺寸是否为有限值
func (p Particle) Valid() bool {
	return p.Point.Valid() && finiteAll(p.VX, p.VY, p.Life, p.MaxLife, p.Size, p.Rotation)
}

// Batchable 粒子能否交给 GPU 批量渲染
func (p Particle) Batchable() bool {
	return p.Kind != ParticleText
}

// ProjectileKind 子弹类型
type ProjectileKind int

const (
	ProjectileBullet ProjectileKind = iota
	ProjectileOrb
	// ProjectileLightning 闪电链，折线每帧随机生成，不走 GPU 批量渲染
	ProjectileLightning
)

// Projectile 子弹快照
type Projectile struct {
	Point
	VX, VY   float64
	Radius   float64
	Style    string
	Kind     ProjectileKind
	Friendly bool
	Path     []Point // 仅 ProjectileLightning 使用
}

// Valid 坐标和尺寸是否为有限值
func (p Projectile) Valid() bool {
	if !p.Point.Valid() || !finiteAll(p.VX, p.VY, p.Radius) {
		return false
	}
	for _, pt := range p.Path {
		if !pt.Valid() {
			return false
		}
	}
	return true
}

// Batchable 子弹能否交给 GPU 批量渲染
func (p Projectile) Batchable() bool {
	return p.Kind != ProjectileLightning
}
