// Package demo 渲染核心的演示模拟：一条蛇在竞技场中绕行，敌人不断涌来
//
// 只负责产生每帧的 entity.Frame 快照，玩法本身（输入、成长、关卡）不在这里。
package demo

import (
	"math"
	"math/rand"

	"github.com/decker502/neonsnake/internal/particle"
	"github.com/decker502/neonsnake/pkg/entity"
)

// Config 模拟参数
type Config struct {
	Seed         int64
	Enemies      int     // 同时存在的敌人数
	SnakeLength  int     // 蛇身节数
	XPOrbs       int     // 场上经验球上限
	Pickups      int     // 拾取物数量
	ArenaRadius  float64 // 敌人在此半径上生成
	FireInterval float64 // 秒
	MaxParticles int
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		Seed:         1,
		Enemies:      60,
		SnakeLength:  24,
		XPOrbs:       80,
		Pickups:      6,
		ArenaRadius:  700,
		FireInterval: 0.12,
		MaxParticles: 4000,
	}
}

const (
	segmentSpacing = 4 // 相邻两节间隔的历史采样数
	trailPoints    = 16
	segmentRadius  = 9.0
	enemySpeed     = 70.0
	bulletSpeed    = 520.0
	bulletLife     = 1.4
	pickupRadius   = 24.0
)

var (
	enemyStyles = []string{"magenta", "orange", "violet"}
	enemyShapes = []string{"square", "orb", "ring"}
	snakeSkins  = []string{"cyan", "lime", "orange"}
)

type enemy struct {
	entity.Enemy
	hp       int
	dyingFor float64
}

type bullet struct {
	entity.Projectile
	life float64
}

// Sim 演示模拟
type Sim struct {
	cfg       Config
	rng       *rand.Rand
	particles *particle.System

	time    float64
	tick    uint64
	head    entity.Point
	heading float64
	history []entity.Point // 蛇头位置，最新的在末尾

	enemies  []enemy
	bullets  []bullet
	orbs     []entity.XPOrb
	pickups  []entity.Pickup
	fireIn   float64
	zapFor   float64
	zapPath  []entity.Point
	beamFor  float64
	shake    float64
	flash    float64
	killed   int
	skin     int
	entities []entity.Entity
	projs    []entity.Projectile
	trailBuf []entity.Point
}

// New 创建模拟，lib 为 nil 时不产生粒子
func New(cfg Config, lib particle.Library) *Sim {
	rng := rand.New(rand.NewSource(cfg.Seed))
	s := &Sim{
		cfg:       cfg,
		rng:       rng,
		particles: particle.NewSystem(lib, rng, cfg.MaxParticles),
	}
	for i := 0; i < cfg.Pickups; i++ {
		a := 2 * math.Pi * float64(i) / float64(max(cfg.Pickups, 1))
		s.pickups = append(s.pickups, entity.Pickup{
			Point:  entity.Point{X: math.Cos(a) * cfg.ArenaRadius * 0.5, Y: math.Sin(a) * cfg.ArenaRadius * 0.5},
			Radius: 10,
			Style:  "yellow",
			Phase:  a,
		})
	}
	for len(s.enemies) < cfg.Enemies {
		s.spawnEnemy()
	}
	return s
}

// Step 推进模拟 dt 秒
func (s *Sim) Step(dt float64) {
	if dt <= 0 {
		return
	}
	s.time += dt
	s.tick++

	s.moveHead()
	s.updateEnemies(dt)
	s.updateBullets(dt)
	s.collectOrbs()
	s.updateEffects(dt)
	s.particles.Step(dt)

	for len(s.enemies) < s.cfg.Enemies {
		s.spawnEnemy()
	}
}

// moveHead 蛇头沿利萨如曲线移动
func (s *Sim) moveHead() {
	r := s.cfg.ArenaRadius
	t := s.time
	x := r * 0.55 * math.Sin(t*0.45)
	y := r * 0.35 * math.Sin(t*0.7)
	dx := r * 0.55 * 0.45 * math.Cos(t*0.45)
	dy := r * 0.35 * 0.7 * math.Cos(t*0.7)
	s.head = entity.Point{X: x, Y: y}
	s.heading = math.Atan2(dy, dx)

	s.history = append(s.history, s.head)
	keep := s.cfg.SnakeLength*segmentSpacing + trailPoints + 1
	if len(s.history) > keep*2 {
		s.history = append(s.history[:0], s.history[len(s.history)-keep:]...)
	}
}

func (s *Sim) spawnEnemy() {
	a := s.rng.Float64() * 2 * math.Pi
	i := s.rng.Intn(len(enemyStyles))
	s.enemies = append(s.enemies, enemy{
		Enemy: entity.Enemy{
			Point:  entity.Point{X: s.head.X + math.Cos(a)*s.cfg.ArenaRadius, Y: s.head.Y + math.Sin(a)*s.cfg.ArenaRadius},
			Radius: 10 + s.rng.Float64()*8,
			Style:  enemyStyles[i],
			Shape:  enemyShapes[i],
		},
		hp: 2 + s.rng.Intn(3),
	})
}

func (s *Sim) updateEnemies(dt float64) {
	j := 0
	for i := range s.enemies {
		e := &s.enemies[i]
		if e.Dying {
			e.dyingFor -= dt
			if e.dyingFor <= 0 {
				continue
			}
			s.enemies[j] = *e
			j++
			continue
		}

		dx, dy := s.head.X-e.X, s.head.Y-e.Y
		d := math.Hypot(dx, dy)
		if d < e.Radius+segmentRadius {
			// 撞到蛇头：受伤闪屏
			s.flash = 1
			s.shake = 10
			s.kill(e)
		} else if d > 0 {
			e.X += dx / d * enemySpeed * dt
			e.Y += dy / d * enemySpeed * dt
			e.Angle += dt * 1.5
		}
		e.HitFlash = math.Max(0, e.HitFlash-dt*4)
		s.enemies[j] = *e
		j++
	}
	clear(s.enemies[j:])
	s.enemies = s.enemies[:j]
}

func (s *Sim) kill(e *enemy) {
	e.Dying = true
	e.dyingFor = 0.3
	s.killed++
	s.particles.Burst("death", e.X, e.Y, "")
	s.particles.Burst("smoke", e.X, e.Y, "")
	if len(s.orbs) < s.cfg.XPOrbs {
		s.orbs = append(s.orbs, entity.XPOrb{Point: e.Point, Radius: 4, Value: 1})
	}
}

func (s *Sim) nearestEnemy(p entity.Point) *enemy {
	var best *enemy
	bestD := math.Inf(1)
	for i := range s.enemies {
		e := &s.enemies[i]
		if e.Dying {
			continue
		}
		if d := math.Hypot(e.X-p.X, e.Y-p.Y); d < bestD {
			best, bestD = e, d
		}
	}
	return best
}

func (s *Sim) updateBullets(dt float64) {
	s.fireIn -= dt
	if s.fireIn <= 0 {
		s.fireIn = s.cfg.FireInterval
		if target := s.nearestEnemy(s.head); target != nil {
			a := math.Atan2(target.Y-s.head.Y, target.X-s.head.X)
			s.bullets = append(s.bullets, bullet{
				Projectile: entity.Projectile{
					Point:    s.head,
					VX:       math.Cos(a) * bulletSpeed,
					VY:       math.Sin(a) * bulletSpeed,
					Radius:   3,
					Style:    "cyan",
					Friendly: true,
				},
				life: bulletLife,
			})
		}
	}

	j := 0
	for i := range s.bullets {
		b := &s.bullets[i]
		b.life -= dt
		b.X += b.VX * dt
		b.Y += b.VY * dt
		if b.life <= 0 || s.hit(b.Point, b.Radius) {
			continue
		}
		s.bullets[j] = *b
		j++
	}
	s.bullets = s.bullets[:j]
}

// hit 子弹命中第一个接触到的敌人
func (s *Sim) hit(p entity.Point, r float64) bool {
	for i := range s.enemies {
		e := &s.enemies[i]
		if e.Dying || math.Hypot(e.X-p.X, e.Y-p.Y) > e.Radius+r {
			continue
		}
		e.hp--
		e.HitFlash = 1
		s.particles.Burst("hit", p.X, p.Y, "")
		if e.hp <= 0 {
			s.kill(e)
		}
		return true
	}
	return false
}

func (s *Sim) collectOrbs() {
	j := 0
	for _, o := range s.orbs {
		if math.Hypot(o.X-s.head.X, o.Y-s.head.Y) < pickupRadius {
			s.particles.Burst("xp", o.X, o.Y, "+1")
			continue
		}
		s.orbs[j] = o
		j++
	}
	s.orbs = s.orbs[:j]
}

// updateEffects 闪电链、激光、震屏和闪屏
func (s *Sim) updateEffects(dt float64) {
	s.shake = math.Max(0, s.shake-dt*30)
	s.flash = math.Max(0, s.flash-dt*2)

	for i := range s.pickups {
		s.pickups[i].Phase += dt
	}

	s.zapFor -= dt
	if s.zapFor <= -2.8 {
		s.zapFor = 0.2
		s.zapPath = append(s.zapPath[:0], s.head)
		from := s.head
		for k := 0; k < 4; k++ {
			e := s.nearestEnemy(from)
			if e == nil {
				break
			}
			s.zapPath = append(s.zapPath, e.Point)
			from = e.Point
			e.HitFlash = 1
		}
	}

	s.beamFor -= dt
	if s.beamFor <= -4.4 {
		s.beamFor = 0.6
	}
}

// Frame 当前快照
//
// 返回的切片在下一次 Frame/Step 调用前有效。
func (s *Sim) Frame() entity.Frame {
	s.entities = s.entities[:0]
	s.projs = s.projs[:0]
	s.trailBuf = s.trailBuf[:0]

	for _, o := range s.orbs {
		s.entities = append(s.entities, o)
	}
	for _, p := range s.pickups {
		s.entities = append(s.entities, p)
	}
	for _, e := range s.enemies {
		s.entities = append(s.entities, e.Enemy)
	}
	s.appendSnake()

	if s.beamFor > 0 {
		to := entity.Point{X: s.head.X + math.Cos(s.heading)*320, Y: s.head.Y + math.Sin(s.heading)*320}
		s.entities = append(s.entities, entity.Beam{From: s.head, To: to, Width: 6, Style: "cyan"})
	}

	for _, b := range s.bullets {
		s.projs = append(s.projs, b.Projectile)
	}
	if s.zapFor > 0 && len(s.zapPath) > 1 {
		s.projs = append(s.projs, entity.Projectile{
			Point:    s.zapPath[0],
			Kind:     entity.ProjectileLightning,
			Style:    "violet",
			Friendly: true,
			Path:     s.zapPath,
		})
	}

	return entity.Frame{
		Tick: s.tick,
		View: entity.View{
			X:      s.head.X,
			Y:      s.head.Y,
			Zoom:   1,
			ShakeX: s.shake * math.Sin(s.time*53),
			ShakeY: s.shake * math.Cos(s.time*47),
		},
		Entities:    s.entities,
		Projectiles: s.projs,
		Particles:   s.particles.Particles(),
	}
}

// appendSnake 蛇尾在下、蛇头在上；每节带最近的历史位置作为拖尾
func (s *Sim) appendSnake() {
	n := len(s.history)
	if n == 0 {
		return
	}
	// 先把所有拖尾写进 trailBuf，避免追加时扩容导致前面的切片失效
	need := s.cfg.SnakeLength * trailPoints
	if cap(s.trailBuf) < need {
		s.trailBuf = make([]entity.Point, 0, need)
	}
	for i := s.cfg.SnakeLength - 1; i >= 0; i-- {
		idx := n - 1 - i*segmentSpacing
		if idx < 0 {
			continue
		}
		start := len(s.trailBuf)
		for k := 1; k <= trailPoints && idx-k >= 0; k++ {
			s.trailBuf = append(s.trailBuf, s.history[idx-k])
		}
		angle := s.heading
		if idx > 0 {
			prev := s.history[idx-1]
			angle = math.Atan2(s.history[idx].Y-prev.Y, s.history[idx].X-prev.X)
		}
		style := snakeSkins[s.skin]
		if i == 0 {
			style = "white"
		}
		s.entities = append(s.entities, entity.SnakeSegment{
			Point:  s.history[idx],
			Angle:  angle,
			Radius: segmentRadius * (1 - 0.3*float64(i)/float64(s.cfg.SnakeLength)),
			Index:  i,
			Style:  style,
			Trail:  s.trailBuf[start:len(s.trailBuf):len(s.trailBuf)],
		})
	}
}

// Flash 受伤闪屏强度 0~1，用于瞬时色差
func (s *Sim) Flash() float64 {
	return s.flash
}

// CycleSkin 切换蛇身外观（蛇头保持白色），返回切换前后的风格
func (s *Sim) CycleSkin() (from, to string) {
	from = snakeSkins[s.skin]
	s.skin = (s.skin + 1) % len(snakeSkins)
	return from, snakeSkins[s.skin]
}

// Killed 累计击杀数
func (s *Sim) Killed() int {
	return s.killed
}
